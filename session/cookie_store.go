package session

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/jrsteele09/warranty-portal/internal/errors"
)

// CookieStore is a Store backed by the inbound request's cookies and the
// outbound response's Set-Cookie headers. Values are URL-encoded on the wire
// so JSON survives cookie sanitisation.
type CookieStore struct {
	r      *http.Request
	w      http.ResponseWriter
	secure bool

	mu      sync.Mutex
	written map[string]*string // nil marks a deletion made during this request
}

var _ Store = (*CookieStore)(nil)

// NewCookieStore creates a store for a single request/response pair.
func NewCookieStore(w http.ResponseWriter, r *http.Request, secure bool) *CookieStore {
	return &CookieStore{
		r:       r,
		w:       w,
		secure:  secure,
		written: make(map[string]*string),
	}
}

// Get returns the value written earlier in this request, or the inbound cookie.
func (s *CookieStore) Get(name string) (string, bool) {
	s.mu.Lock()
	v, ok := s.written[name]
	s.mu.Unlock()
	if ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}

	c, err := s.r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	value, err := url.QueryUnescape(c.Value)
	if err != nil {
		return c.Value, true
	}
	return value, true
}

func (s *CookieStore) Set(cookie Cookie) error {
	c := &http.Cookie{
		Name:     cookie.Name,
		Value:    url.QueryEscape(cookie.Value),
		Path:     "/",
		HttpOnly: cookie.HTTPOnly,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cookie.MaxAge.Seconds()),
		Expires:  time.Now().Add(cookie.MaxAge),
	}
	if err := c.Valid(); err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrCookieWrite, cookie.Name, err)
	}
	http.SetCookie(s.w, c)

	value := cookie.Value
	s.mu.Lock()
	s.written[cookie.Name] = &value
	s.mu.Unlock()
	return nil
}

func (s *CookieStore) Delete(name string) error {
	c := &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
	if err := c.Valid(); err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrCookieWrite, name, err)
	}
	http.SetCookie(s.w, c)

	s.mu.Lock()
	s.written[name] = nil
	s.mu.Unlock()
	return nil
}
