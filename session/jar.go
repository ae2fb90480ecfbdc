package session

import (
	"encoding/json"
	"fmt"

	"github.com/jrsteele09/warranty-portal/internal/config"
	"github.com/jrsteele09/warranty-portal/internal/errors"
	"github.com/jrsteele09/warranty-portal/users"
)

// Cookie names are part of the contract other pages read.
const (
	CookieAccessToken        = "accessToken"
	CookieRefreshToken       = "refreshToken"
	CookieUserRole           = "userRole"
	CookieMustChangePassword = "mustChangePassword"
	CookieUser               = "user"
)

// AllCookies lists every session cookie; login writes them together and
// logout deletes them together.
var AllCookies = []string{
	CookieAccessToken,
	CookieRefreshToken,
	CookieUserRole,
	CookieMustChangePassword,
	CookieUser,
}

// Jar is a typed view of the session cookies held in a Store.
type Jar struct {
	store Store
	cfg   config.SessionConfig
}

func NewJar(store Store, cfg config.SessionConfig) *Jar {
	return &Jar{store: store, cfg: cfg}
}

func (j *Jar) AccessToken() string {
	v, _ := j.store.Get(CookieAccessToken)
	return v
}

func (j *Jar) RefreshToken() string {
	v, _ := j.store.Get(CookieRefreshToken)
	return v
}

// IsAuthenticated is true whenever an access token cookie is present.
func (j *Jar) IsAuthenticated() bool {
	return j.AccessToken() != ""
}

func (j *Jar) Role() users.Role {
	v, ok := j.store.Get(CookieUserRole)
	if !ok {
		return ""
	}
	return users.Role(v)
}

func (j *Jar) MustChangePassword() bool {
	v, ok := j.store.Get(CookieMustChangePassword)
	return ok && v == "true"
}

// User decodes the cached profile. A missing or corrupt cookie yields false.
func (j *Jar) User() (*users.User, bool) {
	raw, ok := j.store.Get(CookieUser)
	if !ok {
		return nil, false
	}
	var u users.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, false
	}
	return &u, true
}

// SaveTokens writes the access token and, when non-empty, the refresh token.
func (j *Jar) SaveTokens(accessToken, refreshToken string) error {
	if accessToken == "" {
		return fmt.Errorf("%w: empty access token", errors.ErrCookieWrite)
	}
	err := j.store.Set(Cookie{
		Name:     CookieAccessToken,
		Value:    accessToken,
		MaxAge:   j.cfg.GetAccessTokenTTL(),
		HTTPOnly: true,
	})
	if refreshToken == "" {
		return err
	}
	return errors.Join(err, j.store.Set(Cookie{
		Name:     CookieRefreshToken,
		Value:    refreshToken,
		MaxAge:   j.cfg.GetRefreshTokenTTL(),
		HTTPOnly: true,
	}))
}

func (j *Jar) SaveRole(role users.Role) error {
	return j.store.Set(Cookie{
		Name:   CookieUserRole,
		Value:  string(role),
		MaxAge: j.cfg.GetUserCookieTTL(),
	})
}

func (j *Jar) SaveUser(u *users.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return errors.Wrapf(err, "[Jar SaveUser] marshal")
	}
	return j.store.Set(Cookie{
		Name:   CookieUser,
		Value:  string(b),
		MaxAge: j.cfg.GetUserCookieTTL(),
	})
}

// SetMustChangePassword writes the flag when true and removes it otherwise;
// the cookie is only ever present with the value "true".
func (j *Jar) SetMustChangePassword(required bool) error {
	if !required {
		return j.store.Delete(CookieMustChangePassword)
	}
	return j.store.Set(Cookie{
		Name:   CookieMustChangePassword,
		Value:  "true",
		MaxAge: j.cfg.GetMustChangePasswordTTL(),
	})
}

// Clear deletes every session cookie, continuing past individual failures.
func (j *Jar) Clear() error {
	var errs []error
	for _, name := range AllCookies {
		if err := j.store.Delete(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
