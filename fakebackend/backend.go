// Package fakebackend is an in-memory implementation of the REST backend the
// portal talks to. It backs the fake-backend command for local development
// and the end-to-end tests.
package fakebackend

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	perrors "github.com/jrsteele09/warranty-portal/internal/errors"
	"github.com/jrsteele09/warranty-portal/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	headerNewAccessToken  = "X-New-Access-Token"
	headerNewRefreshToken = "X-New-Refresh-Token"

	maxUploadBytes = 5 << 20
)

// Backend serves the REST contract under a path prefix (default "/api").
type Backend struct {
	accounts     *AccountStore
	tokens       *TokenIssuer
	prefix       string
	publicURL    string
	rotateWithin time.Duration
	now          func() time.Time

	uploadsLock sync.RWMutex
	uploads     map[string][]byte
}

type options struct {
	prefix       string
	publicURL    string
	issuer       string
	accessTTL    time.Duration
	refreshTTL   time.Duration
	rotateWithin time.Duration
	now          func() time.Time
}

// Option defines a function type to modify the Backend configuration.
type Option func(*options)

func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = strings.TrimRight(prefix, "/") }
}

// WithPublicURL makes upload URLs absolute. Without it they are relative to
// the backend's origin.
func WithPublicURL(base string) Option {
	return func(o *options) { o.publicURL = strings.TrimRight(base, "/") }
}

func WithTokenTTLs(access, refresh time.Duration) Option {
	return func(o *options) {
		o.accessTTL = access
		o.refreshTTL = refresh
	}
}

// WithSeamlessRotation makes /auth/me hand out a new token pair in response
// headers whenever the presented access token expires within d.
func WithSeamlessRotation(d time.Duration) Option {
	return func(o *options) { o.rotateWithin = d }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates an empty backend. secret signs the access tokens.
func New(secret string, opts ...Option) (*Backend, error) {
	if secret == "" {
		return nil, errors.New("[fakebackend New] signing secret is required")
	}
	o := options{
		prefix:     "/api",
		issuer:     "warranty-portal-fake-backend",
		accessTTL:  2 * time.Hour,
		refreshTTL: 7 * 24 * time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Backend{
		accounts:     NewAccountStore(),
		tokens:       newTokenIssuer([]byte(secret), o.issuer, o.accessTTL, o.refreshTTL, o.now),
		prefix:       o.prefix,
		publicURL:    o.publicURL,
		rotateWithin: o.rotateWithin,
		now:          o.now,
		uploads:      make(map[string][]byte),
	}, nil
}

func (b *Backend) Accounts() *AccountStore {
	return b.accounts
}

func (b *Backend) Tokens() *TokenIssuer {
	return b.tokens
}

// Handler returns the backend's routes.
func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+b.prefix+"/auth/login", b.login)
	mux.HandleFunc("POST "+b.prefix+"/auth/logout", b.authenticated(b.logout))
	mux.HandleFunc("POST "+b.prefix+"/auth/refresh-token", b.refreshToken)
	mux.HandleFunc("GET "+b.prefix+"/auth/me", b.authenticated(b.me))
	mux.HandleFunc("PUT "+b.prefix+"/auth/me", b.authenticated(b.updateMe))
	mux.HandleFunc("POST "+b.prefix+"/auth/change-password", b.authenticated(b.changePassword))
	mux.HandleFunc("POST "+b.prefix+"/upload/single", b.authenticated(b.upload))
	mux.HandleFunc("GET "+b.prefix+"/uploads/{name}", b.download)
	return mux
}

type response struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("fakebackend: failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, response{Status: false, Message: message})
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
}

// requestTenant is the first label of the forwarded host, e.g. "acme" for
// acme.portal.test. Bare hosts and IPs have no tenant.
func requestTenant(r *http.Request) string {
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if net.ParseIP(host) != nil {
		return ""
	}
	parts := strings.Split(host, ".")
	if len(parts) < 3 {
		return ""
	}
	return parts[0]
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func (b *Backend) issuePair(profile users.User, tenant string) (tokenPair, error) {
	access, err := b.tokens.IssueAccess(profile, tenant)
	if err != nil {
		return tokenPair{}, err
	}
	refresh, err := b.tokens.IssueRefresh(profile.ID)
	if err != nil {
		return tokenPair{}, err
	}
	return tokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: b.tokens.ExpiresIn()}, nil
}

// login answers with the payload nested under "data".
func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &creds); err != nil || creds.Email == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	tenant := requestTenant(r)
	account, err := b.accounts.GetByEmail(creds.Email)
	if err != nil || (account.Tenant != "" && account.Tenant != tenant) {
		writeError(w, http.StatusNotFound, "No account found for this email")
		return
	}
	if !account.CheckPassword(creds.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	profile, _ := b.accounts.Profile(account.Profile.ID)
	pair, err := b.issuePair(profile, tenant)
	if err != nil {
		log.Err(err).Msg("fakebackend: failed to issue tokens")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Info().Str("email", profile.Email).Str("tenant", tenant).Msg("fakebackend: login")
	writeJSON(w, http.StatusOK, response{Status: true, Message: "Login successful", Data: map[string]any{
		"accessToken":        pair.AccessToken,
		"refreshToken":       pair.RefreshToken,
		"expiresIn":          pair.ExpiresIn,
		"user":               profile,
		"mustChangePassword": profile.MustChangePassword,
	}})
}

// refreshToken answers with a flat token pair.
func (b *Backend) refreshToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &body); err != nil || body.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	userID, err := b.tokens.ConsumeRefresh(body.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	profile, err := b.accounts.Profile(userID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	pair, err := b.issuePair(profile, requestTenant(r))
	if err != nil {
		log.Err(err).Msg("fakebackend: failed to issue tokens")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(pair)
}

type authedHandler func(w http.ResponseWriter, r *http.Request, claims *AccessClaims)

func (b *Backend) authenticated(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Authorization required")
			return
		}
		claims, err := b.tokens.VerifyAccess(token)
		if err != nil {
			log.Debug().Err(err).Msg("fakebackend: rejected access token")
			writeError(w, http.StatusUnauthorized, "Token expired or invalid")
			return
		}
		next(w, r, claims)
	}
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request, claims *AccessClaims) {
	b.tokens.Revoke(claims)
	writeJSON(w, http.StatusOK, response{Status: true, Message: "Logged out"})
}

// me optionally rotates the token pair through response headers.
func (b *Backend) me(w http.ResponseWriter, r *http.Request, claims *AccessClaims) {
	profile, err := b.accounts.Profile(users.ParseUserID(claims.Subject))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User no longer exists")
		return
	}

	if b.rotateWithin > 0 && claims.ExpiresAt != nil && claims.ExpiresAt.Sub(b.now()) <= b.rotateWithin {
		pair, err := b.issuePair(profile, claims.Tenant)
		if err != nil {
			log.Err(err).Msg("fakebackend: seamless rotation failed")
		} else {
			b.tokens.RevokeAccess(claims)
			w.Header().Set(headerNewAccessToken, pair.AccessToken)
			w.Header().Set(headerNewRefreshToken, pair.RefreshToken)
		}
	}

	writeJSON(w, http.StatusOK, response{Status: true, Data: profile})
}

// updateMe answers with the changed fields nested under data.user.
func (b *Backend) updateMe(w http.ResponseWriter, r *http.Request, claims *AccessClaims) {
	var update struct {
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
		Phone     *string `json:"phone"`
		Avatar    *string `json:"avatar"`
	}
	if err := decodeBody(r, &update); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	changed := map[string]any{}
	_, err := b.accounts.Update(users.ParseUserID(claims.Subject), func(a *Account) error {
		if update.FirstName != nil {
			a.Profile.FirstName = strings.TrimSpace(*update.FirstName)
			changed["firstName"] = a.Profile.FirstName
		}
		if update.LastName != nil {
			a.Profile.LastName = strings.TrimSpace(*update.LastName)
			changed["lastName"] = a.Profile.LastName
		}
		if update.Phone != nil {
			a.Profile.Phone = strings.TrimSpace(*update.Phone)
			changed["phone"] = a.Profile.Phone
		}
		if update.Avatar != nil {
			a.Profile.Avatar = update.Avatar
			changed["avatar"] = *update.Avatar
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, response{Status: true, Message: "Profile updated", Data: map[string]any{"user": changed}})
}

func (b *Backend) changePassword(w http.ResponseWriter, r *http.Request, claims *AccessClaims) {
	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeBody(r, &body); err != nil || body.CurrentPassword == "" || body.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "Current and new password are required")
		return
	}
	if err := users.ValidatePasswordStrength(body.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, err := b.accounts.Update(users.ParseUserID(claims.Subject), func(a *Account) error {
		if !a.CheckPassword(body.CurrentPassword) {
			return perrors.ErrValidation
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		a.PasswordHash = hash
		a.Profile.MustChangePassword = false
		return nil
	})
	switch {
	case perrors.Is(err, perrors.ErrValidation):
		writeError(w, http.StatusBadRequest, "Current password is incorrect")
	case err != nil:
		log.Err(err).Msg("fakebackend: change password failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	default:
		writeJSON(w, http.StatusOK, response{Status: true, Message: "Password changed successfully"})
	}
}

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

func (b *Backend) upload(w http.ResponseWriter, r *http.Request, _ *AccessClaims) {
	if r.URL.Query().Get("category") == "" {
		writeError(w, http.StatusBadRequest, "Upload category is required")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "A file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := imageTypes[ext]; !ok {
		writeError(w, http.StatusBadRequest, "Only image uploads are allowed")
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read file")
		return
	}

	name := uuid.New().String() + ext
	b.uploadsLock.Lock()
	b.uploads[name] = content
	b.uploadsLock.Unlock()

	url := b.publicURL + b.prefix + "/uploads/" + name
	writeJSON(w, http.StatusOK, response{Status: true, Message: "File uploaded", Data: map[string]string{"url": url}})
}

func (b *Backend) download(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	b.uploadsLock.RLock()
	content, ok := b.uploads[name]
	b.uploadsLock.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", imageTypes[filepath.Ext(name)])
	_, _ = w.Write(content)
}
