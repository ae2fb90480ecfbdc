package fakebackend

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/warranty-portal/internal/errors"
	"github.com/jrsteele09/warranty-portal/users"
)

const refreshTokenBytes = 32

// AccessClaims is what an access token carries.
type AccessClaims struct {
	Email  string     `json:"email"`
	Role   users.Role `json:"role"`
	Tenant string     `json:"tenant,omitempty"`
	jwtlib.RegisteredClaims
}

// TokenIssuer signs HS256 access tokens and keeps opaque refresh tokens.
// Each user holds at most one refresh token; using it rotates it.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	lock     sync.Mutex
	refresh  map[string]storedRefreshToken
	userRefs map[users.UserID]string
	revoked  map[string]time.Time // jti to expiry
}

type storedRefreshToken struct {
	userID users.UserID
	iat    time.Time
}

func newTokenIssuer(secret []byte, issuer string, accessTTL, refreshTTL time.Duration, now func() time.Time) *TokenIssuer {
	return &TokenIssuer{
		secret:     secret,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
		refresh:    make(map[string]storedRefreshToken),
		userRefs:   make(map[users.UserID]string),
		revoked:    make(map[string]time.Time),
	}
}

// IssueAccess signs an access token for the user.
func (t *TokenIssuer) IssueAccess(u users.User, tenant string) (string, error) {
	now := t.now()
	claims := AccessClaims{
		Email:  u.Email,
		Role:   u.RoleOrDefault(),
		Tenant: tenant,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   u.ID.String(),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(t.accessTTL)),
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// VerifyAccess parses and validates an access token.
func (t *TokenIssuer) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwtlib.ParseWithClaims(token, claims, func(*jwtlib.Token) (any, error) {
		return t.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(t.issuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNotAuthenticated, "verify access token: %v", err)
	}

	t.lock.Lock()
	_, revoked := t.revoked[claims.ID]
	t.lock.Unlock()
	if revoked {
		return nil, errors.Wrapf(errors.ErrNotAuthenticated, "access token revoked")
	}
	return claims, nil
}

// IssueRefresh creates a refresh token for the user, replacing any existing one.
func (t *TokenIssuer) IssueRefresh(userID users.UserID) (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	token := hex.EncodeToString(b)

	t.lock.Lock()
	defer t.lock.Unlock()

	if existing, ok := t.userRefs[userID]; ok {
		delete(t.refresh, existing)
	}
	t.refresh[token] = storedRefreshToken{userID: userID, iat: t.now()}
	t.userRefs[userID] = token
	return token, nil
}

// ConsumeRefresh validates a refresh token and deletes it. The caller is
// expected to issue a replacement.
func (t *TokenIssuer) ConsumeRefresh(token string) (users.UserID, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	stored, ok := t.refresh[token]
	if !ok {
		return users.UserID{}, errors.Wrapf(errors.ErrNotAuthenticated, "unknown refresh token")
	}
	delete(t.refresh, token)
	delete(t.userRefs, stored.userID)

	if t.now().Sub(stored.iat) > t.refreshTTL {
		return users.UserID{}, errors.Wrapf(errors.ErrNotAuthenticated, "refresh token expired")
	}
	return stored.userID, nil
}

// RevokeAccess invalidates one access token until it would have expired.
func (t *TokenIssuer) RevokeAccess(claims *AccessClaims) {
	t.lock.Lock()
	defer t.lock.Unlock()

	now := t.now()
	for jti, exp := range t.revoked {
		if now.After(exp) {
			delete(t.revoked, jti)
		}
	}
	if claims.ExpiresAt != nil {
		t.revoked[claims.ID] = claims.ExpiresAt.Time
	}
}

// Revoke invalidates the access token and the user's refresh token.
func (t *TokenIssuer) Revoke(claims *AccessClaims) {
	t.RevokeAccess(claims)

	t.lock.Lock()
	defer t.lock.Unlock()

	userID := users.ParseUserID(claims.Subject)
	if token, ok := t.userRefs[userID]; ok {
		delete(t.refresh, token)
		delete(t.userRefs, userID)
	}
}

// ExpiresIn is the access token lifetime in seconds.
func (t *TokenIssuer) ExpiresIn() int64 {
	return int64(t.accessTTL / time.Second)
}
