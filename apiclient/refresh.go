package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/warranty-portal/internal/errors"
	"github.com/jrsteele09/warranty-portal/internal/utils"
	"github.com/jrsteele09/warranty-portal/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// TokenPair is the token payload of the refresh endpoint.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// NormalizeTokenPair prefers fields under "data" and falls back to flat ones.
func NormalizeTokenPair(env Envelope[TokenPair]) TokenPair {
	nested := TokenPair{}
	if env.Nested != nil {
		nested = *env.Nested
	}
	expiresIn := nested.ExpiresIn
	if expiresIn == 0 {
		expiresIn = env.Flat.ExpiresIn
	}
	return TokenPair{
		AccessToken:  utils.FirstNonEmpty(nested.AccessToken, env.Flat.AccessToken),
		RefreshToken: utils.FirstNonEmpty(nested.RefreshToken, env.Flat.RefreshToken),
		ExpiresIn:    expiresIn,
	}
}

// Token converts the pair to an oauth2 token.
func (p TokenPair) Token() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
	}
	if p.ExpiresIn > 0 {
		t.Expiry = time.Now().Add(time.Duration(p.ExpiresIn) * time.Second)
	}
	return t
}

// Refresh exchanges the stored refresh token for a new pair and writes both
// cookies. It never deletes cookies; on any failure it returns false and the
// jar is left as it was.
func (c *Client) Refresh(ctx context.Context, jar *session.Jar) bool {
	_, err := c.RefreshToken(ctx, jar)
	return err == nil
}

// RefreshToken is Refresh with the reason for a failure: ErrNoRefreshToken
// when the jar holds none, ErrRefreshFailed when the exchange or the cookie
// write fails.
func (c *Client) RefreshToken(ctx context.Context, jar *session.Jar) (*oauth2.Token, error) {
	refreshToken := jar.RefreshToken()
	if refreshToken == "" {
		log.Debug().Msg("token refresh skipped: no refresh token")
		return nil, errors.ErrNoRefreshToken
	}

	// Concurrent refreshes for the same token share one exchange, so a backend
	// that rotates refresh tokens is only asked once. The exchange outlives
	// the caller that started it.
	exchangeCtx := context.WithoutCancel(ctx)
	v, err, shared := c.refreshes.Do(refreshToken, func() (any, error) {
		return c.exchangeRefreshToken(exchangeCtx, refreshToken)
	})
	if err != nil {
		log.Warn().Err(err).Msg("token refresh failed")
		return nil, fmt.Errorf("%w: %w", errors.ErrRefreshFailed, err)
	}

	token := v.(*oauth2.Token)
	if err := jar.SaveTokens(token.AccessToken, token.RefreshToken); err != nil {
		log.Warn().Err(err).Msg("token refresh: failed to persist tokens")
	}
	if jar.AccessToken() != token.AccessToken {
		return nil, fmt.Errorf("%w: %w", errors.ErrRefreshFailed, errors.ErrCookieWrite)
	}
	log.Debug().Bool("shared", shared).Msg("token refreshed")
	return token, nil
}

func (c *Client) exchangeRefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	req, err := NewJSONRequest(http.MethodPost, PathRefreshToken, map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return nil, err
	}
	resp, err := c.Send(ctx, req, "")
	if err != nil {
		return nil, err
	}
	body, err := ReadBody(resp)
	if err != nil {
		return nil, err
	}
	if !IsSuccess(resp.StatusCode) {
		return nil, fmt.Errorf("%w: refresh returned status %d", errors.ErrBackend, resp.StatusCode)
	}

	env, err := DecodeEnvelope[TokenPair](body)
	if err != nil {
		return nil, err
	}
	pair := NormalizeTokenPair(env)
	if pair.AccessToken == "" {
		return nil, errors.ErrMissingToken
	}
	return pair.Token(), nil
}
