package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/warranty-portal/apiclient"
	"github.com/jrsteele09/warranty-portal/internal/errors"
	"github.com/jrsteele09/warranty-portal/internal/utils"
	"github.com/jrsteele09/warranty-portal/session"
	"github.com/jrsteele09/warranty-portal/users"
	"github.com/rs/zerolog/log"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginPayload is the normalised login response.
type loginPayload struct {
	AccessToken        string      `json:"accessToken"`
	RefreshToken       string      `json:"refreshToken"`
	User               *users.User `json:"user"`
	MustChangePassword bool        `json:"mustChangePassword"`
}

// normalizeLogin reads each field from "data" first and the flat body second.
func normalizeLogin(env apiclient.Envelope[loginPayload]) loginPayload {
	nested := loginPayload{}
	if env.Nested != nil {
		nested = *env.Nested
	}
	p := loginPayload{
		AccessToken:        utils.FirstNonEmpty(nested.AccessToken, env.Flat.AccessToken),
		RefreshToken:       utils.FirstNonEmpty(nested.RefreshToken, env.Flat.RefreshToken),
		User:               nested.User,
		MustChangePassword: nested.MustChangePassword || env.Flat.MustChangePassword,
	}
	if p.User == nil {
		p.User = env.Flat.User
	}
	if p.User != nil && p.User.MustChangePassword {
		p.MustChangePassword = true
	}
	return p
}

// Login exchanges credentials for a session and writes the session cookies.
func (s *Service) Login(ctx context.Context, jar *session.Jar, email, password string) LoginResult {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{Result: failed(errors.ErrValidation, msgCredentialsRequired)}
	}

	req, err := apiclient.NewJSONRequest(http.MethodPost, apiclient.PathLogin, credentials{Email: email, Password: password})
	if err != nil {
		log.Error().Err(err).Msg("login: failed to build request")
		return LoginResult{Result: failed(errors.ErrInternal, msgUnreachable)}
	}

	resp, err := s.api.Send(ctx, req, "")
	if err != nil {
		log.Error().Err(err).Str("email", email).Msg("login: backend unreachable")
		return LoginResult{Result: failed(errors.ErrTransport, msgUnreachable)}
	}
	body, err := apiclient.ReadBody(resp)
	if err != nil {
		log.Error().Err(err).Msg("login: failed to read response")
		return LoginResult{Result: failed(errors.ErrTransport, msgUnreachable)}
	}

	env, err := apiclient.DecodeEnvelope[loginPayload](body)
	if err != nil {
		log.Warn().Err(err).Int("status", resp.StatusCode).Msg("login: unparseable response")
		return LoginResult{Result: failed(errors.ErrInvalidResponse, msgInvalidResponse)}
	}

	if !apiclient.IsSuccess(resp.StatusCode) {
		message := env.ErrorMessage()
		if message == "" {
			message = fmt.Sprintf("Login failed with status %d", resp.StatusCode)
		}
		log.Info().Int("status", resp.StatusCode).Str("email", email).Msg("login rejected")
		return LoginResult{Result: failed(errors.ErrBackend, message)}
	}

	payload := normalizeLogin(env)
	if payload.AccessToken == "" {
		log.Warn().Msg("login: backend returned success without an access token")
		return LoginResult{Result: failed(errors.ErrMissingToken, msgMissingToken)}
	}

	role := payload.User.RoleOrDefault()
	persistLogin(jar, payload, role)

	return LoginResult{
		Result:             succeeded(""),
		Role:               role,
		MustChangePassword: payload.MustChangePassword,
		User:               payload.User,
	}
}

// persistLogin writes the session cookies. A cookie failure is logged and
// does not turn a successful login into a failed one.
func persistLogin(jar *session.Jar, p loginPayload, role users.Role) {
	logFailure := func(err error, cookie string) {
		if err != nil {
			log.Warn().Err(err).Str("cookie", cookie).Msg("login: failed to write cookie")
		}
	}

	logFailure(jar.SaveTokens(p.AccessToken, p.RefreshToken), "tokens")
	logFailure(jar.SaveRole(role), session.CookieUserRole)
	logFailure(jar.SetMustChangePassword(p.MustChangePassword), session.CookieMustChangePassword)
	if p.User != nil {
		logFailure(jar.SaveUser(p.User), session.CookieUser)
	}
}
