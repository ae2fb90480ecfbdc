package auth

import (
	"context"
	"net/http"

	"github.com/jrsteele09/warranty-portal/apiclient"
	"github.com/jrsteele09/warranty-portal/session"
	"github.com/rs/zerolog/log"
)

// Headers the backend uses to hand out a rotated token pair on /auth/me.
const (
	HeaderNewAccessToken  = "X-New-Access-Token"
	HeaderNewRefreshToken = "X-New-Refresh-Token"
)

// SessionState describes how a session check concluded.
type SessionState int

const (
	StateNoToken SessionState = iota
	StateTokenRejected
	StateTokenAcceptedPlain
	StateTokenAcceptedWithRotation
	StateBackendUnavailable
)

var stateNames = map[SessionState]string{
	StateNoToken:                   "no_token",
	StateTokenRejected:             "token_rejected",
	StateTokenAcceptedPlain:        "token_accepted",
	StateTokenAcceptedWithRotation: "token_rotated",
	StateBackendUnavailable:        "backend_unavailable",
}

func (s SessionState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SessionCheck is the validator's verdict.
type SessionCheck struct {
	Valid bool         `json:"valid"`
	State SessionState `json:"state"`
}

// ValidationPolicy decides what a session check reports when the backend
// itself is in trouble (5xx or unreachable). An explicit 401 that cannot be
// refreshed always fails closed regardless of policy.
type ValidationPolicy struct {
	// FailOpen reports such sessions as valid so an outage never logs users out.
	FailOpen bool
}

// DefaultValidationPolicy fails open.
func DefaultValidationPolicy() ValidationPolicy {
	return ValidationPolicy{FailOpen: true}
}

// ValidateSession asks the backend whether the stored access token is still
// accepted. It is the only path outside Logout that clears the session.
func (s *Service) ValidateSession(ctx context.Context, jar *session.Jar) SessionCheck {
	token := jar.AccessToken()
	if token == "" {
		return SessionCheck{Valid: false, State: StateNoToken}
	}

	resp, err := s.api.Send(ctx, apiclient.Request{Method: http.MethodGet, Path: apiclient.PathMe}, token)
	if err != nil {
		log.Warn().Err(err).Bool("fail_open", s.policy.FailOpen).Msg("session check: backend unreachable")
		return s.backendUnavailable()
	}
	defer apiclient.Discard(resp)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if s.api.Refresh(ctx, jar) {
			return SessionCheck{Valid: true, State: StateTokenAcceptedPlain}
		}
		if err := jar.Clear(); err != nil {
			log.Error().Err(err).Msg("session check: failed to clear rejected session")
		}
		log.Info().Msg("session check: token rejected and refresh failed, session cleared")
		return SessionCheck{Valid: false, State: StateTokenRejected}

	case resp.StatusCode >= http.StatusInternalServerError:
		log.Warn().Int("status", resp.StatusCode).Bool("fail_open", s.policy.FailOpen).Msg("session check: backend error")
		return s.backendUnavailable()

	case apiclient.IsSuccess(resp.StatusCode):
		newAccess := resp.Header.Get(HeaderNewAccessToken)
		if newAccess == "" {
			return SessionCheck{Valid: true, State: StateTokenAcceptedPlain}
		}
		if err := jar.SaveTokens(newAccess, resp.Header.Get(HeaderNewRefreshToken)); err != nil {
			log.Warn().Err(err).Msg("session check: failed to store rotated tokens")
		}
		return SessionCheck{Valid: true, State: StateTokenAcceptedWithRotation}

	default:
		log.Info().Int("status", resp.StatusCode).Msg("session check: token not accepted")
		return SessionCheck{Valid: false, State: StateTokenRejected}
	}
}

func (s *Service) backendUnavailable() SessionCheck {
	return SessionCheck{Valid: s.policy.FailOpen, State: StateBackendUnavailable}
}
