package auth

import (
	"context"
	"net/http"

	"github.com/jrsteele09/warranty-portal/apiclient"
	"github.com/jrsteele09/warranty-portal/session"
	"github.com/rs/zerolog/log"
)

// Logout tells the backend the session is over and deletes every session
// cookie. The backend call is best effort; the cookies are always removed.
// Redirecting the browser is left to the HTTP layer.
func (s *Service) Logout(ctx context.Context, jar *session.Jar) {
	if token := jar.AccessToken(); token != "" {
		resp, err := s.api.Send(ctx, apiclient.Request{Method: http.MethodPost, Path: apiclient.PathLogout}, token)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("logout: backend call failed")
		case !apiclient.IsSuccess(resp.StatusCode):
			log.Warn().Int("status", resp.StatusCode).Msg("logout: backend rejected logout")
			apiclient.Discard(resp)
		default:
			apiclient.Discard(resp)
		}
	}

	if err := jar.Clear(); err != nil {
		log.Error().Err(err).Msg("logout: failed to clear session cookies")
	}
}
