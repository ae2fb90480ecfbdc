package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/warranty-portal/users"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUser stores the cached profile of the signed-in user
	ContextKeyUser ContextKey = "user"
	// ContextKeyRole stores the role from the userRole cookie
	ContextKeyRole ContextKey = "role"
	// ContextKeyJar stores the request's session jar
	ContextKeyJar ContextKey = "jar"
)

const msgSessionExpired = "Session expired"

// RequireSession gates page routes on the session validator. An invalid
// session redirects to the login page; a pending password change redirects
// to the change-password page.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			jar := s.jar(w, r)
			check := s.auth.ValidateSession(r.Context(), jar)
			if !check.Valid {
				log.Ctx(r.Context()).Debug().Stringer("state", check.State).Msg("session rejected")
				redirectWithError(w, r, RouteLogin, msgSessionExpired)
				return
			}

			if jar.MustChangePassword() && r.URL.Path != RouteChangePassword {
				redirectSuccess(w, r, RouteChangePassword)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyJar, jar)
			ctx = context.WithValue(ctx, ContextKeyRole, jar.Role())
			if u, ok := jar.User(); ok {
				ctx = context.WithValue(ctx, ContextKeyUser, u)
			}
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireRole sends users to their own portal when they open another one.
// It is navigation only; the backend authorizes every data call.
func (s *Server) RequireRole(role users.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if current := roleFromContext(r.Context()); current != role {
				redirectSuccess(w, r, dashboardFor(current))
				return
			}
			next(w, r)
		}
	}
}

func userFromContext(ctx context.Context) *users.User {
	u, _ := ctx.Value(ContextKeyUser).(*users.User)
	return u
}

func roleFromContext(ctx context.Context) users.Role {
	role, _ := ctx.Value(ContextKeyRole).(users.Role)
	return role
}
