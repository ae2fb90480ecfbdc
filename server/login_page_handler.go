package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	pageData
	Email string // Preserve email on error
}

// IndexHandler sends signed-in users to their dashboard and everyone else
// to the login page.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.jar(w, r).IsAuthenticated() {
			redirectSuccess(w, r, RouteDashboard)
			return
		}
		redirectSuccess(w, r, RouteLogin)
	}
}

// LoginPageUIHandler displays the login page (GET /login)
func (s *Server) LoginPageUIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := LoginPageData{
			pageData: s.newPageData(r, "Sign in"),
			Email:    r.URL.Query().Get("email"),
		}
		data.Error = r.URL.Query().Get("error")
		data.Message = r.URL.Query().Get("message")
		s.render(w, r, "login.html", data)
	}
}

// LoginSubmissionHandler processes the login form submission
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, RouteLogin, "Invalid form data")
			return
		}
		email := r.PostFormValue("email")
		password := r.PostFormValue("password")

		result := s.auth.Login(r.Context(), s.jar(w, r), email, password)
		if !result.Status {
			redirectWithError(w, r, RouteLogin, result.Message, "email", email)
			return
		}

		log.Ctx(r.Context()).Info().Str("role", string(result.Role)).Msg("user signed in")
		if result.MustChangePassword {
			redirectSuccess(w, r, RouteChangePassword)
			return
		}
		redirectSuccess(w, r, dashboardFor(result.Role))
	}
}

// LogoutHandler ends the session and always lands on the login page.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.auth.Logout(r.Context(), s.jar(w, r))
		redirectSuccess(w, r, RouteLogin)
	}
}

// SessionCheckHandler reports whether the session is still valid, rotating
// or clearing cookies as the validator decides.
func (s *Server) SessionCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		check := s.auth.ValidateSession(r.Context(), s.jar(w, r))
		writeJSON(w, r, http.StatusOK, check)
	}
}
