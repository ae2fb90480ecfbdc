package server

import (
	"net/http"

	"github.com/jrsteele09/warranty-portal/users"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex+"{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageUIHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare(s.LoginRateLimit)...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// Polled by pages to detect expired sessions
	s.RegisterRouteHandler("GET "+RouteAuthSession, ChainMiddleware(s.SessionCheckHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteAuthSession, ChainMiddleware(s.SessionCheckHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteChangePassword, ChainMiddleware(s.ChangePasswordGetHandler(), s.HTMLMiddleWare(s.RequireSession())...))
	s.RegisterRouteHandler("POST "+RouteChangePassword, ChainMiddleware(s.ChangePasswordPostHandler(), s.HTMLMiddleWare(s.RequireSession())...))

	s.RegisterRouteHandler("GET "+RouteProfile, ChainMiddleware(s.ProfileGetHandler(), s.HTMLMiddleWare(s.RequireSession())...))
	s.RegisterRouteHandler("POST "+RouteProfile, ChainMiddleware(s.ProfilePostHandler(), s.HTMLMiddleWare(s.RequireSession())...))
	s.RegisterRouteHandler("POST "+RouteProfileLogo, ChainMiddleware(s.ProfileLogoHandler(), s.HTMLMiddleWare(s.RequireSession())...))

	// Role portals. Role checks here only pick the page; the backend enforces access.
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.DashboardRedirectHandler(), s.HTMLMiddleWare(s.RequireSession())...))
	s.RegisterRouteHandler("GET "+RouteSuperAdmin, ChainMiddleware(s.DashboardHandler(users.RoleSuperAdmin), s.HTMLMiddleWare(s.RequireSession(), s.RequireRole(users.RoleSuperAdmin))...))
	s.RegisterRouteHandler("GET "+RouteDealer, ChainMiddleware(s.DashboardHandler(users.RoleDealer), s.HTMLMiddleWare(s.RequireSession(), s.RequireRole(users.RoleDealer))...))
	s.RegisterRouteHandler("GET "+RouteCustomer, ChainMiddleware(s.DashboardHandler(users.RoleCustomer), s.HTMLMiddleWare(s.RequireSession(), s.RequireRole(users.RoleCustomer))...))

	s.RegisterRouteHandler("GET "+RouteStaticCSS, ChainMiddleware(s.serveFileHandler(), s.CacheMiddleware))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := StreamFile(w, r, "css/"+r.PathValue("file")); err != nil {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
		}
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
