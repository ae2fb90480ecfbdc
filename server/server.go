package server

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/netip"
	"strings"

	"github.com/jrsteele09/warranty-portal/auth"
	"github.com/jrsteele09/warranty-portal/internal/config"
	"github.com/jrsteele09/warranty-portal/session"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env       string // Environment (e.g., "DEV", "PRODUCTION")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	auth      *auth.Service
	limiter   *loginLimiter
	proxies   []netip.Prefix // Peers whose forwarding headers are believed
	templates map[string]*template.Template
}

func New(config config.Config, authService *auth.Service) (*Server, error) {
	if authService == nil {
		return nil, errors.New("[Server New] auth service is required")
	}

	templates, err := parsePageTemplates()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	s := &Server{
		env:       config.GetEnv(),
		mux:       http.NewServeMux(),
		config:    config,
		auth:      authService,
		limiter:   newLoginLimiter(config.GetLoginRequestsPerMinute(), config.GetLoginBurst()),
		proxies:   config.GetTrustedProxies(),
		templates: templates,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// jar is the session view for one request. Writes go out as Set-Cookie
// headers on w and are visible to later reads in the same request, so the
// jar opened by RequireSession is reused by the handler behind it.
func (s *Server) jar(w http.ResponseWriter, r *http.Request) *session.Jar {
	if jar, ok := r.Context().Value(ContextKeyJar).(*session.Jar); ok {
		return jar
	}
	return session.NewJar(session.NewCookieStore(w, r, s.config.GetCookieSecure()), s.config)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Info().Msgf("[%s] %s", color+paddedMethod+ResetColor, path)
}
