package server

import (
	"net/http"
	"strings"

	"github.com/inkwell-cms/auth-service/auth"
	"github.com/inkwell-cms/auth-service/internal/config"
	"github.com/inkwell-cms/auth-service/ratelimit"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Deps bundles the constructed collaborators the Server routes requests to.
type Deps struct {
	Auth      *auth.Service
	Limiter   *ratelimit.Limiter
	Logger    zerolog.Logger
	Providers map[string]*OIDCProvider
}

type Server struct {
	env       string // Environment (e.g., "DEV", "production")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	auth      *auth.Service
	limiter   *ratelimit.Limiter
	logger    zerolog.Logger
	metrics   *requestMetrics
	providers map[string]*OIDCProvider

	// Route prefixes gated on refresh-cookie presence, minus the public
	// allow-list. Validation proper happens in the handlers.
	protectedPrefixes []string
	publicPaths       map[string]struct{}
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Auth == nil {
		return nil, errors.New("[server.New] auth service is required")
	}
	if deps.Limiter == nil {
		return nil, errors.New("[server.New] rate limiter is required")
	}

	s := &Server{
		mux:       http.NewServeMux(),
		config:    cfg,
		auth:      deps.Auth,
		limiter:   deps.Limiter,
		logger:    deps.Logger,
		metrics:   newRequestMetrics(),
		providers: deps.Providers,
		env:       cfg.GetEnv(),
		protectedPrefixes: []string{
			"/admin/",
			"/api/",
		},
		publicPaths: map[string]struct{}{
			RouteAuthLogin: {},
			RouteHealthz:   {},
			RouteMetrics:   {},
			RouteLogin:     {},
		},
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

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.logger.Info().Str("method", parts[0]).Str("path", parts[1]).Msg("route")
		} else {
			s.logger.Info().Str("path", parts[0]).Msg("route")
		}
	}
}
