package server

import "net/http"

func (s *Server) initRoutes() {
	// Auth endpoints
	s.RegisterRouteHandler("POST "+RouteAuthLogin, s.withGate(s.LoginHandler()))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, s.withGate(s.RefreshHandler()))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, s.withGate(s.LogoutHandler()))

	// OAuth provider login
	s.RegisterRouteHandler("GET "+RouteOAuthLogin, s.withGate(s.OAuthLoginHandler()))
	s.RegisterRouteHandler("GET "+RouteOAuthCallback, s.withGate(s.OAuthCallbackHandler()))

	// Admin surface (requires an admin access token on top of the gate)
	s.RegisterRouteHandler("GET "+RouteAdminSessions, s.withGate(s.RequireRole("admin", s.AdminSessionsHandler())))
	s.RegisterRouteHandler("POST "+RouteAdminSessionTerminate, s.withGate(s.RequireRole("admin", s.AdminTerminateHandler())))
	s.RegisterRouteHandler("DELETE "+RouteAdminSession, s.withGate(s.RequireRole("admin", s.AdminDeleteHandler())))
	s.RegisterRouteHandler("GET "+RouteAdminLoginHistory, s.withGate(s.RequireRole("admin", s.AdminLoginHistoryHandler())))

	// Operational endpoints bypass the gate's cookie machinery but keep
	// logging and recovery.
	s.RegisterRouteFunc("GET "+RouteHealthz, ChainMiddleware(s.HealthzHandler(), s.LoggingMiddleware, s.RecoverMiddleware))
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
}

// withGate applies the full request gate in its required order: logging,
// recovery, metrics, device cookie, security headers, locale cookie, rate
// limiting, and the protected-route presence check.
func (s *Server) withGate(handler http.HandlerFunc) http.HandlerFunc {
	return ChainMiddleware(handler,
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.MetricsMiddleware,
		s.DeviceCookieMiddleware,
		s.SecurityHeadersMiddleware,
		s.LocaleCookieMiddleware,
		s.RateLimitMiddleware,
		s.ProtectedRouteMiddleware,
	)
}
