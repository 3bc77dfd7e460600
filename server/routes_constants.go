package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes
	RouteAuthLogin   = "/auth/login"
	RouteAuthRefresh = "/auth/refresh"
	RouteAuthLogout  = "/auth/logout"

	// OAuth provider login
	RouteOAuthLogin    = "/auth/oauth/{provider}"
	RouteOAuthCallback = "/auth/oauth/{provider}/callback"

	// Admin Routes (session collaborator surface)
	RouteAdminSessions         = "/admin/sessions"
	RouteAdminSessionTerminate = "/admin/sessions/{id}/terminate"
	RouteAdminSession          = "/admin/sessions/{id}"
	RouteAdminLoginHistory     = "/admin/users/{id}/history"

	// Operational Routes
	RouteHealthz = "/healthz"
	RouteMetrics = "/metrics"

	// Browser login page; the unauthenticated redirect target
	RouteLogin = "/login"
)

// Cookie names
const (
	CookieRefreshToken = "token"  // HttpOnly refresh credential
	CookieFingerprint  = "fp"     // HttpOnly client fingerprint
	CookieDevice       = "did"    // anonymized device-tracking id
	CookieLocale       = "locale" // locale hint from the geo header
	CookieOAuthState   = "oauth_state"
)
