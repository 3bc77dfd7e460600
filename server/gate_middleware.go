package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/inkwell-cms/auth-service/internal/autherrors"
)

// nonBrowserMarkers identifies callers that should not receive tracking
// cookies. Heuristic only; a disguised client just gets a harmless cookie.
var nonBrowserMarkers = []string{
	"bot", "crawler", "spider", "curl", "wget", "python", "go-http-client", "postman",
}

func isBrowser(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	if !strings.Contains(ua, "mozilla") {
		return false
	}
	for _, marker := range nonBrowserMarkers {
		if strings.Contains(ua, marker) {
			return false
		}
	}
	return true
}

// DeviceCookieMiddleware attaches an anonymized device-tracking cookie the
// first time a browser client is seen. Non-browser callers are skipped.
func (s *Server) DeviceCookieMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if isBrowser(r.UserAgent()) {
			if _, err := r.Cookie(CookieDevice); err != nil {
				http.SetCookie(w, &http.Cookie{
					Name:     CookieDevice,
					Value:    uuid.New().String(),
					Path:     "/",
					MaxAge:   int((365 * 24 * 60 * 60)),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
		}
		next(w, r)
	}
}

// LocaleCookieMiddleware sets a locale cookie from the geo country header
// on first visit. Absent header means no cookie; handlers fall back to a
// default locale.
func (s *Server) LocaleCookieMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(CookieLocale); err != nil {
			if country := r.Header.Get("CF-IPCountry"); country != "" && country != "XX" {
				http.SetCookie(w, &http.Cookie{
					Name:     CookieLocale,
					Value:    strings.ToLower(country),
					Path:     "/",
					MaxAge:   int((30 * 24 * 60 * 60)),
					SameSite: http.SameSiteLaxMode,
				})
			}
		}
		next(w, r)
	}
}

// RateLimitMiddleware applies the per-(IP, route) sliding window before
// any further processing.
func (s *Server) RateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientIP(r), r.URL.Path) {
			s.respondError(w, r, autherrors.New(autherrors.CodeRateLimited))
			return
		}
		next(w, r)
	}
}

// ProtectedRouteMiddleware requires the mere presence of the refresh-token
// cookie on protected prefixes that are not on the public allow-list.
// Cryptographic validation is the handlers' job; this is only the front
// door. Browser navigations are redirected to the login page, API paths
// get a 401.
func (s *Server) ProtectedRouteMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.isProtected(r.URL.Path) {
			next(w, r)
			return
		}

		if _, err := r.Cookie(CookieRefreshToken); err != nil {
			if wantsJSON(r) {
				s.respondError(w, r, autherrors.New(autherrors.CodeTokenDenied))
				return
			}
			http.Redirect(w, r, RouteLogin, http.StatusFound)
			return
		}

		next(w, r)
	}
}

func (s *Server) isProtected(path string) bool {
	if _, ok := s.publicPaths[path]; ok {
		return false
	}
	for _, prefix := range s.protectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/admin/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// RequireRole verifies the bearer access token and requires the given
// role among the payload's role IDs.
func (s *Server) RequireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := s.auth.VerifyAccessToken(bearerToken(r))
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		for _, have := range payload.Roles {
			if have == role {
				next(w, r)
				return
			}
		}
		s.respondError(w, r, autherrors.New(autherrors.CodeForbidden))
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
