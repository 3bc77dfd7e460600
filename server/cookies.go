package server

import (
	"net/http"
	"time"
)

// setAuthCookies installs the refresh-token and fingerprint cookies. Both
// are HttpOnly: the fingerprint travels on its own channel, never readable
// by page scripts, so a leaked access token alone cannot reproduce it.
func (s *Server) setAuthCookies(w http.ResponseWriter, refreshToken, fingerprint string, lifetime time.Duration) {
	secure := s.env != "DEV"
	maxAge := int(lifetime.Seconds())

	http.SetCookie(w, &http.Cookie{
		Name:     CookieRefreshToken,
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CookieFingerprint,
		Value:    fingerprint,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{CookieRefreshToken, CookieFingerprint} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
