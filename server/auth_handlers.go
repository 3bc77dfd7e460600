package server

import (
	"encoding/json"
	"net/http"

	"github.com/inkwell-cms/auth-service/auth"
	"github.com/inkwell-cms/auth-service/internal/autherrors"
	"github.com/inkwell-cms/auth-service/users"
)

type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Fingerprint string `json:"fingerprint"`
	DeviceInfo  string `json:"deviceInfo,omitempty"`
}

type loginResponse struct {
	User         *users.User `json:"user"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	SessionID    string      `json:"sessionId"`
	Fingerprint  string      `json:"fingerprint"`
}

// LoginHandler serves POST /auth/login: password verification, session
// creation and dual-token issuance. Cookies and the Authorization header
// carry the credentials back alongside the JSON body.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, autherrors.New(autherrors.CodeInvalidType))
			return
		}

		result, err := s.auth.Login(r.Context(), auth.LoginParams{
			Email:       req.Email,
			Password:    req.Password,
			Fingerprint: req.Fingerprint,
			Client: auth.ClientInfo{
				IPAddress:  clientIP(r),
				UserAgent:  r.UserAgent(),
				DeviceInfo: req.DeviceInfo,
			},
		})
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		s.setAuthCookies(w, result.RefreshToken, result.Fingerprint, s.config.GetSessionExpiry())
		w.Header().Set("Authorization", "Bearer "+result.AccessToken)
		s.respondJSON(w, http.StatusOK, loginResponse{
			User:         result.User,
			Token:        result.AccessToken,
			RefreshToken: result.RefreshToken,
			SessionID:    result.SessionID,
			Fingerprint:  result.Fingerprint,
		})
	}
}

type refreshRequest struct {
	Type string `json:"type"`
}

type refreshResponse struct {
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// RefreshHandler serves POST /auth/refresh. One endpoint multiplexes two
// operations behind the "type" discriminator for wire compatibility:
// "refresh" re-validates the session read-only, "token" performs the full
// rotation. Both take the refresh token and fingerprint from their
// cookies, never from the body.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, autherrors.New(autherrors.CodeInvalidType))
			return
		}

		refreshCookie := cookieValue(r, CookieRefreshToken)
		fingerprint := cookieValue(r, CookieFingerprint)

		switch req.Type {
		case "refresh":
			result, err := s.auth.ValidateSession(r.Context(), auth.ValidateParams{
				RefreshCookie:     refreshCookie,
				FingerprintCookie: fingerprint,
				AccessToken:       bearerToken(r),
				IPAddress:         clientIP(r),
			})
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			s.respondJSON(w, http.StatusOK, refreshResponse{RefreshToken: result.RefreshToken})

		case "token":
			result, err := s.auth.RotateSession(r.Context(), auth.RotateParams{
				RefreshCookie:     refreshCookie,
				FingerprintCookie: fingerprint,
			})
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			s.setAuthCookies(w, result.RefreshToken, fingerprint, s.config.GetSessionExtension())
			w.Header().Set("Authorization", "Bearer "+result.AccessToken)
			s.respondJSON(w, http.StatusOK, refreshResponse{
				Token:        result.AccessToken,
				RefreshToken: result.RefreshToken,
			})

		default:
			s.respondError(w, r, autherrors.New(autherrors.CodeInvalidType))
		}
	}
}

// LogoutHandler serves POST /auth/logout. Always reports success,
// idempotently, whether or not a session still held the cookie's token.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.auth.Logout(r.Context(), cookieValue(r, CookieRefreshToken))
		s.clearAuthCookies(w)
		s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// HealthzHandler reports liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
