package server

import (
	"net/http"
	"strconv"

	"github.com/inkwell-cms/auth-service/internal/autherrors"
)

// AdminSessionsHandler serves GET /admin/sessions?user_id=. Sessions are
// scoped per user; an empty user_id is a caller error, not an invitation
// to list the whole store.
func (s *Server) AdminSessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			s.respondError(w, r, autherrors.New(autherrors.CodeInvalidType))
			return
		}

		list, err := s.auth.ListSessions(r.Context(), userID)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]any{"sessions": list})
	}
}

// AdminTerminateHandler serves POST /admin/sessions/{id}/terminate. A
// terminated session stays in the store for audit; only its active flag
// drops. Terminating an unknown session succeeds.
func (s *Server) AdminTerminateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.TerminateSession(r.Context(), r.PathValue("id")); err != nil {
			s.respondError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// AdminDeleteHandler serves DELETE /admin/sessions/{id}, removing the
// record entirely.
func (s *Server) AdminDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
			s.respondError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// AdminLoginHistoryHandler serves GET /admin/users/{id}/history?limit=.
func (s *Server) AdminLoginHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				s.respondError(w, r, autherrors.New(autherrors.CodeInvalidType))
				return
			}
			limit = n
		}

		entries, err := s.auth.LoginHistory(r.Context(), r.PathValue("id"), limit)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]any{"history": entries})
	}
}
