package server

import (
	"encoding/json"
	"net/http"

	"github.com/inkwell-cms/auth-service/internal/autherrors"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("response encoding failed")
	}
}

// respondError translates an error chain into its taxonomy code and HTTP
// status exactly once. Causes are logged server-side and never leak to the
// client.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := autherrors.CodeOf(err)
	status := autherrors.StatusOf(err)

	event := s.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = s.logger.Error()
	}
	event.Err(err).Str("path", r.URL.Path).Str("code", string(code)).Msg("request failed")

	s.respondJSON(w, status, errorBody{
		Error:   string(code),
		Message: autherrors.New(code).Message,
	})
}
