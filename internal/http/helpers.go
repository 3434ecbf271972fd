package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"budget/internal/core"
	"budget/internal/log"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps domain errors to HTTP statuses. Bridge endpoints
// (the aggregator flow) report validation and upstream failures as 400 with
// the message in the body; everything else uses 422 for bad input.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, bridge bool) {
	switch {
	case core.IsValidation(err):
		status := http.StatusUnprocessableEntity
		if bridge {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
	case errors.Is(err, core.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrNoBankLink):
		writeError(w, http.StatusBadRequest, "no bank account linked")
	case core.IsUpstream(err):
		s.logger.ErrorContext(r.Context(), "Upstream error",
			log.FieldPath, r.URL.Path, log.FieldError, err)
		if bridge {
			var upstream *core.UpstreamError
			if errors.As(err, &upstream) {
				message := upstream.Message
				if message == "" {
					message = "bank service error"
				}
				writeError(w, http.StatusBadRequest, message)
				return
			}
		}
		writeError(w, http.StatusBadGateway, "upstream service unavailable")
	default:
		s.logger.ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path, log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
