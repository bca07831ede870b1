package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mveit/entente/internal/service"
	"github.com/mveit/entente/pkg/engine"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service and engine errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrGameNotFound), errors.Is(err, service.ErrMapNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, service.ErrNotInGame):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case errors.Is(err, service.ErrGameOver):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		switch engErr.Kind {
		case engine.InvalidSubmission, engine.InvalidState:
			writeError(w, http.StatusBadRequest, engErr.Message)
		case engine.NotFound:
			writeError(w, http.StatusNotFound, engErr.Message)
		case engine.PermissionDenied:
			writeError(w, http.StatusForbidden, engErr.Message)
		default:
			log.Error().Err(err).Msg("Engine failure")
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	log.Error().Err(err).Msg("Unhandled service error")
	writeError(w, http.StatusInternalServerError, "internal error")
}

// decodeJSON reads and decodes JSON from a request body.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
