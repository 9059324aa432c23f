// Package respond writes JSON responses and maps domain errors to
// HTTP statuses.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/skillloop/skillloop-server/internal/model"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes data with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// WriteError writes a standardized error body for the status code.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Code:    statusCode,
		Message: message,
	})
}

// WriteDomainError maps model sentinel errors to HTTP statuses.
// Unrecognized errors become 500 without leaking internals.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrInvalidArgument):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrOutOfStock):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrConflict):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrUnauthenticated):
		WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, model.ErrPermissionDenied):
		WriteError(w, http.StatusForbidden, err.Error())
	default:
		log.Error().Stack().Err(err).Msg("internal error")
		WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
