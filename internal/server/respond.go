package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"fetcharr/internal/downloads"
	"fetcharr/internal/utils/logging"
)

// statusFor maps controller errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, downloads.ErrInvalidParameters),
		errors.Is(err, downloads.ErrMetadataUnavailable):
		return http.StatusBadRequest
	case errors.Is(err, downloads.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a JSON error body.
func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logging.E("Request failed: %v", err)
	} else {
		logging.D(1, "Request rejected (%d): %v", code, err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.E("Failed to encode JSON response: %v", err)
	}
}
