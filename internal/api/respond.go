package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kgraph/kgraph/internal/apperr"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError maps err to an HTTP status via apperr.Error.StatusCode()
// when err carries one, defaulting to 500 for anything else.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var ae *apperr.Error
	if errors.As(err, &ae) {
		status = ae.StatusCode()
	}
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperr.Validation("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}
