package shared

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PathID reads a UUID route parameter. A malformed id is answered with a
// field-level validation failure and ok is false.
func PathID(w http.ResponseWriter, r *http.Request, name, requestID string) (string, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if _, err := uuid.Parse(raw); err != nil {
		v := NewValidator()
		v.Add(name, "must be a valid id")
		v.Reject(w, requestID)
		return "", false
	}
	return raw, true
}

// QueryID returns an optional UUID query parameter.
func QueryID(v *Validator, r *http.Request, name string) string {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return ""
	}
	if _, err := uuid.Parse(raw); err != nil {
		v.Add(name, "must be a valid id")
		return ""
	}
	return raw
}
