package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"appraisal/internal/transport/http/api"
)

// DecodeJSON reads a single JSON object into dst, rejecting unknown fields.
// It writes the failure response itself and reports whether decoding
// succeeded. An empty body decodes to the zero value when allowEmpty is set.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool, requestID string) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil {
		return true
	}
	if allowEmpty && errors.Is(err, io.EOF) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
		return false
	}
	api.FailWithDetails(w, http.StatusBadRequest, "invalid_json", "invalid request body", map[string]any{"error": err.Error()}, requestID)
	return false
}
