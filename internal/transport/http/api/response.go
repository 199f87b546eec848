package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"appraisal/internal/domain/apperror"
)

type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err)
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]any, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message, Details: details}, RequestID: requestID})
}

// StatusFor maps a workflow error code to its HTTP status.
func StatusFor(code apperror.Code) int {
	switch code {
	case apperror.CodeValidation:
		return http.StatusBadRequest
	case apperror.CodeForbidden:
		return http.StatusForbidden
	case apperror.CodeNotFound:
		return http.StatusNotFound
	case apperror.CodeStateConflict:
		return http.StatusConflict
	case apperror.CodeDeadlinePassed:
		return http.StatusUnprocessableEntity
	case apperror.CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FailError writes err using its apperror code and details. Errors without
// a code are logged and reported as a generic internal failure.
func FailError(w http.ResponseWriter, err error, requestID string) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) || appErr.Code == apperror.CodeInternal {
		slog.Error("request failed", "err", err, "requestId", requestID)
		Fail(w, http.StatusInternalServerError, string(apperror.CodeInternal), "internal error", requestID)
		return
	}
	if appErr.Code == apperror.CodeUpstreamUnavailable {
		slog.Warn("upstream unavailable", "err", err, "requestId", requestID)
	}
	FailWithDetails(w, StatusFor(appErr.Code), string(appErr.Code), appErr.Message, appErr.Details, requestID)
}
