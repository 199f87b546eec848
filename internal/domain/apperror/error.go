package apperror

import (
	"errors"
	"time"
)

type Code string

const (
	CodeValidation          Code = "VALIDATION"
	CodeStateConflict       Code = "STATE_CONFLICT"
	CodeDeadlinePassed      Code = "DEADLINE_PASSED"
	CodeForbidden           Code = "FORBIDDEN"
	CodeNotFound            Code = "NOT_FOUND"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeInternal            Code = "INTERNAL"
)

// Error is the structured failure returned by every workflow operation.
// Details carries whatever a caller needs to render a precise message
// (current status, allowed statuses, the offending deadline).
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// With returns a copy of e with key set in Details.
func (e *Error) With(key string, value any) *Error {
	out := &Error{Code: e.Code, Message: e.Message, Err: e.Err, Details: make(map[string]any, len(e.Details)+1)}
	for k, v := range e.Details {
		out.Details[k] = v
	}
	out.Details[key] = value
	return out
}

func Validation(message string) *Error {
	return New(CodeValidation, message)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

func Forbidden(message string) *Error {
	return New(CodeForbidden, message)
}

func Upstream(message string, err error) *Error {
	return Wrap(CodeUpstreamUnavailable, message, err)
}

// StateConflict reports an illegal transition along with the status the
// record is in and the statuses the operation would have accepted.
func StateConflict(message, current string, allowed ...string) *Error {
	if allowed == nil {
		allowed = []string{}
	}
	return &Error{
		Code:    CodeStateConflict,
		Message: message,
		Details: map[string]any{"currentStatus": current, "allowedStatuses": allowed},
	}
}

func DeadlinePassed(message string, deadline time.Time) *Error {
	return &Error{
		Code:    CodeDeadlinePassed,
		Message: message,
		Details: map[string]any{"deadline": deadline.Format("2006-01-02")},
	}
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

func DetailsOf(err error) map[string]any {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}

func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
