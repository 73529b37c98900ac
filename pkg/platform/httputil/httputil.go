// Package httputil writes JSON responses and maps errors to HTTP statuses.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"catastro/pkg/platform/sentinel"
)

// Error codes written in the "error" field.
const (
	CodeBadRequest  = "bad_request"
	CodeNotFound    = "not_found"
	CodeUnavailable = "service_unavailable"
	CodeUpstream    = "upstream_error"
	CodeInternal    = "internal_error"
)

// Error is an error with a client-facing code and status.
type Error struct {
	Code    string
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// BadRequest reports invalid client input.
func BadRequest(message string) *Error {
	return &Error{Code: CodeBadRequest, Status: http.StatusBadRequest, Message: message}
}

// Internal wraps an unexpected failure. Its message is never written.
func Internal(message string, cause error) *Error {
	return &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: message, Cause: cause}
}

// WriteJSON writes v with status. Encoding errors are ignored; the header is
// already sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status and writes {"error", "error_description"}.
// Internal errors omit the description.
func WriteError(w http.ResponseWriter, err error) {
	e := toError(err)
	body := map[string]string{"error": e.Code}
	if e.Code != CodeInternal && e.Message != "" {
		body["error_description"] = e.Message
	}
	WriteJSON(w, e.Status, body)
}

func toError(err error) *Error {
	var e *Error
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, sentinel.ErrNotFound):
		return &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: err.Error()}
	case errors.Is(err, sentinel.ErrUnavailable):
		return &Error{Code: CodeUnavailable, Status: http.StatusServiceUnavailable, Message: err.Error()}
	default:
		return Internal("internal error", err)
	}
}
