package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable machine-readable business codes, returned alongside the HTTP
// status in every error envelope.
const (
	CodeInvalidParam = 40001
	CodeAuth         = 40101
	CodeForbidden    = 40301
	CodeNotFound     = 40401
	CodeServerErr    = 50001
	CodeExternal     = 50201
)

// Error is a business error with a stable code. The core packages
// return these; handlers translate them into the response envelope.
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation rejects malformed or out-of-range input before any mutation.
func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidParam, Message: fmt.Sprintf(format, args...)}
}

// Forbidden rejects callers that neither own the resource nor are admin.
func Forbidden(format string, args ...any) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// NotFound marks an absent or soft-deleted resource.
func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// External wraps an upstream fetch failure (rate/price refresh).
func External(err error, format string, args ...any) *Error {
	return &Error{Code: CodeExternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// Internal wraps an unexpected data-access failure.
func Internal(err error, format string, args ...any) *Error {
	return &Error{Code: CodeServerErr, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the business code, defaulting to CodeServerErr.
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeServerErr
}

// HTTPStatus maps a business code onto the transport status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeAuth:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// MessageOf returns the user-facing message, hiding internals for
// unexpected errors.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
