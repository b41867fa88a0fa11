// Package apperr defines the error kinds returned to callers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable, machine-readable error category.
type Kind string

// Error kinds.
const (
	KindUnauthorized Kind = "Unauthorized"
	KindForbidden    Kind = "Forbidden"
	KindNotFound     Kind = "NotFound"
	KindValidation   Kind = "ValidationFailure"
	KindServer       Kind = "ServerError"
)

// Error is a user-visible failure. Detail is safe to show to callers; Err
// is the internal cause and is only logged.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unauthorized reports a missing or failed identity check.
func Unauthorized(detail string) error {
	return &Error{Kind: KindUnauthorized, Detail: detail}
}

// Forbidden reports an authenticated caller without the required role.
func Forbidden(detail string) error {
	return &Error{Kind: KindForbidden, Detail: detail}
}

// NotFound reports an id or name lookup miss.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf(format, args...)}
}

// Validation reports a malformed request.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

// Server wraps an unexpected dependency failure. The cause is kept for
// logging but never shown to the caller.
func Server(detail string, err error) error {
	return &Error{Kind: KindServer, Detail: detail, Err: err}
}

// KindOf returns the kind of err. Errors that are not *Error are server errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

// DetailOf returns the caller-safe detail of err.
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return "internal error"
}

// Status maps an error kind to an HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
