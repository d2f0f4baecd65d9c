// Package apperr defines the error-kind taxonomy shared by every layer of
// the ingestion and query engine, and maps each kind to an HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for propagation and HTTP-status mapping.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindAuth        Kind = "auth"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindProvider    Kind = "provider"
	KindBudget      Kind = "budget_exceeded"
	KindCancelled   Kind = "cancelled"
	KindConsistency Kind = "consistency"
)

// Error is the single error type used across the module. Callers switch on
// Kind rather than on the wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode maps the error kind to the HTTP status the API layer returns.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindProvider:
		return http.StatusServiceUnavailable
	case KindBudget:
		return http.StatusOK // budget-exceeded is a partial result, not a failure
	case KindCancelled:
		return http.StatusConflict
	case KindConsistency:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func newf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...any) *Error { return newf(KindValidation, nil, format, args...) }
func Auth(format string, args ...any) *Error        { return newf(KindAuth, nil, format, args...) }
func NotFound(format string, args ...any) *Error    { return newf(KindNotFound, nil, format, args...) }
func Conflict(format string, args ...any) *Error    { return newf(KindConflict, nil, format, args...) }
func Cancelled(format string, args ...any) *Error   { return newf(KindCancelled, nil, format, args...) }

func Provider(err error, format string, args ...any) *Error {
	return newf(KindProvider, err, format, args...)
}

func Budget(format string, args ...any) *Error { return newf(KindBudget, nil, format, args...) }

func Consistency(err error, format string, args ...any) *Error {
	return newf(KindConsistency, err, format, args...)
}

// Is reports whether err (or something it wraps) is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to empty when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
