// Package apierror defines the error taxonomy for the API and the JSON
// envelopes returned to clients. Services return *apierror.Error values;
// handlers map the Kind to an HTTP status with StatusOf.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain error for HTTP mapping.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInvalidState Kind = "invalid_state"
	KindInternal     Kind = "internal"
)

// Error is the canonical domain error. The Kind is internal routing
// information and never serialized.
type Error struct {
	Kind   Kind   `json:"-"`
	Detail string `json:"detail"`
}

func (e *Error) Error() string { return e.Detail }

func Validation(detail string) *Error {
	return &Error{Kind: KindValidation, Detail: detail}
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

func NotFound(detail string) *Error {
	return &Error{Kind: KindNotFound, Detail: detail}
}

func Conflict(detail string) *Error {
	return &Error{Kind: KindConflict, Detail: detail}
}

func InvalidState(detail string) *Error {
	return &Error{Kind: KindInvalidState, Detail: detail}
}

func Internal(detail string) *Error {
	return &Error{Kind: KindInternal, Detail: detail}
}

// StatusOf resolves the HTTP status for any error. Unclassified errors
// are treated as internal.
func StatusOf(err error) int {
	var ae *Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalidState:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == k
}

// APIError is the plain JSON error envelope.
type APIError struct {
	Detail string `json:"detail"`
}

func New(detail string) *APIError { return &APIError{Detail: detail} }

// ValidationError carries per-field messages from request binding.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}
