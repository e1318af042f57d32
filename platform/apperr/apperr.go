// Package apperr provides the domain error taxonomy of the application.
// Services return these typed errors and the HTTP layer maps them to
// status codes in exactly one place (httpkit.HandleError).
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindInternal indicates an unexpected failure. It is the zero value so
	// that an Error built without a kind never leaks as a client error.
	KindInternal Kind = iota
	// KindValidation indicates malformed input or a violated constraint.
	KindValidation
	// KindNotFound indicates the requested entity does not exist.
	KindNotFound
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInternal:
		return "internal"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Status  int    // Overrides the kind's default status when non-zero (e.g. 409)
	Op      string // Operation that failed (optional)
	Err     error  // Underlying error (optional, never sent to clients)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp sets the operation that failed and returns the error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// Validation creates a 400 validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// ValidationWithStatus creates a validation error carrying a caller
// specified status, used for storage constraint violations such as 409.
func ValidationWithStatus(message string, status int) *Error {
	return &Error{Kind: KindValidation, Message: message, Status: status}
}

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// GetKind extracts the error kind from an error.
// Errors outside the taxonomy are reported as KindInternal.
func GetKind(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	_, ok := AsError(err)
	return ok && GetKind(err) == kind
}
