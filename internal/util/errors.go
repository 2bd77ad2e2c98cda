// Package util provides shared utility types for the ingestion gateway.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrNotFound.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., ClientError, StateError). Each type
//     implements Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
//
// Validation components return errors instead of writing HTTP responses;
// the request handler is the single place where error categories are
// mapped to outward status codes via StatusCode.
package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Common sentinel errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDisabled     = errors.New("disabled")
)

// ClientError represents a failure caused by the caller. It carries the
// HTTP status code that should be reported outward. Client errors are
// never retried by the gateway.
type ClientError struct {
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("client error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("client error %d", e.Code)
}

// Unwrap returns the underlying error.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ClientError) Is(target error) bool {
	var ce *ClientError
	if errors.As(target, &ce) {
		return ce.Code == 0 || ce.Code == e.Code
	}
	return errors.Is(e.Cause, target)
}

// NewClientError creates a ClientError with the given status code.
func NewClientError(code int, message string) *ClientError {
	return &ClientError{Code: code, Message: message}
}

// NewBadRequest creates a ClientError with status 400.
func NewBadRequest(message string) *ClientError {
	return &ClientError{Code: http.StatusBadRequest, Message: message}
}

// NewBadRequestWithCause creates a ClientError with status 400 wrapping a cause.
func NewBadRequestWithCause(message string, cause error) *ClientError {
	return &ClientError{Code: http.StatusBadRequest, Message: message, Cause: cause}
}

// NewUnauthorized creates a ClientError with status 401.
func NewUnauthorized(message string) *ClientError {
	return &ClientError{Code: http.StatusUnauthorized, Message: message}
}

// NewNotFound creates a ClientError with status 404.
func NewNotFound(message string) *ClientError {
	return &ClientError{Code: http.StatusNotFound, Message: message}
}

// StateError represents a policy or invariant violation on a credential
// or tenant record. It is surfaced to the caller of a validation
// function as a failed result and is never logged as unexpected.
type StateError struct {
	Message string
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return e.Message
}

// Is checks if the error matches the target.
func (e *StateError) Is(target error) bool {
	var se *StateError
	return errors.As(target, &se)
}

// NewStateError creates a new StateError.
func NewStateError(message string) *StateError {
	return &StateError{Message: message}
}

// NewStateErrorf creates a new StateError with a formatted message.
func NewStateErrorf(format string, args ...any) *StateError {
	return &StateError{Message: fmt.Sprintf(format, args...)}
}

// StatusCode maps an error to the HTTP status code that should be
// reported to the caller. Client errors keep their embedded code, state
// errors are the caller's fault, everything else is a server error.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Code
	}
	var se *StateError
	if errors.As(err, &se) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDisabled) {
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// IsClientError reports whether the error is caller-caused.
func IsClientError(err error) bool {
	code := StatusCode(err)
	return code >= 400 && code < 500
}
