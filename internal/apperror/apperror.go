// Package apperror defines the error kinds every layer of the service speaks.
//
// Repositories and services return an *AppError wrapping one of the sentinel
// errors below. The HTTP layer inspects the chain with errors.Is and maps the
// kind to a status code exactly once (see handler/response.go).
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUpstream           = errors.New("upstream failure")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports that a uniquely keyed record already exists.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated means no usable identity accompanied the request.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// InvalidCredentials is returned by login for an unknown email and for a
// wrong password alike, so callers cannot tell which one failed.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "invalid email or password",
	}
}

func InvalidArgument(field, message string) *AppError {
	return &AppError{
		Err:     ErrInvalidArgument,
		Message: message,
		Field:   field,
	}
}

// Upstream wraps a failure of the external metadata provider. The cause is
// kept for logs; only the message reaches clients.
func Upstream(message string, cause error) error {
	appErr := &AppError{
		Err:     ErrUpstream,
		Message: message,
	}
	if cause == nil {
		return appErr
	}
	return fmt.Errorf("%w: %w", appErr, cause)
}
