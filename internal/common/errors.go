package common

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidArgument marks malformed or out-of-range caller input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState marks an operation that would violate an invariant given current data.
	ErrInvalidState = errors.New("invalid state")
)

// Error codes rendered in the JSON error envelope.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidState    = "INVALID_STATE"
	CodeInternal        = "INTERNAL"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// InvalidArgument wraps ErrInvalidArgument with a caller-facing message.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with a caller-facing message.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidState wraps ErrInvalidState with a caller-facing message.
func InvalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// ToAppError classifies err into the taxonomy. Unknown errors become INTERNAL
// and their message is not exposed.
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return NewAppError(CodeInvalidArgument, err.Error(), http.StatusBadRequest, err)
	case errors.Is(err, ErrNotFound):
		return NewAppError(CodeNotFound, err.Error(), http.StatusNotFound, err)
	case errors.Is(err, ErrInvalidState):
		return NewAppError(CodeInvalidState, err.Error(), http.StatusConflict, err)
	default:
		return NewAppError(CodeInternal, "internal error", http.StatusInternalServerError, err)
	}
}

// KindOf returns the taxonomy code for err.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	return ToAppError(err).Code
}
