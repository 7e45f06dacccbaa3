// Package errors provides structured error handling for the system.
//
// It defines a standard AppError type that includes:
//   - Error Code (standardized strings like NOT_FOUND, INTERNAL)
//   - Message (human-readable description)
//   - Underlying Error (chaining)
package errors

import (
	"errors"
	"fmt"
)

const (
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL"
	CodeConflict        = "CONFLICT"
	CodeForbidden       = "FORBIDDEN"
	CodeInvalidArgument = "INVALID_ARGUMENT"
)

// AppError is the package-wide structured error: a stable code, a
// human-readable message, and an optional wrapped cause.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// New builds an AppError with an explicit code.
func New(code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Err: cause}
}

// Wrap attaches a message to cause under CodeInternal, the common case for
// adapter code translating a driver/SDK error.
func Wrap(cause error, message string) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Err: cause}
}

func NotFound(message string, cause error) *AppError {
	return &AppError{Code: CodeNotFound, Message: message, Err: cause}
}

func Internal(message string, cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: message, Err: cause}
}

func Conflict(message string, cause error) *AppError {
	return &AppError{Code: CodeConflict, Message: message, Err: cause}
}

func Forbidden(message string, cause error) *AppError {
	return &AppError{Code: CodeForbidden, Message: message, Err: cause}
}

func InvalidArgument(message string, cause error) *AppError {
	return &AppError{Code: CodeInvalidArgument, Message: message, Err: cause}
}

// Is reports whether err is an *AppError with the given code.
func Is(err error, code string) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// As unwraps err into an *AppError if possible.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
