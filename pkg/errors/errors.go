// Package errors provides structured error types for photoaffix.
//
// This package defines error codes and types that enable:
//   - Consistent error reporting from every affixing stage
//   - Machine-readable error codes the view can switch on
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The codes mirror the failure taxonomy of the affixing engine:
//   - VALIDATION_ERROR: fewer than two inputs, bad spacing or quality
//   - DECODE_ERROR: a source image is unreadable or unsupported
//   - LAYOUT_ERROR: no scale factor fits the memory budget (pre-flight)
//   - MEMORY_PRESSURE: the budget was violated while composing
//   - IO_ERROR: encoding or writing the output failed
//   - CANCELLED: the request was superseded or aborted
//
// # Usage
//
//	err := errors.New(errors.ErrCodeValidation, "need two or more images, got %d", n)
//	if errors.Is(err, errors.ErrCodeValidation) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeDecode, origErr, "decode %s", uri)
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Pre-flight errors
	ErrCodeValidation    Code = "VALIDATION_ERROR"
	ErrCodeLayout        Code = "LAYOUT_ERROR"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Runtime errors
	ErrCodeDecode         Code = "DECODE_ERROR"
	ErrCodeMemoryPressure Code = "MEMORY_PRESSURE"
	ErrCodeIO             Code = "IO_ERROR"
	ErrCodeCancelled      Code = "CANCELLED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Context cancellation is reported as ErrCodeCancelled even when unwrapped.
// Returns empty string for any other non-*Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, context.Canceled) {
		return ErrCodeCancelled
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Cancelled converts a context error into an ErrCodeCancelled error.
// It returns nil when ctx is still live.
func Cancelled(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return Wrap(ErrCodeCancelled, err, "%s cancelled", stage)
	}
	return nil
}

// PreFlight reports whether the code is detected before any composition
// starts. Pre-flight failures never leave a canvas or a file behind.
func PreFlight(code Code) bool {
	switch code {
	case ErrCodeValidation, ErrCodeLayout, ErrCodeInvalidFormat, ErrCodeInvalidPath:
		return true
	}
	return false
}
