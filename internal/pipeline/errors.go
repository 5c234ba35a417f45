package pipeline

import (
	"errors"
	"fmt"
)

// Code classifies a unit-of-work failure so the host can react per class:
// blocked sources get backed off, validation failures get dropped,
// timeouts stay retryable.
type Code string

const (
	CodeValidation     Code = "VALIDATION"
	CodeBlocked        Code = "BLOCKED"
	CodeTimeout        Code = "TIMEOUT"
	CodeExtraction     Code = "EXTRACTION"
	CodeOutputMismatch Code = "OUTPUT_MISMATCH"
	CodeBrowser        Code = "BROWSER"
	CodeUnknownHandler Code = "UNKNOWN_HANDLER"
)

// Error wraps a pipeline failure with its classification and context.
type Error struct {
	Code       Code
	Message    string
	Underlying error
	Details    map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches errors by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// NewError creates an Error with the given classification.
func NewError(code Code, message string, err error) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
		Details:    make(map[string]any),
	}
}

// WithDetail adds context to the error.
func (e *Error) WithDetail(key string, value any) *Error {
	e.Details[key] = value
	return e
}

// IsBlocked reports whether err is an anti-automation block.
func IsBlocked(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Code == CodeBlocked
}

// IsFatal reports whether err aborts the unit of work. Per-record
// extraction failures are isolated upstream and never reach here; any
// classified error at this level is fatal except an output mismatch,
// which is reported while the result is still delivered.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code != CodeOutputMismatch
	}
	return true
}
