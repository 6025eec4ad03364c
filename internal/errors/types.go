// Package errors provides the structured error types used by htmt.
//
// HtmtError carries a category, a stable code, an optional source
// location and the wrapped cause. The element expansion failures
// (duplicate or unknown elements, reference cycles, multiple root nodes,
// duplicate attributes, page failures) have their own types so callers can
// match them with errors.As and the sentinel values with errors.Is. Every
// type carries a code that HasCode finds anywhere in a wrapped or joined
// chain.
package errors

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeBuild      ErrorType = "build"
	ErrorTypeConfig     ErrorType = "config"
)

// Common error codes.
const (
	ErrCodeManifestNotFound = "ERR_MANIFEST_NOT_FOUND"
	ErrCodeManifestInvalid  = "ERR_MANIFEST_INVALID"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeReadFailed       = "ERR_READ_FAILED"
	ErrCodeWriteFailed      = "ERR_WRITE_FAILED"
	ErrCodeCopyFailed       = "ERR_COPY_FAILED"
	ErrCodeInvalidName      = "ERR_INVALID_NAME"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeBuildFailed      = "ERR_BUILD_FAILED"
	ErrCodeWatchFailed      = "ERR_WATCH_FAILED"
	ErrCodeDiagnostics      = "ERR_DIAGNOSTICS"
)

// Codes of the element expansion failures.
const (
	ErrCodeDuplicateElement   = "ERR_DUPLICATE_ELEMENT"
	ErrCodeUnknownElement     = "ERR_UNKNOWN_ELEMENT"
	ErrCodeCycle              = "ERR_CYCLE"
	ErrCodeMultipleRootNodes  = "ERR_MULTIPLE_ROOT_NODES"
	ErrCodeDuplicateAttribute = "ERR_DUPLICATE_ATTRIBUTE"
	ErrCodePageFailed         = "ERR_PAGE_FAILED"
)

// HtmtError is a structured error type with context.
type HtmtError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	Path    string
	Line    int
	Column  int
}

// Error implements the error interface.
func (e *HtmtError) Error() string {
	msg := e.Message
	if e.Path != "" {
		if e.Line > 0 {
			msg = fmt.Sprintf("%s:%d,%d; %s", e.Path, e.Line, e.Column, msg)
		} else {
			msg = e.Path + ": " + msg
		}
	}
	if e.Code != "" {
		msg = "[" + e.Code + "] " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// ErrorCode returns the error's code.
func (e *HtmtError) ErrorCode() string {
	return e.Code
}

// Unwrap returns the underlying cause error.
func (e *HtmtError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by type and code.
func (e *HtmtError) Is(target error) bool {
	var t *HtmtError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// WithLocation adds file location information.
func (e *HtmtError) WithLocation(path string, line, column int) *HtmtError {
	e.Path = path
	e.Line = line
	e.Column = column
	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *HtmtError {
	return &HtmtError{Type: ErrorTypeValidation, Code: code, Message: message}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *HtmtError {
	return &HtmtError{Type: ErrorTypeIO, Code: code, Message: message, Cause: cause}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *HtmtError {
	return &HtmtError{Type: ErrorTypeConfig, Code: code, Message: message}
}

// IsType reports whether err is an HtmtError of the given type.
func IsType(err error, errType ErrorType) bool {
	var te *HtmtError
	if errors.As(err, &te) {
		return te.Type == errType
	}
	return false
}

// HasCode reports whether err, or any error it wraps or joins, carries
// code.
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if c, ok := err.(coded); ok && c.ErrorCode() == code {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if HasCode(e, code) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return HasCode(u.Unwrap(), code)
	}
	if errs := multierr.Errors(err); len(errs) > 1 {
		for _, e := range errs {
			if HasCode(e, code) {
				return true
			}
		}
	}
	return false
}

// coded is implemented by every error type of this package.
type coded interface {
	ErrorCode() string
}
