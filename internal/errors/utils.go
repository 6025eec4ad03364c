package errors

import (
	"errors"
)

// Wrap wraps an error with additional context. A nil error stays nil.
func Wrap(err error, errType ErrorType, code, message string) *HtmtError {
	if err == nil {
		return nil
	}
	return &HtmtError{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapIO wraps an error as an I/O error on path.
func WrapIO(err error, code, path string) *HtmtError {
	te := Wrap(err, ErrorTypeIO, code, "i/o failure")
	if te != nil {
		te.Path = path
	}
	return te
}

// WrapConfig wraps an error as a configuration error
func WrapConfig(err error, code, message string) *HtmtError {
	return Wrap(err, ErrorTypeConfig, code, message)
}

// WrapBuild wraps an error as a build error
func WrapBuild(err error, code, message string) *HtmtError {
	return Wrap(err, ErrorTypeBuild, code, message)
}

// ExtractCause returns the innermost error of a wrap chain.
func ExtractCause(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
