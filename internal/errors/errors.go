// Package errors provides the error handling primitives used across the codebase. Errors created here carry a stack
// trace from the point of creation, which the CLI can print when debug logging is enabled.
package errors

import (
	goerrors "errors"
	"fmt"

	errorsgo "github.com/go-errors/errors"
)

// New creates a new instance of Error with the given value. If the value is already an error with a stack trace
// attached, it is returned as is.
func New(val any) error {
	if val == nil {
		return nil
	}

	if err, ok := val.(error); ok {
		var stacked *errorsgo.Error
		if goerrors.As(err, &stacked) {
			return err
		}

		return errorsgo.Wrap(err, 1)
	}

	return errorsgo.Wrap(fmt.Errorf("%v", val), 1)
}

// Errorf creates a new error with the given format and values, wrapping it with a stack trace.
func Errorf(format string, vals ...any) error {
	return errorsgo.Wrap(fmt.Errorf(format, vals...), 1)
}

// WithStackTrace attaches a stack trace to the given error unless one is already attached.
func WithStackTrace(err error) error {
	if err == nil {
		return nil
	}

	var stacked *errorsgo.Error
	if goerrors.As(err, &stacked) {
		return err
	}

	return errorsgo.Wrap(err, 1)
}

// ErrorStack returns the error message with its stack trace if one is attached, otherwise just the message.
func ErrorStack(err error) string {
	var stacked *errorsgo.Error
	if goerrors.As(err, &stacked) {
		return stacked.ErrorStack()
	}

	return err.Error()
}

// Unwrap delegates to the standard library implementation.
func Unwrap(err error) error {
	return goerrors.Unwrap(err)
}

// Is delegates to the standard library implementation.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// As delegates to the standard library implementation.
func As(err error, target any) bool {
	return goerrors.As(err, target)
}

// Join delegates to the standard library implementation.
func Join(errs ...error) error {
	return goerrors.Join(errs...)
}
