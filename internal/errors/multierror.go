package errors

import (
	"github.com/hashicorp/go-multierror"
)

// MultiError is an error type to track multiple errors.
type MultiError = multierror.Error

// Append adds the given errors into a single MultiError, skipping nil values.
func Append(err error, errs ...error) *MultiError {
	nonNil := make([]error, 0, len(errs))

	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}

	return multierror.Append(err, nonNil...)
}
