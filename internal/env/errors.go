package env

import "fmt"

// UnknownKeyError is returned when a key is referenced before its schema was registered.
type UnknownKeyError struct {
	Key string
}

func (err UnknownKeyError) Error() string {
	return fmt.Sprintf("environment key %q is not registered", err.Key)
}

// DuplicateKeyError is returned when a key name is re-registered with a different schema shape.
type DuplicateKeyError struct {
	Key string
}

func (err DuplicateKeyError) Error() string {
	return fmt.Sprintf("environment key %q is already registered with a different schema", err.Key)
}

// TypeMismatchError is returned when a value does not conform to its key's schema.
type TypeMismatchError struct {
	Key      string
	Expected string
	Actual   string
}

func (err TypeMismatchError) Error() string {
	return fmt.Sprintf("value for environment key %q must be %s, got %s", err.Key, err.Expected, err.Actual)
}

// MissingKeyError is returned when a required key (one without a default) is looked up in an environment that does
// not carry it.
type MissingKeyError struct {
	Key string
}

func (err MissingKeyError) Error() string {
	return fmt.Sprintf("environment key %q has no value and no default", err.Key)
}

// UnknownNormalizeError is returned when a schema names a normalization that is not registered.
type UnknownNormalizeError struct {
	Key       string
	Normalize string
}

func (err UnknownNormalizeError) Error() string {
	return fmt.Sprintf("environment key %q references unknown normalization %q", err.Key, err.Normalize)
}

// InterpolationError is returned when an interpolation expression cannot be resolved.
type InterpolationError struct {
	Expr   string
	Reason string
}

func (err InterpolationError) Error() string {
	return fmt.Sprintf("cannot interpolate %q: %s", err.Expr, err.Reason)
}
