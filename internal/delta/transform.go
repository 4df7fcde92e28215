package delta

import (
	"fmt"

	"github.com/quarry-build/quarry/internal/env"
)

// TransformFunc derives a new value from the current one. The result is re-validated against the key's schema after
// the call, so a transform cannot smuggle an ill-typed value into an environment.
type TransformFunc func(schema *env.KeySchema, value any) (any, error)

// Registry holds the named transforms a project's deltas may reference. Plugins register transforms in Go; the
// description surface only names them.
type Registry struct {
	transforms map[string]TransformFunc
}

// NewRegistry returns an empty transform registry.
func NewRegistry() *Registry {
	return &Registry{transforms: map[string]TransformFunc{}}
}

// Register adds the transform under the given name, replacing any previous registration.
func (reg *Registry) Register(name string, fn TransformFunc) {
	reg.transforms[name] = fn
}

// Transform returns the transform registered under the given name.
func (reg *Registry) Transform(name string) (TransformFunc, error) {
	fn, ok := reg.transforms[name]
	if !ok {
		return nil, UnknownTransformError{Name: name}
	}

	return fn, nil
}

// UnknownTransformError is returned when a delta names a transform that is not registered.
type UnknownTransformError struct {
	Name string
}

func (err UnknownTransformError) Error() string {
	return fmt.Sprintf("delta references unknown transform %q", err.Name)
}
