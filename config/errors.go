package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// StructuralInterpolationError is returned when an interpolation expression appears in a structural string: a target
// name, a package path in a dependency identifier, or an environment key name.
type StructuralInterpolationError struct {
	What  string
	Value string
	Range hcl.Range
}

func (err StructuralInterpolationError) Error() string {
	if err.Range.Filename != "" {
		return fmt.Sprintf("%s: interpolation is not allowed in %s %q", err.Range.String(), err.What, err.Value)
	}

	return fmt.Sprintf("interpolation is not allowed in %s %q", err.What, err.Value)
}
