package ninja

import (
	"fmt"

	"github.com/quarry-build/quarry/internal/ident"
)

// MissingInputError is returned when a product input is neither produced by another product nor resolvable as a
// source file under the project root.
type MissingInputError struct {
	Path   string
	Target ident.Ref
}

func (err MissingInputError) Error() string {
	return fmt.Sprintf("input %q of target %s is not produced by any build step and does not exist as a source file", err.Path, err.Target)
}
