package loader

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// DescriptionError carries the failure of evaluating one description file together with the file path.
type DescriptionError struct {
	Path string
	Err  error
}

func (err DescriptionError) Error() string {
	return fmt.Sprintf("error in description file %s: %v", err.Path, err.Err)
}

func (err DescriptionError) Unwrap() error {
	return err.Err
}

// UnknownSymbolError is returned when a description block names a target kind no activated plugin provides.
type UnknownSymbolError struct {
	Path   string
	Symbol string
	Range  hcl.Range
}

func (err UnknownSymbolError) Error() string {
	return fmt.Sprintf("%s: unknown target kind %q; is the plugin activated in the project description?", err.Range.String(), err.Symbol)
}
