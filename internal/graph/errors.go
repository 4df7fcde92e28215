package graph

import (
	"fmt"

	"github.com/quarry-build/quarry/internal/ident"
)

// DuplicateTargetError is returned when two targets with the same name are registered in one package.
type DuplicateTargetError struct {
	Ref ident.Ref
}

func (err DuplicateTargetError) Error() string {
	return fmt.Sprintf("target %s is already defined in package //%s", err.Ref, err.Ref.Package)
}

// FrozenRegistryError is returned when a write reaches the registry after loading completed.
type FrozenRegistryError struct {
	Path string
}

func (err FrozenRegistryError) Error() string {
	return fmt.Sprintf("cannot register %s: loading has completed", err.Path)
}
