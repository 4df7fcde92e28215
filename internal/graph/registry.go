package graph

import (
	"slices"

	"github.com/quarry-build/quarry/internal/ident"
)

// Package is the set of targets one description file defines, identified by its project-relative slash-delimited
// path. Packages are created lazily when the loader encounters a reference to them.
type Package struct {
	// Path of the package relative to the project root.
	Path string

	// Targets maps target names to the targets defined in the package.
	Targets map[string]*Target
}

// TargetNames returns the target names in sorted order.
func (pkg *Package) TargetNames() []string {
	names := make([]string, 0, len(pkg.Targets))
	for name := range pkg.Targets {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Registry stores the loaded packages and indexes their targets. It is append-only until loading completes and frozen
// afterwards; lookups post-freeze are read-only.
type Registry struct {
	packages map[string]*Package
	frozen   bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{packages: map[string]*Package{}}
}

// EnsurePackage returns the package at the given path, creating it if the loader has not seen it before.
func (reg *Registry) EnsurePackage(path string) (*Package, error) {
	if reg.frozen {
		return nil, FrozenRegistryError{Path: path}
	}

	if pkg, ok := reg.packages[path]; ok {
		return pkg, nil
	}

	pkg := &Package{Path: path, Targets: map[string]*Target{}}
	reg.packages[path] = pkg

	return pkg, nil
}

// HasPackage reports whether the package was already loaded.
func (reg *Registry) HasPackage(path string) bool {
	_, ok := reg.packages[path]
	return ok
}

// AddTarget registers a target in its package.
func (reg *Registry) AddTarget(target *Target) error {
	if reg.frozen {
		return FrozenRegistryError{Path: target.Ref.String()}
	}

	pkg, err := reg.EnsurePackage(target.Ref.Package)
	if err != nil {
		return err
	}

	if _, ok := pkg.Targets[target.Ref.Target]; ok {
		return DuplicateTargetError{Ref: target.Ref}
	}

	pkg.Targets[target.Ref.Target] = target

	return nil
}

// Freeze marks the end of loading. After freezing the registry rejects writes and lookups return sharable references.
func (reg *Registry) Freeze() {
	reg.frozen = true
}

// Frozen reports whether loading has completed.
func (reg *Registry) Frozen() bool {
	return reg.frozen
}

// Lookup resolves a target reference. The output portion of a product reference is ignored here; products are bound
// during evaluation.
func (reg *Registry) Lookup(ref ident.Ref) (*Target, bool) {
	pkg, ok := reg.packages[ref.Package]
	if !ok {
		return nil, false
	}

	target, ok := pkg.Targets[ref.Target]

	return target, ok
}

// PackagePaths returns the loaded package paths in sorted order.
func (reg *Registry) PackagePaths() []string {
	paths := make([]string, 0, len(reg.packages))
	for path := range reg.packages {
		paths = append(paths, path)
	}

	slices.Sort(paths)

	return paths
}

// Package returns the loaded package at the given path.
func (reg *Registry) Package(path string) (*Package, bool) {
	pkg, ok := reg.packages[path]
	return pkg, ok
}

// Targets returns every registered target ordered by canonical reference.
func (reg *Registry) Targets() []*Target {
	var out []*Target

	for _, path := range reg.PackagePaths() {
		pkg := reg.packages[path]
		for _, name := range pkg.TargetNames() {
			out = append(out, pkg.Targets[name])
		}
	}

	return out
}
