// Package graph holds the loaded build description: packages, the targets they define, and the products evaluation
// derives from them. The structure is append-only while the loader runs and frozen before evaluation starts.
package graph

import (
	"github.com/quarry-build/quarry/internal/delta"
	"github.com/quarry-build/quarry/internal/env"
	"github.com/quarry-build/quarry/internal/ident"
	"github.com/quarry-build/quarry/pkg/log"
)

// Target is one named node of the abstract dependency graph. Targets are created during loading and never mutated
// after.
type Target struct {
	// Ref is the canonical identifier of the target.
	Ref ident.Ref

	// Kind is an opaque tag set by the plugin that built the target.
	Kind string

	// Deps are the dependency references as written in the description, resolved against the target's package.
	Deps []ident.Ref

	// Down is applied to the environment flowing to transitive dependencies.
	Down delta.Delta

	// Using is applied to the environment flowing back to dependents.
	Using delta.Delta

	// Local is applied to the environment the target's own products are produced in.
	Local delta.Delta

	// Abstract marks a target that may only appear as a dependency, never as an entry point.
	Abstract bool

	// Generate derives the target's products from the environment evaluation hands it.
	Generate Generator

	// CombineDeps optionally overrides the default fold of dependency using-environments. Nil selects the default
	// last-writer-wins fold.
	CombineDeps CombineFunc
}

// Generator produces a target's concrete build steps for one environment. The returned using-environment, when
// non-nil, replaces the default one the evaluator computed; generators use this to surface their own outputs to
// dependents.
type Generator func(bctx BuildContext) (*Generated, error)

// Generated is what one evaluation of a target yields.
type Generated struct {
	// Products are the concrete build steps, each carrying an environment narrowed to the keys it depends on.
	Products []*Product

	// Using is the finalized using-environment, or nil to keep the evaluator's default.
	Using *env.Env
}

// CombineFunc folds the using-environments of a target's dependencies into the target's input environment. The
// usings slice is in declared dependency order.
type CombineFunc func(base *env.Env, usings []*env.Env) (*env.Env, error)

// BuildContext is the evaluator-provided view a generator works against.
type BuildContext interface {
	// Local is the environment the target's products are produced in.
	Local() *env.Env

	// Using is the default using-environment, the dependency fold with the target's using delta applied.
	Using() *env.Env

	// Interpolate resolves ${key} expressions in the string against Local.
	Interpolate(s string) (string, error)

	// SourcePath turns a package-relative source path into a project-root-relative one.
	SourcePath(rel string) string

	// GlobSources expands a package-relative glob pattern into sorted project-root-relative paths.
	GlobSources(pattern string) ([]string, error)

	// DependencyOutput resolves a product reference to the output path the referenced target produced in the
	// current downward environment.
	DependencyOutput(ref ident.Ref) (string, error)

	// OutPath joins the given elements under the target's own output directory, relative to the generation root.
	OutPath(parts ...string) string

	// Logger narrates at debug level.
	Logger() log.Logger
}
