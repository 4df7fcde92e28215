package eval

import (
	"fmt"
	"strings"

	"github.com/quarry-build/quarry/internal/graph"
	"github.com/quarry-build/quarry/internal/ident"
)

func formatChain(chain []string) string {
	if len(chain) == 0 {
		return ""
	}

	return fmt.Sprintf(" (dependency chain: %s)", strings.Join(chain, " -> "))
}

// UnknownTargetError is returned when a dependency resolves to a target no loaded package defines.
type UnknownTargetError struct {
	Ref   ident.Ref
	Chain []string
}

func (err UnknownTargetError) Error() string {
	return fmt.Sprintf("unknown target %s%s", err.Ref, formatChain(err.Chain))
}

// UnknownProductError is returned when a product reference names an output the referenced target does not emit.
type UnknownProductError struct {
	Ref   ident.Ref
	Chain []string
}

func (err UnknownProductError) Error() string {
	return fmt.Sprintf("target %s does not emit an output named %q%s", err.Ref.WithoutOutput(), err.Ref.Output, formatChain(err.Chain))
}

// DependencyCycleError is returned when evaluation re-enters an in-progress task.
type DependencyCycleError struct {
	Chain []string
}

func (err DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(err.Chain, " -> "))
}

// NotConcreteError is returned when a target is requested as an entry point but cannot be built in the base
// environment, either because it is declared abstract or because a required key has no value there.
type NotConcreteError struct {
	Ref ident.Ref
	Key string
	Err error
}

func (err NotConcreteError) Error() string {
	if err.Key != "" {
		return fmt.Sprintf("target %s is not concrete in the base environment: key %q has no value and no default", err.Ref, err.Key)
	}

	return fmt.Sprintf("target %s is abstract and cannot be an entry point", err.Ref)
}

func (err NotConcreteError) Unwrap() error {
	return err.Err
}

// ProductConflictError is returned when two products share identity or a primary output but differ in content.
type ProductConflictError struct {
	First  *graph.Product
	Second *graph.Product
	Chain  []string
}

func (err ProductConflictError) Error() string {
	return fmt.Sprintf(
		"conflicting products for output %q: %s in %s vs %s in %s%s",
		err.Second.Primary(),
		err.First.Target, err.First.Env.Fingerprint(),
		err.Second.Target, err.Second.Env.Fingerprint(),
		formatChain(err.Chain),
	)
}

// EvaluationError wraps a failure raised while evaluating a target with the dependency chain that reached it.
type EvaluationError struct {
	Ref   ident.Ref
	Chain []string
	Err   error
}

func (err EvaluationError) Error() string {
	return fmt.Sprintf("evaluating %s: %v%s", err.Ref, err.Err, formatChain(err.Chain))
}

func (err EvaluationError) Unwrap() error {
	return err.Err
}
