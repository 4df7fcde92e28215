package graph

import (
	"slices"
	"strings"

	"github.com/quarry-build/quarry/internal/env"
	"github.com/quarry-build/quarry/internal/ident"
)

// Rule describes one distinct command shape in the emitted manifest. Products referencing the same rule name must
// reference the same rule definition.
type Rule struct {
	// Name of the rule in the manifest.
	Name string

	// Command is the command template, with manifest-level variables like $in, $out and $cmd unexpanded.
	Command string

	// Description is the short line the executor prints per step.
	Description string

	// Depfile names the rule's dependency file variable template, empty for none.
	Depfile string

	// Restat marks steps whose outputs may be left unchanged.
	Restat bool

	// Generator marks the manifest-regeneration rule.
	Generator bool
}

// Product is the fully resolved output of evaluating a target in some environment. Its identity is the triple
// (target, environment fingerprint, primary output); two products with equal identity must be equal in content.
type Product struct {
	// Target identifies the target the product was derived from.
	Target ident.Ref

	// Env is the environment at the moment of production, narrowed by the generator to the keys it cares about.
	Env *env.Env

	// Inputs are the resolved input paths, project-root-relative for sources and generation-root-relative for
	// outputs of other products.
	Inputs []string

	// OrderOnly are inputs that gate execution order without invalidating the product's outputs.
	OrderOnly []string

	// Outputs are the produced paths, relative to the generation root. The first entry is the primary output.
	Outputs []string

	// Rule the product's build statement references.
	Rule *Rule

	// Command is the fully resolved argument vector, for identity checks and diagnostics.
	Command []string

	// Bindings are the manifest-level variable bindings of the build statement.
	Bindings map[string]string
}

// Primary returns the primary output path.
func (p *Product) Primary() string {
	if len(p.Outputs) == 0 {
		return ""
	}

	return p.Outputs[0]
}

// Identity returns the deduplication key of the product.
func (p *Product) Identity() string {
	return p.Target.String() + "|" + p.Env.Fingerprint() + "|" + p.Primary()
}

// Equal reports whether two products are equal in content, which identity-equal products are required to be.
func (p *Product) Equal(other *Product) bool {
	if p.Target != other.Target ||
		!p.Env.Equal(other.Env) ||
		p.Rule.Name != other.Rule.Name ||
		!slices.Equal(p.Inputs, other.Inputs) ||
		!slices.Equal(p.OrderOnly, other.OrderOnly) ||
		!slices.Equal(p.Outputs, other.Outputs) ||
		!slices.Equal(p.Command, other.Command) ||
		len(p.Bindings) != len(other.Bindings) {
		return false
	}

	for key, value := range p.Bindings {
		if other.Bindings[key] != value {
			return false
		}
	}

	return true
}

// CompareProducts orders products for stable emission: by target identifier, then environment fingerprint, then
// primary output path.
func CompareProducts(a, b *Product) int {
	if c := strings.Compare(a.Target.String(), b.Target.String()); c != 0 {
		return c
	}

	if c := strings.Compare(a.Env.Fingerprint(), b.Env.Fingerprint()); c != 0 {
		return c
	}

	return strings.Compare(a.Primary(), b.Primary())
}
