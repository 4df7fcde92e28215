package loader

import (
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/quarry-build/quarry/config"
	"github.com/quarry-build/quarry/internal/errors"
)

// evaluateBlockOptions resolves every attribute of a target block against the evaluation context and converts the
// results into the plain option map plugins decode.
func evaluateBlockOptions(block *hclsyntax.Block, evalContext *hcl.EvalContext) (map[string]any, error) {
	attrs, diags := block.Body.JustAttributes()
	if diags != nil && diags.HasErrors() {
		return nil, errors.WithStackTrace(diags)
	}

	options := map[string]any{}

	// Attributes evaluate in source order so diagnostics point at the first failure.
	for _, attr := range sortedAttributes(attrs) {
		value, diags := attr.Expr.Value(evalContext)
		if diags != nil && diags.HasErrors() {
			return nil, errors.WithStackTrace(diags)
		}

		converted, err := config.CtyToGoValue(value)
		if err != nil {
			return nil, errors.Errorf("attribute %q: %w", attr.Name, err)
		}

		options[attr.Name] = converted
	}

	return options, nil
}

// sortedAttributes orders the attribute map by source position, since hcl.Attributes carries no order.
func sortedAttributes(attrs hcl.Attributes) []*hcl.Attribute {
	out := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, attr)
	}

	slices.SortFunc(out, func(a, b *hcl.Attribute) int {
		return a.Range.Start.Byte - b.Range.Start.Byte
	})

	return out
}
