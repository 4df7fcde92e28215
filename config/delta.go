package config

import (
	"slices"

	"github.com/quarry-build/quarry/internal/delta"
	"github.com/quarry-build/quarry/internal/env"
	"github.com/quarry-build/quarry/internal/errors"
)

// Description files spell deltas as a map from key name to a map of operations:
//
//	local = {
//	  c_flags = { append = ["-O2"] }
//	  opt     = { set = "release" }
//	}
//
// HCL objects carry no order, so the decoded delta applies keys in lexicographic order and, within a key, operations
// in the fixed order set, prepend, append, remove, transform.
var opOrder = []string{"set", "prepend", "append", "remove", "transform"}

// DeltaFromValue decodes a delta map produced by CtyToGoValue into delta operations.
func DeltaFromValue(value any) (delta.Delta, error) {
	if value == nil {
		return nil, nil
	}

	byKey, ok := value.(map[string]any)
	if !ok {
		return nil, errors.Errorf("a delta must be an object of per-key operations")
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	var out delta.Delta

	for _, key := range keys {
		if env.HasInterpolation(key) {
			return nil, errors.New(StructuralInterpolationError{What: "environment key name", Value: key})
		}

		ops, ok := byKey[key].(map[string]any)
		if !ok {
			return nil, errors.Errorf("delta entry for key %q must be an object like { append = [...] }", key)
		}

		for opName := range ops {
			if !slices.Contains(opOrder, opName) {
				return nil, errors.Errorf("delta entry for key %q uses unknown operation %q, supported operations: set, append, prepend, remove, transform", key, opName)
			}
		}

		for _, opName := range opOrder {
			raw, ok := ops[opName]
			if !ok {
				continue
			}

			op, err := decodeOp(key, opName, raw)
			if err != nil {
				return nil, err
			}

			out = append(out, op)
		}
	}

	return out, nil
}

func decodeOp(key, opName string, raw any) (delta.Op, error) {
	kind, err := delta.OpKindFromString(opName)
	if err != nil {
		return delta.Op{}, errors.WithStackTrace(err)
	}

	op := delta.Op{Key: key, Kind: kind}

	switch kind {
	case delta.OpSet:
		op.Value = raw

	case delta.OpTransform:
		name, ok := raw.(string)
		if !ok {
			return delta.Op{}, errors.Errorf("transform for key %q must name a registered transform", key)
		}

		op.Transform = name

	default:
		items, err := stringList(raw)
		if err != nil {
			return delta.Op{}, errors.Errorf("%s for key %q must be a list of strings", opName, key)
		}

		op.Items = items
	}

	return op, nil
}

func stringList(raw any) ([]string, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, errors.Errorf("expected a list")
	}

	out := make([]string, 0, len(items))

	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, errors.Errorf("expected a string element")
		}

		out = append(out, str)
	}

	return out, nil
}
