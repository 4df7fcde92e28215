// Package delta represents environment transformations as data. A delta is a finite sequence of per-key operations
// that can be inspected, dumped for diagnostics, and composed without being evaluated.
package delta

import (
	"fmt"
	"slices"
	"strings"

	"github.com/quarry-build/quarry/internal/env"
	"github.com/quarry-build/quarry/util"
)

// OpKind enumerates the operations a delta may apply to a key.
type OpKind int

const (
	// OpSet replaces the value.
	OpSet OpKind = iota

	// OpAppend appends to a list or set value.
	OpAppend

	// OpPrepend prepends to a list or set value.
	OpPrepend

	// OpRemove removes elements from a set value.
	OpRemove

	// OpTransform applies a named function from the transform registry to the value.
	OpTransform
)

var opKindNames = map[OpKind]string{
	OpSet:       "set",
	OpAppend:    "append",
	OpPrepend:   "prepend",
	OpRemove:    "remove",
	OpTransform: "transform",
}

// String implements fmt.Stringer.
func (kind OpKind) String() string {
	if name, ok := opKindNames[kind]; ok {
		return name
	}

	return fmt.Sprintf("op(%d)", int(kind))
}

// OpKindFromString converts the textual operation used in description files into the enum.
func OpKindFromString(val string) (OpKind, error) {
	for kind, name := range opKindNames {
		if name == val {
			return kind, nil
		}
	}

	return OpSet, fmt.Errorf("unknown delta operation %q, supported operations: set, append, prepend, remove, transform", val)
}

// Op is one operation on one key.
type Op struct {
	// Key names the registered environment key the operation applies to.
	Key string

	// Kind selects the operation.
	Kind OpKind

	// Value is the replacement value for OpSet.
	Value any

	// Items are the elements for OpAppend, OpPrepend and OpRemove.
	Items []string

	// Transform is the registered transform name for OpTransform.
	Transform string
}

// String renders the operation for diagnostics.
func (op Op) String() string {
	switch op.Kind {
	case OpSet:
		return fmt.Sprintf("set %s = %v", op.Key, op.Value)
	case OpTransform:
		return fmt.Sprintf("transform %s via %s", op.Key, op.Transform)
	default:
		return fmt.Sprintf("%s %s %v", op.Kind, op.Key, op.Items)
	}
}

// Delta is an ordered sequence of operations. Deltas compose left to right: applying [d1, d2] equals applying d1 then
// d2. Composition is associative but not commutative.
type Delta []Op

// Compose concatenates the given deltas into one, preserving order.
func Compose(deltas ...Delta) Delta {
	var out Delta
	for _, d := range deltas {
		out = append(out, d...)
	}

	return out
}

// String renders the delta for diagnostics.
func (d Delta) String() string {
	if len(d) == 0 {
		return "[]"
	}

	parts := make([]string, 0, len(d))
	for _, op := range d {
		parts = append(parts, op.String())
	}

	return "[" + strings.Join(parts, "; ") + "]"
}

// Apply produces a new environment with every operation of the delta applied in order. Transforms are resolved
// against the given registry.
func (d Delta) Apply(e *env.Env, transforms *Registry) (*env.Env, error) {
	out := e

	for _, op := range d {
		applied, err := applyOp(out, op, transforms)
		if err != nil {
			return nil, err
		}

		out = applied
	}

	return out, nil
}

func applyOp(e *env.Env, op Op, transforms *Registry) (*env.Env, error) {
	schema, err := e.Registry().Schema(op.Key)
	if err != nil {
		return nil, err
	}

	switch op.Kind {
	case OpSet:
		return e.Set(op.Key, op.Value)

	case OpAppend, OpPrepend:
		if schema.Kind != env.KindList && schema.Kind != env.KindSet {
			return nil, env.TypeMismatchError{Key: op.Key, Expected: "list or set for " + op.Kind.String(), Actual: schema.Kind.String()}
		}

		current, err := currentItems(e, op.Key)
		if err != nil {
			return nil, err
		}

		if schema.Kind == env.KindSet {
			return e.Set(op.Key, applySetEdit(current, op))
		}

		if op.Kind == OpAppend {
			return e.Set(op.Key, append(slices.Clone(current), op.Items...))
		}

		return e.Set(op.Key, append(slices.Clone(op.Items), current...))

	case OpRemove:
		if schema.Kind != env.KindSet {
			return nil, env.TypeMismatchError{Key: op.Key, Expected: "set for remove", Actual: schema.Kind.String()}
		}

		current, err := currentItems(e, op.Key)
		if err != nil {
			return nil, err
		}

		out := slices.Clone(current)
		for _, item := range op.Items {
			out = util.RemoveElementFromList(out, item)
		}

		return e.Set(op.Key, out)

	case OpTransform:
		fn, err := transforms.Transform(op.Transform)
		if err != nil {
			return nil, err
		}

		current, err := e.Lookup(op.Key)
		if err != nil {
			return nil, err
		}

		transformed, err := fn(schema, current)
		if err != nil {
			return nil, err
		}

		// The result is re-validated against the schema by Set.
		return e.Set(op.Key, transformed)

	default:
		return nil, fmt.Errorf("unsupported delta operation %s", op.Kind)
	}
}

// applySetEdit implements the set uniqueness rules: on append an existing element stays in its earlier position, on
// prepend an existing element is re-positioned to the front.
func applySetEdit(current []string, op Op) []string {
	if op.Kind == OpAppend {
		out := slices.Clone(current)

		for _, item := range op.Items {
			if !slices.Contains(out, item) {
				out = append(out, item)
			}
		}

		return out
	}

	head := make([]string, 0, len(op.Items))

	for _, item := range op.Items {
		if !slices.Contains(head, item) {
			head = append(head, item)
		}
	}

	out := slices.Clone(head)

	for _, item := range current {
		if !slices.Contains(head, item) {
			out = append(out, item)
		}
	}

	return out
}

func currentItems(e *env.Env, key string) ([]string, error) {
	value, err := e.Lookup(key)
	if err != nil {
		return nil, err
	}

	return value.([]string), nil
}
