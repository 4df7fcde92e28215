// Package env implements immutable keyed environments with schema-driven values and stable fingerprints.
//
// Every key carries a registered schema declaring its value domain, default, and canonical form for hashing. Two
// environments that are equal under the canonical forms share a fingerprint and are interchangeable.
package env

import (
	"fmt"
	"slices"

	"github.com/quarry-build/quarry/internal/errors"
	"github.com/quarry-build/quarry/util"
)

// Kind is the value domain of an environment key.
type Kind int

const (
	// KindList is an ordered list of strings, duplicates preserved.
	KindList Kind = iota

	// KindSet is a set of strings with unique insertion-preserving order.
	KindSet

	// KindChoice is a single string drawn from an enumerated choice set.
	KindChoice

	// KindString is a single unrestricted string.
	KindString

	// KindBool is a boolean.
	KindBool

	// KindInt is an integer.
	KindInt
)

var kindNames = map[Kind]string{
	KindList:   "list",
	KindSet:    "set",
	KindChoice: "choice",
	KindString: "string",
	KindBool:   "bool",
	KindInt:    "int",
}

// String implements fmt.Stringer.
func (kind Kind) String() string {
	if name, ok := kindNames[kind]; ok {
		return name
	}

	return fmt.Sprintf("kind(%d)", int(kind))
}

// KindFromString converts the textual kind used in description files into the enum.
func KindFromString(val string) (Kind, error) {
	for kind, name := range kindNames {
		if name == val {
			return kind, nil
		}
	}

	return KindString, errors.Errorf("unknown key type %q, supported types: list, set, choice, string, bool, int", val)
}

// NormalizeFunc rewrites a list or set value at hash time, e.g. to deduplicate adjacent equal entries.
type NormalizeFunc func(values []string) []string

// KeySchema declares the value domain, default, and canonical form of one environment key.
type KeySchema struct {
	// Name of the key.
	Name string

	// Kind is the value domain.
	Kind Kind

	// Default is the value Lookup returns when the key is absent. A nil Default marks the key as required: looking
	// it up in an environment that does not carry it is an error.
	Default any

	// Choices enumerates the accepted values for KindChoice keys.
	Choices []string

	// Normalize is the name of a registered normalization applied to list and set values at hash time, empty for
	// none.
	Normalize string
}

// Validate checks the given value against the schema and returns its canonical in-memory form.
func (schema *KeySchema) Validate(value any) (any, error) {
	switch schema.Kind {
	case KindList, KindSet:
		items, err := stringSliceValue(value)
		if err != nil {
			return nil, TypeMismatchError{Key: schema.Name, Expected: schema.Kind.String() + " of strings", Actual: describeValue(value)}
		}

		if schema.Kind == KindSet {
			items = util.RemoveDuplicatesFromList(items)
		}

		return items, nil

	case KindChoice:
		str, ok := value.(string)
		if !ok {
			return nil, TypeMismatchError{Key: schema.Name, Expected: "string", Actual: describeValue(value)}
		}

		if !slices.Contains(schema.Choices, str) {
			return nil, TypeMismatchError{
				Key:      schema.Name,
				Expected: "one of " + util.CommaSeparatedStrings(schema.Choices),
				Actual:   fmt.Sprintf("%q", str),
			}
		}

		return str, nil

	case KindString:
		str, ok := value.(string)
		if !ok {
			return nil, TypeMismatchError{Key: schema.Name, Expected: "string", Actual: describeValue(value)}
		}

		return str, nil

	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return nil, TypeMismatchError{Key: schema.Name, Expected: "bool", Actual: describeValue(value)}
		}

		return b, nil

	case KindInt:
		switch n := value.(type) {
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		default:
			return nil, TypeMismatchError{Key: schema.Name, Expected: "int", Actual: describeValue(value)}
		}

	default:
		return nil, errors.Errorf("key %s has unsupported kind %s", schema.Name, schema.Kind)
	}
}

// equal reports whether two schemas declare the same shape, so an identical re-registration can be a no-op.
func (schema *KeySchema) equal(other *KeySchema) bool {
	return schema.Name == other.Name &&
		schema.Kind == other.Kind &&
		schema.Normalize == other.Normalize &&
		slices.Equal(schema.Choices, other.Choices) &&
		defaultEqual(schema.Default, other.Default)
}

func defaultEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	aItems, aErr := stringSliceValue(a)
	bItems, bErr := stringSliceValue(b)

	if aErr == nil && bErr == nil {
		return slices.Equal(aItems, bItems)
	}

	return a == b
}

func stringSliceValue(value any) ([]string, error) {
	switch items := value.(type) {
	case []string:
		return slices.Clone(items), nil
	case []any:
		out := make([]string, 0, len(items))

		for _, item := range items {
			str, ok := item.(string)
			if !ok {
				return nil, errors.Errorf("expected string element, got %s", describeValue(item))
			}

			out = append(out, str)
		}

		return out, nil
	case nil:
		return nil, errors.Errorf("expected string list, got nil")
	default:
		return nil, errors.Errorf("expected string list, got %s", describeValue(value))
	}
}

func describeValue(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int64:
		return "int"
	case []string, []any:
		return "list"
	default:
		return fmt.Sprintf("%T", value)
	}
}
