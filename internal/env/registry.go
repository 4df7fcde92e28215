package env

import (
	"slices"

	"github.com/quarry-build/quarry/util"
)

// Registry holds the environment-key schemas and the named normalizations they may reference. Schemas must be
// registered before any delta references the key.
type Registry struct {
	schemas    map[string]*KeySchema
	normalizes map[string]NormalizeFunc
}

// NewRegistry returns an empty registry preloaded with the builtin normalizations.
func NewRegistry() *Registry {
	return &Registry{
		schemas: map[string]*KeySchema{},
		normalizes: map[string]NormalizeFunc{
			// Collapses runs of equal adjacent entries, the classic flag-list cleanup.
			"dedup_adjacent": dedupAdjacent,
			// Drops duplicates wherever they appear, keeping the first occurrence.
			"unique": util.RemoveDuplicatesFromList[[]string, string],
		},
	}
}

// RegisterKey adds the schema under its name. Re-registering an identical schema is a no-op; registering a different
// shape under an existing name fails with DuplicateKeyError.
func (reg *Registry) RegisterKey(schema *KeySchema) error {
	if schema.Default != nil {
		validated, err := schema.Validate(schema.Default)
		if err != nil {
			return err
		}

		schema.Default = validated
	}

	if existing, ok := reg.schemas[schema.Name]; ok {
		if existing.equal(schema) {
			return nil
		}

		return DuplicateKeyError{Key: schema.Name}
	}

	if schema.Normalize != "" {
		if _, ok := reg.normalizes[schema.Normalize]; !ok {
			return UnknownNormalizeError{Key: schema.Name, Normalize: schema.Normalize}
		}
	}

	reg.schemas[schema.Name] = schema

	return nil
}

// Schema returns the schema registered under the given key name.
func (reg *Registry) Schema(key string) (*KeySchema, error) {
	schema, ok := reg.schemas[key]
	if !ok {
		return nil, UnknownKeyError{Key: key}
	}

	return schema, nil
}

// Keys returns the registered key names in sorted order.
func (reg *Registry) Keys() []string {
	keys := make([]string, 0, len(reg.schemas))
	for key := range reg.schemas {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}

func (reg *Registry) normalize(schema *KeySchema, items []string) []string {
	if schema.Normalize == "" {
		return items
	}

	if fn, ok := reg.normalizes[schema.Normalize]; ok {
		return fn(items)
	}

	return items
}

func dedupAdjacent(values []string) []string {
	out := make([]string, 0, len(values))

	for _, value := range values {
		if len(out) > 0 && out[len(out)-1] == value {
			continue
		}

		out = append(out, value)
	}

	return out
}
