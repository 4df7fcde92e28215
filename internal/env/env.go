package env

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// FingerprintLen is the number of hex characters of the digest exposed as the printable fingerprint. The full digest
// is retained internally for equality, so a collision within the prefix does not change semantics.
const FingerprintLen = 12

const (
	pairSeparator  = "\x1e"
	fieldSeparator = "\x1f"
)

// Env is an immutable mapping from registered key names to values. A new environment is produced by applying a delta;
// the zero map is obtained from Empty.
type Env struct {
	reg    *Registry
	values map[string]any

	digest []byte
}

// Empty returns the environment with no keys set.
func Empty(reg *Registry) *Env {
	return newEnv(reg, map[string]any{})
}

// Build validates the given raw values against their schemas and returns the environment carrying them.
func Build(reg *Registry, values map[string]any) (*Env, error) {
	out := map[string]any{}

	for key, value := range values {
		schema, err := reg.Schema(key)
		if err != nil {
			return nil, err
		}

		validated, err := schema.Validate(value)
		if err != nil {
			return nil, err
		}

		out[key] = validated
	}

	return newEnv(reg, out), nil
}

func newEnv(reg *Registry, values map[string]any) *Env {
	e := &Env{reg: reg, values: values}
	e.digest = e.computeDigest()

	return e
}

// Registry returns the schema registry the environment is bound to.
func (e *Env) Registry() *Registry {
	return e.reg
}

// Lookup returns the value of the given key, falling back to the schema default when the key is absent. A key that is
// absent and has no default is free; looking it up fails with MissingKeyError.
func (e *Env) Lookup(key string) (any, error) {
	schema, err := e.reg.Schema(key)
	if err != nil {
		return nil, err
	}

	if value, ok := e.values[key]; ok {
		return value, nil
	}

	if schema.Default == nil {
		return nil, MissingKeyError{Key: key}
	}

	return schema.Default, nil
}

// Has reports whether the key is explicitly present, without falling back to the default.
func (e *Env) Has(key string) bool {
	_, ok := e.values[key]
	return ok
}

// Set returns a new environment with the key set to the given value. The value is validated against the key's schema.
func (e *Env) Set(key string, value any) (*Env, error) {
	schema, err := e.reg.Schema(key)
	if err != nil {
		return nil, err
	}

	validated, err := schema.Validate(value)
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, len(e.values)+1)
	for k, v := range e.values {
		values[k] = v
	}

	values[key] = validated

	return newEnv(e.reg, values), nil
}

// Subset returns an environment containing only the listed keys. Targets use this to shed irrelevant state before
// producing a product, which is what collapses the concrete graph.
func (e *Env) Subset(keys []string) *Env {
	values := map[string]any{}

	for _, key := range keys {
		if value, ok := e.values[key]; ok {
			values[key] = value
		}
	}

	return newEnv(e.reg, values)
}

// Keys returns the explicitly present key names in sorted order.
func (e *Env) Keys() []string {
	keys := make([]string, 0, len(e.values))
	for key := range e.values {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}

// Fingerprint returns the printable digest prefix identifying the environment.
func (e *Env) Fingerprint() string {
	return hex.EncodeToString(e.digest)[:FingerprintLen]
}

// Equal compares the full digests, not the truncated fingerprints.
func (e *Env) Equal(other *Env) bool {
	return slices.Equal(e.digest, other.digest)
}

// String renders the environment for diagnostics.
func (e *Env) String() string {
	var sb strings.Builder

	sb.WriteString("{")

	for i, key := range e.Keys() {
		if i > 0 {
			sb.WriteString(", ")
		}

		fmt.Fprintf(&sb, "%s=%v", key, e.values[key])
	}

	sb.WriteString("}")

	return sb.String()
}

// computeDigest serializes each (key, canonical value) pair under the schema's canonicalization, concatenates the
// pairs in lexicographic key order, and hashes the result.
func (e *Env) computeDigest() []byte {
	h := sha256.New()

	for _, key := range e.Keys() {
		schema := e.reg.schemas[key]

		h.Write([]byte(key))
		h.Write([]byte(fieldSeparator))
		h.Write([]byte(canonicalBytes(e.reg, schema, e.values[key])))
		h.Write([]byte(pairSeparator))
	}

	return h.Sum(nil)
}

func canonicalBytes(reg *Registry, schema *KeySchema, value any) string {
	switch schema.Kind {
	case KindList:
		items := reg.normalize(schema, value.([]string))
		return strings.Join(items, fieldSeparator)

	case KindSet:
		// Sets are hashed in sorted order so insertion order does not leak into the fingerprint.
		items := slices.Clone(value.([]string))
		slices.Sort(items)
		items = reg.normalize(schema, items)

		return strings.Join(items, fieldSeparator)

	case KindChoice, KindString:
		return value.(string)

	case KindBool:
		if value.(bool) {
			return "\x01"
		}

		return "\x00"

	case KindInt:
		return strconv.FormatInt(value.(int64), 10)

	default:
		return fmt.Sprintf("%v", value)
	}
}
