package env_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-build/quarry/internal/env"
)

func newTestRegistry(t *testing.T) *env.Registry {
	t.Helper()

	reg := env.NewRegistry()

	require.NoError(t, reg.RegisterKey(&env.KeySchema{Name: "c_flags", Kind: env.KindList, Default: []string{}}))
	require.NoError(t, reg.RegisterKey(&env.KeySchema{Name: "defines", Kind: env.KindSet, Default: []string{}}))
	require.NoError(t, reg.RegisterKey(&env.KeySchema{Name: "opt", Kind: env.KindChoice, Choices: []string{"debug", "release"}, Default: "debug"}))
	require.NoError(t, reg.RegisterKey(&env.KeySchema{Name: "cc", Kind: env.KindString, Default: "gcc"}))
	require.NoError(t, reg.RegisterKey(&env.KeySchema{Name: "lto", Kind: env.KindBool, Default: false}))
	require.NoError(t, reg.RegisterKey(&env.KeySchema{Name: "jobs", Kind: env.KindInt, Default: 1}))
	require.NoError(t, reg.RegisterKey(&env.KeySchema{Name: "target_arch", Kind: env.KindChoice, Choices: []string{"x86_64", "arm"}}))

	return reg
}

func TestRegisterKeyDuplicate(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)

	// Identical re-registration is a no-op.
	err := reg.RegisterKey(&env.KeySchema{Name: "cc", Kind: env.KindString, Default: "gcc"})
	require.NoError(t, err)

	// A different shape under the same name is rejected.
	err = reg.RegisterKey(&env.KeySchema{Name: "cc", Kind: env.KindList, Default: []string{}})
	require.Error(t, err)

	var duplicate env.DuplicateKeyError
	assert.ErrorAs(t, err, &duplicate)
}

func TestLookupDefaults(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)
	empty := env.Empty(reg)

	value, err := empty.Lookup("opt")
	require.NoError(t, err)
	assert.Equal(t, "debug", value)

	value, err = empty.Lookup("jobs")
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)

	_, err = empty.Lookup("no_such_key")
	var unknown env.UnknownKeyError
	assert.ErrorAs(t, err, &unknown)

	// target_arch has no default, so it is a free key in the empty environment.
	_, err = empty.Lookup("target_arch")
	var missing env.MissingKeyError
	assert.ErrorAs(t, err, &missing)
}

func TestSetValidates(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)
	empty := env.Empty(reg)

	_, err := empty.Set("opt", "blazing")
	var mismatch env.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)

	_, err = empty.Set("c_flags", "not-a-list")
	require.ErrorAs(t, err, &mismatch)

	withOpt, err := empty.Set("opt", "release")
	require.NoError(t, err)

	value, err := withOpt.Lookup("opt")
	require.NoError(t, err)
	assert.Equal(t, "release", value)

	// The original environment is untouched.
	value, err = empty.Lookup("opt")
	require.NoError(t, err)
	assert.Equal(t, "debug", value)
}

func TestFingerprintCanonicality(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)

	// Sets hash in sorted order, so insertion order must not matter.
	first, err := env.Build(reg, map[string]any{"defines": []string{"B", "A"}})
	require.NoError(t, err)

	second, err := env.Build(reg, map[string]any{"defines": []string{"A", "B"}})
	require.NoError(t, err)

	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
	assert.True(t, first.Equal(second))

	// Lists hash in given order, so order must matter.
	ordered, err := env.Build(reg, map[string]any{"c_flags": []string{"-O2", "-g"}})
	require.NoError(t, err)

	reversed, err := env.Build(reg, map[string]any{"c_flags": []string{"-g", "-O2"}})
	require.NoError(t, err)

	assert.NotEqual(t, ordered.Fingerprint(), reversed.Fingerprint())
	assert.False(t, ordered.Equal(reversed))
}

func TestFingerprintIsStable(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)

	e, err := env.Build(reg, map[string]any{
		"c_flags": []string{"-O2"},
		"opt":     "release",
		"lto":     true,
		"jobs":    4,
	})
	require.NoError(t, err)

	again, err := env.Build(reg, map[string]any{
		"jobs":    4,
		"lto":     true,
		"opt":     "release",
		"c_flags": []string{"-O2"},
	})
	require.NoError(t, err)

	assert.Equal(t, e.Fingerprint(), again.Fingerprint())
	assert.Len(t, e.Fingerprint(), env.FingerprintLen)
	assert.NotEqual(t, env.Empty(reg).Fingerprint(), e.Fingerprint())
}

func TestSubset(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)

	e, err := env.Build(reg, map[string]any{
		"c_flags": []string{"-O2"},
		"opt":     "release",
		"cc":      "clang",
	})
	require.NoError(t, err)

	narrowed := e.Subset([]string{"c_flags", "opt"})
	assert.Equal(t, []string{"c_flags", "opt"}, narrowed.Keys())

	// Subsetting to the same keys from different environments converges the fingerprint.
	other, err := env.Build(reg, map[string]any{
		"c_flags": []string{"-O2"},
		"opt":     "release",
		"cc":      "tcc",
		"jobs":    8,
	})
	require.NoError(t, err)

	assert.NotEqual(t, e.Fingerprint(), other.Fingerprint())
	assert.Equal(t, narrowed.Fingerprint(), other.Subset([]string{"c_flags", "opt"}).Fingerprint())

	// Subsetting on an absent key simply omits it.
	assert.Equal(t, []string{}, e.Subset([]string{"jobs"}).Keys())
}

func TestSetNormalization(t *testing.T) {
	t.Parallel()

	reg := env.NewRegistry()
	require.NoError(t, reg.RegisterKey(&env.KeySchema{Name: "warnings", Kind: env.KindList, Default: []string{}, Normalize: "dedup_adjacent"}))

	// Normalization applies at hash time, so adjacent duplicates do not change identity.
	first, err := env.Build(reg, map[string]any{"warnings": []string{"-Wall", "-Wall", "-Wextra"}})
	require.NoError(t, err)

	second, err := env.Build(reg, map[string]any{"warnings": []string{"-Wall", "-Wextra"}})
	require.NoError(t, err)

	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
}

func TestUnknownNormalize(t *testing.T) {
	t.Parallel()

	reg := env.NewRegistry()
	err := reg.RegisterKey(&env.KeySchema{Name: "warnings", Kind: env.KindList, Normalize: "no_such"})
	require.Error(t, err)

	var unknown env.UnknownNormalizeError
	assert.ErrorAs(t, err, &unknown)
}

func TestSetUniqueness(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)

	e, err := env.Build(reg, map[string]any{"defines": []string{"A", "B", "A"}})
	require.NoError(t, err)

	value, err := e.Lookup("defines")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, value)
}
