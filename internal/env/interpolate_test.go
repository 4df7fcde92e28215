package env_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-build/quarry/internal/env"
)

func TestInterpolate(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)

	e, err := env.Build(reg, map[string]any{
		"c_flags": []string{"-O2", "-g"},
		"cc":      "tools/bin/clang.exe",
		"lto":     true,
		"jobs":    4,
	})
	require.NoError(t, err)

	testCases := []struct {
		input    string
		expected string
	}{
		{"plain", "plain"},
		{"${cc}", "tools/bin/clang.exe"},
		{"${cc|base}", "clang.exe"},
		{"${cc|dir}", "tools/bin"},
		{"${cc|stem}", "clang"},
		{"${opt|upper}", "DEBUG"},
		{"${c_flags}", "-O2 -g"},
		{"${lto}", "true"},
		{"-j${jobs}", "-j4"},
		{"${cc} ${c_flags} -o out", "tools/bin/clang.exe -O2 -g -o out"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.input, func(t *testing.T) {
			t.Parallel()

			actual, err := env.Interpolate(testCase.input, e)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, actual)
		})
	}
}

func TestInterpolateErrors(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t)
	e := env.Empty(reg)

	_, err := env.Interpolate("${no_such_key}", e)
	var unknown env.UnknownKeyError
	assert.ErrorAs(t, err, &unknown)

	_, err = env.Interpolate("${cc|no_such_filter}", e)
	var interpolation env.InterpolationError
	assert.ErrorAs(t, err, &interpolation)

	_, err = env.Interpolate("${cc", e)
	assert.ErrorAs(t, err, &interpolation)

	_, err = env.Interpolate("${}", e)
	assert.ErrorAs(t, err, &interpolation)

	// target_arch has no default, so interpolating it in the empty environment is a free-key failure.
	_, err = env.Interpolate("${target_arch}", e)
	var missing env.MissingKeyError
	assert.ErrorAs(t, err, &missing)
}

func TestHasInterpolation(t *testing.T) {
	t.Parallel()

	assert.True(t, env.HasInterpolation("${opt}"))
	assert.True(t, env.HasInterpolation("prefix-${opt}"))
	assert.False(t, env.HasInterpolation("plain"))
	assert.False(t, env.HasInterpolation("$out"))
}
