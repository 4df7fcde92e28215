package errors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-build/quarry/internal/errors"
)

type testError struct {
	Name string
}

func (err testError) Error() string {
	return fmt.Sprintf("test error %s", err.Name)
}

func TestNewWrapsWithStack(t *testing.T) {
	t.Parallel()

	err := errors.New(testError{Name: "a"})
	require.Error(t, err)

	var unwrapped testError
	require.ErrorAs(t, err, &unwrapped)
	assert.Equal(t, "a", unwrapped.Name)

	assert.Contains(t, errors.ErrorStack(err), "test error a")
}

func TestNewIsIdempotent(t *testing.T) {
	t.Parallel()

	inner := errors.New(testError{Name: "a"})
	outer := errors.New(inner)

	// An error that already carries a stack is returned as is.
	assert.Same(t, inner, outer)
}

func TestNewNil(t *testing.T) {
	t.Parallel()

	assert.NoError(t, errors.New(nil))
	assert.NoError(t, errors.WithStackTrace(nil))
}

func TestErrorf(t *testing.T) {
	t.Parallel()

	inner := testError{Name: "inner"}
	err := errors.Errorf("loading %s: %w", "pkg", inner)

	assert.Contains(t, err.Error(), "loading pkg")

	var unwrapped testError
	assert.ErrorAs(t, err, &unwrapped)
}

func TestAppend(t *testing.T) {
	t.Parallel()

	multi := errors.Append(nil, errors.New("first"), nil, errors.New("second"))
	require.Error(t, multi)
	assert.Len(t, multi.Errors, 2)
}
