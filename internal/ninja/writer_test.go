package ninja

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-build/quarry/internal/graph"
)

func TestWriterRule(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	nw := NewWriter(buf)

	require.NoError(t, nw.Rule(&graph.Rule{
		Name:        "shell",
		Command:     "$cmd",
		Description: "GEN $out",
		Restat:      true,
	}))

	assert.Equal(t, "rule shell\n  command = $cmd\n  description = GEN $out\n  restat = 1\n", buf.String())
}

func TestWriterBuild(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	nw := NewWriter(buf)

	require.NoError(t, nw.Build(
		[]string{"lib/foo/foo.o"},
		"shell",
		[]string{"../lib/foo.c"},
		[]string{"gen/codegen/tables.c"},
		map[string]string{"cmd": "cc -c $in -o $out"},
	))

	expected := "build lib/foo/foo.o: shell ../lib/foo.c || gen/codegen/tables.c\n  cmd = cc -c $in -o $out\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriterBuildBindingsAreSorted(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	nw := NewWriter(buf)

	require.NoError(t, nw.Build(
		[]string{"out"},
		"shell",
		nil,
		nil,
		map[string]string{"restat": "1", "cmd": "gen", "depfile": "out.d"},
	))

	assert.Equal(t, "build out: shell\n  cmd = gen\n  depfile = out.d\n  restat = 1\n", buf.String())
}

func TestEscapePath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		path     string
		expected string
	}{
		{"plain/path.c", "plain/path.c"},
		{"with space.c", "with$ space.c"},
		{"drive:file", "drive$:file"},
		{"cost$file", "cost$$file"},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.expected, escapePath(testCase.path), "for path %s", testCase.path)
	}
}

func TestCollectRules(t *testing.T) {
	t.Parallel()

	copyRule := &graph.Rule{Name: "copy", Command: "cp $in $out"}
	shellRule := &graph.Rule{Name: "shell", Command: "$cmd"}

	products := []*graph.Product{
		{Rule: shellRule},
		{Rule: copyRule},
		{Rule: shellRule},
	}

	rules, err := collectRules(products)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "copy", rules[0].Name)
	assert.Equal(t, "shell", rules[1].Name)

	// Two definitions under one name are rejected.
	conflicting := []*graph.Product{
		{Rule: copyRule},
		{Rule: &graph.Rule{Name: "copy", Command: "install $in $out"}},
	}

	_, err = collectRules(conflicting)
	assert.Error(t, err)
}
