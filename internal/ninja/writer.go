// Package ninja writes the downstream build manifest. The format is the Ninja file syntax: rule declarations per
// distinct command shape, build statements referencing them, and a regeneration statement that re-runs the generator
// when any description file changes.
package ninja

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/quarry-build/quarry/internal/graph"
)

// Writer emits Ninja syntax.
type Writer struct {
	w io.Writer
}

// NewWriter returns a writer emitting to the given stream.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Comment writes a comment line.
func (nw *Writer) Comment(text string) error {
	_, err := fmt.Fprintf(nw.w, "# %s\n", text)
	return err
}

// Newline writes a blank separator line.
func (nw *Writer) Newline() error {
	_, err := fmt.Fprintln(nw.w)
	return err
}

// Variable writes a top level variable binding.
func (nw *Writer) Variable(name, value string) error {
	_, err := fmt.Fprintf(nw.w, "%s = %s\n", name, value)
	return err
}

// Rule writes a rule declaration.
func (nw *Writer) Rule(rule *graph.Rule) error {
	if _, err := fmt.Fprintf(nw.w, "rule %s\n", rule.Name); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(nw.w, "  command = %s\n", rule.Command); err != nil {
		return err
	}

	if rule.Description != "" {
		if _, err := fmt.Fprintf(nw.w, "  description = %s\n", rule.Description); err != nil {
			return err
		}
	}

	if rule.Depfile != "" {
		if _, err := fmt.Fprintf(nw.w, "  depfile = %s\n", rule.Depfile); err != nil {
			return err
		}
	}

	if rule.Restat {
		if _, err := fmt.Fprintln(nw.w, "  restat = 1"); err != nil {
			return err
		}
	}

	if rule.Generator {
		if _, err := fmt.Fprintln(nw.w, "  generator = 1"); err != nil {
			return err
		}
	}

	return nil
}

// Build writes a build statement with its bindings.
func (nw *Writer) Build(outputs []string, rule string, inputs, orderOnly []string, bindings map[string]string) error {
	var sb strings.Builder

	sb.WriteString("build ")
	sb.WriteString(escapePaths(outputs))
	sb.WriteString(": ")
	sb.WriteString(rule)

	if len(inputs) > 0 {
		sb.WriteString(" ")
		sb.WriteString(escapePaths(inputs))
	}

	if len(orderOnly) > 0 {
		sb.WriteString(" || ")
		sb.WriteString(escapePaths(orderOnly))
	}

	sb.WriteString("\n")

	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(&sb, "  %s = %s\n", name, bindings[name])
	}

	_, err := io.WriteString(nw.w, sb.String())

	return err
}

func escapePaths(paths []string) string {
	escaped := make([]string, 0, len(paths))
	for _, path := range paths {
		escaped = append(escaped, escapePath(path))
	}

	return strings.Join(escaped, " ")
}

// escapePath escapes the characters Ninja treats specially in path positions.
func escapePath(path string) string {
	path = strings.ReplaceAll(path, "$", "$$")
	path = strings.ReplaceAll(path, " ", "$ ")
	path = strings.ReplaceAll(path, ":", "$:")

	return path
}
