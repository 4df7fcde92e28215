// Package ident parses and canonicalizes target and product references.
//
// Three textual forms resolve to the same canonical value:
//
//	//pkg/path:name          absolute
//	:name                    same package as the referring description
//	//pkg/path/name          abbreviated, expands to //pkg/path/name:name
//
// A product reference extends the colon form with a relative output path: //pkg/path:name#out/file.
package ident

import (
	"fmt"
	"strings"
)

// Ref is the canonical identifier of a target, or of one of its outputs when Output is set.
type Ref struct {
	// Package is the project-relative slash-delimited package path.
	Package string

	// Target is the name of the target within the package.
	Target string

	// Output is the output path within the target's products, empty for plain target references.
	Output string
}

// Parse resolves the given textual reference against the package the reference appears in. It validates syntax only;
// whether the target exists is checked during evaluation.
func Parse(ref string, currentPackage string) (Ref, error) {
	raw := ref

	var output string
	if hash := strings.Index(ref, "#"); hash >= 0 {
		output = ref[hash+1:]
		ref = ref[:hash]

		if !strings.Contains(ref, ":") {
			return Ref{}, MalformedRefError{Ref: raw, Reason: "a product reference requires the colon form before '#'"}
		}

		if err := validateOutputPath(output); err != nil {
			return Ref{}, MalformedRefError{Ref: raw, Reason: err.Error()}
		}
	}

	switch {
	case strings.HasPrefix(ref, "//"):
		body := ref[2:]

		if pkg, name, ok := strings.Cut(body, ":"); ok {
			if err := validatePackagePath(pkg); err != nil {
				return Ref{}, MalformedRefError{Ref: raw, Reason: err.Error()}
			}

			if err := validateTargetName(name); err != nil {
				return Ref{}, MalformedRefError{Ref: raw, Reason: err.Error()}
			}

			return Ref{Package: pkg, Target: name, Output: output}, nil
		}

		// Abbreviated form: the trailing path component doubles as the target name.
		if err := validatePackagePath(body); err != nil {
			return Ref{}, MalformedRefError{Ref: raw, Reason: err.Error()}
		}

		name := body
		if slash := strings.LastIndex(body, "/"); slash >= 0 {
			name = body[slash+1:]
		}

		return Ref{Package: body, Target: name, Output: output}, nil

	case strings.HasPrefix(ref, ":"):
		if currentPackage == "" {
			return Ref{}, MalformedRefError{Ref: raw, Reason: "a same-package reference requires a package context"}
		}

		name := ref[1:]
		if err := validateTargetName(name); err != nil {
			return Ref{}, MalformedRefError{Ref: raw, Reason: err.Error()}
		}

		return Ref{Package: currentPackage, Target: name, Output: output}, nil

	default:
		return Ref{}, MalformedRefError{Ref: raw, Reason: "a reference must begin with '//' or ':'"}
	}
}

// String returns the canonical text of the reference. Parsing the result yields an equal Ref.
func (ref Ref) String() string {
	out := "//" + ref.Package + ":" + ref.Target
	if ref.Output != "" {
		out += "#" + ref.Output
	}

	return out
}

// WithoutOutput strips the product portion, leaving the target reference.
func (ref Ref) WithoutOutput() Ref {
	ref.Output = ""
	return ref
}

// IsProduct reports whether the reference names a product rather than a bare target.
func (ref Ref) IsProduct() bool {
	return ref.Output != ""
}

func validatePackagePath(pkg string) error {
	if pkg == "" {
		return fmt.Errorf("empty package path")
	}

	for _, segment := range strings.Split(pkg, "/") {
		if err := validatePathSegment(segment); err != nil {
			return fmt.Errorf("invalid package path %q: %w", pkg, err)
		}
	}

	return nil
}

func validateTargetName(name string) error {
	if err := validatePathSegment(name); err != nil {
		return fmt.Errorf("invalid target name %q: %w", name, err)
	}

	return nil
}

func validateOutputPath(output string) error {
	if output == "" {
		return fmt.Errorf("empty output path after '#'")
	}

	for _, segment := range strings.Split(output, "/") {
		if err := validatePathSegment(segment); err != nil {
			return fmt.Errorf("invalid output path %q: %w", output, err)
		}
	}

	return nil
}

func validatePathSegment(segment string) error {
	if segment == "" {
		return fmt.Errorf("empty path segment")
	}

	if segment == "." || segment == ".." {
		return fmt.Errorf("relative path segment %q", segment)
	}

	for _, r := range segment {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.' || r == '+':
		default:
			return fmt.Errorf("character %q is not allowed", r)
		}
	}

	return nil
}
