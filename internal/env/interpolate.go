package env

import (
	"path"
	"strconv"
	"strings"
)

// Interpolation expressions have the shape ${key} or ${key|filter} and are resolved against the environment a
// target's products are produced in. List and set values render space-joined.

var filters = map[string]func(string) string{
	"base":  path.Base,
	"dir":   path.Dir,
	"stem":  stem,
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
}

// HasInterpolation reports whether the string contains an interpolation expression. Structural strings (target names,
// package paths, key names) must not; callers reject them up front.
func HasInterpolation(s string) bool {
	return strings.Contains(s, "${")
}

// InterpolationKeys returns the key names referenced by interpolation expressions in the string, in order of first
// appearance. Malformed expressions are ignored here; Interpolate reports them.
func InterpolationKeys(s string) []string {
	var keys []string
	seen := map[string]bool{}

	for {
		start := strings.Index(s, "${")
		if start < 0 {
			break
		}

		s = s[start+2:]

		end := strings.Index(s, "}")
		if end < 0 {
			break
		}

		key, _, _ := strings.Cut(s[:end], "|")
		s = s[end+1:]

		key = strings.TrimSpace(key)
		if key != "" && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	return keys
}

// Interpolate resolves every ${key} and ${key|filter} expression in the string against the environment.
func Interpolate(s string, e *Env) (string, error) {
	var sb strings.Builder

	for {
		start := strings.Index(s, "${")
		if start < 0 {
			sb.WriteString(s)
			break
		}

		sb.WriteString(s[:start])
		s = s[start:]

		end := strings.Index(s, "}")
		if end < 0 {
			return "", InterpolationError{Expr: s, Reason: "missing closing '}'"}
		}

		expr := s[2:end]
		s = s[end+1:]

		resolved, err := resolveExpr(expr, e)
		if err != nil {
			return "", err
		}

		sb.WriteString(resolved)
	}

	return sb.String(), nil
}

func resolveExpr(expr string, e *Env) (string, error) {
	key, filter, hasFilter := strings.Cut(expr, "|")

	key = strings.TrimSpace(key)
	if key == "" {
		return "", InterpolationError{Expr: "${" + expr + "}", Reason: "empty key"}
	}

	value, err := e.Lookup(key)
	if err != nil {
		return "", err
	}

	rendered := renderValue(value)

	if hasFilter {
		filter = strings.TrimSpace(filter)

		fn, ok := filters[filter]
		if !ok {
			return "", InterpolationError{Expr: "${" + expr + "}", Reason: "unknown filter " + strconv.Quote(filter)}
		}

		rendered = fn(rendered)
	}

	return rendered, nil
}

func renderValue(value any) string {
	switch v := value.(type) {
	case []string:
		return strings.Join(v, " ")
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

func stem(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
