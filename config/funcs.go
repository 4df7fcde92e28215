package config

import (
	"os"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

const (
	FuncNameGetEnv = "get_env"
	FuncNameUUID   = "uuid"
)

// CreateProjectEvalContext returns the evaluation context the project root description is parsed in. Root files see
// the shared function set but no variables.
func CreateProjectEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: descriptionFunctions(),
	}
}

// CreatePackageEvalContext returns the evaluation context a package description is parsed in. Package files
// additionally see a `package` variable describing the package being loaded.
func CreatePackageEvalContext(packagePath string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: descriptionFunctions(),
		Variables: map[string]cty.Value{
			"package": cty.ObjectVal(map[string]cty.Value{
				"path": cty.StringVal(packagePath),
			}),
		},
	}
}

// descriptionFunctions is the sandboxed function set description files may call. Descriptions have no other way to
// reach the host: anything not listed here is an unknown-symbol diagnostic.
func descriptionFunctions() map[string]function.Function {
	return map[string]function.Function{
		"concat":  stdlib.ConcatFunc,
		"format":  stdlib.FormatFunc,
		"join":    stdlib.JoinFunc,
		"split":   stdlib.SplitFunc,
		"replace": stdlib.ReplaceFunc,
		"upper":   stdlib.UpperFunc,
		"lower":   stdlib.LowerFunc,
		"trim":    stdlib.TrimFunc,
		"length":  stdlib.LengthFunc,
		"range":   stdlib.RangeFunc,

		FuncNameGetEnv: wrapGetEnv(),
		FuncNameUUID:   wrapUUID(),
	}
}

// wrapGetEnv exposes process environment variables with a required fallback, so descriptions stay evaluable on
// machines that do not set the variable.
func wrapGetEnv() function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "name", Type: cty.String},
			{Name: "default", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			if value, ok := os.LookupEnv(args[0].AsString()); ok {
				return cty.StringVal(value), nil
			}

			return args[1], nil
		},
	})
}

func wrapUUID() function.Function {
	return function.New(&function.Spec{
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			return cty.StringVal(uuid.NewString()), nil
		},
	})
}
