// Package plugins implements the builtin target kinds. A plugin turns one description block into a target: it decodes
// the block's options, resolves the dependency references, and installs the generator that later derives products.
package plugins

import (
	"fmt"
	"slices"
	"strings"

	"github.com/quarry-build/quarry/config"
	"github.com/quarry-build/quarry/internal/delta"
	"github.com/quarry-build/quarry/internal/env"
	"github.com/quarry-build/quarry/internal/errors"
	"github.com/quarry-build/quarry/internal/graph"
	"github.com/quarry-build/quarry/internal/ident"
	"github.com/quarry-build/quarry/pkg/log"
)

// Context is what a plugin gets to work with while building a target.
type Context struct {
	// PackagePath of the description file being loaded.
	PackagePath string

	// Project is the loaded project configuration.
	Project *config.ProjectConfig

	// Logger narrates at debug level.
	Logger log.Logger
}

// Plugin builds targets of one kind.
type Plugin interface {
	// Name is the block type the plugin claims in description files.
	Name() string

	// NewTarget builds a target from the evaluated options of one description block.
	NewTarget(pctx *Context, name string, options map[string]any) (*graph.Target, error)
}

var builtins = []Plugin{
	&copyFilePlugin{},
	&runCommandPlugin{},
	&groupPlugin{},
}

// Active resolves the plugin names a project activates into plugin instances.
func Active(names []string) (map[string]Plugin, error) {
	active := map[string]Plugin{}

	for _, name := range names {
		found := false

		for _, plugin := range builtins {
			if plugin.Name() == name {
				active[name] = plugin
				found = true

				break
			}
		}

		if !found {
			return nil, errors.New(UnknownPluginError{Name: name})
		}
	}

	return active, nil
}

// RegisterTransforms installs the transforms the builtin plugins rely on into the project's registry.
func RegisterTransforms(reg *delta.Registry) {
	reg.Register("sort", func(schema *env.KeySchema, value any) (any, error) {
		items, ok := value.([]string)
		if !ok {
			return nil, errors.Errorf("sort requires a list or set value")
		}

		out := slices.Clone(items)
		slices.Sort(out)

		return out, nil
	})

	reg.Register("clear", func(schema *env.KeySchema, value any) (any, error) {
		switch schema.Kind {
		case env.KindList, env.KindSet:
			return []string{}, nil
		default:
			return nil, errors.Errorf("clear requires a list or set value")
		}
	})
}

// CommonOptions are the options every target kind understands.
type CommonOptions struct {
	Sources  []string       `mapstructure:"sources"`
	Deps     []string       `mapstructure:"deps"`
	Local    map[string]any `mapstructure:"local"`
	Down     map[string]any `mapstructure:"down"`
	Extra    map[string]any `mapstructure:"extra"`
	Using    map[string]any `mapstructure:"using"`
	Abstract bool           `mapstructure:"abstract"`
}

// newTargetBase decodes the common options into a target skeleton: identifier, dependency edges, and the three
// deltas. The caller fills in the kind and generator.
func newTargetBase(pctx *Context, kind, name string, common CommonOptions) (*graph.Target, []sourceEntry, error) {
	if env.HasInterpolation(name) {
		return nil, nil, errors.New(config.StructuralInterpolationError{What: "target name", Value: name})
	}

	ref := ident.Ref{Package: pctx.PackagePath, Target: name}

	target := &graph.Target{
		Ref:      ref,
		Kind:     kind,
		Abstract: common.Abstract,
	}

	var err error

	if target.Local, err = config.DeltaFromValue(common.Local); err != nil {
		return nil, nil, err
	}

	if common.Down != nil && common.Extra != nil {
		return nil, nil, errors.Errorf("target %s sets both 'down' and 'extra'; they are aliases, use one", ref)
	}

	down := common.Down
	if down == nil {
		down = common.Extra
	}

	if target.Down, err = config.DeltaFromValue(down); err != nil {
		return nil, nil, err
	}

	if target.Using, err = config.DeltaFromValue(common.Using); err != nil {
		return nil, nil, err
	}

	for _, dep := range common.Deps {
		if env.HasInterpolation(dep) {
			return nil, nil, errors.New(config.StructuralInterpolationError{What: "dependency identifier", Value: dep})
		}

		depRef, err := ident.Parse(dep, pctx.PackagePath)
		if err != nil {
			return nil, nil, errors.New(err)
		}

		target.Deps = append(target.Deps, depRef)
	}

	sources, err := classifySources(pctx.PackagePath, common.Sources)
	if err != nil {
		return nil, nil, errors.Errorf("target %s: %w", ref, err)
	}

	for _, source := range sources {
		if source.IsRef {
			target.Deps = append(target.Deps, source.Ref)
		}
	}

	return target, sources, nil
}

// sourceEntry is one element of a target's sources list: either a plain source path or a product reference.
type sourceEntry struct {
	Path  string
	Ref   ident.Ref
	IsRef bool
}

func classifySources(packagePath string, sources []string) ([]sourceEntry, error) {
	out := make([]sourceEntry, 0, len(sources))

	for _, source := range sources {
		switch {
		case strings.HasPrefix(source, config.GenrootPrefix):
			return nil, errors.Errorf("source %q uses the deprecated generated-artifact prefix, use a '#' product reference instead", source)

		case strings.HasPrefix(source, "//") || strings.HasPrefix(source, ":"):
			if env.HasInterpolation(source) {
				return nil, errors.New(config.StructuralInterpolationError{What: "product reference", Value: source})
			}

			ref, err := ident.Parse(source, packagePath)
			if err != nil {
				return nil, errors.New(err)
			}

			if !ref.IsProduct() {
				return nil, errors.Errorf("source reference %q must name an output, e.g. %s#file", source, ref)
			}

			out = append(out, sourceEntry{Ref: ref, IsRef: true})

		default:
			out = append(out, sourceEntry{Path: source})
		}
	}

	return out, nil
}

// resolveSourceInputs turns the source entries into concrete input paths for one evaluation: plain paths are
// interpolated, globbed and resolved against the package, product references are bound to the referenced target's
// outputs.
func resolveSourceInputs(bctx graph.BuildContext, sources []sourceEntry) ([]string, error) {
	var inputs []string

	for _, source := range sources {
		if source.IsRef {
			input, err := bctx.DependencyOutput(source.Ref)
			if err != nil {
				return nil, err
			}

			inputs = append(inputs, input)

			continue
		}

		resolved, err := bctx.Interpolate(source.Path)
		if err != nil {
			return nil, err
		}

		if strings.ContainsAny(resolved, "*?[{") {
			matches, err := bctx.GlobSources(resolved)
			if err != nil {
				return nil, err
			}

			inputs = append(inputs, matches...)

			continue
		}

		inputs = append(inputs, bctx.SourcePath(resolved))
	}

	return inputs, nil
}

// UnknownPluginError is returned when a project activates a plugin this build does not provide.
type UnknownPluginError struct {
	Name string
}

func (err UnknownPluginError) Error() string {
	names := make([]string, 0, len(builtins))
	for _, plugin := range builtins {
		names = append(names, plugin.Name())
	}

	return fmt.Sprintf("unknown plugin %q, available plugins: %s", err.Name, strings.Join(names, ", "))
}
