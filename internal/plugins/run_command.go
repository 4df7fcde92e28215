package plugins

import (
	"github.com/google/shlex"

	"github.com/quarry-build/quarry/config"
	"github.com/quarry-build/quarry/internal/delta"
	"github.com/quarry-build/quarry/internal/env"
	"github.com/quarry-build/quarry/internal/errors"
	"github.com/quarry-build/quarry/internal/graph"
	"github.com/quarry-build/quarry/util"
)

// shellRule runs an arbitrary command. The concrete command arrives through the per-step cmd binding.
var shellRule = &graph.Rule{
	Name:        "shell",
	Command:     "$cmd",
	Description: "GEN $out",
}

// runCommandPlugin runs one command producing the declared outputs. The command and output strings may interpolate
// environment keys; the product narrows to exactly the keys it interpolates plus the ones listed in uses.
type runCommandPlugin struct{}

func (p *runCommandPlugin) Name() string {
	return "run_command"
}

type runCommandOptions struct {
	CommonOptions `mapstructure:",squash"`

	Command string   `mapstructure:"command"`
	Outputs []string `mapstructure:"outputs"`
	Uses    []string `mapstructure:"uses"`
	Depfile string   `mapstructure:"depfile"`
	Restat  bool     `mapstructure:"restat"`

	// ExportOutputs appends the produced paths to the named list or set key in the using-environment, so
	// dependents pick the outputs up, e.g. generated sources feeding a link step.
	ExportOutputs string `mapstructure:"export_outputs"`
}

func (p *runCommandPlugin) NewTarget(pctx *Context, name string, options map[string]any) (*graph.Target, error) {
	opts := runCommandOptions{}
	if err := config.DecodeOptions(options, &opts); err != nil {
		return nil, err
	}

	target, sources, err := newTargetBase(pctx, p.Name(), name, opts.CommonOptions)
	if err != nil {
		return nil, err
	}

	if opts.Command == "" {
		return nil, errors.Errorf("target %s: run_command requires a command", target.Ref)
	}

	if len(opts.Outputs) == 0 {
		return nil, errors.Errorf("target %s: run_command requires at least one output", target.Ref)
	}

	// The product's identity must cover every key that can change its content.
	narrowKeys := append([]string{}, opts.Uses...)
	narrowKeys = append(narrowKeys, env.InterpolationKeys(opts.Command)...)

	for _, out := range opts.Outputs {
		narrowKeys = append(narrowKeys, env.InterpolationKeys(out)...)
	}

	for _, source := range sources {
		narrowKeys = append(narrowKeys, env.InterpolationKeys(source.Path)...)
	}

	narrowKeys = append(narrowKeys, env.InterpolationKeys(opts.Depfile)...)
	narrowKeys = util.RemoveDuplicatesFromList(narrowKeys)

	target.Generate = func(bctx graph.BuildContext) (*graph.Generated, error) {
		inputs, err := resolveSourceInputs(bctx, sources)
		if err != nil {
			return nil, err
		}

		command, err := bctx.Interpolate(opts.Command)
		if err != nil {
			return nil, err
		}

		argv, err := shlex.Split(command)
		if err != nil {
			return nil, errors.Errorf("target %s: cannot split command %q: %w", target.Ref, command, err)
		}

		outputs := make([]string, 0, len(opts.Outputs))

		for _, out := range opts.Outputs {
			resolved, err := bctx.Interpolate(out)
			if err != nil {
				return nil, err
			}

			outputs = append(outputs, bctx.OutPath(resolved))
		}

		depfile := ""

		if opts.Depfile != "" {
			resolved, err := bctx.Interpolate(opts.Depfile)
			if err != nil {
				return nil, err
			}

			depfile = bctx.OutPath(resolved)
		}

		product := &graph.Product{
			Target:   target.Ref,
			Env:      bctx.Local().Subset(narrowKeys),
			Inputs:   inputs,
			Outputs:  outputs,
			Rule:     shellRule,
			Command:  argv,
			Bindings: map[string]string{"cmd": command},
		}

		if depfile != "" {
			product.Bindings["depfile"] = depfile
		}

		if opts.Restat {
			product.Bindings["restat"] = "1"
		}

		using := bctx.Using()

		if opts.ExportOutputs != "" {
			exported, err := delta.Delta{{Key: opts.ExportOutputs, Kind: delta.OpAppend, Items: outputs}}.
				Apply(using, pctx.Project.Transforms)
			if err != nil {
				return nil, err
			}

			using = exported
		}

		return &graph.Generated{
			Products: []*graph.Product{product},
			Using:    using,
		}, nil
	}

	return target, nil
}
