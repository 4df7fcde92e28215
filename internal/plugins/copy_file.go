package plugins

import (
	"path"

	"github.com/quarry-build/quarry/config"
	"github.com/quarry-build/quarry/internal/env"
	"github.com/quarry-build/quarry/internal/graph"
)

// copyRule is the one command shape every copy_file product shares.
var copyRule = &graph.Rule{
	Name:        "copy",
	Command:     "cp $in $out",
	Description: "COPY $out",
}

// copyFilePlugin copies each source into the target's output directory. The copy depends on no environment keys, so
// its products narrow to the empty environment and collapse across parameterizations.
type copyFilePlugin struct{}

func (p *copyFilePlugin) Name() string {
	return "copy_file"
}

type copyFileOptions struct {
	CommonOptions `mapstructure:",squash"`
}

func (p *copyFilePlugin) NewTarget(pctx *Context, name string, options map[string]any) (*graph.Target, error) {
	opts := copyFileOptions{}
	if err := config.DecodeOptions(options, &opts); err != nil {
		return nil, err
	}

	target, sources, err := newTargetBase(pctx, p.Name(), name, opts.CommonOptions)
	if err != nil {
		return nil, err
	}

	// The copied bytes depend only on keys the source paths interpolate, usually none.
	var narrowKeys []string
	for _, source := range sources {
		narrowKeys = append(narrowKeys, env.InterpolationKeys(source.Path)...)
	}

	target.Generate = func(bctx graph.BuildContext) (*graph.Generated, error) {
		inputs, err := resolveSourceInputs(bctx, sources)
		if err != nil {
			return nil, err
		}

		narrowed := bctx.Local().Subset(narrowKeys)

		products := make([]*graph.Product, 0, len(inputs))

		for _, input := range inputs {
			products = append(products, &graph.Product{
				Target:  target.Ref,
				Env:     narrowed,
				Inputs:  []string{input},
				Outputs: []string{bctx.OutPath(path.Base(input))},
				Rule:    copyRule,
				Command: []string{"cp", input, bctx.OutPath(path.Base(input))},
			})
		}

		return &graph.Generated{Products: products}, nil
	}

	return target, nil
}
