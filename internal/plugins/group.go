package plugins

import (
	"github.com/quarry-build/quarry/config"
	"github.com/quarry-build/quarry/internal/errors"
	"github.com/quarry-build/quarry/internal/graph"
)

// groupPlugin bundles dependencies under one name. It produces nothing itself; its value is the deltas it applies to
// the environments flowing through it.
type groupPlugin struct{}

func (p *groupPlugin) Name() string {
	return "group"
}

type groupOptions struct {
	CommonOptions `mapstructure:",squash"`
}

func (p *groupPlugin) NewTarget(pctx *Context, name string, options map[string]any) (*graph.Target, error) {
	opts := groupOptions{}
	if err := config.DecodeOptions(options, &opts); err != nil {
		return nil, err
	}

	if len(opts.Sources) > 0 {
		return nil, errors.Errorf("group %q takes no sources", name)
	}

	target, _, err := newTargetBase(pctx, p.Name(), name, opts.CommonOptions)
	if err != nil {
		return nil, err
	}

	target.Generate = func(bctx graph.BuildContext) (*graph.Generated, error) {
		return &graph.Generated{}, nil
	}

	return target, nil
}
