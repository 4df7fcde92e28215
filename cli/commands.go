package cli

import (
	"fmt"

	"github.com/quarry-build/quarry/config"
	"github.com/quarry-build/quarry/internal/errors"
	"github.com/quarry-build/quarry/internal/eval"
	"github.com/quarry-build/quarry/internal/graph"
	"github.com/quarry-build/quarry/internal/ident"
	"github.com/quarry-build/quarry/internal/loader"
	"github.com/quarry-build/quarry/internal/ninja"
	"github.com/quarry-build/quarry/options"
	"github.com/quarry-build/quarry/pkg/log"
)

// loadProject runs the loader pass shared by every command: parse the root description, then pull in either the
// packages of the requested targets or, with no targets named, every package in the tree.
func loadProject(l log.Logger, opts *options.Options, args []string) (*config.ProjectConfig, *loader.Loader, *graph.Registry, []ident.Ref, error) {
	project, err := config.ParseProjectConfig(l, opts)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	ld, err := loader.New(l, project)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	var entries []ident.Ref

	for _, arg := range args {
		entry, err := ident.Parse(arg, "")
		if err != nil {
			return nil, nil, nil, nil, errors.New(err)
		}

		entries = append(entries, entry)
	}

	var registry *graph.Registry

	if len(entries) > 0 {
		registry, err = ld.Load(entries)
	} else {
		registry, err = ld.LoadAll()
	}

	if err != nil {
		return nil, nil, nil, nil, err
	}

	if len(entries) == 0 {
		// With no targets named, every loaded non-abstract target is an entry point.
		for _, target := range registry.Targets() {
			if !target.Abstract {
				entries = append(entries, target.Ref)
			}
		}
	}

	return project, ld, registry, entries, nil
}

func runGenerate(l log.Logger, opts *options.Options, args []string) error {
	project, ld, registry, entries, err := loadProject(l, opts, args)
	if err != nil {
		return err
	}

	base, err := project.BaseEnv(opts.BaseEnvName)
	if err != nil {
		return err
	}

	evaluator := eval.New(l, project, registry)

	if err := evaluator.EvaluateAll(entries, base); err != nil {
		return err
	}

	emitter := ninja.NewEmitter(l, opts, project)

	return emitter.Emit(evaluator.Products(), ld.LoadedFiles())
}

func runTargets(l log.Logger, opts *options.Options, args []string) error {
	_, _, registry, _, err := loadProject(l, opts, args)
	if err != nil {
		return err
	}

	for _, target := range registry.Targets() {
		kind := target.Kind
		if target.Abstract {
			kind += " (abstract)"
		}

		if _, err := fmt.Fprintf(opts.Writer, "%s %s\n", target.Ref, kind); err != nil {
			return errors.New(err)
		}
	}

	return nil
}

func runGraph(l log.Logger, opts *options.Options, args []string) error {
	_, _, registry, _, err := loadProject(l, opts, args)
	if err != nil {
		return err
	}

	for _, target := range registry.Targets() {
		for _, dep := range target.Deps {
			if _, err := fmt.Fprintf(opts.Writer, "%s -> %s\n", target.Ref, dep); err != nil {
				return errors.New(err)
			}
		}
	}

	return nil
}
