// Package loader discovers and evaluates package description files. Starting from the packages of the requested
// targets it pulls in every package reachable through dependency references, producing the abstract target graph.
package loader

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/quarry-build/quarry/config"
	"github.com/quarry-build/quarry/config/hclparse"
	"github.com/quarry-build/quarry/internal/errors"
	"github.com/quarry-build/quarry/internal/graph"
	"github.com/quarry-build/quarry/internal/ident"
	"github.com/quarry-build/quarry/internal/plugins"
	"github.com/quarry-build/quarry/pkg/log"
	"github.com/quarry-build/quarry/util"
)

// Loader drives package discovery.
type Loader struct {
	logger   log.Logger
	project  *config.ProjectConfig
	registry *graph.Registry
	plugins  map[string]plugins.Plugin
	parser   *hclparse.Parser

	loadedFiles []string
}

// New returns a loader for the given project. The project's activated plugins are resolved here, so a root
// description naming an unavailable plugin fails before any package is read.
func New(l log.Logger, project *config.ProjectConfig) (*Loader, error) {
	active, err := plugins.Active(project.Plugins)
	if err != nil {
		return nil, err
	}

	plugins.RegisterTransforms(project.Transforms)

	return &Loader{
		logger:      l,
		project:     project,
		registry:    graph.NewRegistry(),
		plugins:     active,
		parser:      config.NewParser(l),
		loadedFiles: []string{project.ConfigPath},
	}, nil
}

// Load pulls in every package reachable from the given entry targets and returns the frozen registry. Static
// dependency cycles are permitted here; they are detected during evaluation if they are cycles in the concrete graph
// as well.
func (loader *Loader) Load(entries []ident.Ref) (*graph.Registry, error) {
	queue := make([]string, 0, len(entries))

	for _, entry := range entries {
		queue = append(queue, entry.Package)
	}

	for len(queue) > 0 {
		packagePath := queue[0]
		queue = queue[1:]

		if loader.registry.HasPackage(packagePath) {
			continue
		}

		deps, err := loader.loadPackage(packagePath)
		if err != nil {
			return nil, err
		}

		queue = append(queue, deps...)
	}

	loader.registry.Freeze()

	return loader.registry, nil
}

// LoadAll walks the project tree for package description files and loads every package it finds, for invocations
// that name no targets.
func (loader *Loader) LoadAll() (*graph.Registry, error) {
	var packagePaths []string

	err := filepath.WalkDir(loader.project.RootDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			// Never descend into the generation root.
			if abs, _ := util.CanonicalPath(path, ""); abs == loader.project.GenDir {
				return filepath.SkipDir
			}

			return nil
		}

		if entry.Name() != config.DefaultPackageConfigPath {
			return nil
		}

		rel, err := util.GetPathRelativeTo(filepath.Dir(path), loader.project.RootDir)
		if err != nil {
			return err
		}

		if rel != "." {
			packagePaths = append(packagePaths, rel)
		}

		return nil
	})
	if err != nil {
		return nil, errors.New(err)
	}

	slices.Sort(packagePaths)

	entries := make([]ident.Ref, 0, len(packagePaths))
	for _, packagePath := range packagePaths {
		entries = append(entries, ident.Ref{Package: packagePath, Target: "all"})
	}

	return loader.Load(entries)
}

// LoadedFiles returns every description file the loader read, for the manifest regeneration rule.
func (loader *Loader) LoadedFiles() []string {
	return slices.Clone(loader.loadedFiles)
}

// loadPackage evaluates one package description and returns the package paths its targets reference.
func (loader *Loader) loadPackage(packagePath string) ([]string, error) {
	if _, err := loader.registry.EnsurePackage(packagePath); err != nil {
		return nil, err
	}

	configPath := util.JoinPath(loader.project.RootDir, packagePath, config.DefaultPackageConfigPath)

	if !util.FileExists(configPath) {
		// The package stays empty; a dependency on it surfaces as an unknown target during evaluation.
		loader.logger.Debugf("Package //%s has no %s", packagePath, config.DefaultPackageConfigPath)
		return nil, nil
	}

	loader.logger.Debugf("Loading package //%s", packagePath)

	file, err := loader.parser.ParseFromFile(configPath)
	if err != nil {
		return nil, errors.New(DescriptionError{Path: configPath, Err: err})
	}

	loader.loadedFiles = append(loader.loadedFiles, configPath)

	evalContext := config.CreatePackageEvalContext(packagePath)

	var depPackages []string

	for _, block := range file.SyntaxBlocks() {
		plugin, ok := loader.plugins[block.Type]
		if !ok {
			return nil, errors.New(UnknownSymbolError{Path: configPath, Symbol: block.Type, Range: block.DefRange()})
		}

		if len(block.Labels) != 1 {
			return nil, errors.New(DescriptionError{
				Path: configPath,
				Err:  errors.Errorf("a %s block requires exactly one label, the target name", block.Type),
			})
		}

		options, err := evaluateBlockOptions(block, evalContext)
		if err != nil {
			return nil, errors.New(DescriptionError{Path: configPath, Err: err})
		}

		pctx := &plugins.Context{
			PackagePath: packagePath,
			Project:     loader.project,
			Logger:      loader.logger,
		}

		target, err := plugin.NewTarget(pctx, block.Labels[0], options)
		if err != nil {
			var structural config.StructuralInterpolationError
			if errors.As(err, &structural) && structural.Range.Filename == "" {
				structural.Range = block.DefRange()
				err = structural
			}

			return nil, errors.New(DescriptionError{Path: configPath, Err: err})
		}

		if err := loader.registry.AddTarget(target); err != nil {
			return nil, errors.New(DescriptionError{Path: configPath, Err: err})
		}

		loader.logger.Debugf("Registered target %s", target.Ref)

		for _, dep := range target.Deps {
			depPackages = append(depPackages, dep.Package)
		}
	}

	return depPackages, nil
}
