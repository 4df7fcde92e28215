// Package config loads the project root description and provides the evaluation context description files are parsed
// in.
package config

import (
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/quarry-build/quarry/config/hclparse"
	"github.com/quarry-build/quarry/internal/delta"
	"github.com/quarry-build/quarry/internal/env"
	"github.com/quarry-build/quarry/internal/errors"
	"github.com/quarry-build/quarry/options"
	"github.com/quarry-build/quarry/pkg/log"
	"github.com/quarry-build/quarry/util"
)

const (
	// DefaultProjectConfigPath is the description file at the project root.
	DefaultProjectConfigPath = "quarry.hcl"

	// DefaultPackageConfigPath is the description file in each package directory.
	DefaultPackageConfigPath = "BUILD.hcl"

	// DefaultGenDir is the generation root, relative to the project root, unless the project declares another.
	DefaultGenDir = "build"

	// DefaultBaseEnvName is the named base environment entry targets evaluate in unless the invocation selects
	// another.
	DefaultBaseEnvName = "default"

	// GenrootPrefix is the legacy spelling for generated artifacts. It is rejected in favor of '#' product
	// references.
	GenrootPrefix = "@genroot/"
)

// ProjectConfig is the decoded project root description.
type ProjectConfig struct {
	// RootDir is the absolute project root every package path is relative to.
	RootDir string

	// GenDir is the absolute generation root the manifest and all outputs live under.
	GenDir string

	// Plugins are the names of the target-kind plugins the project activates.
	Plugins []string

	// Keys is the environment-key schema registry.
	Keys *env.Registry

	// Transforms is the named transform registry deltas may reference.
	Transforms *delta.Registry

	// BaseEnvs are the named base environments declared by the project.
	BaseEnvs map[string]*env.Env

	// ConfigPath is the path of the root description file, for the regeneration rule.
	ConfigPath string
}

// BaseEnv returns the named base environment, falling back to the empty environment when the project declares no
// environment under the default name.
func (cfg *ProjectConfig) BaseEnv(name string) (*env.Env, error) {
	if e, ok := cfg.BaseEnvs[name]; ok {
		return e, nil
	}

	if name == DefaultBaseEnvName {
		return env.Empty(cfg.Keys), nil
	}

	return nil, errors.Errorf("project declares no base environment named %q", name)
}

type projectConfigFile struct {
	Project      *projectBlock      `hcl:"project,block"`
	Keys         []keyBlock         `hcl:"key,block"`
	Environments []environmentBlock `hcl:"environment,block"`
}

type projectBlock struct {
	Root    string   `hcl:"root,optional"`
	GenRoot string   `hcl:"genroot,optional"`
	Plugins []string `hcl:"plugins,optional"`
}

type keyBlock struct {
	Name      string    `hcl:"name,label"`
	Type      string    `hcl:"type"`
	Default   cty.Value `hcl:"default,optional"`
	Choices   []string  `hcl:"choices,optional"`
	Normalize string    `hcl:"normalize,optional"`
}

type environmentBlock struct {
	Name    string    `hcl:"name,label"`
	Extends string    `hcl:"extends,optional"`
	Values  cty.Value `hcl:"values,optional"`
}

// ParseProjectConfig reads and decodes the project root description at opts.ConfigPath.
func ParseProjectConfig(l log.Logger, opts *options.Options) (*ProjectConfig, error) {
	parser := NewParser(l)

	file, err := parser.ParseFromFile(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	return projectConfigFromFile(l, opts, file)
}

// NewParser returns the HCL parser configured the way every description file is parsed: diagnostics rendered to
// stderr with source context.
func NewParser(l log.Logger) *hclparse.Parser {
	parser := hclparse.NewParser(hclparse.WithLogger(l))
	hclparse.WithDiagnosticsWriter(hcl.NewDiagnosticTextWriter(os.Stderr, parser.Files(), 0, false))(parser)

	return parser
}

func projectConfigFromFile(l log.Logger, opts *options.Options, file *hclparse.File) (*ProjectConfig, error) {
	decoded := projectConfigFile{}
	if err := file.Decode(&decoded, CreateProjectEvalContext()); err != nil {
		return nil, err
	}

	cfg := &ProjectConfig{
		Keys:       env.NewRegistry(),
		Transforms: delta.NewRegistry(),
		BaseEnvs:   map[string]*env.Env{},
		ConfigPath: file.ConfigPath,
	}

	var projectRoot, projectGen string

	if decoded.Project != nil {
		projectRoot = decoded.Project.Root
		projectGen = decoded.Project.GenRoot
		cfg.Plugins = decoded.Project.Plugins
	}

	rootDir := util.FirstNonEmptyString(projectRoot, filepath.Dir(file.ConfigPath))
	genDir := util.FirstNonEmptyString(opts.GenDir, projectGen, DefaultGenDir)

	var err error

	cfg.RootDir, err = util.CanonicalPath(rootDir, filepath.Dir(file.ConfigPath))
	if err != nil {
		return nil, err
	}

	cfg.GenDir, err = util.CanonicalPath(genDir, cfg.RootDir)
	if err != nil {
		return nil, err
	}

	for _, block := range decoded.Keys {
		if err := registerKey(cfg.Keys, block); err != nil {
			return nil, err
		}
	}

	if err := buildBaseEnvs(l, cfg, decoded.Environments); err != nil {
		return nil, err
	}

	l.Debugf("Loaded project description %s: %d keys, %d base environments", file.ConfigPath, len(decoded.Keys), len(cfg.BaseEnvs))

	return cfg, nil
}

func registerKey(reg *env.Registry, block keyBlock) error {
	if env.HasInterpolation(block.Name) {
		return errors.New(StructuralInterpolationError{What: "environment key name", Value: block.Name})
	}

	kind, err := env.KindFromString(block.Type)
	if err != nil {
		return err
	}

	schema := &env.KeySchema{
		Name:      block.Name,
		Kind:      kind,
		Choices:   block.Choices,
		Normalize: block.Normalize,
	}

	if block.Default != cty.NilVal && !block.Default.IsNull() {
		value, err := CtyToGoValue(block.Default)
		if err != nil {
			return err
		}

		schema.Default = value
	}

	return errors.WithStackTrace(reg.RegisterKey(schema))
}

// buildBaseEnvs resolves environment blocks, following extends edges. Parents must be declared before the
// environments extending them.
func buildBaseEnvs(l log.Logger, cfg *ProjectConfig, blocks []environmentBlock) error {
	resolved := map[string]map[string]any{}

	for _, block := range blocks {
		if _, ok := resolved[block.Name]; ok {
			return errors.Errorf("base environment %q is declared twice", block.Name)
		}

		values := map[string]any{}

		if block.Values != cty.NilVal && !block.Values.IsNull() {
			decoded, err := CtyToGoMap(block.Values)
			if err != nil {
				return err
			}

			values = decoded
		}

		if block.Extends != "" {
			parent, ok := resolved[block.Extends]
			if !ok {
				return errors.Errorf("base environment %q extends undeclared environment %q", block.Name, block.Extends)
			}

			// The child keeps its own values; the parent fills in the rest.
			if err := mergo.Merge(&values, parent); err != nil {
				return errors.New(err)
			}
		}

		resolved[block.Name] = values

		e, err := env.Build(cfg.Keys, values)
		if err != nil {
			return err
		}

		cfg.BaseEnvs[block.Name] = e

		l.Debugf("Declared base environment %q with fingerprint %s", block.Name, e.Fingerprint())
	}

	return nil
}
