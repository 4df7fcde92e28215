package ninja

import (
	"bytes"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/quarry-build/quarry/config"
	"github.com/quarry-build/quarry/internal/errors"
	"github.com/quarry-build/quarry/internal/graph"
	"github.com/quarry-build/quarry/options"
	"github.com/quarry-build/quarry/pkg/log"
	"github.com/quarry-build/quarry/util"
)

// A comment at the top of the manifest marking it as generated.
const generatedSignature = "Generated by quarry. Do not edit."

// Emitter serializes the deduplicated product set into the manifest under the generation root.
type Emitter struct {
	logger  log.Logger
	opts    *options.Options
	project *config.ProjectConfig
}

// NewEmitter returns an emitter for the given project.
func NewEmitter(l log.Logger, opts *options.Options, project *config.ProjectConfig) *Emitter {
	return &Emitter{logger: l, opts: opts, project: project}
}

// Emit validates and writes the manifest. Products must arrive in stable order; the emitted bytes are a pure function
// of them, so re-running on an unchanged project produces a byte-identical manifest.
func (em *Emitter) Emit(products []*graph.Product, loadedFiles []string) error {
	if err := em.checkInputs(products); err != nil {
		return err
	}

	content, err := em.render(products, loadedFiles)
	if err != nil {
		return err
	}

	manifestPath := filepath.Join(em.project.GenDir, em.opts.ManifestName)

	if err := util.WriteFile(manifestPath, content); err != nil {
		return err
	}

	em.logger.Infof("Wrote %s with %d build steps", manifestPath, len(products))

	if em.opts.DumpEnv {
		if err := em.dumpEnvs(products); err != nil {
			return err
		}
	}

	return nil
}

// checkInputs enforces that every input is either produced by some product in the set or resolvable as a source file
// under the project root.
func (em *Emitter) checkInputs(products []*graph.Product) error {
	produced := map[string]bool{}

	for _, product := range products {
		for _, output := range product.Outputs {
			produced[output] = true
		}
	}

	for _, product := range products {
		for _, input := range append(slices.Clone(product.Inputs), product.OrderOnly...) {
			if produced[input] {
				continue
			}

			if util.FileExists(filepath.Join(em.project.RootDir, input)) {
				continue
			}

			return errors.New(MissingInputError{Path: input, Target: product.Target})
		}
	}

	return nil
}

func (em *Emitter) render(products []*graph.Product, loadedFiles []string) ([]byte, error) {
	buf := &bytes.Buffer{}
	nw := NewWriter(buf)

	// Everything below is written relative to the generation root; sources reach back to the project root.
	srcPrefix, err := util.GetPathRelativeTo(em.project.RootDir, em.project.GenDir)
	if err != nil {
		return nil, err
	}

	produced := map[string]bool{}

	for _, product := range products {
		for _, output := range product.Outputs {
			produced[output] = true
		}
	}

	fromGenDir := func(path string) string {
		if produced[path] {
			return path
		}

		return util.JoinPath(srcPrefix, path)
	}

	if err := nw.Comment(generatedSignature); err != nil {
		return nil, err
	}

	if err := nw.Newline(); err != nil {
		return nil, err
	}

	if err := em.renderRegeneration(nw, loadedFiles, srcPrefix); err != nil {
		return nil, err
	}

	rules, err := collectRules(products)
	if err != nil {
		return nil, err
	}

	for _, rule := range rules {
		if err := nw.Newline(); err != nil {
			return nil, err
		}

		if err := nw.Rule(rule); err != nil {
			return nil, err
		}
	}

	for _, product := range products {
		if err := nw.Newline(); err != nil {
			return nil, err
		}

		inputs := make([]string, 0, len(product.Inputs))
		for _, input := range product.Inputs {
			inputs = append(inputs, fromGenDir(input))
		}

		orderOnly := make([]string, 0, len(product.OrderOnly))
		for _, input := range product.OrderOnly {
			orderOnly = append(orderOnly, fromGenDir(input))
		}

		if err := nw.Build(product.Outputs, product.Rule.Name, inputs, orderOnly, product.Bindings); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// renderRegeneration writes the rule that rebuilds the manifest when any description file changes.
func (em *Emitter) renderRegeneration(nw *Writer, loadedFiles []string, srcPrefix string) error {
	regen := &graph.Rule{
		Name:        "regen",
		Command:     fmt.Sprintf("quarry generate --working-dir %s", escapePath(em.project.RootDir)),
		Description: "REGEN $out",
		Generator:   true,
	}

	if err := nw.Rule(regen); err != nil {
		return err
	}

	if err := nw.Newline(); err != nil {
		return err
	}

	inputs := make([]string, 0, len(loadedFiles))

	for _, file := range loadedFiles {
		rel, err := util.GetPathRelativeTo(file, em.project.GenDir)
		if err != nil {
			return err
		}

		inputs = append(inputs, rel)
	}

	slices.Sort(inputs)

	return nw.Build([]string{em.opts.ManifestName}, regen.Name, inputs, nil, nil)
}

// collectRules gathers the distinct rules the products reference, sorted by name. Two products referencing the same
// rule name must agree on its definition.
func collectRules(products []*graph.Product) ([]*graph.Rule, error) {
	byName := map[string]*graph.Rule{}

	for _, product := range products {
		existing, ok := byName[product.Rule.Name]
		if !ok {
			byName[product.Rule.Name] = product.Rule
			continue
		}

		if *existing != *product.Rule {
			return nil, errors.Errorf("rule %q is defined with two different command shapes", product.Rule.Name)
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}

	slices.Sort(names)

	rules := make([]*graph.Rule, 0, len(names))
	for _, name := range names {
		rules = append(rules, byName[name])
	}

	return rules, nil
}
