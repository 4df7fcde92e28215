// Package hclparse wraps the HCL parser with the diagnostics handling the rest of the codebase expects: parse
// failures come back as regular errors carrying the file path, and diagnostics are rendered through a configurable
// writer.
package hclparse

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/quarry-build/quarry/pkg/log"
	"github.com/quarry-build/quarry/util"
)

// Option configures the Parser.
type Option func(*Parser)

// WithLogger sets the logger the parser narrates to.
func WithLogger(logger log.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithDiagnosticsWriter sets the writer parse diagnostics are rendered to before the error is returned.
func WithDiagnosticsWriter(writer hcl.DiagnosticWriter) Option {
	return func(p *Parser) {
		p.diagsWriter = writer
	}
}

// Parser wraps hclparse.Parser.
type Parser struct {
	parser      *hclparse.Parser
	logger      log.Logger
	diagsWriter hcl.DiagnosticWriter
}

// NewParser returns a new Parser instance with the given options.
func NewParser(opts ...Option) *Parser {
	p := &Parser{parser: hclparse.NewParser()}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ParseFromFile reads the file at the given path and parses it.
func (p *Parser) ParseFromFile(configPath string) (*File, error) {
	content, err := util.ReadFileAsString(configPath)
	if err != nil {
		return nil, err
	}

	return p.ParseFromString(content, configPath)
}

// ParseFromString parses the given content, attributing diagnostics to the given path.
func (p *Parser) ParseFromString(content, configPath string) (*File, error) {
	if p.logger != nil {
		p.logger.Debugf("Parsing description file %s", configPath)
	}

	file := &File{parser: p, ConfigPath: configPath, Content: content}

	hclFile, diags := p.parser.ParseHCL([]byte(content), configPath)
	if err := file.diagnosticsError(diags); err != nil {
		return nil, err
	}

	file.File = hclFile

	return file, nil
}

// Files returns every file the parser has seen, keyed by path. The diagnostics writer uses this to show source
// context.
func (p *Parser) Files() map[string]*hcl.File {
	return p.parser.Files()
}
