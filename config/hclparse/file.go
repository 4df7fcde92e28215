package hclparse

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/quarry-build/quarry/internal/errors"
)

// File is a parsed description file.
type File struct {
	*hcl.File

	// ConfigPath is the path diagnostics are attributed to.
	ConfigPath string

	// Content is the raw file text.
	Content string

	parser *Parser
}

// Decode decodes the file body into the given Go value, resolving expressions against the given evaluation context.
func (file *File) Decode(out any, evalContext *hcl.EvalContext) error {
	diags := gohcl.DecodeBody(file.Body, evalContext, out)

	return file.diagnosticsError(diags)
}

// Blocks returns the file's top level blocks in source order, restricted to the given schema. Unknown block types
// surface as diagnostics errors.
func (file *File) Blocks(schema *hcl.BodySchema) (hcl.Blocks, error) {
	content, diags := file.Body.Content(schema)
	if err := file.diagnosticsError(diags); err != nil {
		return nil, err
	}

	return content.Blocks, nil
}

// SyntaxBlocks returns the file's top level blocks in source order without schema validation, for callers that
// dispatch on the block type themselves.
func (file *File) SyntaxBlocks() []*hclsyntax.Block {
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil
	}

	return body.Blocks
}

// diagnosticsError renders the given diagnostics and converts them into an error carrying the file path.
func (file *File) diagnosticsError(diags hcl.Diagnostics) error {
	if diags == nil || !diags.HasErrors() {
		return nil
	}

	if file.parser != nil && file.parser.diagsWriter != nil {
		_ = file.parser.diagsWriter.WriteDiagnostics(diags)
	}

	return errors.WithStackTrace(diags)
}
