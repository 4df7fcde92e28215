// Package options holds the run options the CLI resolves before any work starts.
package options

import (
	"io"
	"os"
	"path/filepath"
)

// DefaultManifestName is the file the manifest emitter writes under the generation root.
const DefaultManifestName = "build.ninja"

// Options are the resolved settings for a single invocation.
type Options struct {
	// WorkingDir is the directory the invocation started in.
	WorkingDir string

	// ConfigPath is the path to the project root description file.
	ConfigPath string

	// GenDir overrides the project's generation root when non-empty.
	GenDir string

	// ManifestName is the name of the emitted manifest file.
	ManifestName string

	// BaseEnvName selects the named base environment entry targets evaluate in.
	BaseEnvName string

	// DumpEnv enables the diagnostic environment dump alongside the manifest.
	DumpEnv bool

	// Writer is the stream normal output goes to.
	Writer io.Writer

	// ErrWriter is the stream diagnostics go to.
	ErrWriter io.Writer
}

// NewOptions returns options with the defaults for the given working directory.
func NewOptions(workingDir string) *Options {
	return &Options{
		WorkingDir:   workingDir,
		ConfigPath:   filepath.Join(workingDir, "quarry.hcl"),
		ManifestName: DefaultManifestName,
		BaseEnvName:  "default",
		Writer:       os.Stdout,
		ErrWriter:    os.Stderr,
	}
}
