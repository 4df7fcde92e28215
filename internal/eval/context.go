package eval

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/mattn/go-zglob"

	"github.com/quarry-build/quarry/internal/env"
	"github.com/quarry-build/quarry/internal/errors"
	"github.com/quarry-build/quarry/internal/graph"
	"github.com/quarry-build/quarry/internal/ident"
	"github.com/quarry-build/quarry/pkg/log"
	"github.com/quarry-build/quarry/util"
)

// buildContext is the evaluator's implementation of graph.BuildContext for one evaluation task.
type buildContext struct {
	ev      *Evaluator
	target  *graph.Target
	local   *env.Env
	using   *env.Env
	envDown *env.Env
}

func (bctx *buildContext) Local() *env.Env {
	return bctx.local
}

func (bctx *buildContext) Using() *env.Env {
	return bctx.using
}

func (bctx *buildContext) Logger() log.Logger {
	return bctx.ev.logger
}

// Interpolate resolves ${key} expressions against the local environment. Results are memoized per (environment,
// string), since the same spelling recurs across the parameterized graph.
func (bctx *buildContext) Interpolate(s string) (string, error) {
	if !env.HasInterpolation(s) {
		return s, nil
	}

	cacheKey := bctx.local.Fingerprint() + "|" + s

	if cached, ok := bctx.ev.interpolations.Get(context.Background(), cacheKey); ok {
		return cached, nil
	}

	resolved, err := env.Interpolate(s, bctx.local)
	if err != nil {
		return "", err
	}

	bctx.ev.interpolations.Put(context.Background(), cacheKey, resolved)

	return resolved, nil
}

func (bctx *buildContext) SourcePath(rel string) string {
	return util.JoinPath(bctx.target.Ref.Package, rel)
}

// GlobSources expands a glob pattern against the project tree and returns sorted project-root-relative matches.
func (bctx *buildContext) GlobSources(pattern string) ([]string, error) {
	abs := filepath.Join(bctx.ev.project.RootDir, bctx.target.Ref.Package, pattern)

	matches, err := zglob.Glob(abs)
	if err != nil {
		return nil, errors.Errorf("target %s: cannot expand glob %q: %w", bctx.target.Ref, pattern, err)
	}

	out := make([]string, 0, len(matches))

	for _, match := range matches {
		rel, err := util.GetPathRelativeTo(match, bctx.ev.project.RootDir)
		if err != nil {
			return nil, err
		}

		out = append(out, rel)
	}

	slices.Sort(out)

	return out, nil
}

func (bctx *buildContext) DependencyOutput(ref ident.Ref) (string, error) {
	return bctx.ev.dependencyOutput(bctx, ref)
}

func (bctx *buildContext) OutPath(parts ...string) string {
	elements := append([]string{bctx.target.Ref.Package, bctx.target.Ref.Target}, parts...)
	return util.JoinPath(elements...)
}
