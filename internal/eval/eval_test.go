package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-build/quarry/config"
	"github.com/quarry-build/quarry/internal/delta"
	"github.com/quarry-build/quarry/internal/env"
	"github.com/quarry-build/quarry/internal/eval"
	"github.com/quarry-build/quarry/internal/graph"
	"github.com/quarry-build/quarry/internal/ident"
	"github.com/quarry-build/quarry/pkg/log"
)

var testRule = &graph.Rule{Name: "test", Command: "$cmd"}

func newTestProject(t *testing.T) *config.ProjectConfig {
	t.Helper()

	keys := env.NewRegistry()
	require.NoError(t, keys.RegisterKey(&env.KeySchema{Name: "c_flags", Kind: env.KindList, Default: []string{}}))
	require.NoError(t, keys.RegisterKey(&env.KeySchema{Name: "defines", Kind: env.KindSet, Default: []string{}}))
	require.NoError(t, keys.RegisterKey(&env.KeySchema{Name: "opt", Kind: env.KindChoice, Choices: []string{"debug", "release"}, Default: "debug"}))
	require.NoError(t, keys.RegisterKey(&env.KeySchema{Name: "target_arch", Kind: env.KindChoice, Choices: []string{"x86_64", "arm"}}))

	dir := t.TempDir()

	return &config.ProjectConfig{
		RootDir:    dir,
		GenDir:     dir + "/build",
		Keys:       keys,
		Transforms: delta.NewRegistry(),
		BaseEnvs:   map[string]*env.Env{},
	}
}

func newLogger() log.Logger {
	return log.New(log.WithLevel(log.ErrorLevel))
}

func ref(s string) ident.Ref {
	parsed, err := ident.Parse(s, "")
	if err != nil {
		panic(err)
	}

	return parsed
}

// recordingGenerator emits one product echoing the local c_flags, and counts how often it runs.
func recordingGenerator(target ident.Ref, runs *int, flags *[]string) graph.Generator {
	return func(bctx graph.BuildContext) (*graph.Generated, error) {
		if runs != nil {
			*runs++
		}

		if flags != nil {
			value, err := bctx.Local().Lookup("c_flags")
			if err != nil {
				return nil, err
			}

			*flags = append([]string{}, value.([]string)...)
		}

		cmd, err := bctx.Interpolate("gen ${c_flags} -o $out")
		if err != nil {
			return nil, err
		}

		return &graph.Generated{
			Products: []*graph.Product{{
				Target:   target,
				Env:      bctx.Local().Subset([]string{"c_flags"}),
				Outputs:  []string{bctx.OutPath("out.o")},
				Rule:     testRule,
				Command:  []string{cmd},
				Bindings: map[string]string{"cmd": cmd},
			}},
		}, nil
	}
}

func TestDeltaPropagation(t *testing.T) {
	t.Parallel()

	project := newTestProject(t)
	registry := graph.NewRegistry()

	var libFlags, innerFlags []string

	inner := &graph.Target{
		Ref:      ref("//lib/inner:gen"),
		Kind:     "test",
		Generate: recordingGenerator(ref("//lib/inner:gen"), nil, &innerFlags),
	}
	require.NoError(t, registry.AddTarget(inner))

	lib := &graph.Target{
		Ref:      ref("//lib:foo"),
		Kind:     "test",
		Deps:     []ident.Ref{ref("//lib/inner:gen")},
		Down:     delta.Delta{{Key: "c_flags", Kind: delta.OpAppend, Items: []string{"-O2"}}},
		Generate: recordingGenerator(ref("//lib:foo"), nil, &libFlags),
	}
	require.NoError(t, registry.AddTarget(lib))

	app := &graph.Target{
		Ref:      ref("//app:bin"),
		Kind:     "test",
		Deps:     []ident.Ref{ref("//lib:foo")},
		Generate: recordingGenerator(ref("//app:bin"), nil, nil),
	}
	require.NoError(t, registry.AddTarget(app))

	registry.Freeze()

	evaluator := eval.New(newLogger(), project, registry)
	require.NoError(t, evaluator.EvaluateAll([]ident.Ref{ref("//app:bin")}, env.Empty(project.Keys)))

	// The down delta flows to dependencies, not into the target's own local environment.
	assert.Empty(t, libFlags)
	assert.Equal(t, []string{"-O2"}, innerFlags)
}

func TestDiamondDedup(t *testing.T) {
	t.Parallel()

	project := newTestProject(t)
	registry := graph.NewRegistry()

	var runs int

	shared := &graph.Target{
		Ref:      ref("//common:c"),
		Kind:     "test",
		Generate: recordingGenerator(ref("//common:c"), &runs, nil),
	}
	require.NoError(t, registry.AddTarget(shared))

	for _, name := range []string{"a", "b"} {
		target := &graph.Target{
			Ref:      ident.Ref{Package: "top", Target: name},
			Kind:     "test",
			Deps:     []ident.Ref{ref("//common:c")},
			Generate: recordingGenerator(ident.Ref{Package: "top", Target: name}, nil, nil),
		}
		require.NoError(t, registry.AddTarget(target))
	}

	registry.Freeze()

	evaluator := eval.New(newLogger(), project, registry)
	require.NoError(t, evaluator.EvaluateAll([]ident.Ref{ref("//top:a"), ref("//top:b")}, env.Empty(project.Keys)))

	// The memo serves the second arrival; the shared target evaluates exactly once.
	assert.Equal(t, 1, runs)

	var sharedProducts int

	for _, product := range evaluator.Products() {
		if product.Target == ref("//common:c") {
			sharedProducts++
		}
	}

	assert.Equal(t, 1, sharedProducts)
}

func TestMemoizationAcrossDifferentEnvs(t *testing.T) {
	t.Parallel()

	project := newTestProject(t)
	registry := graph.NewRegistry()

	var runs int

	shared := &graph.Target{
		Ref:      ref("//common:c"),
		Kind:     "test",
		Generate: recordingGenerator(ref("//common:c"), &runs, nil),
	}
	require.NoError(t, registry.AddTarget(shared))

	// a reaches c with -O2 appended, b with nothing: two distinct tasks.
	a := &graph.Target{
		Ref:      ref("//top:a"),
		Kind:     "test",
		Deps:     []ident.Ref{ref("//common:c")},
		Down:     delta.Delta{{Key: "c_flags", Kind: delta.OpAppend, Items: []string{"-O2"}}},
		Generate: recordingGenerator(ref("//top:a"), nil, nil),
	}
	require.NoError(t, registry.AddTarget(a))

	b := &graph.Target{
		Ref:      ref("//top:b"),
		Kind:     "test",
		Deps:     []ident.Ref{ref("//common:c")},
		Generate: recordingGenerator(ref("//top:b"), nil, nil),
	}
	require.NoError(t, registry.AddTarget(b))

	registry.Freeze()

	evaluator := eval.New(newLogger(), project, registry)
	err := evaluator.EvaluateAll([]ident.Ref{ref("//top:a"), ref("//top:b")}, env.Empty(project.Keys))

	assert.Equal(t, 2, runs)

	// Both tasks of c claim common/c/out.o with different commands, which the output-conflict check rejects.
	var conflict eval.ProductConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestDependencyCycle(t *testing.T) {
	t.Parallel()

	project := newTestProject(t)
	registry := graph.NewRegistry()

	a := &graph.Target{Ref: ref("//p:a"), Kind: "test", Deps: []ident.Ref{ref("//p:b")}}
	b := &graph.Target{Ref: ref("//p:b"), Kind: "test", Deps: []ident.Ref{ref("//p:a")}}
	require.NoError(t, registry.AddTarget(a))
	require.NoError(t, registry.AddTarget(b))
	registry.Freeze()

	evaluator := eval.New(newLogger(), project, registry)
	err := evaluator.EvaluateAll([]ident.Ref{ref("//p:a")}, env.Empty(project.Keys))
	require.Error(t, err)

	var cycle eval.DependencyCycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"//p:a", "//p:b", "//p:a"}, cycle.Chain)
}

func TestDiamondIsNotReportedAsCycle(t *testing.T) {
	t.Parallel()

	project := newTestProject(t)
	registry := graph.NewRegistry()

	c := &graph.Target{Ref: ref("//p:c"), Kind: "test", Generate: recordingGenerator(ref("//p:c"), nil, nil)}
	a := &graph.Target{Ref: ref("//p:a"), Kind: "test", Deps: []ident.Ref{ref("//p:c")}}
	b := &graph.Target{
		Ref:  ref("//p:b"),
		Kind: "test",
		Deps: []ident.Ref{ref("//p:a"), ref("//p:c")},
		Down: delta.Delta{{Key: "defines", Kind: delta.OpAppend, Items: []string{"X"}}},
	}

	for _, target := range []*graph.Target{a, b, c} {
		require.NoError(t, registry.AddTarget(target))
	}

	registry.Freeze()

	evaluator := eval.New(newLogger(), project, registry)
	assert.NoError(t, evaluator.EvaluateAll([]ident.Ref{ref("//p:a"), ref("//p:b")}, env.Empty(project.Keys)))
}

func TestUnknownTarget(t *testing.T) {
	t.Parallel()

	project := newTestProject(t)
	registry := graph.NewRegistry()

	a := &graph.Target{Ref: ref("//p:a"), Kind: "test", Deps: []ident.Ref{ref("//p:missing")}}
	require.NoError(t, registry.AddTarget(a))
	registry.Freeze()

	evaluator := eval.New(newLogger(), project, registry)
	err := evaluator.EvaluateAll([]ident.Ref{ref("//p:a")}, env.Empty(project.Keys))
	require.Error(t, err)

	var unknown eval.UnknownTargetError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, ref("//p:missing"), unknown.Ref)
	assert.Equal(t, []string{"//p:a"}, unknown.Chain)
}

func TestNotConcreteAbstractEntry(t *testing.T) {
	t.Parallel()

	project := newTestProject(t)
	registry := graph.NewRegistry()

	a := &graph.Target{Ref: ref("//p:a"), Kind: "test", Abstract: true}
	require.NoError(t, registry.AddTarget(a))
	registry.Freeze()

	evaluator := eval.New(newLogger(), project, registry)
	err := evaluator.EvaluateAll([]ident.Ref{ref("//p:a")}, env.Empty(project.Keys))
	require.Error(t, err)

	var notConcrete eval.NotConcreteError
	assert.ErrorAs(t, err, &notConcrete)
}

func TestNotConcreteFreeKey(t *testing.T) {
	t.Parallel()

	project := newTestProject(t)
	registry := graph.NewRegistry()

	// target_arch has no default, so interpolating it in the base environment leaves a free key.
	a := &graph.Target{
		Ref:  ref("//p:a"),
		Kind: "test",
		Generate: func(bctx graph.BuildContext) (*graph.Generated, error) {
			cmd, err := bctx.Interpolate("gen --arch ${target_arch}")
			if err != nil {
				return nil, err
			}

			return &graph.Generated{Products: []*graph.Product{{
				Target:   ref("//p:a"),
				Env:      bctx.Local().Subset([]string{"target_arch"}),
				Outputs:  []string{bctx.OutPath("out")},
				Rule:     testRule,
				Command:  []string{cmd},
				Bindings: map[string]string{"cmd": cmd},
			}}}, nil
		},
	}
	require.NoError(t, registry.AddTarget(a))
	registry.Freeze()

	evaluator := eval.New(newLogger(), project, registry)
	err := evaluator.EvaluateAll([]ident.Ref{ref("//p:a")}, env.Empty(project.Keys))
	require.Error(t, err)

	var notConcrete eval.NotConcreteError
	require.ErrorAs(t, err, &notConcrete)
	assert.Equal(t, "target_arch", notConcrete.Key)

	// The same target is buildable when the base environment pins the key.
	base, buildErr := env.Build(project.Keys, map[string]any{"target_arch": "arm"})
	require.NoError(t, buildErr)

	evaluator = eval.New(newLogger(), project, registry)
	assert.NoError(t, evaluator.EvaluateAll([]ident.Ref{ref("//p:a")}, base))
}

func TestUsingFoldLastWriterWins(t *testing.T) {
	t.Parallel()

	project := newTestProject(t)
	registry := graph.NewRegistry()

	first := &graph.Target{
		Ref:   ref("//deps:first"),
		Kind:  "test",
		Using: delta.Delta{{Key: "opt", Kind: delta.OpSet, Value: "release"}},
	}
	second := &graph.Target{
		Ref:   ref("//deps:second"),
		Kind:  "test",
		Using: delta.Delta{{Key: "opt", Kind: delta.OpSet, Value: "debug"}},
	}

	var seenOpt string

	top := &graph.Target{
		Ref:  ref("//top:bin"),
		Kind: "test",
		Deps: []ident.Ref{ref("//deps:first"), ref("//deps:second")},
		Generate: func(bctx graph.BuildContext) (*graph.Generated, error) {
			value, err := bctx.Local().Lookup("opt")
			if err != nil {
				return nil, err
			}

			seenOpt = value.(string)

			return &graph.Generated{}, nil
		},
	}

	for _, target := range []*graph.Target{first, second, top} {
		require.NoError(t, registry.AddTarget(target))
	}

	registry.Freeze()

	evaluator := eval.New(newLogger(), project, registry)
	require.NoError(t, evaluator.EvaluateAll([]ident.Ref{ref("//top:bin")}, env.Empty(project.Keys)))

	// Dependencies fold in declared order, last writer wins per key.
	assert.Equal(t, "debug", seenOpt)
}

func TestCombineDepsHook(t *testing.T) {
	t.Parallel()

	project := newTestProject(t)
	registry := graph.NewRegistry()

	dep := &graph.Target{
		Ref:   ref("//deps:dep"),
		Kind:  "test",
		Using: delta.Delta{{Key: "opt", Kind: delta.OpSet, Value: "release"}},
	}

	var seenOpt string

	top := &graph.Target{
		Ref:  ref("//top:bin"),
		Kind: "test",
		Deps: []ident.Ref{ref("//deps:dep")},
		CombineDeps: func(base *env.Env, usings []*env.Env) (*env.Env, error) {
			// Ignore whatever the dependencies surface.
			return base, nil
		},
		Generate: func(bctx graph.BuildContext) (*graph.Generated, error) {
			value, err := bctx.Local().Lookup("opt")
			if err != nil {
				return nil, err
			}

			seenOpt = value.(string)

			return &graph.Generated{}, nil
		},
	}

	require.NoError(t, registry.AddTarget(dep))
	require.NoError(t, registry.AddTarget(top))
	registry.Freeze()

	evaluator := eval.New(newLogger(), project, registry)
	require.NoError(t, evaluator.EvaluateAll([]ident.Ref{ref("//top:bin")}, env.Empty(project.Keys)))

	assert.Equal(t, "debug", seenOpt)
}

func TestProductConflict(t *testing.T) {
	t.Parallel()

	project := newTestProject(t)
	registry := graph.NewRegistry()

	// Two targets claiming the same output with different commands.
	for _, name := range []string{"a", "b"} {
		name := name
		command := []string{"gen", "-n", name}
		target := &graph.Target{
			Ref:  ident.Ref{Package: "p", Target: name},
			Kind: "test",
		}
		target.Generate = func(bctx graph.BuildContext) (*graph.Generated, error) {
			return &graph.Generated{Products: []*graph.Product{{
				Target:   target.Ref,
				Env:      bctx.Local().Subset(nil),
				Outputs:  []string{"shared/out.txt"},
				Rule:     testRule,
				Command:  command,
				Bindings: map[string]string{"cmd": "gen -n " + name},
			}}}, nil
		}
		require.NoError(t, registry.AddTarget(target))
	}

	registry.Freeze()

	evaluator := eval.New(newLogger(), project, registry)
	err := evaluator.EvaluateAll([]ident.Ref{ref("//p:a"), ref("//p:b")}, env.Empty(project.Keys))
	require.Error(t, err)

	var conflict eval.ProductConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestSubsetCollapsesProducts(t *testing.T) {
	t.Parallel()

	project := newTestProject(t)
	registry := graph.NewRegistry()

	var runs int

	// The generator narrows to c_flags only, so differing opt values converge on one product identity.
	shared := &graph.Target{
		Ref:      ref("//common:c"),
		Kind:     "test",
		Generate: recordingGenerator(ref("//common:c"), &runs, nil),
	}
	require.NoError(t, registry.AddTarget(shared))

	a := &graph.Target{
		Ref:      ref("//top:a"),
		Kind:     "test",
		Deps:     []ident.Ref{ref("//common:c")},
		Down:     delta.Delta{{Key: "opt", Kind: delta.OpSet, Value: "release"}},
		Generate: recordingGenerator(ref("//top:a"), nil, nil),
	}
	require.NoError(t, registry.AddTarget(a))

	b := &graph.Target{
		Ref:      ref("//top:b"),
		Kind:     "test",
		Deps:     []ident.Ref{ref("//common:c")},
		Generate: recordingGenerator(ref("//top:b"), nil, nil),
	}
	require.NoError(t, registry.AddTarget(b))

	registry.Freeze()

	evaluator := eval.New(newLogger(), project, registry)
	require.NoError(t, evaluator.EvaluateAll([]ident.Ref{ref("//top:a"), ref("//top:b")}, env.Empty(project.Keys)))

	// Two tasks ran, but the narrowed environments are identical, so the dedup keeps one product.
	assert.Equal(t, 2, runs)

	var sharedProducts int

	for _, product := range evaluator.Products() {
		if product.Target == ref("//common:c") {
			sharedProducts++
		}
	}

	assert.Equal(t, 1, sharedProducts)
}

func TestDeterministicProductOrder(t *testing.T) {
	t.Parallel()

	project := newTestProject(t)
	registry := graph.NewRegistry()

	for _, name := range []string{"zed", "mid", "abc"} {
		target := &graph.Target{Ref: ident.Ref{Package: "p", Target: name}, Kind: "test"}
		target.Generate = recordingGenerator(target.Ref, nil, nil)
		require.NoError(t, registry.AddTarget(target))
	}

	registry.Freeze()

	evaluator := eval.New(newLogger(), project, registry)
	require.NoError(t, evaluator.EvaluateAll([]ident.Ref{ref("//p:zed"), ref("//p:mid"), ref("//p:abc")}, env.Empty(project.Keys)))

	var targets []string
	for _, product := range evaluator.Products() {
		targets = append(targets, product.Target.String())
	}

	assert.Equal(t, []string{"//p:abc", "//p:mid", "//p:zed"}, targets)
}

func TestEvaluationErrorCarriesChain(t *testing.T) {
	t.Parallel()

	project := newTestProject(t)
	registry := graph.NewRegistry()

	// A delta referencing an unregistered key fails where it applies, with the chain pointing there.
	bad := &graph.Target{
		Ref:   ref("//p:bad"),
		Kind:  "test",
		Local: delta.Delta{{Key: "unregistered", Kind: delta.OpSet, Value: "x"}},
	}
	top := &graph.Target{Ref: ref("//p:top"), Kind: "test", Deps: []ident.Ref{ref("//p:bad")}}

	require.NoError(t, registry.AddTarget(bad))
	require.NoError(t, registry.AddTarget(top))
	registry.Freeze()

	evaluator := eval.New(newLogger(), project, registry)
	err := evaluator.EvaluateAll([]ident.Ref{ref("//p:top")}, env.Empty(project.Keys))
	require.Error(t, err)

	var evalErr eval.EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, ref("//p:bad"), evalErr.Ref)
	assert.Equal(t, []string{"//p:top", "//p:bad"}, evalErr.Chain)

	var unknown env.UnknownKeyError
	assert.ErrorAs(t, err, &unknown)
}
