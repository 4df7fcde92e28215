// Package eval drives abstract targets through their concrete products. The engine is a memoizing fixpoint over
// evaluation tasks, where a task is the pair (target, input environment fingerprint).
package eval

import (
	"slices"
	"strings"

	"github.com/quarry-build/quarry/config"
	"github.com/quarry-build/quarry/internal/cache"
	"github.com/quarry-build/quarry/internal/env"
	"github.com/quarry-build/quarry/internal/errors"
	"github.com/quarry-build/quarry/internal/graph"
	"github.com/quarry-build/quarry/internal/ident"
	"github.com/quarry-build/quarry/pkg/log"
)

// Evaluator accumulates the global product set across all entry targets. The memo is the only shared state; the whole
// engine is single-threaded by construction.
type Evaluator struct {
	logger   log.Logger
	project  *config.ProjectConfig
	registry *graph.Registry

	memo       map[string]*taskResult
	inProgress map[string]bool
	stack      []string

	products map[string]*graph.Product
	byOutput map[string]*graph.Product

	interpolations *cache.Cache[string]
}

// taskResult is what one evaluation task yields: the target's products and the environment it surfaces to
// dependents.
type taskResult struct {
	products []*graph.Product
	using    *env.Env
}

// New returns an evaluator over the given frozen registry.
func New(l log.Logger, project *config.ProjectConfig, registry *graph.Registry) *Evaluator {
	return &Evaluator{
		logger:         l,
		project:        project,
		registry:       registry,
		memo:           map[string]*taskResult{},
		inProgress:     map[string]bool{},
		products:       map[string]*graph.Product{},
		byOutput:       map[string]*graph.Product{},
		interpolations: cache.NewCache[string]("interpolations"),
	}
}

// EvaluateAll evaluates every entry target in the given base environment.
func (ev *Evaluator) EvaluateAll(entries []ident.Ref, base *env.Env) error {
	seen := map[string]bool{}

	for _, entry := range entries {
		entry = entry.WithoutOutput()

		if seen[entry.String()] {
			continue
		}

		seen[entry.String()] = true

		if target, ok := ev.registry.Lookup(entry); ok && target.Abstract {
			return errors.New(NotConcreteError{Ref: entry})
		}

		if _, err := ev.evaluate(entry, base); err != nil {
			var missing env.MissingKeyError
			if errors.As(err, &missing) {
				return errors.New(NotConcreteError{Ref: entry, Key: missing.Key, Err: err})
			}

			return err
		}
	}

	return nil
}

// Products returns the deduplicated product set in stable order: by target identifier, then environment fingerprint,
// then primary output path.
func (ev *Evaluator) Products() []*graph.Product {
	out := make([]*graph.Product, 0, len(ev.products))
	for _, product := range ev.products {
		out = append(out, product)
	}

	slices.SortFunc(out, graph.CompareProducts)

	return out
}

func taskKey(ref ident.Ref, e *env.Env) string {
	return ref.String() + "|" + e.Fingerprint()
}

// evaluate runs one task to completion, memoized. Re-entry on an in-progress task is a dependency cycle.
func (ev *Evaluator) evaluate(ref ident.Ref, envIn *env.Env) (*taskResult, error) {
	key := taskKey(ref, envIn)

	if result, ok := ev.memo[key]; ok {
		return result, nil
	}

	if ev.inProgress[key] {
		return nil, errors.New(DependencyCycleError{Chain: append(ev.chain(), ref.String())})
	}

	target, ok := ev.registry.Lookup(ref)
	if !ok {
		return nil, errors.New(UnknownTargetError{Ref: ref, Chain: ev.chain()})
	}

	ev.inProgress[key] = true
	ev.stack = append(ev.stack, ref.String())

	defer func() {
		delete(ev.inProgress, key)
		ev.stack = ev.stack[:len(ev.stack)-1]
	}()

	ev.logger.Debugf("Evaluating %s in %s", ref, envIn.Fingerprint())

	envDown, err := target.Down.Apply(envIn, ev.project.Transforms)
	if err != nil {
		return nil, ev.enrich(err, ref)
	}

	usings, err := ev.evaluateDeps(target, envDown)
	if err != nil {
		return nil, err
	}

	// The down delta seeds dependency evaluation only; the fold starts from the environment the target was
	// entered with, so a target's own down delta never reaches its own local or using environment.
	envFromDeps, err := ev.foldDeps(target, envIn, envDown, usings)
	if err != nil {
		return nil, ev.enrich(err, ref)
	}

	envLocal, err := target.Local.Apply(envFromDeps, ev.project.Transforms)
	if err != nil {
		return nil, ev.enrich(err, ref)
	}

	defaultUsing, err := target.Using.Apply(envFromDeps, ev.project.Transforms)
	if err != nil {
		return nil, ev.enrich(err, ref)
	}

	bctx := &buildContext{
		ev:      ev,
		target:  target,
		local:   envLocal,
		using:   defaultUsing,
		envDown: envDown,
	}

	generated := &graph.Generated{}

	if target.Generate != nil {
		generated, err = target.Generate(bctx)
		if err != nil {
			return nil, ev.enrich(err, ref)
		}

		if generated == nil {
			generated = &graph.Generated{}
		}
	}

	using := generated.Using
	if using == nil {
		using = defaultUsing
	}

	result := &taskResult{using: using}

	for _, product := range generated.Products {
		kept, err := ev.insertProduct(product)
		if err != nil {
			return nil, err
		}

		result.products = append(result.products, kept)
	}

	ev.memo[key] = result

	return result, nil
}

// evaluateDeps evaluates the target's dependencies in declared order with duplicates silently collapsed, verifies
// product references, and returns the dependencies' using-environments.
func (ev *Evaluator) evaluateDeps(target *graph.Target, envDown *env.Env) ([]*env.Env, error) {
	var usings []*env.Env

	seen := map[string]bool{}

	for _, dep := range target.Deps {
		if seen[dep.String()] {
			continue
		}

		seen[dep.String()] = true

		result, err := ev.evaluate(dep.WithoutOutput(), envDown)
		if err != nil {
			return nil, err
		}

		if dep.IsProduct() {
			if _, err := findOutput(result, dep, ev.chain()); err != nil {
				return nil, err
			}
		}

		usings = append(usings, result.using)
	}

	return usings, nil
}

// foldDeps folds the dependencies' using-environments into the target's input environment. The default fold treats
// each using-environment as a set of per-key overrides applied left to right, last writer wins; only keys whose value
// differs from envDown, the environment the dependencies were evaluated in, are taken over. Targets may install a
// CombineDeps hook to change this.
func (ev *Evaluator) foldDeps(target *graph.Target, base, envDown *env.Env, usings []*env.Env) (*env.Env, error) {
	if target.CombineDeps != nil {
		return target.CombineDeps(base, usings)
	}

	out := base

	for _, using := range usings {
		for _, key := range using.Keys() {
			value, err := using.Lookup(key)
			if err != nil {
				return nil, err
			}

			if envDown.Has(key) {
				current, err := envDown.Lookup(key)
				if err != nil {
					return nil, err
				}

				if valueEqual(current, value) {
					continue
				}
			}

			next, err := out.Set(key, value)
			if err != nil {
				return nil, err
			}

			out = next
		}
	}

	return out, nil
}

// insertProduct adds the product to the global set, deduplicating by identity. Identity-equal products must be equal
// in content, and no two products may claim the same primary output with differing content.
func (ev *Evaluator) insertProduct(product *graph.Product) (*graph.Product, error) {
	if len(product.Outputs) == 0 {
		return nil, errors.Errorf("target %s produced a product without outputs", product.Target)
	}

	identity := product.Identity()

	if existing, ok := ev.products[identity]; ok {
		if !existing.Equal(product) {
			return nil, errors.New(ProductConflictError{First: existing, Second: product, Chain: ev.chain()})
		}

		return existing, nil
	}

	for _, output := range product.Outputs {
		if existing, ok := ev.byOutput[output]; ok && !slices.Equal(existing.Command, product.Command) {
			return nil, errors.New(ProductConflictError{First: existing, Second: product, Chain: ev.chain()})
		}
	}

	ev.products[identity] = product

	for _, output := range product.Outputs {
		ev.byOutput[output] = product
	}

	ev.logger.Debugf("Produced %s -> %s", product.Identity(), strings.Join(product.Outputs, ", "))

	return product, nil
}

// dependencyOutput binds a product reference to the path the referenced target produced in the current downward
// environment. The dependency has already been evaluated by the time generators run.
func (ev *Evaluator) dependencyOutput(bctx *buildContext, ref ident.Ref) (string, error) {
	result, ok := ev.memo[taskKey(ref.WithoutOutput(), bctx.envDown)]
	if !ok {
		return "", errors.New(UnknownProductError{Ref: ref, Chain: ev.chain()})
	}

	return findOutput(result, ref, ev.chain())
}

// findOutput locates the named output among the products of an evaluated task. The reference names the output
// relative to the producing target's output directory; a full generation-root-relative path is accepted as well.
func findOutput(result *taskResult, ref ident.Ref, chain []string) (string, error) {
	prefix := ref.Package + "/" + ref.Target + "/"

	for _, product := range result.products {
		for _, output := range product.Outputs {
			if output == ref.Output || strings.TrimPrefix(output, prefix) == ref.Output {
				return output, nil
			}
		}
	}

	return "", errors.New(UnknownProductError{Ref: ref, Chain: chain})
}

func (ev *Evaluator) chain() []string {
	return slices.Clone(ev.stack)
}

// enrich tags errors that originate at this target, rather than below it, with the current dependency chain.
func (ev *Evaluator) enrich(err error, ref ident.Ref) error {
	var cycle DependencyCycleError
	var unknownTarget UnknownTargetError
	var unknownProduct UnknownProductError
	var conflict ProductConflictError

	if errors.As(err, &cycle) || errors.As(err, &unknownTarget) || errors.As(err, &unknownProduct) || errors.As(err, &conflict) {
		return err
	}

	return errors.New(EvaluationError{Ref: ref, Chain: ev.chain(), Err: err})
}

func valueEqual(a, b any) bool {
	aItems, aOk := a.([]string)
	bItems, bOk := b.([]string)

	if aOk || bOk {
		return aOk && bOk && slices.Equal(aItems, bItems)
	}

	return a == b
}
