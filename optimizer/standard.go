package optimizer

import (
	"context"
	"slices"

	"github.com/snow-ghost/wolfpack/core"
)

// Standard is the classical grey wolf optimizer used as a baseline. Every
// individual follows the wolf-pack update and the three leaders are refreshed
// together only when the population produces a strictly better alpha.
// MutationRate is ignored.
type Standard struct {
	*search
}

// NewStandard validates cfg and creates a classical GWO optimizer.
func NewStandard(cfg Config, eval core.Evaluator, opts ...Option) (*Standard, error) {
	s, err := newSearch(AlgorithmStandard, cfg, eval, opts)
	if err != nil {
		return nil, err
	}
	return &Standard{search: s}, nil
}

// Run executes the remaining generations.
func (g *Standard) Run(ctx context.Context) (core.Result, error) {
	return g.run(ctx, g.Step)
}

// Step runs one generation.
func (g *Standard) Step(ctx context.Context) error {
	if err := g.begin(ctx); err != nil {
		return err
	}

	g.history = append(g.history, g.best)
	a := g.coefficient()
	for _, x := range g.pop.Positions {
		g.hunt(x, a)
	}
	g.pop.Clip(g.cfg.Bounds)

	if err := g.evaluate(ctx, g.generation); err != nil {
		return err
	}

	alpha, beta, delta := g.alpha, g.beta, g.delta
	order := g.pop.Order(g.cfg.Direction)
	if g.cfg.Direction.Better(g.pop.Fitness[order[0]], g.best) {
		g.best = g.pop.Fitness[order[0]]
		g.alpha = slices.Clone(g.pop.Positions[order[0]])
		g.beta = slices.Clone(g.pop.Positions[order[1]])
		g.delta = slices.Clone(g.pop.Positions[order[2]])
	}

	g.finish(ctx, a, alpha, beta, delta)
	return nil
}
