package optimizer

import (
	"context"
	"slices"

	"github.com/snow-ghost/wolfpack/core"
)

// Hybrid is the GWO-GA optimizer: every generation the ranked population is
// split in half, the better half follows the wolf-pack update around the
// alpha, beta and delta leaders and the worse half is replaced by
// alpha/beta crossover children subject to uniform mutation.
type Hybrid struct {
	*search
}

// NewHybrid validates cfg and creates a hybrid optimizer. The population is
// sampled and evaluated on the first Step.
func NewHybrid(cfg Config, eval core.Evaluator, opts ...Option) (*Hybrid, error) {
	s, err := newSearch(AlgorithmHybrid, cfg, eval, opts)
	if err != nil {
		return nil, err
	}
	return &Hybrid{search: s}, nil
}

// Run executes the remaining generations and returns the global best and the
// convergence history.
func (h *Hybrid) Run(ctx context.Context) (core.Result, error) {
	return h.run(ctx, h.Step)
}

// Step runs one generation.
func (h *Hybrid) Step(ctx context.Context) error {
	if err := h.begin(ctx); err != nil {
		return err
	}

	dir := h.cfg.Direction
	h.pop.Rank(dir)
	h.history = append(h.history, h.best)

	a := h.coefficient()
	half := h.pop.Len() / 2
	for i := 0; i < half; i++ {
		h.hunt(h.pop.Positions[i], a)
	}
	for i := half; i < h.pop.Len(); i++ {
		h.breed(h.pop.Positions[i])
	}
	h.pop.Clip(h.cfg.Bounds)

	if err := h.evaluate(ctx, h.generation); err != nil {
		return err
	}

	alpha, beta, delta := h.alpha, h.beta, h.delta
	order := h.pop.Order(dir)
	if dir.Better(h.pop.Fitness[order[0]], h.best) {
		h.best = h.pop.Fitness[order[0]]
		h.alpha = slices.Clone(h.pop.Positions[order[0]])
	}
	h.beta = slices.Clone(h.pop.Positions[order[1]])
	h.delta = slices.Clone(h.pop.Positions[order[2]])

	h.finish(ctx, a, alpha, beta, delta)
	return nil
}

// breed overwrites x with an alpha/beta crossover child. The crossover weight
// is drawn once per individual; each gene is then replaced by a fresh
// uniform sample with the mutation probability.
func (h *Hybrid) breed(x []float64) {
	w := h.rng.Float64()
	for d := range x {
		child := w*h.alpha[d] + (1.0-w)*h.beta[d]
		if h.rng.Float64() < h.cfg.MutationRate {
			child = uniform(h.rng, h.cfg.Bounds.Lower[d], h.cfg.Bounds.Upper[d])
		}
		x[d] = child
	}
}
