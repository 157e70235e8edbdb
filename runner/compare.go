package runner

import (
	"context"
	"fmt"

	"github.com/snow-ghost/wolfpack/core"
	"github.com/snow-ghost/wolfpack/optimizer"
)

// Comparison holds the results of every algorithm over the same seeds.
type Comparison struct {
	Algorithms []string                 `json:"algorithms"`
	Results    map[string][]core.Result `json:"results"`
	Summaries  map[string]Summary       `json:"summaries"`
}

// Compare runs each algorithm as a batch over identical seeds. newEval is
// called once per run so evaluators with state are not shared. opts are
// applied to every concurrent run, so observers must be safe for concurrent
// use; optimizer.WithSource is rejected because each run draws from its own
// seed.
func Compare(ctx context.Context, b Batch, cfg optimizer.Config, algorithms []string,
	newEval func() core.Evaluator, opts ...optimizer.Option) (*Comparison, error) {
	if optimizer.SetsSource(opts...) {
		return nil, fmt.Errorf("%w: a random source cannot be shared between runs", core.ErrInvalidConfiguration)
	}
	c := &Comparison{
		Algorithms: algorithms,
		Results:    make(map[string][]core.Result, len(algorithms)),
		Summaries:  make(map[string]Summary, len(algorithms)),
	}
	for _, alg := range algorithms {
		results, err := b.Run(ctx, func(_ int, seed uint64) (core.Optimizer, error) {
			rc := cfg
			rc.Seed = seed
			return optimizer.New(alg, rc, newEval(), opts...)
		})
		if err != nil {
			return nil, fmt.Errorf("compare %s: %w", alg, err)
		}
		s, err := Summarize(results, cfg.Direction)
		if err != nil {
			return nil, err
		}
		c.Results[alg] = results
		c.Summaries[alg] = s
	}
	return c, nil
}
