// Package runner executes independent optimization runs concurrently and
// summarizes their outcomes.
package runner

import (
	"context"
	"fmt"
	"runtime"

	"github.com/snow-ghost/wolfpack/core"
	"golang.org/x/sync/errgroup"
)

// Factory builds the optimizer for one run. Each call must return an
// optimizer with its own state and random source.
type Factory func(run int, seed uint64) (core.Optimizer, error)

// Batch runs Runs independent optimizations with seeds BaseSeed, BaseSeed+1,
// and so on.
type Batch struct {
	Runs        int
	Parallelism int
	BaseSeed    uint64
}

// Run executes the batch. Results are ordered by run index. The first
// failure cancels the remaining runs.
func (b Batch) Run(ctx context.Context, factory Factory) ([]core.Result, error) {
	if b.Runs < 1 {
		return nil, fmt.Errorf("%w: runs %d < 1", core.ErrInvalidConfiguration, b.Runs)
	}
	limit := b.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]core.Result, b.Runs)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < b.Runs; i++ {
		seed := b.BaseSeed + uint64(i)
		g.Go(func() error {
			opt, err := factory(i, seed)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			res, err := opt.Run(ctx)
			if err != nil {
				return fmt.Errorf("run %d (seed %d): %w", i, seed, err)
			}
			res.Seed = seed
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
