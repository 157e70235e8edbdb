package store

import (
	"context"
	"errors"

	"github.com/snow-ghost/wolfpack/core"
	"github.com/snow-ghost/wolfpack/optimizer"
	"github.com/snow-ghost/wolfpack/pkg/limiter"
)

// BreakerName is the circuit breaker guarding store calls.
const BreakerName = "store"

// Guarded runs every call to the inner store through a circuit breaker and
// retries transient SQLite errors. Missing records are not failures.
type Guarded struct {
	inner Store
	pm    *limiter.ProtectionManager
}

// NewGuarded wraps inner. breakers may be shared with other components; nil
// uses the default breaker settings.
func NewGuarded(inner Store, breakers *limiter.CircuitBreakerManager) *Guarded {
	return &Guarded{
		inner: inner,
		pm:    limiter.NewProtectionManager(limiter.DefaultRetryConfig(IsTransient), breakers),
	}
}

func (g *Guarded) do(ctx context.Context, fn func(ctx context.Context) error) error {
	var notFound error
	err := g.pm.ExecuteWithProtection(ctx, BreakerName, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, ErrNotFound) {
			notFound = err
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	return notFound
}

func (g *Guarded) SaveRun(ctx context.Context, r core.Result) error {
	return g.do(ctx, func(ctx context.Context) error { return g.inner.SaveRun(ctx, r) })
}

func (g *Guarded) GetRun(ctx context.Context, id string) (core.Result, error) {
	var r core.Result
	err := g.do(ctx, func(ctx context.Context) error {
		var err error
		r, err = g.inner.GetRun(ctx, id)
		return err
	})
	return r, err
}

func (g *Guarded) ListRuns(ctx context.Context, filter RunFilter) ([]RunInfo, error) {
	var runs []RunInfo
	err := g.do(ctx, func(ctx context.Context) error {
		var err error
		runs, err = g.inner.ListRuns(ctx, filter)
		return err
	})
	return runs, err
}

func (g *Guarded) SaveCheckpoint(ctx context.Context, runID string, st optimizer.State) error {
	return g.do(ctx, func(ctx context.Context) error { return g.inner.SaveCheckpoint(ctx, runID, st) })
}

func (g *Guarded) LatestCheckpoint(ctx context.Context, runID string) (optimizer.State, error) {
	var st optimizer.State
	err := g.do(ctx, func(ctx context.Context) error {
		var err error
		st, err = g.inner.LatestCheckpoint(ctx, runID)
		return err
	})
	return st, err
}

// Available reports whether the breaker currently lets calls through.
func (g *Guarded) Available() bool { return g.pm.IsAvailable(BreakerName) }

// Stats reports the breaker counters and retry settings of the store.
func (g *Guarded) Stats() map[string]interface{} { return g.pm.GetStats(BreakerName) }

func (g *Guarded) Close() error { return g.inner.Close() }
