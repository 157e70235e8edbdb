package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/snow-ghost/wolfpack/core"
)

// Evaluator memoizes an inner evaluator in a bounded LRU. Failed
// evaluations are never cached.
type Evaluator struct {
	inner     core.Evaluator
	cache     *lru.Cache[Key, float64]
	dedup     *Deduplicator
	config    *CacheConfig
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewEvaluator wraps inner with an LRU cache
func NewEvaluator(inner core.Evaluator, config *CacheConfig) (*Evaluator, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: nil evaluator", core.ErrInvalidConfiguration)
	}
	if config == nil {
		config = DefaultCacheConfig()
	}

	e := &Evaluator{
		inner:  inner,
		dedup:  NewDeduplicator(),
		config: config,
	}
	cache, err := lru.NewWithEvict[Key, float64](config.MaxSize, func(Key, float64) {
		e.evictions.Add(1)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	e.cache = cache
	return e, nil
}

func (e *Evaluator) Evaluate(ctx context.Context, x []float64) (float64, error) {
	key := KeyOf(x)
	if v, ok := e.cache.Get(key); ok {
		e.hits.Add(1)
		return v, nil
	}
	e.misses.Add(1)

	return e.dedup.Execute(ctx, key, func(ctx context.Context) (float64, error) {
		v, err := e.inner.Evaluate(ctx, x)
		if err != nil || !core.IsFinite(v) {
			return v, err
		}
		e.cache.Add(key, v)
		return v, nil
	})
}

// Stats returns cache statistics
func (e *Evaluator) Stats() CacheStats {
	s := CacheStats{
		Hits:      e.hits.Load(),
		Misses:    e.misses.Load(),
		Shared:    e.dedup.Shared(),
		Size:      e.cache.Len(),
		MaxSize:   e.config.MaxSize,
		Evictions: e.evictions.Load(),
	}
	s.CalculateHitRate()
	return s
}
