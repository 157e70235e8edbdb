package cache

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Deduplicator collapses concurrent evaluations of the same position into
// one call.
type Deduplicator struct {
	group  singleflight.Group
	shared atomic.Int64
}

// NewDeduplicator creates a new deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Execute runs fn once per in-flight key.
func (d *Deduplicator) Execute(ctx context.Context, key Key, fn func(context.Context) (float64, error)) (float64, error) {
	result, err, shared := d.group.Do(string(key[:]), func() (interface{}, error) {
		return fn(ctx)
	})
	if shared {
		d.shared.Add(1)
	}
	if err != nil {
		return 0, err
	}
	return result.(float64), nil
}

// Shared returns how many callers received another caller's result.
func (d *Deduplicator) Shared() int64 { return d.shared.Load() }
