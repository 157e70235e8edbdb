package cache

import (
	"context"
	"math"
	"testing"

	"github.com/snow-ghost/wolfpack/core"
	"github.com/snow-ghost/wolfpack/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyOf(t *testing.T) {
	assert.Equal(t, KeyOf([]float64{1, 2}), KeyOf([]float64{1, 2}))
	assert.NotEqual(t, KeyOf([]float64{1, 2}), KeyOf([]float64{2, 1}))
	assert.NotEqual(t, KeyOf([]float64{0}), KeyOf([]float64{math.Copysign(0, -1)}))
}

func TestEvaluator(t *testing.T) {
	inner := &testkit.Counting{Inner: testkit.Sphere}
	e, err := NewEvaluator(inner, &CacheConfig{MaxSize: 2})
	require.NoError(t, err)
	ctx := context.Background()

	v, err := e.Evaluate(ctx, []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)

	v, err = e.Evaluate(ctx, []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
	assert.Equal(t, 1, inner.Calls())

	// two more distinct positions push the first one out
	_, err = e.Evaluate(ctx, []float64{3})
	require.NoError(t, err)
	_, err = e.Evaluate(ctx, []float64{4})
	require.NoError(t, err)
	_, err = e.Evaluate(ctx, []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 4, inner.Calls())

	stats := e.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(4), stats.Misses)
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, int64(2), stats.Evictions)
	assert.InDelta(t, 0.2, stats.HitRate, 1e-12)
}

func TestEvaluator_DoesNotCacheFaults(t *testing.T) {
	inner := &testkit.Faulty{Inner: testkit.Sphere, After: 0, Err: testkit.ErrInjected}
	e, err := NewEvaluator(inner, nil)
	require.NoError(t, err)

	_, err = e.Evaluate(context.Background(), []float64{1})
	require.ErrorIs(t, err, testkit.ErrInjected)
	assert.Zero(t, e.Stats().Size)

	nan, err := NewEvaluator(testkit.Constant(math.NaN()), nil)
	require.NoError(t, err)
	v, err := nan.Evaluate(context.Background(), []float64{1})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))
	assert.Zero(t, nan.Stats().Size)
}

func TestEvaluator_Invalid(t *testing.T) {
	_, err := NewEvaluator(nil, nil)
	require.ErrorIs(t, err, core.ErrInvalidConfiguration)

	_, err = NewEvaluator(testkit.Sphere, &CacheConfig{MaxSize: 0})
	require.Error(t, err)
}
