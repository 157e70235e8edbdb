package core

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirection_Better(t *testing.T) {
	assert.True(t, Minimize.Better(1, 2))
	assert.False(t, Minimize.Better(2, 2))
	assert.True(t, Maximize.Better(3, 2))
	assert.False(t, Maximize.Better(2, 2))

	// every finite score beats the worst value
	assert.True(t, Minimize.Better(1e300, Minimize.Worst()))
	assert.True(t, Maximize.Better(-1e300, Maximize.Worst()))
}

func TestParseDirection(t *testing.T) {
	cases := map[string]Direction{
		"min":        Minimize,
		"Minimize":   Minimize,
		"":           Minimize,
		"max":        Maximize,
		" MAXIMIZE ": Maximize,
	}
	for in, want := range cases {
		got, err := ParseDirection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDirection("sideways")
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestResultJSONDirection(t *testing.T) {
	res := Result{
		Algorithm:    "hybrid",
		Direction:    Maximize,
		BestPosition: []float64{1, 2},
		BestFitness:  3.5,
		History:      []float64{1, 2, 3.5},
		Duration:     time.Second,
	}

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"direction":"maximize"`)

	var got Result
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, res, got)
}

func TestBounds(t *testing.T) {
	b := UniformBounds(3, -1, 1)
	require.NoError(t, b.Validate(3))
	assert.Equal(t, 3, b.Dim())

	assert.Equal(t, -1.0, b.Clip(0, -5))
	assert.Equal(t, 1.0, b.Clip(1, 5))
	assert.Equal(t, 0.25, b.Clip(2, 0.25))

	assert.True(t, b.Contains([]float64{-1, 0, 1}))
	assert.False(t, b.Contains([]float64{-1, 0, 1.0001}))

	err := b.Validate(4)
	require.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.False(t, errors.Is(err, ErrBoundsDegenerate))

	bad := Bounds{Lower: []float64{0, 2}, Upper: []float64{1, 2}}
	err = bad.Validate(2)
	require.ErrorIs(t, err, ErrBoundsDegenerate)
	require.ErrorIs(t, err, ErrInvalidConfiguration)

	nan := Bounds{Lower: []float64{math.NaN()}, Upper: []float64{1}}
	require.ErrorIs(t, nan.Validate(1), ErrBoundsDegenerate)

	for _, inf := range []Bounds{
		UniformBounds(2, math.Inf(-1), math.Inf(1)),
		UniformBounds(1, 0, math.Inf(1)),
		UniformBounds(1, -math.MaxFloat64, math.MaxFloat64),
	} {
		err := inf.Validate(inf.Dim())
		require.ErrorIs(t, err, ErrInvalidConfiguration)
		assert.False(t, errors.Is(err, ErrBoundsDegenerate))
	}
}

func TestBounds_Clone(t *testing.T) {
	b := UniformBounds(2, 0, 1)
	c := b.Clone()
	c.Lower[0] = 5
	c.Upper[1] = 7
	assert.Equal(t, UniformBounds(2, 0, 1), b)
}

func TestFaultError(t *testing.T) {
	err := error(&FaultError{Generation: 3, Individual: 1, Value: math.NaN()})
	assert.ErrorIs(t, err, ErrEvaluatorFault)
	assert.Contains(t, err.Error(), "generation 3")

	cause := errors.New("boom")
	err = &FaultError{Generation: -1, Individual: 0, Cause: cause}
	assert.ErrorIs(t, err, ErrEvaluatorFault)
	assert.ErrorIs(t, err, cause)

	var fe *FaultError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, -1, fe.Generation)
}

func TestEvaluatorFunc(t *testing.T) {
	eval := EvaluatorFunc(func(p []float64) float64 { return p[0] * 2 })
	v, err := eval.Evaluate(context.Background(), []float64{1.5})
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	assert.True(t, IsFinite(1))
	assert.False(t, IsFinite(math.Inf(-1)))
	assert.False(t, IsFinite(math.NaN()))
}
