package testkit

import (
	"context"
	"errors"
	"math"
	"sync/atomic"

	"github.com/snow-ghost/wolfpack/core"
)

// Sphere is sum(x_d^2), minimum 0 at the origin.
var Sphere = core.EvaluatorFunc(func(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += v * v
	}
	return s
})

// Rastrigin is the multimodal Rastrigin function, minimum 0 at the origin.
var Rastrigin = core.EvaluatorFunc(func(x []float64) float64 {
	s := 10.0 * float64(len(x))
	for _, v := range x {
		s += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return s
})

// DistanceTo returns the Euclidean distance from x to point.
func DistanceTo(point ...float64) core.EvaluatorFunc {
	return func(x []float64) float64 {
		s := 0.0
		for d, v := range x {
			diff := v - point[d]
			s += diff * diff
		}
		return math.Sqrt(s)
	}
}

// Constant scores every position with v.
func Constant(v float64) core.EvaluatorFunc {
	return func([]float64) float64 { return v }
}

// ErrInjected is returned by Failing evaluators.
var ErrInjected = errors.New("injected evaluator failure")

// Counting wraps an evaluator and counts calls.
type Counting struct {
	Inner core.Evaluator
	calls atomic.Int64
}

func (c *Counting) Evaluate(ctx context.Context, x []float64) (float64, error) {
	c.calls.Add(1)
	return c.Inner.Evaluate(ctx, x)
}

// Calls returns the number of evaluations so far.
func (c *Counting) Calls() int { return int(c.calls.Load()) }

// Faulty returns value from the after-th call on (0-based); earlier calls
// go to inner. With err set it fails with err instead.
type Faulty struct {
	Inner core.Evaluator
	After int
	Value float64
	Err   error
	calls int
}

func (f *Faulty) Evaluate(ctx context.Context, x []float64) (float64, error) {
	n := f.calls
	f.calls++
	if n < f.After {
		return f.Inner.Evaluate(ctx, x)
	}
	if f.Err != nil {
		return 0, f.Err
	}
	return f.Value, nil
}
