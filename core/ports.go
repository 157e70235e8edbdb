package core

import "context"

// Evaluator maps a position vector to a scalar fitness. Implementations must
// not modify or retain position.
type Evaluator interface {
	Evaluate(ctx context.Context, position []float64) (float64, error)
}

// Optimizer runs a search to completion.
type Optimizer interface {
	Run(ctx context.Context) (Result, error)
}

// Observer receives a notification after every completed generation.
type Observer interface {
	ObserveGeneration(ctx context.Context, g Generation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, g Generation)

func (f ObserverFunc) ObserveGeneration(ctx context.Context, g Generation) { f(ctx, g) }

// RunStore persists finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, r Result) error
	GetRun(ctx context.Context, id string) (Result, error)
}
