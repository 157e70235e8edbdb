package core

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Direction selects whether lower or higher fitness is better.
type Direction int

const (
	Minimize Direction = iota
	Maximize
)

// Better reports whether a is strictly better than b.
func (d Direction) Better(a, b float64) bool {
	if d == Maximize {
		return a > b
	}
	return a < b
}

// Worst returns the fitness value every finite score improves on.
func (d Direction) Worst() float64 {
	if d == Maximize {
		return math.Inf(-1)
	}
	return math.Inf(1)
}

func (d Direction) String() string {
	if d == Maximize {
		return "maximize"
	}
	return "minimize"
}

// ParseDirection parses "min"/"minimize" and "max"/"maximize".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "min", "minimize", "":
		return Minimize, nil
	case "max", "maximize":
		return Maximize, nil
	default:
		return Minimize, fmt.Errorf("%w: unknown direction %q", ErrInvalidConfiguration, s)
	}
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// EvaluatorFunc adapts a plain fitness function to Evaluator.
type EvaluatorFunc func(position []float64) float64

func (f EvaluatorFunc) Evaluate(_ context.Context, position []float64) (float64, error) {
	return f(position), nil
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
