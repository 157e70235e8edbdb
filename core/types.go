package core

import (
	"fmt"
	"slices"
	"time"
)

// Bounds holds the per-dimension search box [Lower[d], Upper[d]].
type Bounds struct {
	Lower []float64 `json:"lower" yaml:"lower"`
	Upper []float64 `json:"upper" yaml:"upper"`
}

// UniformBounds expands scalar bounds to every one of dim dimensions.
func UniformBounds(dim int, lower, upper float64) Bounds {
	b := Bounds{Lower: make([]float64, dim), Upper: make([]float64, dim)}
	for d := 0; d < dim; d++ {
		b.Lower[d] = lower
		b.Upper[d] = upper
	}
	return b
}

// Clone returns a deep copy of the bounds.
func (b Bounds) Clone() Bounds {
	return Bounds{Lower: slices.Clone(b.Lower), Upper: slices.Clone(b.Upper)}
}

// Dim returns the number of dimensions covered by the bounds.
func (b Bounds) Dim() int { return len(b.Lower) }

// Validate checks that the bounds cover dim dimensions and that lb < ub
// holds elementwise with a finite width.
func (b Bounds) Validate(dim int) error {
	if len(b.Lower) != dim || len(b.Upper) != dim {
		return fmt.Errorf("%w: bounds cover %d/%d dimensions, want %d",
			ErrInvalidConfiguration, len(b.Lower), len(b.Upper), dim)
	}
	for d := 0; d < dim; d++ {
		// written negated so that NaN bounds are rejected too
		if !(b.Lower[d] < b.Upper[d]) {
			return fmt.Errorf("dimension %d: lower %g, upper %g: %w", d, b.Lower[d], b.Upper[d], ErrBoundsDegenerate)
		}
		if !IsFinite(b.Lower[d]) || !IsFinite(b.Upper[d]) || !IsFinite(b.Upper[d]-b.Lower[d]) {
			return fmt.Errorf("%w: dimension %d: bounds [%g, %g] must have a finite width",
				ErrInvalidConfiguration, d, b.Lower[d], b.Upper[d])
		}
	}
	return nil
}

// Clip saturates v into [Lower[d], Upper[d]].
func (b Bounds) Clip(d int, v float64) float64 {
	if v < b.Lower[d] {
		return b.Lower[d]
	}
	if v > b.Upper[d] {
		return b.Upper[d]
	}
	return v
}

// Contains reports whether every coordinate of pos lies inside the bounds.
func (b Bounds) Contains(pos []float64) bool {
	for d, v := range pos {
		if v < b.Lower[d] || v > b.Upper[d] {
			return false
		}
	}
	return true
}

// Result is the output of a completed optimization run.
type Result struct {
	RunID        string        `json:"run_id,omitempty"`
	Algorithm    string        `json:"algorithm"`
	Direction    Direction     `json:"direction"`
	Seed         uint64        `json:"seed"`
	BestPosition []float64     `json:"best_position"`
	BestFitness  float64       `json:"best_fitness"`
	History      []float64     `json:"history"`
	Evaluations  int           `json:"evaluations"`
	Duration     time.Duration `json:"duration"`
}

// Generation describes one completed generation. Population and the leader
// slices are shared with the optimizer and must be treated as read-only.
type Generation struct {
	Algorithm   string
	Index       int
	Total       int
	Coefficient float64 // exploration coefficient a used for this generation
	BestFitness float64 // global best after the update
	Alpha       []float64
	Beta        []float64
	Delta       []float64
	Positions   [][]float64
	Fitness     []float64
	Evaluations int
}
