package testkit

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/snow-ghost/wolfpack/core"
)

// Recorder is an observer that keeps a deep copy of every generation.
type Recorder struct {
	mu          sync.Mutex
	Generations []core.Generation
}

func (r *Recorder) ObserveGeneration(_ context.Context, g core.Generation) {
	c := g
	c.Alpha = slices.Clone(g.Alpha)
	c.Beta = slices.Clone(g.Beta)
	c.Delta = slices.Clone(g.Delta)
	c.Fitness = slices.Clone(g.Fitness)
	c.Positions = make([][]float64, len(g.Positions))
	for i, x := range g.Positions {
		c.Positions[i] = slices.Clone(x)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.Generations = append(r.Generations, c)
}

// Expectation describes the invariants a finished run must satisfy.
type Expectation struct {
	Direction   core.Direction
	Bounds      core.Bounds
	Generations int
}

// Runner runs an optimizer and checks its invariants.
type Runner struct{}

func NewRunner() *Runner { return &Runner{} }

// Run executes opt and aggregates check metrics. rec may be nil; when set it
// must be registered as an observer of opt so containment can be checked per
// generation.
func (r *Runner) Run(ctx context.Context, opt core.Optimizer, rec *Recorder, exp Expectation) (core.Result, map[string]float64, error) {
	metrics := map[string]float64{
		"checks_total":      0,
		"checks_passed":     0,
		"checks_failed":     0,
		"duration_ms_total": 0,
	}

	start := time.Now()
	res, err := opt.Run(ctx)
	metrics["duration_ms_total"] = float64(time.Since(start).Milliseconds())
	if err != nil {
		return res, metrics, err
	}

	record := func(ok bool) {
		metrics["checks_total"]++
		if ok {
			metrics["checks_passed"]++
		} else {
			metrics["checks_failed"]++
		}
	}

	record(len(res.History) == exp.Generations)
	record(MonotoneHistory(res.History, exp.Direction) == nil)
	record(exp.Bounds.Contains(res.BestPosition))
	if rec != nil {
		record(len(rec.Generations) == exp.Generations)
		record(ContainedGenerations(rec.Generations, exp.Bounds) == nil)
	}

	return res, metrics, nil
}

// MonotoneHistory returns an error at the first step where the history
// regresses for dir.
func MonotoneHistory(history []float64, dir core.Direction) error {
	for i := 1; i < len(history); i++ {
		if dir.Better(history[i-1], history[i]) {
			return fmt.Errorf("history regresses at %d: %g -> %g", i, history[i-1], history[i])
		}
	}
	return nil
}

// ContainedGenerations returns an error for the first coordinate outside b.
func ContainedGenerations(gens []core.Generation, b core.Bounds) error {
	for _, g := range gens {
		for i, x := range g.Positions {
			if !b.Contains(x) {
				return fmt.Errorf("generation %d individual %d out of bounds: %v", g.Index, i, x)
			}
		}
	}
	return nil
}
