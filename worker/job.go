package worker

import (
	"fmt"
	"math"
	"time"

	"github.com/snow-ghost/wolfpack/core"
	"github.com/snow-ghost/wolfpack/optimizer"
	"github.com/snow-ghost/wolfpack/pkg/cache"
	"github.com/snow-ghost/wolfpack/policy/local"
	"github.com/snow-ghost/wolfpack/problems"
	"github.com/snow-ghost/wolfpack/problems/jcas"
)

// Defaults used for zero fields of a Job.
const (
	DefaultPopulation   = 20
	DefaultGenerations  = 50
	DefaultMutationRate = 0.1
)

// Job is one optimization request.
type Job struct {
	ID          string        `json:"id,omitempty"`
	Problem     problems.Spec `json:"problem"`
	Algorithm   string        `json:"algorithm,omitempty"`
	Population  int           `json:"population,omitempty"`
	Generations int           `json:"generations,omitempty"`
	// MutationRate is a pointer so an explicit 0 survives decoding.
	MutationRate *float64 `json:"mutation_rate,omitempty"`
	Seed         uint64   `json:"seed"`

	CacheSize       int `json:"cache_size,omitempty"`
	CheckpointEvery int `json:"checkpoint_every,omitempty"`
	// ResumeFrom continues the latest checkpoint of an earlier run.
	ResumeFrom string `json:"resume_from,omitempty"`
	TimeoutMS  int64  `json:"timeout_ms,omitempty"`

	// ILSIterations > 0 also runs the least squares baseline on a jcas
	// problem.
	ILSIterations int `json:"ils_iterations,omitempty"`
}

func (j *Job) applyDefaults() {
	if j.Algorithm == "" {
		j.Algorithm = optimizer.AlgorithmHybrid
	}
	if j.Population == 0 {
		j.Population = DefaultPopulation
	}
	if j.Generations == 0 {
		j.Generations = DefaultGenerations
	}
	if j.MutationRate == nil {
		m := DefaultMutationRate
		j.MutationRate = &m
	}
}

// Evaluations is the number of objective calls a complete run makes,
// P·(T+1). A count that does not fit in an int exceeds every budget.
func (j Job) Evaluations() (int, error) {
	if j.Population < 0 || j.Generations < 0 {
		return 0, fmt.Errorf("%w: population %d, generations %d",
			core.ErrInvalidConfiguration, j.Population, j.Generations)
	}
	if j.Generations == math.MaxInt || j.Population > math.MaxInt/(j.Generations+1) {
		return 0, fmt.Errorf("%w: population %d × %d generations overflows",
			local.ErrBudgetExceeded, j.Population, j.Generations+1)
	}
	return j.Population * (j.Generations + 1), nil
}

// Timeout returns the requested wall clock budget, zero when unset.
func (j Job) Timeout() time.Duration { return time.Duration(j.TimeoutMS) * time.Millisecond }

func (j Job) config(p *problems.Instance) (optimizer.Config, error) {
	if j.MutationRate == nil {
		return optimizer.Config{}, fmt.Errorf("%w: mutation rate unset", core.ErrInvalidConfiguration)
	}
	cfg := optimizer.Config{
		Dimension:      p.Dimension,
		PopulationSize: j.Population,
		Generations:    j.Generations,
		Bounds:         p.Bounds,
		MutationRate:   *j.MutationRate,
		Direction:      p.Direction,
		Seed:           j.Seed,
	}
	return cfg, cfg.Validate()
}

// Outcome is the answer to a Job.
type Outcome struct {
	core.Result
	Problem string            `json:"problem"`
	Resumed bool              `json:"resumed,omitempty"`
	Cache   *cache.CacheStats `json:"cache,omitempty"`
	// Beamforming breakdown of the best weights and of the ILS baseline.
	JCAS *jcas.Terms `json:"jcas,omitempty"`
	ILS  *jcas.Terms `json:"ils,omitempty"`
}
