package optimizer

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/snow-ghost/wolfpack/core"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	AlgorithmHybrid   = "hybrid"
	AlgorithmStandard = "gwo"

	// MinPopulation is the smallest population that yields three leaders and
	// at least one follower.
	MinPopulation = 4

	DefaultLogEvery = 10
)

// Config is the immutable configuration of a single run.
type Config struct {
	Dimension      int            `json:"dimension" yaml:"dimension"`
	PopulationSize int            `json:"population_size" yaml:"population_size"`
	Generations    int            `json:"generations" yaml:"generations"`
	Bounds         core.Bounds    `json:"bounds" yaml:"bounds"`
	MutationRate   float64        `json:"mutation_rate" yaml:"mutation_rate"`
	Direction      core.Direction `json:"direction" yaml:"direction"`
	Seed           uint64         `json:"seed" yaml:"seed"`
}

// Validate checks every documented constraint of the configuration.
func (c Config) Validate() error {
	if c.Dimension < 1 {
		return fmt.Errorf("%w: dimension %d < 1", core.ErrInvalidConfiguration, c.Dimension)
	}
	if c.PopulationSize < MinPopulation {
		return fmt.Errorf("%w: population size %d < %d", core.ErrInvalidConfiguration, c.PopulationSize, MinPopulation)
	}
	if c.Generations < 1 {
		return fmt.Errorf("%w: generations %d < 1", core.ErrInvalidConfiguration, c.Generations)
	}
	if !(c.MutationRate >= 0 && c.MutationRate <= 1) {
		return fmt.Errorf("%w: mutation rate %g outside [0,1]", core.ErrInvalidConfiguration, c.MutationRate)
	}
	if c.Direction != core.Minimize && c.Direction != core.Maximize {
		return fmt.Errorf("%w: unknown direction %d", core.ErrInvalidConfiguration, int(c.Direction))
	}
	return c.Bounds.Validate(c.Dimension)
}

type options struct {
	source          rand.Source
	logger          *zap.Logger
	observers       []core.Observer
	tracer          trace.Tracer
	logEvery        int
	checkpointEvery int
	checkpoint      func(ctx context.Context, st State) error
}

// Option customizes an optimizer.
type Option func(*options)

// WithSource sets the random source. A fixed source reproduces the run
// bit for bit. Snapshots require the source to implement
// encoding.BinaryMarshaler (rand.PCG and rand.ChaCha8 do).
func WithSource(src rand.Source) Option {
	return func(o *options) { o.source = src }
}

// SetsSource reports whether any of opts installs a random source.
func SetsSource(opts ...Option) bool {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o.source != nil
}

// WithLogger sets the logger used for progress reports.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver registers observers notified after every generation.
func WithObserver(obs ...core.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs...) }
}

// WithTracer sets the tracer used for the run span.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithLogEvery logs progress every n generations; n <= 0 disables it.
func WithLogEvery(n int) Option {
	return func(o *options) { o.logEvery = n }
}

// WithCheckpoint calls save with a snapshot every n generations.
func WithCheckpoint(n int, save func(ctx context.Context, st State) error) Option {
	return func(o *options) {
		o.checkpointEvery = n
		o.checkpoint = save
	}
}
