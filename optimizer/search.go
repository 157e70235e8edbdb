package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/snow-ghost/wolfpack/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrRunFinished is returned by Step once all generations have completed.
var ErrRunFinished = errors.New("run finished")

const tracerName = "github.com/snow-ghost/wolfpack/optimizer"

// Search is a stepwise optimizer whose state can be snapshotted.
type Search interface {
	core.Optimizer
	Step(ctx context.Context) error
	Done() bool
	Snapshot() (State, error)
}

// search carries the state shared by every wolf-pack variant: population,
// leaders, global best and convergence history.
type search struct {
	algorithm string
	cfg       Config
	eval      core.Evaluator
	rng       *rand.Rand
	opts      options

	pop                *Population
	alpha, beta, delta []float64
	best               float64
	history            []float64
	generation         int
	evaluations        int
	initialized        bool
	err                error
}

func newSearch(algorithm string, cfg Config, eval core.Evaluator, opts []Option) (*search, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if eval == nil {
		return nil, fmt.Errorf("%w: nil evaluator", core.ErrInvalidConfiguration)
	}

	o := options{logEvery: DefaultLogEvery}
	for _, opt := range opts {
		opt(&o)
	}
	if o.source == nil {
		o.source = rand.NewPCG(cfg.Seed, cfg.Seed)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}

	cfg.Bounds = cfg.Bounds.Clone()

	return &search{
		algorithm: algorithm,
		cfg:       cfg,
		eval:      eval,
		rng:       rand.New(o.source),
		opts:      o,
		history:   make([]float64, 0, cfg.Generations),
	}, nil
}

// Done reports whether all generations have run.
func (s *search) Done() bool { return s.generation >= s.cfg.Generations }

// Generation returns the number of completed generations.
func (s *search) Generation() int { return s.generation }

// Best returns a copy of the global best position and its fitness.
func (s *search) Best() ([]float64, float64) { return slices.Clone(s.alpha), s.best }

// History returns a copy of the convergence history so far.
func (s *search) History() []float64 { return slices.Clone(s.history) }

// Population returns the live population. Callers must not modify it.
func (s *search) Population() *Population { return s.pop }

// begin guards a step and lazily initializes the population.
func (s *search) begin(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	if s.Done() {
		return ErrRunFinished
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.initialized {
		return nil
	}

	s.pop = samplePopulation(s.rng, s.cfg.PopulationSize, s.cfg.Bounds)
	if err := s.evaluate(ctx, -1); err != nil {
		return err
	}
	order := s.pop.Order(s.cfg.Direction)
	s.alpha = slices.Clone(s.pop.Positions[order[0]])
	s.beta = slices.Clone(s.pop.Positions[order[1]])
	s.delta = slices.Clone(s.pop.Positions[order[2]])
	s.best = s.pop.Fitness[order[0]]
	s.initialized = true
	return nil
}

func (s *search) evaluate(ctx context.Context, generation int) error {
	n, err := s.pop.Evaluate(ctx, s.eval, generation)
	s.evaluations += n
	if err != nil {
		s.err = err
		s.opts.logger.Error("evaluator fault",
			zap.String("algorithm", s.algorithm),
			zap.Int("generation", generation),
			zap.Error(err))
	}
	return err
}

// coefficient returns a = 2 - g*(2/T), decaying linearly from 2 towards 0.
func (s *search) coefficient() float64 {
	return 2.0 - float64(s.generation)*(2.0/float64(s.cfg.Generations))
}

// hunt moves x towards the three leaders with the wolf-pack encircling
// update. Six draws per dimension, two per leader in alpha, beta, delta order.
func (s *search) hunt(x []float64, a float64) {
	leaders := [3][]float64{s.alpha, s.beta, s.delta}
	for d := range x {
		sum := 0.0
		for _, l := range leaders {
			r1 := s.rng.Float64()
			r2 := s.rng.Float64()
			A := 2*a*r1 - a
			C := 2 * r2
			dist := math.Abs(C*l[d] - x[d])
			sum += l[d] - A*dist
		}
		x[d] = sum / 3.0
	}
}

// finish bookkeeps a completed generation and notifies observers.
func (s *search) finish(ctx context.Context, a float64, alpha, beta, delta []float64) {
	s.generation++

	if s.opts.logEvery > 0 && s.generation%s.opts.logEvery == 0 {
		s.opts.logger.Info("generation completed",
			zap.String("algorithm", s.algorithm),
			zap.Int("generation", s.generation),
			zap.Float64("best_fitness", s.best))
	}

	if len(s.opts.observers) > 0 {
		g := core.Generation{
			Algorithm:   s.algorithm,
			Index:       s.generation - 1,
			Total:       s.cfg.Generations,
			Coefficient: a,
			BestFitness: s.best,
			Alpha:       alpha,
			Beta:        beta,
			Delta:       delta,
			Positions:   s.pop.Positions,
			Fitness:     s.pop.Fitness,
			Evaluations: s.evaluations,
		}
		for _, obs := range s.opts.observers {
			obs.ObserveGeneration(ctx, g)
		}
	}

	if s.opts.checkpoint != nil && s.opts.checkpointEvery > 0 &&
		s.generation%s.opts.checkpointEvery == 0 && !s.Done() {
		st, err := s.Snapshot()
		if err == nil {
			err = s.opts.checkpoint(ctx, st)
		}
		if err != nil {
			s.opts.logger.Warn("checkpoint failed", zap.Int("generation", s.generation), zap.Error(err))
		}
	}
}

// run drives step until the configured number of generations is reached.
func (s *search) run(ctx context.Context, step func(context.Context) error) (core.Result, error) {
	ctx, span := s.opts.tracer.Start(ctx, "optimizer.run", trace.WithAttributes(
		attribute.String("optimizer.algorithm", s.algorithm),
		attribute.Int("optimizer.dimension", s.cfg.Dimension),
		attribute.Int("optimizer.population", s.cfg.PopulationSize),
		attribute.Int("optimizer.generations", s.cfg.Generations),
		attribute.String("optimizer.direction", s.cfg.Direction.String()),
	))
	defer span.End()

	start := time.Now()
	s.opts.logger.Debug("run started",
		zap.String("algorithm", s.algorithm),
		zap.Int("start_generation", s.generation),
		zap.Int("generations", s.cfg.Generations))

	for !s.Done() {
		if err := step(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return core.Result{}, err
		}
	}

	res := core.Result{
		Algorithm:    s.algorithm,
		Direction:    s.cfg.Direction,
		Seed:         s.cfg.Seed,
		BestPosition: slices.Clone(s.alpha),
		BestFitness:  s.best,
		History:      slices.Clone(s.history),
		Evaluations:  s.evaluations,
		Duration:     time.Since(start),
	}
	span.SetAttributes(
		attribute.Float64("optimizer.best_fitness", res.BestFitness),
		attribute.Int("optimizer.evaluations", res.Evaluations),
	)
	span.SetStatus(codes.Ok, "")
	return res, nil
}
