package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/snow-ghost/wolfpack/core"
	"github.com/snow-ghost/wolfpack/optimizer"
	"github.com/snow-ghost/wolfpack/pkg/cache"
	"github.com/snow-ghost/wolfpack/pkg/logging"
	"github.com/snow-ghost/wolfpack/pkg/metrics"
	"github.com/snow-ghost/wolfpack/pkg/store"
	"github.com/snow-ghost/wolfpack/pkg/tracing"
	"github.com/snow-ghost/wolfpack/policy/local"
	"github.com/snow-ghost/wolfpack/problems"
	"github.com/snow-ghost/wolfpack/problems/jcas"
	"github.com/snow-ghost/wolfpack/worker/telemetry"
)

// Solver runs jobs end to end: problem construction, optional caching,
// the optimizer itself, checkpoints and persistence. Every dependency
// except Guard may be nil.
type Solver struct {
	Store     store.Store
	Guard     *local.Guard
	Budget    local.Budget
	Metrics   *metrics.RunMetrics
	Logger    *logging.Logger
	Tracer    *tracing.Tracer
	Telemetry *telemetry.Telemetry
	LogEvery  int
	Observers []core.Observer
}

// Solve runs job and, when a store is configured, saves the result under
// the job ID.
func (s *Solver) Solve(ctx context.Context, job Job) (out Outcome, err error) {
	job.applyDefaults()
	if job.ID == "" {
		job.ID = job.ResumeFrom
	}
	if job.ID == "" {
		job.ID = store.NewRunID()
	}

	budget := s.Budget
	if t := job.Timeout(); t > 0 && (budget.Timeout <= 0 || t < budget.Timeout) {
		budget.Timeout = t
	}
	evaluations, err := job.Evaluations()
	if err == nil && s.Guard != nil {
		err = s.Guard.Admit(job.Problem.Name, evaluations, budget)
	}
	if err != nil {
		if s.Telemetry != nil {
			s.Telemetry.JobRejected(ctx, err.Error())
		}
		return Outcome{}, err
	}

	ctx, span := s.tracer().StartJobSpan(ctx, job.ID, job.Problem.Name, job.Algorithm)
	defer span.End()
	logger := s.logger().ForContext(ctx, tracing.GetTraceID(ctx), tracing.GetSpanID(ctx))

	start := time.Now()
	if s.Telemetry != nil {
		s.Telemetry.JobStarted(ctx, job.ID, job.Problem.Name, job.Algorithm)
	}
	defer func() {
		tracing.RecordSpanDuration(span, time.Since(start))
		if err != nil {
			tracing.RecordSpanError(span, err)
		} else {
			tracing.RecordSpanSuccess(span)
		}
		if s.Metrics != nil {
			s.Metrics.RecordRun(out.Algorithm, time.Since(start), err)
		}
		if s.Telemetry != nil {
			s.Telemetry.JobFinished(ctx, job.ID, out.Evaluations, time.Since(start), err)
		}
		logger.LogRunEnd(ctx, job.ID, out.Algorithm, out.BestFitness, out.Evaluations, time.Since(start), err)
	}()

	inst, err := problems.Build(ctx, job.Problem)
	if err != nil {
		return Outcome{Result: core.Result{Algorithm: job.Algorithm}}, err
	}
	defer inst.Close(context.WithoutCancel(ctx))

	cfg, err := job.config(inst)
	if err != nil {
		return Outcome{Result: core.Result{Algorithm: job.Algorithm}}, err
	}

	var eval core.Evaluator = inst
	var cached *cache.Evaluator
	if job.CacheSize > 0 {
		cached, err = cache.NewEvaluator(inst, &cache.CacheConfig{MaxSize: job.CacheSize})
		if err != nil {
			return Outcome{Result: core.Result{Algorithm: job.Algorithm}}, err
		}
		eval = cached
	}

	search, resumed, err := s.search(ctx, job, cfg, eval, logger)
	if err != nil {
		return Outcome{Result: core.Result{Algorithm: job.Algorithm}}, err
	}
	out.Algorithm = job.Algorithm
	logger.LogRunStart(ctx, job.ID, job.Algorithm, inst.Name, cfg.Dimension, cfg.PopulationSize, cfg.Generations)

	run := func(ctx context.Context) error {
		res, err := search.Run(ctx)
		out.Result = res
		return err
	}
	if s.Guard != nil {
		err = s.Guard.Wrap(ctx, budget, run)
	} else {
		err = run(ctx)
	}
	out.RunID = job.ID
	out.Algorithm = job.Algorithm
	if err != nil {
		return out, err
	}

	out.Problem = inst.Name
	out.Resumed = resumed
	if cached != nil {
		stats := cached.Stats()
		out.Cache = &stats
		if s.Metrics != nil {
			s.Metrics.RecordCache(stats.Hits, stats.Misses)
		}
	}
	if inst.JCAS != nil {
		if err := s.scoreJCAS(&out, inst.JCAS, job); err != nil {
			return out, err
		}
	}

	if s.Store != nil {
		sctx, sspan := s.tracer().StartStoreSpan(ctx, "save_run")
		err := s.Store.SaveRun(sctx, out.Result)
		sspan.End()
		if err != nil {
			return out, fmt.Errorf("save run %s: %w", job.ID, err)
		}
	}
	return out, nil
}

// search creates a fresh optimizer or resumes the latest checkpoint of
// job.ResumeFrom.
func (s *Solver) search(ctx context.Context, job Job, cfg optimizer.Config, eval core.Evaluator, logger *logging.Logger) (optimizer.Search, bool, error) {
	logEvery := s.LogEvery
	if logEvery == 0 {
		logEvery = optimizer.DefaultLogEvery
	}
	opts := []optimizer.Option{
		optimizer.WithLogger(logger.GetZap()),
		optimizer.WithTracer(s.tracer().Tracer()),
		optimizer.WithLogEvery(logEvery),
		optimizer.WithObserver(core.ObserverFunc(func(ctx context.Context, g core.Generation) {
			logger.LogGeneration(ctx, job.ID, g.Index+1, g.Total, g.BestFitness)
		})),
	}
	if s.Metrics != nil {
		opts = append(opts, optimizer.WithObserver(s.Metrics))
	}
	opts = append(opts, optimizer.WithObserver(s.Observers...))
	if s.Store != nil && job.CheckpointEvery > 0 {
		opts = append(opts, optimizer.WithCheckpoint(job.CheckpointEvery, func(ctx context.Context, st optimizer.State) error {
			err := s.Store.SaveCheckpoint(ctx, job.ID, st)
			logger.LogCheckpoint(ctx, job.ID, st.Generation, err)
			return err
		}))
	}

	if job.ResumeFrom == "" {
		search, err := optimizer.New(job.Algorithm, cfg, eval, opts...)
		return search, false, err
	}
	if s.Store == nil {
		return nil, false, fmt.Errorf("%w: resume needs a store", core.ErrInvalidConfiguration)
	}
	st, err := s.Store.LatestCheckpoint(ctx, job.ResumeFrom)
	if err != nil {
		return nil, false, err
	}
	if st.Algorithm != job.Algorithm {
		return nil, false, fmt.Errorf("%w: checkpoint is %s, job asks for %s", core.ErrInvalidConfiguration, st.Algorithm, job.Algorithm)
	}
	search, err := optimizer.Resume(cfg, eval, st, opts...)
	return search, true, err
}

// scoreJCAS fills the beamforming breakdown of the best weights and, when
// requested, of the least squares baseline.
func (s *Solver) scoreJCAS(out *Outcome, obj *jcas.Objective, job Job) error {
	w, err := jcas.DecodeWeights(out.BestPosition)
	if err != nil {
		return err
	}
	terms, err := obj.Score(w)
	if err != nil {
		return err
	}
	out.JCAS = &terms

	if job.ILSIterations <= 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(job.Seed, 0))
	ils, err := jcas.ILS(obj.Array, obj.Scenario, job.ILSIterations, rng)
	if err != nil {
		return err
	}
	baseline, err := obj.Score(ils.Weights)
	if err != nil {
		return err
	}
	out.ILS = &baseline
	return nil
}

// Run looks up a stored run.
func (s *Solver) Run(ctx context.Context, id string) (core.Result, error) {
	if s.Store == nil {
		return core.Result{}, fmt.Errorf("run %s: %w", id, store.ErrNotFound)
	}
	ctx, span := s.tracer().StartStoreSpan(ctx, "get_run")
	defer span.End()
	r, err := s.Store.GetRun(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		tracing.RecordSpanError(span, err)
	}
	return r, err
}

// Runs lists stored runs.
func (s *Solver) Runs(ctx context.Context, filter store.RunFilter) ([]store.RunInfo, error) {
	if s.Store == nil {
		return nil, nil
	}
	ctx, span := s.tracer().StartStoreSpan(ctx, "list_runs")
	defer span.End()
	return s.Store.ListRuns(ctx, filter)
}

func (s *Solver) logger() *logging.Logger {
	if s.Logger == nil {
		return logging.NewNop()
	}
	return s.Logger
}

func (s *Solver) tracer() *tracing.Tracer {
	if s.Tracer == nil {
		// an empty endpoint never fails
		t, _ := tracing.NewTracer(tracing.Config{ServiceName: "wolfpack"})
		return t
	}
	return s.Tracer
}
