package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/snow-ghost/wolfpack/config"
	"github.com/snow-ghost/wolfpack/pkg/limiter"
	"github.com/snow-ghost/wolfpack/pkg/logging"
	"github.com/snow-ghost/wolfpack/pkg/metrics"
	"github.com/snow-ghost/wolfpack/pkg/store"
	"github.com/snow-ghost/wolfpack/pkg/tracing"
	"github.com/snow-ghost/wolfpack/policy/local"
	"github.com/snow-ghost/wolfpack/worker/telemetry"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/trace"
)

// Service bundles a Solver with the process-wide dependencies built for it.
type Service struct {
	Solver   *Solver
	Registry *prometheus.Registry
	Limiter  *limiter.RateLimiter
	Logger   *logging.Logger

	tracer *tracing.Tracer
	store  store.Store
}

// NewService wires logging, tracing, metrics, the guarded store and the
// policy guard from cfg.
func NewService(cfg *config.Config) (*Service, error) {
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	runMetrics := metrics.NewRunMetrics(reg)

	breakers := limiter.NewCircuitBreakerManager(limiter.DefaultCircuitBreakerConfig(),
		func(name string, from, to gobreaker.State) {
			logger.LogCircuitBreaker(context.Background(), name, from.String(), to.String())
			runMetrics.RecordCircuitState(name, to.String())
		})

	var inner store.Store = store.NewMemory()
	if cfg.StorePath != "" {
		sq, err := store.NewSQLite(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		inner = sq
	}
	guarded := store.NewGuarded(inner, breakers)

	tel := telemetry.NewTelemetry(logger.GetSlog())
	tel.SetReadiness(guarded.Available)
	tel.SetDetails(func() map[string]interface{} {
		return map[string]interface{}{"store": guarded.Stats()}
	})

	return &Service{
		Solver: &Solver{
			Store: guarded,
			Guard: local.NewGuard(cfg.Worker.AllowProblems),
			Budget: local.Budget{
				Timeout:        cfg.Worker.JobTimeout,
				MaxEvaluations: cfg.Worker.MaxEvaluations,
			},
			Metrics:   runMetrics,
			Logger:    logger,
			Tracer:    tracer,
			Telemetry: tel,
			LogEvery:  cfg.Optimizer.LogEvery,
		},
		Registry: reg,
		Limiter:  limiter.NewRateLimiter(cfg.Worker.RateLimit, cfg.Worker.Burst),
		Logger:   logger,
		tracer:   tracer,
		store:    guarded,
	}, nil
}

// Tracer returns the tracer for optimizer.WithTracer.
func (s *Service) Tracer() trace.Tracer { return s.tracer.Tracer() }

// Close flushes spans and logs and releases the store.
func (s *Service) Close(ctx context.Context) error {
	// syncing a terminal fails on some platforms
	_ = s.Logger.Sync()
	return errors.Join(s.tracer.Shutdown(ctx), s.store.Close())
}
