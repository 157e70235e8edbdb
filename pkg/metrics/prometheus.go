package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/snow-ghost/wolfpack/core"
)

// RunMetrics holds the Prometheus metrics of optimization runs. It observes
// generations directly when registered with the optimizer.
type RunMetrics struct {
	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec

	// Generation metrics
	GenerationsTotal *prometheus.CounterVec
	EvaluationsTotal *prometheus.CounterVec
	BestFitness      *prometheus.GaugeVec
	Coefficient      *prometheus.GaugeVec

	// Cache metrics
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// Circuit breaker metrics
	CircuitStateChanges *prometheus.CounterVec
}

// NewRunMetrics registers the metrics on reg. A nil reg uses the default
// registerer.
func NewRunMetrics(reg prometheus.Registerer) *RunMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &RunMetrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wolfpack_runs_total",
				Help: "Total number of optimization runs",
			},
			[]string{"algorithm", "status"},
		),

		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wolfpack_run_duration_seconds",
				Help:    "Optimization run duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"algorithm"},
		),

		GenerationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wolfpack_generations_total",
				Help: "Total number of completed generations",
			},
			[]string{"algorithm"},
		),

		EvaluationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wolfpack_evaluations_total",
				Help: "Total number of fitness evaluations",
			},
			[]string{"algorithm"},
		),

		BestFitness: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wolfpack_best_fitness",
				Help: "Global best fitness of the latest generation",
			},
			[]string{"algorithm"},
		),

		Coefficient: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wolfpack_control_coefficient",
				Help: "Control coefficient a of the latest generation",
			},
			[]string{"algorithm"},
		),

		CacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wolfpack_cache_hits_total",
				Help: "Total number of evaluator cache hits",
			},
		),

		CacheMissesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wolfpack_cache_misses_total",
				Help: "Total number of evaluator cache misses",
			},
		),

		CircuitStateChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wolfpack_circuit_state_changes_total",
				Help: "Total number of circuit breaker state changes",
			},
			[]string{"breaker", "to"},
		),
	}
}

// ObserveGeneration records a completed generation. Every generation
// evaluates the whole population once; the first one also carries the
// evaluations of the initial population.
func (m *RunMetrics) ObserveGeneration(_ context.Context, g core.Generation) {
	m.GenerationsTotal.WithLabelValues(g.Algorithm).Inc()
	m.BestFitness.WithLabelValues(g.Algorithm).Set(g.BestFitness)
	m.Coefficient.WithLabelValues(g.Algorithm).Set(g.Coefficient)

	n := len(g.Positions)
	if g.Index == 0 {
		n = g.Evaluations
	}
	m.EvaluationsTotal.WithLabelValues(g.Algorithm).Add(float64(n))
}

// RecordRun records a finished run
func (m *RunMetrics) RecordRun(algorithm string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RunsTotal.WithLabelValues(algorithm, status).Inc()
	m.RunDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
}

// RecordCache adds cache hits and misses
func (m *RunMetrics) RecordCache(hits, misses int64) {
	m.CacheHitsTotal.Add(float64(hits))
	m.CacheMissesTotal.Add(float64(misses))
}

// RecordCircuitState records a circuit breaker transition
func (m *RunMetrics) RecordCircuitState(breaker, to string) {
	m.CircuitStateChanges.WithLabelValues(breaker, to).Inc()
}
