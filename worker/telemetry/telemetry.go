package telemetry

import (
	"context"
	"encoding/json"
	"expvar"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Telemetry keeps process-local job counters and serves the health and
// debug vars endpoints.
type Telemetry struct {
	mu sync.Mutex

	vars *expvar.Map

	// Metrics
	JobsTotal      *expvar.Int
	JobsSucceeded  *expvar.Int
	JobsFailed     *expvar.Int
	JobsRejected   *expvar.Int
	EvaluationsSum *expvar.Int
	AvgRunTime     *expvar.Float

	totalRunTime time.Duration
	started      time.Time

	// ready reports whether dependencies (the store) accept calls.
	ready   func() bool
	details func() map[string]interface{}

	logger *slog.Logger
}

// NewTelemetry creates a new telemetry instance. The counters are not
// published globally; Publish does that once per process.
func NewTelemetry(logger *slog.Logger) *Telemetry {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Telemetry{
		vars:           new(expvar.Map).Init(),
		JobsTotal:      new(expvar.Int),
		JobsSucceeded:  new(expvar.Int),
		JobsFailed:     new(expvar.Int),
		JobsRejected:   new(expvar.Int),
		EvaluationsSum: new(expvar.Int),
		AvgRunTime:     new(expvar.Float),
		started:        time.Now(),
		logger:         logger,
	}
	t.vars.Set("jobs_total", t.JobsTotal)
	t.vars.Set("jobs_succeeded", t.JobsSucceeded)
	t.vars.Set("jobs_failed", t.JobsFailed)
	t.vars.Set("jobs_rejected", t.JobsRejected)
	t.vars.Set("evaluations_total", t.EvaluationsSum)
	t.vars.Set("avg_run_time_ms", t.AvgRunTime)
	return t
}

// Publish exposes the counters under name in the global expvar registry.
func (t *Telemetry) Publish(name string) { expvar.Publish(name, t.vars) }

// SetReadiness installs the check reported by HealthHandler.
func (t *Telemetry) SetReadiness(ready func() bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ready = ready
}

// SetDetails installs the dependency report HealthHandler adds under
// "checks".
func (t *Telemetry) SetDetails(details func() map[string]interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.details = details
}

// JobStarted logs the start of a job
func (t *Telemetry) JobStarted(ctx context.Context, id, problem, algorithm string) {
	t.logger.DebugContext(ctx, "job_started",
		"run_id", id,
		"problem", problem,
		"algorithm", algorithm,
	)
}

// JobFinished records the end of a job
func (t *Telemetry) JobFinished(ctx context.Context, id string, evaluations int, duration time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.JobsTotal.Add(1)
	t.EvaluationsSum.Add(int64(evaluations))
	t.totalRunTime += duration

	if err != nil {
		t.JobsFailed.Add(1)
		t.logger.WarnContext(ctx, "job_failed",
			"run_id", id,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
	} else {
		t.JobsSucceeded.Add(1)
		t.logger.DebugContext(ctx, "job_finished",
			"run_id", id,
			"duration_ms", duration.Milliseconds(),
			"evaluations", evaluations,
		)
	}

	t.AvgRunTime.Set(float64(t.totalRunTime.Milliseconds()) / float64(t.JobsTotal.Value()))
}

// JobRejected counts a job refused before it ran
func (t *Telemetry) JobRejected(ctx context.Context, reason string) {
	t.JobsRejected.Add(1)
	t.logger.InfoContext(ctx, "job_rejected", "reason", reason)
}

// HealthHandler reports ok, or degraded with 503 when the readiness check
// fails.
func (t *Telemetry) HealthHandler(w http.ResponseWriter, r *http.Request) {
	t.mu.Lock()
	ready, details := t.ready, t.details
	t.mu.Unlock()

	status, code := "ok", http.StatusOK
	if ready != nil && !ready() {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	body := map[string]interface{}{
		"status":     status,
		"service":    "wolfpack-worker",
		"uptime_sec": int64(time.Since(t.started).Seconds()),
	}
	if details != nil {
		body["checks"] = details()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// VarsHandler returns the job counters in expvar format
func (t *Telemetry) VarsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(t.vars.String()))
}
