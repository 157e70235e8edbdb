package worker

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/snow-ghost/wolfpack/pkg/limiter"
	"github.com/snow-ghost/wolfpack/pkg/logging"
	"github.com/snow-ghost/wolfpack/pkg/tracing"
)

// Worker is anything that can answer a Job.
type Worker interface {
	Solve(ctx context.Context, job Job) (Outcome, error)
}

var _ Worker = (*Solver)(nil)

// NewHandler routes the worker API:
//
//	POST /optimize     run a job
//	GET  /runs         list stored runs
//	GET  /runs/{id}    fetch a stored run
//	GET  /health       liveness and store readiness
//	GET  /metrics      Prometheus metrics from gatherer
//	GET  /debug/vars   job counters
func NewHandler(solver *Solver, rl *limiter.RateLimiter, gatherer prometheus.Gatherer) http.Handler {
	ing := NewIngestor(solver, rl)

	mux := http.NewServeMux()
	mux.Handle("/optimize", ing)
	mux.HandleFunc("GET /runs", ing.ListRuns)
	mux.HandleFunc("GET /runs/{id}", ing.GetRun)
	if solver.Telemetry != nil {
		mux.HandleFunc("GET /health", solver.Telemetry.HealthHandler)
		mux.HandleFunc("GET /debug/vars", solver.Telemetry.VarsHandler)
	}
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return withRequestLog(solver, mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLog tags every request with an ID and logs its outcome.
func withRequestLog(solver *Solver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		ctx, span := solver.tracer().StartSpan(ctx, "http.request")
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		elapsed := time.Since(start)

		tracing.AddSpanAttributes(span, map[string]interface{}{
			"http.method":      r.Method,
			"http.path":        r.URL.Path,
			"http.status_code": rec.status,
			"request_id":       requestID,
		})
		tracing.RecordSpanDuration(span, elapsed)
		solver.logger().LogRequest(ctx, r.Method, r.URL.Path, rec.status, elapsed, requestID)
	})
}
