package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/snow-ghost/wolfpack/core"
	"github.com/snow-ghost/wolfpack/pkg/limiter"
	"github.com/snow-ghost/wolfpack/pkg/store"
	"github.com/snow-ghost/wolfpack/policy/local"
	"github.com/sony/gobreaker"
)

// Ingestor serves the job endpoints.
type Ingestor struct {
	solver  *Solver
	limiter *limiter.RateLimiter
}

// NewIngestor creates the job endpoints. rl may be nil to disable rate
// limiting.
func NewIngestor(solver *Solver, rl *limiter.RateLimiter) *Ingestor {
	return &Ingestor{solver: solver, limiter: rl}
}

// ServeHTTP handles POST /optimize with a JSON Job and returns an Outcome.
func (i *Ingestor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if key := clientKey(r); i.limiter != nil && !i.limiter.Allow(key) {
		stats := i.limiter.GetStats(key)
		w.Header().Set("X-RateLimit-Limit", fmt.Sprint(stats["limit"]))
		w.Header().Set("X-RateLimit-Burst", fmt.Sprint(stats["burst"]))
		if i.solver.Telemetry != nil {
			i.solver.Telemetry.JobRejected(r.Context(), "rate limited")
		}
		writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
		return
	}

	var job Job
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&job); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out, err := i.solver.Solve(r.Context(), job)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetRun handles GET /runs/{id}.
func (i *Ingestor) GetRun(w http.ResponseWriter, r *http.Request) {
	res, err := i.solver.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListRuns handles GET /runs?algorithm=&limit=.
func (i *Ingestor) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{Algorithm: r.URL.Query().Get("algorithm")}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}
	runs, err := i.solver.Runs(r.Context(), filter)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if runs == nil {
		runs = []store.RunInfo{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func statusFor(err error) int {
	var fault *core.FaultError
	switch {
	case errors.Is(err, core.ErrInvalidConfiguration), errors.Is(err, core.ErrBoundsDegenerate):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, local.ErrBudgetExceeded), errors.As(err, &fault):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
