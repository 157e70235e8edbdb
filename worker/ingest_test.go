package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/snow-ghost/wolfpack/core"
	"github.com/snow-ghost/wolfpack/pkg/limiter"
	"github.com/snow-ghost/wolfpack/pkg/logging"
	"github.com/snow-ghost/wolfpack/pkg/metrics"
	"github.com/snow-ghost/wolfpack/pkg/store"
	"github.com/snow-ghost/wolfpack/pkg/tracing"
	"github.com/snow-ghost/wolfpack/policy/local"
	"github.com/snow-ghost/wolfpack/worker/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestServer(t *testing.T, rl *limiter.RateLimiter) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	s := &Solver{
		Store:     store.NewMemory(),
		Guard:     local.NewGuard(nil),
		Metrics:   metrics.NewRunMetrics(reg),
		Telemetry: telemetry.NewTelemetry(nil),
	}
	srv := httptest.NewServer(NewHandler(s, rl, reg))
	t.Cleanup(srv.Close)
	return srv
}

func postJob(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/optimize", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

const sphereBody = `{
	"problem": {"name": "sphere", "dimension": 2, "lower": -3, "upper": 3},
	"population": 8,
	"generations": 10,
	"seed": 4
}`

func TestHandler_RequestIDReachesRunLogs(t *testing.T) {
	zc, logs := observer.New(zapcore.InfoLevel)
	exp := tracetest.NewInMemoryExporter()
	tr, err := tracing.NewTracerWithExporter(tracing.Config{ServiceName: "wolfpack-test"}, exp, false)
	require.NoError(t, err)
	t.Cleanup(func() { tr.Shutdown(context.Background()) })

	s := &Solver{
		Store:  store.NewMemory(),
		Guard:  local.NewGuard(nil),
		Logger: logging.FromZap(zap.New(zc)),
		Tracer: tr,
	}
	srv := httptest.NewServer(NewHandler(s, nil, nil))
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/optimize", strings.NewReader(sphereBody))
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))

	runEnd := logs.FilterMessage("Run completed").All()
	require.Len(t, runEnd, 1)
	fields := runEnd[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.NotEmpty(t, fields["trace_id"])
	assert.NotEmpty(t, fields["span_id"])

	var job, request tracetest.SpanStub
	for _, sp := range exp.GetSpans() {
		switch sp.Name {
		case "job.optimize":
			job = sp
		case "http.request":
			request = sp
		}
	}
	require.Equal(t, "job.optimize", job.Name)
	require.Equal(t, "http.request", request.Name)
	assert.Equal(t, request.SpanContext.SpanID(), job.Parent.SpanID())
	assert.Equal(t, fields["trace_id"], job.SpanContext.TraceID().String())

	hasDuration := func(sp tracetest.SpanStub) bool {
		for _, kv := range sp.Attributes {
			if kv.Key == "duration_ms" {
				return true
			}
		}
		return false
	}
	assert.True(t, hasDuration(job))
	assert.True(t, hasDuration(request))
}

func TestIngestor_OptimizeAndFetch(t *testing.T) {
	srv := newTestServer(t, nil)

	resp := postJob(t, srv, sphereBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var out Outcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, 8*11, out.Evaluations)
	assert.Len(t, out.History, 10)

	get, err := http.Get(srv.URL + "/runs/" + out.RunID)
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)
	var stored core.Result
	require.NoError(t, json.NewDecoder(get.Body).Decode(&stored))
	assert.Equal(t, out.BestFitness, stored.BestFitness)

	list, err := http.Get(srv.URL + "/runs?algorithm=hybrid&limit=5")
	require.NoError(t, err)
	defer list.Body.Close()
	var runs []store.RunInfo
	require.NoError(t, json.NewDecoder(list.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, out.RunID, runs[0].ID)
}

func TestIngestor_Errors(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed", `{"problem":`, http.StatusBadRequest},
		{"unknown field", `{"problem": {"name": "sphere"}, "colour": 1}`, http.StatusBadRequest},
		{"unknown problem", `{"problem": {"name": "tsp"}}`, http.StatusBadRequest},
		{"bad mutation", `{"problem": {"name": "sphere", "dimension": 2, "lower": -1, "upper": 1}, "mutation_rate": 2}`, http.StatusBadRequest},
		{"missing checkpoint", `{"problem": {"name": "sphere", "dimension": 2, "lower": -1, "upper": 1}, "resume_from": "nope"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJob(t, srv, tt.body)
			assert.Equal(t, tt.code, resp.StatusCode)
			body, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(body), `"error"`)
		})
	}

	resp, err := http.Get(srv.URL + "/optimize")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/runs/unknown")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/runs?limit=-1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIngestor_RateLimit(t *testing.T) {
	srv := newTestServer(t, limiter.NewRateLimiter(0.001, 1))

	assert.Equal(t, http.StatusOK, postJob(t, srv, sphereBody).StatusCode)
	resp := postJob(t, srv, sphereBody)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0.001", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Burst"))
}

func TestIngestor_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)
	postJob(t, srv, sphereBody)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	m, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer m.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(m.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `wolfpack_runs_total{algorithm="hybrid",status="ok"} 1`)
	assert.Contains(t, buf.String(), "wolfpack_generations_total")

	vars, err := http.Get(srv.URL + "/debug/vars")
	require.NoError(t, err)
	defer vars.Body.Close()
	var counters map[string]float64
	require.NoError(t, json.NewDecoder(vars.Body).Decode(&counters))
	assert.Equal(t, 1.0, counters["jobs_succeeded"])
}
