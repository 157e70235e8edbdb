package logging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(Config{Level: "debug", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	assert.NotNil(t, l.GetSlog())
	assert.NotNil(t, l.GetZap())
	assert.True(t, l.GetZap().Core().Enabled(zapcore.DebugLevel))

	l, err = NewLogger(Config{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, l.GetZap().Core().Enabled(zapcore.InfoLevel))
}

func TestRunEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))
	ctx := context.Background()

	l.LogRunStart(ctx, "run-1", "hybrid", "wsn", 10, 20, 50)
	l.LogGeneration(ctx, "run-1", 10, 50, 412.5)
	l.LogCheckpoint(ctx, "run-1", 10, nil)
	l.LogCheckpoint(ctx, "run-1", 20, errors.New("disk full"))
	l.LogRunEnd(ctx, "run-1", "hybrid", 398.25, 1020, 2*time.Second, nil)
	l.LogRunEnd(ctx, "run-2", "gwo", 0, 7, time.Second, errors.New("evaluator fault"))

	entries := logs.All()
	require.Len(t, entries, 6)
	assert.Equal(t, "Run started", entries[0].Message)
	assert.Equal(t, "wsn", entries[0].ContextMap()["problem"])
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, int64(10), entries[1].ContextMap()["generation"])
	assert.Equal(t, "Checkpoint failed", entries[3].Message)
	assert.Equal(t, "disk full", entries[3].ContextMap()["error"])
	assert.Equal(t, "Run completed", entries[4].Message)
	assert.Equal(t, 2000.0, entries[4].ContextMap()["duration_ms"])
	assert.Equal(t, zapcore.ErrorLevel, entries[5].Level)
}

func TestForContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := FromZap(zap.New(core))

	ctx := ContextWithRequestID(context.Background(), "req-7")
	assert.Equal(t, "req-7", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))

	l.ForContext(ctx, "trace-1", "span-1").Info("tagged")
	l.ForContext(context.Background(), "", "").Info("plain")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]interface{}{
		"request_id": "req-7",
		"trace_id":   "trace-1",
		"span_id":    "span-1",
	}, entries[0].ContextMap())
	assert.Empty(t, entries[1].ContextMap())
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Info("ignored", "k", 1)
	l.LogRequest(context.Background(), "GET", "/health", 200, time.Millisecond, "req")
	assert.NoError(t, l.Sync())
}
