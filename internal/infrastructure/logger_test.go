package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"sheetlens/internal/config"
)

func decodeLines(t *testing.T, raw []byte) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLoggerWritesFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logFile := filepath.Join(t.TempDir(), "logs", "sheetlens.log")
	logger, err := NewLogger(config.LoggingConfig{
		Level:    "debug",
		Output:   "file",
		FilePath: logFile,
	})
	require.NoError(t, err)

	logger.Debug("debug message", slog.String("key", "value"))
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	entries := decodeLines(t, content)
	require.Len(t, entries, 1)
	assert.Equal(t, "debug message", entries[0]["msg"])
	assert.Equal(t, "DEBUG", entries[0]["level"])
	assert.Equal(t, "value", entries[0]["key"])
	assert.Contains(t, entries[0], "source")
}

func TestNewLoggerConsoleHasNoFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger, err := NewLogger(config.LoggingConfig{Level: "info", Output: "console"})
	require.NoError(t, err)
	assert.Nil(t, logger.file)
	assert.Same(t, logger.Logger, slog.Default())
	assert.NoError(t, logger.Close())
}

func TestJSONLoggerLevels(t *testing.T) {
	tests := []struct {
		level   string
		debug   bool
		info    bool
		warn    bool
		errored bool
	}{
		{"debug", true, true, true, true},
		{"info", false, true, true, true},
		{"", false, true, true, true},
		{"warning", false, false, true, true},
		{"ERROR", false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewJSONLogger(&buf, tt.level)
			ctx := context.Background()

			assert.Equal(t, tt.debug, logger.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tt.info, logger.Enabled(ctx, slog.LevelInfo))
			assert.Equal(t, tt.warn, logger.Enabled(ctx, slog.LevelWarn))
			assert.Equal(t, tt.errored, logger.Enabled(ctx, slog.LevelError))
		})
	}
}

func TestJSONLoggerInjectsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, "info").With(slog.String("component", "test"))

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx := WithTraceID(context.Background(), "req-123")
	ctx, span := tp.Tracer("test").Start(ctx, "op")
	logger.InfoContext(ctx, "inside span")
	span.End()

	logger.Info("no context")

	entries := decodeLines(t, buf.Bytes())
	require.Len(t, entries, 2)

	assert.Equal(t, "req-123", entries[0]["trace_id"])
	assert.Equal(t, span.SpanContext().TraceID().String(), entries[0]["otel_trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entries[0]["span_id"])
	assert.Equal(t, "test", entries[0]["component"])

	assert.NotContains(t, entries[1], "trace_id")
	assert.NotContains(t, entries[1], "span_id")
}

func TestEnsureTraceID(t *testing.T) {
	ctx, id := EnsureTraceID(context.Background(), "")
	assert.NotEmpty(t, id)
	assert.Equal(t, id, GetTraceID(ctx))

	kept, keptID := EnsureTraceID(ctx, "session-1")
	assert.Equal(t, id, keptID, "existing ID is kept")
	assert.Equal(t, id, GetTraceID(kept))

	_, fallback := EnsureTraceID(context.Background(), "session-1")
	assert.Equal(t, "session-1", fallback)

	assert.Empty(t, GetTraceID(context.Background()))
	assert.NotEqual(t, NewTraceID(), NewTraceID())
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	WithComponent(NewJSONLogger(&buf, "info"), "parser").Info("hello")

	entries := decodeLines(t, buf.Bytes())
	require.Len(t, entries, 1)
	assert.Equal(t, "parser", entries[0]["component"])

	assert.NotNil(t, WithComponent(nil, "fallback"))
}
