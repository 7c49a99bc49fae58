package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NewTraceID returns a random trace ID
func NewTraceID() string {
	return uuid.NewString()
}

// EnsureTraceID returns ctx carrying a trace ID along with that ID. An ID
// already on ctx is kept; otherwise fallback is used, or a fresh one when
// fallback is empty.
func EnsureTraceID(ctx context.Context, fallback string) (context.Context, string) {
	if id := GetTraceID(ctx); id != "" {
		return ctx, id
	}
	if fallback == "" {
		fallback = NewTraceID()
	}
	return WithTraceID(ctx, fallback), fallback
}

// WithComponent tags every record of logger with the emitting component.
// A nil logger falls back to slog.Default.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("component", component))
}
