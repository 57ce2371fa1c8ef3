package tracing

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type contextKey struct{}

// WithRunID attaches the run ID of the execution context being worked on.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, contextKey{}, runID)
}

// RunID returns the run ID attached by WithRunID, or "".
func RunID(ctx context.Context) string {
	runID, _ := ctx.Value(contextKey{}).(string)
	return runID
}

// LoggerFromContext tags logger with the run ID and, inside a sampled span, its trace and
// span IDs so log lines can be joined with exported spans.
func LoggerFromContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	runID := RunID(ctx)
	sc := trace.SpanContextFromContext(ctx)
	if runID == "" && !sc.IsValid() {
		return logger
	}

	fields := logger.With()
	if runID != "" {
		fields = fields.Str("run_id", runID)
	}
	if sc.IsValid() {
		fields = fields.
			Str("trace_id", sc.TraceID().String()).
			Str("span_id", sc.SpanID().String())
	}
	return fields.Logger()
}
