// Package logging carries a structured logger and request correlation ids
// through context.Context for every stage of a chronorag request.
//
// A request is processed strictly in sequence (analyze, embed, retrieve,
// generate), so the ids are attached once at the top of the request and read
// back by each stage through the Log* helpers.
package logging

import (
	"context"
	"log/slog"
)

type ctxKey string

const (
	loggerKey    ctxKey = "chronorag.logger"
	traceIDKey   ctxKey = "chronorag.trace_id"
	requestIDKey ctxKey = "chronorag.request_id"
)

// WithLogger stores a slog.Logger in the context.
//
// The logger will be used by LogInfo, LogDebug, LogWarn, LogError functions.
// If no logger is set, slog.Default() is used.
//
// Example:
//
//	logger, _ := logging.New("debug", "json", os.Stderr)
//	ctx = logging.WithLogger(ctx, logger)
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger retrieves the slog.Logger from context, or slog.Default() if none is set.
func Logger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// WithTraceID stores a trace ID in the context.
//
// The pipeline sets it from the active OpenTelemetry span so log lines and
// exported spans can be joined.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID retrieves the trace ID from context, or "" if not set.
func TraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRequestID stores a request ID in the context.
//
// Example:
//
//	ctx = logging.WithRequestID(ctx, uuid.NewString())
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID retrieves the request ID from context, or "" if not set.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
