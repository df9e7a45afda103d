package logging

import (
	"context"
	"log/slog"
)

// LogInfo logs an info-level message with context metadata.
//
// Automatically appends trace_id and request_id from context if present.
// Uses the logger from context, or slog.Default() if not set.
//
// Example:
//
//	logging.LogInfo(ctx, "retrieved documents", "count", len(docs), "strategy", "mmr")
func LogInfo(ctx context.Context, msg string, args ...any) {
	logAt(ctx, slog.LevelInfo, msg, args)
}

// LogDebug logs a debug-level message with context metadata.
func LogDebug(ctx context.Context, msg string, args ...any) {
	logAt(ctx, slog.LevelDebug, msg, args)
}

// LogWarn logs a warning-level message with context metadata.
//
// Example:
//
//	logging.LogWarn(ctx, "query analysis fell back to raw query", "reason", res.Reason)
func LogWarn(ctx context.Context, msg string, args ...any) {
	logAt(ctx, slog.LevelWarn, msg, args)
}

// LogError logs an error-level message with context metadata.
// If err is not nil, it's added to the log with key "error".
func LogError(ctx context.Context, msg string, err error, args ...any) {
	logger := Logger(ctx)
	if !logger.Enabled(ctx, slog.LevelError) {
		return
	}
	args = appendContextFields(ctx, args)
	if err != nil {
		args = append(args, "error", err)
	}
	logger.ErrorContext(ctx, msg, args...)
}

// LogWith returns a logger with trace_id and request_id pre-attached.
//
// Example:
//
//	log := logging.LogWith(ctx, "component", "qdrant")
//	log.Debug("query", "limit", limit)
func LogWith(ctx context.Context, args ...any) *slog.Logger {
	return Logger(ctx).With(appendContextFields(ctx, args)...)
}

// LogAttr logs with slog.Attr values plus the context ids.
func LogAttr(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	logger := Logger(ctx)
	if !logger.Enabled(ctx, level) {
		return
	}
	if traceID := TraceID(ctx); traceID != "" {
		attrs = append(attrs, slog.String("trace_id", traceID))
	}
	if requestID := RequestID(ctx); requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	logger.LogAttrs(ctx, level, msg, attrs...)
}

func logAt(ctx context.Context, level slog.Level, msg string, args []any) {
	logger := Logger(ctx)
	if !logger.Enabled(ctx, level) {
		return
	}
	logger.Log(ctx, level, msg, appendContextFields(ctx, args)...)
}

// appendContextFields adds trace_id and request_id to args if present in context.
func appendContextFields(ctx context.Context, args []any) []any {
	if traceID := TraceID(ctx); traceID != "" {
		args = append(args, "trace_id", traceID)
	}
	if requestID := RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	return args
}
