package logging

import (
	"context"
	"fmt"
	"log/slog"
)

// Error is a context-aware error that carries request metadata for logging.
//
// It supports errors.Is / errors.As through Unwrap, so sentinel errors such as
// retrieval.ErrDimensionMismatch remain detectable after wrapping.
//
// Example:
//
//	return nil, logging.WrapErr(ctx, err, "retrieve documents").
//	    Tag(slog.String("query_type", string(q.Type)))
type Error struct {
	msg       string
	cause     error
	traceID   string
	requestID string
	attrs     []slog.Attr
}

// WrapErr wraps an existing error with the trace and request ids found in ctx.
func WrapErr(ctx context.Context, err error, msg string) *Error {
	return &Error{
		msg:       msg,
		cause:     err,
		traceID:   TraceID(ctx),
		requestID: RequestID(ctx),
	}
}

// NewErr creates a new error with context metadata and no underlying cause.
func NewErr(ctx context.Context, msg string) *Error {
	return WrapErr(ctx, nil, msg)
}

// Tag adds a slog.Attr to the error and returns it for chaining.
func (e *Error) Tag(attr slog.Attr) *Error {
	e.attrs = append(e.attrs, attr)
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// TraceID returns the trace ID captured when the error was created.
func (e *Error) TraceID() string { return e.traceID }

// RequestID returns the request ID captured when the error was created.
func (e *Error) RequestID() string { return e.requestID }

// Message returns the error message without the cause.
func (e *Error) Message() string { return e.msg }

// LogAttrs returns the cause, ids and tags as slog attributes.
func (e *Error) LogAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(e.attrs)+3)
	if e.cause != nil {
		attrs = append(attrs, slog.Any("error", e.cause))
	}
	if e.traceID != "" {
		attrs = append(attrs, slog.String("trace_id", e.traceID))
	}
	if e.requestID != "" {
		attrs = append(attrs, slog.String("request_id", e.requestID))
	}
	return append(attrs, e.attrs...)
}

// Log writes the error at error level using the logger from ctx.
//
// The ids are taken from the error itself, not from ctx, so an error logged
// after the request context is gone still carries them.
func (e *Error) Log(ctx context.Context) {
	logger := Logger(ctx)
	if !logger.Enabled(ctx, slog.LevelError) {
		return
	}
	logger.LogAttrs(ctx, slog.LevelError, e.msg, e.LogAttrs()...)
}
