package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

// Context keys. Values stored under them are only read through this package.
const (
	LoggerKey    contextKey = "logger"
	RequestIDKey contextKey = "request_id"
	RunIDKey     contextKey = "run_id"
)

// WithContext stores logger in ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the stored logger, or a no-op logger when ctx has none
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID tags ctx and logger with an HTTP request id
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	l := logger.With(zap.String("request_id", requestID))
	return WithContext(context.WithValue(ctx, RequestIDKey, requestID), l), l
}

// WithRunID tags ctx and logger with a sync run id and its resource type.
// Everything logged during the run, SQL included, carries the id.
func WithRunID(ctx context.Context, logger *zap.Logger, runID, resourceType string) (context.Context, *zap.Logger) {
	l := logger.With(zap.String("run_id", runID), zap.String("resource_type", resourceType))
	return WithContext(context.WithValue(ctx, RunIDKey, runID), l), l
}

// GetRequestID returns the request id or ""
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetRunID returns the run id or ""
func GetRunID(ctx context.Context) string {
	return stringValue(ctx, RunIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// GetTraceID returns the hex trace id of the active span, or "" without one
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// WithTraceContext adds trace_id and span_id of the active span. Without a
// valid span logger is returned as is.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

// L is FromContext plus the active span ids.
func L(ctx context.Context) *zap.Logger {
	return WithTraceContext(ctx, FromContext(ctx))
}
