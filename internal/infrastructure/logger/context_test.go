package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// bufferLogger returns a JSON logger writing into the returned buffer
func bufferLogger() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.DebugLevel)
	return zap.New(core), &buf
}

func startRealSpan(t *testing.T) (context.Context, func()) {
	t.Helper()
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("logger-test").Start(context.Background(), "op")
	return ctx, func() {
		span.End()
		_ = tp.Shutdown(context.Background())
	}
}

func TestWithContext(t *testing.T) {
	logger, err := New(&Config{Format: "console"})
	require.NoError(t, err)

	ctx := WithContext(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
}

func TestFromContext_NotFound(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), LoggerKey, "not a logger")
	assert.NotNil(t, FromContext(ctx))
}

func TestWithRequestID(t *testing.T) {
	base, buf := bufferLogger()

	ctx, enriched := WithRequestID(context.Background(), base, "req-123")
	enriched.Info("hello")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Same(t, enriched, FromContext(ctx))
	assert.Contains(t, buf.String(), `"request_id":"req-123"`)
}

func TestWithRunID(t *testing.T) {
	base, buf := bufferLogger()

	ctx, enriched := WithRunID(context.Background(), base, "run-42", "orders")
	enriched.Info("sync step")

	assert.Equal(t, "run-42", GetRunID(ctx))
	assert.Empty(t, GetRequestID(ctx))
	assert.Contains(t, buf.String(), `"run_id":"run-42"`)
	assert.Contains(t, buf.String(), `"resource_type":"orders"`)
}

func TestContextChaining(t *testing.T) {
	base, buf := bufferLogger()

	ctx, _ := WithRequestID(context.Background(), base, "req-1")
	ctx, _ = WithRunID(ctx, FromContext(ctx), "run-1", "products")
	FromContext(ctx).Info("chained")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "run-1", GetRunID(ctx))
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), `"run_id":"run-1"`)
}

func TestGetTraceID(t *testing.T) {
	t.Run("empty without a span", func(t *testing.T) {
		assert.Empty(t, GetTraceID(context.Background()))
	})

	t.Run("returns the active trace", func(t *testing.T) {
		ctx, end := startRealSpan(t)
		defer end()

		assert.Len(t, GetTraceID(ctx), 32)
	})
}

func TestWithTraceContext(t *testing.T) {
	t.Run("returns the same logger without a span", func(t *testing.T) {
		base := zap.NewNop()
		assert.Same(t, base, WithTraceContext(context.Background(), base))
	})

	t.Run("adds trace and span ids", func(t *testing.T) {
		ctx, end := startRealSpan(t)
		defer end()
		base, buf := bufferLogger()

		WithTraceContext(ctx, base).Info("traced")

		assert.Contains(t, buf.String(), `"trace_id":"`+GetTraceID(ctx)+`"`)
		assert.Contains(t, buf.String(), `"span_id":`)
	})
}

func TestL(t *testing.T) {
	ctx, end := startRealSpan(t)
	defer end()
	base, buf := bufferLogger()
	ctx, _ = WithRunID(ctx, base, "run-7", "orders")

	L(ctx).Warn("storefront fetch failed", zap.String("storefront", "north"))

	out := buf.String()
	assert.Contains(t, out, `"run_id":"run-7"`)
	assert.Contains(t, out, `"trace_id":`)
	assert.Contains(t, out, `"storefront":"north"`)
	assert.Contains(t, out, `"level":"warn"`)
}
