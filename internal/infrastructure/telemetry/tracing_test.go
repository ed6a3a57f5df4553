package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/websync/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs an in-memory span recorder as the global provider
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestStartSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "websync.run",
		telemetry.WithAttribute(telemetry.SpanAttrResourceType, "orders"),
		telemetry.WithSpanKind(trace.SpanKindClient),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "websync.run", spans[0].Name())
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
	assert.Equal(t, "orders", attrMap(spans[0].Attributes())["resource_type"].AsString())
	assert.Equal(t, telemetry.TracerName, spans[0].InstrumentationScope().Name)
}

func TestStartServiceSpan_Nested(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, parent := telemetry.StartServiceSpan(context.Background(), "websync", "run")
	_, child := telemetry.StartServiceSpan(ctx, "websync", "fetch")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "websync.fetch", spans[0].Name())
	assert.Equal(t, "websync.run", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "websync.fetch")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrStorefront, "north",
		telemetry.SpanAttrRecords, 42,
		telemetry.SpanAttrFullSync, true,
		"elapsed", 1500*time.Millisecond,
		"since", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		"statuses", []string{"completed", "processing"},
		"ratio", 0.5,
		"total", int64(9),
		7, "non-string key is skipped",
		"dangling",
	)
	span.End()

	attrs := attrMap(sr.Ended()[0].Attributes())
	assert.Len(t, attrs, 8)
	assert.Equal(t, "north", attrs["storefront"].AsString())
	assert.Equal(t, int64(42), attrs["records"].AsInt64())
	assert.True(t, attrs["full_sync"].AsBool())
	assert.Equal(t, int64(1500), attrs["elapsed_ms"].AsInt64())
	assert.Equal(t, "2026-03-01T12:00:00Z", attrs["since"].AsString())
	assert.Equal(t, []string{"completed", "processing"}, attrs["statuses"].AsStringSlice())
	assert.Equal(t, 0.5, attrs["ratio"].AsFloat64())
	assert.Equal(t, int64(9), attrs["total"].AsInt64())
}

func TestRecordErrorAndStatus(t *testing.T) {
	sr := setupTestTracer(t)

	_, failed := telemetry.StartSpan(context.Background(), "failed")
	telemetry.RecordError(failed, errors.New("storefront unreachable"))
	failed.End()

	_, ignored := telemetry.StartSpan(context.Background(), "ignored")
	telemetry.RecordError(ignored, nil)
	ignored.End()

	_, ok := telemetry.StartSpan(context.Background(), "ok")
	telemetry.SetOK(ok)
	ok.End()

	spans := sr.Ended()
	require.Len(t, spans, 3)

	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "storefront unreachable", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)

	assert.Equal(t, codes.Unset, spans[1].Status().Code)
	assert.Empty(t, spans[1].Events())

	assert.Equal(t, codes.Ok, spans[2].Status().Code)
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "websync.fetch")
	telemetry.AddEvent(span, "page_fetched", telemetry.SpanAttrPage, 3, telemetry.SpanAttrRecords, 100)
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "page_fetched", events[0].Name)
	attrs := attrMap(events[0].Attributes)
	assert.Equal(t, int64(3), attrs["page"].AsInt64())
	assert.Equal(t, int64(100), attrs["records"].AsInt64())
}

func TestSpanHelpers_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "key", "value")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.SetOK(nil)
		telemetry.AddEvent(nil, "event")
	})
}
