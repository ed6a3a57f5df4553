package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/erp/websync/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type traceRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&traceRow{}))
	return db
}

// recordGlobalSpans installs a span recorder as the global provider
func recordGlobalSpans(t *testing.T) *tracetest.SpanRecorder {
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

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func tracedConfig(thresh time.Duration) DBTracingConfig {
	return DBTracingConfig{Enabled: true, SlowQueryThresh: thresh, DBSystem: "sqlite"}
}

func TestDBTracingConfigFromApp(t *testing.T) {
	cfg := DBTracingConfigFromApp(&config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite"},
		Telemetry: config.TelemetryConfig{
			Enabled:           true,
			DBTraceEnabled:    true,
			DBLogFullSQL:      true,
			DBSlowQueryThresh: time.Second,
		},
	})
	assert.Equal(t, DBTracingConfig{
		Enabled:         true,
		LogFullSQL:      true,
		SlowQueryThresh: time.Second,
		DBSystem:        "sqlite",
	}, cfg)

	cfg = DBTracingConfigFromApp(&config.Config{
		Database:  config.DatabaseConfig{Driver: "postgres"},
		Telemetry: config.TelemetryConfig{Enabled: false, DBTraceEnabled: true},
	})
	assert.False(t, cfg.Enabled, "db tracing needs telemetry enabled")
	assert.Equal(t, "postgresql", cfg.DBSystem)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	sr := recordGlobalSpans(t)
	db := setupTestDB(t)

	require.NoError(t, NewDBTracingPlugin(DefaultDBTracingConfig(), nil).RegisterOtelGorm(db))
	require.NoError(t, db.Create(&traceRow{Name: "untraced"}).Error)

	assert.Empty(t, sr.Ended())
}

func TestDBTracingPlugin_AnnotatesQuerySpans(t *testing.T) {
	sr := recordGlobalSpans(t)
	db := setupTestDB(t)
	core, recorded := observer.New(zapcore.InfoLevel)

	require.NoError(t, NewDBTracingPlugin(tracedConfig(time.Hour), zap.New(core)).RegisterOtelGorm(db))
	assert.Len(t, recorded.FilterMessage("Database tracing enabled").All(), 1)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "sync")
	require.NoError(t, db.WithContext(ctx).Create(&[]traceRow{{Name: "a"}, {Name: "b"}}).Error)
	parent.End()

	var create sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		if v, ok := spanAttr(s, "db.sql.table"); ok && v.AsString() == "trace_rows" {
			create = s
		}
	}
	require.NotNil(t, create, "insert span carries the table name")
	assert.Equal(t, parent.SpanContext().TraceID(), create.SpanContext().TraceID())
	rows, ok := spanAttr(create, "db.rows_affected")
	require.True(t, ok)
	assert.Equal(t, int64(2), rows.AsInt64())
	_, slow := spanAttr(create, "db.slow_query")
	assert.False(t, slow)
	assert.NotEqual(t, codes.Error, create.Status().Code)
}

func TestDBTracingPlugin_SlowQuery(t *testing.T) {
	sr := recordGlobalSpans(t)
	db := setupTestDB(t)
	require.NoError(t, NewDBTracingPlugin(tracedConfig(time.Nanosecond), nil).RegisterOtelGorm(db))

	var rows []traceRow
	require.NoError(t, db.Find(&rows).Error)

	spans := sr.Ended()
	require.NotEmpty(t, spans)
	slow, ok := spanAttr(spans[len(spans)-1], "db.slow_query")
	require.True(t, ok)
	assert.True(t, slow.AsBool())

	var names []string
	for _, e := range spans[len(spans)-1].Events() {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "slow_query_warning")
}

func TestDBTracingPlugin_ErrorStatus(t *testing.T) {
	sr := recordGlobalSpans(t)
	db := setupTestDB(t)
	require.NoError(t, NewDBTracingPlugin(tracedConfig(time.Hour), nil).RegisterOtelGorm(db))

	var missing traceRow
	assert.ErrorIs(t, db.First(&missing, 42).Error, gorm.ErrRecordNotFound)
	assert.Error(t, db.Exec("SELECT * FROM no_such_table").Error)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code, "not found is not a failure")
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestQueryElapsed(t *testing.T) {
	_, ok := queryElapsed(context.Background())
	assert.False(t, ok)

	ctx := WithQueryStartTime(context.Background())
	time.Sleep(time.Millisecond)
	elapsed, ok := queryElapsed(ctx)
	require.True(t, ok)
	assert.GreaterOrEqual(t, elapsed, time.Millisecond)
}
