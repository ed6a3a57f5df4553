package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/websync/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func TestNewSyncMetrics_NilMeter(t *testing.T) {
	sm, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{Logger: zap.NewNop()})

	require.Error(t, err)
	assert.Nil(t, sm)
	assert.Equal(t, "NewSyncMetrics: meter cannot be nil", err.Error())
}

func TestSyncMetrics_Records(t *testing.T) {
	meter, reader := newTestMeter(t)
	sm, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{Meter: meter})
	require.NoError(t, err)

	ctx := context.Background()
	sm.RecordRecords(ctx, "orders", "north", telemetry.OutcomeFetched, 10)
	sm.RecordRecords(ctx, "orders", "north", telemetry.OutcomeAdded, 3)
	sm.RecordRecords(ctx, "orders", "north", telemetry.OutcomeUpdated, 7)
	sm.RecordRecords(ctx, "orders", "north", telemetry.OutcomeSkipped, 0)

	got := sumByAttr(t, collectMetric(t, reader, "websync_records_total"), telemetry.AttrOutcome)
	assert.Equal(t, map[string]int64{"fetched": 10, "added": 3, "updated": 7}, got)
}

func TestSyncMetrics_Runs(t *testing.T) {
	meter, reader := newTestMeter(t)
	sm, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{Meter: meter})
	require.NoError(t, err)

	ctx := context.Background()
	sm.RecordRun(ctx, "products", "Complete", 40*time.Second)
	sm.RecordRun(ctx, "products", "Failed", 2*time.Second)
	sm.RecordRun(ctx, "orders", "Complete", time.Minute)

	runs := sumByAttr(t, collectMetric(t, reader, "websync_runs_total"), telemetry.AttrRunStatus)
	assert.Equal(t, map[string]int64{"Complete": 2, "Failed": 1}, runs)

	hist := collectMetric(t, reader, "websync_run_duration_seconds").Data.(metricdata.Histogram[float64])
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestSyncMetrics_NilReceiver(t *testing.T) {
	var sm *telemetry.SyncMetrics

	assert.NotPanics(t, func() {
		sm.RecordRecords(context.Background(), "products", "north", telemetry.OutcomeUpdated, 1)
		sm.RecordRun(context.Background(), "products", "Failed", time.Second)
	})
}
