// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Record outcomes used as the outcome label of websync_records_total
const (
	OutcomeAdded   = "added"
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeFetched = "fetched"
)

// SyncMetrics tracks storefront sync activity: records handled per outcome,
// finished runs per status and run duration.
// A nil *SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	recordsTotal *Counter
	runsTotal    *Counter
	runDuration  *Histogram
}

// SyncMetricsConfig holds configuration for sync metrics.
type SyncMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewSyncMetrics creates a new SyncMetrics instance.
func NewSyncMetrics(cfg SyncMetricsConfig) (*SyncMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SyncMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	var err error

	sm.recordsTotal, err = NewCounter(
		cfg.Meter,
		"websync_records_total",
		"Total number of storefront records handled by sync runs",
		"{records}",
	)
	if err != nil {
		return nil, err
	}

	sm.runsTotal, err = NewCounter(
		cfg.Meter,
		"websync_runs_total",
		"Total number of finished sync runs",
		"{runs}",
	)
	if err != nil {
		return nil, err
	}

	sm.runDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "websync_run_duration_seconds",
		Description: "Wall-clock duration of sync runs",
		Unit:        "s",
		Boundaries:  SyncDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// RecordRecords adds n records with the given outcome for a storefront
func (sm *SyncMetrics) RecordRecords(ctx context.Context, resourceType, storefront, outcome string, n int) {
	if sm == nil || n <= 0 {
		return
	}
	sm.recordsTotal.Add(ctx, int64(n),
		AttrResourceType.String(resourceType),
		AttrStorefront.String(storefront),
		AttrOutcome.String(outcome),
	)
}

// RecordRun records a finished run and its duration
func (sm *SyncMetrics) RecordRun(ctx context.Context, resourceType, status string, d time.Duration) {
	if sm == nil {
		return
	}
	sm.runsTotal.Inc(ctx,
		AttrResourceType.String(resourceType),
		AttrRunStatus.String(status),
	)
	sm.runDuration.RecordDuration(ctx, d, AttrResourceType.String(resourceType))
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewSyncMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// =============================================================================
// Attribute Key Constants
// =============================================================================

// Sync metric attribute keys
var (
	AttrResourceType = attribute.Key("resource_type")
	AttrStorefront   = attribute.Key("storefront")
	AttrOutcome      = attribute.Key("outcome")
	AttrRunStatus    = attribute.Key("status")
)
