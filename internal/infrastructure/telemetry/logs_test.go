package telemetry

import (
	"context"
	"testing"

	"github.com/erp/websync/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogsConfigFromApp(t *testing.T) {
	tests := []struct {
		name      string
		telemetry bool
		logs      bool
		want      bool
	}{
		{"both enabled", true, true, true},
		{"telemetry off", false, true, false},
		{"logs off", true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LogsConfigFromApp(config.TelemetryConfig{
				Enabled:           tt.telemetry,
				LogsEnabled:       tt.logs,
				CollectorEndpoint: "otel:4317",
				ServiceName:       "erp-websync",
			})
			assert.Equal(t, tt.want, cfg.Enabled)
			assert.Equal(t, "otel:4317", cfg.CollectorEndpoint)
		})
	}
}

func TestNewLoggerProvider_Disabled(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{ServiceName: "erp-websync"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	base := zap.NewNop()
	assert.Same(t, base, lp.Bridge(base, zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestNewLoggerProvider_Enabled(t *testing.T) {
	original := global.GetLoggerProvider()
	t.Cleanup(func() { global.SetLoggerProvider(original) })

	// the gRPC exporter dials lazily, so no collector is needed while nothing is exported
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "erp-websync",
		Insecure:          true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, lp.IsEnabled())
	assert.Same(t, lp.provider, global.GetLoggerProvider())

	base := zap.NewNop()
	assert.NotSame(t, base, lp.Bridge(base, zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestLevelFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(&levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel})

	log.Info("dropped")
	log.Warn("kept")
	log.With(zap.String("run_id", "r1")).Debug("dropped too")
	log.With(zap.String("run_id", "r1")).Error("kept with field")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "kept", entries[0].Message)
	assert.Equal(t, "kept with field", entries[1].Message)
	assert.Equal(t, "r1", entries[1].ContextMap()["run_id"])
}
