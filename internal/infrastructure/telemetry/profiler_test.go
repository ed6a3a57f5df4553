package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/erp/websync/internal/infrastructure/config"
	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestProfilerConfigFromApp(t *testing.T) {
	cfg := ProfilerConfigFromApp(config.ProfilingConfig{
		Enabled:         true,
		ServerAddress:   "http://pyroscope:4040",
		ApplicationName: "erp-websync",
		ProfileTypes:    []string{"cpu"},
	})

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "http://pyroscope:4040", cfg.ServerAddress)
	assert.Equal(t, []string{"cpu"}, cfg.ProfileTypes)
}

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProfilerConfig
		want string
	}{
		{"missing address", ProfilerConfig{Enabled: true, ApplicationName: "erp-websync"}, "server address"},
		{"missing name", ProfilerConfig{Enabled: true, ServerAddress: "http://pyroscope:4040"}, "application name"},
		{"unknown type", ProfilerConfig{
			Enabled:         true,
			ServerAddress:   "http://pyroscope:4040",
			ApplicationName: "erp-websync",
			ProfileTypes:    []string{"cpu", "heap"},
		}, `unknown profile type "heap"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProfiler(tt.cfg, zaptest.NewLogger(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseProfileTypes(t *testing.T) {
	types, err := ParseProfileTypes(nil)
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileAllocSpace,
		pyroscope.ProfileInuseSpace,
		pyroscope.ProfileGoroutines,
	}, types)

	types, err = ParseProfileTypes([]string{"mutex_count", "block_duration"})
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{pyroscope.ProfileMutexCount, pyroscope.ProfileBlockDuration}, types)
}

func TestLabelPairs(t *testing.T) {
	long := strings.Repeat("x", MaxLabelValueLength+10)
	pairs := labelPairs(map[string]string{
		"resource_type": "orders",
		"mode":          "",
		"":              "ignored",
		"operation":     long,
	})

	require.Len(t, pairs, 4)
	assert.Equal(t, "operation", pairs[0])
	assert.Len(t, pairs[1], MaxLabelValueLength)
	assert.Equal(t, []string{"resource_type", "orders"}, pairs[2:])
}

func TestWithProfilingLabels(t *testing.T) {
	var got map[string]string
	WithProfilingLabels(context.Background(), SyncProfilingLabels("products", "full"), func(ctx context.Context) {
		got = map[string]string{}
		pprof.ForLabels(ctx, func(k, v string) bool {
			got[k] = v
			return true
		})
	})

	assert.Equal(t, map[string]string{
		"operation":     "sync_run",
		"resource_type": "products",
		"mode":          "full",
	}, got)
}

func TestWithProfilingLabels_EmptyRunsDirectly(t *testing.T) {
	called := false
	WithProfilingLabels(context.Background(), nil, func(ctx context.Context) {
		called = true
		_, ok := pprof.Label(ctx, "operation")
		assert.False(t, ok)
	})
	assert.True(t, called)
}
