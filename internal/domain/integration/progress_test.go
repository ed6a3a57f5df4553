package integration

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncStep_CanAdvanceTo(t *testing.T) {
	tests := []struct {
		from SyncStep
		to   SyncStep
		want bool
	}{
		{StepIdle, StepConnecting, true},
		{StepConnecting, StepFetching, true},
		{StepFetching, StepFetching, true},
		{StepFetching, StepProcessing, true},
		{StepFetching, StepComplete, true},
		{StepProcessing, StepProcessing, true},
		{StepProcessing, StepFinalizing, true},
		{StepFinalizing, StepComplete, true},
		{StepProcessing, StepFailed, true},
		{StepConnecting, StepConnecting, false},
		{StepProcessing, StepFetching, false},
		{StepComplete, StepFetching, false},
		{StepFailed, StepComplete, false},
		{StepComplete, StepFailed, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanAdvanceTo(tt.to))
		})
	}
}

func TestProgressSnapshot_AppendLogCapsEntries(t *testing.T) {
	s := NewProgressSnapshot(ResourceTypeOrders)
	for i := 0; i < 7; i++ {
		s.AppendLog(LogEntry{Message: fmt.Sprintf("line %d", i)}, 5)
	}

	require.Len(t, s.Logs, 5)
	assert.Equal(t, "line 2", s.Logs[0].Message)
	assert.Equal(t, "line 6", s.Logs[4].Message)
}

func TestProgressSnapshot_CloneIsIndependent(t *testing.T) {
	now := time.Now()
	s := NewProgressSnapshot(ResourceTypeProducts)
	s.StartedAt = &now
	s.AppendLog(LogEntry{Message: "one"}, 0)

	c := s.Clone()
	s.AppendLog(LogEntry{Message: "two"}, 0)
	s.Logs[0].Message = "changed"
	later := now.Add(time.Hour)
	*s.StartedAt = later

	require.Len(t, c.Logs, 1)
	assert.Equal(t, "one", c.Logs[0].Message)
	assert.Equal(t, now, *c.StartedAt)
}

func TestProgressSnapshot_Debug(t *testing.T) {
	s := NewProgressSnapshot(ResourceTypeProducts)
	assert.Equal(t, ProgressDebug{}, s.Debug())

	s.AppendLog(LogEntry{Level: LogInfo, Message: "a"}, 0)
	s.AppendLog(LogEntry{Level: LogError, Message: "b"}, 0)
	assert.Equal(t, ProgressDebug{LogCount: 2, LastLog: "b"}, s.Debug())
	assert.Len(t, s.ErrorLogs(), 1)
}

func TestSyncCheckpoint(t *testing.T) {
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	t.Run("Cursor", func(t *testing.T) {
		assert.Nil(t, Cursor(nil, SyncModeIncremental))

		cp := NewSyncCheckpoint(ResourceTypeOrders, "shop-a")
		assert.Equal(t, "orders-shop-a", cp.ID)
		assert.Nil(t, Cursor(cp, SyncModeIncremental), "never synced")

		cp.Advance(start, SyncModeIncremental, 3, SyncStats{})
		require.NotNil(t, Cursor(cp, SyncModeIncremental))
		assert.Equal(t, start, *Cursor(cp, SyncModeIncremental))
		assert.Nil(t, Cursor(cp, SyncModeFull))
	})

	t.Run("Advance only moves full timestamp on full runs", func(t *testing.T) {
		cp := NewSyncCheckpoint(ResourceTypeProducts, "shop-a")
		cp.Advance(start, SyncModeIncremental, 10, SyncStats{Added: 1})
		assert.Nil(t, cp.LastFullSyncAt)
		assert.Equal(t, int64(10), cp.RecordCount)
		assert.Equal(t, 1, cp.Stats.Added)

		later := start.Add(time.Hour)
		cp.Advance(later, SyncModeFull, 11, SyncStats{Updated: 11})
		require.NotNil(t, cp.LastFullSyncAt)
		assert.Equal(t, later, *cp.LastFullSyncAt)
		assert.Equal(t, later, cp.LastSyncAt)
	})
}
