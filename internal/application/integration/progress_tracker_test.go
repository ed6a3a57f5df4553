package integration

import (
	"sync"
	"testing"

	"github.com/erp/websync/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressTracker_InitialSnapshots(t *testing.T) {
	tracker := NewProgressTracker(0)

	for _, rt := range integration.AllResourceTypes() {
		snap, err := tracker.Snapshot(rt)
		require.NoError(t, err)
		assert.Equal(t, rt, snap.ResourceType)
		assert.Equal(t, integration.StepIdle, snap.CurrentStep)
		assert.False(t, snap.IsSyncing)
	}

	_, err := tracker.Snapshot("customers")
	assert.ErrorIs(t, err, integration.ErrProgressNotRegistered)
}

func TestProgressTracker_BeginRejectsSecondRun(t *testing.T) {
	tracker := NewProgressTracker(0)

	run, err := tracker.Begin(integration.ResourceTypeOrders, "run-1", integration.SyncModeIncremental)
	require.NoError(t, err)
	run.StartFetching("north")
	run.OnPage("north", 3, 250)
	before, err := tracker.Snapshot(integration.ResourceTypeOrders)
	require.NoError(t, err)

	_, err = tracker.Begin(integration.ResourceTypeOrders, "run-2", integration.SyncModeFull)
	assert.ErrorIs(t, err, integration.ErrSyncInProgress)

	after, err := tracker.Snapshot(integration.ResourceTypeOrders)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, "run-1", after.RunID)
	assert.Equal(t, integration.FetchState{Storefront: "north", Page: 3, Found: 250}, after.Fetch)

	// the other resource type is independent
	_, err = tracker.Begin(integration.ResourceTypeProducts, "run-3", integration.SyncModeFull)
	assert.NoError(t, err)
}

func TestProgressTracker_TerminalStateClearedOnlyByNextRun(t *testing.T) {
	tracker := NewProgressTracker(0)

	run, err := tracker.Begin(integration.ResourceTypeProducts, "run-1", integration.SyncModeFull)
	require.NoError(t, err)
	run.Step(integration.StepConnecting)
	run.SetTotal(4)
	run.Processing(2, "north", "Processing #1")
	run.Tally(1, 1, 0)
	run.Finish(integration.StepComplete, "Sync complete")

	snap := run.Snapshot()
	assert.False(t, snap.IsSyncing)
	assert.Equal(t, integration.StepComplete, snap.CurrentStep)
	assert.Equal(t, 4, snap.Progress)
	assert.NotNil(t, snap.FinishedAt)
	assert.Equal(t, "Sync complete", snap.Debug().LastLog)

	// writes after the run finished are ignored
	run.Log(integration.LogInfo, "", "late")
	run.Step(integration.StepFailed)
	snap = run.Snapshot()
	assert.Equal(t, integration.StepComplete, snap.CurrentStep)
	assert.Equal(t, "Sync complete", snap.Debug().LastLog)

	next, err := tracker.Begin(integration.ResourceTypeProducts, "run-2", integration.SyncModeIncremental)
	require.NoError(t, err)
	snap = next.Snapshot()
	assert.True(t, snap.IsSyncing)
	assert.Equal(t, integration.StepIdle, snap.CurrentStep)
	assert.Equal(t, 0, snap.Added)
	require.Len(t, snap.Logs, 1)
	assert.Equal(t, "Queued incremental products sync", snap.Logs[0].Message)

	// the finished run's handle cannot touch the new run
	run.Log(integration.LogError, "", "stale")
	assert.Len(t, next.Snapshot().Logs, 1)
}

func TestRunProgress_StepsOnlyMoveForward(t *testing.T) {
	tracker := NewProgressTracker(0)
	run, err := tracker.Begin(integration.ResourceTypeOrders, "run-1", integration.SyncModeFull)
	require.NoError(t, err)

	run.Step(integration.StepProcessing)
	run.Step(integration.StepFetching)
	assert.Equal(t, integration.StepProcessing, run.Snapshot().CurrentStep)

	run.Finish(integration.StepFailed, "Sync failed: %v", errStore)
	snap := run.Snapshot()
	assert.Equal(t, integration.StepFailed, snap.CurrentStep)
	require.Len(t, snap.ErrorLogs(), 1)
	assert.Contains(t, snap.ErrorLogs()[0].Message, "store unavailable")
}

func TestRunProgress_LogIsCapped(t *testing.T) {
	tracker := NewProgressTracker(5)
	run, err := tracker.Begin(integration.ResourceTypeOrders, "run-1", integration.SyncModeFull)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		run.Log(integration.LogInfo, "north", "line %d", i)
	}

	snap := run.Snapshot()
	require.Len(t, snap.Logs, 5)
	assert.Equal(t, "line 15", snap.Logs[0].Message)
	assert.Equal(t, "line 19", snap.Logs[4].Message)
}

func TestProgressTracker_ConcurrentReaders(t *testing.T) {
	tracker := NewProgressTracker(50)
	run, err := tracker.Begin(integration.ResourceTypeOrders, "run-1", integration.SyncModeFull)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			run.Log(integration.LogInfo, "", "entry %d", i)
			run.Processing(i, "north", "item")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			snap, err := tracker.Snapshot(integration.ResourceTypeOrders)
			if assert.NoError(t, err) {
				assert.LessOrEqual(t, len(snap.Logs), 50)
			}
		}
	}()
	wg.Wait()
}
