package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erp/websync/internal/domain/integration"
)

// SyncStarter starts a sync run in the background and returns its run id.
// It returns integration.ErrSyncInProgress when a run of that type is active.
type SyncStarter interface {
	StartSync(ctx context.Context, rt integration.ResourceType, mode integration.SyncMode) (string, error)
}

// ---------------------------------------------------------------------------
// AutoSyncTriggerConfig
// ---------------------------------------------------------------------------

// AutoSyncTriggerConfig holds configuration for periodic incremental syncs
type AutoSyncTriggerConfig struct {
	// Interval between incremental runs of each resource type
	Interval time.Duration
	// ResourceTypes to sync; defaults to all
	ResourceTypes []integration.ResourceType
	// RunOnStart triggers a round immediately instead of waiting one interval
	RunOnStart bool
}

// DefaultAutoSyncTriggerConfig returns default configuration
func DefaultAutoSyncTriggerConfig() AutoSyncTriggerConfig {
	return AutoSyncTriggerConfig{
		Interval:      15 * time.Minute,
		ResourceTypes: integration.AllResourceTypes(),
	}
}

// ---------------------------------------------------------------------------
// AutoSyncTrigger
// ---------------------------------------------------------------------------

// AutoSyncTrigger starts incremental runs for each resource type on a fixed interval
type AutoSyncTrigger struct {
	config  AutoSyncTriggerConfig
	starter SyncStarter
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewAutoSyncTrigger creates a new auto sync trigger
func NewAutoSyncTrigger(config AutoSyncTriggerConfig, starter SyncStarter, logger *zap.Logger) (*AutoSyncTrigger, error) {
	if config.Interval <= 0 {
		return nil, ErrInvalidConfig
	}
	if len(config.ResourceTypes) == 0 {
		config.ResourceTypes = integration.AllResourceTypes()
	}
	for _, rt := range config.ResourceTypes {
		if !rt.IsValid() {
			return nil, ErrInvalidConfig
		}
	}
	return &AutoSyncTrigger{
		config:  config,
		starter: starter,
		logger:  logger,
	}, nil
}

// Start starts the trigger loop
func (t *AutoSyncTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Auto sync trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Int("resource_types", len(t.config.ResourceTypes)),
	)

	return nil
}

// Stop stops the trigger loop
func (t *AutoSyncTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Auto sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *AutoSyncTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	if t.config.RunOnStart {
		t.triggerAll(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.triggerAll(ctx)
		}
	}
}

// triggerAll starts an incremental run per resource type. A run already in
// progress is expected and only logged at debug level.
func (t *AutoSyncTrigger) triggerAll(ctx context.Context) {
	for _, rt := range t.config.ResourceTypes {
		if ctx.Err() != nil {
			return
		}
		runID, err := t.starter.StartSync(ctx, rt, integration.SyncModeIncremental)
		switch {
		case err == nil:
			t.logger.Info("Scheduled incremental sync",
				zap.String("resource_type", rt.String()),
				zap.String("run_id", runID),
			)
		case errors.Is(err, integration.ErrSyncInProgress):
			t.logger.Debug("Sync already in progress, skipping scheduled run",
				zap.String("resource_type", rt.String()),
			)
		default:
			t.logger.Error("Failed to schedule sync",
				zap.String("resource_type", rt.String()),
				zap.Error(err),
			)
		}
	}
}
