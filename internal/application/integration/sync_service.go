package integration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/websync/internal/domain/integration"
	"github.com/erp/websync/internal/domain/shared"
	"github.com/erp/websync/internal/infrastructure/scheduler"
	"go.uber.org/zap"
)

// SyncDispatcher runs submitted jobs in the background
type SyncDispatcher interface {
	IsRunning() bool
	SubmitJob(job *scheduler.SyncJob) error
	RecentJobs(limit int) []scheduler.SyncJob
}

// RunLocker guards single-flight across processes. TryLock returns ok=false
// when another holder owns key.
type RunLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string) error
}

// DefaultLockTTL outlives the default job timeout
const DefaultLockTTL = 35 * time.Minute

// LockKey returns the run lock key of a resource type
func LockKey(rt integration.ResourceType) string {
	return "websync:lock:" + rt.String()
}

// TriggerResult is returned to the caller that started a run
type TriggerResult struct {
	RunID   string
	Mode    integration.SyncMode
	Message string
}

// ProgressView is the snapshot served to polling clients
type ProgressView struct {
	Snapshot integration.ProgressSnapshot
	Debug    integration.ProgressDebug
}

// SyncServiceOption configures a SyncService
type SyncServiceOption func(*SyncService)

// WithRunLocker adds a cross-process run lock
func WithRunLocker(locker RunLocker, ttl time.Duration) SyncServiceOption {
	return func(s *SyncService) {
		s.locker = locker
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithDispatcher sets the job dispatcher
func WithDispatcher(d SyncDispatcher) SyncServiceOption {
	return func(s *SyncService) {
		s.dispatcher = d
	}
}

type pendingRun struct {
	progress  *RunProgress
	lockKey   string
	lockToken string
}

// SyncService starts sync runs and serves their progress. Trigger returns as
// soon as the run is queued; the dispatcher later calls ExecuteSync.
type SyncService struct {
	tracker     *ProgressTracker
	coordinator *SyncCoordinator
	checkpoints integration.CheckpointRepository
	dispatcher  SyncDispatcher
	locker      RunLocker
	lockTTL     time.Duration
	logger      *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingRun
}

// NewSyncService creates a new SyncService
func NewSyncService(
	tracker *ProgressTracker,
	coordinator *SyncCoordinator,
	checkpoints integration.CheckpointRepository,
	logger *zap.Logger,
	opts ...SyncServiceOption,
) *SyncService {
	s := &SyncService{
		tracker:     tracker,
		coordinator: coordinator,
		checkpoints: checkpoints,
		lockTTL:     DefaultLockTTL,
		logger:      logger,
		pending:     make(map[string]*pendingRun),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetDispatcher sets the dispatcher after construction; the runner needs the
// service as its executor so one of the two is wired late
func (s *SyncService) SetDispatcher(d SyncDispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatcher = d
}

// Trigger starts a run and maps failures to domain errors for HTTP callers
func (s *SyncService) Trigger(ctx context.Context, rt integration.ResourceType, full bool) (*TriggerResult, error) {
	mode := integration.ModeOf(full)
	runID, err := s.StartSync(ctx, rt, mode)
	if err != nil {
		switch {
		case errors.Is(err, integration.ErrInvalidResourceType):
			return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown sync type %q", rt))
		case errors.Is(err, integration.ErrSyncInProgress):
			return nil, shared.NewDomainError(shared.CodeConflict, fmt.Sprintf("A %s sync is already in progress", rt))
		case errors.Is(err, scheduler.ErrSchedulerNotRunning), errors.Is(err, scheduler.ErrJobQueueFull):
			return nil, shared.NewDomainError(shared.CodeUnavailable, "Sync runner is not accepting jobs")
		default:
			return nil, err
		}
	}

	msg := "Incremental sync started"
	if mode == integration.SyncModeFull {
		msg = "Full sync started"
	}
	return &TriggerResult{RunID: runID, Mode: mode, Message: msg}, nil
}

// StartSync queues a run and returns its id. It returns the raw sentinel
// errors; Trigger maps them for HTTP.
func (s *SyncService) StartSync(ctx context.Context, rt integration.ResourceType, mode integration.SyncMode) (string, error) {
	if !rt.IsValid() {
		return "", fmt.Errorf("%w: %q", integration.ErrInvalidResourceType, rt)
	}

	s.mu.Lock()
	dispatcher := s.dispatcher
	s.mu.Unlock()
	if dispatcher == nil || !dispatcher.IsRunning() {
		return "", scheduler.ErrSchedulerNotRunning
	}

	run := &pendingRun{}
	if s.locker != nil {
		key := LockKey(rt)
		token, ok, err := s.locker.TryLock(ctx, key, s.lockTTL)
		if err != nil {
			return "", fmt.Errorf("failed to acquire run lock: %w", err)
		}
		if !ok {
			return "", integration.ErrSyncInProgress
		}
		run.lockKey, run.lockToken = key, token
	}

	job := scheduler.NewSyncJob(rt, mode)
	progress, err := s.tracker.Begin(rt, job.ID, mode)
	if err != nil {
		s.unlock(ctx, run)
		return "", err
	}
	run.progress = progress

	s.mu.Lock()
	s.pending[job.ID] = run
	s.mu.Unlock()

	if err := dispatcher.SubmitJob(job); err != nil {
		s.mu.Lock()
		delete(s.pending, job.ID)
		s.mu.Unlock()
		progress.Finish(integration.StepFailed, "Sync not started: %v", err)
		s.unlock(ctx, run)
		return "", err
	}

	s.logger.Info("Sync queued",
		zap.String("run_id", job.ID),
		zap.String("resource_type", rt.String()),
		zap.String("mode", string(mode)),
	)
	return job.ID, nil
}

// ExecuteSync implements scheduler.SyncJobExecutor
func (s *SyncService) ExecuteSync(ctx context.Context, job *scheduler.SyncJob) error {
	s.mu.Lock()
	run, ok := s.pending[job.ID]
	delete(s.pending, job.ID)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: run %s", integration.ErrProgressNotRegistered, job.ID)
	}
	defer s.unlock(context.WithoutCancel(ctx), run)

	outcome, err := s.Execute(ctx, SyncRequest{
		RunID:        job.ID,
		ResourceType: job.ResourceType,
		Mode:         job.Mode,
		Progress:     run.progress,
	})
	if outcome != nil {
		job.Fetched = outcome.Fetched
		job.Added = outcome.Added
		job.Updated = outcome.Updated
		job.Skipped = outcome.Skipped
	}
	if err != nil {
		return err
	}
	job.Complete(job.Fetched, job.Added, job.Updated, job.Skipped)
	return nil
}

// Execute runs a sync synchronously
func (s *SyncService) Execute(ctx context.Context, req SyncRequest) (*SyncOutcome, error) {
	return s.coordinator.Run(ctx, req)
}

// Progress returns the snapshot of a resource type with its debug block
func (s *SyncService) Progress(rt integration.ResourceType) (ProgressView, error) {
	if !rt.IsValid() {
		return ProgressView{}, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown sync type %q", rt))
	}
	snap, err := s.tracker.Snapshot(rt)
	if err != nil {
		return ProgressView{}, err
	}
	return ProgressView{Snapshot: snap, Debug: snap.Debug()}, nil
}

// Checkpoints lists every stored checkpoint
func (s *SyncService) Checkpoints(ctx context.Context) ([]integration.SyncCheckpoint, error) {
	return s.checkpoints.List(ctx)
}

// Runs returns the most recent finished runs, newest first
func (s *SyncService) Runs(limit int) []scheduler.SyncJob {
	s.mu.Lock()
	dispatcher := s.dispatcher
	s.mu.Unlock()
	if dispatcher == nil {
		return nil
	}
	return dispatcher.RecentJobs(limit)
}

func (s *SyncService) unlock(ctx context.Context, run *pendingRun) {
	if s.locker == nil || run.lockKey == "" {
		return
	}
	if err := s.locker.Unlock(ctx, run.lockKey, run.lockToken); err != nil {
		s.logger.Warn("Failed to release run lock",
			zap.String("key", run.lockKey),
			zap.Error(err),
		)
	}
}
