package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/websync/internal/domain/integration"
	"github.com/erp/websync/internal/infrastructure/telemetry"
)

// ---------------------------------------------------------------------------
// Sync Job Types
// ---------------------------------------------------------------------------

// SyncJobStatus represents the status of a sync job
type SyncJobStatus string

const (
	SyncJobStatusPending   SyncJobStatus = "PENDING"
	SyncJobStatusRunning   SyncJobStatus = "RUNNING"
	SyncJobStatusSuccess   SyncJobStatus = "SUCCESS"
	SyncJobStatusFailed    SyncJobStatus = "FAILED"
	SyncJobStatusCancelled SyncJobStatus = "CANCELLED"
)

// IsFinished returns true once the job can no longer change
func (s SyncJobStatus) IsFinished() bool {
	return s == SyncJobStatusSuccess || s == SyncJobStatusFailed || s == SyncJobStatusCancelled
}

// SyncJob is one queued or finished sync run. Its ID is the run id shown in
// the progress snapshot.
type SyncJob struct {
	ID           string
	ResourceType integration.ResourceType
	Mode         integration.SyncMode
	Status       SyncJobStatus
	Error        string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time

	// Run results
	Fetched int
	Added   int
	Updated int
	Skipped int
}

// NewSyncJob creates a pending job with a fresh run id
func NewSyncJob(rt integration.ResourceType, mode integration.SyncMode) *SyncJob {
	return &SyncJob{
		ID:           uuid.NewString(),
		ResourceType: rt,
		Mode:         mode,
		Status:       SyncJobStatusPending,
		CreatedAt:    time.Now(),
	}
}

// Start marks the job as running
func (j *SyncJob) Start() {
	now := time.Now()
	j.Status = SyncJobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful with its counts
func (j *SyncJob) Complete(fetched, added, updated, skipped int) {
	now := time.Now()
	j.Status = SyncJobStatusSuccess
	j.CompletedAt = &now
	j.Fetched = fetched
	j.Added = added
	j.Updated = updated
	j.Skipped = skipped
}

// Fail marks the job as failed
func (j *SyncJob) Fail(err string) {
	now := time.Now()
	j.Status = SyncJobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// Cancel marks the job as cancelled
func (j *SyncJob) Cancel(reason string) {
	now := time.Now()
	j.Status = SyncJobStatusCancelled
	j.CompletedAt = &now
	j.Error = reason
}

// ---------------------------------------------------------------------------
// SyncJobExecutor Interface
// ---------------------------------------------------------------------------

// SyncJobExecutor executes sync jobs. Implementations record results on the
// job via Complete; the runner records failures.
type SyncJobExecutor interface {
	ExecuteSync(ctx context.Context, job *SyncJob) error
}

// SyncJobExecutorFunc adapts a function to SyncJobExecutor
type SyncJobExecutorFunc func(ctx context.Context, job *SyncJob) error

// ExecuteSync implements SyncJobExecutor
func (f SyncJobExecutorFunc) ExecuteSync(ctx context.Context, job *SyncJob) error {
	return f(ctx, job)
}

// ---------------------------------------------------------------------------
// SyncRunnerConfig
// ---------------------------------------------------------------------------

// SyncRunnerConfig holds configuration for the sync runner
type SyncRunnerConfig struct {
	// Workers is the number of jobs that may run at once
	Workers int
	// QueueSize is the capacity of the pending job queue
	QueueSize int
	// JobTimeout is the maximum time a job can run
	JobTimeout time.Duration
	// HistorySize is the number of finished jobs kept for inspection
	HistorySize int
}

// DefaultSyncRunnerConfig returns default configuration
func DefaultSyncRunnerConfig() SyncRunnerConfig {
	return SyncRunnerConfig{
		Workers:     2,
		QueueSize:   16,
		JobTimeout:  30 * time.Minute,
		HistorySize: 50,
	}
}

// Validate validates the configuration
func (c *SyncRunnerConfig) Validate() error {
	if c.Workers <= 0 {
		return ErrInvalidConfig
	}
	if c.QueueSize <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.HistorySize < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// SyncRunner
// ---------------------------------------------------------------------------

// SyncRunner executes sync jobs on a fixed worker pool, detached from the
// requests that submit them. Jobs are not retried; operators re-trigger.
type SyncRunner struct {
	config   SyncRunnerConfig
	executor SyncJobExecutor
	logger   *zap.Logger

	jobs      chan *SyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Job history for monitoring (in-memory, limited size)
	historyMu sync.RWMutex
	history   []*SyncJob
}

// NewSyncRunner creates a new sync runner
func NewSyncRunner(config SyncRunnerConfig, executor SyncJobExecutor, logger *zap.Logger) (*SyncRunner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SyncRunner{
		config:   config,
		executor: executor,
		logger:   logger,
		jobs:     make(chan *SyncJob, config.QueueSize),
		history:  make([]*SyncJob, 0, config.HistorySize),
	}, nil
}

// SetExecutor replaces the executor; it must be called before Start
func (s *SyncRunner) SetExecutor(executor SyncJobExecutor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executor = executor
}

// Start starts the worker pool
func (s *SyncRunner) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	if s.executor == nil {
		return ErrInvalidConfig
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Sync runner started",
		zap.Int("workers", s.config.Workers),
		zap.Int("queue_size", s.config.QueueSize),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)

	return nil
}

// Stop cancels running jobs and waits for the workers. Jobs still queued
// are handed to the executor with a cancelled context so they finish as
// cancelled instead of vanishing.
func (s *SyncRunner) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	close(s.jobs)
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		s.drain()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync runner stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync runner stop timed out")
		return ctx.Err()
	}
}

// drain finishes jobs that never reached a worker
func (s *SyncRunner) drain() {
	stopped, cancel := context.WithCancel(context.Background())
	cancel()
	for job := range s.jobs {
		s.processJob(stopped, job, -1)
	}
}

// IsRunning returns true between Start and Stop
func (s *SyncRunner) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// SubmitJob queues a job without blocking
func (s *SyncRunner) SubmitJob(job *SyncJob) error {
	if job == nil {
		return ErrNilJob
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Sync job submitted",
			zap.String("job_id", job.ID),
			zap.String("resource_type", job.ResourceType.String()),
			zap.String("mode", string(job.Mode)),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// worker processes jobs from the queue
func (s *SyncRunner) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	s.logger.Debug("Sync worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Sync worker stopping", zap.Int("worker_id", workerID))
			return
		case job, ok := <-s.jobs:
			if !ok {
				s.logger.Debug("Sync job channel closed", zap.Int("worker_id", workerID))
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single job
func (s *SyncRunner) processJob(ctx context.Context, job *SyncJob, workerID int) {
	job.Start()
	s.logger.Info("Processing sync job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID),
		zap.String("resource_type", job.ResourceType.String()),
		zap.String("mode", string(job.Mode)),
	)

	jobCtx, cancel := context.WithTimeoutCause(ctx, s.config.JobTimeout, ErrSyncTimeout)
	defer cancel()

	err := s.safeExecute(jobCtx, job)
	switch {
	case err != nil && ctx.Err() != nil:
		job.Cancel(err.Error())
		s.logger.Warn("Sync job cancelled",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	case err != nil:
		job.Fail(err.Error())
		s.logger.Error("Sync job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID),
			zap.String("resource_type", job.ResourceType.String()),
			zap.Error(err),
		)
	default:
		if !job.Status.IsFinished() {
			job.Complete(job.Fetched, job.Added, job.Updated, job.Skipped)
		}
		s.logger.Info("Sync job completed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID),
			zap.String("resource_type", job.ResourceType.String()),
			zap.Int("fetched", job.Fetched),
			zap.Int("added", job.Added),
			zap.Int("updated", job.Updated),
			zap.Int("skipped", job.Skipped),
		)
	}

	s.addToHistory(job)
}

// safeExecute keeps a panicking executor from killing the worker
func (s *SyncRunner) safeExecute(ctx context.Context, job *SyncJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Sync job panicked",
				zap.String("job_id", job.ID),
				zap.Any("panic", r),
				zap.Stack("stacktrace"),
			)
			err = errors.New("sync job panicked")
		}
	}()
	labels := telemetry.SyncProfilingLabels(job.ResourceType.String(), string(job.Mode))
	telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
		err = s.executor.ExecuteSync(ctx, job)
	})
	return err
}

// addToHistory adds a finished job to history
func (s *SyncRunner) addToHistory(job *SyncJob) {
	if s.config.HistorySize == 0 {
		return
	}

	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*SyncJob{job}, s.history...)
	if len(s.history) > s.config.HistorySize {
		s.history = s.history[:s.config.HistorySize]
	}
}

// RecentJobs returns copies of the most recent finished jobs, newest first
func (s *SyncRunner) RecentJobs(limit int) []SyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}

	result := make([]SyncJob, 0, limit)
	for _, job := range s.history[:limit] {
		result = append(result, *job)
	}
	return result
}
