package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped runner
	ErrSchedulerNotRunning = errors.New("scheduler: not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("scheduler: job queue is full")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("scheduler: invalid configuration")

	// ErrNilJob is returned when a nil job is submitted
	ErrNilJob = errors.New("scheduler: nil job")

	// ErrSyncTimeout is recorded on jobs that exceeded the job timeout
	ErrSyncTimeout = errors.New("scheduler: sync timed out")
)
