package integration

import (
	"time"
)

// ---------------------------------------------------------------------------
// SyncStep
// ---------------------------------------------------------------------------

// SyncStep is the run state shown to polling clients
type SyncStep string

const (
	StepIdle       SyncStep = "Idle"
	StepConnecting SyncStep = "Connecting"
	StepFetching   SyncStep = "Fetching"
	StepProcessing SyncStep = "Processing"
	StepFinalizing SyncStep = "Finalizing"
	StepComplete   SyncStep = "Complete"
	StepFailed     SyncStep = "Failed"
)

// IsTerminal returns true for Complete and Failed
func (s SyncStep) IsTerminal() bool {
	return s == StepComplete || s == StepFailed
}

// String returns the string representation
func (s SyncStep) String() string {
	return string(s)
}

// stepOrder ranks the forward path of a run
var stepOrder = map[SyncStep]int{
	StepIdle:       0,
	StepConnecting: 1,
	StepFetching:   2,
	StepProcessing: 3,
	StepFinalizing: 4,
	StepComplete:   5,
}

// CanAdvanceTo reports whether a running sync may move from s to next.
// Steps only move forward; Fetching may repeat per storefront and Processing
// per batch. Failed is reachable from any non-terminal step. Nothing leaves a
// terminal step except a new run, which resets the snapshot.
func (s SyncStep) CanAdvanceTo(next SyncStep) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StepFailed {
		return true
	}
	from, ok := stepOrder[s]
	if !ok {
		return false
	}
	to, ok := stepOrder[next]
	if !ok {
		return false
	}
	if to == from {
		return next == StepFetching || next == StepProcessing
	}
	return to > from
}

// ---------------------------------------------------------------------------
// Progress log
// ---------------------------------------------------------------------------

// LogLevel classifies progress log entries
type LogLevel string

const (
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// LogEntry is one line of the rolling run log
type LogEntry struct {
	At         time.Time
	Level      LogLevel
	Storefront string
	Message    string
}

// DefaultLogLimit caps the rolling log when no limit is configured
const DefaultLogLimit = 500

// ---------------------------------------------------------------------------
// ProgressSnapshot
// ---------------------------------------------------------------------------

// FetchState is the fetching-phase sub-state
type FetchState struct {
	Storefront string
	Page       int
	Found      int
}

// ProgressSnapshot describes the in-flight or last finished run of one resource type
type ProgressSnapshot struct {
	ResourceType ResourceType
	RunID        string
	Mode         SyncMode
	IsSyncing    bool
	CurrentStep  SyncStep
	Progress     int
	Total        int
	// CurrentItem is a human-readable "currently processing" line
	CurrentItem       string
	CurrentStorefront string
	Fetch             FetchState
	Added             int
	Updated           int
	Skipped           int
	StartedAt         *time.Time
	FinishedAt        *time.Time
	Logs              []LogEntry
}

// NewProgressSnapshot returns the idle snapshot of a resource type
func NewProgressSnapshot(rt ResourceType) ProgressSnapshot {
	return ProgressSnapshot{
		ResourceType: rt,
		CurrentStep:  StepIdle,
		Logs:         []LogEntry{},
	}
}

// Clone returns a deep copy safe to hand to readers
func (s ProgressSnapshot) Clone() ProgressSnapshot {
	c := s
	c.Logs = make([]LogEntry, len(s.Logs))
	copy(c.Logs, s.Logs)
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		c.FinishedAt = &t
	}
	return c
}

// AppendLog adds an entry, dropping the oldest entries beyond limit
func (s *ProgressSnapshot) AppendLog(entry LogEntry, limit int) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	s.Logs = append(s.Logs, entry)
	if over := len(s.Logs) - limit; over > 0 {
		s.Logs = append(s.Logs[:0:0], s.Logs[over:]...)
	}
}

// ErrorLogs returns the error-level entries
func (s ProgressSnapshot) ErrorLogs() []LogEntry {
	out := make([]LogEntry, 0)
	for _, e := range s.Logs {
		if e.Level == LogError {
			out = append(out, e)
		}
	}
	return out
}

// ProgressDebug helps polling clients detect a stale snapshot
type ProgressDebug struct {
	LogCount int
	LastLog  string
}

// Debug returns the debug block for the snapshot
func (s ProgressSnapshot) Debug() ProgressDebug {
	d := ProgressDebug{LogCount: len(s.Logs)}
	if n := len(s.Logs); n > 0 {
		d.LastLog = s.Logs[n-1].Message
	}
	return d
}
