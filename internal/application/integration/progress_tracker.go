package integration

import (
	"fmt"
	"sync"
	"time"

	"github.com/erp/websync/internal/domain/integration"
)

// ProgressTracker publishes one progress snapshot per resource type.
// Each resource type has its own guarded cell; readers always get a copy.
type ProgressTracker struct {
	cells    map[integration.ResourceType]*progressCell
	logLimit int
	now      func() time.Time
}

type progressCell struct {
	mu   sync.RWMutex
	snap integration.ProgressSnapshot
}

// NewProgressTracker creates a tracker with an idle snapshot for every resource type
func NewProgressTracker(logLimit int) *ProgressTracker {
	if logLimit <= 0 {
		logLimit = integration.DefaultLogLimit
	}
	t := &ProgressTracker{
		cells:    make(map[integration.ResourceType]*progressCell),
		logLimit: logLimit,
		now:      time.Now,
	}
	for _, rt := range integration.AllResourceTypes() {
		t.cells[rt] = &progressCell{snap: integration.NewProgressSnapshot(rt)}
	}
	return t
}

// Snapshot returns a copy of the current snapshot
func (t *ProgressTracker) Snapshot(rt integration.ResourceType) (integration.ProgressSnapshot, error) {
	cell, ok := t.cells[rt]
	if !ok {
		return integration.ProgressSnapshot{}, integration.ErrProgressNotRegistered
	}
	cell.mu.RLock()
	defer cell.mu.RUnlock()
	return cell.snap.Clone(), nil
}

// Begin resets the snapshot for a new run and returns its write handle.
// It fails with ErrSyncInProgress, leaving the snapshot untouched, while
// another run of the same type has not finished.
func (t *ProgressTracker) Begin(rt integration.ResourceType, runID string, mode integration.SyncMode) (*RunProgress, error) {
	cell, ok := t.cells[rt]
	if !ok {
		return nil, integration.ErrProgressNotRegistered
	}

	cell.mu.Lock()
	defer cell.mu.Unlock()

	if cell.snap.IsSyncing {
		return nil, integration.ErrSyncInProgress
	}

	started := t.now()
	snap := integration.NewProgressSnapshot(rt)
	snap.RunID = runID
	snap.Mode = mode
	snap.IsSyncing = true
	snap.StartedAt = &started
	snap.AppendLog(integration.LogEntry{
		At:      started,
		Level:   integration.LogInfo,
		Message: fmt.Sprintf("Queued %s %s sync", mode, rt),
	}, t.logLimit)
	cell.snap = snap

	return &RunProgress{cell: cell, runID: runID, logLimit: t.logLimit, now: t.now}, nil
}

// ---------------------------------------------------------------------------
// RunProgress
// ---------------------------------------------------------------------------

// RunProgress is the write handle of one run. Writes from a handle whose run
// has been superseded are ignored.
type RunProgress struct {
	cell     *progressCell
	runID    string
	logLimit int
	now      func() time.Time
}

// RunID returns the id of the run owning this handle
func (p *RunProgress) RunID() string {
	return p.runID
}

func (p *RunProgress) update(fn func(s *integration.ProgressSnapshot)) {
	p.cell.mu.Lock()
	defer p.cell.mu.Unlock()
	if p.cell.snap.RunID != p.runID || !p.cell.snap.IsSyncing {
		return
	}
	fn(&p.cell.snap)
}

// Step moves the run to the next step; backward moves are ignored
func (p *RunProgress) Step(step integration.SyncStep) {
	p.update(func(s *integration.ProgressSnapshot) {
		if s.CurrentStep.CanAdvanceTo(step) {
			s.CurrentStep = step
		}
	})
}

// Log appends a line to the rolling log
func (p *RunProgress) Log(level integration.LogLevel, storefront, format string, args ...any) {
	entry := integration.LogEntry{
		At:         p.now(),
		Level:      level,
		Storefront: storefront,
		Message:    fmt.Sprintf(format, args...),
	}
	p.update(func(s *integration.ProgressSnapshot) {
		s.AppendLog(entry, p.logLimit)
	})
}

// OnPage implements integration.FetchObserver
func (p *RunProgress) OnPage(storefront string, page int, found int) {
	p.update(func(s *integration.ProgressSnapshot) {
		s.CurrentStorefront = storefront
		s.Fetch = integration.FetchState{Storefront: storefront, Page: page, Found: found}
	})
}

// StartFetching marks the start of a storefront fetch
func (p *RunProgress) StartFetching(storefront string) {
	p.update(func(s *integration.ProgressSnapshot) {
		if s.CurrentStep.CanAdvanceTo(integration.StepFetching) {
			s.CurrentStep = integration.StepFetching
		}
		s.CurrentStorefront = storefront
		s.Fetch = integration.FetchState{Storefront: storefront}
		s.CurrentItem = fmt.Sprintf("Scanning %s", storefront)
	})
}

// SetTotal sets the number of records the processing phase will handle
func (p *RunProgress) SetTotal(total int) {
	p.update(func(s *integration.ProgressSnapshot) {
		s.Total = total
		s.Progress = 0
	})
}

// Processing records the item being worked on and the records done so far
func (p *RunProgress) Processing(done int, storefront, item string) {
	p.update(func(s *integration.ProgressSnapshot) {
		s.Progress = done
		s.CurrentStorefront = storefront
		s.CurrentItem = item
	})
}

// Tally adds to the run counters
func (p *RunProgress) Tally(added, updated, skipped int) {
	p.update(func(s *integration.ProgressSnapshot) {
		s.Added += added
		s.Updated += updated
		s.Skipped += skipped
	})
}

// Finish ends the run in a terminal step with a final log line
func (p *RunProgress) Finish(step integration.SyncStep, format string, args ...any) {
	at := p.now()
	entry := integration.LogEntry{
		At:      at,
		Level:   integration.LogInfo,
		Message: fmt.Sprintf(format, args...),
	}
	if step == integration.StepFailed {
		entry.Level = integration.LogError
	}
	p.update(func(s *integration.ProgressSnapshot) {
		s.AppendLog(entry, p.logLimit)
		s.CurrentStep = step
		s.IsSyncing = false
		s.CurrentItem = ""
		s.FinishedAt = &at
		if step == integration.StepComplete {
			s.Progress = s.Total
		}
	})
}

// Snapshot returns a copy of the run's snapshot
func (p *RunProgress) Snapshot() integration.ProgressSnapshot {
	p.cell.mu.RLock()
	defer p.cell.mu.RUnlock()
	return p.cell.snap.Clone()
}
