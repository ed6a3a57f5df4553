package integration

import "time"

// SyncStats are the counters a run records on each storefront checkpoint
type SyncStats struct {
	Added    int
	Updated  int
	Deleted  int
	Duration time.Duration
}

// SyncCheckpoint is the last successful sync of one resource type on one storefront
type SyncCheckpoint struct {
	// ID is CheckpointID(resource type, storefront)
	ID           string
	ResourceType ResourceType
	Storefront   string
	// LastSyncAt is the start time of the last successful run
	LastSyncAt time.Time
	// LastFullSyncAt is only advanced by full runs
	LastFullSyncAt *time.Time
	RecordCount    int64
	Stats          SyncStats
	UpdatedAt      time.Time
}

// NewSyncCheckpoint creates an empty checkpoint for a storefront
func NewSyncCheckpoint(rt ResourceType, storefront string) *SyncCheckpoint {
	return &SyncCheckpoint{
		ID:           CheckpointID(rt, storefront),
		ResourceType: rt,
		Storefront:   storefront,
	}
}

// Advance records a finished run
func (c *SyncCheckpoint) Advance(at time.Time, mode SyncMode, recordCount int64, stats SyncStats) {
	c.LastSyncAt = at
	if mode == SyncModeFull {
		full := at
		c.LastFullSyncAt = &full
	}
	c.RecordCount = recordCount
	c.Stats = stats
}

// Cursor returns the "modified after" filter for the next fetch. Full runs
// and storefronts that never synced fetch everything.
func Cursor(cp *SyncCheckpoint, mode SyncMode) *time.Time {
	if mode == SyncModeFull || cp == nil || cp.LastSyncAt.IsZero() {
		return nil
	}
	at := cp.LastSyncAt
	return &at
}
