package dto

// DefaultRunsLimit is the run history page size when no limit is given
const DefaultRunsLimit = 20

// SyncTriggerQuery holds the query parameters of POST /sync/{type}
type SyncTriggerQuery struct {
	Full bool `form:"full"`
}

// SyncRunsQuery holds the query parameters of GET /sync/runs
type SyncRunsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
}

// EffectiveLimit returns Limit or the default when unset
func (q SyncRunsQuery) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultRunsLimit
	}
	return q.Limit
}
