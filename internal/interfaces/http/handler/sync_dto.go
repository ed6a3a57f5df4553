package handler

import (
	"time"

	integrationapp "github.com/erp/websync/internal/application/integration"
	"github.com/erp/websync/internal/domain/integration"
	"github.com/erp/websync/internal/infrastructure/scheduler"
)

// SyncTriggerResponse is returned when a run has been queued
// @Description Accepted sync run
type SyncTriggerResponse struct {
	Message string `json:"message" example:"Incremental sync started"`
	Mode    string `json:"mode" example:"incremental" enums:"incremental,full"`
	RunID   string `json:"run_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// SyncLogEntryResponse is one line of the rolling run log
// @Description Sync progress log line
type SyncLogEntryResponse struct {
	At         string `json:"at" example:"2026-01-24T12:00:00Z"`
	Level      string `json:"level" example:"info" enums:"info,warn,error"`
	Storefront string `json:"storefront,omitempty" example:"north"`
	Message    string `json:"message" example:"Fetched 240 orders from north"`
}

// SyncFetchStateResponse is the fetching-phase sub-state
type SyncFetchStateResponse struct {
	Storefront string `json:"storefront" example:"north"`
	Page       int    `json:"page" example:"3"`
	Found      int    `json:"found" example:"240"`
}

// SyncDebugResponse lets pollers detect a stale snapshot
type SyncDebugResponse struct {
	LogCount int    `json:"log_count" example:"12"`
	LastLog  string `json:"last_log" example:"Batch 2/4 done"`
}

// SyncProgressResponse is the polled progress snapshot
// @Description Live or last finished sync run of one resource type
type SyncProgressResponse struct {
	ResourceType      string                 `json:"resource_type" example:"orders" enums:"products,orders"`
	RunID             string                 `json:"run_id,omitempty"`
	Mode              string                 `json:"mode,omitempty" example:"incremental"`
	IsSyncing         bool                   `json:"is_syncing" example:"true"`
	CurrentStep       string                 `json:"current_step" example:"Processing" enums:"Idle,Connecting,Fetching,Processing,Finalizing,Complete,Failed"`
	Progress          int                    `json:"progress" example:"500"`
	Total             int                    `json:"total" example:"1240"`
	CurrentItem       string                 `json:"current_item" example:"Order #1042"`
	CurrentStorefront string                 `json:"current_storefront" example:"north"`
	Fetch             SyncFetchStateResponse `json:"fetch"`
	Added             int                    `json:"added" example:"12"`
	Updated           int                    `json:"updated" example:"488"`
	Skipped           int                    `json:"skipped" example:"0"`
	StartedAt         *string                `json:"started_at,omitempty"`
	FinishedAt        *string                `json:"finished_at,omitempty"`
	Logs              []SyncLogEntryResponse `json:"logs"`
	Debug             SyncDebugResponse      `json:"debug"`
}

// SyncCheckpointResponse is one stored checkpoint
// @Description Last successful sync of a resource type on a storefront
type SyncCheckpointResponse struct {
	ID             string  `json:"id" example:"orders-north"`
	ResourceType   string  `json:"resource_type" example:"orders"`
	Storefront     string  `json:"storefront" example:"north"`
	LastSyncAt     *string `json:"last_sync_at"`
	LastFullSyncAt *string `json:"last_full_sync_at"`
	RecordCount    int64   `json:"record_count" example:"1240"`
	Added          int     `json:"added" example:"12"`
	Updated        int     `json:"updated" example:"488"`
	Deleted        int     `json:"deleted" example:"0"`
	DurationMs     int64   `json:"duration_ms" example:"8421"`
	UpdatedAt      *string `json:"updated_at"`
}

// SyncRunResponse is one finished run from the runner history
// @Description Finished sync run
type SyncRunResponse struct {
	RunID        string  `json:"run_id"`
	ResourceType string  `json:"resource_type" example:"products"`
	Mode         string  `json:"mode" example:"full"`
	Status       string  `json:"status" example:"SUCCESS" enums:"PENDING,RUNNING,SUCCESS,FAILED,CANCELLED"`
	Error        string  `json:"error,omitempty"`
	CreatedAt    string  `json:"created_at"`
	StartedAt    *string `json:"started_at,omitempty"`
	CompletedAt  *string `json:"completed_at,omitempty"`
	Fetched      int     `json:"fetched"`
	Added        int     `json:"added"`
	Updated      int     `json:"updated"`
	Skipped      int     `json:"skipped"`
}

// ---------------------------------------------------------------------------
// Converters
// ---------------------------------------------------------------------------

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toSyncTriggerResponse(r *integrationapp.TriggerResult) SyncTriggerResponse {
	return SyncTriggerResponse{
		Message: r.Message,
		Mode:    string(r.Mode),
		RunID:   r.RunID,
	}
}

func toSyncProgressResponse(v integrationapp.ProgressView) SyncProgressResponse {
	s := v.Snapshot
	logs := make([]SyncLogEntryResponse, len(s.Logs))
	for i, e := range s.Logs {
		logs[i] = SyncLogEntryResponse{
			At:         formatTime(e.At),
			Level:      string(e.Level),
			Storefront: e.Storefront,
			Message:    e.Message,
		}
	}
	return SyncProgressResponse{
		ResourceType:      s.ResourceType.String(),
		RunID:             s.RunID,
		Mode:              string(s.Mode),
		IsSyncing:         s.IsSyncing,
		CurrentStep:       s.CurrentStep.String(),
		Progress:          s.Progress,
		Total:             s.Total,
		CurrentItem:       s.CurrentItem,
		CurrentStorefront: s.CurrentStorefront,
		Fetch: SyncFetchStateResponse{
			Storefront: s.Fetch.Storefront,
			Page:       s.Fetch.Page,
			Found:      s.Fetch.Found,
		},
		Added:      s.Added,
		Updated:    s.Updated,
		Skipped:    s.Skipped,
		StartedAt:  formatTimePtr(s.StartedAt),
		FinishedAt: formatTimePtr(s.FinishedAt),
		Logs:       logs,
		Debug: SyncDebugResponse{
			LogCount: v.Debug.LogCount,
			LastLog:  v.Debug.LastLog,
		},
	}
}

func toSyncCheckpointResponse(cp integration.SyncCheckpoint) SyncCheckpointResponse {
	return SyncCheckpointResponse{
		ID:             cp.ID,
		ResourceType:   cp.ResourceType.String(),
		Storefront:     cp.Storefront,
		LastSyncAt:     formatTimePtr(&cp.LastSyncAt),
		LastFullSyncAt: formatTimePtr(cp.LastFullSyncAt),
		RecordCount:    cp.RecordCount,
		Added:          cp.Stats.Added,
		Updated:        cp.Stats.Updated,
		Deleted:        cp.Stats.Deleted,
		DurationMs:     cp.Stats.Duration.Milliseconds(),
		UpdatedAt:      formatTimePtr(&cp.UpdatedAt),
	}
}

func toSyncRunResponse(j scheduler.SyncJob) SyncRunResponse {
	return SyncRunResponse{
		RunID:        j.ID,
		ResourceType: j.ResourceType.String(),
		Mode:         string(j.Mode),
		Status:       string(j.Status),
		Error:        j.Error,
		CreatedAt:    formatTime(j.CreatedAt),
		StartedAt:    formatTimePtr(j.StartedAt),
		CompletedAt:  formatTimePtr(j.CompletedAt),
		Fetched:      j.Fetched,
		Added:        j.Added,
		Updated:      j.Updated,
		Skipped:      j.Skipped,
	}
}
