package models

import (
	"time"

	"github.com/erp/websync/internal/domain/integration"
)

// SyncCheckpointModel is the persistence model for the SyncCheckpoint entity.
type SyncCheckpointModel struct {
	ID             string                   `gorm:"type:varchar(191);primary_key"`
	ResourceType   integration.ResourceType `gorm:"type:varchar(20);not null"`
	Storefront     string                   `gorm:"type:varchar(100);not null"`
	LastSyncAt     time.Time                `gorm:"not null"`
	LastFullSyncAt *time.Time
	RecordCount    int64     `gorm:"not null;default:0"`
	Added          int       `gorm:"not null;default:0"`
	Updated        int       `gorm:"not null;default:0"`
	Deleted        int       `gorm:"not null;default:0"`
	DurationMs     int64     `gorm:"not null;default:0"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncCheckpointModel) TableName() string {
	return "sync_checkpoints"
}

// ToDomain converts the persistence model to a domain SyncCheckpoint entity.
func (m *SyncCheckpointModel) ToDomain() *integration.SyncCheckpoint {
	return &integration.SyncCheckpoint{
		ID:             m.ID,
		ResourceType:   m.ResourceType,
		Storefront:     m.Storefront,
		LastSyncAt:     m.LastSyncAt.UTC(),
		LastFullSyncAt: utcPtr(m.LastFullSyncAt),
		RecordCount:    m.RecordCount,
		Stats: integration.SyncStats{
			Added:    m.Added,
			Updated:  m.Updated,
			Deleted:  m.Deleted,
			Duration: time.Duration(m.DurationMs) * time.Millisecond,
		},
		UpdatedAt: m.UpdatedAt,
	}
}

// SyncCheckpointModelFromDomain creates a new persistence model from a domain SyncCheckpoint entity.
func SyncCheckpointModelFromDomain(cp *integration.SyncCheckpoint) *SyncCheckpointModel {
	return &SyncCheckpointModel{
		ID:             cp.ID,
		ResourceType:   cp.ResourceType,
		Storefront:     cp.Storefront,
		LastSyncAt:     cp.LastSyncAt,
		LastFullSyncAt: cp.LastFullSyncAt,
		RecordCount:    cp.RecordCount,
		Added:          cp.Stats.Added,
		Updated:        cp.Stats.Updated,
		Deleted:        cp.Stats.Deleted,
		DurationMs:     cp.Stats.Duration.Milliseconds(),
		UpdatedAt:      cp.UpdatedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
