package persistence

import (
	"context"
	"errors"

	"github.com/erp/websync/internal/domain/integration"
	"github.com/erp/websync/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSyncCheckpointRepository implements integration.CheckpointRepository using GORM
type GormSyncCheckpointRepository struct {
	db *gorm.DB
}

// NewGormSyncCheckpointRepository creates a new GormSyncCheckpointRepository
func NewGormSyncCheckpointRepository(db *gorm.DB) *GormSyncCheckpointRepository {
	return &GormSyncCheckpointRepository{db: db}
}

// FindByID finds a checkpoint by its "{resourceType}-{storefront}" id
func (r *GormSyncCheckpointRepository) FindByID(ctx context.Context, id string) (*integration.SyncCheckpoint, error) {
	var model models.SyncCheckpointModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrCheckpointNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Upsert creates or replaces a checkpoint
func (r *GormSyncCheckpointRepository) Upsert(ctx context.Context, cp *integration.SyncCheckpoint) error {
	model := models.SyncCheckpointModelFromDomain(cp)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(model).Error
}

// List returns every checkpoint ordered by resource type and storefront
func (r *GormSyncCheckpointRepository) List(ctx context.Context) ([]integration.SyncCheckpoint, error) {
	var checkpointModels []models.SyncCheckpointModel
	if err := r.db.WithContext(ctx).
		Order("resource_type ASC, storefront ASC").
		Find(&checkpointModels).Error; err != nil {
		return nil, err
	}

	checkpoints := make([]integration.SyncCheckpoint, len(checkpointModels))
	for i := range checkpointModels {
		checkpoints[i] = *checkpointModels[i].ToDomain()
	}
	return checkpoints, nil
}
