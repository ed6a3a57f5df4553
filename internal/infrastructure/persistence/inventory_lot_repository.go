package persistence

import (
	"context"

	"github.com/erp/websync/internal/domain/integration"
	"github.com/erp/websync/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInventoryLotRepository implements integration.LotBalanceLookup using GORM
type GormInventoryLotRepository struct {
	db *gorm.DB
}

// NewGormInventoryLotRepository creates a new GormInventoryLotRepository
func NewGormInventoryLotRepository(db *gorm.DB) *GormInventoryLotRepository {
	return &GormInventoryLotRepository{db: db}
}

// AvailableBySkuIDs returns lots with stock left, oldest first per SKU (FIFO)
func (r *GormInventoryLotRepository) AvailableBySkuIDs(ctx context.Context, skuIDs []string) (integration.LotBalanceMap, error) {
	result := make(integration.LotBalanceMap)
	for _, chunk := range chunkStrings(skuIDs, lookupChunkSize) {
		var lots []models.InventoryLotModel
		if err := r.db.WithContext(ctx).
			Where("sku_id IN ? AND quantity_available > 0", chunk).
			Order("sku_id ASC, received_at ASC, lot_number ASC").
			Find(&lots).Error; err != nil {
			return nil, err
		}
		for i := range lots {
			result[lots[i].SkuID] = append(result[lots[i].SkuID], lots[i].ToDomain())
		}
	}
	return result, nil
}
