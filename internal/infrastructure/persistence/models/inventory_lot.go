package models

import (
	"time"

	"github.com/erp/websync/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// InventoryLotModel is a read-only view of the inventory lots table owned by
// the inventory module. Sync reads available lots for FIFO cost assignment.
type InventoryLotModel struct {
	ID                string          `gorm:"type:varchar(191);primary_key"`
	SkuID             string          `gorm:"type:varchar(191);not null;index:idx_inventory_lots_sku_received,priority:1"`
	LotNumber         string          `gorm:"type:varchar(100);not null"`
	UnitCost          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityAvailable decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReceivedAt        time.Time       `gorm:"not null;index:idx_inventory_lots_sku_received,priority:2"`
}

// TableName returns the table name for GORM
func (InventoryLotModel) TableName() string {
	return "inventory_lots"
}

// ToDomain converts the persistence model to a domain LotBalance.
func (m *InventoryLotModel) ToDomain() integration.LotBalance {
	return integration.LotBalance{
		LotNumber: m.LotNumber,
		Cost:      m.UnitCost,
	}
}
