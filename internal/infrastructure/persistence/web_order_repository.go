package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/websync/internal/domain/integration"
	"github.com/erp/websync/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWebOrderRepository implements integration.WebOrderRepository using GORM
type GormWebOrderRepository struct {
	db *gorm.DB
}

// NewGormWebOrderRepository creates a new GormWebOrderRepository
func NewGormWebOrderRepository(db *gorm.DB) *GormWebOrderRepository {
	return &GormWebOrderRepository{db: db}
}

// ExistingIDs returns which of the given order ids are already stored
func (r *GormWebOrderRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(ids))
	for _, chunk := range chunkStrings(ids, lookupChunkSize) {
		var found []string
		if err := r.db.WithContext(ctx).
			Model(&models.WebOrderModel{}).
			Where("id IN ?", chunk).
			Pluck("id", &found).Error; err != nil {
			return nil, err
		}
		for _, id := range found {
			existing[id] = true
		}
	}
	return existing, nil
}

// UpsertBatch replaces every order of the batch and its line items. Each order
// is written under its own savepoint, so a rejected order is rolled back alone
// and the rest of the batch is stored. The returned error names every rejected
// order.
func (r *GormWebOrderRepository) UpsertBatch(ctx context.Context, orders []*integration.WebOrder) error {
	if len(orders) == 0 {
		return nil
	}

	var rejected []error
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, o := range orders {
			sp := fmt.Sprintf("web_order_%d", i)
			if err := tx.SavePoint(sp).Error; err != nil {
				return err
			}
			if err := upsertOrder(tx, o); err != nil {
				if rbErr := tx.RollbackTo(sp).Error; rbErr != nil {
					return fmt.Errorf("rollback order %s: %w", o.ID, rbErr)
				}
				rejected = append(rejected, fmt.Errorf("order %s: %w", o.ID, err))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(rejected) > 0 {
		return fmt.Errorf("%d of %d orders rejected: %w", len(rejected), len(orders), errors.Join(rejected...))
	}
	return nil
}

// upsertOrder writes one order and swaps in its line items
func upsertOrder(tx *gorm.DB, o *integration.WebOrder) error {
	m := models.WebOrderModelFromDomain(o)
	lines := m.LineItems
	m.LineItems = nil

	if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(m).Error; err != nil {
		return err
	}
	if err := tx.Where("order_id = ?", o.ID).Delete(&models.WebOrderLineItemModel{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return tx.CreateInBatches(lines, 200).Error
}

// orderCountRow is one row of the order count aggregate
type orderCountRow struct {
	WebProductID string
	Orders       int
}

// AggregateOrderCounts counts distinct orders per web product across the
// orders whose status is counted
func (r *GormWebOrderRepository) AggregateOrderCounts(ctx context.Context, statuses []string) (map[string]int, error) {
	var rows []orderCountRow
	if err := r.db.WithContext(ctx).
		Table("web_order_line_items AS li").
		Select("li.web_product_id AS web_product_id, COUNT(DISTINCT li.order_id) AS orders").
		Joins("JOIN web_orders o ON o.id = li.order_id").
		Where("li.web_product_id IS NOT NULL AND o.status IN ?", statuses).
		Group("li.web_product_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.WebProductID] = row.Orders
	}
	return counts, nil
}

// CountByStorefront counts the stored orders of a storefront
func (r *GormWebOrderRepository) CountByStorefront(ctx context.Context, storefront string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.WebOrderModel{}).
		Where("storefront = ?", storefront).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindByID loads an order with its line items in position order
func (r *GormWebOrderRepository) FindByID(ctx context.Context, id string) (*integration.WebOrder, error) {
	var model models.WebOrderModel
	if err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return model.ToDomain()
}
