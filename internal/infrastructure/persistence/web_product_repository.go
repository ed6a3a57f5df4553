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

// lookupChunkSize bounds the number of bind parameters in one IN list
const lookupChunkSize = 500

// GormWebProductRepository implements integration.WebProductRepository using GORM
type GormWebProductRepository struct {
	db *gorm.DB
}

// NewGormWebProductRepository creates a new GormWebProductRepository
func NewGormWebProductRepository(db *gorm.DB) *GormWebProductRepository {
	return &GormWebProductRepository{db: db}
}

// FindByID finds a web product by its identity key
func (r *GormWebProductRepository) FindByID(ctx context.Context, id string) (*integration.WebProduct, error) {
	var model models.WebProductModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrWebProductNotFound
		}
		return nil, err
	}
	p, err := model.ToDomain()
	if err != nil {
		return nil, fmt.Errorf("web product %s: %w", id, err)
	}
	return p, nil
}

// FindByLookupKeys loads products by lookup key. lookup_key is not unique;
// rows are read oldest first so the most recently updated row wins.
func (r *GormWebProductRepository) FindByLookupKeys(ctx context.Context, keys []string) (map[string]*integration.WebProduct, error) {
	result := make(map[string]*integration.WebProduct, len(keys))
	for _, chunk := range chunkStrings(keys, lookupChunkSize) {
		var productModels []models.WebProductModel
		if err := r.db.WithContext(ctx).
			Where("lookup_key IN ?", chunk).
			Order("updated_at ASC").
			Find(&productModels).Error; err != nil {
			return nil, err
		}
		for i := range productModels {
			p, err := productModels[i].ToDomain()
			if err != nil {
				return nil, fmt.Errorf("web product %s: %w", productModels[i].ID, err)
			}
			result[p.LookupKey] = p
		}
	}
	return result, nil
}

// Upsert inserts the product or overwrites its feed-sourced columns
func (r *GormWebProductRepository) Upsert(ctx context.Context, product *integration.WebProduct) error {
	model := models.WebProductModelFromDomain(product)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(models.WebProductMirrorColumns),
	}).Create(model).Error
}

// UpdateOrderCounts sets total_web_orders for each product in one transaction
func (r *GormWebProductRepository) UpdateOrderCounts(ctx context.Context, counts map[string]int) error {
	if len(counts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, n := range counts {
			if err := tx.Model(&models.WebProductModel{}).
				Where("id = ?", id).
				UpdateColumn("total_web_orders", n).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// CountByStorefront counts the products last written by a storefront
func (r *GormWebProductRepository) CountByStorefront(ctx context.Context, storefront string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.WebProductModel{}).
		Where("storefront = ?", storefront).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GormSkuRepository implements integration.SkuRepository using GORM
type GormSkuRepository struct {
	db *gorm.DB
}

// NewGormSkuRepository creates a new GormSkuRepository
func NewGormSkuRepository(db *gorm.DB) *GormSkuRepository {
	return &GormSkuRepository{db: db}
}

// UpsertMirror writes the mirror row without touching linked_sku_id
func (r *GormSkuRepository) UpsertMirror(ctx context.Context, sku *integration.Sku) error {
	model := models.SkuModelFromDomain(sku)
	model.LinkedSkuID = nil
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(models.SkuMirrorColumns),
	}).Create(model).Error
}

// FindByID finds a SKU row by id
func (r *GormSkuRepository) FindByID(ctx context.Context, id string) (*integration.Sku, error) {
	var model models.SkuModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

func chunkStrings(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		chunks = append(chunks, items[start:min(start+size, len(items))])
	}
	return chunks
}
