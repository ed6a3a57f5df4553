package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/websync/internal/domain/integration"
	"go.uber.org/zap"
)

// Outcome classifies what a reconcile did with one record
type Outcome string

const (
	OutcomeAdded   Outcome = "added"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
)

// CatalogReconciler merges fetched remote products into web products and the
// legacy Sku mirror
type CatalogReconciler struct {
	products integration.WebProductRepository
	skus     integration.SkuRepository
	logger   *zap.Logger
}

// NewCatalogReconciler creates a new CatalogReconciler
func NewCatalogReconciler(
	products integration.WebProductRepository,
	skus integration.SkuRepository,
	logger *zap.Logger,
) *CatalogReconciler {
	return &CatalogReconciler{
		products: products,
		skus:     skus,
		logger:   logger,
	}
}

// Reconcile upserts one remote product. Existing operator links on the product
// and its variations are kept, and variations absent from the payload are
// retained. On error the product counts as skipped; a stored row that cannot be
// read is left untouched rather than overwritten.
func (r *CatalogReconciler) Reconcile(ctx context.Context, storefront string, rp integration.RemoteProduct) (Outcome, error) {
	if rp.ID == 0 {
		return OutcomeSkipped, fmt.Errorf("%w: product without id", integration.ErrInvalidRemoteRecord)
	}

	key := integration.ProductKey(storefront, rp.ID, rp.SKU)

	existing, err := r.products.FindByID(ctx, key)
	if err != nil && !errors.Is(err, integration.ErrWebProductNotFound) {
		return OutcomeSkipped, fmt.Errorf("failed to load web product %s: %w", key, err)
	}
	if errors.Is(err, integration.ErrWebProductNotFound) {
		existing = nil
	}

	product := integration.NewWebProduct(storefront, rp, existing)

	if err := r.products.Upsert(ctx, product); err != nil {
		return OutcomeSkipped, fmt.Errorf("failed to upsert web product %s: %w", key, err)
	}
	if err := r.skus.UpsertMirror(ctx, product.MirrorSku()); err != nil {
		return OutcomeSkipped, fmt.Errorf("failed to mirror sku %s: %w", key, err)
	}

	r.logger.Debug("Web product reconciled",
		zap.String("storefront", storefront),
		zap.String("product_id", key),
		zap.Int("variations", len(product.Variations)),
		zap.Bool("inserted", existing == nil),
	)

	if existing == nil {
		return OutcomeAdded, nil
	}
	return OutcomeUpdated, nil
}
