package integration

import "context"

// WebProductRepository persists web products
type WebProductRepository interface {
	// FindByID returns ErrWebProductNotFound when no product has the id
	FindByID(ctx context.Context, id string) (*WebProduct, error)

	// FindByLookupKeys returns the products keyed by their LookupKey
	FindByLookupKeys(ctx context.Context, keys []string) (map[string]*WebProduct, error)

	// Upsert inserts or replaces the product by ID. The top-level LinkedSku
	// and TotalWebOrders columns are never overwritten on update.
	Upsert(ctx context.Context, product *WebProduct) error

	// UpdateOrderCounts sets TotalWebOrders for every product id in counts
	UpdateOrderCounts(ctx context.Context, counts map[string]int) error

	// CountByStorefront counts products last written by the storefront
	CountByStorefront(ctx context.Context, storefront string) (int64, error)
}

// SkuRepository persists the legacy Sku mirror
type SkuRepository interface {
	// UpsertMirror inserts or updates the mirrored columns, leaving LinkedSku untouched
	UpsertMirror(ctx context.Context, sku *Sku) error
}

// WebOrderRepository persists web orders
type WebOrderRepository interface {
	// ExistingIDs returns the subset of ids already stored
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)

	// UpsertBatch replaces every order in the batch, including its line items.
	// A rejected order does not keep the others from being stored; the error
	// then reports the rejected ones.
	UpsertBatch(ctx context.Context, orders []*WebOrder) error

	// AggregateOrderCounts counts distinct orders per web product among
	// orders whose status is in statuses
	AggregateOrderCounts(ctx context.Context, statuses []string) (map[string]int, error)

	// CountByStorefront counts the stored orders of a storefront
	CountByStorefront(ctx context.Context, storefront string) (int64, error)
}

// CheckpointRepository persists sync checkpoints
type CheckpointRepository interface {
	// FindByID returns ErrCheckpointNotFound when the checkpoint does not exist
	FindByID(ctx context.Context, id string) (*SyncCheckpoint, error)
	Upsert(ctx context.Context, cp *SyncCheckpoint) error
	List(ctx context.Context) ([]SyncCheckpoint, error)
}

// LotBalanceLookup reads available inventory lots
type LotBalanceLookup interface {
	// AvailableBySkuIDs returns available lots per SKU id, oldest first.
	// SKUs without stock are absent from the map.
	AvailableBySkuIDs(ctx context.Context, skuIDs []string) (LotBalanceMap, error)
}
