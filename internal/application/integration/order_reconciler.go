package integration

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erp/websync/internal/domain/integration"
	"go.uber.org/zap"
)

// DefaultOrderBatchSize is the number of orders persisted per bulk upsert
const DefaultOrderBatchSize = 500

// DefaultCountedOrderStatuses are the order statuses counted into TotalWebOrders
var DefaultCountedOrderStatuses = []string{"completed", "processing", "on-hold"}

// ---------------------------------------------------------------------------
// BatchResult
// ---------------------------------------------------------------------------

// Tally counts outcomes
type Tally struct {
	Added   int
	Updated int
	Skipped int
}

// Add increments the counter for the outcome
func (t *Tally) Add(o Outcome, n int) {
	switch o {
	case OutcomeAdded:
		t.Added += n
	case OutcomeUpdated:
		t.Updated += n
	default:
		t.Skipped += n
	}
}

// Merge adds another tally into t
func (t *Tally) Merge(other Tally) {
	t.Added += other.Added
	t.Updated += other.Updated
	t.Skipped += other.Skipped
}

// BatchResult is the outcome of one order batch, overall and per storefront
type BatchResult struct {
	Tally
	ByStorefront map[string]Tally
}

func newBatchResult() BatchResult {
	return BatchResult{ByStorefront: make(map[string]Tally)}
}

func (b *BatchResult) add(storefront string, o Outcome, n int) {
	b.Tally.Add(o, n)
	t := b.ByStorefront[storefront]
	t.Add(o, n)
	b.ByStorefront[storefront] = t
}

func skippedBatch(batch []integration.StorefrontOrder) BatchResult {
	res := newBatchResult()
	for _, so := range batch {
		res.add(so.Storefront, OutcomeSkipped, 1)
	}
	return res
}

// ---------------------------------------------------------------------------
// OrderReconciler
// ---------------------------------------------------------------------------

// OrderReconciler turns batches of remote orders into web order upserts
type OrderReconciler struct {
	orders integration.WebOrderRepository
	lots   integration.LotBalanceLookup
	logger *zap.Logger
}

// NewOrderReconciler creates a new OrderReconciler
func NewOrderReconciler(
	orders integration.WebOrderRepository,
	lots integration.LotBalanceLookup,
	logger *zap.Logger,
) *OrderReconciler {
	return &OrderReconciler{
		orders: orders,
		lots:   lots,
		logger: logger,
	}
}

// ReconcileBatch builds and upserts one batch of orders. productLookup is keyed
// by ProductLookupKey. Lot balances are read once for the distinct SKUs the
// batch resolves to. A persistence failure counts the whole batch as skipped;
// orders the store accepted before the failure stay written.
func (r *OrderReconciler) ReconcileBatch(
	ctx context.Context,
	batch []integration.StorefrontOrder,
	productLookup map[string]*integration.WebProduct,
) (BatchResult, error) {
	result := newBatchResult()

	valid := make([]integration.StorefrontOrder, 0, len(batch))
	for _, so := range batch {
		if so.Order.ID == 0 {
			result.add(so.Storefront, OutcomeSkipped, 1)
			continue
		}
		valid = append(valid, so)
	}
	if len(valid) == 0 {
		return result, nil
	}

	lots := integration.LotBalanceMap{}
	if skuIDs := DistinctSkuIDs(valid, productLookup); len(skuIDs) > 0 {
		found, err := r.lots.AvailableBySkuIDs(ctx, skuIDs)
		if err != nil {
			return mergeSkipped(result, valid), fmt.Errorf("failed to load lot balances: %w", err)
		}
		lots = found
	}

	// the same order may appear twice in one fetch; the later copy wins
	orders := make([]*integration.WebOrder, 0, len(valid))
	position := make(map[string]int, len(valid))
	for _, so := range valid {
		order := BuildOrder(so.Storefront, so.Order, productLookup, lots)
		if i, dup := position[order.ID]; dup {
			orders[i] = order
			continue
		}
		position[order.ID] = len(orders)
		orders = append(orders, order)
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	existing, err := r.orders.ExistingIDs(ctx, ids)
	if err != nil {
		return mergeSkipped(result, valid), fmt.Errorf("failed to read existing orders: %w", err)
	}

	if err := r.orders.UpsertBatch(ctx, orders); err != nil {
		return mergeSkipped(result, valid), fmt.Errorf("failed to upsert %d orders: %w", len(orders), err)
	}

	for _, o := range orders {
		if existing[o.ID] {
			result.add(o.Storefront, OutcomeUpdated, 1)
		} else {
			result.add(o.Storefront, OutcomeAdded, 1)
		}
	}

	r.logger.Debug("Order batch reconciled",
		zap.Int("orders", len(orders)),
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated),
		zap.Int("lot_skus", len(lots)),
	)

	return result, nil
}

func mergeSkipped(result BatchResult, batch []integration.StorefrontOrder) BatchResult {
	skipped := skippedBatch(batch)
	result.Tally.Merge(skipped.Tally)
	for sf, t := range skipped.ByStorefront {
		cur := result.ByStorefront[sf]
		cur.Merge(t)
		result.ByStorefront[sf] = cur
	}
	return result
}

// DistinctSkuIDs returns the internal SKU ids the batch's lines resolve to,
// in first-seen order
func DistinctSkuIDs(batch []integration.StorefrontOrder, productLookup map[string]*integration.WebProduct) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, so := range batch {
		for _, rli := range so.Order.LineItems {
			_, sku := resolveLine(so.Storefront, rli, productLookup)
			if !sku.IsSet() {
				continue
			}
			if _, ok := seen[sku.ID()]; ok {
				continue
			}
			seen[sku.ID()] = struct{}{}
			ids = append(ids, sku.ID())
		}
	}
	return ids
}

// LookupKeys returns the distinct ProductLookupKey values referenced by the batch
func LookupKeys(batch []integration.StorefrontOrder) []string {
	seen := make(map[string]struct{})
	keys := make([]string, 0)
	for _, so := range batch {
		for _, rli := range so.Order.LineItems {
			if rli.ProductID == 0 {
				continue
			}
			key := integration.ProductLookupKey(so.Storefront, rli.ProductID)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys
}

// resolveLine finds the web product and internal SKU for an order line.
// A line whose product is unknown resolves to nothing.
func resolveLine(
	storefront string,
	rli integration.RemoteLineItem,
	productLookup map[string]*integration.WebProduct,
) (integration.Reference[integration.WebProduct], integration.Reference[integration.Sku]) {
	product, ok := productLookup[integration.ProductLookupKey(storefront, rli.ProductID)]
	if !ok || product == nil {
		return integration.Reference[integration.WebProduct]{}, integration.Reference[integration.Sku]{}
	}
	return integration.ResolvedRef(product.ID, product), product.ResolveSku(rli.VariationID)
}

// BuildOrder builds the web order document for one remote order. Lines are
// resolved through productLookup and assigned the oldest available lot of
// their SKU. The result depends only on its inputs.
func BuildOrder(
	storefront string,
	ro integration.RemoteOrder,
	productLookup map[string]*integration.WebProduct,
	lots integration.LotBalanceMap,
) *integration.WebOrder {
	order := &integration.WebOrder{
		ID:                 integration.OrderKey(storefront, ro.ID),
		Storefront:         storefront,
		RemoteID:           ro.ID,
		Number:             ro.Number,
		Status:             ro.Status,
		Currency:           ro.Currency,
		Total:              ro.Total.Decimal(),
		TotalTax:           ro.TotalTax.Decimal(),
		ShippingTotal:      ro.ShippingTotal.Decimal(),
		DiscountTotal:      ro.DiscountTotal.Decimal(),
		CustomerID:         ro.CustomerID,
		CustomerNote:       ro.CustomerNote,
		PaymentMethod:      ro.PaymentMethod,
		PaymentMethodTitle: ro.PaymentMethodTitle,
		Billing:            ro.Billing,
		Shipping:           ro.Shipping,
		CouponLines:        make([]integration.CouponLine, 0, len(ro.CouponLines)),
		Refunds:            make([]integration.Refund, 0, len(ro.Refunds)),
		MetaData:           rawOrEmpty(ro.MetaData),
		RemoteCreatedAt:    ro.DateCreated.Ptr(),
		RemoteModifiedAt:   ro.DateModified.Ptr(),
		LineItems:          make([]integration.LineItem, 0, len(ro.LineItems)),
	}

	for _, c := range ro.CouponLines {
		order.CouponLines = append(order.CouponLines, integration.CouponLine{
			RemoteID:    c.ID,
			Code:        c.Code,
			Discount:    c.Discount.Decimal(),
			DiscountTax: c.DiscountTax.Decimal(),
		})
	}
	for _, rf := range ro.Refunds {
		order.Refunds = append(order.Refunds, integration.Refund{
			RemoteID: rf.ID,
			Reason:   rf.Reason,
			Total:    rf.Total.Decimal(),
		})
	}

	for i, rli := range ro.LineItems {
		line := integration.LineItem{
			RemoteLineID:      rli.ID,
			Position:          i,
			Name:              rli.Name,
			RemoteProductID:   rli.ProductID,
			RemoteVariationID: rli.VariationID,
			Quantity:          rli.Quantity,
			SKU:               rli.SKU,
			Price:             rli.Price.Decimal(),
			Subtotal:          rli.Subtotal.Decimal(),
			SubtotalTax:       rli.SubtotalTax.Decimal(),
			Total:             rli.Total.Decimal(),
			TotalTax:          rli.TotalTax.Decimal(),
			Taxes:             rawOrEmpty(rli.Taxes),
			MetaData:          rawOrEmpty(rli.MetaData),
		}

		line.WebProduct, line.LinkedSku = resolveLine(storefront, rli, productLookup)
		if line.LinkedSku.IsSet() {
			if lot, ok := lots.FIFO(line.LinkedSku.ID()); ok {
				line.AssignLot(lot)
			}
		}

		order.LineItems = append(order.LineItems, line)
	}

	return order
}

var emptyJSONArray = json.RawMessage("[]")

func rawOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return emptyJSONArray
	}
	return raw
}

// ---------------------------------------------------------------------------
// OrderCountRollup
// ---------------------------------------------------------------------------

// OrderCountRollup recomputes TotalWebOrders for every web product from the
// stored orders
type OrderCountRollup struct {
	orders   integration.WebOrderRepository
	products integration.WebProductRepository
	statuses []string
}

// NewOrderCountRollup creates a rollup counting orders in the given statuses
func NewOrderCountRollup(
	orders integration.WebOrderRepository,
	products integration.WebProductRepository,
	statuses []string,
) *OrderCountRollup {
	if len(statuses) == 0 {
		statuses = DefaultCountedOrderStatuses
	}
	return &OrderCountRollup{
		orders:   orders,
		products: products,
		statuses: statuses,
	}
}

// Recompute overwrites TotalWebOrders for every product with at least one
// counted order and returns the number of products updated
func (r *OrderCountRollup) Recompute(ctx context.Context) (int, error) {
	counts, err := r.orders.AggregateOrderCounts(ctx, r.statuses)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate order counts: %w", err)
	}
	if len(counts) == 0 {
		return 0, nil
	}
	if err := r.products.UpdateOrderCounts(ctx, counts); err != nil {
		return 0, fmt.Errorf("failed to update order counts: %w", err)
	}
	return len(counts), nil
}
