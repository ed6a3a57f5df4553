package integration

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/erp/websync/internal/domain/integration"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func intPtr(i int) *int {
	return &i
}

var errStore = errors.New("store unavailable")

// ---------------------------------------------------------------------------
// MockStorefrontFeed
// ---------------------------------------------------------------------------

// MockStorefrontFeed is a mock implementation of integration.StorefrontFeed
type MockStorefrontFeed struct {
	mock.Mock
}

func (m *MockStorefrontFeed) FetchProducts(ctx context.Context, sf integration.Storefront, modifiedAfter *time.Time, obs integration.FetchObserver) ([]integration.RemoteProduct, error) {
	args := m.Called(ctx, sf.Name, modifiedAfter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	products := args.Get(0).([]integration.RemoteProduct)
	if obs != nil {
		obs.OnPage(sf.Name, 1, len(products))
	}
	return products, args.Error(1)
}

func (m *MockStorefrontFeed) FetchOrders(ctx context.Context, sf integration.Storefront, modifiedAfter *time.Time, obs integration.FetchObserver) ([]integration.RemoteOrder, error) {
	args := m.Called(ctx, sf.Name, modifiedAfter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	orders := args.Get(0).([]integration.RemoteOrder)
	if obs != nil {
		obs.OnPage(sf.Name, 1, len(orders))
	}
	return orders, args.Error(1)
}

// ---------------------------------------------------------------------------
// In-memory stores
// ---------------------------------------------------------------------------

// memWebProducts behaves like the GORM repository: upserts never overwrite
// the operator link or the order count of an existing row
type memWebProducts struct {
	mu          sync.Mutex
	rows        map[string]*integration.WebProduct
	upserts     int
	countCalls  int
	findErr     error
	upsertErr   error
	orderCounts map[string]int
}

func newMemWebProducts() *memWebProducts {
	return &memWebProducts{rows: make(map[string]*integration.WebProduct)}
}

func cloneProduct(p *integration.WebProduct) *integration.WebProduct {
	c := *p
	c.Variations = append([]integration.Variation(nil), p.Variations...)
	return &c
}

func (m *memWebProducts) put(p *integration.WebProduct) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[p.ID] = cloneProduct(p)
}

func (m *memWebProducts) get(id string) *integration.WebProduct {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil
	}
	return cloneProduct(p)
}

func (m *memWebProducts) FindByID(ctx context.Context, id string) (*integration.WebProduct, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if p := m.get(id); p != nil {
		return p, nil
	}
	return nil, integration.ErrWebProductNotFound
}

func (m *memWebProducts) FindByLookupKeys(ctx context.Context, keys []string) (map[string]*integration.WebProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*integration.WebProduct)
	for _, key := range keys {
		for _, p := range m.rows {
			if p.LookupKey != key {
				continue
			}
			if cur, ok := out[key]; ok && cur.UpdatedAt.After(p.UpdatedAt) {
				continue
			}
			out[key] = cloneProduct(p)
		}
	}
	return out, nil
}

func (m *memWebProducts) Upsert(ctx context.Context, product *integration.WebProduct) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	row := cloneProduct(product)
	if cur, ok := m.rows[product.ID]; ok {
		row.LinkedSku = cur.LinkedSku
		row.TotalWebOrders = cur.TotalWebOrders
		row.CreatedAt = cur.CreatedAt
	}
	m.rows[product.ID] = row
	return nil
}

func (m *memWebProducts) UpdateOrderCounts(ctx context.Context, counts map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderCounts = counts
	for id, n := range counts {
		if p, ok := m.rows[id]; ok {
			p.TotalWebOrders = n
		}
	}
	return nil
}

func (m *memWebProducts) CountByStorefront(ctx context.Context, storefront string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countCalls++
	var n int64
	for _, p := range m.rows {
		if p.Storefront == storefront {
			n++
		}
	}
	return n, nil
}

func (m *memWebProducts) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

type memSkus struct {
	mu   sync.Mutex
	rows map[string]*integration.Sku
}

func newMemSkus() *memSkus {
	return &memSkus{rows: make(map[string]*integration.Sku)}
}

func (m *memSkus) UpsertMirror(ctx context.Context, sku *integration.Sku) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := *sku
	if cur, ok := m.rows[sku.ID]; ok {
		row.LinkedSku = cur.LinkedSku
	}
	m.rows[sku.ID] = &row
	return nil
}

func (m *memSkus) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// memWebOrders stores each order as its JSON document so tests can compare
// repeated upserts byte for byte
type memWebOrders struct {
	mu        sync.Mutex
	docs      map[string][]byte
	orders    map[string]*integration.WebOrder
	batches   int
	upsertErr error
	aggErr    error
}

func newMemWebOrders() *memWebOrders {
	return &memWebOrders{
		docs:   make(map[string][]byte),
		orders: make(map[string]*integration.WebOrder),
	}
}

func (m *memWebOrders) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool)
	for _, id := range ids {
		if _, ok := m.orders[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (m *memWebOrders) UpsertBatch(ctx context.Context, orders []*integration.WebOrder) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	for _, o := range orders {
		doc, err := json.Marshal(o)
		if err != nil {
			return err
		}
		m.docs[o.ID] = doc
		m.orders[o.ID] = o
	}
	return nil
}

func (m *memWebOrders) AggregateOrderCounts(ctx context.Context, statuses []string) (map[string]int, error) {
	if m.aggErr != nil {
		return nil, m.aggErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	counted := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		counted[s] = true
	}
	out := make(map[string]int)
	for _, o := range m.orders {
		if !counted[o.Status] {
			continue
		}
		seen := make(map[string]bool)
		for _, li := range o.LineItems {
			id := li.WebProduct.ID()
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out[id]++
		}
	}
	return out, nil
}

func (m *memWebOrders) CountByStorefront(ctx context.Context, storefront string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.orders {
		if o.Storefront == storefront {
			n++
		}
	}
	return n, nil
}

func (m *memWebOrders) doc(id string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.docs[id]...)
}

func (m *memWebOrders) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

type memCheckpoints struct {
	mu        sync.Mutex
	rows      map[string]integration.SyncCheckpoint
	findErr   map[string]error
	upsertErr error
}

func newMemCheckpoints() *memCheckpoints {
	return &memCheckpoints{
		rows:    make(map[string]integration.SyncCheckpoint),
		findErr: make(map[string]error),
	}
}

func (m *memCheckpoints) FindByID(ctx context.Context, id string) (*integration.SyncCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.findErr[id]; err != nil {
		return nil, err
	}
	cp, ok := m.rows[id]
	if !ok {
		return nil, integration.ErrCheckpointNotFound
	}
	return &cp, nil
}

func (m *memCheckpoints) Upsert(ctx context.Context, cp *integration.SyncCheckpoint) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[cp.ID] = *cp
	return nil
}

func (m *memCheckpoints) List(ctx context.Context) ([]integration.SyncCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]integration.SyncCheckpoint, 0, len(m.rows))
	for _, cp := range m.rows {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memCheckpoints) get(t *testing.T, id string) integration.SyncCheckpoint {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.rows[id]
	require.True(t, ok, "checkpoint %s not written", id)
	return cp
}

func (m *memCheckpoints) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	return ok
}

type memLots struct {
	lots  integration.LotBalanceMap
	err   error
	calls int
}

func (m *memLots) AvailableBySkuIDs(ctx context.Context, skuIDs []string) (integration.LotBalanceMap, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := integration.LotBalanceMap{}
	for _, id := range skuIDs {
		if lots, ok := m.lots[id]; ok {
			out[id] = lots
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func storefront(name string) integration.Storefront {
	return integration.Storefront{
		Name:    name,
		BaseURL: "https://" + name + ".example.com",
		Key:     "ck_" + name,
		Secret:  "cs_" + name,
	}
}

func remoteVariation(id int64, sku, price string) integration.RemoteVariation {
	return integration.RemoteVariation{
		ID:            id,
		SKU:           sku,
		Price:         integration.Amount(price),
		StockQuantity: intPtr(3),
		StockStatus:   "instock",
	}
}

func remoteProduct(id int64, sku string, variations ...integration.RemoteVariation) integration.RemoteProduct {
	rp := integration.RemoteProduct{
		ID:            id,
		Name:          "Product " + sku,
		Slug:          "product-" + sku,
		Type:          "simple",
		Status:        "publish",
		SKU:           sku,
		Price:         integration.Amount("19.90"),
		RegularPrice:  integration.Amount("24.90"),
		StockQuantity: intPtr(10),
		StockStatus:   "instock",
		Images:        []integration.RemoteImage{{ID: 1, Src: "https://cdn.example.com/" + sku + ".jpg"}},
	}
	if len(variations) > 0 {
		rp.Type = "variable"
		rp.Variations = variations
		for _, v := range variations {
			rp.VariationIDs = append(rp.VariationIDs, v.ID)
		}
	}
	return rp
}

func remoteLine(id, productID, variationID int64, qty int) integration.RemoteLineItem {
	return integration.RemoteLineItem{
		ID:          id,
		Name:        "Line",
		ProductID:   productID,
		VariationID: variationID,
		Quantity:    qty,
		Price:       integration.Amount("10.00"),
		Subtotal:    integration.Amount("20.00"),
		Total:       integration.Amount("20.00"),
		TotalTax:    integration.Amount("0"),
		Taxes:       json.RawMessage(`[{"id":1,"total":"0.00"}]`),
	}
}

func remoteOrder(id int64, status string, lines ...integration.RemoteLineItem) integration.RemoteOrder {
	return integration.RemoteOrder{
		ID:            id,
		Number:        "WEB-" + status,
		Status:        status,
		Currency:      "USD",
		Total:         integration.Amount("20.00"),
		TotalTax:      integration.Amount("0.00"),
		ShippingTotal: integration.Amount("0.00"),
		Billing:       integration.Address{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		LineItems:     lines,
		DateCreated:   integration.FeedTime{Time: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		DateModified:  integration.FeedTime{Time: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
	}
}
