package integration

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CouponLine is a coupon applied to a web order
type CouponLine struct {
	RemoteID    int64           `json:"remote_id"`
	Code        string          `json:"code"`
	Discount    decimal.Decimal `json:"discount"`
	DiscountTax decimal.Decimal `json:"discount_tax"`
}

// Refund is a refund summary on a web order
type Refund struct {
	RemoteID int64           `json:"remote_id"`
	Reason   string          `json:"reason"`
	Total    decimal.Decimal `json:"total"`
}

// LineItem is one order line enriched with its internal product, SKU and lot
type LineItem struct {
	RemoteLineID      int64
	Position          int
	Name              string
	RemoteProductID   int64
	RemoteVariationID int64
	Quantity          int
	SKU               string
	Price             decimal.Decimal
	Subtotal          decimal.Decimal
	SubtotalTax       decimal.Decimal
	Total             decimal.Decimal
	TotalTax          decimal.Decimal
	Taxes             json.RawMessage
	MetaData          json.RawMessage
	// WebProduct is unset when no stored product matched the line
	WebProduct Reference[WebProduct]
	LinkedSku  Reference[Sku]
	// LotNumber and Cost are both nil unless a lot was assigned
	LotNumber *string
	Cost      decimal.NullDecimal
}

// AssignLot copies the lot number and unit cost onto the line
func (li *LineItem) AssignLot(lot LotBalance) {
	number := lot.LotNumber
	li.LotNumber = &number
	li.Cost = decimal.NewNullDecimal(lot.Cost)
}

// HasLot returns true if a lot was assigned
func (li *LineItem) HasLot() bool {
	return li.LotNumber != nil
}

// WebOrder is the internal record of a storefront order. Re-syncing the same
// remote order replaces the whole record.
type WebOrder struct {
	// ID is OrderKey(storefront, remote id)
	ID                 string
	Storefront         string
	RemoteID           int64
	Number             string
	Status             string
	Currency           string
	Total              decimal.Decimal
	TotalTax           decimal.Decimal
	ShippingTotal      decimal.Decimal
	DiscountTotal      decimal.Decimal
	CustomerID         int64
	CustomerNote       string
	PaymentMethod      string
	PaymentMethodTitle string
	Billing            Address
	Shipping           Address
	CouponLines        []CouponLine
	Refunds            []Refund
	MetaData           json.RawMessage
	RemoteCreatedAt    *time.Time
	RemoteModifiedAt   *time.Time
	LineItems          []LineItem
}

// LinkedSkuIDs returns the distinct SKU ids the order's lines resolved to
func (o *WebOrder) LinkedSkuIDs() []string {
	seen := make(map[string]struct{}, len(o.LineItems))
	ids := make([]string, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		id := li.LinkedSku.ID()
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
