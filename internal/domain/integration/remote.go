package integration

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Feed scalar types
// ---------------------------------------------------------------------------

// Amount is a monetary value as sent by the feed. Storefronts encode money
// as JSON strings ("12.50", "" for unset) and occasionally as bare numbers.
type Amount string

// UnmarshalJSON accepts a JSON string, number or null
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(s))
		return nil
	}
	*a = Amount(b)
	return nil
}

// IsSet returns true if the feed carried a parseable value
func (a Amount) IsSet() bool {
	_, err := decimal.NewFromString(string(a))
	return err == nil
}

// Decimal returns the value, or zero when unset or malformed
func (a Amount) Decimal() decimal.Decimal {
	d, err := decimal.NewFromString(string(a))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// NullDecimal returns the value with Valid=false when unset or malformed
func (a Amount) NullDecimal() decimal.NullDecimal {
	d, err := decimal.NewFromString(string(a))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// feedTimeLayouts are tried in order; *_gmt fields carry no zone suffix
var feedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// FeedTime is a feed timestamp interpreted as UTC.
// Unparseable values decode to the zero time instead of failing the page.
type FeedTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler
func (t *FeedTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range feedTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}

// MarshalJSON implements json.Marshaler
func (t FeedTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// Ptr returns nil for the zero time
func (t FeedTime) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// ---------------------------------------------------------------------------
// Remote products
// ---------------------------------------------------------------------------

// RemoteImage is a product or variation image
type RemoteImage struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// RemoteAttribute is a product attribute (Options) or a variation's chosen value (Option)
type RemoteAttribute struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Option    string   `json:"option,omitempty"`
	Options   []string `json:"options,omitempty"`
	Visible   bool     `json:"visible,omitempty"`
	Variation bool     `json:"variation,omitempty"`
}

// RemoteCategory is a product category reference
type RemoteCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// RemoteProduct is one product record from the storefront feed. It is never
// persisted as-is; the catalog reconciler transforms it into a WebProduct.
type RemoteProduct struct {
	ID               int64             `json:"id"`
	Name             string            `json:"name"`
	Slug             string            `json:"slug"`
	Type             string            `json:"type"`
	Status           string            `json:"status"`
	SKU              string            `json:"sku"`
	Price            Amount            `json:"price"`
	RegularPrice     Amount            `json:"regular_price"`
	SalePrice        Amount            `json:"sale_price"`
	ManageStock      bool              `json:"manage_stock"`
	StockQuantity    *int              `json:"stock_quantity"`
	StockStatus      string            `json:"stock_status"`
	Permalink        string            `json:"permalink"`
	Description      string            `json:"description"`
	ShortDescription string            `json:"short_description"`
	Images           []RemoteImage     `json:"images"`
	Attributes       []RemoteAttribute `json:"attributes"`
	Categories       []RemoteCategory  `json:"categories"`
	VariationIDs     []int64           `json:"variations"`
	DateModified     FeedTime          `json:"date_modified_gmt"`

	// Variations is filled by the nested variations fetch for variable products
	Variations []RemoteVariation `json:"-"`
}

// IsVariable returns true for products whose variations live behind the nested endpoint
func (p *RemoteProduct) IsVariable() bool {
	return strings.EqualFold(p.Type, "variable")
}

// RemoteVariation is one variation of a variable product
type RemoteVariation struct {
	ID            int64             `json:"id"`
	SKU           string            `json:"sku"`
	Price         Amount            `json:"price"`
	RegularPrice  Amount            `json:"regular_price"`
	SalePrice     Amount            `json:"sale_price"`
	StockQuantity *int              `json:"stock_quantity"`
	StockStatus   string            `json:"stock_status"`
	Attributes    []RemoteAttribute `json:"attributes"`
	Image         *RemoteImage      `json:"image"`
	DateModified  FeedTime          `json:"date_modified_gmt"`
}

// ---------------------------------------------------------------------------
// Remote orders
// ---------------------------------------------------------------------------

// Address is a billing or shipping block, stored denormalized on the order
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// RemoteLineItem is one order line from the feed
type RemoteLineItem struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	ProductID   int64           `json:"product_id"`
	VariationID int64           `json:"variation_id"`
	Quantity    int             `json:"quantity"`
	SKU         string          `json:"sku"`
	Price       Amount          `json:"price"`
	Subtotal    Amount          `json:"subtotal"`
	SubtotalTax Amount          `json:"subtotal_tax"`
	Total       Amount          `json:"total"`
	TotalTax    Amount          `json:"total_tax"`
	Taxes       json.RawMessage `json:"taxes"`
	MetaData    json.RawMessage `json:"meta_data"`
}

// RemoteCouponLine is a coupon applied to an order
type RemoteCouponLine struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Discount    Amount `json:"discount"`
	DiscountTax Amount `json:"discount_tax"`
}

// RemoteRefund is a refund summary on an order
type RemoteRefund struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
	Total  Amount `json:"total"`
}

// RemoteOrder is one order record from the storefront feed
type RemoteOrder struct {
	ID                 int64              `json:"id"`
	Number             string             `json:"number"`
	Status             string             `json:"status"`
	Currency           string             `json:"currency"`
	Total              Amount             `json:"total"`
	TotalTax           Amount             `json:"total_tax"`
	ShippingTotal      Amount             `json:"shipping_total"`
	DiscountTotal      Amount             `json:"discount_total"`
	CustomerID         int64              `json:"customer_id"`
	CustomerNote       string             `json:"customer_note"`
	PaymentMethod      string             `json:"payment_method"`
	PaymentMethodTitle string             `json:"payment_method_title"`
	Billing            Address            `json:"billing"`
	Shipping           Address            `json:"shipping"`
	LineItems          []RemoteLineItem   `json:"line_items"`
	CouponLines        []RemoteCouponLine `json:"coupon_lines"`
	Refunds            []RemoteRefund     `json:"refunds"`
	MetaData           json.RawMessage    `json:"meta_data"`
	DateCreated        FeedTime           `json:"date_created_gmt"`
	DateModified       FeedTime           `json:"date_modified_gmt"`
}

// StorefrontOrder pairs a fetched order with the storefront it came from
type StorefrontOrder struct {
	Storefront string
	Order      RemoteOrder
}

// StorefrontProduct pairs a fetched product with the storefront it came from
type StorefrontProduct struct {
	Storefront string
	Product    RemoteProduct
}
