package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/websync/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// WebOrderModel is the persistence model for the WebOrder aggregate.
// It carries no sync timestamps so identical remote data stores identical rows.
type WebOrderModel struct {
	ID                 string          `gorm:"type:varchar(191);primary_key"`
	Storefront         string          `gorm:"type:varchar(100);not null;index:idx_web_orders_storefront"`
	RemoteID           int64           `gorm:"not null"`
	Number             string          `gorm:"type:varchar(50)"`
	Status             string          `gorm:"type:varchar(30);not null;index:idx_web_orders_status"`
	Currency           string          `gorm:"type:varchar(10)"`
	Total              decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalTax           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ShippingTotal      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DiscountTotal      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CustomerID         int64
	CustomerNote       string `gorm:"type:text"`
	PaymentMethod      string `gorm:"type:varchar(100)"`
	PaymentMethodTitle string `gorm:"type:varchar(255)"`
	BillingJSON        string `gorm:"type:jsonb;column:billing"`
	ShippingJSON       string `gorm:"type:jsonb;column:shipping"`
	CouponLinesJSON    string `gorm:"type:jsonb;column:coupon_lines"`
	RefundsJSON        string `gorm:"type:jsonb;column:refunds"`
	MetaDataJSON       string `gorm:"type:jsonb;column:meta_data"`
	RemoteCreatedAt    *time.Time
	RemoteModifiedAt   *time.Time

	LineItems []WebOrderLineItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (WebOrderModel) TableName() string {
	return "web_orders"
}

// ToDomain converts the persistence model to a domain WebOrder entity.
func (m *WebOrderModel) ToDomain() (*integration.WebOrder, error) {
	coupons, err := decodeList[integration.CouponLine]("coupon_lines", m.CouponLinesJSON)
	if err != nil {
		return nil, err
	}
	refunds, err := decodeList[integration.Refund]("refunds", m.RefundsJSON)
	if err != nil {
		return nil, err
	}
	o := &integration.WebOrder{
		ID:                 m.ID,
		Storefront:         m.Storefront,
		RemoteID:           m.RemoteID,
		Number:             m.Number,
		Status:             m.Status,
		Currency:           m.Currency,
		Total:              m.Total,
		TotalTax:           m.TotalTax,
		ShippingTotal:      m.ShippingTotal,
		DiscountTotal:      m.DiscountTotal,
		CustomerID:         m.CustomerID,
		CustomerNote:       m.CustomerNote,
		PaymentMethod:      m.PaymentMethod,
		PaymentMethodTitle: m.PaymentMethodTitle,
		CouponLines:        coupons,
		Refunds:            refunds,
		MetaData:           json.RawMessage(rawArray(json.RawMessage(m.MetaDataJSON))),
		RemoteCreatedAt:    m.RemoteCreatedAt,
		RemoteModifiedAt:   m.RemoteModifiedAt,
		LineItems:          make([]integration.LineItem, 0, len(m.LineItems)),
	}
	if m.BillingJSON != "" {
		if err := json.Unmarshal([]byte(m.BillingJSON), &o.Billing); err != nil {
			return nil, fmt.Errorf("decode billing column: %w", err)
		}
	}
	if m.ShippingJSON != "" {
		if err := json.Unmarshal([]byte(m.ShippingJSON), &o.Shipping); err != nil {
			return nil, fmt.Errorf("decode shipping column: %w", err)
		}
	}
	for i := range m.LineItems {
		o.LineItems = append(o.LineItems, m.LineItems[i].ToDomain())
	}
	return o, nil
}

// FromDomain populates the persistence model from a domain WebOrder entity.
func (m *WebOrderModel) FromDomain(o *integration.WebOrder) {
	m.ID = o.ID
	m.Storefront = o.Storefront
	m.RemoteID = o.RemoteID
	m.Number = o.Number
	m.Status = o.Status
	m.Currency = o.Currency
	m.Total = o.Total
	m.TotalTax = o.TotalTax
	m.ShippingTotal = o.ShippingTotal
	m.DiscountTotal = o.DiscountTotal
	m.CustomerID = o.CustomerID
	m.CustomerNote = o.CustomerNote
	m.PaymentMethod = o.PaymentMethod
	m.PaymentMethodTitle = o.PaymentMethodTitle
	m.BillingJSON = encodeObject(o.Billing)
	m.ShippingJSON = encodeObject(o.Shipping)
	m.CouponLinesJSON = encodeList(o.CouponLines)
	m.RefundsJSON = encodeList(o.Refunds)
	m.MetaDataJSON = rawArray(o.MetaData)
	m.RemoteCreatedAt = o.RemoteCreatedAt
	m.RemoteModifiedAt = o.RemoteModifiedAt

	m.LineItems = make([]WebOrderLineItemModel, len(o.LineItems))
	for i := range o.LineItems {
		m.LineItems[i].FromDomain(o.ID, &o.LineItems[i])
	}
}

// WebOrderModelFromDomain creates a new persistence model from a domain WebOrder entity.
func WebOrderModelFromDomain(o *integration.WebOrder) *WebOrderModel {
	m := &WebOrderModel{}
	m.FromDomain(o)
	return m
}

// WebOrderLineItemModel is the persistence model for one order line.
// Lines are keyed by (order_id, remote_line_id) and replaced with their order.
type WebOrderLineItemModel struct {
	OrderID           string              `gorm:"type:varchar(191);primaryKey"`
	RemoteLineID      int64               `gorm:"primaryKey;autoIncrement:false"`
	Position          int                 `gorm:"not null"`
	Name              string              `gorm:"type:varchar(500)"`
	RemoteProductID   int64               `gorm:"not null"`
	RemoteVariationID int64               `gorm:"not null;default:0"`
	Quantity          int                 `gorm:"not null"`
	SKU               string              `gorm:"column:sku;type:varchar(191)"`
	Price             decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	Subtotal          decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	SubtotalTax       decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	Total             decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	TotalTax          decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	TaxesJSON         string              `gorm:"type:jsonb;column:taxes"`
	MetaDataJSON      string              `gorm:"type:jsonb;column:meta_data"`
	WebProductID      *string             `gorm:"type:varchar(191);index:idx_web_order_line_items_web_product"`
	LinkedSkuID       *string             `gorm:"type:varchar(191)"`
	LotNumber         *string             `gorm:"type:varchar(100)"`
	Cost              decimal.NullDecimal `gorm:"type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (WebOrderLineItemModel) TableName() string {
	return "web_order_line_items"
}

// ToDomain converts the persistence model to a domain LineItem.
func (m *WebOrderLineItemModel) ToDomain() integration.LineItem {
	return integration.LineItem{
		RemoteLineID:      m.RemoteLineID,
		Position:          m.Position,
		Name:              m.Name,
		RemoteProductID:   m.RemoteProductID,
		RemoteVariationID: m.RemoteVariationID,
		Quantity:          m.Quantity,
		SKU:               m.SKU,
		Price:             m.Price,
		Subtotal:          m.Subtotal,
		SubtotalTax:       m.SubtotalTax,
		Total:             m.Total,
		TotalTax:          m.TotalTax,
		Taxes:             json.RawMessage(rawArray(json.RawMessage(m.TaxesJSON))),
		MetaData:          json.RawMessage(rawArray(json.RawMessage(m.MetaDataJSON))),
		WebProduct:        integration.RefFromPtr[integration.WebProduct](m.WebProductID),
		LinkedSku:         integration.RefFromPtr[integration.Sku](m.LinkedSkuID),
		LotNumber:         m.LotNumber,
		Cost:              m.Cost,
	}
}

// FromDomain populates the persistence model from a domain LineItem.
func (m *WebOrderLineItemModel) FromDomain(orderID string, li *integration.LineItem) {
	m.OrderID = orderID
	m.RemoteLineID = li.RemoteLineID
	m.Position = li.Position
	m.Name = li.Name
	m.RemoteProductID = li.RemoteProductID
	m.RemoteVariationID = li.RemoteVariationID
	m.Quantity = li.Quantity
	m.SKU = li.SKU
	m.Price = li.Price
	m.Subtotal = li.Subtotal
	m.SubtotalTax = li.SubtotalTax
	m.Total = li.Total
	m.TotalTax = li.TotalTax
	m.TaxesJSON = rawArray(li.Taxes)
	m.MetaDataJSON = rawArray(li.MetaData)
	m.WebProductID = li.WebProduct.IDPtr()
	m.LinkedSkuID = li.LinkedSku.IDPtr()
	m.LotNumber = li.LotNumber
	m.Cost = li.Cost
}

func encodeObject(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
