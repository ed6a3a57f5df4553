package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/websync/internal/domain/integration"
	"github.com/shopspring/decimal"
)

// WebProductModel is the persistence model for the WebProduct domain entity.
type WebProductModel struct {
	ID               string              `gorm:"type:varchar(191);primary_key"`
	Storefront       string              `gorm:"type:varchar(100);not null;index:idx_web_products_storefront"`
	RemoteID         int64               `gorm:"not null"`
	LookupKey        string              `gorm:"type:varchar(191);not null;index:idx_web_products_lookup_key"`
	Name             string              `gorm:"type:varchar(500)"`
	Slug             string              `gorm:"type:varchar(255)"`
	Type             string              `gorm:"type:varchar(30)"`
	Status           string              `gorm:"type:varchar(30)"`
	SKU              string              `gorm:"column:sku;type:varchar(191)"`
	Price            decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	RegularPrice     decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	SalePrice        decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	StockQuantity    *int
	StockStatus      string  `gorm:"type:varchar(30)"`
	ManageStock      bool    `gorm:"not null;default:false"`
	Permalink        string  `gorm:"type:text"`
	Description      string  `gorm:"type:text"`
	ShortDescription string  `gorm:"type:text"`
	ImagesJSON       string  `gorm:"type:jsonb;column:images"`
	AttributesJSON   string  `gorm:"type:jsonb;column:attributes"`
	CategoriesJSON   string  `gorm:"type:jsonb;column:categories"`
	VariationsJSON   string  `gorm:"type:jsonb;column:variations"`
	LinkedSkuID      *string `gorm:"type:varchar(191);index:idx_web_products_linked_sku"`
	TotalWebOrders   int     `gorm:"not null;default:0"`
	RemoteModifiedAt *time.Time
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WebProductModel) TableName() string {
	return "web_products"
}

// WebProductMirrorColumns are the columns a re-sync overwrites.
// linked_sku_id and total_web_orders belong to operators and the order rollup.
var WebProductMirrorColumns = []string{
	"storefront", "remote_id", "lookup_key", "name", "slug", "type", "status", "sku",
	"price", "regular_price", "sale_price", "stock_quantity", "stock_status", "manage_stock",
	"permalink", "description", "short_description",
	"images", "attributes", "categories", "variations",
	"remote_modified_at", "updated_at",
}

// ToDomain converts the persistence model to a domain WebProduct entity. An
// unreadable JSON column is an error, never an empty list.
func (m *WebProductModel) ToDomain() (*integration.WebProduct, error) {
	images, err := decodeList[integration.RemoteImage]("images", m.ImagesJSON)
	if err != nil {
		return nil, err
	}
	attributes, err := decodeList[integration.RemoteAttribute]("attributes", m.AttributesJSON)
	if err != nil {
		return nil, err
	}
	categories, err := decodeList[integration.RemoteCategory]("categories", m.CategoriesJSON)
	if err != nil {
		return nil, err
	}
	variations, err := decodeList[integration.Variation]("variations", m.VariationsJSON)
	if err != nil {
		return nil, err
	}
	p := &integration.WebProduct{
		ID:               m.ID,
		Storefront:       m.Storefront,
		RemoteID:         m.RemoteID,
		LookupKey:        m.LookupKey,
		Name:             m.Name,
		Slug:             m.Slug,
		Type:             m.Type,
		Status:           m.Status,
		SKU:              m.SKU,
		Price:            m.Price,
		RegularPrice:     m.RegularPrice,
		SalePrice:        m.SalePrice,
		ManageStock:      m.ManageStock,
		StockQuantity:    m.StockQuantity,
		StockStatus:      m.StockStatus,
		Permalink:        m.Permalink,
		Description:      m.Description,
		ShortDescription: m.ShortDescription,
		Images:           images,
		Attributes:       attributes,
		Categories:       categories,
		Variations:       variations,
		LinkedSku:        integration.RefFromPtr[integration.Sku](m.LinkedSkuID),
		TotalWebOrders:   m.TotalWebOrders,
		RemoteModifiedAt: m.RemoteModifiedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
	return p, nil
}

// FromDomain populates the persistence model from a domain WebProduct entity.
func (m *WebProductModel) FromDomain(p *integration.WebProduct) {
	m.ID = p.ID
	m.Storefront = p.Storefront
	m.RemoteID = p.RemoteID
	m.LookupKey = p.LookupKey
	m.Name = p.Name
	m.Slug = p.Slug
	m.Type = p.Type
	m.Status = p.Status
	m.SKU = p.SKU
	m.Price = p.Price
	m.RegularPrice = p.RegularPrice
	m.SalePrice = p.SalePrice
	m.StockQuantity = p.StockQuantity
	m.StockStatus = p.StockStatus
	m.ManageStock = p.ManageStock
	m.Permalink = p.Permalink
	m.Description = p.Description
	m.ShortDescription = p.ShortDescription
	m.ImagesJSON = encodeList(p.Images)
	m.AttributesJSON = encodeList(p.Attributes)
	m.CategoriesJSON = encodeList(p.Categories)
	m.VariationsJSON = encodeList(p.Variations)
	m.LinkedSkuID = p.LinkedSku.IDPtr()
	m.TotalWebOrders = p.TotalWebOrders
	m.RemoteModifiedAt = p.RemoteModifiedAt
	m.CreatedAt = p.CreatedAt
	m.UpdatedAt = p.UpdatedAt
}

// WebProductModelFromDomain creates a new persistence model from a domain WebProduct entity.
func WebProductModelFromDomain(p *integration.WebProduct) *WebProductModel {
	m := &WebProductModel{}
	m.FromDomain(p)
	return m
}

// SkuModel is the persistence model for the internal SKU table. Sync only
// writes mirror rows (is_web_product = true).
type SkuModel struct {
	ID            string              `gorm:"type:varchar(191);primary_key"`
	Name          string              `gorm:"type:varchar(500)"`
	SkuCode       string              `gorm:"type:varchar(191);index:idx_skus_sku_code"`
	Price         decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	StockQuantity *int
	StockStatus   string    `gorm:"type:varchar(30)"`
	ImageURL      string    `gorm:"type:text"`
	Storefront    string    `gorm:"type:varchar(100)"`
	IsWebProduct  bool      `gorm:"not null;default:false"`
	LinkedSkuID   *string   `gorm:"type:varchar(191)"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SkuModel) TableName() string {
	return "skus"
}

// SkuMirrorColumns are the columns the web product mirror writes on conflict
var SkuMirrorColumns = []string{
	"name", "sku_code", "price", "stock_quantity", "stock_status",
	"image_url", "storefront", "is_web_product", "updated_at",
}

// ToDomain converts the persistence model to a domain Sku entity.
func (m *SkuModel) ToDomain() *integration.Sku {
	return &integration.Sku{
		ID:            m.ID,
		Name:          m.Name,
		SkuCode:       m.SkuCode,
		Price:         m.Price,
		StockQuantity: m.StockQuantity,
		StockStatus:   m.StockStatus,
		ImageURL:      m.ImageURL,
		Storefront:    m.Storefront,
		IsWebProduct:  m.IsWebProduct,
		LinkedSku:     integration.RefFromPtr[integration.Sku](m.LinkedSkuID),
		UpdatedAt:     m.UpdatedAt,
	}
}

// SkuModelFromDomain creates a new persistence model from a domain Sku entity.
func SkuModelFromDomain(s *integration.Sku) *SkuModel {
	return &SkuModel{
		ID:            s.ID,
		Name:          s.Name,
		SkuCode:       s.SkuCode,
		Price:         s.Price,
		StockQuantity: s.StockQuantity,
		StockStatus:   s.StockStatus,
		ImageURL:      s.ImageURL,
		Storefront:    s.Storefront,
		IsWebProduct:  s.IsWebProduct,
		LinkedSkuID:   s.LinkedSku.IDPtr(),
		UpdatedAt:     s.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// JSON column helpers
// ---------------------------------------------------------------------------

// encodeList stores nil and empty slices as "[]"
func encodeList[T any](items []T) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// decodeList never returns a nil slice. An empty column reads as no items.
func decodeList[T any](column, raw string) ([]T, error) {
	out := make([]T, 0)
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode %s column: %w", column, err)
	}
	if out == nil {
		out = make([]T, 0)
	}
	return out, nil
}

// rawArray stores a raw JSON array, normalizing absent and null values to "[]"
func rawArray(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "[]"
	}
	return string(raw)
}
