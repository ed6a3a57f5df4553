package integration

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Sku (legacy mirror)
// ---------------------------------------------------------------------------

// Sku is an internal inventory SKU. Web products are mirrored into the same
// table with IsWebProduct=true so older readers keep working.
type Sku struct {
	ID            string
	Name          string
	SkuCode       string
	Price         decimal.NullDecimal
	StockQuantity *int
	StockStatus   string
	ImageURL      string
	Storefront    string
	IsWebProduct  bool
	// LinkedSku is operator-curated and never written by the mirror
	LinkedSku Reference[Sku]
	UpdatedAt time.Time
}

// ---------------------------------------------------------------------------
// Variation
// ---------------------------------------------------------------------------

// Variation is one variant of a variable web product, stored inline on the product
type Variation struct {
	RemoteID         int64               `json:"remote_id"`
	SKU              string              `json:"sku"`
	Price            decimal.NullDecimal `json:"price"`
	RegularPrice     decimal.NullDecimal `json:"regular_price"`
	SalePrice        decimal.NullDecimal `json:"sale_price"`
	StockQuantity    *int                `json:"stock_quantity"`
	StockStatus      string              `json:"stock_status"`
	Attributes       []RemoteAttribute   `json:"attributes"`
	ImageURL         string              `json:"image_url,omitempty"`
	RemoteModifiedAt *time.Time          `json:"remote_modified_at,omitempty"`
	LinkedSku        Reference[Sku]      `json:"linked_sku_id"`
}

// NewVariation maps a feed variation. The result never carries a link.
func NewVariation(rv RemoteVariation) Variation {
	v := Variation{
		RemoteID:         rv.ID,
		SKU:              strings.TrimSpace(rv.SKU),
		Price:            rv.Price.NullDecimal(),
		RegularPrice:     rv.RegularPrice.NullDecimal(),
		SalePrice:        rv.SalePrice.NullDecimal(),
		StockQuantity:    rv.StockQuantity,
		StockStatus:      rv.StockStatus,
		Attributes:       rv.Attributes,
		RemoteModifiedAt: rv.DateModified.Ptr(),
	}
	if rv.Image != nil {
		v.ImageURL = rv.Image.Src
	}
	if v.Attributes == nil {
		v.Attributes = []RemoteAttribute{}
	}
	return v
}

// MergeVariations merges incoming variations into existing ones by remote id.
// Matches are updated in place keeping their LinkedSku unless the incoming
// value sets one, new variations are appended in incoming order, and existing
// variations missing from incoming are retained.
func MergeVariations(existing, incoming []Variation) []Variation {
	merged := make([]Variation, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	index := make(map[int64]int, len(merged))
	for i, v := range merged {
		index[v.RemoteID] = i
	}

	for _, in := range incoming {
		i, ok := index[in.RemoteID]
		if !ok {
			index[in.RemoteID] = len(merged)
			merged = append(merged, in)
			continue
		}
		if !in.LinkedSku.IsSet() {
			in.LinkedSku = merged[i].LinkedSku
		}
		merged[i] = in
	}
	return merged
}

// ---------------------------------------------------------------------------
// WebProduct
// ---------------------------------------------------------------------------

// WebProduct is the internal record of a storefront product
type WebProduct struct {
	// ID is ProductKey(storefront, remote id, sku)
	ID string
	// Storefront is the name of the storefront that last wrote this product
	Storefront string
	RemoteID   int64
	// LookupKey is ProductLookupKey(storefront, remote id)
	LookupKey        string
	Name             string
	Slug             string
	Type             string
	Status           string
	SKU              string
	Price            decimal.NullDecimal
	RegularPrice     decimal.NullDecimal
	SalePrice        decimal.NullDecimal
	ManageStock      bool
	StockQuantity    *int
	StockStatus      string
	Permalink        string
	Description      string
	ShortDescription string
	Images           []RemoteImage
	Attributes       []RemoteAttribute
	Categories       []RemoteCategory
	Variations       []Variation
	// LinkedSku is set by operators only
	LinkedSku Reference[Sku]
	// TotalWebOrders is recomputed from stored orders after every run
	TotalWebOrders   int
	RemoteModifiedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewWebProduct transforms a feed product into the record to upsert.
// existing may be nil; when present its links and order count are carried
// forward and its variations are merged with the fetched ones.
func NewWebProduct(storefront string, rp RemoteProduct, existing *WebProduct) *WebProduct {
	incoming := make([]Variation, 0, len(rp.Variations))
	for _, rv := range rp.Variations {
		incoming = append(incoming, NewVariation(rv))
	}

	p := &WebProduct{
		ID:               ProductKey(storefront, rp.ID, rp.SKU),
		Storefront:       storefront,
		RemoteID:         rp.ID,
		LookupKey:        ProductLookupKey(storefront, rp.ID),
		Name:             rp.Name,
		Slug:             rp.Slug,
		Type:             rp.Type,
		Status:           rp.Status,
		SKU:              strings.TrimSpace(rp.SKU),
		Price:            rp.Price.NullDecimal(),
		RegularPrice:     rp.RegularPrice.NullDecimal(),
		SalePrice:        rp.SalePrice.NullDecimal(),
		ManageStock:      rp.ManageStock,
		StockQuantity:    rp.StockQuantity,
		StockStatus:      rp.StockStatus,
		Permalink:        rp.Permalink,
		Description:      rp.Description,
		ShortDescription: rp.ShortDescription,
		Images:           nonNil(rp.Images),
		Attributes:       nonNil(rp.Attributes),
		Categories:       nonNil(rp.Categories),
		Variations:       incoming,
		RemoteModifiedAt: rp.DateModified.Ptr(),
	}

	if existing != nil {
		p.Variations = MergeVariations(existing.Variations, incoming)
		p.LinkedSku = existing.LinkedSku
		p.TotalWebOrders = existing.TotalWebOrders
		p.CreatedAt = existing.CreatedAt
	}
	return p
}

// FindVariation returns the variation with the given remote id, or nil
func (p *WebProduct) FindVariation(remoteID int64) *Variation {
	for i := range p.Variations {
		if p.Variations[i].RemoteID == remoteID {
			return &p.Variations[i]
		}
	}
	return nil
}

// ResolveSku returns the internal SKU an order line for this product maps to.
// A matched variation's link wins over the product link.
func (p *WebProduct) ResolveSku(remoteVariationID int64) Reference[Sku] {
	if remoteVariationID != 0 {
		if v := p.FindVariation(remoteVariationID); v != nil && v.LinkedSku.IsSet() {
			return v.LinkedSku
		}
	}
	return p.LinkedSku
}

// PrimaryImage returns the first image URL, empty when there is none
func (p *WebProduct) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].Src
}

// MirrorSku returns the legacy Sku row for this product. LinkedSku is left
// unset because the mirror must not write it.
func (p *WebProduct) MirrorSku() *Sku {
	return &Sku{
		ID:            p.ID,
		Name:          p.Name,
		SkuCode:       p.SKU,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		StockStatus:   p.StockStatus,
		ImageURL:      p.PrimaryImage(),
		Storefront:    p.Storefront,
		IsWebProduct:  true,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
