package integration

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

// ---------------------------------------------------------------------------
// MergeVariations Tests
// ---------------------------------------------------------------------------

func TestMergeVariations(t *testing.T) {
	a := Variation{RemoteID: 1, SKU: "A", StockQuantity: intPtr(3), LinkedSku: IDRef[Sku]("Y")}
	b := Variation{RemoteID: 2, SKU: "B", LinkedSku: IDRef[Sku]("Z")}
	aUpdated := Variation{RemoteID: 1, SKU: "A", StockQuantity: intPtr(9)}
	c := Variation{RemoteID: 3, SKU: "C"}

	merged := MergeVariations([]Variation{a, b}, []Variation{aUpdated, c})

	require.Len(t, merged, 3)
	assert.Equal(t, int64(1), merged[0].RemoteID)
	assert.Equal(t, 9, *merged[0].StockQuantity)
	assert.Equal(t, "Y", merged[0].LinkedSku.ID())
	assert.Equal(t, b, merged[1])
	assert.Equal(t, int64(3), merged[2].RemoteID)
	assert.False(t, merged[2].LinkedSku.IsSet())
}

func TestMergeVariations_DoesNotMutateExisting(t *testing.T) {
	existing := []Variation{{RemoteID: 1, SKU: "old"}}
	_ = MergeVariations(existing, []Variation{{RemoteID: 1, SKU: "new"}})
	assert.Equal(t, "old", existing[0].SKU)
}

func TestMergeVariations_EmptyInputs(t *testing.T) {
	assert.Empty(t, MergeVariations(nil, nil))

	only := MergeVariations(nil, []Variation{{RemoteID: 5}})
	require.Len(t, only, 1)
	assert.Equal(t, int64(5), only[0].RemoteID)

	kept := MergeVariations([]Variation{{RemoteID: 5, LinkedSku: IDRef[Sku]("S")}}, nil)
	require.Len(t, kept, 1)
	assert.Equal(t, "S", kept[0].LinkedSku.ID())
}

// ---------------------------------------------------------------------------
// NewWebProduct Tests
// ---------------------------------------------------------------------------

func remoteTee() RemoteProduct {
	return RemoteProduct{
		ID:            42,
		Name:          "Tee",
		Type:          "variable",
		SKU:           " TEE ",
		Price:         "19.90",
		RegularPrice:  "24.90",
		StockQuantity: intPtr(10),
		StockStatus:   "instock",
		Images:        []RemoteImage{{ID: 1, Src: "https://img.example/tee.jpg"}},
		Variations: []RemoteVariation{
			{ID: 100, SKU: "TEE-S", Price: "19.90", StockQuantity: intPtr(4)},
		},
	}
}

func TestNewWebProduct_Insert(t *testing.T) {
	p := NewWebProduct("shop-a", remoteTee(), nil)

	assert.Equal(t, "TEE", p.ID)
	assert.Equal(t, "TEE", p.SKU)
	assert.Equal(t, "42-shop-a", p.LookupKey)
	assert.True(t, p.Price.Valid)
	assert.True(t, p.Price.Decimal.Equal(decimal.RequireFromString("19.9")))
	assert.False(t, p.SalePrice.Valid)
	assert.False(t, p.LinkedSku.IsSet())
	require.Len(t, p.Variations, 1)
	assert.Equal(t, "TEE-S", p.Variations[0].SKU)
	assert.NotNil(t, p.Attributes)
	assert.NotNil(t, p.Categories)
}

func TestNewWebProduct_PreservesLinks(t *testing.T) {
	existing := &WebProduct{
		ID:             "TEE",
		LinkedSku:      IDRef[Sku]("X"),
		TotalWebOrders: 12,
		Variations: []Variation{
			{RemoteID: 100, SKU: "TEE-S", LinkedSku: IDRef[Sku]("Y")},
			{RemoteID: 101, SKU: "TEE-M"},
		},
	}

	p := NewWebProduct("shop-a", remoteTee(), existing)

	assert.Equal(t, "X", p.LinkedSku.ID())
	assert.Equal(t, 12, p.TotalWebOrders)
	require.Len(t, p.Variations, 2)
	assert.Equal(t, "Y", p.FindVariation(100).LinkedSku.ID())
	assert.Equal(t, 4, *p.FindVariation(100).StockQuantity)
	assert.NotNil(t, p.FindVariation(101))
}

func TestWebProduct_ResolveSku(t *testing.T) {
	p := &WebProduct{
		LinkedSku: IDRef[Sku]("PRODUCT"),
		Variations: []Variation{
			{RemoteID: 1, LinkedSku: IDRef[Sku]("VARIANT")},
			{RemoteID: 2},
		},
	}

	assert.Equal(t, "VARIANT", p.ResolveSku(1).ID())
	assert.Equal(t, "PRODUCT", p.ResolveSku(2).ID(), "unlinked variation falls back to product")
	assert.Equal(t, "PRODUCT", p.ResolveSku(99).ID(), "unknown variation falls back to product")
	assert.Equal(t, "PRODUCT", p.ResolveSku(0).ID())

	assert.False(t, (&WebProduct{}).ResolveSku(0).IsSet())
}

func TestWebProduct_MirrorSku(t *testing.T) {
	p := NewWebProduct("shop-a", remoteTee(), &WebProduct{LinkedSku: IDRef[Sku]("X")})
	sku := p.MirrorSku()

	assert.Equal(t, "TEE", sku.ID)
	assert.Equal(t, "Tee", sku.Name)
	assert.Equal(t, "https://img.example/tee.jpg", sku.ImageURL)
	assert.True(t, sku.IsWebProduct)
	assert.False(t, sku.LinkedSku.IsSet())
}

// ---------------------------------------------------------------------------
// LotBalanceMap Tests
// ---------------------------------------------------------------------------

func TestLotBalanceMap_FIFO(t *testing.T) {
	lots := LotBalanceMap{
		"SKU1": {
			{LotNumber: "L1", Cost: decimal.NewFromInt(5)},
			{LotNumber: "L2", Cost: decimal.NewFromInt(7)},
		},
		"SKU2": {},
	}

	lot, ok := lots.FIFO("SKU1")
	require.True(t, ok)
	assert.Equal(t, "L1", lot.LotNumber)
	assert.True(t, lot.Cost.Equal(decimal.NewFromInt(5)))

	_, ok = lots.FIFO("SKU2")
	assert.False(t, ok)
	_, ok = lots.FIFO("SKU3")
	assert.False(t, ok)
}

func TestLineItem_AssignLot(t *testing.T) {
	var li LineItem
	assert.False(t, li.HasLot())

	li.AssignLot(LotBalance{LotNumber: "L1", Cost: decimal.NewFromInt(5)})
	require.True(t, li.HasLot())
	assert.Equal(t, "L1", *li.LotNumber)
	assert.True(t, li.Cost.Valid)
}

func TestWebOrder_LinkedSkuIDs(t *testing.T) {
	o := &WebOrder{LineItems: []LineItem{
		{LinkedSku: IDRef[Sku]("A")},
		{},
		{LinkedSku: IDRef[Sku]("B")},
		{LinkedSku: IDRef[Sku]("A")},
	}}
	assert.Equal(t, []string{"A", "B"}, o.LinkedSkuIDs())
}
