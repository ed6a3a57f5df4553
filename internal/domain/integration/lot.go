package integration

import "github.com/shopspring/decimal"

// LotBalance is an inventory lot with stock still available
type LotBalance struct {
	LotNumber string
	Cost      decimal.Decimal
}

// LotBalanceMap maps an internal SKU id to its available lots, oldest first
type LotBalanceMap map[string][]LotBalance

// FIFO returns the oldest available lot for the SKU
func (m LotBalanceMap) FIFO(skuID string) (LotBalance, bool) {
	lots := m[skuID]
	if len(lots) == 0 {
		return LotBalance{}, false
	}
	return lots[0], true
}
