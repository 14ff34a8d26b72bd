package models

import (
	"github.com/shopspring/decimal"
)

// RecentSalesLimit is how many sales the dashboard shows.
const RecentSalesLimit = 5

// StockRow is the part of an active item the dashboard aggregates.
type StockRow struct {
	Status          Status
	PurchaseCode    string
	AvailableWeight decimal.Decimal
}

// Value prices the remaining weight at the purchase code read as a per-unit
// cost. Codes that are not numbers are worth nothing.
func (r StockRow) Value() decimal.Decimal {
	cost, err := decimal.NewFromString(r.PurchaseCode)
	if err != nil || cost.IsNegative() {
		return decimal.Zero
	}
	return cost.Mul(r.AvailableWeight)
}

// SalesSummary totals the uncancelled sales of a tenant.
type SalesSummary struct {
	Count   int                        `json:"count"`
	Revenue map[string]decimal.Decimal `json:"revenue"`
}

type DashboardStats struct {
	TotalInventory int             `json:"total_inventory"`
	ByStatus       map[Status]int  `json:"by_status"`
	TotalValue     decimal.Decimal `json:"total_value"`
	InStockValue   decimal.Decimal `json:"in_stock_value"`
	Sales          SalesSummary    `json:"sales"`
	UnpaidInvoices int             `json:"unpaid_invoices"`
	RecentSales    []*Sale         `json:"recent_sales"`
}

// AddStock folds one item into the counts and valuations. Sold items are
// counted but carry no stock value.
func (d *DashboardStats) AddStock(r StockRow) {
	if d.ByStatus == nil {
		d.ByStatus = make(map[Status]int)
	}
	d.TotalInventory++
	d.ByStatus[r.Status]++
	if r.Status == StatusSold {
		return
	}
	v := r.Value()
	d.TotalValue = d.TotalValue.Add(v)
	if r.Status == StatusInStock {
		d.InStockValue = d.InStockValue.Add(v)
	}
}

// RoundValues rounds the valuations to cents.
func (d *DashboardStats) RoundValues() {
	d.TotalValue = d.TotalValue.Round(2)
	d.InStockValue = d.InStockValue.Round(2)
}
