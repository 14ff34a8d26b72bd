package services

import (
	"context"

	"gem-backend/internal/models"
)

// DashboardService assembles the tenant overview: stock counts and value,
// sales totals, unpaid invoices and the latest sales.
type DashboardService struct {
	store    DashboardStore
	sales    SaleStore
	invoices InvoiceStore
}

func NewDashboardService(store DashboardStore, sales SaleStore, invoices InvoiceStore) *DashboardService {
	return &DashboardService{store: store, sales: sales, invoices: invoices}
}

func (s *DashboardService) Stats(ctx context.Context, actor models.Actor) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{ByStatus: make(map[models.Status]int)}

	rows, err := s.store.StockRows(ctx, actor.OwnerID)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		stats.AddStock(r)
	}
	stats.RoundValues()

	if stats.Sales, err = s.store.SalesSummary(ctx, actor.OwnerID); err != nil {
		return nil, err
	}

	_, unpaid, err := s.invoices.List(ctx, actor.OwnerID, models.InvoiceFilter{
		Status: models.InvoiceUnpaid,
		Page:   models.Page{Page: 1, Limit: 1},
	})
	if err != nil {
		return nil, err
	}
	stats.UnpaidInvoices = unpaid

	recent, _, err := s.sales.List(ctx, actor.OwnerID, models.SaleFilter{
		Page: models.Page{Page: 1, Limit: models.RecentSalesLimit},
	})
	if err != nil {
		return nil, err
	}
	stats.RecentSales = recent
	if stats.RecentSales == nil {
		stats.RecentSales = []*models.Sale{}
	}
	return stats, nil
}
