package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"gem-backend/internal/models"
)

// DashboardRepository reads the aggregates behind GET /api/dashboard.
type DashboardRepository struct {
	DB *pgxpool.Pool
}

func NewDashboardRepository(db *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{DB: db}
}

// StockRows returns one row per active item.
func (r *DashboardRepository) StockRows(ctx context.Context, ownerID uuid.UUID) ([]models.StockRow, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT status, purchase_code, available_weight FROM inventory_items
		 WHERE owner_id=$1 AND NOT is_deleted`, ownerID)
	if err != nil {
		return nil, translate(err, "inventory item")
	}
	defer rows.Close()

	var out []models.StockRow
	for rows.Next() {
		var (
			row    models.StockRow
			status string
		)
		if err := rows.Scan(&status, &row.PurchaseCode, &row.AvailableWeight); err != nil {
			return nil, translate(err, "inventory item")
		}
		row.Status = models.Status(status)
		out = append(out, row)
	}
	return out, translate(rows.Err(), "inventory item")
}

// SalesSummary counts uncancelled sales and sums them per currency.
func (r *DashboardRepository) SalesSummary(ctx context.Context, ownerID uuid.UUID) (models.SalesSummary, error) {
	summary := models.SalesSummary{Revenue: make(map[string]decimal.Decimal)}
	rows, err := r.DB.Query(ctx,
		`SELECT currency, COUNT(*), COALESCE(SUM(total_amount), 0) FROM sales
		 WHERE owner_id=$1 AND NOT cancelled GROUP BY currency`, ownerID)
	if err != nil {
		return summary, translate(err, "sale")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			currency string
			count    int
			revenue  decimal.Decimal
		)
		if err := rows.Scan(&currency, &count, &revenue); err != nil {
			return summary, translate(err, "sale")
		}
		summary.Count += count
		summary.Revenue[currency] = revenue
	}
	return summary, translate(rows.Err(), "sale")
}
