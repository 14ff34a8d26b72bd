package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/models"
)

const saleColumns = `id, owner_id, inventory_id, serial_number, sale_type, lines, total_pieces, total_weight,
	total_amount, currency, customer, invoice_number, sold_by, sold_at, cancelled, cancelled_at,
	cancelled_by, cancel_reason, created_at`

type SaleRepository struct {
	DB *pgxpool.Pool
}

func NewSaleRepository(db *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{DB: db}
}

// CommitSale writes the decremented item and the sale as one unit. The item
// update is guarded by expectedVersion; the invoice number is drawn inside
// the same transaction so a rolled-back sale consumes no number.
func (r *SaleRepository) CommitSale(ctx context.Context, item *models.InventoryItem, expectedVersion int,
	sale *models.Sale, seq models.InvoiceSequence) error {
	err := withTx(ctx, r.DB, func(tx pgx.Tx) error {
		if err := updateLedger(ctx, tx, item, expectedVersion, true); err != nil {
			return err
		}

		active, err := hasActiveFullSale(ctx, tx, sale.OwnerID, sale.InventoryID)
		if err != nil {
			return err
		}
		if active {
			return apperrors.AlreadySold("item has already been sold as a whole")
		}

		n, err := nextCounterValue(ctx, tx, seq.Key)
		if err != nil {
			return err
		}
		sale.InvoiceNumber = seq.Format(n)

		return insertSale(ctx, tx, sale)
	})
	if err != nil {
		// the in-memory version bump is only valid if the tx committed
		item.Version = expectedVersion
	}
	return err
}

// CommitUndo marks the sale cancelled and writes the restored item as one
// unit. A sale that is already cancelled fails with already_cancelled.
func (r *SaleRepository) CommitUndo(ctx context.Context, sale *models.Sale, item *models.InventoryItem, expectedVersion int) error {
	err := withTx(ctx, r.DB, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE sales SET cancelled=true, cancelled_at=$1, cancelled_by=$2, cancel_reason=$3
			 WHERE id=$4 AND owner_id=$5 AND NOT cancelled`,
			sale.CancelledAt, sale.CancelledBy, sale.CancelReason, sale.ID, sale.OwnerID)
		if err != nil {
			return translate(err, "sale")
		}
		if tag.RowsAffected() == 0 {
			return apperrors.AlreadyCancelled()
		}
		// soft-deleted items still take the restore
		return updateLedger(ctx, tx, item, expectedVersion, false)
	})
	if err != nil {
		item.Version = expectedVersion
	}
	return err
}

func (r *SaleRepository) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Sale, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id=$1 AND owner_id=$2`, id, ownerID)
	s, err := scanSale(row)
	if err != nil {
		return nil, translate(err, "sale")
	}
	return s, nil
}

// List returns a page of sales, newest first.
func (r *SaleRepository) List(ctx context.Context, ownerID uuid.UUID, f models.SaleFilter) ([]*models.Sale, int, error) {
	clause := "owner_id=$1"
	args := []any{ownerID}
	if f.InventoryID != nil {
		args = append(args, *f.InventoryID)
		clause += fmt.Sprintf(" AND inventory_id=$%d", len(args))
	}
	if !f.IncludeCancelled {
		clause += " AND NOT cancelled"
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "sale")
	}

	page := f.Page.Normalize()
	args = append(args, page.Limit, f.Page.Offset())
	rows, err := r.DB.Query(ctx,
		fmt.Sprintf(`SELECT `+saleColumns+` FROM sales WHERE %s ORDER BY sold_at DESC LIMIT $%d OFFSET $%d`,
			clause, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, translate(err, "sale")
	}
	defer rows.Close()

	var sales []*models.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, 0, translate(err, "sale")
		}
		sales = append(sales, s)
	}
	return sales, total, translate(rows.Err(), "sale")
}

// HasActiveFullSale reports whether an uncancelled full-item sale references
// the item.
func (r *SaleRepository) HasActiveFullSale(ctx context.Context, ownerID, inventoryID uuid.UUID) (bool, error) {
	return hasActiveFullSale(ctx, r.DB, ownerID, inventoryID)
}

func hasActiveFullSale(ctx context.Context, q querier, ownerID, inventoryID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM sales
		 WHERE owner_id=$1 AND inventory_id=$2 AND sale_type='full' AND NOT cancelled)`,
		ownerID, inventoryID).Scan(&exists)
	if err != nil {
		return false, translate(err, "sale")
	}
	return exists, nil
}

func insertSale(ctx context.Context, q querier, s *models.Sale) error {
	lines, err := json.Marshal(s.Lines)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode sale lines")
	}
	customer, err := json.Marshal(s.Customer)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode customer")
	}

	_, err = q.Exec(ctx,
		`INSERT INTO sales(`+saleColumns+`)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		s.ID, s.OwnerID, s.InventoryID, s.SerialNumber, string(s.SaleType), lines, s.TotalPieces, s.TotalWeight,
		s.TotalAmount, s.Currency, customer, s.InvoiceNumber, s.SoldBy, s.SoldAt, s.Cancelled, s.CancelledAt,
		s.CancelledBy, s.CancelReason, s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) && constraintName(err) == "uq_sales_active_full" {
			return apperrors.AlreadySold("item has already been sold as a whole")
		}
		return translate(err, "sale")
	}
	return nil
}

func scanSale(row pgx.Row) (*models.Sale, error) {
	var (
		s                   models.Sale
		saleType            string
		lines, customerJSON []byte
	)
	err := row.Scan(&s.ID, &s.OwnerID, &s.InventoryID, &s.SerialNumber, &saleType, &lines, &s.TotalPieces, &s.TotalWeight,
		&s.TotalAmount, &s.Currency, &customerJSON, &s.InvoiceNumber, &s.SoldBy, &s.SoldAt, &s.Cancelled, &s.CancelledAt,
		&s.CancelledBy, &s.CancelReason, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.SaleType = models.SaleType(saleType)
	if err := json.Unmarshal(lines, &s.Lines); err != nil {
		return nil, fmt.Errorf("decode sale lines: %w", err)
	}
	if len(customerJSON) > 0 {
		if err := json.Unmarshal(customerJSON, &s.Customer); err != nil {
			return nil, fmt.Errorf("decode customer: %w", err)
		}
	}
	return &s, nil
}
