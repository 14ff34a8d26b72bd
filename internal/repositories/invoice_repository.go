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

const invoiceColumns = `id, owner_id, invoice_number, currency, items, customer, tax_rate, notes,
	subtotal, tax_amount, total_amount, status, paid_at, is_locked, locked_at, locked_by,
	revisions, version, created_by, created_at, updated_at`

type InvoiceRepository struct {
	DB *pgxpool.Pool
}

func NewInvoiceRepository(db *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{DB: db}
}

// Create stores the invoice and claims its sales. The number is drawn in the
// same transaction; a sale already on another invoice rolls everything back.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice, seq models.InvoiceSequence) error {
	return withTx(ctx, r.DB, func(tx pgx.Tx) error {
		n, err := nextCounterValue(ctx, tx, seq.Key)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = seq.Format(n)

		if err := insertInvoice(ctx, tx, inv); err != nil {
			return err
		}
		for _, saleID := range inv.SaleIDs() {
			_, err := tx.Exec(ctx,
				`INSERT INTO invoice_sales(sale_id, invoice_id, owner_id) VALUES($1, $2, $3)`,
				saleID, inv.ID, inv.OwnerID)
			if err != nil {
				if isUniqueViolation(err) {
					return apperrors.Conflict("sale is already on an invoice").WithDetail("sale_id", saleID)
				}
				return translate(err, "invoice")
			}
		}
		return nil
	})
}

func (r *InvoiceRepository) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Invoice, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1 AND owner_id=$2`, id, ownerID)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, translate(err, "invoice")
	}
	return inv, nil
}

// List returns a page of invoices, newest first.
func (r *InvoiceRepository) List(ctx context.Context, ownerID uuid.UUID, f models.InvoiceFilter) ([]*models.Invoice, int, error) {
	clause := "owner_id=$1"
	args := []any{ownerID}
	if f.Status != "" {
		args = append(args, string(f.Status))
		clause += fmt.Sprintf(" AND status=$%d", len(args))
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "invoice")
	}

	page := f.Page.Normalize()
	args = append(args, page.Limit, f.Page.Offset())
	rows, err := r.DB.Query(ctx,
		fmt.Sprintf(`SELECT `+invoiceColumns+` FROM invoices WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			clause, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, translate(err, "invoice")
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, translate(err, "invoice")
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, translate(rows.Err(), "invoice")
}

// Update writes the mutable fields guarded by expectedVersion.
func (r *InvoiceRepository) Update(ctx context.Context, inv *models.Invoice, expectedVersion int) error {
	customer, err := json.Marshal(inv.Customer)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode customer")
	}
	revisions, err := json.Marshal(nonNilRevisions(inv.Revisions))
	if err != nil {
		return apperrors.Wrap(err, "failed to encode invoice revisions")
	}

	tag, err := r.DB.Exec(ctx,
		`UPDATE invoices SET customer=$1, tax_rate=$2, notes=$3, tax_amount=$4, total_amount=$5,
		 status=$6, paid_at=$7, is_locked=$8, locked_at=$9, locked_by=$10, revisions=$11,
		 updated_at=$12, version=version+1
		 WHERE id=$13 AND owner_id=$14 AND version=$15`,
		customer, inv.TaxRate, inv.Notes, inv.TaxAmount, inv.TotalAmount,
		string(inv.Status), inv.PaidAt, inv.IsLocked, inv.LockedAt, inv.LockedBy, revisions,
		inv.UpdatedAt, inv.ID, inv.OwnerID, expectedVersion)
	if err != nil {
		return translate(err, "invoice")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ConcurrentModification()
	}
	inv.Version = expectedVersion + 1
	return nil
}

func insertInvoice(ctx context.Context, q querier, inv *models.Invoice) error {
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode invoice items")
	}
	customer, err := json.Marshal(inv.Customer)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode customer")
	}
	revisions, err := json.Marshal(nonNilRevisions(inv.Revisions))
	if err != nil {
		return apperrors.Wrap(err, "failed to encode invoice revisions")
	}

	_, err = q.Exec(ctx,
		`INSERT INTO invoices(`+invoiceColumns+`)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		inv.ID, inv.OwnerID, inv.InvoiceNumber, inv.Currency, items, customer, inv.TaxRate, inv.Notes,
		inv.Subtotal, inv.TaxAmount, inv.TotalAmount, string(inv.Status), inv.PaidAt, inv.IsLocked, inv.LockedAt, inv.LockedBy,
		revisions, inv.Version, inv.CreatedBy, inv.CreatedAt, inv.UpdatedAt)
	return translate(err, "invoice")
}

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var (
		inv                           models.Invoice
		status                        string
		items, customer, revisionsRaw []byte
	)
	err := row.Scan(&inv.ID, &inv.OwnerID, &inv.InvoiceNumber, &inv.Currency, &items, &customer, &inv.TaxRate, &inv.Notes,
		&inv.Subtotal, &inv.TaxAmount, &inv.TotalAmount, &status, &inv.PaidAt, &inv.IsLocked, &inv.LockedAt, &inv.LockedBy,
		&revisionsRaw, &inv.Version, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	inv.Status = models.InvoiceStatus(status)
	if err := json.Unmarshal(items, &inv.Items); err != nil {
		return nil, fmt.Errorf("decode invoice items: %w", err)
	}
	if len(customer) > 0 {
		if err := json.Unmarshal(customer, &inv.Customer); err != nil {
			return nil, fmt.Errorf("decode customer: %w", err)
		}
	}
	if err := json.Unmarshal(revisionsRaw, &inv.Revisions); err != nil {
		return nil, fmt.Errorf("decode invoice revisions: %w", err)
	}
	return &inv, nil
}

func nonNilRevisions(r []models.InvoiceRevision) []models.InvoiceRevision {
	if r == nil {
		return []models.InvoiceRevision{}
	}
	return r
}
