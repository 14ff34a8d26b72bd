package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/models"
)

const inventoryColumns = `id, owner_id, serial_number, category_id, shape_mode, single_shape, shapes,
	total_pieces, total_weight, available_pieces, available_weight, weight_unit,
	base_status, status, purchase_code, sale_code, certification, location, description,
	dimensions, version, is_deleted, deleted_at, deleted_by, created_by, created_at, updated_at`

// updateLedgerSQL writes the quantity ledger of an item, guarded by the
// version the caller read.
const updateLedgerSQL = `UPDATE inventory_items
	SET shapes=$1, total_pieces=$2, total_weight=$3, available_pieces=$4, available_weight=$5,
	    base_status=$6, status=$7, version=version+1, updated_at=NOW()
	WHERE id=$8 AND owner_id=$9 AND version=$10`

type InventoryRepository struct {
	DB *pgxpool.Pool
}

func NewInventoryRepository(db *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{DB: db}
}

// Create inserts a new item. The category row is share-locked so a
// concurrent category delete cannot miss the new reference.
func (r *InventoryRepository) Create(ctx context.Context, item *models.InventoryItem) error {
	return withTx(ctx, r.DB, func(tx pgx.Tx) error {
		if err := lockActiveCategory(ctx, tx, item.OwnerID, item.CategoryID); err != nil {
			return err
		}
		return insertItem(ctx, tx, item)
	})
}

// Get returns the item including soft-deleted ones.
func (r *InventoryRepository) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.InventoryItem, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+inventoryColumns+` FROM inventory_items WHERE id=$1 AND owner_id=$2`, id, ownerID)
	item, err := scanItem(row)
	if err != nil {
		return nil, translate(err, "inventory item")
	}
	return item, nil
}

// List returns a page of items and the total matching count.
func (r *InventoryRepository) List(ctx context.Context, ownerID uuid.UUID, f models.InventoryFilter) ([]*models.InventoryItem, int, error) {
	where := []string{"owner_id=$1"}
	args := []any{ownerID}

	if !f.IncludeDeleted {
		where = append(where, "NOT is_deleted")
	}
	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		where = append(where, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("serial_number ILIKE $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_items WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "inventory item")
	}

	page := f.Page.Normalize()
	args = append(args, page.Limit, f.Page.Offset())
	rows, err := r.DB.Query(ctx,
		fmt.Sprintf(`SELECT `+inventoryColumns+` FROM inventory_items WHERE %s
			ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, translate(err, "inventory item")
	}
	defer rows.Close()

	var items []*models.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, translate(err, "inventory item")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate(err, "inventory item")
	}
	return items, total, nil
}

// UpdateStatus persists a base status change made on an active item.
func (r *InventoryRepository) UpdateStatus(ctx context.Context, item *models.InventoryItem, expectedVersion int) error {
	return withTx(ctx, r.DB, func(tx pgx.Tx) error {
		return updateLedger(ctx, tx, item, expectedVersion, true)
	})
}

// updateLedger writes item's quantities and statuses. Zero affected rows
// means another writer got there first.
func updateLedger(ctx context.Context, q querier, item *models.InventoryItem, expectedVersion int, activeOnly bool) error {
	shapes, err := json.Marshal(nonNilShapes(item.Shapes))
	if err != nil {
		return apperrors.Wrap(err, "failed to encode shapes")
	}
	sql := updateLedgerSQL
	if activeOnly {
		sql += " AND NOT is_deleted"
	}
	tag, err := q.Exec(ctx, sql,
		shapes, item.TotalPieces, item.TotalWeight, item.AvailablePieces, item.AvailableWeight,
		string(item.BaseStatus), string(item.Status),
		item.ID, item.OwnerID, expectedVersion)
	if err != nil {
		return translate(err, "inventory item")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ConcurrentModification()
	}
	item.Version = expectedVersion + 1
	return nil
}

func insertItem(ctx context.Context, q querier, item *models.InventoryItem) error {
	shapes, err := json.Marshal(nonNilShapes(item.Shapes))
	if err != nil {
		return apperrors.Wrap(err, "failed to encode shapes")
	}
	var dims []byte
	if item.Dimensions != nil {
		if dims, err = json.Marshal(item.Dimensions); err != nil {
			return apperrors.Wrap(err, "failed to encode dimensions")
		}
	}

	_, err = q.Exec(ctx,
		`INSERT INTO inventory_items(`+inventoryColumns+`)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
		        $20, $21, $22, $23, $24, $25, $26, $27)`,
		item.ID, item.OwnerID, item.SerialNumber, item.CategoryID, string(item.ShapeMode), item.SingleShape, shapes,
		item.TotalPieces, item.TotalWeight, item.AvailablePieces, item.AvailableWeight, item.WeightUnit,
		string(item.BaseStatus), string(item.Status), item.PurchaseCode, item.SaleCode, item.Certification,
		item.Location, item.Description, dims, item.Version, item.IsDeleted, item.DeletedAt, item.DeletedBy,
		item.CreatedBy, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) && constraintName(err) == "uq_inventory_owner_serial" {
			return apperrors.Conflict(fmt.Sprintf("serial number %q is already in use", item.SerialNumber)).
				WithDetail("serial_number", item.SerialNumber)
		}
		return translate(err, "inventory item")
	}
	return nil
}

func scanItem(row pgx.Row) (*models.InventoryItem, error) {
	var (
		item              models.InventoryItem
		shapeMode         string
		baseStatus        string
		status            string
		shapesRaw, dimRaw []byte
	)
	err := row.Scan(&item.ID, &item.OwnerID, &item.SerialNumber, &item.CategoryID, &shapeMode, &item.SingleShape, &shapesRaw,
		&item.TotalPieces, &item.TotalWeight, &item.AvailablePieces, &item.AvailableWeight, &item.WeightUnit,
		&baseStatus, &status, &item.PurchaseCode, &item.SaleCode, &item.Certification, &item.Location, &item.Description,
		&dimRaw, &item.Version, &item.IsDeleted, &item.DeletedAt, &item.DeletedBy, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.ShapeMode = models.ShapeMode(shapeMode)
	item.BaseStatus = models.Status(baseStatus)
	item.Status = models.Status(status)

	if len(shapesRaw) > 0 {
		if err := json.Unmarshal(shapesRaw, &item.Shapes); err != nil {
			return nil, fmt.Errorf("decode shapes: %w", err)
		}
	}
	if len(dimRaw) > 0 {
		item.Dimensions = &models.Dimensions{}
		if err := json.Unmarshal(dimRaw, item.Dimensions); err != nil {
			return nil, fmt.Errorf("decode dimensions: %w", err)
		}
	}
	return &item, nil
}

func nonNilShapes(s []models.ShapeBucket) []models.ShapeBucket {
	if s == nil {
		return []models.ShapeBucket{}
	}
	return s
}
