package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/models"
)

const recycleBinColumns = `id, owner_id, entity_type, entity_id, entity_data, deleted_by, deleted_at, expires_at`

type RecycleBinRepository struct {
	DB *pgxpool.Pool
}

func NewRecycleBinRepository(db *pgxpool.Pool) *RecycleBinRepository {
	return &RecycleBinRepository{DB: db}
}

// SoftDeleteInventory flags the item deleted and stores its snapshot. The
// snapshot in entry must have been taken before item was marked.
func (r *RecycleBinRepository) SoftDeleteInventory(ctx context.Context, item *models.InventoryItem,
	expectedVersion int, entry *models.RecycleBinEntry) error {
	return withTx(ctx, r.DB, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE inventory_items SET is_deleted=true, deleted_at=$1, deleted_by=$2, version=version+1, updated_at=NOW()
			 WHERE id=$3 AND owner_id=$4 AND version=$5 AND NOT is_deleted`,
			item.DeletedAt, item.DeletedBy, item.ID, item.OwnerID, expectedVersion)
		if err != nil {
			return translate(err, "inventory item")
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ConcurrentModification()
		}
		item.Version = expectedVersion + 1
		return insertEntry(ctx, tx, entry)
	})
}

// SoftDeleteCategory flags the category deleted unless an active item still
// references it. The category row lock serializes with item creation.
func (r *RecycleBinRepository) SoftDeleteCategory(ctx context.Context, c *models.Category, entry *models.RecycleBinEntry) error {
	return withTx(ctx, r.DB, func(tx pgx.Tx) error {
		var deleted bool
		err := tx.QueryRow(ctx,
			`SELECT is_deleted FROM categories WHERE id=$1 AND owner_id=$2 FOR UPDATE`,
			c.ID, c.OwnerID).Scan(&deleted)
		if err != nil {
			return translate(err, "category")
		}
		if deleted {
			return apperrors.Conflict("category is already in the recycle bin")
		}

		var refs int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM inventory_items WHERE owner_id=$1 AND category_id=$2 AND NOT is_deleted`,
			c.OwnerID, c.ID).Scan(&refs); err != nil {
			return translate(err, "inventory item")
		}
		if refs > 0 {
			return apperrors.ReferentialIntegrity(
				fmt.Sprintf("category is used by %d active inventory item(s)", refs)).
				WithDetail("inventory_count", refs)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE categories SET is_deleted=true, deleted_at=$1, deleted_by=$2, updated_at=NOW()
			 WHERE id=$3 AND owner_id=$4`,
			c.DeletedAt, c.DeletedBy, c.ID, c.OwnerID); err != nil {
			return translate(err, "category")
		}
		return insertEntry(ctx, tx, entry)
	})
}

func (r *RecycleBinRepository) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.RecycleBinEntry, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+recycleBinColumns+` FROM recycle_bin_entries WHERE id=$1 AND owner_id=$2`, id, ownerID)
	e, err := scanEntry(row)
	if err != nil {
		return nil, translate(err, "recycle bin entry")
	}
	return e, nil
}

// List returns a page of entries, most recently deleted first.
func (r *RecycleBinRepository) List(ctx context.Context, ownerID uuid.UUID, f models.RecycleBinFilter) ([]*models.RecycleBinEntry, int, error) {
	clause := "owner_id=$1"
	args := []any{ownerID}
	if f.EntityType != "" {
		args = append(args, string(f.EntityType))
		clause += " AND entity_type=$2"
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM recycle_bin_entries WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "recycle bin entry")
	}

	page := f.Page.Normalize()
	args = append(args, page.Limit, f.Page.Offset())
	entries, err := r.query(ctx,
		fmt.Sprintf(`SELECT `+recycleBinColumns+` FROM recycle_bin_entries WHERE %s
			ORDER BY deleted_at DESC LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args)),
		args...)
	return entries, total, err
}

// ListAll returns every entry of a tenant.
func (r *RecycleBinRepository) ListAll(ctx context.Context, ownerID uuid.UUID) ([]*models.RecycleBinEntry, error) {
	return r.query(ctx,
		`SELECT `+recycleBinColumns+` FROM recycle_bin_entries WHERE owner_id=$1 ORDER BY deleted_at`, ownerID)
}

// ListExpired returns up to limit entries across tenants whose retention
// ended at or before now.
func (r *RecycleBinRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.RecycleBinEntry, error) {
	return r.query(ctx,
		`SELECT `+recycleBinColumns+` FROM recycle_bin_entries WHERE expires_at <= $1 ORDER BY expires_at LIMIT $2`,
		now, limit)
}

// RestoreInventory brings the item back. An existing row keeps its live
// quantities and only loses the deleted flags; a missing row is recreated
// from the snapshot.
func (r *RecycleBinRepository) RestoreInventory(ctx context.Context, entry *models.RecycleBinEntry, snapshot *models.InventoryItem) error {
	return withTx(ctx, r.DB, func(tx pgx.Tx) error {
		if err := lockActiveCategory(ctx, tx, entry.OwnerID, snapshot.CategoryID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx,
			`UPDATE inventory_items SET is_deleted=false, deleted_at=NULL, deleted_by=NULL, version=version+1, updated_at=NOW()
			 WHERE id=$1 AND owner_id=$2`,
			entry.EntityID, entry.OwnerID)
		if err != nil {
			if isUniqueViolation(err) {
				return serialInUse(snapshot.SerialNumber)
			}
			return translate(err, "inventory item")
		}
		if tag.RowsAffected() == 0 {
			snapshot.ClearDeleted()
			snapshot.Version++
			snapshot.UpdatedAt = time.Now()
			if err := insertItem(ctx, tx, snapshot); err != nil {
				if apperrors.Is(err, apperrors.KindConflict) {
					return serialInUse(snapshot.SerialNumber)
				}
				return err
			}
		}
		return deleteEntry(ctx, tx, entry)
	})
}

// RestoreCategory brings the category back, recreating it from the
// snapshot if the row is gone.
func (r *RecycleBinRepository) RestoreCategory(ctx context.Context, entry *models.RecycleBinEntry, snapshot *models.Category) error {
	return withTx(ctx, r.DB, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE categories SET is_deleted=false, deleted_at=NULL, deleted_by=NULL, updated_at=NOW()
			 WHERE id=$1 AND owner_id=$2`,
			entry.EntityID, entry.OwnerID)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.Conflict(fmt.Sprintf("category %q already exists", snapshot.Name))
			}
			return translate(err, "category")
		}
		if tag.RowsAffected() == 0 {
			snapshot.ClearDeleted()
			snapshot.UpdatedAt = time.Now()
			if err := insertCategory(ctx, tx, snapshot); err != nil {
				return err
			}
		}
		return deleteEntry(ctx, tx, entry)
	})
}

// Purge removes the entry and the soft-deleted row behind it for good.
// Sales referencing a purged item are kept.
func (r *RecycleBinRepository) Purge(ctx context.Context, entry *models.RecycleBinEntry) error {
	return withTx(ctx, r.DB, func(tx pgx.Tx) error {
		if err := deleteEntry(ctx, tx, entry); err != nil {
			return err
		}
		table := "inventory_items"
		if entry.EntityType == models.EntityCategory {
			table = "categories"
		}
		_, err := tx.Exec(ctx,
			`DELETE FROM `+table+` WHERE id=$1 AND owner_id=$2 AND is_deleted`,
			entry.EntityID, entry.OwnerID)
		return translate(err, string(entry.EntityType))
	})
}

func (r *RecycleBinRepository) query(ctx context.Context, sql string, args ...any) ([]*models.RecycleBinEntry, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate(err, "recycle bin entry")
	}
	defer rows.Close()

	var entries []*models.RecycleBinEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, translate(err, "recycle bin entry")
		}
		entries = append(entries, e)
	}
	return entries, translate(rows.Err(), "recycle bin entry")
}

func insertEntry(ctx context.Context, q querier, e *models.RecycleBinEntry) error {
	_, err := q.Exec(ctx,
		`INSERT INTO recycle_bin_entries(`+recycleBinColumns+`) VALUES($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.OwnerID, string(e.EntityType), e.EntityID, []byte(e.EntityData), e.DeletedBy, e.DeletedAt, e.ExpiresAt)
	return translate(err, "recycle bin entry")
}

// deleteEntry fails with not_found when a concurrent restore or purge
// already consumed the entry.
func deleteEntry(ctx context.Context, q querier, e *models.RecycleBinEntry) error {
	tag, err := q.Exec(ctx, `DELETE FROM recycle_bin_entries WHERE id=$1 AND owner_id=$2`, e.ID, e.OwnerID)
	if err != nil {
		return translate(err, "recycle bin entry")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("recycle bin entry")
	}
	return nil
}

func scanEntry(row pgx.Row) (*models.RecycleBinEntry, error) {
	var (
		e          models.RecycleBinEntry
		entityType string
		data       []byte
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &entityType, &e.EntityID, &data, &e.DeletedBy, &e.DeletedAt, &e.ExpiresAt); err != nil {
		return nil, err
	}
	e.EntityType = models.EntityType(entityType)
	e.EntityData = data
	return &e, nil
}

func serialInUse(serial string) error {
	return apperrors.Conflict(fmt.Sprintf("serial number %q was reused while the item was deleted", serial)).
		WithDetail("serial_number", serial)
}
