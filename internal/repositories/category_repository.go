package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/models"
)

const categoryColumns = `id, owner_id, name, code, description, is_deleted, deleted_at, deleted_by, created_at, updated_at`

type CategoryRepository struct {
	DB *pgxpool.Pool
}

func NewCategoryRepository(db *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{DB: db}
}

func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	return insertCategory(ctx, r.DB, c)
}

// Get returns the category including soft-deleted ones.
func (r *CategoryRepository) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Category, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id=$1 AND owner_id=$2`, id, ownerID)
	c, err := scanCategory(row)
	if err != nil {
		return nil, translate(err, "category")
	}
	return c, nil
}

// List returns the active categories of a tenant, by name.
func (r *CategoryRepository) List(ctx context.Context, ownerID uuid.UUID) ([]*models.Category, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE owner_id=$1 AND NOT is_deleted ORDER BY name`, ownerID)
	if err != nil {
		return nil, translate(err, "category")
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, translate(err, "category")
		}
		categories = append(categories, c)
	}
	return categories, translate(rows.Err(), "category")
}

func insertCategory(ctx context.Context, q querier, c *models.Category) error {
	_, err := q.Exec(ctx,
		`INSERT INTO categories(`+categoryColumns+`)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.OwnerID, c.Name, c.Code, c.Description, c.IsDeleted, c.DeletedAt, c.DeletedBy, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(fmt.Sprintf("category %q already exists", c.Name)).WithDetail("name", c.Name)
		}
		return translate(err, "category")
	}
	return nil
}

// lockActiveCategory share-locks an active category for the rest of tx.
// Category deletes take the row FOR UPDATE, so the two serialize.
func lockActiveCategory(ctx context.Context, tx pgx.Tx, ownerID, id uuid.UUID) error {
	var one int
	err := tx.QueryRow(ctx,
		`SELECT 1 FROM categories WHERE id=$1 AND owner_id=$2 AND NOT is_deleted FOR SHARE`,
		id, ownerID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ReferentialIntegrity("category does not exist or is in the recycle bin").
			WithDetail("category_id", id)
	}
	return translate(err, "category")
}

func scanCategory(row pgx.Row) (*models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Code, &c.Description,
		&c.IsDeleted, &c.DeletedAt, &c.DeletedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
