package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"gem-backend/internal/models"
)

type ShapeRepository struct {
	DB *pgxpool.Pool
}

func NewShapeRepository(db *pgxpool.Pool) *ShapeRepository {
	return &ShapeRepository{DB: db}
}

// GetOrCreate resolves name case-insensitively, creating it on first use,
// and bumps its usage count. The stored spelling wins.
func (r *ShapeRepository) GetOrCreate(ctx context.Context, ownerID uuid.UUID, name string) (*models.Shape, error) {
	var s models.Shape
	err := r.DB.QueryRow(ctx,
		`INSERT INTO shapes(id, owner_id, name, usage_count, created_at)
		 VALUES($1, $2, $3, 1, $4)
		 ON CONFLICT (owner_id, (LOWER(name))) WHERE NOT is_deleted
		 DO UPDATE SET usage_count = shapes.usage_count + 1
		 RETURNING id, owner_id, name, usage_count, created_at`,
		uuid.New(), ownerID, name, time.Now(),
	).Scan(&s.ID, &s.OwnerID, &s.Name, &s.UsageCount, &s.CreatedAt)
	if err != nil {
		return nil, translate(err, "shape")
	}
	return &s, nil
}

// Seed inserts names that are not present yet, without touching usage.
func (r *ShapeRepository) Seed(ctx context.Context, ownerID uuid.UUID, names []string) error {
	for _, name := range names {
		_, err := r.DB.Exec(ctx,
			`INSERT INTO shapes(id, owner_id, name, usage_count, created_at)
			 VALUES($1, $2, $3, 0, NOW())
			 ON CONFLICT (owner_id, (LOWER(name))) WHERE NOT is_deleted DO NOTHING`,
			uuid.New(), ownerID, name)
		if err != nil {
			return translate(err, "shape")
		}
	}
	return nil
}

// List returns the tenant's shapes, most used first.
func (r *ShapeRepository) List(ctx context.Context, ownerID uuid.UUID) ([]*models.Shape, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, owner_id, name, usage_count, created_at FROM shapes
		 WHERE owner_id=$1 AND NOT is_deleted ORDER BY usage_count DESC, name`, ownerID)
	if err != nil {
		return nil, translate(err, "shape")
	}
	defer rows.Close()

	var shapes []*models.Shape
	for rows.Next() {
		var s models.Shape
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.UsageCount, &s.CreatedAt); err != nil {
			return nil, translate(err, "shape")
		}
		shapes = append(shapes, &s)
	}
	return shapes, translate(rows.Err(), "shape")
}
