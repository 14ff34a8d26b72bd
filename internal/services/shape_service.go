package services

import (
	"context"

	"github.com/google/uuid"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/models"
)

// ShapeService is the shape master list. Names resolve case-insensitively to
// the first spelling stored for the tenant.
type ShapeService struct {
	store ShapeStore
}

func NewShapeService(store ShapeStore) *ShapeService {
	return &ShapeService{store: store}
}

// Resolve returns the canonical name for name, creating it on first use.
func (s *ShapeService) Resolve(ctx context.Context, ownerID uuid.UUID, name string) (string, error) {
	name = models.NormalizeShapeName(name)
	if name == "" {
		return "", apperrors.Validation("shape name is required")
	}
	if len(name) > 60 {
		return "", apperrors.Validation("shape name must be at most 60 characters")
	}
	shape, err := s.store.GetOrCreate(ctx, ownerID, name)
	if err != nil {
		return "", err
	}
	return shape.Name, nil
}

// List returns the tenant's shapes, seeding the defaults for a new tenant.
func (s *ShapeService) List(ctx context.Context, actor models.Actor) ([]*models.Shape, error) {
	shapes, err := s.store.List(ctx, actor.OwnerID)
	if err != nil {
		return nil, err
	}
	if len(shapes) > 0 {
		return shapes, nil
	}
	if err := s.store.Seed(ctx, actor.OwnerID, models.DefaultShapes); err != nil {
		return nil, err
	}
	return s.store.List(ctx, actor.OwnerID)
}
