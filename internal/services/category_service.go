package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/models"
	"gem-backend/internal/timeutil"
)

type CategoryService struct {
	store CategoryStore
	now   timeutil.Clock
}

func NewCategoryService(store CategoryStore) *CategoryService {
	return &CategoryService{store: store, now: timeutil.Now}
}

// Create stores a category under its upper-cased name.
func (s *CategoryService) Create(ctx context.Context, actor models.Actor, req *models.CreateCategoryRequest) (*models.Category, error) {
	name := strings.ToUpper(strings.Join(strings.Fields(req.Name), " "))
	if name == "" {
		return nil, apperrors.Validation("category name is required")
	}
	if len(name) > 120 {
		return nil, apperrors.Validation("category name must be at most 120 characters")
	}
	code := models.CategoryCode(name)
	if code == "" {
		return nil, apperrors.Validation("category name must contain letters")
	}

	now := s.now()
	c := &models.Category{
		ID:          uuid.New(),
		OwnerID:     actor.OwnerID,
		Name:        name,
		Code:        code,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) List(ctx context.Context, actor models.Actor) ([]*models.Category, error) {
	return s.store.List(ctx, actor.OwnerID)
}

// GetActive returns the category, failing for ones in the recycle bin.
func (s *CategoryService) GetActive(ctx context.Context, ownerID, id uuid.UUID) (*models.Category, error) {
	c, err := s.store.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if c.IsDeleted {
		return nil, apperrors.ReferentialIntegrity("category is in the recycle bin").WithDetail("category_id", id)
	}
	return c, nil
}
