package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/models"
	"gem-backend/internal/timeutil"
)

var weightUnits = map[string]bool{"carat": true, "gram": true}

type InventoryService struct {
	store       InventoryStore
	categories  *CategoryService
	shapes      *ShapeService
	cache       ItemCache
	events      EventPublisher
	maxAttempts int
	now         timeutil.Clock
}

func NewInventoryService(store InventoryStore, categories *CategoryService, shapes *ShapeService,
	cache ItemCache, events EventPublisher, maxAttempts int) *InventoryService {
	if cache == nil {
		cache = noopCache{}
	}
	if events == nil {
		events = noopPublisher{}
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &InventoryService{
		store:       store,
		categories:  categories,
		shapes:      shapes,
		cache:       cache,
		events:      events,
		maxAttempts: maxAttempts,
		now:         timeutil.Now,
	}
}

// Create validates and stores a new item with every bucket fully available.
func (s *InventoryService) Create(ctx context.Context, actor models.Actor, req *models.CreateInventoryRequest) (*models.InventoryItem, error) {
	serial := strings.TrimSpace(req.SerialNumber)
	if serial == "" {
		return nil, apperrors.Validation("serial number is required")
	}
	if len(serial) > 80 {
		return nil, apperrors.Validation("serial number must be at most 80 characters")
	}
	if req.CategoryID == uuid.Nil {
		return nil, apperrors.Validation("category is required")
	}
	if _, err := s.categories.GetActive(ctx, actor.OwnerID, req.CategoryID); err != nil {
		return nil, err
	}

	unit := strings.ToLower(strings.TrimSpace(req.WeightUnit))
	if unit == "" {
		unit = "carat"
	}
	if !weightUnits[unit] {
		return nil, apperrors.Validation("weight unit must be carat or gram")
	}
	base := req.BaseStatus
	if base == "" {
		base = models.StatusInStock
	}
	if !base.IsBase() {
		return nil, apperrors.Validation("status must be in_stock or pending")
	}

	now := s.now()
	item := &models.InventoryItem{
		ID:            uuid.New(),
		OwnerID:       actor.OwnerID,
		SerialNumber:  serial,
		CategoryID:    req.CategoryID,
		WeightUnit:    unit,
		BaseStatus:    base,
		PurchaseCode:  strings.TrimSpace(req.PurchaseCode),
		SaleCode:      strings.TrimSpace(req.SaleCode),
		Certification: strings.TrimSpace(req.Certification),
		Location:      strings.TrimSpace(req.Location),
		Description:   strings.TrimSpace(req.Description),
		Dimensions:    req.Dimensions,
		Version:       1,
		CreatedBy:     actor.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	switch req.ShapeMode {
	case models.ShapeModeMix:
		if err := s.buildMix(ctx, actor.OwnerID, item, req.Shapes); err != nil {
			return nil, err
		}
	case models.ShapeModeSingle, "":
		if err := s.buildSingle(ctx, actor.OwnerID, item, req); err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.Validation("shape mode must be single or mix")
	}

	item.RefreshStatus()
	if err := item.CheckInvariants(); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, item); err != nil {
		return nil, err
	}

	s.events.Publish(models.Event{Type: models.EventInventoryCreated, OwnerID: item.OwnerID, EntityID: item.ID, At: now})
	return item, nil
}

func (s *InventoryService) buildSingle(ctx context.Context, ownerID uuid.UUID, item *models.InventoryItem, req *models.CreateInventoryRequest) error {
	q := models.Quantity{Pieces: req.Pieces, Weight: req.Weight}
	if err := validateStock(q, "item"); err != nil {
		return err
	}
	item.ShapeMode = models.ShapeModeSingle
	if strings.TrimSpace(req.SingleShape) != "" {
		name, err := s.shapes.Resolve(ctx, ownerID, req.SingleShape)
		if err != nil {
			return err
		}
		item.SingleShape = name
	}
	item.TotalPieces, item.TotalWeight = q.Pieces, q.Weight
	item.AvailablePieces, item.AvailableWeight = q.Pieces, q.Weight
	return nil
}

func (s *InventoryService) buildMix(ctx context.Context, ownerID uuid.UUID, item *models.InventoryItem, inputs []models.ShapeInput) error {
	if len(inputs) == 0 {
		return apperrors.Validation("mix items need at least one shape")
	}
	item.ShapeMode = models.ShapeModeMix
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		name, err := s.shapes.Resolve(ctx, ownerID, in.Name)
		if err != nil {
			return err
		}
		if seen[name] {
			return apperrors.Validation("shape " + name + " is listed twice").WithDetail("shape", name)
		}
		seen[name] = true

		q := models.Quantity{Pieces: in.Pieces, Weight: in.Weight}
		if err := validateStock(q, "shape "+name); err != nil {
			return err
		}
		item.Shapes = append(item.Shapes, models.ShapeBucket{
			Name:            name,
			Pieces:          q.Pieces,
			Weight:          q.Weight,
			AvailablePieces: q.Pieces,
			AvailableWeight: q.Weight,
		})
	}
	item.RecomputeTotals()
	return nil
}

func validateStock(q models.Quantity, label string) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if q.IsZero() {
		return apperrors.Validation(label + " must have pieces or weight")
	}
	if !q.Weight.Equal(q.Weight.Round(4)) {
		return apperrors.Validation(label + " weight supports at most 4 decimals")
	}
	return nil
}

// Get returns an active item, served from the cache when possible.
func (s *InventoryService) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.InventoryItem, error) {
	cached, token, ok := s.cache.GetItem(ctx, actor.OwnerID, id)
	if ok {
		return cached, nil
	}
	item, err := s.store.Get(ctx, actor.OwnerID, id)
	if err != nil {
		return nil, err
	}
	if item.IsDeleted {
		return nil, apperrors.NotFound("inventory item")
	}
	s.cache.SetItem(ctx, item, token)
	return item, nil
}

func (s *InventoryService) List(ctx context.Context, actor models.Actor, f models.InventoryFilter) (models.PagedResult[*models.InventoryItem], error) {
	if f.Status != "" && !isKnownStatus(f.Status) {
		return models.PagedResult[*models.InventoryItem]{}, apperrors.Validation("unknown status filter")
	}
	items, total, err := s.store.List(ctx, actor.OwnerID, f)
	if err != nil {
		return models.PagedResult[*models.InventoryItem]{}, err
	}
	return models.NewPagedResult(items, total, f.Page), nil
}

// SetBaseStatus approves an item or puts it on hold. Sold and partially
// sold items keep their derived status; the base is remembered for undo.
func (s *InventoryService) SetBaseStatus(ctx context.Context, actor models.Actor, id uuid.UUID, status models.Status) (*models.InventoryItem, error) {
	if !status.IsBase() {
		return nil, apperrors.Validation("status must be in_stock or pending")
	}
	for attempt := 1; ; attempt++ {
		item, err := s.store.Get(ctx, actor.OwnerID, id)
		if err != nil {
			return nil, err
		}
		if item.IsDeleted {
			return nil, apperrors.ItemDeleted()
		}
		expected := item.Version
		if err := item.SetBaseStatus(status); err != nil {
			return nil, err
		}
		item.UpdatedAt = s.now()

		err = s.store.UpdateStatus(ctx, item, expected)
		if err == nil {
			s.cache.InvalidateItem(ctx, item.OwnerID, item.ID)
			s.events.Publish(models.Event{Type: models.EventInventoryUpdated, OwnerID: item.OwnerID, EntityID: item.ID, At: item.UpdatedAt})
			return item, nil
		}
		if !apperrors.Is(err, apperrors.KindConcurrentModification) || attempt >= s.maxAttempts {
			return nil, err
		}
	}
}

func isKnownStatus(s models.Status) bool {
	switch s {
	case models.StatusInStock, models.StatusPending, models.StatusPartiallySold, models.StatusSold:
		return true
	}
	return false
}
