package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/models"
)

func TestCreateMixItem(t *testing.T) {
	f := newFixture(t, nil)
	item := f.createMix(t, "  MX-200 ", shape("round", 5, "2.5"), shape(" Pear  Cut ", 2, "0.75"))

	assert.Equal(t, "MX-200", item.SerialNumber)
	assert.Equal(t, models.ShapeModeMix, item.ShapeMode)
	assert.Equal(t, "carat", item.WeightUnit)
	assert.Equal(t, models.StatusInStock, item.Status)
	assert.Equal(t, 1, item.Version)
	require.Len(t, item.Shapes, 2)
	assert.Equal(t, "round", item.Shapes[0].Name)
	assert.Equal(t, "Pear Cut", item.Shapes[1].Name)
	assert.Equal(t, uint(7), item.AvailablePieces)
	assertDecimal(t, "3.25", item.TotalWeight)
	assert.Contains(t, f.events.types(), models.EventInventoryCreated)

	// later spellings resolve to the first one stored
	other := f.createMix(t, "MX-201", shape("ROUND", 1, "0.5"))
	assert.Equal(t, "round", other.Shapes[0].Name)
}

func TestCreateItemValidation(t *testing.T) {
	f := newFixture(t, nil)
	base := func() *models.CreateInventoryRequest {
		return &models.CreateInventoryRequest{
			SerialNumber: "SP-200",
			CategoryID:   f.category.ID,
			Pieces:       1,
			Weight:       dec("0.5"),
		}
	}

	tests := []struct {
		name   string
		mutate func(*models.CreateInventoryRequest)
		kind   apperrors.Kind
	}{
		{"missing serial", func(r *models.CreateInventoryRequest) { r.SerialNumber = " " }, apperrors.KindValidation},
		{"missing category", func(r *models.CreateInventoryRequest) { r.CategoryID = uuid.Nil }, apperrors.KindValidation},
		{"unknown category", func(r *models.CreateInventoryRequest) { r.CategoryID = uuid.New() }, apperrors.KindNotFound},
		{"bad unit", func(r *models.CreateInventoryRequest) { r.WeightUnit = "pound" }, apperrors.KindValidation},
		{"bad status", func(r *models.CreateInventoryRequest) { r.BaseStatus = models.StatusSold }, apperrors.KindValidation},
		{"bad mode", func(r *models.CreateInventoryRequest) { r.ShapeMode = "bulk" }, apperrors.KindValidation},
		{"empty stock", func(r *models.CreateInventoryRequest) { r.Pieces, r.Weight = 0, dec("0") }, apperrors.KindValidation},
		{"negative weight", func(r *models.CreateInventoryRequest) { r.Weight = dec("-0.5") }, apperrors.KindValidation},
		{"too precise", func(r *models.CreateInventoryRequest) { r.Weight = dec("0.12345") }, apperrors.KindValidation},
		{"mix without shapes", func(r *models.CreateInventoryRequest) { r.ShapeMode = models.ShapeModeMix }, apperrors.KindValidation},
		{"duplicate shape", func(r *models.CreateInventoryRequest) {
			r.ShapeMode = models.ShapeModeMix
			r.Shapes = []models.ShapeInput{shape("Oval", 1, "0.5"), shape("oval", 1, "0.5")}
		}, apperrors.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(req)
			_, err := f.inventory.Create(f.ctx, f.staff, req)
			assertKind(t, tt.kind, err)
		})
	}
}

func TestCreateItemDuplicateSerial(t *testing.T) {
	f := newFixture(t, nil)
	f.createSingle(t, "SP-201", 1, "0.5")

	_, err := f.inventory.Create(f.ctx, f.staff, &models.CreateInventoryRequest{
		SerialNumber: "SP-201",
		CategoryID:   f.category.ID,
		Pieces:       2,
		Weight:       dec("1"),
	})
	assertKind(t, apperrors.KindConflict, err)
}

func TestSetBaseStatus(t *testing.T) {
	f := newFixture(t, nil)
	item := f.createSingle(t, "SP-202", 4, "2.0")

	got, err := f.inventory.SetBaseStatus(f.ctx, f.staff, item.ID, models.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, 2, got.Version)

	_, err = f.sales.Sell(f.ctx, f.staff, &models.CreateSaleRequest{
		InventoryID: item.ID,
		Lines:       []models.SaleLineRequest{saleLine("", 1, "0.5")},
	})
	require.NoError(t, err)

	got, err = f.inventory.SetBaseStatus(f.ctx, f.staff, item.ID, models.StatusInStock)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartiallySold, got.Status)
	assert.Equal(t, models.StatusInStock, got.BaseStatus)

	_, err = f.inventory.SetBaseStatus(f.ctx, f.staff, item.ID, models.StatusSold)
	assertKind(t, apperrors.KindValidation, err)
}

func TestListInventory(t *testing.T) {
	f := newFixture(t, nil)
	f.createSingle(t, "RUBY-1", 1, "0.5")
	f.createSingle(t, "RUBY-2", 1, "0.5")
	f.createSingle(t, "OPAL-1", 1, "0.5")

	res, err := f.inventory.List(f.ctx, f.staff, models.InventoryFilter{Search: "ruby"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, models.DefaultPageLimit, res.Limit)

	res, err = f.inventory.List(f.ctx, f.staff, models.InventoryFilter{Page: models.Page{Page: 2, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Len(t, res.Items, 1)

	_, err = f.inventory.List(f.ctx, f.staff, models.InventoryFilter{Status: "lost"})
	assertKind(t, apperrors.KindValidation, err)
}

func TestInventoryIsTenantScoped(t *testing.T) {
	f := newFixture(t, nil)
	item := f.createSingle(t, "SP-203", 1, "0.5")

	stranger := models.Actor{UserID: uuid.New(), OwnerID: uuid.New(), Role: models.RoleAdmin}
	_, err := f.inventory.Get(f.ctx, stranger, item.ID)
	assertKind(t, apperrors.KindNotFound, err)

	_, err = f.sales.Sell(f.ctx, stranger, &models.CreateSaleRequest{
		InventoryID: item.ID,
		Lines:       []models.SaleLineRequest{saleLine("", 1, "0.1")},
	})
	assertKind(t, apperrors.KindNotFound, err)
}

func TestCategoryCreate(t *testing.T) {
	f := newFixture(t, nil)
	c, err := f.categories.Create(f.ctx, f.admin, &models.CreateCategoryRequest{Name: "  blue   spinel "})
	require.NoError(t, err)
	assert.Equal(t, "BLUE SPINEL", c.Name)
	assert.Equal(t, "BL", c.Code)

	_, err = f.categories.Create(f.ctx, f.admin, &models.CreateCategoryRequest{Name: "Blue Spinel"})
	assertKind(t, apperrors.KindConflict, err)

	_, err = f.categories.Create(f.ctx, f.admin, &models.CreateCategoryRequest{Name: "123"})
	assertKind(t, apperrors.KindValidation, err)
}

func TestShapeListSeedsDefaults(t *testing.T) {
	f := newFixture(t, nil)
	shapes, err := f.shapes.List(f.ctx, f.staff)
	require.NoError(t, err)
	assert.Len(t, shapes, len(models.DefaultShapes))

	_, err = f.shapes.Resolve(f.ctx, f.staff.OwnerID, "   ")
	assertKind(t, apperrors.KindValidation, err)

	name, err := f.shapes.Resolve(f.ctx, f.staff.OwnerID, "oval")
	require.NoError(t, err)
	assert.Equal(t, "Oval", name)
}

// genCache mirrors the redis cache: invalidation bumps a per-item
// generation and fills carrying an older token are dropped.
type genCache struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.InventoryItem
	gens  map[uuid.UUID]int64
}

func newGenCache() *genCache {
	return &genCache{items: make(map[uuid.UUID]*models.InventoryItem), gens: make(map[uuid.UUID]int64)}
}

func (c *genCache) GetItem(_ context.Context, _, id uuid.UUID) (*models.InventoryItem, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if it, ok := c.items[id]; ok {
		return cloneItem(it), c.gens[id], true
	}
	return nil, c.gens[id], false
}

func (c *genCache) SetItem(_ context.Context, item *models.InventoryItem, token int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token < 0 || c.gens[item.ID] != token {
		return
	}
	c.items[item.ID] = cloneItem(item)
}

func (c *genCache) InvalidateItem(_ context.Context, _, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	c.gens[id]++
}

// slowReadItems runs afterRead once, between loading a row and returning it.
type slowReadItems struct {
	memItems
	afterRead func()
}

func (s *slowReadItems) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.InventoryItem, error) {
	item, err := s.memItems.Get(ctx, ownerID, id)
	if s.afterRead != nil {
		hook := s.afterRead
		s.afterRead = nil
		hook()
	}
	return item, err
}

func TestGetDoesNotCacheCopyReadBeforeSale(t *testing.T) {
	f := newFixture(t, nil)
	item := f.createSingle(t, "SP-CACHE", 10, "5.0")

	cache := newGenCache()
	store := &slowReadItems{memItems: memItems{f.db}}
	inventory := NewInventoryService(store, f.categories, f.shapes, cache, f.events, 3)
	sales := NewSaleService(memItems{f.db}, memSales{f.db}, cache, f.events, f.audit, SaleServiceConfig{InvoicePrefix: "ACME"})

	store.afterRead = func() {
		_, err := sales.Sell(f.ctx, f.staff, &models.CreateSaleRequest{
			InventoryID: item.ID,
			Lines:       []models.SaleLineRequest{saleLine("", 6, "3.0")},
		})
		require.NoError(t, err)
	}

	stale, err := inventory.Get(f.ctx, f.staff, item.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(10), stale.AvailablePieces)

	got, err := inventory.Get(f.ctx, f.staff, item.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(4), got.AvailablePieces)
	assertDecimal(t, "2.0", got.AvailableWeight)
	assert.Equal(t, models.StatusPartiallySold, got.Status)

	// the fresh read is cached and served on the next call
	_, _, cached := cache.GetItem(f.ctx, f.admin.OwnerID, item.ID)
	assert.True(t, cached)
}
