package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func price(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func assertKind(t *testing.T, kind apperrors.Kind, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperrors.KindOf(err), "error: %v", err)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(ev models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type mockArchiver struct{ mock.Mock }

func (m *mockArchiver) Archive(ctx context.Context, entry *models.RecycleBinEntry) error {
	return m.Called(ctx, entry).Error(0)
}

type fixture struct {
	ctx        context.Context
	db         *memDB
	admin      models.Actor
	staff      models.Actor
	events     *recordingPublisher
	categories *CategoryService
	shapes     *ShapeService
	inventory  *InventoryService
	sales      *SaleService
	bin        *RecycleBinService
	invoices   *InvoiceService
	dashboard  *DashboardService
	audit      *AuditService
	category   *models.Category
}

// newFixture wires every service over one in-memory database and creates a
// category to put items in. archiver may be nil.
func newFixture(t *testing.T, archiver Archiver) *fixture {
	t.Helper()
	db := newMemDB()
	owner := uuid.New()
	f := &fixture{
		ctx:    context.Background(),
		db:     db,
		admin:  models.Actor{UserID: owner, OwnerID: owner, Role: models.RoleAdmin},
		staff:  models.Actor{UserID: uuid.New(), OwnerID: owner, Role: models.RoleStaff},
		events: &recordingPublisher{},
	}
	f.audit = NewAuditService(memAudit{db})
	f.categories = NewCategoryService(memCategories{db})
	f.shapes = NewShapeService(memShapes{db})
	f.inventory = NewInventoryService(memItems{db}, f.categories, f.shapes, nil, f.events, 3)
	f.sales = NewSaleService(memItems{db}, memSales{db}, nil, f.events, f.audit, SaleServiceConfig{InvoicePrefix: "ACME"})
	f.bin = NewRecycleBinService(memBin{db}, memItems{db}, memCategories{db}, nil, f.events, f.audit, archiver, RecycleBinConfig{})
	f.invoices = NewInvoiceService(memInvoices{db}, memSales{db}, f.events, f.audit, InvoiceServiceConfig{InvoicePrefix: "ACME"})
	f.dashboard = NewDashboardService(memDashboard{db}, memSales{db}, memInvoices{db})

	c, err := f.categories.Create(f.ctx, f.admin, &models.CreateCategoryRequest{Name: "sapphire"})
	require.NoError(t, err)
	f.category = c
	return f
}

func (f *fixture) createSingle(t *testing.T, serial string, pieces uint, weight string) *models.InventoryItem {
	t.Helper()
	item, err := f.inventory.Create(f.ctx, f.staff, &models.CreateInventoryRequest{
		SerialNumber: serial,
		CategoryID:   f.category.ID,
		ShapeMode:    models.ShapeModeSingle,
		SingleShape:  "Round",
		Pieces:       pieces,
		Weight:       dec(weight),
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) createMix(t *testing.T, serial string, shapes ...models.ShapeInput) *models.InventoryItem {
	t.Helper()
	item, err := f.inventory.Create(f.ctx, f.staff, &models.CreateInventoryRequest{
		SerialNumber: serial,
		CategoryID:   f.category.ID,
		ShapeMode:    models.ShapeModeMix,
		Shapes:       shapes,
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.InventoryItem {
	t.Helper()
	item, err := memItems{f.db}.Get(f.ctx, f.admin.OwnerID, id)
	require.NoError(t, err)
	return item
}

func shape(name string, pieces uint, weight string) models.ShapeInput {
	return models.ShapeInput{Name: name, Pieces: pieces, Weight: dec(weight)}
}

func saleLine(shape string, pieces uint, weight string) models.SaleLineRequest {
	return models.SaleLineRequest{Shape: shape, Pieces: pieces, Weight: dec(weight)}
}
