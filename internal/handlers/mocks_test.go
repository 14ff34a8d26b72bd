package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"gem-backend/internal/models"
)

type MockSaleAPI struct{ mock.Mock }

func (m *MockSaleAPI) Sell(ctx context.Context, actor models.Actor, req *models.CreateSaleRequest) (*models.Sale, error) {
	args := m.Called(ctx, actor, req)
	sale, _ := args.Get(0).(*models.Sale)
	return sale, args.Error(1)
}

func (m *MockSaleAPI) SellFullItem(ctx context.Context, actor models.Actor, req *models.FullSaleRequest) (*models.Sale, error) {
	args := m.Called(ctx, actor, req)
	sale, _ := args.Get(0).(*models.Sale)
	return sale, args.Error(1)
}

func (m *MockSaleAPI) Undo(ctx context.Context, actor models.Actor, saleID uuid.UUID, reason string) (*models.Sale, error) {
	args := m.Called(ctx, actor, saleID, reason)
	sale, _ := args.Get(0).(*models.Sale)
	return sale, args.Error(1)
}

func (m *MockSaleAPI) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Sale, error) {
	args := m.Called(ctx, actor, id)
	sale, _ := args.Get(0).(*models.Sale)
	return sale, args.Error(1)
}

func (m *MockSaleAPI) List(ctx context.Context, actor models.Actor, f models.SaleFilter) (models.PagedResult[*models.Sale], error) {
	args := m.Called(ctx, actor, f)
	return args.Get(0).(models.PagedResult[*models.Sale]), args.Error(1)
}

type MockInventoryAPI struct{ mock.Mock }

func (m *MockInventoryAPI) Create(ctx context.Context, actor models.Actor, req *models.CreateInventoryRequest) (*models.InventoryItem, error) {
	args := m.Called(ctx, actor, req)
	item, _ := args.Get(0).(*models.InventoryItem)
	return item, args.Error(1)
}

func (m *MockInventoryAPI) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.InventoryItem, error) {
	args := m.Called(ctx, actor, id)
	item, _ := args.Get(0).(*models.InventoryItem)
	return item, args.Error(1)
}

func (m *MockInventoryAPI) List(ctx context.Context, actor models.Actor, f models.InventoryFilter) (models.PagedResult[*models.InventoryItem], error) {
	args := m.Called(ctx, actor, f)
	return args.Get(0).(models.PagedResult[*models.InventoryItem]), args.Error(1)
}

func (m *MockInventoryAPI) SetBaseStatus(ctx context.Context, actor models.Actor, id uuid.UUID, status models.Status) (*models.InventoryItem, error) {
	args := m.Called(ctx, actor, id, status)
	item, _ := args.Get(0).(*models.InventoryItem)
	return item, args.Error(1)
}

type MockRecycleBinAPI struct{ mock.Mock }

func (m *MockRecycleBinAPI) DeleteItem(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.RecycleBinEntry, error) {
	args := m.Called(ctx, actor, id)
	entry, _ := args.Get(0).(*models.RecycleBinEntry)
	return entry, args.Error(1)
}

func (m *MockRecycleBinAPI) DeleteCategory(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.RecycleBinEntry, error) {
	args := m.Called(ctx, actor, id)
	entry, _ := args.Get(0).(*models.RecycleBinEntry)
	return entry, args.Error(1)
}

func (m *MockRecycleBinAPI) List(ctx context.Context, actor models.Actor, f models.RecycleBinFilter) (models.PagedResult[*models.RecycleBinEntry], error) {
	args := m.Called(ctx, actor, f)
	return args.Get(0).(models.PagedResult[*models.RecycleBinEntry]), args.Error(1)
}

func (m *MockRecycleBinAPI) Restore(ctx context.Context, actor models.Actor, ids []uuid.UUID) (*models.RecycleBinResult, error) {
	args := m.Called(ctx, actor, ids)
	res, _ := args.Get(0).(*models.RecycleBinResult)
	return res, args.Error(1)
}

func (m *MockRecycleBinAPI) Purge(ctx context.Context, actor models.Actor, ids []uuid.UUID) (*models.RecycleBinResult, error) {
	args := m.Called(ctx, actor, ids)
	res, _ := args.Get(0).(*models.RecycleBinResult)
	return res, args.Error(1)
}

func (m *MockRecycleBinAPI) Empty(ctx context.Context, actor models.Actor) (*models.RecycleBinResult, error) {
	args := m.Called(ctx, actor)
	res, _ := args.Get(0).(*models.RecycleBinResult)
	return res, args.Error(1)
}

type MockUserAPI struct{ mock.Mock }

func (m *MockUserAPI) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.AuthResponse)
	return resp, args.Error(1)
}

func (m *MockUserAPI) CreateUser(ctx context.Context, actor models.Actor, req *models.CreateUserRequest) (*models.User, error) {
	args := m.Called(ctx, actor, req)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *MockUserAPI) ListUsers(ctx context.Context, actor models.Actor) ([]*models.User, error) {
	args := m.Called(ctx, actor)
	users, _ := args.Get(0).([]*models.User)
	return users, args.Error(1)
}

func (m *MockUserAPI) SetActive(ctx context.Context, actor models.Actor, userID uuid.UUID, active bool) error {
	return m.Called(ctx, actor, userID, active).Error(0)
}

type MockInvoiceAPI struct{ mock.Mock }

func (m *MockInvoiceAPI) Create(ctx context.Context, actor models.Actor, req *models.CreateInvoiceRequest) (*models.Invoice, error) {
	args := m.Called(ctx, actor, req)
	inv, _ := args.Get(0).(*models.Invoice)
	return inv, args.Error(1)
}

func (m *MockInvoiceAPI) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, actor, id)
	inv, _ := args.Get(0).(*models.Invoice)
	return inv, args.Error(1)
}

func (m *MockInvoiceAPI) List(ctx context.Context, actor models.Actor, f models.InvoiceFilter) (models.PagedResult[*models.Invoice], error) {
	args := m.Called(ctx, actor, f)
	return args.Get(0).(models.PagedResult[*models.Invoice]), args.Error(1)
}

func (m *MockInvoiceAPI) Update(ctx context.Context, actor models.Actor, id uuid.UUID, req *models.UpdateInvoiceRequest) (*models.Invoice, error) {
	args := m.Called(ctx, actor, id, req)
	inv, _ := args.Get(0).(*models.Invoice)
	return inv, args.Error(1)
}

func (m *MockInvoiceAPI) Lock(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, actor, id)
	inv, _ := args.Get(0).(*models.Invoice)
	return inv, args.Error(1)
}

func (m *MockInvoiceAPI) MarkPaid(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Invoice, error) {
	args := m.Called(ctx, actor, id)
	inv, _ := args.Get(0).(*models.Invoice)
	return inv, args.Error(1)
}

type MockDashboardAPI struct{ mock.Mock }

func (m *MockDashboardAPI) Stats(ctx context.Context, actor models.Actor) (*models.DashboardStats, error) {
	args := m.Called(ctx, actor)
	stats, _ := args.Get(0).(*models.DashboardStats)
	return stats, args.Error(1)
}
