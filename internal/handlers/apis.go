package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/middleware"
	"gem-backend/internal/models"
	"gem-backend/pkg/utils"
)

// Service contracts used by the handlers. The services package implements
// them; handler tests mock them.

type InventoryAPI interface {
	Create(ctx context.Context, actor models.Actor, req *models.CreateInventoryRequest) (*models.InventoryItem, error)
	Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.InventoryItem, error)
	List(ctx context.Context, actor models.Actor, f models.InventoryFilter) (models.PagedResult[*models.InventoryItem], error)
	SetBaseStatus(ctx context.Context, actor models.Actor, id uuid.UUID, status models.Status) (*models.InventoryItem, error)
}

type SaleAPI interface {
	Sell(ctx context.Context, actor models.Actor, req *models.CreateSaleRequest) (*models.Sale, error)
	SellFullItem(ctx context.Context, actor models.Actor, req *models.FullSaleRequest) (*models.Sale, error)
	Undo(ctx context.Context, actor models.Actor, saleID uuid.UUID, reason string) (*models.Sale, error)
	Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Sale, error)
	List(ctx context.Context, actor models.Actor, f models.SaleFilter) (models.PagedResult[*models.Sale], error)
}

type InvoiceAPI interface {
	Create(ctx context.Context, actor models.Actor, req *models.CreateInvoiceRequest) (*models.Invoice, error)
	Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, actor models.Actor, f models.InvoiceFilter) (models.PagedResult[*models.Invoice], error)
	Update(ctx context.Context, actor models.Actor, id uuid.UUID, req *models.UpdateInvoiceRequest) (*models.Invoice, error)
	Lock(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Invoice, error)
	MarkPaid(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Invoice, error)
}

type DashboardAPI interface {
	Stats(ctx context.Context, actor models.Actor) (*models.DashboardStats, error)
}

type RecycleBinAPI interface {
	DeleteItem(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.RecycleBinEntry, error)
	DeleteCategory(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.RecycleBinEntry, error)
	List(ctx context.Context, actor models.Actor, f models.RecycleBinFilter) (models.PagedResult[*models.RecycleBinEntry], error)
	Restore(ctx context.Context, actor models.Actor, ids []uuid.UUID) (*models.RecycleBinResult, error)
	Purge(ctx context.Context, actor models.Actor, ids []uuid.UUID) (*models.RecycleBinResult, error)
	Empty(ctx context.Context, actor models.Actor) (*models.RecycleBinResult, error)
}

type CategoryAPI interface {
	Create(ctx context.Context, actor models.Actor, req *models.CreateCategoryRequest) (*models.Category, error)
	List(ctx context.Context, actor models.Actor) ([]*models.Category, error)
}

type ShapeAPI interface {
	List(ctx context.Context, actor models.Actor) ([]*models.Shape, error)
}

type UserAPI interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	CreateUser(ctx context.Context, actor models.Actor, req *models.CreateUserRequest) (*models.User, error)
	ListUsers(ctx context.Context, actor models.Actor) ([]*models.User, error)
	SetActive(ctx context.Context, actor models.Actor, userID uuid.UUID, active bool) error
}

type AuditAPI interface {
	List(ctx context.Context, actor models.Actor, page models.Page) (models.PagedResult[*models.AuditLog], error)
}

// actorFrom returns the authenticated caller, writing 401 when absent.
func actorFrom(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		utils.Error(w, r, apperrors.New(apperrors.KindUnauthorized, "authentication required"))
	}
	return actor, ok
}

func pathID(w http.ResponseWriter, r *http.Request, vars map[string]string) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(vars["id"], "id")
	if err != nil {
		utils.Error(w, r, err)
		return uuid.Nil, false
	}
	return id, true
}
