package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gem-backend/internal/models"
)

// Persistence contracts. The pgx repositories implement them; tests use an
// in-memory store with the same version semantics.

type InventoryStore interface {
	Create(ctx context.Context, item *models.InventoryItem) error
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.InventoryItem, error)
	List(ctx context.Context, ownerID uuid.UUID, f models.InventoryFilter) ([]*models.InventoryItem, int, error)
	UpdateStatus(ctx context.Context, item *models.InventoryItem, expectedVersion int) error
}

type SaleStore interface {
	CommitSale(ctx context.Context, item *models.InventoryItem, expectedVersion int, sale *models.Sale, seq models.InvoiceSequence) error
	CommitUndo(ctx context.Context, sale *models.Sale, item *models.InventoryItem, expectedVersion int) error
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Sale, error)
	List(ctx context.Context, ownerID uuid.UUID, f models.SaleFilter) ([]*models.Sale, int, error)
	HasActiveFullSale(ctx context.Context, ownerID, inventoryID uuid.UUID) (bool, error)
}

type InvoiceStore interface {
	Create(ctx context.Context, inv *models.Invoice, seq models.InvoiceSequence) error
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, ownerID uuid.UUID, f models.InvoiceFilter) ([]*models.Invoice, int, error)
	Update(ctx context.Context, inv *models.Invoice, expectedVersion int) error
}

type DashboardStore interface {
	StockRows(ctx context.Context, ownerID uuid.UUID) ([]models.StockRow, error)
	SalesSummary(ctx context.Context, ownerID uuid.UUID) (models.SalesSummary, error)
}

type CategoryStore interface {
	Create(ctx context.Context, c *models.Category) error
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Category, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]*models.Category, error)
}

type ShapeStore interface {
	GetOrCreate(ctx context.Context, ownerID uuid.UUID, name string) (*models.Shape, error)
	Seed(ctx context.Context, ownerID uuid.UUID, names []string) error
	List(ctx context.Context, ownerID uuid.UUID) ([]*models.Shape, error)
}

type RecycleBinStore interface {
	SoftDeleteInventory(ctx context.Context, item *models.InventoryItem, expectedVersion int, entry *models.RecycleBinEntry) error
	SoftDeleteCategory(ctx context.Context, c *models.Category, entry *models.RecycleBinEntry) error
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.RecycleBinEntry, error)
	List(ctx context.Context, ownerID uuid.UUID, f models.RecycleBinFilter) ([]*models.RecycleBinEntry, int, error)
	ListAll(ctx context.Context, ownerID uuid.UUID) ([]*models.RecycleBinEntry, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.RecycleBinEntry, error)
	RestoreInventory(ctx context.Context, entry *models.RecycleBinEntry, snapshot *models.InventoryItem) error
	RestoreCategory(ctx context.Context, entry *models.RecycleBinEntry, snapshot *models.Category) error
	Purge(ctx context.Context, entry *models.RecycleBinEntry) error
}

type AuditStore interface {
	Create(ctx context.Context, l *models.AuditLog) error
	List(ctx context.Context, ownerID uuid.UUID, page models.Page) ([]*models.AuditLog, int, error)
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.User, error)
	SetActive(ctx context.Context, ownerID, userID uuid.UUID, isActive bool) error
}

// ItemCache is a best-effort read cache. Implementations never fail.
// GetItem returns a fill token on a miss; SetItem drops the write when the
// item was invalidated after that token was issued.
type ItemCache interface {
	GetItem(ctx context.Context, ownerID, id uuid.UUID) (*models.InventoryItem, int64, bool)
	SetItem(ctx context.Context, item *models.InventoryItem, token int64)
	InvalidateItem(ctx context.Context, ownerID, id uuid.UUID)
}

// EventPublisher fans events out to live clients.
type EventPublisher interface {
	Publish(ev models.Event)
}

// Archiver keeps a copy of snapshots before they are purged.
type Archiver interface {
	Archive(ctx context.Context, entry *models.RecycleBinEntry) error
}

type noopCache struct{}

func (noopCache) GetItem(context.Context, uuid.UUID, uuid.UUID) (*models.InventoryItem, int64, bool) {
	return nil, -1, false
}

func (noopCache) SetItem(context.Context, *models.InventoryItem, int64) {}

func (noopCache) InvalidateItem(context.Context, uuid.UUID, uuid.UUID) {}

type noopPublisher struct{}

func (noopPublisher) Publish(models.Event) {}
