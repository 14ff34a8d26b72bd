package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventSaleCreated       = "sale.created"
	EventSaleCancelled     = "sale.cancelled"
	EventInventoryCreated  = "inventory.created"
	EventInventoryUpdated  = "inventory.updated"
	EventInventoryDeleted  = "inventory.deleted"
	EventInventoryRestored = "inventory.restored"
	EventCategoryDeleted   = "category.deleted"
	EventCategoryRestored  = "category.restored"
	EventRecycleBinPurged  = "recycle_bin.purged"
	EventInvoiceCreated    = "invoice.created"
	EventInvoiceUpdated    = "invoice.updated"
)

// Event is pushed to the live clients of one tenant.
type Event struct {
	Type     string      `json:"type"`
	OwnerID  uuid.UUID   `json:"owner_id"`
	EntityID uuid.UUID   `json:"entity_id"`
	At       time.Time   `json:"at"`
	Data     interface{} `json:"data,omitempty"`
}
