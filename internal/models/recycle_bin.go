package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EntityType string

const (
	EntityInventory EntityType = "inventory"
	EntityCategory  EntityType = "category"
	// EntityInvoice only appears in the audit trail.
	EntityInvoice EntityType = "invoice"
)

// Valid reports whether t can be put in the recycle bin.
func (t EntityType) Valid() bool {
	return t == EntityInventory || t == EntityCategory
}

// RecycleBinEntry holds the pre-delete snapshot of a soft-deleted entity.
type RecycleBinEntry struct {
	ID         uuid.UUID       `json:"id"`
	OwnerID    uuid.UUID       `json:"owner_id"`
	EntityType EntityType      `json:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id"`
	EntityData json.RawMessage `json:"entity_data"`
	DeletedBy  uuid.UUID       `json:"deleted_by"`
	DeletedAt  time.Time       `json:"deleted_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

func (e *RecycleBinEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// InventorySnapshot decodes the stored item.
func (e *RecycleBinEntry) InventorySnapshot() (*InventoryItem, error) {
	var item InventoryItem
	if err := json.Unmarshal(e.EntityData, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CategorySnapshot decodes the stored category.
func (e *RecycleBinEntry) CategorySnapshot() (*Category, error) {
	var c Category
	if err := json.Unmarshal(e.EntityData, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

type RecycleBinFilter struct {
	EntityType EntityType
	Page
}

// RecycleBinIDsRequest is the body of restore and purge calls.
type RecycleBinIDsRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// RecycleBinResult reports per-entry outcomes of a batch call.
type RecycleBinResult struct {
	Succeeded []uuid.UUID         `json:"succeeded"`
	Failed    []RecycleBinFailure `json:"failed,omitempty"`
}

type RecycleBinFailure struct {
	ID      uuid.UUID `json:"id"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
}
