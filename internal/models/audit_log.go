package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	AuditSellItem        = "SELL_ITEM"
	AuditCreateSale      = "CREATE_SALE"
	AuditUndoSale        = "UNDO_SALE"
	AuditDeleteInventory = "DELETE_INVENTORY"
	AuditDeleteCategory  = "DELETE_CATEGORY"
	AuditRestore         = "RESTORE"
	AuditPurge           = "PURGE"
	AuditCreateInvoice   = "CREATE_INVOICE"
	AuditUpdateInvoice   = "UPDATE_INVOICE"
	AuditLockInvoice     = "LOCK_INVOICE"
	AuditPayInvoice      = "PAY_INVOICE"
)

type AuditLog struct {
	ID          uuid.UUID       `json:"id"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	Action      string          `json:"action"`
	EntityType  string          `json:"entity_type"`
	EntityID    uuid.UUID       `json:"entity_id"`
	PerformedBy uuid.UUID       `json:"performed_by"`
	Meta        json.RawMessage `json:"meta,omitempty"`
	IPAddress   string          `json:"ip_address,omitempty"`
	UserAgent   string          `json:"user_agent,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AuditMeta is the before/after payload stored with an audit entry.
type AuditMeta struct {
	Before interface{} `json:"before,omitempty"`
	After  interface{} `json:"after,omitempty"`
	Note   string      `json:"note,omitempty"`
}
