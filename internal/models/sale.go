package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gem-backend/internal/apperrors"
)

type SaleType string

const (
	SaleTypeLine SaleType = "line"
	SaleTypeFull SaleType = "full"
)

var SupportedCurrencies = map[string]bool{"USD": true, "EUR": true, "GBP": true, "INR": true}

// SaleLine is one shape's share of a sale, frozen at commit time.
type SaleLine struct {
	Shape        string           `json:"shape,omitempty"`
	Pieces       uint             `json:"pieces"`
	Weight       decimal.Decimal  `json:"weight"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit,omitempty"`
	LineTotal    decimal.Decimal  `json:"line_total"`
}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Sale is the immutable record of a committed sale. Only the cancellation
// fields change after creation.
type Sale struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	InventoryID   uuid.UUID       `json:"inventory_id"`
	SerialNumber  string          `json:"serial_number,omitempty"`
	SaleType      SaleType        `json:"sale_type"`
	Lines         []SaleLine      `json:"lines"`
	TotalPieces   uint            `json:"total_pieces"`
	TotalWeight   decimal.Decimal `json:"total_weight"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	Customer      Customer        `json:"customer"`
	InvoiceNumber string          `json:"invoice_number"`
	SoldBy        uuid.UUID       `json:"sold_by"`
	SoldAt        time.Time       `json:"sold_at"`
	Cancelled     bool            `json:"cancelled"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty"`
	CancelledBy   *uuid.UUID      `json:"cancelled_by,omitempty"`
	CancelReason  string          `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ComputeTotals fills line totals and the sale sums from the lines.
func (s *Sale) ComputeTotals() {
	s.TotalPieces = 0
	s.TotalWeight = decimal.Zero
	s.TotalAmount = decimal.Zero
	for i := range s.Lines {
		l := &s.Lines[i]
		l.LineTotal = decimal.Zero
		if l.PricePerUnit != nil {
			l.LineTotal = l.Weight.Mul(*l.PricePerUnit).Round(2)
		}
		s.TotalPieces += l.Pieces
		s.TotalWeight = s.TotalWeight.Add(l.Weight)
		s.TotalAmount = s.TotalAmount.Add(l.LineTotal)
	}
}

// Quantities returns the snapshot amounts to decrement or restore.
func (s *Sale) Quantities() []ShapeQuantity {
	out := make([]ShapeQuantity, 0, len(s.Lines))
	for _, l := range s.Lines {
		out = append(out, ShapeQuantity{Shape: l.Shape, Quantity: Quantity{Pieces: l.Pieces, Weight: l.Weight}})
	}
	return out
}

// Cancel marks the sale undone. A sale is cancelled at most once.
func (s *Sale) Cancel(actor uuid.UUID, reason string, at time.Time) error {
	if s.Cancelled {
		return apperrors.AlreadyCancelled()
	}
	s.Cancelled = true
	s.CancelledAt = &at
	s.CancelledBy = &actor
	s.CancelReason = reason
	return nil
}

type SaleLineRequest struct {
	Shape        string           `json:"shape,omitempty"`
	Pieces       uint             `json:"pieces"`
	Weight       decimal.Decimal  `json:"weight"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit,omitempty"`
}

// CreateSaleRequest is the body of POST /api/sales.
type CreateSaleRequest struct {
	InventoryID uuid.UUID         `json:"inventory_id"`
	Lines       []SaleLineRequest `json:"lines"`
	Currency    string            `json:"currency,omitempty"`
	Customer    Customer          `json:"customer"`
}

// FullSaleRequest sells everything left on an item as one unit.
type FullSaleRequest struct {
	InventoryID  uuid.UUID        `json:"inventory_id"`
	PricePerUnit *decimal.Decimal `json:"price_per_unit,omitempty"`
	Currency     string           `json:"currency,omitempty"`
	Customer     Customer         `json:"customer"`
}

type UndoSaleRequest struct {
	Reason string `json:"reason"`
}

type SaleFilter struct {
	InventoryID      *uuid.UUID
	IncludeCancelled bool
	Page
}
