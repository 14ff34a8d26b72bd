package models

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gem-backend/internal/apperrors"
)

// InvoiceSequence identifies the counter a sale draws its invoice number from.
// Numbers restart every year per tenant.
type InvoiceSequence struct {
	Key    string
	Prefix string
	Year   int
}

func NewInvoiceSequence(ownerID uuid.UUID, prefix string, year int) InvoiceSequence {
	return InvoiceSequence{
		Key:    fmt.Sprintf("invoice:%s:%d", ownerID, year),
		Prefix: prefix,
		Year:   year,
	}
}

// NewBillSequence numbers the invoice documents that group sales. It is kept
// apart from the per-sale sequence, e.g. ACME-B-2026-00007.
func NewBillSequence(ownerID uuid.UUID, prefix string, year int) InvoiceSequence {
	return InvoiceSequence{
		Key:    fmt.Sprintf("bill:%s:%d", ownerID, year),
		Prefix: prefix + "-B",
		Year:   year,
	}
}

// Format renders the n-th number of the sequence, e.g. ACME-2026-00042.
func (s InvoiceSequence) Format(n int64) string {
	return fmt.Sprintf("%s-%d-%05d", s.Prefix, s.Year, n)
}

// InvoicePrefix derives a prefix from the company name: the first word,
// upper-cased, letters and digits only, at most 10 characters.
func InvoicePrefix(companyName, fallback string) string {
	words := strings.Fields(companyName)
	if len(words) == 0 {
		return fallback
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(words[0]) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
		if b.Len() == 10 {
			break
		}
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}

// MaxInvoiceSales caps how many sales one invoice may group.
const MaxInvoiceSales = 100

type InvoiceStatus string

const (
	InvoiceUnpaid InvoiceStatus = "unpaid"
	InvoicePaid   InvoiceStatus = "paid"
)

// InvoiceItem is one sale billed on an invoice, copied at creation.
type InvoiceItem struct {
	SaleID            uuid.UUID       `json:"sale_id"`
	SaleInvoiceNumber string          `json:"sale_invoice_number"`
	InventoryID       uuid.UUID       `json:"inventory_id"`
	SerialNumber      string          `json:"serial_number,omitempty"`
	Pieces            uint            `json:"pieces"`
	Weight            decimal.Decimal `json:"weight"`
	Amount            decimal.Decimal `json:"amount"`
}

// InvoiceTerms are the fields of an invoice that stay editable until it is
// locked.
type InvoiceTerms struct {
	Customer Customer        `json:"customer"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Notes    string          `json:"notes,omitempty"`
}

// InvoiceRevision records the terms an edit replaced.
type InvoiceRevision struct {
	UpdatedAt time.Time    `json:"updated_at"`
	UpdatedBy uuid.UUID    `json:"updated_by"`
	Previous  InvoiceTerms `json:"previous"`
}

// Invoice groups committed sales of one customer into a billable document.
// Items and the subtotal are fixed at creation; tax follows the terms.
type Invoice struct {
	ID            uuid.UUID         `json:"id"`
	OwnerID       uuid.UUID         `json:"owner_id"`
	InvoiceNumber string            `json:"invoice_number"`
	Currency      string            `json:"currency"`
	Items         []InvoiceItem     `json:"items"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	TaxAmount     decimal.Decimal   `json:"tax_amount"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	Status        InvoiceStatus     `json:"status"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	IsLocked      bool              `json:"is_locked"`
	LockedAt      *time.Time        `json:"locked_at,omitempty"`
	LockedBy      *uuid.UUID        `json:"locked_by,omitempty"`
	Revisions     []InvoiceRevision `json:"revisions"`
	Version       int               `json:"version"`
	CreatedBy     uuid.UUID         `json:"created_by"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	InvoiceTerms
}

// ComputeTotals sums the items and applies the tax rate, in percent, rounded
// to cents.
func (inv *Invoice) ComputeTotals() {
	inv.Subtotal = decimal.Zero
	for _, it := range inv.Items {
		inv.Subtotal = inv.Subtotal.Add(it.Amount)
	}
	inv.TaxAmount = inv.Subtotal.Mul(inv.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
	inv.TotalAmount = inv.Subtotal.Add(inv.TaxAmount)
}

// SaleIDs lists the billed sales in item order.
func (inv *Invoice) SaleIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(inv.Items))
	for _, it := range inv.Items {
		ids = append(ids, it.SaleID)
	}
	return ids
}

// Revise replaces the terms, keeping the old ones in the revision history.
func (inv *Invoice) Revise(terms InvoiceTerms, by uuid.UUID, at time.Time) error {
	if inv.IsLocked {
		return apperrors.Conflict("invoice is locked and cannot be edited")
	}
	inv.Revisions = append(inv.Revisions, InvoiceRevision{UpdatedAt: at, UpdatedBy: by, Previous: inv.InvoiceTerms})
	inv.InvoiceTerms = terms
	inv.UpdatedAt = at
	inv.ComputeTotals()
	return nil
}

// Lock freezes the terms. Payment can still be recorded.
func (inv *Invoice) Lock(by uuid.UUID, at time.Time) error {
	if inv.IsLocked {
		return apperrors.Conflict("invoice is already locked")
	}
	inv.IsLocked = true
	inv.LockedAt = &at
	inv.LockedBy = &by
	inv.UpdatedAt = at
	return nil
}

func (inv *Invoice) MarkPaid(at time.Time) error {
	if inv.Status == InvoicePaid {
		return apperrors.Conflict("invoice is already paid")
	}
	inv.Status = InvoicePaid
	inv.PaidAt = &at
	inv.UpdatedAt = at
	return nil
}

// ValidateTaxRate accepts percentages from 0 to 100 with up to 3 decimals.
func ValidateTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return apperrors.Validation("tax rate must be between 0 and 100").WithDetail("tax_rate", rate.String())
	}
	if !rate.Equal(rate.Round(3)) {
		return apperrors.Validation("tax rate supports at most 3 decimals").WithDetail("tax_rate", rate.String())
	}
	return nil
}

// CreateInvoiceRequest is the body of POST /api/invoices. Customer defaults
// to the customer of the sales; TaxRate to the configured rate.
type CreateInvoiceRequest struct {
	SaleIDs  []uuid.UUID      `json:"sale_ids"`
	Customer *Customer        `json:"customer,omitempty"`
	TaxRate  *decimal.Decimal `json:"tax_rate,omitempty"`
	Notes    string           `json:"notes,omitempty"`
}

// UpdateInvoiceRequest changes only the fields that are present.
type UpdateInvoiceRequest struct {
	Customer *Customer        `json:"customer,omitempty"`
	TaxRate  *decimal.Decimal `json:"tax_rate,omitempty"`
	Notes    *string          `json:"notes,omitempty"`
}

type InvoiceFilter struct {
	Status InvoiceStatus
	Page
}
