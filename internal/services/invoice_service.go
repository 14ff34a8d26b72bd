package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/logger"
	"gem-backend/internal/metrics"
	"gem-backend/internal/models"
	"gem-backend/internal/timeutil"
)

// InvoiceService bills committed sales. An invoice copies its sales at
// creation; later edits only touch the customer, tax rate and notes, and
// stop once the invoice is locked.
type InvoiceService struct {
	invoices InvoiceStore
	sales    SaleStore
	events   EventPublisher
	audit    *AuditService
	prefix   string
	taxRate  decimal.Decimal
	now      timeutil.Clock
	log      *zap.Logger
}

type InvoiceServiceConfig struct {
	InvoicePrefix  string
	DefaultTaxRate decimal.Decimal
}

func NewInvoiceService(invoices InvoiceStore, sales SaleStore, events EventPublisher,
	audit *AuditService, cfg InvoiceServiceConfig) *InvoiceService {
	if events == nil {
		events = noopPublisher{}
	}
	if cfg.InvoicePrefix == "" {
		cfg.InvoicePrefix = "INV"
	}
	return &InvoiceService{
		invoices: invoices,
		sales:    sales,
		events:   events,
		audit:    audit,
		prefix:   cfg.InvoicePrefix,
		taxRate:  cfg.DefaultTaxRate,
		now:      timeutil.Now,
		log:      logger.Log.Named("invoice"),
	}
}

// Create bills the given sales of one customer and currency. Cancelled
// sales and sales already on an invoice are rejected.
func (s *InvoiceService) Create(ctx context.Context, actor models.Actor, req *models.CreateInvoiceRequest) (*models.Invoice, error) {
	ids := uniqueIDs(req.SaleIDs)
	if len(ids) == 0 {
		return nil, apperrors.Validation("sale_ids must not be empty")
	}
	if len(ids) > models.MaxInvoiceSales {
		return nil, apperrors.Validation("too many sales on one invoice").WithDetail("max", models.MaxInvoiceSales)
	}
	rate := s.taxRate
	if req.TaxRate != nil {
		rate = *req.TaxRate
	}
	if err := models.ValidateTaxRate(rate); err != nil {
		return nil, err
	}

	now := s.now()
	inv := &models.Invoice{
		ID:           uuid.New(),
		OwnerID:      actor.OwnerID,
		Items:        make([]models.InvoiceItem, 0, len(ids)),
		Status:       models.InvoiceUnpaid,
		Version:      1,
		CreatedBy:    actor.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
		InvoiceTerms: models.InvoiceTerms{TaxRate: rate, Notes: strings.TrimSpace(req.Notes)},
	}

	var buyer *models.Customer
	for _, id := range ids {
		sale, err := s.sales.Get(ctx, actor.OwnerID, id)
		if err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				return nil, apperrors.NotFound("sale").WithDetail("sale_id", id)
			}
			return nil, err
		}
		if sale.Cancelled {
			return nil, apperrors.Validation("cancelled sales cannot be invoiced").WithDetail("sale_id", id)
		}
		if inv.Currency == "" {
			inv.Currency = sale.Currency
		} else if sale.Currency != inv.Currency {
			return nil, apperrors.Validation("sales on one invoice must share a currency").WithDetail("sale_id", id)
		}
		if buyer == nil {
			c := sale.Customer
			buyer = &c
		} else if !sameCustomer(*buyer, sale.Customer) {
			return nil, apperrors.Validation("sales on one invoice must belong to the same customer").WithDetail("sale_id", id)
		}
		inv.Items = append(inv.Items, models.InvoiceItem{
			SaleID:            sale.ID,
			SaleInvoiceNumber: sale.InvoiceNumber,
			InventoryID:       sale.InventoryID,
			SerialNumber:      sale.SerialNumber,
			Pieces:            sale.TotalPieces,
			Weight:            sale.TotalWeight,
			Amount:            sale.TotalAmount,
		})
	}
	inv.Customer = *buyer
	if req.Customer != nil {
		inv.Customer = trimCustomer(*req.Customer)
	}
	inv.ComputeTotals()

	seq := models.NewBillSequence(actor.OwnerID, s.prefix, timeutil.Local(now).Year())
	if err := s.invoices.Create(ctx, inv, seq); err != nil {
		return nil, err
	}

	metrics.InvoiceOpsTotal.WithLabelValues("create").Inc()
	s.audit.Record(ctx, actor, models.AuditCreateInvoice, models.EntityInvoice, inv.ID, models.AuditMeta{
		After: invoiceView(inv),
		Note:  "invoice " + inv.InvoiceNumber,
	})
	s.events.Publish(models.Event{Type: models.EventInvoiceCreated, OwnerID: actor.OwnerID, EntityID: inv.ID, At: now, Data: inv})
	logger.FromContext(ctx).Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice", inv.InvoiceNumber),
		zap.Int("sales", len(inv.Items)))
	return inv, nil
}

func (s *InvoiceService) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Invoice, error) {
	return s.invoices.Get(ctx, actor.OwnerID, id)
}

func (s *InvoiceService) List(ctx context.Context, actor models.Actor, f models.InvoiceFilter) (models.PagedResult[*models.Invoice], error) {
	if f.Status != "" && f.Status != models.InvoicePaid && f.Status != models.InvoiceUnpaid {
		return models.PagedResult[*models.Invoice]{}, apperrors.Validation("unknown invoice status").WithDetail("status", f.Status)
	}
	invoices, total, err := s.invoices.List(ctx, actor.OwnerID, f)
	if err != nil {
		return models.PagedResult[*models.Invoice]{}, err
	}
	return models.NewPagedResult(invoices, total, f.Page), nil
}

// Update edits the terms of an unlocked invoice and records the previous
// terms as a revision.
func (s *InvoiceService) Update(ctx context.Context, actor models.Actor, id uuid.UUID, req *models.UpdateInvoiceRequest) (*models.Invoice, error) {
	if req.TaxRate != nil {
		if err := models.ValidateTaxRate(*req.TaxRate); err != nil {
			return nil, err
		}
	}
	return s.mutate(ctx, actor, id, models.AuditUpdateInvoice, "update", func(inv *models.Invoice, now time.Time) error {
		terms := inv.InvoiceTerms
		if req.Customer != nil {
			terms.Customer = trimCustomer(*req.Customer)
		}
		if req.TaxRate != nil {
			terms.TaxRate = *req.TaxRate
		}
		if req.Notes != nil {
			terms.Notes = strings.TrimSpace(*req.Notes)
		}
		return inv.Revise(terms, actor.UserID, now)
	})
}

// Lock freezes an invoice's terms. Admin only.
func (s *InvoiceService) Lock(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Invoice, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.New(apperrors.KindForbidden, "only admins can lock invoices")
	}
	return s.mutate(ctx, actor, id, models.AuditLockInvoice, "lock", func(inv *models.Invoice, now time.Time) error {
		return inv.Lock(actor.UserID, now)
	})
}

// MarkPaid records payment. Admin only; allowed on locked invoices.
func (s *InvoiceService) MarkPaid(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Invoice, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.New(apperrors.KindForbidden, "only admins can record payments")
	}
	return s.mutate(ctx, actor, id, models.AuditPayInvoice, "pay", func(inv *models.Invoice, now time.Time) error {
		return inv.MarkPaid(now)
	})
}

// mutate applies change to a fresh read and writes it back guarded by the
// invoice version. A lost race surfaces as concurrent_modification.
func (s *InvoiceService) mutate(ctx context.Context, actor models.Actor, id uuid.UUID, action, op string,
	change func(inv *models.Invoice, now time.Time) error) (*models.Invoice, error) {
	inv, err := s.invoices.Get(ctx, actor.OwnerID, id)
	if err != nil {
		return nil, err
	}
	before := invoiceView(inv)
	expected := inv.Version
	now := s.now()
	if err := change(inv, now); err != nil {
		return nil, err
	}
	if err := s.invoices.Update(ctx, inv, expected); err != nil {
		if apperrors.Is(err, apperrors.KindConcurrentModification) {
			metrics.CommitConflictsTotal.WithLabelValues("invoice_" + op).Inc()
		}
		return nil, err
	}

	metrics.InvoiceOpsTotal.WithLabelValues(op).Inc()
	s.audit.Record(ctx, actor, action, models.EntityInvoice, inv.ID, models.AuditMeta{
		Before: before,
		After:  invoiceView(inv),
		Note:   "invoice " + inv.InvoiceNumber,
	})
	s.events.Publish(models.Event{Type: models.EventInvoiceUpdated, OwnerID: actor.OwnerID, EntityID: inv.ID, At: now, Data: inv})
	return inv, nil
}

// invoiceView is the audit snapshot of an invoice: terms, totals and state.
func invoiceView(inv *models.Invoice) map[string]interface{} {
	return map[string]interface{}{
		"invoice_number": inv.InvoiceNumber,
		"customer":       inv.Customer,
		"tax_rate":       inv.TaxRate,
		"notes":          inv.Notes,
		"total_amount":   inv.TotalAmount,
		"status":         inv.Status,
		"is_locked":      inv.IsLocked,
	}
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func trimCustomer(c models.Customer) models.Customer {
	return models.Customer{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
	}
}

// sameCustomer compares buyers by name, ignoring case and spacing.
func sameCustomer(a, b models.Customer) bool {
	return strings.EqualFold(strings.Join(strings.Fields(a.Name), " "), strings.Join(strings.Fields(b.Name), " "))
}
