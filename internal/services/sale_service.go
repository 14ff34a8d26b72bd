package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/logger"
	"gem-backend/internal/metrics"
	"gem-backend/internal/models"
	"gem-backend/internal/timeutil"
)

const defaultCurrency = "USD"

// SaleService commits sales and undoes them. Every commit re-reads the item,
// validates all lines against that read and writes back guarded by the
// item version; a lost race is retried from a fresh read.
type SaleService struct {
	items       InventoryStore
	sales       SaleStore
	cache       ItemCache
	events      EventPublisher
	audit       *AuditService
	prefix      string
	maxAttempts int
	now         timeutil.Clock
	log         *zap.Logger
}

type SaleServiceConfig struct {
	InvoicePrefix     string
	MaxCommitAttempts int
}

func NewSaleService(items InventoryStore, sales SaleStore, cache ItemCache, events EventPublisher,
	audit *AuditService, cfg SaleServiceConfig) *SaleService {
	if cache == nil {
		cache = noopCache{}
	}
	if events == nil {
		events = noopPublisher{}
	}
	if cfg.MaxCommitAttempts < 1 {
		cfg.MaxCommitAttempts = 3
	}
	if cfg.InvoicePrefix == "" {
		cfg.InvoicePrefix = "INV"
	}
	return &SaleService{
		items:       items,
		sales:       sales,
		cache:       cache,
		events:      events,
		audit:       audit,
		prefix:      cfg.InvoicePrefix,
		maxAttempts: cfg.MaxCommitAttempts,
		now:         timeutil.Now,
		log:         logger.Log.Named("sale"),
	}
}

// Sell commits a line sale: one line per shape sold, or one line without a
// shape for single items. Either every line is applied or none.
func (s *SaleService) Sell(ctx context.Context, actor models.Actor, req *models.CreateSaleRequest) (*models.Sale, error) {
	if req.InventoryID == uuid.Nil {
		return nil, apperrors.Validation("inventory id is required")
	}
	if len(req.Lines) == 0 {
		return nil, apperrors.Validation("at least one sale line is required")
	}
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	for i, l := range req.Lines {
		if err := validateSaleLine(l.Pieces, l.Weight, l.PricePerUnit); err != nil {
			return nil, err.WithDetail("line", i)
		}
	}

	build := func(item *models.InventoryItem) (*models.Sale, error) {
		quantities := make([]models.ShapeQuantity, 0, len(req.Lines))
		lines := make([]models.SaleLine, 0, len(req.Lines))
		for _, l := range req.Lines {
			shape := strings.TrimSpace(l.Shape)
			quantities = append(quantities, models.ShapeQuantity{
				Shape:    shape,
				Quantity: models.Quantity{Pieces: l.Pieces, Weight: l.Weight},
			})
			lines = append(lines, models.SaleLine{
				Shape:        shape,
				Pieces:       l.Pieces,
				Weight:       l.Weight,
				PricePerUnit: l.PricePerUnit,
			})
		}
		if err := item.ReduceQuantity(quantities); err != nil {
			return nil, err
		}
		return &models.Sale{SaleType: models.SaleTypeLine, Lines: lines}, nil
	}

	sale, before, after, err := s.commit(ctx, actor, req.InventoryID, currency, req.Customer, build)
	if err != nil {
		return nil, err
	}
	s.afterSale(ctx, actor, sale, before, after, models.AuditCreateSale)
	return sale, nil
}

// SellFullItem sells everything an untouched item holds as one unit. Each
// remaining bucket becomes a line priced at pricePerUnit.
func (s *SaleService) SellFullItem(ctx context.Context, actor models.Actor, req *models.FullSaleRequest) (*models.Sale, error) {
	if req.InventoryID == uuid.Nil {
		return nil, apperrors.Validation("inventory id is required")
	}
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	if req.PricePerUnit != nil && req.PricePerUnit.IsNegative() {
		return nil, apperrors.Validation("price per unit must not be negative")
	}

	active, err := s.sales.HasActiveFullSale(ctx, actor.OwnerID, req.InventoryID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, apperrors.AlreadySold("item has already been sold as a whole")
	}

	build := func(item *models.InventoryItem) (*models.Sale, error) {
		if item.Status != models.StatusInStock && item.Status != models.StatusPending {
			return nil, apperrors.Conflict("only in-stock or pending items can be sold whole").
				WithDetail("status", item.Status)
		}
		remaining := item.RemainingLines()
		lines := make([]models.SaleLine, 0, len(remaining))
		for _, r := range remaining {
			lines = append(lines, models.SaleLine{
				Shape:        r.Shape,
				Pieces:       r.Pieces,
				Weight:       r.Weight,
				PricePerUnit: req.PricePerUnit,
			})
		}
		if err := item.ReduceQuantity(remaining); err != nil {
			return nil, err
		}
		return &models.Sale{SaleType: models.SaleTypeFull, Lines: lines}, nil
	}

	sale, before, after, err := s.commit(ctx, actor, req.InventoryID, currency, req.Customer, build)
	if err != nil {
		return nil, err
	}
	s.afterSale(ctx, actor, sale, before, after, models.AuditSellItem)
	return sale, nil
}

// commit runs the read, validate, write cycle with bounded retries. build
// applies the sale to a fresh copy of the item and returns the draft sale.
func (s *SaleService) commit(ctx context.Context, actor models.Actor, inventoryID uuid.UUID, currency string,
	customer models.Customer, build func(*models.InventoryItem) (*models.Sale, error)) (*models.Sale, *models.InventoryItem, *models.InventoryItem, error) {
	for attempt := 1; ; attempt++ {
		item, err := s.items.Get(ctx, actor.OwnerID, inventoryID)
		if err != nil {
			return nil, nil, nil, err
		}
		if item.IsDeleted {
			return nil, nil, nil, apperrors.ItemDeleted()
		}
		if item.Status == models.StatusSold {
			return nil, nil, nil, apperrors.AlreadySold("item is already sold out")
		}
		before := cloneItem(item)
		expected := item.Version

		sale, err := build(item)
		if err != nil {
			return nil, nil, nil, err
		}

		now := s.now()
		item.UpdatedAt = now
		sale.ID = uuid.New()
		sale.OwnerID = actor.OwnerID
		sale.InventoryID = item.ID
		sale.SerialNumber = item.SerialNumber
		sale.Currency = currency
		sale.Customer = customer
		sale.SoldBy = actor.UserID
		sale.SoldAt = now
		sale.CreatedAt = now
		sale.ComputeTotals()

		seq := models.NewInvoiceSequence(actor.OwnerID, s.prefix, timeutil.Local(now).Year())
		err = s.sales.CommitSale(ctx, item, expected, sale, seq)
		if err == nil {
			return sale, before, item, nil
		}
		if !apperrors.Is(err, apperrors.KindConcurrentModification) {
			return nil, nil, nil, err
		}
		metrics.CommitConflictsTotal.WithLabelValues("sale").Inc()
		if attempt >= s.maxAttempts {
			s.log.Warn("sale commit retries exhausted",
				zap.String("inventory_id", inventoryID.String()),
				zap.Int("attempts", attempt))
			return nil, nil, nil, err
		}
	}
}

func (s *SaleService) afterSale(ctx context.Context, actor models.Actor, sale *models.Sale, before, after *models.InventoryItem, action string) {
	s.cache.InvalidateItem(ctx, actor.OwnerID, sale.InventoryID)
	metrics.SalesTotal.WithLabelValues(string(sale.SaleType)).Inc()
	s.audit.Record(ctx, actor, action, models.EntityInventory, sale.InventoryID, models.AuditMeta{
		Before: ledgerView(before),
		After:  ledgerView(after),
		Note:   "invoice " + sale.InvoiceNumber,
	})
	s.events.Publish(models.Event{Type: models.EventSaleCreated, OwnerID: actor.OwnerID, EntityID: sale.ID, At: sale.SoldAt, Data: sale})
	logger.FromContext(ctx).Info("sale committed",
		zap.String("sale_id", sale.ID.String()),
		zap.String("invoice", sale.InvoiceNumber),
		zap.String("inventory_id", sale.InventoryID.String()))
}

// Undo cancels a sale and gives its exact snapshot quantities back to the
// item. The sale record is kept.
func (s *SaleService) Undo(ctx context.Context, actor models.Actor, saleID uuid.UUID, reason string) (*models.Sale, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.New(apperrors.KindForbidden, "only admins can undo sales")
	}
	reason = strings.TrimSpace(reason)

	for attempt := 1; ; attempt++ {
		sale, err := s.sales.Get(ctx, actor.OwnerID, saleID)
		if err != nil {
			return nil, err
		}
		if sale.Cancelled {
			return nil, apperrors.AlreadyCancelled()
		}
		item, err := s.items.Get(ctx, actor.OwnerID, sale.InventoryID)
		if err != nil {
			if apperrors.Is(err, apperrors.KindNotFound) {
				return nil, apperrors.NotFound("inventory item of this sale")
			}
			return nil, err
		}
		before := cloneItem(item)
		expected := item.Version

		if err := item.RestoreQuantity(sale.Quantities()); err != nil {
			s.log.Error("undo would break the item ledger",
				zap.String("sale_id", sale.ID.String()),
				zap.String("inventory_id", item.ID.String()),
				zap.Error(err))
			return nil, err
		}
		now := s.now()
		item.UpdatedAt = now
		if err := sale.Cancel(actor.UserID, reason, now); err != nil {
			return nil, err
		}

		err = s.sales.CommitUndo(ctx, sale, item, expected)
		if err == nil {
			s.cache.InvalidateItem(ctx, actor.OwnerID, item.ID)
			metrics.SaleUndosTotal.Inc()
			s.audit.Record(ctx, actor, models.AuditUndoSale, models.EntityInventory, item.ID, models.AuditMeta{
				Before: ledgerView(before),
				After:  ledgerView(item),
				Note:   reason,
			})
			s.events.Publish(models.Event{Type: models.EventSaleCancelled, OwnerID: actor.OwnerID, EntityID: sale.ID, At: now})
			return sale, nil
		}
		if !apperrors.Is(err, apperrors.KindConcurrentModification) {
			return nil, err
		}
		metrics.CommitConflictsTotal.WithLabelValues("undo").Inc()
		if attempt >= s.maxAttempts {
			return nil, err
		}
	}
}

func (s *SaleService) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Sale, error) {
	return s.sales.Get(ctx, actor.OwnerID, id)
}

func (s *SaleService) List(ctx context.Context, actor models.Actor, f models.SaleFilter) (models.PagedResult[*models.Sale], error) {
	sales, total, err := s.sales.List(ctx, actor.OwnerID, f)
	if err != nil {
		return models.PagedResult[*models.Sale]{}, err
	}
	return models.NewPagedResult(sales, total, f.Page), nil
}

func normalizeCurrency(c string) (string, error) {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return defaultCurrency, nil
	}
	if !models.SupportedCurrencies[c] {
		return "", apperrors.Validation("unsupported currency").WithDetail("currency", c)
	}
	return c, nil
}

func validateSaleLine(pieces uint, weight decimal.Decimal, price *decimal.Decimal) *apperrors.Error {
	if weight.IsNegative() {
		return apperrors.Validation("weight must not be negative")
	}
	if !weight.Equal(weight.Round(4)) {
		return apperrors.Validation("weight supports at most 4 decimals")
	}
	if pieces == 0 && weight.IsZero() {
		return apperrors.Validation("a sale line must sell pieces or weight")
	}
	if price != nil && price.IsNegative() {
		return apperrors.Validation("price per unit must not be negative")
	}
	return nil
}

// cloneItem copies the item deep enough that later ledger changes do not
// leak into the copy.
func cloneItem(it *models.InventoryItem) *models.InventoryItem {
	c := *it
	c.Shapes = append([]models.ShapeBucket(nil), it.Shapes...)
	return &c
}

// ledgerView is the audit projection of an item's quantities.
func ledgerView(it *models.InventoryItem) map[string]interface{} {
	if it == nil {
		return nil
	}
	return map[string]interface{}{
		"available_pieces": it.AvailablePieces,
		"available_weight": it.AvailableWeight,
		"status":           it.Status,
		"shapes":           it.Shapes,
	}
}
