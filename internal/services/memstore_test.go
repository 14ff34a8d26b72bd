package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/models"
)

// memDB is an in-memory stand-in for the postgres repositories. It mirrors
// their version guards, partial unique indexes and transaction boundaries:
// every exported method holds the lock for its whole duration.
type memDB struct {
	mu         sync.Mutex
	items      map[uuid.UUID]*models.InventoryItem
	sales      map[uuid.UUID]*models.Sale
	categories map[uuid.UUID]*models.Category
	shapes     map[uuid.UUID][]*models.Shape
	bin        map[uuid.UUID]*models.RecycleBinEntry
	audit      []*models.AuditLog
	users      map[uuid.UUID]*models.User
	counters   map[string]int64
	invoices   map[uuid.UUID]*models.Invoice
	invoiced   map[uuid.UUID]uuid.UUID
}

func newMemDB() *memDB {
	return &memDB{
		items:      make(map[uuid.UUID]*models.InventoryItem),
		sales:      make(map[uuid.UUID]*models.Sale),
		categories: make(map[uuid.UUID]*models.Category),
		shapes:     make(map[uuid.UUID][]*models.Shape),
		bin:        make(map[uuid.UUID]*models.RecycleBinEntry),
		users:      make(map[uuid.UUID]*models.User),
		counters:   make(map[string]int64),
		invoices:   make(map[uuid.UUID]*models.Invoice),
		invoiced:   make(map[uuid.UUID]uuid.UUID),
	}
}

func cloneSale(s *models.Sale) *models.Sale {
	c := *s
	c.Lines = append([]models.SaleLine(nil), s.Lines...)
	return &c
}

func (db *memDB) activeCategory(ownerID, id uuid.UUID) error {
	c, ok := db.categories[id]
	if !ok || c.OwnerID != ownerID || c.IsDeleted {
		return apperrors.ReferentialIntegrity("category does not exist or is in the recycle bin").
			WithDetail("category_id", id)
	}
	return nil
}

func (db *memDB) serialTaken(ownerID uuid.UUID, serial string, except uuid.UUID) bool {
	for _, it := range db.items {
		if it.ID != except && it.OwnerID == ownerID && it.SerialNumber == serial && !it.IsDeleted {
			return true
		}
	}
	return false
}

func (db *memDB) writeLedger(item *models.InventoryItem, expected int, activeOnly bool) error {
	cur, ok := db.items[item.ID]
	if !ok || cur.OwnerID != item.OwnerID || cur.Version != expected || (activeOnly && cur.IsDeleted) {
		return apperrors.ConcurrentModification()
	}
	item.Version = expected + 1
	stored := cloneItem(item)
	stored.IsDeleted, stored.DeletedAt, stored.DeletedBy = cur.IsDeleted, cur.DeletedAt, cur.DeletedBy
	db.items[item.ID] = stored
	return nil
}

func (db *memDB) hasActiveFullSale(inventoryID uuid.UUID) bool {
	for _, s := range db.sales {
		if s.InventoryID == inventoryID && s.SaleType == models.SaleTypeFull && !s.Cancelled {
			return true
		}
	}
	return false
}

func paginate[T any](all []T, p models.Page) []T {
	off := p.Offset()
	if off >= len(all) {
		return nil
	}
	end := off + p.Normalize().Limit
	if end > len(all) {
		end = len(all)
	}
	return all[off:end]
}

type memItems struct{ db *memDB }

func (s memItems) Create(_ context.Context, item *models.InventoryItem) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.activeCategory(item.OwnerID, item.CategoryID); err != nil {
		return err
	}
	if s.db.serialTaken(item.OwnerID, item.SerialNumber, uuid.Nil) {
		return apperrors.Conflict("serial number already exists").WithDetail("serial_number", item.SerialNumber)
	}
	s.db.items[item.ID] = cloneItem(item)
	return nil
}

func (s memItems) Get(_ context.Context, ownerID, id uuid.UUID) (*models.InventoryItem, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	it, ok := s.db.items[id]
	if !ok || it.OwnerID != ownerID {
		return nil, apperrors.NotFound("inventory item")
	}
	return cloneItem(it), nil
}

func (s memItems) List(_ context.Context, ownerID uuid.UUID, f models.InventoryFilter) ([]*models.InventoryItem, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var all []*models.InventoryItem
	for _, it := range s.db.items {
		if it.OwnerID != ownerID || (it.IsDeleted && !f.IncludeDeleted) {
			continue
		}
		if f.Status != "" && it.Status != f.Status {
			continue
		}
		if f.CategoryID != nil && it.CategoryID != *f.CategoryID {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(it.SerialNumber), strings.ToLower(f.Search)) {
			continue
		}
		all = append(all, cloneItem(it))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SerialNumber < all[j].SerialNumber })
	return paginate(all, f.Page), len(all), nil
}

func (s memItems) UpdateStatus(_ context.Context, item *models.InventoryItem, expected int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.writeLedger(item, expected, true)
}

type memSales struct{ db *memDB }

func (s memSales) CommitSale(_ context.Context, item *models.InventoryItem, expected int, sale *models.Sale, seq models.InvoiceSequence) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	prev, ok := s.db.items[item.ID]
	if !ok {
		return apperrors.ConcurrentModification()
	}
	prev = cloneItem(prev)
	if err := s.db.writeLedger(item, expected, true); err != nil {
		return err
	}
	if s.db.hasActiveFullSale(sale.InventoryID) {
		s.db.items[item.ID] = prev
		item.Version = expected
		return apperrors.AlreadySold("item has already been sold as a whole")
	}
	s.db.counters[seq.Key]++
	sale.InvoiceNumber = seq.Format(s.db.counters[seq.Key])
	s.db.sales[sale.ID] = cloneSale(sale)
	return nil
}

func (s memSales) CommitUndo(_ context.Context, sale *models.Sale, item *models.InventoryItem, expected int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.sales[sale.ID]
	if !ok || cur.Cancelled {
		return apperrors.AlreadyCancelled()
	}
	if err := s.db.writeLedger(item, expected, false); err != nil {
		return err
	}
	s.db.sales[sale.ID] = cloneSale(sale)
	return nil
}

func (s memSales) Get(_ context.Context, ownerID, id uuid.UUID) (*models.Sale, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	sale, ok := s.db.sales[id]
	if !ok || sale.OwnerID != ownerID {
		return nil, apperrors.NotFound("sale")
	}
	return cloneSale(sale), nil
}

func (s memSales) List(_ context.Context, ownerID uuid.UUID, f models.SaleFilter) ([]*models.Sale, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var all []*models.Sale
	for _, sale := range s.db.sales {
		if sale.OwnerID != ownerID || (sale.Cancelled && !f.IncludeCancelled) {
			continue
		}
		if f.InventoryID != nil && sale.InventoryID != *f.InventoryID {
			continue
		}
		all = append(all, cloneSale(sale))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].InvoiceNumber > all[j].InvoiceNumber })
	return paginate(all, f.Page), len(all), nil
}

func (s memSales) HasActiveFullSale(_ context.Context, _, inventoryID uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.hasActiveFullSale(inventoryID), nil
}

func cloneInvoice(inv *models.Invoice) *models.Invoice {
	c := *inv
	c.Items = append([]models.InvoiceItem(nil), inv.Items...)
	c.Revisions = append([]models.InvoiceRevision(nil), inv.Revisions...)
	return &c
}

type memInvoices struct{ db *memDB }

func (s memInvoices) Create(_ context.Context, inv *models.Invoice, seq models.InvoiceSequence) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, id := range inv.SaleIDs() {
		if _, taken := s.db.invoiced[id]; taken {
			return apperrors.Conflict("sale is already on an invoice").WithDetail("sale_id", id)
		}
	}
	s.db.counters[seq.Key]++
	inv.InvoiceNumber = seq.Format(s.db.counters[seq.Key])
	for _, id := range inv.SaleIDs() {
		s.db.invoiced[id] = inv.ID
	}
	s.db.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (s memInvoices) Get(_ context.Context, ownerID, id uuid.UUID) (*models.Invoice, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	inv, ok := s.db.invoices[id]
	if !ok || inv.OwnerID != ownerID {
		return nil, apperrors.NotFound("invoice")
	}
	return cloneInvoice(inv), nil
}

func (s memInvoices) List(_ context.Context, ownerID uuid.UUID, f models.InvoiceFilter) ([]*models.Invoice, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var all []*models.Invoice
	for _, inv := range s.db.invoices {
		if inv.OwnerID != ownerID || (f.Status != "" && inv.Status != f.Status) {
			continue
		}
		all = append(all, cloneInvoice(inv))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].InvoiceNumber > all[j].InvoiceNumber })
	return paginate(all, f.Page), len(all), nil
}

func (s memInvoices) Update(_ context.Context, inv *models.Invoice, expected int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.invoices[inv.ID]
	if !ok || cur.OwnerID != inv.OwnerID || cur.Version != expected {
		return apperrors.ConcurrentModification()
	}
	inv.Version = expected + 1
	s.db.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

type memDashboard struct{ db *memDB }

func (s memDashboard) StockRows(_ context.Context, ownerID uuid.UUID) ([]models.StockRow, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.StockRow
	for _, it := range s.db.items {
		if it.OwnerID == ownerID && !it.IsDeleted {
			out = append(out, models.StockRow{Status: it.Status, PurchaseCode: it.PurchaseCode, AvailableWeight: it.AvailableWeight})
		}
	}
	return out, nil
}

func (s memDashboard) SalesSummary(_ context.Context, ownerID uuid.UUID) (models.SalesSummary, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	summary := models.SalesSummary{Revenue: make(map[string]decimal.Decimal)}
	for _, sale := range s.db.sales {
		if sale.OwnerID != ownerID || sale.Cancelled {
			continue
		}
		summary.Count++
		summary.Revenue[sale.Currency] = summary.Revenue[sale.Currency].Add(sale.TotalAmount)
	}
	return summary, nil
}

type memCategories struct{ db *memDB }

func (s memCategories) Create(_ context.Context, c *models.Category) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.categories {
		if other.OwnerID == c.OwnerID && other.Name == c.Name && !other.IsDeleted {
			return apperrors.Conflict("category already exists")
		}
	}
	cp := *c
	s.db.categories[c.ID] = &cp
	return nil
}

func (s memCategories) Get(_ context.Context, ownerID, id uuid.UUID) (*models.Category, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.categories[id]
	if !ok || c.OwnerID != ownerID {
		return nil, apperrors.NotFound("category")
	}
	cp := *c
	return &cp, nil
}

func (s memCategories) List(_ context.Context, ownerID uuid.UUID) ([]*models.Category, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*models.Category
	for _, c := range s.db.categories {
		if c.OwnerID == ownerID && !c.IsDeleted {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type memShapes struct{ db *memDB }

func (s memShapes) GetOrCreate(_ context.Context, ownerID uuid.UUID, name string) (*models.Shape, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, sh := range s.db.shapes[ownerID] {
		if strings.EqualFold(sh.Name, name) {
			sh.UsageCount++
			cp := *sh
			return &cp, nil
		}
	}
	sh := &models.Shape{ID: uuid.New(), OwnerID: ownerID, Name: name, UsageCount: 1, CreatedAt: time.Now()}
	s.db.shapes[ownerID] = append(s.db.shapes[ownerID], sh)
	cp := *sh
	return &cp, nil
}

func (s memShapes) Seed(_ context.Context, ownerID uuid.UUID, names []string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, n := range names {
		s.db.shapes[ownerID] = append(s.db.shapes[ownerID], &models.Shape{ID: uuid.New(), OwnerID: ownerID, Name: n})
	}
	return nil
}

func (s memShapes) List(_ context.Context, ownerID uuid.UUID) ([]*models.Shape, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]*models.Shape, 0, len(s.db.shapes[ownerID]))
	for _, sh := range s.db.shapes[ownerID] {
		cp := *sh
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UsageCount > out[j].UsageCount })
	return out, nil
}

type memBin struct{ db *memDB }

func (s memBin) insert(e *models.RecycleBinEntry) {
	cp := *e
	s.db.bin[e.ID] = &cp
}

func (s memBin) remove(e *models.RecycleBinEntry) error {
	if _, ok := s.db.bin[e.ID]; !ok {
		return apperrors.NotFound("recycle bin entry")
	}
	delete(s.db.bin, e.ID)
	return nil
}

func (s memBin) SoftDeleteInventory(_ context.Context, item *models.InventoryItem, expected int, entry *models.RecycleBinEntry) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.items[item.ID]
	if !ok || cur.Version != expected || cur.IsDeleted {
		return apperrors.ConcurrentModification()
	}
	stored := cloneItem(cur)
	stored.IsDeleted, stored.DeletedAt, stored.DeletedBy = true, item.DeletedAt, item.DeletedBy
	stored.Version = expected + 1
	s.db.items[item.ID] = stored
	item.Version = expected + 1
	s.insert(entry)
	return nil
}

func (s memBin) SoftDeleteCategory(_ context.Context, c *models.Category, entry *models.RecycleBinEntry) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.categories[c.ID]
	if !ok || cur.OwnerID != c.OwnerID {
		return apperrors.NotFound("category")
	}
	if cur.IsDeleted {
		return apperrors.Conflict("category is already in the recycle bin")
	}
	refs := 0
	for _, it := range s.db.items {
		if it.OwnerID == c.OwnerID && it.CategoryID == c.ID && !it.IsDeleted {
			refs++
		}
	}
	if refs > 0 {
		return apperrors.ReferentialIntegrity("category is used by active inventory items").
			WithDetail("inventory_count", refs)
	}
	cp := *c
	s.db.categories[c.ID] = &cp
	s.insert(entry)
	return nil
}

func (s memBin) Get(_ context.Context, ownerID, id uuid.UUID) (*models.RecycleBinEntry, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.bin[id]
	if !ok || e.OwnerID != ownerID {
		return nil, apperrors.NotFound("recycle bin entry")
	}
	cp := *e
	return &cp, nil
}

func (s memBin) all(keep func(*models.RecycleBinEntry) bool) []*models.RecycleBinEntry {
	var out []*models.RecycleBinEntry
	for _, e := range s.db.bin {
		if keep(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeletedAt.Before(out[j].DeletedAt) })
	return out
}

func (s memBin) List(_ context.Context, ownerID uuid.UUID, f models.RecycleBinFilter) ([]*models.RecycleBinEntry, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	all := s.all(func(e *models.RecycleBinEntry) bool {
		return e.OwnerID == ownerID && (f.EntityType == "" || e.EntityType == f.EntityType)
	})
	return paginate(all, f.Page), len(all), nil
}

func (s memBin) ListAll(_ context.Context, ownerID uuid.UUID) ([]*models.RecycleBinEntry, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.all(func(e *models.RecycleBinEntry) bool { return e.OwnerID == ownerID }), nil
}

func (s memBin) ListExpired(_ context.Context, now time.Time, limit int) ([]*models.RecycleBinEntry, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := s.all(func(e *models.RecycleBinEntry) bool { return e.Expired(now) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s memBin) RestoreInventory(_ context.Context, entry *models.RecycleBinEntry, snapshot *models.InventoryItem) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.activeCategory(entry.OwnerID, snapshot.CategoryID); err != nil {
		return err
	}
	if s.db.serialTaken(entry.OwnerID, snapshot.SerialNumber, entry.EntityID) {
		return apperrors.Conflict("serial number was reused while the item was deleted")
	}
	if cur, ok := s.db.items[entry.EntityID]; ok {
		stored := cloneItem(cur)
		stored.ClearDeleted()
		stored.Version++
		s.db.items[entry.EntityID] = stored
	} else {
		snapshot.ClearDeleted()
		snapshot.Version++
		s.db.items[entry.EntityID] = cloneItem(snapshot)
	}
	return s.remove(entry)
}

func (s memBin) RestoreCategory(_ context.Context, entry *models.RecycleBinEntry, snapshot *models.Category) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.categories {
		if other.ID != entry.EntityID && other.OwnerID == entry.OwnerID && other.Name == snapshot.Name && !other.IsDeleted {
			return apperrors.Conflict("category already exists")
		}
	}
	if cur, ok := s.db.categories[entry.EntityID]; ok {
		cur.ClearDeleted()
	} else {
		snapshot.ClearDeleted()
		cp := *snapshot
		s.db.categories[entry.EntityID] = &cp
	}
	return s.remove(entry)
}

func (s memBin) Purge(_ context.Context, entry *models.RecycleBinEntry) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.remove(entry); err != nil {
		return err
	}
	if entry.EntityType == models.EntityInventory {
		if it, ok := s.db.items[entry.EntityID]; ok && it.IsDeleted {
			delete(s.db.items, entry.EntityID)
		}
		return nil
	}
	if c, ok := s.db.categories[entry.EntityID]; ok && c.IsDeleted {
		delete(s.db.categories, entry.EntityID)
	}
	return nil
}

type memAudit struct{ db *memDB }

func (s memAudit) Create(_ context.Context, l *models.AuditLog) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.audit = append(s.db.audit, l)
	return nil
}

func (s memAudit) List(_ context.Context, ownerID uuid.UUID, page models.Page) ([]*models.AuditLog, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*models.AuditLog
	for i := len(s.db.audit) - 1; i >= 0; i-- {
		if s.db.audit[i].OwnerID == ownerID {
			out = append(out, s.db.audit[i])
		}
	}
	return paginate(out, page), len(out), nil
}

func (db *memDB) actions() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]string, 0, len(db.audit))
	for _, l := range db.audit {
		out = append(out, l.Action)
	}
	return out
}

type memUsers struct{ db *memDB }

func (s memUsers) Create(_ context.Context, u *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.users {
		if strings.EqualFold(other.Email, u.Email) {
			return apperrors.Conflict("email already registered")
		}
	}
	cp := *u
	s.db.users[u.ID] = &cp
	return nil
}

func (s memUsers) Get(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, apperrors.NotFound("user")
	}
	cp := *u
	return &cp, nil
}

func (s memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("user")
}

func (s memUsers) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*models.User
	for _, u := range s.db.users {
		if u.OwnerID == ownerID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s memUsers) SetActive(_ context.Context, ownerID, userID uuid.UUID, active bool) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[userID]
	if !ok || u.OwnerID != ownerID {
		return apperrors.NotFound("user")
	}
	u.IsActive = active
	return nil
}
