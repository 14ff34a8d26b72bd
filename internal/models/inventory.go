package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gem-backend/internal/apperrors"
)

type ShapeMode string

const (
	ShapeModeSingle ShapeMode = "single"
	ShapeModeMix    ShapeMode = "mix"
)

type Status string

const (
	StatusInStock       Status = "in_stock"
	StatusPending       Status = "pending"
	StatusPartiallySold Status = "partially_sold"
	StatusSold          Status = "sold"
)

// IsBase reports whether s may be used as the non-sold resting status.
func (s Status) IsBase() bool {
	return s == StatusInStock || s == StatusPending
}

// ShapeBucket is one named sub-lot of a mix item. Pieces and Weight are the
// stocked amounts; the Available fields shrink on sale.
type ShapeBucket struct {
	Name            string          `json:"name"`
	Pieces          uint            `json:"pieces"`
	Weight          decimal.Decimal `json:"weight"`
	AvailablePieces uint            `json:"available_pieces"`
	AvailableWeight decimal.Decimal `json:"available_weight"`
}

func (b *ShapeBucket) total() Quantity {
	return Quantity{Pieces: b.Pieces, Weight: b.Weight}
}

func (b *ShapeBucket) available() Quantity {
	return Quantity{Pieces: b.AvailablePieces, Weight: b.AvailableWeight}
}

type Dimensions struct {
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
	Unit   string          `json:"unit"`
}

// InventoryItem owns the stock ledger of one serial-numbered lot. Quantities
// change only through ReduceQuantity and RestoreQuantity.
type InventoryItem struct {
	ID              uuid.UUID       `json:"id"`
	OwnerID         uuid.UUID       `json:"owner_id"`
	SerialNumber    string          `json:"serial_number"`
	CategoryID      uuid.UUID       `json:"category_id"`
	ShapeMode       ShapeMode       `json:"shape_mode"`
	SingleShape     string          `json:"single_shape,omitempty"`
	Shapes          []ShapeBucket   `json:"shapes"`
	TotalPieces     uint            `json:"total_pieces"`
	TotalWeight     decimal.Decimal `json:"total_weight"`
	AvailablePieces uint            `json:"available_pieces"`
	AvailableWeight decimal.Decimal `json:"available_weight"`
	WeightUnit      string          `json:"weight_unit"`
	BaseStatus      Status          `json:"base_status"`
	Status          Status          `json:"status"`
	PurchaseCode    string          `json:"purchase_code,omitempty"`
	SaleCode        string          `json:"sale_code,omitempty"`
	Certification   string          `json:"certification,omitempty"`
	Location        string          `json:"location,omitempty"`
	Description     string          `json:"description,omitempty"`
	Dimensions      *Dimensions     `json:"dimensions,omitempty"`
	Version         int             `json:"version"`
	IsDeleted       bool            `json:"is_deleted"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
	DeletedBy       *uuid.UUID      `json:"deleted_by,omitempty"`
	CreatedBy       uuid.UUID       `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// FindShape returns the named bucket of a mix item.
func (it *InventoryItem) FindShape(name string) (*ShapeBucket, error) {
	if it.ShapeMode != ShapeModeMix || name == "" {
		return nil, apperrors.ShapeNotFound(name)
	}
	for i := range it.Shapes {
		if it.Shapes[i].Name == name {
			return &it.Shapes[i], nil
		}
	}
	return nil, apperrors.ShapeNotFound(name)
}

// AvailabilityOf returns what can still be sold from the addressed bucket.
// Single items take an empty name.
func (it *InventoryItem) AvailabilityOf(name string) (Quantity, error) {
	if it.ShapeMode == ShapeModeSingle {
		if name != "" {
			return Quantity{}, apperrors.ShapeNotFound(name)
		}
		return it.available(), nil
	}
	b, err := it.FindShape(name)
	if err != nil {
		return Quantity{}, err
	}
	return b.available(), nil
}

// RecomputeTotals sums mix buckets into the item-level totals. Single items
// keep their directly set totals.
func (it *InventoryItem) RecomputeTotals() {
	if it.ShapeMode != ShapeModeMix {
		return
	}
	var total, avail Quantity
	for i := range it.Shapes {
		total = total.Add(it.Shapes[i].total())
		avail = avail.Add(it.Shapes[i].available())
	}
	it.TotalPieces, it.TotalWeight = total.Pieces, total.Weight
	it.AvailablePieces, it.AvailableWeight = avail.Pieces, avail.Weight
}

// ReduceQuantity decrements every line or none of them. Lines addressing the
// same bucket are summed before comparing against availability.
func (it *InventoryItem) ReduceQuantity(lines []ShapeQuantity) error {
	if it.IsDeleted {
		return apperrors.ItemDeleted()
	}
	requested, order, err := it.groupLines(lines)
	if err != nil {
		return err
	}
	for _, name := range order {
		avail, err := it.AvailabilityOf(name)
		if err != nil {
			return err
		}
		req := requested[name]
		if !avail.Covers(req) {
			return apperrors.InsufficientQuantity(name,
				req.Pieces, avail.Pieces, req.Weight.String(), avail.Weight.String())
		}
	}

	for _, name := range order {
		it.apply(name, requested[name], false)
	}
	it.afterMutation()
	return nil
}

// RestoreQuantity is the inverse of ReduceQuantity. It never clamps: a
// restore that would leave available above total is reported as an
// internal consistency failure and nothing is changed.
func (it *InventoryItem) RestoreQuantity(lines []ShapeQuantity) error {
	restored, order, err := it.groupLines(lines)
	if err != nil {
		if apperrors.Is(err, apperrors.KindShapeNotFound) {
			return apperrors.InternalConsistency("restore references a shape missing from the item: " + err.Error())
		}
		return err
	}
	for _, name := range order {
		headroom, err := it.headroom(name)
		if err != nil {
			return apperrors.InternalConsistency("restore references a shape missing from the item: " + err.Error())
		}
		if !headroom.Covers(restored[name]) {
			return apperrors.InternalConsistency("restore of " + labelOf(name) + " would exceed stocked total")
		}
	}

	for _, name := range order {
		it.apply(name, restored[name], true)
	}
	it.afterMutation()
	return nil
}

// RemainingLines lists everything still available, one line per non-empty
// bucket. Used for full-item sales.
func (it *InventoryItem) RemainingLines() []ShapeQuantity {
	if it.ShapeMode == ShapeModeSingle {
		if it.available().IsZero() {
			return nil
		}
		return []ShapeQuantity{{Quantity: it.available()}}
	}
	var lines []ShapeQuantity
	for i := range it.Shapes {
		b := &it.Shapes[i]
		if !b.available().IsZero() {
			lines = append(lines, ShapeQuantity{Shape: b.Name, Quantity: b.available()})
		}
	}
	return lines
}

// SetBaseStatus applies a staff workflow transition (approve or hold) and
// re-derives the visible status.
func (it *InventoryItem) SetBaseStatus(s Status) error {
	if !s.IsBase() {
		return apperrors.Validation("status must be in_stock or pending")
	}
	it.BaseStatus = s
	it.RefreshStatus()
	return nil
}

// RefreshStatus recomputes Status from quantities.
func (it *InventoryItem) RefreshStatus() {
	it.Status = DeriveStatus(it.BaseStatus, it.available(), it.total())
}

// DeriveStatus is the status projection of a ledger state.
func DeriveStatus(base Status, available, total Quantity) Status {
	if available.IsZero() {
		return StatusSold
	}
	if available.Pieces < total.Pieces || available.Weight.LessThan(total.Weight) {
		return StatusPartiallySold
	}
	if !base.IsBase() {
		return StatusInStock
	}
	return base
}

// CheckInvariants verifies 0 <= available <= total item-wide and per bucket,
// and that mix totals equal the bucket sums.
func (it *InventoryItem) CheckInvariants() error {
	if !it.total().Covers(it.available()) || it.AvailableWeight.IsNegative() {
		return apperrors.InternalConsistency("item available exceeds total")
	}
	if it.ShapeMode != ShapeModeMix {
		return nil
	}
	var total, avail Quantity
	for i := range it.Shapes {
		b := &it.Shapes[i]
		if !b.total().Covers(b.available()) || b.AvailableWeight.IsNegative() {
			return apperrors.InternalConsistency("bucket " + b.Name + " available exceeds total")
		}
		total = total.Add(b.total())
		avail = avail.Add(b.available())
	}
	if total.Pieces != it.TotalPieces || !total.Weight.Equal(it.TotalWeight) ||
		avail.Pieces != it.AvailablePieces || !avail.Weight.Equal(it.AvailableWeight) {
		return apperrors.InternalConsistency("item totals drifted from bucket sums")
	}
	return nil
}

// MarkDeleted moves the item out of active visibility.
func (it *InventoryItem) MarkDeleted(actor uuid.UUID, at time.Time) {
	it.IsDeleted = true
	it.DeletedAt = &at
	it.DeletedBy = &actor
}

func (it *InventoryItem) ClearDeleted() {
	it.IsDeleted = false
	it.DeletedAt = nil
	it.DeletedBy = nil
}

func (it *InventoryItem) available() Quantity {
	return Quantity{Pieces: it.AvailablePieces, Weight: it.AvailableWeight}
}

func (it *InventoryItem) total() Quantity {
	return Quantity{Pieces: it.TotalPieces, Weight: it.TotalWeight}
}

func (it *InventoryItem) headroom(name string) (Quantity, error) {
	if it.ShapeMode == ShapeModeSingle {
		if name != "" {
			return Quantity{}, apperrors.ShapeNotFound(name)
		}
		return it.total().Sub(it.available()), nil
	}
	b, err := it.FindShape(name)
	if err != nil {
		return Quantity{}, err
	}
	return b.total().Sub(b.available()), nil
}

func (it *InventoryItem) groupLines(lines []ShapeQuantity) (map[string]Quantity, []string, error) {
	if len(lines) == 0 {
		return nil, nil, apperrors.Validation("at least one line is required")
	}
	grouped := make(map[string]Quantity, len(lines))
	var order []string
	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return nil, nil, err
		}
		if _, err := it.AvailabilityOf(l.Shape); err != nil {
			return nil, nil, err
		}
		if _, seen := grouped[l.Shape]; !seen {
			order = append(order, l.Shape)
		}
		grouped[l.Shape] = grouped[l.Shape].Add(l.Quantity)
	}
	return grouped, order, nil
}

// apply assumes the caller validated q against the bucket.
func (it *InventoryItem) apply(name string, q Quantity, restore bool) {
	if it.ShapeMode == ShapeModeSingle {
		cur := it.available()
		if restore {
			cur = cur.Add(q)
		} else {
			cur = cur.Sub(q)
		}
		it.AvailablePieces, it.AvailableWeight = cur.Pieces, cur.Weight
		return
	}
	b, _ := it.FindShape(name)
	cur := b.available()
	if restore {
		cur = cur.Add(q)
	} else {
		cur = cur.Sub(q)
	}
	b.AvailablePieces, b.AvailableWeight = cur.Pieces, cur.Weight
}

func (it *InventoryItem) afterMutation() {
	it.RecomputeTotals()
	it.RefreshStatus()
}

func labelOf(shape string) string {
	if shape == "" {
		return "item"
	}
	return "shape " + shape
}

// NormalizeShapeName trims and collapses whitespace. Matching on the ledger
// stays exact.
func NormalizeShapeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// DefaultShapes seeds the shape master list for a new tenant.
var DefaultShapes = []string{
	"Round", "Oval", "Emerald", "Princess", "Marquise",
	"Pear", "Cushion", "Asscher", "Radiant", "Heart",
	"Baguette", "Trillion", "Briolette", "Rose Cut",
}

// InventoryFilter narrows inventory listings.
type InventoryFilter struct {
	CategoryID     *uuid.UUID
	Status         Status
	Search         string
	IncludeDeleted bool
	Page
}

// CreateInventoryRequest is the body of POST /api/inventory. Mix items send
// Shapes; single items send Pieces and Weight.
type CreateInventoryRequest struct {
	SerialNumber  string          `json:"serial_number"`
	CategoryID    uuid.UUID       `json:"category_id"`
	ShapeMode     ShapeMode       `json:"shape_mode"`
	SingleShape   string          `json:"single_shape,omitempty"`
	Shapes        []ShapeInput    `json:"shapes,omitempty"`
	Pieces        uint            `json:"pieces"`
	Weight        decimal.Decimal `json:"weight"`
	WeightUnit    string          `json:"weight_unit"`
	BaseStatus    Status          `json:"status,omitempty"`
	PurchaseCode  string          `json:"purchase_code,omitempty"`
	SaleCode      string          `json:"sale_code,omitempty"`
	Certification string          `json:"certification,omitempty"`
	Location      string          `json:"location,omitempty"`
	Description   string          `json:"description,omitempty"`
	Dimensions    *Dimensions     `json:"dimensions,omitempty"`
}

type ShapeInput struct {
	Name   string          `json:"name"`
	Pieces uint            `json:"pieces"`
	Weight decimal.Decimal `json:"weight"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status"`
}
