package models

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gem-backend/internal/apperrors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func line(shape string, pieces uint, weight string) ShapeQuantity {
	return ShapeQuantity{Shape: shape, Quantity: Quantity{Pieces: pieces, Weight: dec(weight)}}
}

func newMixItem(buckets ...ShapeBucket) *InventoryItem {
	it := &InventoryItem{
		ID:         uuid.New(),
		OwnerID:    uuid.New(),
		ShapeMode:  ShapeModeMix,
		BaseStatus: StatusInStock,
	}
	for _, b := range buckets {
		b.AvailablePieces = b.Pieces
		b.AvailableWeight = b.Weight
		it.Shapes = append(it.Shapes, b)
	}
	it.RecomputeTotals()
	it.RefreshStatus()
	return it
}

func newSingleItem(pieces uint, weight string) *InventoryItem {
	it := &InventoryItem{
		ID:              uuid.New(),
		OwnerID:         uuid.New(),
		ShapeMode:       ShapeModeSingle,
		SingleShape:     "Round",
		TotalPieces:     pieces,
		TotalWeight:     dec(weight),
		AvailablePieces: pieces,
		AvailableWeight: dec(weight),
		BaseStatus:      StatusInStock,
	}
	it.RefreshStatus()
	return it
}

func roundOval() *InventoryItem {
	return newMixItem(
		ShapeBucket{Name: "Round", Pieces: 10, Weight: dec("5.0")},
		ShapeBucket{Name: "Oval", Pieces: 5, Weight: dec("3.0")},
	)
}

// ============================================================================
// Shape ledger
// ============================================================================

func TestFindShape(t *testing.T) {
	item := roundOval()

	b, err := item.FindShape("Round")
	require.NoError(t, err)
	assert.Equal(t, uint(10), b.Pieces)

	_, err = item.FindShape("round")
	assert.True(t, apperrors.Is(err, apperrors.KindShapeNotFound), "match is exact")

	_, err = item.FindShape("Pear")
	assert.True(t, apperrors.Is(err, apperrors.KindShapeNotFound))

	single := newSingleItem(3, "1.5")
	_, err = single.FindShape("Round")
	assert.True(t, apperrors.Is(err, apperrors.KindShapeNotFound), "single items have no named buckets")
}

func TestAvailabilityOf(t *testing.T) {
	tests := []struct {
		name       string
		item       *InventoryItem
		shape      string
		wantPieces uint
		wantWeight string
		wantKind   apperrors.Kind
	}{
		{name: "single ignores empty name", item: newSingleItem(20, "10.5"), shape: "", wantPieces: 20, wantWeight: "10.5"},
		{name: "single rejects named shape", item: newSingleItem(20, "10.5"), shape: "Round", wantKind: apperrors.KindShapeNotFound},
		{name: "mix bucket", item: roundOval(), shape: "Oval", wantPieces: 5, wantWeight: "3.0"},
		{name: "mix unknown bucket", item: roundOval(), shape: "Heart", wantKind: apperrors.KindShapeNotFound},
		{name: "mix without name", item: roundOval(), shape: "", wantKind: apperrors.KindShapeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.item.AvailabilityOf(tt.shape)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, apperrors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPieces, q.Pieces)
			assertDecimal(t, tt.wantWeight, q.Weight)
		})
	}
}

func TestRecomputeTotals(t *testing.T) {
	item := roundOval()
	assert.Equal(t, uint(15), item.TotalPieces)
	assertDecimal(t, "8.0", item.TotalWeight)
	assert.Equal(t, uint(15), item.AvailablePieces)
	assertDecimal(t, "8.0", item.AvailableWeight)

	item.Shapes = append(item.Shapes, ShapeBucket{Name: "Pear", Pieces: 2, Weight: dec("1.25"), AvailablePieces: 2, AvailableWeight: dec("1.25")})
	item.RecomputeTotals()
	assert.Equal(t, uint(17), item.TotalPieces)
	assertDecimal(t, "9.25", item.TotalWeight)

	single := newSingleItem(4, "2")
	single.RecomputeTotals()
	assert.Equal(t, uint(4), single.TotalPieces, "single totals are never derived")
}

// ============================================================================
// Reduce / restore
// ============================================================================

func TestReduceAndRestore_MixScenario(t *testing.T) {
	item := roundOval()

	require.NoError(t, item.ReduceQuantity([]ShapeQuantity{line("Round", 4, "2.0")}))

	round, _ := item.FindShape("Round")
	assert.Equal(t, uint(6), round.AvailablePieces)
	assertDecimal(t, "3.0", round.AvailableWeight)
	assert.Equal(t, uint(11), item.AvailablePieces)
	assertDecimal(t, "6.0", item.AvailableWeight)
	assert.Equal(t, StatusPartiallySold, item.Status)

	require.NoError(t, item.RestoreQuantity([]ShapeQuantity{line("Round", 4, "2.0")}))

	round, _ = item.FindShape("Round")
	assert.Equal(t, uint(10), round.AvailablePieces)
	assertDecimal(t, "5.0", round.AvailableWeight)
	assert.Equal(t, uint(15), item.AvailablePieces)
	assertDecimal(t, "8.0", item.AvailableWeight)
	assert.Equal(t, StatusInStock, item.Status)
	require.NoError(t, item.CheckInvariants())
}

func TestReduceQuantity_Boundary(t *testing.T) {
	build := func() *InventoryItem {
		return newMixItem(
			ShapeBucket{Name: "Round", Pieces: 6, Weight: dec("3.0")},
			ShapeBucket{Name: "Oval", Pieces: 5, Weight: dec("3.0")},
		)
	}

	exact := build()
	require.NoError(t, exact.ReduceQuantity([]ShapeQuantity{line("Round", 6, "3.0")}), "requested == available is valid")
	round, _ := exact.FindShape("Round")
	assert.Equal(t, uint(0), round.AvailablePieces)

	over := build()
	err := over.ReduceQuantity([]ShapeQuantity{line("Round", 7, "3.0")})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInsufficientQuantity, apperrors.KindOf(err))

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Round", appErr.Details["shape"])
	assert.Equal(t, uint(7), appErr.Details["requested"].(map[string]interface{})["pieces"])
	assert.Equal(t, uint(6), appErr.Details["available"].(map[string]interface{})["pieces"])
}

func TestReduceQuantity_WeightAxis(t *testing.T) {
	item := roundOval()
	err := item.ReduceQuantity([]ShapeQuantity{line("Oval", 1, "3.01")})
	assert.True(t, apperrors.Is(err, apperrors.KindInsufficientQuantity))
}

func TestReduceQuantity_AllOrNothing(t *testing.T) {
	item := roundOval()
	before := *item
	before.Shapes = append([]ShapeBucket(nil), item.Shapes...)

	err := item.ReduceQuantity([]ShapeQuantity{
		line("Round", 2, "1.0"),
		line("Oval", 6, "1.0"),
	})
	require.Error(t, err)
	assert.Equal(t, before.Shapes, item.Shapes, "no bucket may change when any line fails")
	assert.Equal(t, before.AvailablePieces, item.AvailablePieces)

	err = item.ReduceQuantity([]ShapeQuantity{
		line("Round", 2, "1.0"),
		line("Marquise", 1, "0.1"),
	})
	assert.True(t, apperrors.Is(err, apperrors.KindShapeNotFound))
	assert.Equal(t, before.Shapes, item.Shapes)
}

func TestReduceQuantity_SameShapeLinesAreSummed(t *testing.T) {
	item := roundOval()
	err := item.ReduceQuantity([]ShapeQuantity{
		line("Oval", 3, "1.0"),
		line("Oval", 3, "1.0"),
	})
	assert.True(t, apperrors.Is(err, apperrors.KindInsufficientQuantity))

	require.NoError(t, item.ReduceQuantity([]ShapeQuantity{
		line("Oval", 2, "1.0"),
		line("Oval", 3, "2.0"),
	}))
	oval, _ := item.FindShape("Oval")
	assert.Equal(t, uint(0), oval.AvailablePieces)
	assert.True(t, oval.AvailableWeight.IsZero())
}

func TestReduceQuantity_Rejections(t *testing.T) {
	t.Run("deleted item", func(t *testing.T) {
		item := newSingleItem(5, "2.5")
		item.MarkDeleted(uuid.New(), item.CreatedAt)
		err := item.ReduceQuantity([]ShapeQuantity{line("", 1, "0.5")})
		assert.True(t, apperrors.Is(err, apperrors.KindItemDeleted))
	})

	t.Run("negative weight", func(t *testing.T) {
		item := newSingleItem(5, "2.5")
		err := item.ReduceQuantity([]ShapeQuantity{line("", 1, "-0.5")})
		assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	})

	t.Run("no lines", func(t *testing.T) {
		item := newSingleItem(5, "2.5")
		err := item.ReduceQuantity(nil)
		assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	})
}

func TestRestoreQuantity_NeverExceedsTotal(t *testing.T) {
	item := roundOval()
	require.NoError(t, item.ReduceQuantity([]ShapeQuantity{line("Round", 1, "0.5")}))

	err := item.RestoreQuantity([]ShapeQuantity{line("Round", 2, "0.5")})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInfrastructure, apperrors.KindOf(err))

	round, _ := item.FindShape("Round")
	assert.Equal(t, uint(9), round.AvailablePieces, "failed restore leaves the ledger untouched")
}

// ============================================================================
// Status derivation
// ============================================================================

func TestStatusDerivation(t *testing.T) {
	all := newSingleItem(20, "10")
	require.NoError(t, all.ReduceQuantity([]ShapeQuantity{line("", 20, "10")}))
	assert.Equal(t, StatusSold, all.Status)

	some := newSingleItem(20, "10")
	require.NoError(t, some.ReduceQuantity([]ShapeQuantity{line("", 5, "2.5")}))
	assert.Equal(t, StatusPartiallySold, some.Status)
	require.NoError(t, some.RestoreQuantity([]ShapeQuantity{line("", 5, "2.5")}))
	assert.Equal(t, StatusInStock, some.Status)

	pending := newSingleItem(20, "10")
	require.NoError(t, pending.SetBaseStatus(StatusPending))
	require.NoError(t, pending.ReduceQuantity([]ShapeQuantity{line("", 5, "2.5")}))
	require.NoError(t, pending.RestoreQuantity([]ShapeQuantity{line("", 5, "2.5")}))
	assert.Equal(t, StatusPending, pending.Status, "undo returns to the last non-sold state")
}

func TestDeriveStatus(t *testing.T) {
	total := Quantity{Pieces: 10, Weight: dec("4")}
	tests := []struct {
		name      string
		base      Status
		available Quantity
		want      Status
	}{
		{"untouched in stock", StatusInStock, total, StatusInStock},
		{"untouched pending", StatusPending, total, StatusPending},
		{"pieces only sold", StatusInStock, Quantity{Pieces: 9, Weight: dec("4")}, StatusPartiallySold},
		{"weight only sold", StatusInStock, Quantity{Pieces: 10, Weight: dec("3.9")}, StatusPartiallySold},
		{"both zero", StatusPending, Quantity{Weight: decimal.Zero}, StatusSold},
		{"pieces zero weight left", StatusInStock, Quantity{Weight: dec("0.1")}, StatusPartiallySold},
		{"invalid base falls back", StatusSold, total, StatusInStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.base, tt.available, total))
		})
	}
}

func TestSetBaseStatus(t *testing.T) {
	item := newSingleItem(1, "1")
	assert.True(t, apperrors.Is(item.SetBaseStatus(StatusSold), apperrors.KindValidation))
	require.NoError(t, item.SetBaseStatus(StatusPending))
	assert.Equal(t, StatusPending, item.Status)
}

// ============================================================================
// Invariants under random operation sequences
// ============================================================================

func TestLedgerInvariants_RandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	shapes := []string{"Round", "Oval", "Pear"}

	for run := 0; run < 200; run++ {
		item := newMixItem(
			ShapeBucket{Name: "Round", Pieces: 10, Weight: dec("5.0")},
			ShapeBucket{Name: "Oval", Pieces: 5, Weight: dec("3.0")},
			ShapeBucket{Name: "Pear", Pieces: 7, Weight: dec("2.1")},
		)
		var committed [][]ShapeQuantity

		for step := 0; step < 30; step++ {
			if len(committed) > 0 && rng.Intn(3) == 0 {
				i := rng.Intn(len(committed))
				require.NoError(t, item.RestoreQuantity(committed[i]))
				committed = append(committed[:i], committed[i+1:]...)
			} else {
				shape := shapes[rng.Intn(len(shapes))]
				req := line(shape, uint(rng.Intn(5)), decimal.New(int64(rng.Intn(20)), -1).String())
				if err := item.ReduceQuantity([]ShapeQuantity{req}); err == nil {
					committed = append(committed, []ShapeQuantity{req})
				} else {
					require.True(t, apperrors.Is(err, apperrors.KindInsufficientQuantity), err.Error())
				}
			}
			require.NoError(t, item.CheckInvariants())
		}

		for _, c := range committed {
			require.NoError(t, item.RestoreQuantity(c))
		}
		assert.Equal(t, item.TotalPieces, item.AvailablePieces)
		assert.True(t, item.TotalWeight.Equal(item.AvailableWeight))
		assert.Equal(t, StatusInStock, item.Status)
	}
}

func TestRemainingLines(t *testing.T) {
	item := roundOval()
	require.NoError(t, item.ReduceQuantity([]ShapeQuantity{line("Oval", 5, "3.0")}))

	lines := item.RemainingLines()
	require.Len(t, lines, 1)
	assert.Equal(t, "Round", lines[0].Shape)
	assert.Equal(t, uint(10), lines[0].Pieces)

	single := newSingleItem(3, "1.2")
	require.Len(t, single.RemainingLines(), 1)
	assert.Equal(t, "", single.RemainingLines()[0].Shape)
}
