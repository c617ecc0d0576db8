package stock

import (
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
)

func movement(typ entity.MovementType, qty int64) entity.Movement {
	return entity.NewMovement(id.New(), typ, qty, entity.NoLink, time.Time{})
}

func TestFold(t *testing.T) {
	tests := []struct {
		name        string
		movements   []entity.Movement
		wantTotal   int64
		wantUnknown int
	}{
		{name: "empty history", wantTotal: 0},
		{
			name: "signed types",
			movements: []entity.Movement{
				movement(entity.MovementPurchase, 12),
				movement(entity.MovementEntry, 3),
				movement(entity.MovementExit, 5),
				movement(entity.MovementInventory, 2),
			},
			wantTotal: 12,
		},
		{
			name: "unknown types fold as zero",
			movements: []entity.Movement{
				movement(entity.MovementEntry, 4),
				movement("transfer", 100),
				movement("", 7),
			},
			wantTotal:   4,
			wantUnknown: 2,
		},
		{
			name:      "exits may drive stock negative",
			movements: []entity.Movement{movement(entity.MovementExit, 3)},
			wantTotal: -3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, unknown := Fold(tt.movements)
			assert.Equal(t, tt.wantTotal, total)
			assert.Len(t, unknown, tt.wantUnknown)
		})
	}
}

func batch(qty, remaining int64, price string, date time.Time) Batch {
	return Batch{
		ID:                id.New(),
		ArticleID:         id.New(),
		Quantity:          qty,
		RemainingQuantity: remaining,
		UnitPrice:         decimal.RequireFromString(price),
		PurchaseDate:      date,
		CreatedAt:         date,
	}
}

func TestCompareFIFO(t *testing.T) {
	d1 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 7)

	older := batch(5, 5, "1.00", d1)
	newer := batch(5, 5, "2.00", d2)

	sameDay := batch(5, 5, "3.00", d1)
	sameDay.CreatedAt = d1.Add(time.Hour)

	batches := []Batch{newer, sameDay, older}
	slices.SortStableFunc(batches, CompareFIFO)

	assert.Equal(t, []id.ID{older.ID, sameDay.ID, newer.ID},
		[]id.ID{batches[0].ID, batches[1].ID, batches[2].ID})
}

func TestAllocate(t *testing.T) {
	d1 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	b1 := batch(5, 5, "1.00", d1)
	b2 := batch(5, 5, "2.00", d1.AddDate(0, 0, 1))

	t.Run("spans batches oldest first", func(t *testing.T) {
		lines, remaining, consumed := Allocate([]Batch{b1, b2}, 7)

		require.Len(t, lines, 2)
		assert.Equal(t, b1.ID, lines[0].BatchID)
		assert.Equal(t, int64(5), lines[0].Taken)
		assert.Equal(t, b2.ID, lines[1].BatchID)
		assert.Equal(t, int64(2), lines[1].Taken)

		assert.Equal(t, int64(0), remaining[b1.ID])
		assert.Equal(t, int64(3), remaining[b2.ID])
		assert.Equal(t, int64(7), consumed)
		assert.True(t, lines[1].Cost().Equal(decimal.NewFromInt(4)))
	})

	t.Run("shortfall takes what exists", func(t *testing.T) {
		lines, _, consumed := Allocate([]Batch{b1, b2}, 12)
		assert.Len(t, lines, 2)
		assert.Equal(t, int64(10), consumed)
	})

	t.Run("skips exhausted batches", func(t *testing.T) {
		empty := batch(5, 0, "0.50", d1.AddDate(0, 0, -1))
		lines, remaining, consumed := Allocate([]Batch{empty, b1}, 2)

		require.Len(t, lines, 1)
		assert.Equal(t, b1.ID, lines[0].BatchID)
		assert.NotContains(t, remaining, empty.ID)
		assert.Equal(t, int64(2), consumed)
	})
}

func TestValidateCounts(t *testing.T) {
	assert.NoError(t, ValidateCounts(map[id.ID]int64{id.New(): 0, id.New(): 12}))
	assert.NoError(t, ValidateCounts(nil))

	err := ValidateCounts(map[id.ID]int64{id.New(): -1})
	assert.True(t, apperror.IsValidation(err))

	err = ValidateCounts(map[id.ID]int64{id.Nil(): 3})
	assert.True(t, apperror.IsValidation(err))
}
