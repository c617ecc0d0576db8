package stock

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/types"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/validation"
	"github.com/DarkSario/2025-Interactifs-Gestion/pkg/logger"
)

// CompareFIFO orders batches by purchase date, then creation time, then id.
func CompareFIFO(a, b Batch) int {
	if c := a.PurchaseDate.Compare(b.PurchaseDate); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return id.Compare(a.ID, b.ID)
}

// Allocate takes qty from batches in the given order.
// It returns the lines taken and the remaining quantity of each touched batch.
func Allocate(batches []Batch, qty int64) (lines []ConsumeLine, remaining map[id.ID]int64, consumed int64) {
	remaining = make(map[id.ID]int64)
	need := qty
	for _, b := range batches {
		if need == 0 {
			break
		}
		if b.RemainingQuantity <= 0 {
			continue
		}
		take := min(b.RemainingQuantity, need)
		lines = append(lines, ConsumeLine{
			BatchID:   b.ID,
			Taken:     take,
			UnitPrice: b.UnitPrice,
		})
		remaining[b.ID] = b.RemainingQuantity - take
		need -= take
		consumed += take
	}
	return lines, remaining, consumed
}

// CostTracker maintains FIFO purchase batches.
type CostTracker struct {
	repo Repository
}

// NewCostTracker creates a FIFO cost tracker.
func NewCostTracker(repo Repository) *CostTracker {
	return &CostTracker{repo: repo}
}

// CreateBatch opens a batch with remaining = quantity.
func (c *CostTracker) CreateBatch(ctx context.Context, in BatchInput) (Batch, error) {
	if err := validation.Struct(in); err != nil {
		return Batch{}, err
	}
	if id.IsNil(in.ArticleID) {
		return Batch{}, apperror.NewValidation("article is required")
	}

	b := Batch{
		ID:                id.New(),
		ArticleID:         in.ArticleID,
		Quantity:          in.Quantity,
		RemainingQuantity: in.Quantity,
		UnitPrice:         in.UnitPrice,
		PurchaseDate:      in.PurchaseDate.UTC(),
		PurchaseRef:       in.PurchaseRef,
		CreatedAt:         time.Now().UTC(),
	}
	if err := c.repo.InsertBatch(ctx, b); err != nil {
		return Batch{}, fmt.Errorf("insert batch: %w", err)
	}

	logger.Debug(ctx, "fifo batch opened",
		"batch_id", b.ID,
		"article_id", b.ArticleID,
		"quantity", b.Quantity,
		"unit_price", b.UnitPrice.String(),
	)
	return b, nil
}

// Consume takes qty from the oldest open batches. When supply is short it
// takes everything available and reports a ShortfallWarning in the result.
func (c *CostTracker) Consume(ctx context.Context, articleID id.ID, qty int64) (ConsumeResult, error) {
	if qty <= 0 {
		return ConsumeResult{}, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", qty)
	}

	batches, err := c.repo.ListOpenBatchesForUpdate(ctx, articleID)
	if err != nil {
		return ConsumeResult{}, fmt.Errorf("list open batches: %w", err)
	}
	slices.SortStableFunc(batches, CompareFIFO)

	lines, remaining, consumed := Allocate(batches, qty)

	result := ConsumeResult{
		ArticleID: articleID,
		Lines:     lines,
		Consumed:  consumed,
		TotalCost: decimal.Zero,
	}
	for _, l := range lines {
		if err := c.repo.UpdateBatchRemaining(ctx, l.BatchID, remaining[l.BatchID]); err != nil {
			return ConsumeResult{}, fmt.Errorf("update batch %s: %w", l.BatchID, err)
		}
		result.TotalCost = result.TotalCost.Add(l.Cost())
	}

	if consumed < qty {
		result.Shortfall = &ShortfallWarning{
			ArticleID: articleID,
			Requested: qty,
			Available: consumed,
			Missing:   qty - consumed,
		}
		logger.Warn(ctx, "fifo shortfall",
			"article_id", articleID,
			"requested", qty,
			"available", consumed,
		)
	}

	return result, nil
}

// CostBasis values the open batches of an article.
func (c *CostTracker) CostBasis(ctx context.Context, articleID id.ID) (CostBasis, error) {
	batches, err := c.repo.ListBatches(ctx, articleID, true)
	if err != nil {
		return CostBasis{}, fmt.Errorf("list batches: %w", err)
	}

	basis := CostBasis{ArticleID: articleID, TotalValue: decimal.Zero}
	for _, b := range batches {
		if !b.Open() {
			continue
		}
		basis.OpenBatches++
		basis.RemainingQuantity += b.RemainingQuantity
		basis.TotalValue = basis.TotalValue.Add(types.LineCost(b.RemainingQuantity, b.UnitPrice))
	}
	basis.WeightedUnitCost = types.WeightedUnitCost(basis.TotalValue, basis.RemainingQuantity)
	return basis, nil
}
