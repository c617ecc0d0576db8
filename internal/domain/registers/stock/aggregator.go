package stock

import (
	"context"
	"fmt"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/pkg/logger"
)

// Fold sums the signed contribution of movements.
// Unknown types contribute zero and are returned so callers can report them.
func Fold(movements []entity.Movement) (total int64, unknown []entity.Movement) {
	for i := range movements {
		m := &movements[i]
		if !m.Type.Known() {
			unknown = append(unknown, *m)
			continue
		}
		total += m.SignedQuantity()
	}
	return total, unknown
}

// Aggregator derives the authoritative stock from the movement history.
type Aggregator struct {
	repo Repository
}

// NewAggregator creates a stock aggregator.
func NewAggregator(repo Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// Compute folds the article's history without writing anything.
func (a *Aggregator) Compute(ctx context.Context, articleID id.ID) (int64, error) {
	movements, err := a.repo.ListMovementsByArticle(ctx, articleID)
	if err != nil {
		return 0, fmt.Errorf("list movements: %w", err)
	}

	total, unknown := Fold(movements)
	for _, m := range unknown {
		logger.Warn(ctx, "unknown movement type folded as zero",
			"article_id", articleID,
			"movement_id", m.ID,
			"type", string(m.Type),
		)
		countUnknownType(ctx, string(m.Type), "fold")
	}
	return total, nil
}

// Recompute folds the history and stores the result as the cached stock.
// Returns the new value and the previous cached value.
func (a *Aggregator) Recompute(ctx context.Context, articleID id.ID) (computed, cached int64, err error) {
	cached, err = a.repo.GetStockForUpdate(ctx, articleID)
	if err != nil {
		return 0, 0, fmt.Errorf("lock article %s: %w", articleID, err)
	}

	computed, err = a.Compute(ctx, articleID)
	if err != nil {
		return 0, 0, err
	}

	if computed != cached {
		if err := a.repo.SetStock(ctx, articleID, computed); err != nil {
			return 0, 0, fmt.Errorf("set stock: %w", err)
		}
	}
	return computed, cached, nil
}
