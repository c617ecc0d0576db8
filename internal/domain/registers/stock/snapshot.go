package stock

import (
	"context"
	"fmt"
	"slices"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
)

// Applier turns inventory counts into stock deltas, movements and journal
// entries.
type Applier struct {
	repo     Repository
	recorder *Recorder
	reverter *Reverter
}

// NewApplier creates an inventory snapshot applier.
func NewApplier(repo Repository, recorder *Recorder, reverter *Reverter) *Applier {
	return &Applier{repo: repo, recorder: recorder, reverter: reverter}
}

// ValidateCounts rejects nil article ids and negative counts.
func ValidateCounts(counts map[id.ID]int64) error {
	for articleID, counted := range counts {
		if id.IsNil(articleID) {
			return apperror.NewValidation("article is required")
		}
		if counted < 0 {
			return apperror.NewValidation("counted quantity must not be negative").
				WithDetail("article_id", articleID.String()).
				WithDetail("counted", counted)
		}
	}
	return nil
}

// Apply sets every counted article to its counted quantity.
// Articles are processed in id order. Prior journal entries of this inventory
// for an article are reverted before its new delta is computed, so applying
// the same counts twice leaves one entry per article.
// Returns the journal entries written.
func (a *Applier) Apply(ctx context.Context, inventoryID id.ID, counts map[id.ID]int64) ([]entity.JournalEntry, error) {
	if err := ValidateCounts(counts); err != nil {
		return nil, err
	}

	articles := make([]id.ID, 0, len(counts))
	for articleID := range counts {
		articles = append(articles, articleID)
	}
	slices.SortFunc(articles, id.Compare)

	link := entity.LinkTo(entity.LinkInventory, inventoryID)
	written := make([]entity.JournalEntry, 0, len(articles))

	for _, articleID := range articles {
		if _, err := a.reverter.RevertArticle(ctx, inventoryID, articleID); err != nil {
			return nil, fmt.Errorf("revert prior count of %s: %w", articleID, err)
		}

		current, err := a.repo.GetStockForUpdate(ctx, articleID)
		if err != nil {
			return nil, fmt.Errorf("lock article %s: %w", articleID, err)
		}

		delta := counts[articleID] - current
		if delta == 0 {
			continue
		}

		if _, err := a.recorder.RecordDelta(ctx, articleID, delta, entity.MovementInventory, link, "inventory"); err != nil {
			return nil, fmt.Errorf("record inventory delta for %s: %w", articleID, err)
		}

		entry := entity.NewJournalEntry(inventoryID, articleID, delta)
		if err := a.repo.InsertJournalEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("insert journal entry: %w", err)
		}

		if _, err := a.repo.AddStock(ctx, articleID, delta); err != nil {
			return nil, fmt.Errorf("apply delta to %s: %w", articleID, err)
		}
		written = append(written, entry)
	}

	return written, nil
}
