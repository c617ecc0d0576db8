package stock

import (
	"context"
	"fmt"
	"slices"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/pkg/logger"
)

// Reverter undoes the stock effect of an inventory by replaying its journal
// entries negated. The recompute that follows every revert is authoritative.
type Reverter struct {
	repo       Repository
	recorder   *Recorder
	aggregator *Aggregator

	// strictOrder rejects reverting an inventory while a newer inventory
	// still holds journal entries for the same articles.
	strictOrder bool
}

// NewReverter creates an inventory reverter.
func NewReverter(repo Repository, recorder *Recorder, aggregator *Aggregator, strictOrder bool) *Reverter {
	return &Reverter{
		repo:        repo,
		recorder:    recorder,
		aggregator:  aggregator,
		strictOrder: strictOrder,
	}
}

// Revert replays every journal entry of the inventory. No entries is a no-op.
func (r *Reverter) Revert(ctx context.Context, inventoryID id.ID) (RevertReport, error) {
	entries, err := r.repo.ListJournal(ctx, inventoryID, nil)
	if err != nil {
		return RevertReport{}, fmt.Errorf("list journal: %w", err)
	}
	return r.revertEntries(ctx, inventoryID, entries)
}

// RevertArticle replays the journal entries of one article of the inventory.
func (r *Reverter) RevertArticle(ctx context.Context, inventoryID, articleID id.ID) (RevertReport, error) {
	entries, err := r.repo.ListJournal(ctx, inventoryID, &articleID)
	if err != nil {
		return RevertReport{}, fmt.Errorf("list journal: %w", err)
	}
	return r.revertEntries(ctx, inventoryID, entries)
}

func (r *Reverter) revertEntries(ctx context.Context, inventoryID id.ID, entries []entity.JournalEntry) (RevertReport, error) {
	report := RevertReport{
		InventoryID: inventoryID,
		Stocks:      make(map[id.ID]int64),
	}
	if len(entries) == 0 {
		return report, nil
	}

	articles := touchedArticles(entries)

	if r.strictOrder {
		last := slices.MaxFunc(entries, func(a, b entity.JournalEntry) int {
			return id.Compare(a.ID, b.ID)
		})
		newer, err := r.repo.ListLaterJournalInventories(ctx, inventoryID, articles, last.ID)
		if err != nil {
			return RevertReport{}, fmt.Errorf("check newer inventories: %w", err)
		}
		if len(newer) > 0 {
			return RevertReport{}, apperror.NewRevertOutOfOrder(inventoryID, id.Strings(newer))
		}
	}

	link := entity.LinkTo(entity.LinkInventory, inventoryID)
	ids := make([]id.ID, 0, len(entries))

	for _, e := range entries {
		if _, err := r.recorder.RecordDelta(ctx, e.ArticleID, -e.Delta, entity.MovementInventory, link, "inventory revert"); err != nil {
			return RevertReport{}, fmt.Errorf("record compensation for %s: %w", e.ArticleID, err)
		}
		if _, err := r.repo.AddStock(ctx, e.ArticleID, -e.Delta); err != nil {
			return RevertReport{}, fmt.Errorf("restore stock of %s: %w", e.ArticleID, err)
		}
		ids = append(ids, e.ID)
	}

	if err := r.repo.DeleteJournalEntries(ctx, ids); err != nil {
		return RevertReport{}, fmt.Errorf("delete journal entries: %w", err)
	}
	report.Entries = len(entries)

	for _, articleID := range articles {
		computed, incremental, err := r.aggregator.Recompute(ctx, articleID)
		if err != nil {
			return RevertReport{}, fmt.Errorf("recompute %s: %w", articleID, err)
		}
		if computed != incremental {
			logger.Warn(ctx, "revert disagreed with movement history, recomputed value kept",
				"inventory_id", inventoryID,
				"article_id", articleID,
				"incremental", incremental,
				"recomputed", computed,
			)
			report.Corrected = append(report.Corrected, Drift{
				ArticleID: articleID,
				Cached:    incremental,
				Computed:  computed,
			})
		}
		report.Stocks[articleID] = computed
	}

	return report, nil
}

// touchedArticles returns the distinct article ids of entries, sorted.
func touchedArticles(entries []entity.JournalEntry) []id.ID {
	seen := make(map[id.ID]struct{}, len(entries))
	out := make([]id.ID, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.ArticleID]; ok {
			continue
		}
		seen[e.ArticleID] = struct{}{}
		out = append(out, e.ArticleID)
	}
	slices.SortFunc(out, id.Compare)
	return out
}
