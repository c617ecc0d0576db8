package stock

import (
	"context"
	"fmt"
	"slices"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/lock"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/tx"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/validation"
	"github.com/DarkSario/2025-Interactifs-Gestion/pkg/logger"
)

// Options tune engine policies.
type Options struct {
	// StrictRevertOrder rejects out-of-order inventory reverts with
	// REVERT_OUT_OF_ORDER instead of keeping the recomputed value.
	StrictRevertOrder bool
}

// Service is the entry point of the stock engine.
// Every operation runs in one transaction; when ctx already carries one
// (document services) it is reused, so the caller's unit of work stays atomic.
type Service struct {
	repo   Repository
	txm    tx.Manager
	locker lock.Locker

	recorder   *Recorder
	aggregator *Aggregator
	reverter   *Reverter
	applier    *Applier
	fifo       *CostTracker
}

// NewService creates a new stock engine service.
func NewService(repo Repository, txm tx.Manager, locker lock.Locker, opts Options) *Service {
	if locker == nil {
		locker = lock.Nop{}
	}
	recorder := NewRecorder(repo)
	aggregator := NewAggregator(repo)
	reverter := NewReverter(repo, recorder, aggregator, opts.StrictRevertOrder)

	return &Service{
		repo:       repo,
		txm:        txm,
		locker:     locker,
		recorder:   recorder,
		aggregator: aggregator,
		reverter:   reverter,
		applier:    NewApplier(repo, recorder, reverter),
		fifo:       NewCostTracker(repo),
	}
}

// ApplyInventory sets each counted article to its counted quantity and
// journals the applied deltas under inventoryID.
func (s *Service) ApplyInventory(ctx context.Context, inventoryID id.ID, counts map[id.ID]int64) error {
	if id.IsNil(inventoryID) {
		return apperror.NewValidation("inventory is required")
	}
	if err := ValidateCounts(counts); err != nil {
		return err
	}

	var written []entity.JournalEntry
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		entries, err := s.applier.Apply(ctx, inventoryID, counts)
		written = entries
		return err
	})
	if err != nil {
		return fmt.Errorf("apply inventory %s: %w", inventoryID, err)
	}

	logger.Info(ctx, "inventory applied",
		"inventory_id", inventoryID,
		"articles", len(counts),
		"journal_entries", len(written),
	)
	return nil
}

// RevertInventory undoes every journal entry of the inventory and
// recomputes the touched articles. Reverting twice is a no-op.
func (s *Service) RevertInventory(ctx context.Context, inventoryID id.ID) (RevertReport, error) {
	if id.IsNil(inventoryID) {
		return RevertReport{}, apperror.NewValidation("inventory is required")
	}

	var report RevertReport
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		report, err = s.reverter.Revert(ctx, inventoryID)
		return err
	})
	if err != nil {
		return RevertReport{}, fmt.Errorf("revert inventory %s: %w", inventoryID, err)
	}

	if report.Entries > 0 {
		logger.Info(ctx, "inventory reverted",
			"inventory_id", inventoryID,
			"entries", report.Entries,
			"corrected", len(report.Corrected),
		)
	}
	return report, nil
}

// RecordMovement records a movement and applies its signed amount to the
// cached stock. Purchases with a unit price open a FIFO batch; exits
// consume FIFO batches. Inventory links are reserved for the engine.
func (s *Service) RecordMovement(ctx context.Context, in MovementInput) (MovementResult, error) {
	if err := validation.Struct(in); err != nil {
		return MovementResult{}, err
	}
	if id.IsNil(in.ArticleID) {
		return MovementResult{}, apperror.NewValidation("article is required")
	}
	if in.LinkKind != entity.LinkNone && in.LinkID == nil {
		return MovementResult{}, apperror.NewValidation("link id is required with a link kind")
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return MovementResult{}, apperror.NewValidation("unit price must not be negative")
	}

	var result MovementResult
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetStockForUpdate(ctx, in.ArticleID)
		if err != nil {
			return fmt.Errorf("lock article: %w", err)
		}

		m, err := s.recorder.Record(ctx, in.ArticleID, in.Type, in.Quantity, in.link(), in.Note, in.OccurredAt)
		if err != nil {
			return err
		}
		if id.IsNil(m.ID) {
			result = MovementResult{Stock: current}
			return nil
		}

		stock, err := s.repo.AddStock(ctx, in.ArticleID, m.SignedQuantity())
		if err != nil {
			return fmt.Errorf("update stock: %w", err)
		}
		result = MovementResult{MovementID: m.ID, Stock: stock}

		switch in.Type {
		case entity.MovementPurchase:
			if in.UnitPrice == nil {
				return nil
			}
			var ref *id.ID
			if in.LinkKind == entity.LinkPurchase {
				ref = in.LinkID
			}
			b, err := s.fifo.CreateBatch(ctx, BatchInput{
				ArticleID:    in.ArticleID,
				Quantity:     in.Quantity,
				UnitPrice:    *in.UnitPrice,
				PurchaseDate: m.OccurredAt,
				PurchaseRef:  ref,
			})
			if err != nil {
				return err
			}
			result.BatchID = &b.ID

		case entity.MovementExit:
			consumption, err := s.fifo.Consume(ctx, in.ArticleID, in.Quantity)
			if err != nil {
				return err
			}
			result.Consumption = &consumption
		}
		return nil
	})
	if err != nil {
		return MovementResult{}, fmt.Errorf("record movement: %w", err)
	}

	if !result.Skipped() {
		logger.Info(ctx, "movement recorded",
			"movement_id", result.MovementID,
			"article_id", in.ArticleID,
			"type", string(in.Type),
			"quantity", in.Quantity,
			"stock", result.Stock,
		)
	}
	return result, nil
}

// RecomputeStock rebuilds the cached stock of one article from its history.
func (s *Service) RecomputeStock(ctx context.Context, articleID id.ID) (int64, error) {
	var computed, cached int64
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		computed, cached, err = s.aggregator.Recompute(ctx, articleID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("recompute stock %s: %w", articleID, err)
	}

	if computed != cached {
		logger.Warn(ctx, "cached stock corrected",
			"article_id", articleID,
			"cached", cached,
			"computed", computed,
		)
	}
	return computed, nil
}

// Stock returns the cached stock of an article.
func (s *Service) Stock(ctx context.Context, articleID id.ID) (int64, error) {
	return s.repo.GetStock(ctx, articleID)
}

// ConsumeFIFO takes qty from the oldest open batches of the article.
func (s *Service) ConsumeFIFO(ctx context.Context, articleID id.ID, qty int64) (ConsumeResult, error) {
	var result ConsumeResult
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetStockForUpdate(ctx, articleID); err != nil {
			return fmt.Errorf("lock article: %w", err)
		}
		var err error
		result, err = s.fifo.Consume(ctx, articleID, qty)
		return err
	})
	if err != nil {
		return ConsumeResult{}, fmt.Errorf("consume fifo: %w", err)
	}
	return result, nil
}

// CreateBatch opens a FIFO batch.
func (s *Service) CreateBatch(ctx context.Context, in BatchInput) (id.ID, error) {
	var b Batch
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.fifo.CreateBatch(ctx, in)
		return err
	})
	if err != nil {
		return id.Nil(), fmt.Errorf("create batch: %w", err)
	}
	return b.ID, nil
}

// Batches lists the batches of an article in FIFO order.
func (s *Service) Batches(ctx context.Context, articleID id.ID, openOnly bool) ([]Batch, error) {
	return s.repo.ListBatches(ctx, articleID, openOnly)
}

// CostBasis values the open batches of an article.
func (s *Service) CostBasis(ctx context.Context, articleID id.ID) (CostBasis, error) {
	return s.fifo.CostBasis(ctx, articleID)
}

// Audit compares every cached stock with its movement history without
// writing anything.
func (s *Service) Audit(ctx context.Context) ([]Drift, error) {
	var drifts []Drift
	err := s.readOnly(ctx, func(ctx context.Context) error {
		stocks, err := s.repo.ListStocks(ctx)
		if err != nil {
			return fmt.Errorf("list stocks: %w", err)
		}
		for _, st := range stocks {
			computed, err := s.aggregator.Compute(ctx, st.ArticleID)
			if err != nil {
				return err
			}
			if computed != st.Stock {
				drifts = append(drifts, Drift{
					ArticleID: st.ArticleID,
					Name:      st.Name,
					Cached:    st.Stock,
					Computed:  computed,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("audit stock: %w", err)
	}
	return drifts, nil
}

// RecomputeAll rebuilds the cached stock of every article under the
// cross-process file lock.
func (s *Service) RecomputeAll(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	err := lock.With(ctx, s.locker, func(ctx context.Context) error {
		return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			report = ReconcileReport{}
			stocks, err := s.repo.ListStocks(ctx)
			if err != nil {
				return fmt.Errorf("list stocks: %w", err)
			}
			for _, st := range stocks {
				computed, cached, err := s.aggregator.Recompute(ctx, st.ArticleID)
				if err != nil {
					return fmt.Errorf("recompute %s: %w", st.ArticleID, err)
				}
				report.Articles++
				if computed != cached {
					report.Corrected = append(report.Corrected, Drift{
						ArticleID: st.ArticleID,
						Name:      st.Name,
						Cached:    cached,
						Computed:  computed,
					})
				}
			}
			return nil
		})
	})
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("recompute all: %w", err)
	}

	logger.Info(ctx, "stock reconciled",
		"articles", report.Articles,
		"corrected", len(report.Corrected),
	)
	return report, nil
}

// JournalFor returns the journal entries currently held by an inventory.
func (s *Service) JournalFor(ctx context.Context, inventoryID id.ID) ([]entity.JournalEntry, error) {
	return s.repo.ListJournal(ctx, inventoryID, nil)
}

// Movements returns the history of an article, oldest first.
func (s *Service) Movements(ctx context.Context, articleID id.ID) ([]entity.Movement, error) {
	return s.repo.ListMovementsByArticle(ctx, articleID)
}

// DeleteLinkedMovements removes the movements owned by a purchase or an
// inventory and recomputes every article they touched, in one transaction.
// Inventories must be reverted first so their journal is empty.
// Returns the recomputed stock per touched article.
func (s *Service) DeleteLinkedMovements(ctx context.Context, link entity.LinkRef) (map[id.ID]int64, error) {
	if !link.Complete() {
		return nil, apperror.NewValidation("link is required")
	}

	stocks := make(map[id.ID]int64)
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		movements, err := s.repo.ListMovementsByLink(ctx, link)
		if err != nil {
			return fmt.Errorf("list linked movements: %w", err)
		}
		if len(movements) == 0 {
			return nil
		}
		if _, err := s.repo.DeleteMovementsByLink(ctx, link); err != nil {
			return fmt.Errorf("delete linked movements: %w", err)
		}

		articles := make([]id.ID, 0, len(movements))
		for _, m := range movements {
			if _, seen := stocks[m.ArticleID]; seen {
				continue
			}
			stocks[m.ArticleID] = 0
			articles = append(articles, m.ArticleID)
		}
		slices.SortFunc(articles, id.Compare)

		for _, articleID := range articles {
			computed, _, err := s.aggregator.Recompute(ctx, articleID)
			if err != nil {
				return fmt.Errorf("recompute %s: %w", articleID, err)
			}
			stocks[articleID] = computed
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete movements of %s %s: %w", link.Kind, *link.ID, err)
	}
	return stocks, nil
}

// DeleteBatchesByPurchase removes the FIFO batches opened by a purchase.
func (s *Service) DeleteBatchesByPurchase(ctx context.Context, purchaseID id.ID) (int64, error) {
	n, err := s.repo.DeleteBatchesByPurchase(ctx, purchaseID)
	if err != nil {
		return 0, fmt.Errorf("delete batches: %w", err)
	}
	return n, nil
}

func (s *Service) readOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if ro, ok := s.txm.(tx.ReadOnlyManager); ok {
		return ro.ReadOnly(ctx, fn)
	}
	return s.txm.RunInTransaction(ctx, fn)
}
