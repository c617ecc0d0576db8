// Package stock provides the stock reconciliation engine: movement recording,
// aggregation, inventory snapshots and their reversal, and FIFO costing.
package stock

import (
	"context"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
)

// Repository defines storage operations for the stock engine.
// Every method runs in the transaction carried by ctx when there is one.
type Repository interface {
	// Cached stock (articles.stock)

	// GetStock returns the cached stock. NOT_FOUND for unknown articles.
	GetStock(ctx context.Context, articleID id.ID) (int64, error)

	// GetStockForUpdate returns the cached stock with a row lock.
	GetStockForUpdate(ctx context.Context, articleID id.ID) (int64, error)

	// SetStock overwrites the cached stock (recompute only).
	SetStock(ctx context.Context, articleID id.ID, value int64) error

	// AddStock adds delta to the cached stock and returns the new value.
	AddStock(ctx context.Context, articleID id.ID, delta int64) (int64, error)

	// ListStocks returns the cached stock of every article ordered by id.
	ListStocks(ctx context.Context) ([]ArticleStock, error)

	// Movements

	InsertMovement(ctx context.Context, m entity.Movement) error

	// ListMovementsByArticle returns the full history of an article, oldest first.
	ListMovementsByArticle(ctx context.Context, articleID id.ID) ([]entity.Movement, error)

	ListMovementsByLink(ctx context.Context, link entity.LinkRef) ([]entity.Movement, error)

	// DeleteMovementsByLink removes the movements owned by a purchase or inventory.
	DeleteMovementsByLink(ctx context.Context, link entity.LinkRef) (int64, error)

	// Journal

	InsertJournalEntry(ctx context.Context, e entity.JournalEntry) error

	// ListJournal returns the entries of an inventory ordered by id,
	// optionally restricted to one article.
	ListJournal(ctx context.Context, inventoryID id.ID, articleID *id.ID) ([]entity.JournalEntry, error)

	DeleteJournalEntries(ctx context.Context, ids []id.ID) error

	// ListLaterJournalInventories returns the other inventories holding journal
	// entries on articleIDs written after the entry with id after.
	ListLaterJournalInventories(ctx context.Context, inventoryID id.ID, articleIDs []id.ID, after id.ID) ([]id.ID, error)

	// FIFO batches

	InsertBatch(ctx context.Context, b Batch) error

	// ListOpenBatchesForUpdate locks and returns batches with remaining > 0
	// ordered by purchase_date, created_at, id.
	ListOpenBatchesForUpdate(ctx context.Context, articleID id.ID) ([]Batch, error)

	// ListBatches returns every batch of an article in FIFO order.
	ListBatches(ctx context.Context, articleID id.ID, openOnly bool) ([]Batch, error)

	// UpdateBatchRemaining lowers remaining_quantity. It never raises it.
	UpdateBatchRemaining(ctx context.Context, batchID id.ID, remaining int64) error

	DeleteBatchesByPurchase(ctx context.Context, purchaseID id.ID) (int64, error)
}
