package sqlite

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/registers/stock"
)

// StockRepo implements stock.Repository.
// Write transactions are BEGIN IMMEDIATE, so reads inside one already hold
// the database write lock and need no row locking.
type StockRepo struct {
	txm *TxManager
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates a stock repository.
func NewStockRepo(txm *TxManager) *StockRepo {
	return &StockRepo{txm: txm}
}

// --- Cached stock ---

// GetStock reads the cached stock of an article.
func (r *StockRepo) GetStock(ctx context.Context, articleID id.ID) (int64, error) {
	var m articleModel
	err := r.txm.Conn(ctx).Select("stock").Where("id = ?", articleID).Take(&m).Error
	if err != nil {
		return 0, notFound(err, "article", articleID)
	}
	return m.Stock, nil
}

// GetStockForUpdate is a plain read: the surrounding BEGIN IMMEDIATE
// transaction already holds the write lock.
func (r *StockRepo) GetStockForUpdate(ctx context.Context, articleID id.ID) (int64, error) {
	return r.GetStock(ctx, articleID)
}

// SetStock overwrites the cached stock.
func (r *StockRepo) SetStock(ctx context.Context, articleID id.ID, value int64) error {
	res := r.txm.Conn(ctx).Model(&articleModel{}).
		Where("id = ?", articleID).
		Updates(map[string]any{"stock": value, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("set stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NewNotFound("article", articleID)
	}
	return nil
}

// AddStock adds delta to the cached stock and returns the new value.
func (r *StockRepo) AddStock(ctx context.Context, articleID id.ID, delta int64) (int64, error) {
	res := r.txm.Conn(ctx).Model(&articleModel{}).
		Where("id = ?", articleID).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("add stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, apperror.NewNotFound("article", articleID)
	}
	return r.GetStock(ctx, articleID)
}

// ListStocks returns the cached stock of every article.
func (r *StockRepo) ListStocks(ctx context.Context) ([]stock.ArticleStock, error) {
	var rows []articleModel
	if err := r.txm.Conn(ctx).Select("id", "name", "stock").Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list stocks: %w", err)
	}
	out := make([]stock.ArticleStock, 0, len(rows))
	for _, m := range rows {
		out = append(out, stock.ArticleStock{ArticleID: m.ID, Name: m.Name, Stock: m.Stock})
	}
	return out, nil
}

// --- Movements ---

// InsertMovement appends one movement row.
func (r *StockRepo) InsertMovement(ctx context.Context, m entity.Movement) error {
	row := movementFromDomain(m)
	if err := r.txm.Conn(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// ListMovementsByArticle returns the full history of an article.
func (r *StockRepo) ListMovementsByArticle(ctx context.Context, articleID id.ID) ([]entity.Movement, error) {
	var rows []movementModel
	err := r.txm.Conn(ctx).
		Where("article_id = ?", articleID).
		Order("occurred_at, created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return movementsToDomain(rows), nil
}

// ListMovementsByLink returns the movements owned by a document or event.
func (r *StockRepo) ListMovementsByLink(ctx context.Context, link entity.LinkRef) ([]entity.Movement, error) {
	var rows []movementModel
	err := r.txm.Conn(ctx).
		Where("link_kind = ? AND link_id = ?", string(link.Kind), link.ID).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list linked movements: %w", err)
	}
	return movementsToDomain(rows), nil
}

// DeleteMovementsByLink removes the movements owned by link.
func (r *StockRepo) DeleteMovementsByLink(ctx context.Context, link entity.LinkRef) (int64, error) {
	res := r.txm.Conn(ctx).
		Where("link_kind = ? AND link_id = ?", string(link.Kind), link.ID).
		Delete(&movementModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete linked movements: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func movementsToDomain(rows []movementModel) []entity.Movement {
	out := make([]entity.Movement, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out
}

// --- Journal ---

// InsertJournalEntry records the delta an inventory applied to an article.
func (r *StockRepo) InsertJournalEntry(ctx context.Context, e entity.JournalEntry) error {
	row := journalModel{
		ID:          e.ID,
		InventoryID: e.InventoryID,
		ArticleID:   e.ArticleID,
		Delta:       e.Delta,
		Scope:       string(e.Scope),
		CreatedAt:   e.CreatedAt,
	}
	if err := r.txm.Conn(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// ListJournal returns the journal of an inventory, optionally for one article.
func (r *StockRepo) ListJournal(ctx context.Context, inventoryID id.ID, articleID *id.ID) ([]entity.JournalEntry, error) {
	q := r.txm.Conn(ctx).Where("inventory_id = ?", inventoryID)
	if articleID != nil {
		q = q.Where("article_id = ?", *articleID)
	}

	var rows []journalModel
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}

	out := make([]entity.JournalEntry, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

// DeleteJournalEntries removes journal rows by id.
func (r *StockRepo) DeleteJournalEntries(ctx context.Context, ids []id.ID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.txm.Conn(ctx).Where("id IN ?", ids).Delete(&journalModel{}).Error; err != nil {
		return fmt.Errorf("delete journal entries: %w", err)
	}
	return nil
}

// ListLaterJournalInventories returns the other inventories with journal
// entries newer than after on any of articleIDs.
func (r *StockRepo) ListLaterJournalInventories(ctx context.Context, inventoryID id.ID, articleIDs []id.ID, after id.ID) ([]id.ID, error) {
	if len(articleIDs) == 0 {
		return nil, nil
	}

	var out []id.ID
	err := r.txm.Conn(ctx).Model(&journalModel{}).
		Distinct("inventory_id").
		Where("article_id IN ? AND inventory_id <> ? AND id > ?", articleIDs, inventoryID, after).
		Order("inventory_id").
		Pluck("inventory_id", &out).Error
	if err != nil {
		return nil, fmt.Errorf("list later inventories: %w", err)
	}
	return out, nil
}

// --- FIFO batches ---

// InsertBatch opens a FIFO batch.
func (r *StockRepo) InsertBatch(ctx context.Context, b stock.Batch) error {
	row := batchModel(b)
	if err := r.txm.Conn(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// ListOpenBatchesForUpdate returns batches with stock left in FIFO order.
// No row lock is taken, see GetStockForUpdate.
func (r *StockRepo) ListOpenBatchesForUpdate(ctx context.Context, articleID id.ID) ([]stock.Batch, error) {
	return r.ListBatches(ctx, articleID, true)
}

// ListBatches returns the batches of an article in FIFO order.
func (r *StockRepo) ListBatches(ctx context.Context, articleID id.ID, openOnly bool) ([]stock.Batch, error) {
	q := r.txm.Conn(ctx).Where("article_id = ?", articleID)
	if openOnly {
		q = q.Where("remaining_quantity > 0")
	}

	var rows []batchModel
	if err := q.Order("purchase_date, created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	out := make([]stock.Batch, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

// UpdateBatchRemaining stores what is left of a batch after consumption.
// The schema CHECK rejects values outside [0, quantity].
func (r *StockRepo) UpdateBatchRemaining(ctx context.Context, batchID id.ID, remaining int64) error {
	res := r.txm.Conn(ctx).Model(&batchModel{}).
		Where("id = ? AND remaining_quantity >= ?", batchID, remaining).
		Update("remaining_quantity", remaining)
	if res.Error != nil {
		return fmt.Errorf("update batch remaining: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NewConflict("batch remaining quantity cannot increase").
			WithDetail("batch_id", batchID.String())
	}
	return nil
}

// DeleteBatchesByPurchase removes the batches opened by a purchase.
func (r *StockRepo) DeleteBatchesByPurchase(ctx context.Context, purchaseID id.ID) (int64, error) {
	res := r.txm.Conn(ctx).Where("purchase_ref = ?", purchaseID).Delete(&batchModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete batches: %w", res.Error)
	}
	return res.RowsAffected, nil
}
