// Package register_repo provides the PostgreSQL stock register repository.
package register_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/registers/stock"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/storage/postgres"
)

const (
	articlesTable  = "articles"
	movementsTable = "stock_movements"
	journalTable   = "stock_journal"
	batchesTable   = "purchase_batches"
)

var (
	movementColumns = postgres.ExtractDBColumns[entity.Movement]()
	journalColumns  = postgres.ExtractDBColumns[entity.JournalEntry]()
	batchColumns    = postgres.ExtractDBColumns[stock.Batch]()
)

// fifoOrder is the consumption order of purchase batches.
const fifoOrder = "purchase_date, created_at, id"

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *StockRepo) exec(ctx context.Context, q squirrel.Sqlizer, op string) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s: %w", op, err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected(), nil
}

func (r *StockRepo) selectInto(ctx context.Context, dst any, q squirrel.Sqlizer, op string) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), dst, sql, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// --- Cached stock ---

func (r *StockRepo) stockQuery(articleID id.ID, forUpdate bool) squirrel.SelectBuilder {
	q := r.builder.Select("stock").From(articlesTable).Where(squirrel.Eq{"id": articleID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	return q
}

func (r *StockRepo) getStock(ctx context.Context, articleID id.ID, forUpdate bool) (int64, error) {
	sql, args, err := r.stockQuery(articleID, forUpdate).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var value int64
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperror.NewNotFound("article", articleID)
		}
		return 0, fmt.Errorf("get stock: %w", err)
	}
	return value, nil
}

// GetStock returns the cached stock.
func (r *StockRepo) GetStock(ctx context.Context, articleID id.ID) (int64, error) {
	return r.getStock(ctx, articleID, false)
}

// GetStockForUpdate locks the article row until the transaction ends.
func (r *StockRepo) GetStockForUpdate(ctx context.Context, articleID id.ID) (int64, error) {
	return r.getStock(ctx, articleID, true)
}

func (r *StockRepo) SetStock(ctx context.Context, articleID id.ID, value int64) error {
	q := r.builder.Update(articlesTable).
		Set("stock", value).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": articleID})

	n, err := r.exec(ctx, q, "set stock")
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NewNotFound("article", articleID)
	}
	return nil
}

func (r *StockRepo) addStockQuery(articleID id.ID, delta int64) squirrel.UpdateBuilder {
	return r.builder.Update(articlesTable).
		Set("stock", squirrel.Expr("stock + ?", delta)).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": articleID}).
		Suffix("RETURNING stock")
}

func (r *StockRepo) AddStock(ctx context.Context, articleID id.ID, delta int64) (int64, error) {
	sql, args, err := r.addStockQuery(articleID, delta).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}

	var value int64
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperror.NewNotFound("article", articleID)
		}
		return 0, fmt.Errorf("add stock: %w", err)
	}
	return value, nil
}

func (r *StockRepo) ListStocks(ctx context.Context) ([]stock.ArticleStock, error) {
	q := r.builder.Select("id", "name", "stock").From(articlesTable).OrderBy("id")

	var out []stock.ArticleStock
	if err := r.selectInto(ctx, &out, q, "list stocks"); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Movements ---

func (r *StockRepo) InsertMovement(ctx context.Context, m entity.Movement) error {
	q := r.builder.Insert(movementsTable).SetMap(postgres.StructToMap(m))
	_, err := r.exec(ctx, q, "insert movement")
	return err
}

func (r *StockRepo) ListMovementsByArticle(ctx context.Context, articleID id.ID) ([]entity.Movement, error) {
	q := r.builder.Select(movementColumns...).From(movementsTable).
		Where(squirrel.Eq{"article_id": articleID}).
		OrderBy("occurred_at", "created_at", "id")

	var out []entity.Movement
	if err := r.selectInto(ctx, &out, q, "list movements"); err != nil {
		return nil, err
	}
	return out, nil
}

func linkWhere(link entity.LinkRef) squirrel.Eq {
	if link.ID == nil {
		return squirrel.Eq{"link_kind": string(link.Kind), "link_id": nil}
	}
	return squirrel.Eq{"link_kind": string(link.Kind), "link_id": *link.ID}
}

func (r *StockRepo) ListMovementsByLink(ctx context.Context, link entity.LinkRef) ([]entity.Movement, error) {
	q := r.builder.Select(movementColumns...).From(movementsTable).
		Where(linkWhere(link)).
		OrderBy("created_at", "id")

	var out []entity.Movement
	if err := r.selectInto(ctx, &out, q, "list linked movements"); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *StockRepo) DeleteMovementsByLink(ctx context.Context, link entity.LinkRef) (int64, error) {
	return r.exec(ctx, r.builder.Delete(movementsTable).Where(linkWhere(link)), "delete linked movements")
}

// --- Journal ---

func (r *StockRepo) InsertJournalEntry(ctx context.Context, e entity.JournalEntry) error {
	q := r.builder.Insert(journalTable).SetMap(postgres.StructToMap(e))
	_, err := r.exec(ctx, q, "insert journal entry")
	return err
}

func (r *StockRepo) ListJournal(ctx context.Context, inventoryID id.ID, articleID *id.ID) ([]entity.JournalEntry, error) {
	q := r.builder.Select(journalColumns...).From(journalTable).
		Where(squirrel.Eq{"inventory_id": inventoryID})
	if articleID != nil {
		q = q.Where(squirrel.Eq{"article_id": *articleID})
	}

	var out []entity.JournalEntry
	if err := r.selectInto(ctx, &out, q.OrderBy("id"), "list journal"); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *StockRepo) DeleteJournalEntries(ctx context.Context, ids []id.ID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.exec(ctx, r.builder.Delete(journalTable).Where(squirrel.Eq{"id": ids}), "delete journal entries")
	return err
}

func (r *StockRepo) laterInventoriesQuery(inventoryID id.ID, articleIDs []id.ID, after id.ID) squirrel.SelectBuilder {
	return r.builder.Select("inventory_id").Distinct().From(journalTable).
		Where(squirrel.Eq{"article_id": articleIDs}).
		Where(squirrel.NotEq{"inventory_id": inventoryID}).
		Where(squirrel.Gt{"id": after}).
		OrderBy("inventory_id")
}

func (r *StockRepo) ListLaterJournalInventories(ctx context.Context, inventoryID id.ID, articleIDs []id.ID, after id.ID) ([]id.ID, error) {
	if len(articleIDs) == 0 {
		return nil, nil
	}

	var out []id.ID
	if err := r.selectInto(ctx, &out, r.laterInventoriesQuery(inventoryID, articleIDs, after), "list later inventories"); err != nil {
		return nil, err
	}
	return out, nil
}

// --- FIFO batches ---

func (r *StockRepo) InsertBatch(ctx context.Context, b stock.Batch) error {
	q := r.builder.Insert(batchesTable).SetMap(postgres.StructToMap(b))
	_, err := r.exec(ctx, q, "insert batch")
	return err
}

func (r *StockRepo) batchesQuery(articleID id.ID, openOnly, forUpdate bool) squirrel.SelectBuilder {
	q := r.builder.Select(batchColumns...).From(batchesTable).
		Where(squirrel.Eq{"article_id": articleID})
	if openOnly {
		q = q.Where(squirrel.Gt{"remaining_quantity": 0})
	}
	q = q.OrderBy(fifoOrder)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	return q
}

func (r *StockRepo) ListOpenBatchesForUpdate(ctx context.Context, articleID id.ID) ([]stock.Batch, error) {
	var out []stock.Batch
	if err := r.selectInto(ctx, &out, r.batchesQuery(articleID, true, true), "lock batches"); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *StockRepo) ListBatches(ctx context.Context, articleID id.ID, openOnly bool) ([]stock.Batch, error) {
	var out []stock.Batch
	if err := r.selectInto(ctx, &out, r.batchesQuery(articleID, openOnly, false), "list batches"); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *StockRepo) UpdateBatchRemaining(ctx context.Context, batchID id.ID, remaining int64) error {
	q := r.builder.Update(batchesTable).
		Set("remaining_quantity", remaining).
		Where(squirrel.Eq{"id": batchID}).
		Where(squirrel.GtOrEq{"remaining_quantity": remaining})

	n, err := r.exec(ctx, q, "update batch remaining")
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NewConflict("batch remaining quantity cannot increase").
			WithDetail("batch_id", batchID.String())
	}
	return nil
}

func (r *StockRepo) DeleteBatchesByPurchase(ctx context.Context, purchaseID id.ID) (int64, error) {
	return r.exec(ctx, r.builder.Delete(batchesTable).Where(squirrel.Eq{"purchase_ref": purchaseID}), "delete batches")
}
