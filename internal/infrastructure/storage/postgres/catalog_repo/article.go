// Package catalog_repo provides the PostgreSQL article catalog repository.
package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/catalogs/article"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/storage/postgres"
)

const articlesTable = "articles"

var articleColumns = postgres.ExtractDBColumns[article.Article]()

// ArticleRepo implements article.Repository.
type ArticleRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ article.Repository = (*ArticleRepo)(nil)

// NewArticleRepo creates a new article repository.
func NewArticleRepo(txm *postgres.TxManager) *ArticleRepo {
	return &ArticleRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ArticleRepo) exec(ctx context.Context, q squirrel.Sqlizer, op string) (int64, error) {
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

// Create inserts the article with a zero cached stock.
func (r *ArticleRepo) Create(ctx context.Context, a *article.Article) error {
	data := postgres.StructToMap(a)
	data["stock"] = int64(0)

	_, err := r.exec(ctx, r.builder.Insert(articlesTable).SetMap(data), "insert article")
	return err
}

func (r *ArticleRepo) Get(ctx context.Context, articleID id.ID) (*article.Article, error) {
	sql, args, err := r.builder.Select(articleColumns...).From(articlesTable).
		Where(squirrel.Eq{"id": articleID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var a article.Article
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &a, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("article", articleID)
		}
		return nil, fmt.Errorf("get article: %w", err)
	}
	return &a, nil
}

func (r *ArticleRepo) listQuery(filter article.ListFilter) squirrel.SelectBuilder {
	q := r.builder.Select(articleColumns...).From(articlesTable)
	if filter.Category != "" {
		q = q.Where(squirrel.Eq{"category": filter.Category})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"name": "%" + filter.Search + "%"})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q.OrderBy("name", "id")
}

func (r *ArticleRepo) List(ctx context.Context, filter article.ListFilter) ([]*article.Article, error) {
	sql, args, err := r.listQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*article.Article
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return out, nil
}

// UpdateDetails writes name, category and unit. The stock column is untouched.
func (r *ArticleRepo) UpdateDetails(ctx context.Context, a *article.Article) error {
	q := r.builder.Update(articlesTable).
		Set("name", a.Name).
		Set("category", a.Category).
		Set("unit", a.Unit).
		Set("updated_at", a.UpdatedAt).
		Where(squirrel.Eq{"id": a.ID})

	n, err := r.exec(ctx, q, "update article")
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NewNotFound("article", a.ID)
	}
	return nil
}

func (r *ArticleRepo) SetPurchasePrice(ctx context.Context, articleID id.ID, price decimal.Decimal) error {
	q := r.builder.Update(articlesTable).
		Set("purchase_price", price).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": articleID})

	n, err := r.exec(ctx, q, "set purchase price")
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NewNotFound("article", articleID)
	}
	return nil
}
