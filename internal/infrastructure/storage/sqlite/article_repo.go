package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/catalogs/article"
)

// ArticleRepo implements article.Repository.
type ArticleRepo struct {
	txm *TxManager
}

var _ article.Repository = (*ArticleRepo)(nil)

// NewArticleRepo creates an article repository.
func NewArticleRepo(txm *TxManager) *ArticleRepo {
	return &ArticleRepo{txm: txm}
}

func (r *ArticleRepo) Create(ctx context.Context, a *article.Article) error {
	row := articleModel{
		ID:            a.ID,
		Name:          a.Name,
		Category:      a.Category,
		Stock:         0,
		Unit:          a.Unit,
		PurchasePrice: a.PurchasePrice,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
	if err := r.txm.Conn(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

func (r *ArticleRepo) Get(ctx context.Context, articleID id.ID) (*article.Article, error) {
	var m articleModel
	if err := r.txm.Conn(ctx).Where("id = ?", articleID).Take(&m).Error; err != nil {
		return nil, notFound(err, "article", articleID)
	}
	a := m.toDomain()
	return &a, nil
}

func (r *ArticleRepo) List(ctx context.Context, filter article.ListFilter) ([]*article.Article, error) {
	q := r.txm.Conn(ctx).Model(&articleModel{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		q = q.Where("name LIKE ?", "%"+filter.Search+"%")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var rows []articleModel
	if err := q.Order("name, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	out := make([]*article.Article, 0, len(rows))
	for _, m := range rows {
		a := m.toDomain()
		out = append(out, &a)
	}
	return out, nil
}

func (r *ArticleRepo) UpdateDetails(ctx context.Context, a *article.Article) error {
	res := r.txm.Conn(ctx).Model(&articleModel{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"name":       a.Name,
			"category":   a.Category,
			"unit":       a.Unit,
			"updated_at": a.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("update article: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NewNotFound("article", a.ID)
	}
	return nil
}

func (r *ArticleRepo) SetPurchasePrice(ctx context.Context, articleID id.ID, price decimal.Decimal) error {
	res := r.txm.Conn(ctx).Model(&articleModel{}).
		Where("id = ?", articleID).
		Updates(map[string]any{
			"purchase_price": decimal.NewNullDecimal(price),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("set purchase price: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NewNotFound("article", articleID)
	}
	return nil
}
