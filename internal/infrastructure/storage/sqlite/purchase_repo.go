package sqlite

import (
	"context"
	"fmt"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/documents/purchase"
)

// PurchaseRepo implements purchase.Repository.
type PurchaseRepo struct {
	txm *TxManager
}

var _ purchase.Repository = (*PurchaseRepo)(nil)

// NewPurchaseRepo creates a purchase repository.
func NewPurchaseRepo(txm *TxManager) *PurchaseRepo {
	return &PurchaseRepo{txm: txm}
}

func (r *PurchaseRepo) Create(ctx context.Context, p *purchase.Purchase) error {
	row := purchaseModel(*p)
	if err := r.txm.Conn(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

func (r *PurchaseRepo) Get(ctx context.Context, purchaseID id.ID) (*purchase.Purchase, error) {
	var m purchaseModel
	if err := r.txm.Conn(ctx).Where("id = ?", purchaseID).Take(&m).Error; err != nil {
		return nil, notFound(err, "purchase", purchaseID)
	}
	p := m.toDomain()
	return &p, nil
}

func (r *PurchaseRepo) List(ctx context.Context, filter purchase.ListFilter) ([]*purchase.Purchase, error) {
	q := r.txm.Conn(ctx).Model(&purchaseModel{})
	if filter.ArticleID != nil {
		q = q.Where("article_id = ?", *filter.ArticleID)
	}
	if filter.FiscalYear != "" {
		q = q.Where("fiscal_year = ?", filter.FiscalYear)
	}
	if filter.DateFrom != nil {
		q = q.Where("purchase_date >= ?", filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		q = q.Where("purchase_date <= ?", filter.DateTo.UTC())
	}

	var rows []purchaseModel
	if err := q.Order("purchase_date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}

	out := make([]*purchase.Purchase, 0, len(rows))
	for _, m := range rows {
		p := m.toDomain()
		out = append(out, &p)
	}
	return out, nil
}

func (r *PurchaseRepo) Update(ctx context.Context, p *purchase.Purchase) error {
	res := r.txm.Conn(ctx).Model(&purchaseModel{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"article_id":    p.ArticleID,
			"purchase_date": p.PurchaseDate,
			"quantity":      p.Quantity,
			"unit_price":    p.UnitPrice,
			"supplier":      p.Supplier,
			"invoice_ref":   p.InvoiceRef,
			"fiscal_year":   p.FiscalYear,
		})
	if res.Error != nil {
		return fmt.Errorf("update purchase: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NewNotFound("purchase", p.ID)
	}
	return nil
}

func (r *PurchaseRepo) Delete(ctx context.Context, purchaseID id.ID) error {
	res := r.txm.Conn(ctx).Where("id = ?", purchaseID).Delete(&purchaseModel{})
	if res.Error != nil {
		return fmt.Errorf("delete purchase: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NewNotFound("purchase", purchaseID)
	}
	return nil
}
