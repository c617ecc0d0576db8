package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/documents/purchase"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/storage/postgres"
)

const purchasesTable = "purchases"

// PurchaseRepo implements purchase.Repository.
type PurchaseRepo struct {
	*BaseDocumentRepo[purchase.Purchase]
}

var _ purchase.Repository = (*PurchaseRepo)(nil)

// NewPurchaseRepo creates a new purchase repository.
func NewPurchaseRepo(txm *postgres.TxManager) *PurchaseRepo {
	return &PurchaseRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[purchase.Purchase](txm, purchasesTable, "purchase"),
	}
}

func (r *PurchaseRepo) Get(ctx context.Context, purchaseID id.ID) (*purchase.Purchase, error) {
	return r.GetByID(ctx, purchaseID)
}

func (r *PurchaseRepo) listQuery(filter purchase.ListFilter) squirrel.SelectBuilder {
	q := r.Select()
	if filter.ArticleID != nil {
		q = q.Where(squirrel.Eq{"article_id": *filter.ArticleID})
	}
	if filter.FiscalYear != "" {
		q = q.Where(squirrel.Eq{"fiscal_year": filter.FiscalYear})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"purchase_date": filter.DateFrom.UTC()})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"purchase_date": filter.DateTo.UTC()})
	}
	return q.OrderBy("purchase_date DESC", "id DESC")
}

func (r *PurchaseRepo) List(ctx context.Context, filter purchase.ListFilter) ([]*purchase.Purchase, error) {
	return r.Find(ctx, r.listQuery(filter))
}

func (r *PurchaseRepo) Update(ctx context.Context, p *purchase.Purchase) error {
	return r.BaseDocumentRepo.Update(ctx, p.ID, p)
}
