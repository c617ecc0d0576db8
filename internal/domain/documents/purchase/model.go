// Package purchase provides the purchase document: goods bought from a
// supplier, which add stock, open a FIFO cost batch and update the article's
// latest purchase price.
package purchase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/types"
)

// Purchase is one purchased quantity of an article.
type Purchase struct {
	ID           id.ID           `db:"id" json:"id"`
	ArticleID    id.ID           `db:"article_id" json:"articleId"`
	PurchaseDate time.Time       `db:"purchase_date" json:"purchaseDate"`
	Quantity     int64           `db:"quantity" json:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unitPrice"`
	Supplier     string          `db:"supplier" json:"supplier,omitempty"`
	InvoiceRef   string          `db:"invoice_ref" json:"invoiceRef,omitempty"`

	// FiscalYear is a free label such as "2024-2025".
	FiscalYear string    `db:"fiscal_year" json:"fiscalYear,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Total returns Quantity times UnitPrice.
func (p *Purchase) Total() decimal.Decimal {
	return types.LineCost(p.Quantity, p.UnitPrice)
}

// Validate implements entity.Validatable.
func (p *Purchase) Validate(ctx context.Context) error {
	if id.IsNil(p.ArticleID) {
		return apperror.NewValidation("article is required").
			WithDetail("field", "articleId")
	}
	if p.Quantity <= 0 {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}
	if p.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").
			WithDetail("field", "unitPrice")
	}
	if p.PurchaseDate.IsZero() {
		return apperror.NewValidation("purchase date is required").
			WithDetail("field", "purchaseDate")
	}
	return nil
}

// ListFilter for filtering purchases.
type ListFilter struct {
	ArticleID  *id.ID
	FiscalYear string
	DateFrom   *time.Time
	DateTo     *time.Time
}
