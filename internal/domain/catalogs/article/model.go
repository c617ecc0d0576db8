// Package article provides the article catalog: the sellable items of the
// buvette whose stock the engine tracks.
package article

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
)

// Article is a sellable item.
// Stock is the cached fold of the article's movements. Only the stock
// engine writes it.
type Article struct {
	ID       id.ID  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Category string `db:"category" json:"category,omitempty"`
	Stock    int64  `db:"stock" json:"stock"`
	Unit     string `db:"unit" json:"unit,omitempty"`

	// PurchasePrice is the latest known unit cost.
	PurchasePrice decimal.NullDecimal `db:"purchase_price" json:"purchasePrice"`

	entity.Timestamps
}

// NewArticle creates an article with zero stock.
func NewArticle(name, category, unit string) *Article {
	return &Article{
		ID:         id.New(),
		Name:       strings.TrimSpace(name),
		Category:   strings.TrimSpace(category),
		Unit:       strings.TrimSpace(unit),
		Timestamps: entity.NewTimestamps(),
	}
}

// Validate implements entity.Validatable interface.
func (a *Article) Validate(ctx context.Context) error {
	if a.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if a.PurchasePrice.Valid && a.PurchasePrice.Decimal.IsNegative() {
		return apperror.NewValidation("purchase price cannot be negative").
			WithDetail("field", "purchasePrice")
	}
	return nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Category string
	Search   string
	Limit    int
	Offset   int
}
