package article

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
)

// Repository defines the interface for Article persistence.
// It never writes the stock column.
type Repository interface {
	Create(ctx context.Context, a *Article) error

	// Get returns NOT_FOUND for unknown ids.
	Get(ctx context.Context, articleID id.ID) (*Article, error)

	List(ctx context.Context, filter ListFilter) ([]*Article, error)

	// UpdateDetails writes name, category and unit.
	UpdateDetails(ctx context.Context, a *Article) error

	// SetPurchasePrice records the latest known unit cost.
	SetPurchasePrice(ctx context.Context, articleID id.ID, price decimal.Decimal) error
}
