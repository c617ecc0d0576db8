package purchase

import (
	"context"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
)

// Repository defines operations for purchase documents.
type Repository interface {
	Create(ctx context.Context, p *Purchase) error
	Get(ctx context.Context, purchaseID id.ID) (*Purchase, error)
	List(ctx context.Context, filter ListFilter) ([]*Purchase, error)

	// Update rewrites every field except ID and CreatedAt.
	Update(ctx context.Context, p *Purchase) error
	Delete(ctx context.Context, purchaseID id.ID) error
}
