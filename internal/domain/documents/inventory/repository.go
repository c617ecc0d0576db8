package inventory

import (
	"context"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
)

// Repository defines operations for inventory documents.
type Repository interface {
	Create(ctx context.Context, inv *Inventory) error
	Get(ctx context.Context, inventoryID id.ID) (*Inventory, error)
	List(ctx context.Context, filter ListFilter) ([]*Inventory, error)
	SetApplied(ctx context.Context, inventoryID id.ID, applied bool) error
	UpdateHeader(ctx context.Context, inv *Inventory) error
	Delete(ctx context.Context, inventoryID id.ID) error

	GetLines(ctx context.Context, inventoryID id.ID) ([]Line, error)

	// UpsertLine inserts or replaces the line of (inventory, article) and
	// returns the stored row. An existing line keeps its id.
	UpsertLine(ctx context.Context, line Line) (Line, error)
	DeleteLine(ctx context.Context, inventoryID, articleID id.ID) error
	DeleteLines(ctx context.Context, inventoryID id.ID) error
}
