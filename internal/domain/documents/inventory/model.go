// Package inventory provides the inventory count document: a dated header
// with one counted quantity per article, applied to stock through the
// snapshot applier and removed through the reverter.
package inventory

import (
	"context"
	"time"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
)

// Kind places an inventory relative to an event.
type Kind string

const (
	KindBefore     Kind = "before"     // count taken before an event
	KindAfter      Kind = "after"      // count taken after an event
	KindStandalone Kind = "standalone" // count outside any event
)

// Valid reports whether k is a known inventory kind.
func (k Kind) Valid() bool {
	switch k {
	case KindBefore, KindAfter, KindStandalone:
		return true
	}
	return false
}

// Inventory is an inventory count header.
type Inventory struct {
	ID            id.ID     `db:"id" json:"id"`
	InventoryDate time.Time `db:"inventory_date" json:"inventoryDate"`
	EventID       *string   `db:"event_id" json:"eventId,omitempty"`
	Kind          Kind      `db:"kind" json:"kind"`
	Comment       string    `db:"comment" json:"comment,omitempty"`

	// Applied is set once the lines have been applied to stock.
	Applied   bool      `db:"applied" json:"applied"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is the counted quantity of one article.
type Line struct {
	ID          id.ID  `db:"id" json:"id"`
	InventoryID id.ID  `db:"inventory_id" json:"inventoryId"`
	ArticleID   id.ID  `db:"article_id" json:"articleId"`
	Counted     int64  `db:"counted" json:"counted"`
	Comment     string `db:"comment" json:"comment,omitempty"`
}

// NewInventory creates an inventory header.
func NewInventory(date time.Time, kind Kind, eventID *string, comment string) *Inventory {
	return &Inventory{
		ID:            id.New(),
		InventoryDate: date.UTC(),
		EventID:       eventID,
		Kind:          kind,
		Comment:       comment,
		CreatedAt:     time.Now().UTC(),
		Lines:         make([]Line, 0),
	}
}

// Validate implements entity.Validatable.
func (inv *Inventory) Validate(ctx context.Context) error {
	if inv.InventoryDate.IsZero() {
		return apperror.NewValidation("inventory date is required").
			WithDetail("field", "inventoryDate")
	}

	if !inv.Kind.Valid() {
		return apperror.NewValidation("invalid inventory kind").
			WithDetail("field", "kind").
			WithDetail("value", string(inv.Kind))
	}

	if inv.Kind != KindStandalone && (inv.EventID == nil || *inv.EventID == "") {
		return apperror.NewValidation("event is required for event inventories").
			WithDetail("field", "eventId")
	}

	return nil
}

// Counts returns the lines as an article to counted quantity map.
func (inv *Inventory) Counts() map[id.ID]int64 {
	counts := make(map[id.ID]int64, len(inv.Lines))
	for _, l := range inv.Lines {
		counts[l.ArticleID] = l.Counted
	}
	return counts
}

// ListFilter for filtering inventories.
type ListFilter struct {
	Kind     *Kind
	EventID  *string
	Applied  *bool
	DateFrom *time.Time
	DateTo   *time.Time
}
