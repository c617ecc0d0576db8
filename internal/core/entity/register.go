// Package entity provides core domain entities.
package entity

import (
	"time"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
)

// MovementType is the kind of a stock movement.
// The known set is closed; any other raw value is kept as-is and folds to zero.
type MovementType string

const (
	// MovementEntry is a manual stock entry.
	MovementEntry MovementType = "entry"
	// MovementExit is a sale, loss or negative inventory correction.
	MovementExit MovementType = "exit"
	// MovementInventory is a positive inventory correction.
	MovementInventory MovementType = "inventory"
	// MovementPurchase is goods received from a supplier.
	MovementPurchase MovementType = "purchase"
)

// Known reports whether t belongs to the closed set of movement types.
func (t MovementType) Known() bool {
	switch t {
	case MovementEntry, MovementExit, MovementInventory, MovementPurchase:
		return true
	}
	return false
}

// Sign returns the multiplier applied to a movement quantity:
// +1 for entry, purchase and inventory, -1 for exit, 0 for unknown types.
func (t MovementType) Sign() int64 {
	switch t {
	case MovementEntry, MovementPurchase, MovementInventory:
		return 1
	case MovementExit:
		return -1
	default:
		return 0
	}
}

// LinkKind names the owner of a movement.
type LinkKind string

const (
	LinkNone      LinkKind = ""
	LinkEvent     LinkKind = "event"
	LinkPurchase  LinkKind = "purchase"
	LinkInventory LinkKind = "inventory"
)

// LinkRef points a movement at the event, purchase or inventory it belongs to.
type LinkRef struct {
	Kind LinkKind `db:"link_kind" json:"linkKind"`
	ID   *id.ID   `db:"link_id" json:"linkId,omitempty"`
}

// NoLink is the zero LinkRef.
var NoLink = LinkRef{}

// LinkTo builds a LinkRef for kind and owner id.
func LinkTo(kind LinkKind, owner id.ID) LinkRef {
	return LinkRef{Kind: kind, ID: &owner}
}

// Complete reports whether both the owner kind and id are set.
func (l LinkRef) Complete() bool {
	return l.Kind != LinkNone && l.ID != nil
}

// Movement is one append-only row of the stock history.
// Quantity is always a magnitude; direction comes from Type.
type Movement struct {
	ID         id.ID        `db:"id" json:"id"`
	ArticleID  id.ID        `db:"article_id" json:"articleId"`
	Type       MovementType `db:"type" json:"type"`
	Quantity   int64        `db:"quantity" json:"quantity"`
	LinkRef
	Note       string    `db:"note" json:"note,omitempty"`
	OccurredAt time.Time `db:"occurred_at" json:"occurredAt"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// NewMovement creates a movement with a generated id.
func NewMovement(articleID id.ID, typ MovementType, quantity int64, link LinkRef, occurredAt time.Time) Movement {
	now := time.Now().UTC()
	if occurredAt.IsZero() {
		occurredAt = now
	}
	return Movement{
		ID:         id.New(),
		ArticleID:  articleID,
		Type:       typ,
		Quantity:   quantity,
		LinkRef:    link,
		OccurredAt: occurredAt.UTC(),
		CreatedAt:  now,
	}
}

// SignedQuantity returns the movement's contribution to stock.
func (m *Movement) SignedQuantity() int64 {
	return m.Type.Sign() * m.Quantity
}

// JournalScope tags journal entries with the operation that wrote them.
type JournalScope string

const JournalScopeInventory JournalScope = "inventory"

// JournalEntry records the exact stock delta an inventory applied to an article.
type JournalEntry struct {
	ID          id.ID        `db:"id" json:"id"`
	InventoryID id.ID        `db:"inventory_id" json:"inventoryId"`
	ArticleID   id.ID        `db:"article_id" json:"articleId"`
	Delta       int64        `db:"delta" json:"delta"`
	Scope       JournalScope `db:"scope" json:"scope"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
}

// NewJournalEntry creates an inventory journal entry.
func NewJournalEntry(inventoryID, articleID id.ID, delta int64) JournalEntry {
	return JournalEntry{
		ID:          id.New(),
		InventoryID: inventoryID,
		ArticleID:   articleID,
		Delta:       delta,
		Scope:       JournalScopeInventory,
		CreatedAt:   time.Now().UTC(),
	}
}
