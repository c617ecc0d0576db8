package stock

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
)

// Batch is a FIFO cost batch opened by a purchase.
// RemainingQuantity only ever decreases; a batch at zero is exhausted for good.
type Batch struct {
	ID                id.ID           `db:"id" json:"id"`
	ArticleID         id.ID           `db:"article_id" json:"articleId"`
	Quantity          int64           `db:"quantity" json:"quantity"`
	RemainingQuantity int64           `db:"remaining_quantity" json:"remainingQuantity"`
	UnitPrice         decimal.Decimal `db:"unit_price" json:"unitPrice"`
	PurchaseDate      time.Time       `db:"purchase_date" json:"purchaseDate"`
	PurchaseRef       *id.ID          `db:"purchase_ref" json:"purchaseRef,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
}

// Open reports whether the batch still has stock to consume.
func (b *Batch) Open() bool {
	return b.RemainingQuantity > 0
}

// BatchInput describes a batch to open.
type BatchInput struct {
	ArticleID    id.ID           `json:"article_id" validate:"required"`
	Quantity     int64           `json:"quantity" validate:"gt=0"`
	UnitPrice    decimal.Decimal `json:"unit_price" validate:"gte=0"`
	PurchaseDate time.Time       `json:"purchase_date" validate:"required"`
	PurchaseRef  *id.ID          `json:"purchase_ref"`
}

// MovementInput describes a movement to record through the service.
type MovementInput struct {
	ArticleID  id.ID               `json:"article_id" validate:"required"`
	Type       entity.MovementType `json:"type" validate:"required"`
	Quantity   int64               `json:"quantity" validate:"gt=0"`
	LinkKind   entity.LinkKind     `json:"link_kind" validate:"omitempty,oneof=event purchase"`
	LinkID     *id.ID              `json:"link_id"`
	Note       string              `json:"note" validate:"max=500"`
	OccurredAt time.Time           `json:"occurred_at"`

	// UnitPrice opens a FIFO batch for purchase movements.
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

func (in MovementInput) link() entity.LinkRef {
	return entity.LinkRef{Kind: in.LinkKind, ID: in.LinkID}
}

// MovementResult is returned by Service.RecordMovement.
type MovementResult struct {
	// MovementID is nil when the movement type was unknown and nothing was written.
	MovementID id.ID  `json:"movementId"`
	Stock      int64  `json:"stock"`
	BatchID    *id.ID `json:"batchId,omitempty"`
	// Consumption is set for exit movements.
	Consumption *ConsumeResult `json:"consumption,omitempty"`
}

// Skipped reports whether the movement was dropped as an unknown type.
func (r MovementResult) Skipped() bool {
	return id.IsNil(r.MovementID)
}

// ConsumeLine is the quantity taken from one batch.
type ConsumeLine struct {
	BatchID   id.ID           `json:"batchId"`
	Taken     int64           `json:"taken"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Cost returns Taken times UnitPrice.
func (l ConsumeLine) Cost() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Taken))
}

// ShortfallWarning reports that open batches could not cover a consumption.
// It is a result value, never an error.
type ShortfallWarning struct {
	ArticleID id.ID `json:"articleId"`
	Requested int64 `json:"requested"`
	Available int64 `json:"available"`
	Missing   int64 `json:"missing"`
}

// ConsumeResult lists the batches a FIFO consumption drew from, oldest first.
type ConsumeResult struct {
	ArticleID id.ID             `json:"articleId"`
	Lines     []ConsumeLine     `json:"lines"`
	Consumed  int64             `json:"consumed"`
	TotalCost decimal.Decimal   `json:"totalCost"`
	Shortfall *ShortfallWarning `json:"shortfall,omitempty"`
}

// CostBasis values the open batches of an article.
type CostBasis struct {
	ArticleID         id.ID           `json:"articleId"`
	RemainingQuantity int64           `json:"remainingQuantity"`
	TotalValue        decimal.Decimal `json:"totalValue"`
	WeightedUnitCost  decimal.Decimal `json:"weightedUnitCost"`
	OpenBatches       int             `json:"openBatches"`
}

// ArticleStock is the cached stock of one article.
type ArticleStock struct {
	ArticleID id.ID  `db:"id" json:"articleId"`
	Name      string `db:"name" json:"name"`
	Stock     int64  `db:"stock" json:"stock"`
}

// Drift is an article whose cached stock disagrees with its movement history.
type Drift struct {
	ArticleID id.ID  `json:"articleId"`
	Name      string `json:"name"`
	Cached    int64  `json:"cached"`
	Computed  int64  `json:"computed"`
}

// Difference is Computed minus Cached.
func (d Drift) Difference() int64 {
	return d.Computed - d.Cached
}

// ReconcileReport summarises a full recompute.
type ReconcileReport struct {
	Articles  int     `json:"articles"`
	Corrected []Drift `json:"corrected"`
}

// RevertReport summarises an inventory revert.
type RevertReport struct {
	InventoryID id.ID `json:"inventoryId"`
	// Entries is the number of journal entries replayed.
	Entries int `json:"entries"`
	// Stocks holds the recomputed stock of every touched article.
	Stocks map[id.ID]int64 `json:"stocks"`
	// Corrected lists articles where the recompute overrode the incremental value.
	Corrected []Drift `json:"corrected,omitempty"`
}
