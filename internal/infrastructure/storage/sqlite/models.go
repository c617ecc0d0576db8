package sqlite

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/catalogs/article"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/documents/inventory"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/documents/purchase"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/registers/stock"
)

// Persistence models. The schema itself is owned by the migrations; these
// structs only describe rows to gorm.

type articleModel struct {
	ID            id.ID               `gorm:"column:id;primaryKey"`
	Name          string              `gorm:"column:name"`
	Category      string              `gorm:"column:category"`
	Stock         int64               `gorm:"column:stock"`
	Unit          string              `gorm:"column:unit"`
	PurchasePrice decimal.NullDecimal `gorm:"column:purchase_price"`
	CreatedAt     time.Time           `gorm:"column:created_at"`
	UpdatedAt     time.Time           `gorm:"column:updated_at"`
}

func (articleModel) TableName() string { return "articles" }

func (m articleModel) toDomain() article.Article {
	return article.Article{
		ID:            m.ID,
		Name:          m.Name,
		Category:      m.Category,
		Stock:         m.Stock,
		Unit:          m.Unit,
		PurchasePrice: m.PurchasePrice,
		Timestamps:    entity.Timestamps{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
	}
}

type movementModel struct {
	ID         id.ID     `gorm:"column:id;primaryKey"`
	ArticleID  id.ID     `gorm:"column:article_id"`
	Type       string    `gorm:"column:type"`
	Quantity   int64     `gorm:"column:quantity"`
	LinkKind   string    `gorm:"column:link_kind"`
	LinkID     *id.ID    `gorm:"column:link_id"`
	Note       string    `gorm:"column:note"`
	OccurredAt time.Time `gorm:"column:occurred_at"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (movementModel) TableName() string { return "stock_movements" }

func movementFromDomain(m entity.Movement) movementModel {
	return movementModel{
		ID:         m.ID,
		ArticleID:  m.ArticleID,
		Type:       string(m.Type),
		Quantity:   m.Quantity,
		LinkKind:   string(m.Kind),
		LinkID:     m.LinkRef.ID,
		Note:       m.Note,
		OccurredAt: m.OccurredAt,
		CreatedAt:  m.CreatedAt,
	}
}

func (m movementModel) toDomain() entity.Movement {
	return entity.Movement{
		ID:         m.ID,
		ArticleID:  m.ArticleID,
		Type:       entity.MovementType(m.Type),
		Quantity:   m.Quantity,
		LinkRef:    entity.LinkRef{Kind: entity.LinkKind(m.LinkKind), ID: m.LinkID},
		Note:       m.Note,
		OccurredAt: m.OccurredAt,
		CreatedAt:  m.CreatedAt,
	}
}

type journalModel struct {
	ID          id.ID     `gorm:"column:id;primaryKey"`
	InventoryID id.ID     `gorm:"column:inventory_id"`
	ArticleID   id.ID     `gorm:"column:article_id"`
	Delta       int64     `gorm:"column:delta"`
	Scope       string    `gorm:"column:scope"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (journalModel) TableName() string { return "stock_journal" }

func (m journalModel) toDomain() entity.JournalEntry {
	return entity.JournalEntry{
		ID:          m.ID,
		InventoryID: m.InventoryID,
		ArticleID:   m.ArticleID,
		Delta:       m.Delta,
		Scope:       entity.JournalScope(m.Scope),
		CreatedAt:   m.CreatedAt,
	}
}

type batchModel struct {
	ID                id.ID           `gorm:"column:id;primaryKey"`
	ArticleID         id.ID           `gorm:"column:article_id"`
	Quantity          int64           `gorm:"column:quantity"`
	RemainingQuantity int64           `gorm:"column:remaining_quantity"`
	UnitPrice         decimal.Decimal `gorm:"column:unit_price"`
	PurchaseDate      time.Time       `gorm:"column:purchase_date"`
	PurchaseRef       *id.ID          `gorm:"column:purchase_ref"`
	CreatedAt         time.Time       `gorm:"column:created_at"`
}

func (batchModel) TableName() string { return "purchase_batches" }

func (m batchModel) toDomain() stock.Batch {
	return stock.Batch(m)
}

type inventoryModel struct {
	ID            id.ID     `gorm:"column:id;primaryKey"`
	InventoryDate time.Time `gorm:"column:inventory_date"`
	EventID       *string   `gorm:"column:event_id"`
	Kind          string    `gorm:"column:kind"`
	Comment       string    `gorm:"column:comment"`
	Applied       bool      `gorm:"column:applied"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (inventoryModel) TableName() string { return "inventories" }

func (m inventoryModel) toDomain() inventory.Inventory {
	return inventory.Inventory{
		ID:            m.ID,
		InventoryDate: m.InventoryDate,
		EventID:       m.EventID,
		Kind:          inventory.Kind(m.Kind),
		Comment:       m.Comment,
		Applied:       m.Applied,
		CreatedAt:     m.CreatedAt,
	}
}

type inventoryLineModel struct {
	ID          id.ID  `gorm:"column:id;primaryKey"`
	InventoryID id.ID  `gorm:"column:inventory_id"`
	ArticleID   id.ID  `gorm:"column:article_id"`
	Counted     int64  `gorm:"column:counted"`
	Comment     string `gorm:"column:comment"`
}

func (inventoryLineModel) TableName() string { return "inventory_lines" }

func (m inventoryLineModel) toDomain() inventory.Line {
	return inventory.Line(m)
}

type purchaseModel struct {
	ID           id.ID           `gorm:"column:id;primaryKey"`
	ArticleID    id.ID           `gorm:"column:article_id"`
	PurchaseDate time.Time       `gorm:"column:purchase_date"`
	Quantity     int64           `gorm:"column:quantity"`
	UnitPrice    decimal.Decimal `gorm:"column:unit_price"`
	Supplier     string          `gorm:"column:supplier"`
	InvoiceRef   string          `gorm:"column:invoice_ref"`
	FiscalYear   string          `gorm:"column:fiscal_year"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
}

func (purchaseModel) TableName() string { return "purchases" }

func (m purchaseModel) toDomain() purchase.Purchase {
	return purchase.Purchase(m)
}
