package sqlite

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/documents/inventory"
)

// InventoryRepo implements inventory.Repository.
type InventoryRepo struct {
	txm *TxManager
}

var _ inventory.Repository = (*InventoryRepo)(nil)

// NewInventoryRepo creates an inventory repository.
func NewInventoryRepo(txm *TxManager) *InventoryRepo {
	return &InventoryRepo{txm: txm}
}

func (r *InventoryRepo) Create(ctx context.Context, inv *inventory.Inventory) error {
	row := inventoryModel{
		ID:            inv.ID,
		InventoryDate: inv.InventoryDate,
		EventID:       inv.EventID,
		Kind:          string(inv.Kind),
		Comment:       inv.Comment,
		Applied:       inv.Applied,
		CreatedAt:     inv.CreatedAt,
	}
	if err := r.txm.Conn(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert inventory: %w", err)
	}
	return nil
}

func (r *InventoryRepo) Get(ctx context.Context, inventoryID id.ID) (*inventory.Inventory, error) {
	var m inventoryModel
	if err := r.txm.Conn(ctx).Where("id = ?", inventoryID).Take(&m).Error; err != nil {
		return nil, notFound(err, "inventory", inventoryID)
	}
	inv := m.toDomain()
	return &inv, nil
}

func (r *InventoryRepo) List(ctx context.Context, filter inventory.ListFilter) ([]*inventory.Inventory, error) {
	q := r.txm.Conn(ctx).Model(&inventoryModel{})
	if filter.Kind != nil {
		q = q.Where("kind = ?", string(*filter.Kind))
	}
	if filter.EventID != nil {
		q = q.Where("event_id = ?", *filter.EventID)
	}
	if filter.Applied != nil {
		q = q.Where("applied = ?", *filter.Applied)
	}
	if filter.DateFrom != nil {
		q = q.Where("inventory_date >= ?", filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		q = q.Where("inventory_date <= ?", filter.DateTo.UTC())
	}

	var rows []inventoryModel
	if err := q.Order("inventory_date DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list inventories: %w", err)
	}

	out := make([]*inventory.Inventory, 0, len(rows))
	for _, m := range rows {
		inv := m.toDomain()
		out = append(out, &inv)
	}
	return out, nil
}

func (r *InventoryRepo) SetApplied(ctx context.Context, inventoryID id.ID, applied bool) error {
	res := r.txm.Conn(ctx).Model(&inventoryModel{}).
		Where("id = ?", inventoryID).
		Update("applied", applied)
	if res.Error != nil {
		return fmt.Errorf("set applied: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NewNotFound("inventory", inventoryID)
	}
	return nil
}

// UpdateHeader rewrites date, kind, event and comment. Applied and lines
// are left alone.
func (r *InventoryRepo) UpdateHeader(ctx context.Context, inv *inventory.Inventory) error {
	res := r.txm.Conn(ctx).Model(&inventoryModel{}).
		Where("id = ?", inv.ID).
		Updates(map[string]any{
			"inventory_date": inv.InventoryDate,
			"event_id":       inv.EventID,
			"kind":           string(inv.Kind),
			"comment":        inv.Comment,
		})
	if res.Error != nil {
		return fmt.Errorf("update inventory: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NewNotFound("inventory", inv.ID)
	}
	return nil
}

func (r *InventoryRepo) Delete(ctx context.Context, inventoryID id.ID) error {
	res := r.txm.Conn(ctx).Where("id = ?", inventoryID).Delete(&inventoryModel{})
	if res.Error != nil {
		return fmt.Errorf("delete inventory: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NewNotFound("inventory", inventoryID)
	}
	return nil
}

func (r *InventoryRepo) GetLines(ctx context.Context, inventoryID id.ID) ([]inventory.Line, error) {
	var rows []inventoryLineModel
	err := r.txm.Conn(ctx).
		Where("inventory_id = ?", inventoryID).
		Order("article_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	out := make([]inventory.Line, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

// UpsertLine re-reads the line after the upsert: on conflict the row keeps
// its original id.
func (r *InventoryRepo) UpsertLine(ctx context.Context, line inventory.Line) (inventory.Line, error) {
	db := r.txm.Conn(ctx)
	row := inventoryLineModel(line)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "inventory_id"}, {Name: "article_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"counted", "comment"}),
	}).Create(&row).Error
	if err != nil {
		return inventory.Line{}, fmt.Errorf("upsert line: %w", err)
	}

	var stored inventoryLineModel
	err = db.Where("inventory_id = ? AND article_id = ?", line.InventoryID, line.ArticleID).
		Take(&stored).Error
	if err != nil {
		return inventory.Line{}, fmt.Errorf("read upserted line: %w", err)
	}
	return stored.toDomain(), nil
}

func (r *InventoryRepo) DeleteLine(ctx context.Context, inventoryID, articleID id.ID) error {
	err := r.txm.Conn(ctx).
		Where("inventory_id = ? AND article_id = ?", inventoryID, articleID).
		Delete(&inventoryLineModel{}).Error
	if err != nil {
		return fmt.Errorf("delete line: %w", err)
	}
	return nil
}

func (r *InventoryRepo) DeleteLines(ctx context.Context, inventoryID id.ID) error {
	if err := r.txm.Conn(ctx).Where("inventory_id = ?", inventoryID).Delete(&inventoryLineModel{}).Error; err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}
	return nil
}
