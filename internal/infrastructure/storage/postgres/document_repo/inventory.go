package document_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/documents/inventory"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/storage/postgres"
)

const (
	inventoriesTable    = "inventories"
	inventoryLinesTable = "inventory_lines"
)

var lineColumns = postgres.ExtractDBColumns[inventory.Line]()

// InventoryRepo implements inventory.Repository.
type InventoryRepo struct {
	*BaseDocumentRepo[inventory.Inventory]
}

var _ inventory.Repository = (*InventoryRepo)(nil)

// NewInventoryRepo creates a new inventory repository.
func NewInventoryRepo(txm *postgres.TxManager) *InventoryRepo {
	return &InventoryRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[inventory.Inventory](txm, inventoriesTable, "inventory"),
	}
}

func (r *InventoryRepo) Get(ctx context.Context, inventoryID id.ID) (*inventory.Inventory, error) {
	return r.GetByID(ctx, inventoryID)
}

func (r *InventoryRepo) listQuery(filter inventory.ListFilter) squirrel.SelectBuilder {
	q := r.Select()
	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": string(*filter.Kind)})
	}
	if filter.EventID != nil {
		q = q.Where(squirrel.Eq{"event_id": *filter.EventID})
	}
	if filter.Applied != nil {
		q = q.Where(squirrel.Eq{"applied": *filter.Applied})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"inventory_date": filter.DateFrom.UTC()})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"inventory_date": filter.DateTo.UTC()})
	}
	return q.OrderBy("inventory_date DESC", "id DESC")
}

func (r *InventoryRepo) List(ctx context.Context, filter inventory.ListFilter) ([]*inventory.Inventory, error) {
	return r.Find(ctx, r.listQuery(filter))
}

func (r *InventoryRepo) SetApplied(ctx context.Context, inventoryID id.ID, applied bool) error {
	sql, args, err := r.Builder().Update(inventoriesTable).
		Set("applied", applied).
		Where(squirrel.Eq{"id": inventoryID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set applied: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("inventory", inventoryID)
	}
	return nil
}

func (r *InventoryRepo) updateHeaderQuery(inv *inventory.Inventory) squirrel.UpdateBuilder {
	return r.Builder().Update(inventoriesTable).
		Set("inventory_date", inv.InventoryDate).
		Set("event_id", inv.EventID).
		Set("kind", string(inv.Kind)).
		Set("comment", inv.Comment).
		Where(squirrel.Eq{"id": inv.ID})
}

func (r *InventoryRepo) UpdateHeader(ctx context.Context, inv *inventory.Inventory) error {
	sql, args, err := r.updateHeaderQuery(inv).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("inventory", inv.ID)
	}
	return nil
}

func (r *InventoryRepo) GetLines(ctx context.Context, inventoryID id.ID) ([]inventory.Line, error) {
	sql, args, err := r.Builder().Select(lineColumns...).
		From(inventoryLinesTable).
		Where(squirrel.Eq{"inventory_id": inventoryID}).
		OrderBy("article_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []inventory.Line
	if err := pgxscan.Select(ctx, r.Querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	return lines, nil
}

func (r *InventoryRepo) upsertLineQuery(line inventory.Line) squirrel.InsertBuilder {
	return r.Builder().Insert(inventoryLinesTable).
		SetMap(postgres.StructToMap(line)).
		Suffix("ON CONFLICT (inventory_id, article_id) DO UPDATE SET counted = EXCLUDED.counted, comment = EXCLUDED.comment").
		Suffix("RETURNING " + strings.Join(lineColumns, ", "))
}

func (r *InventoryRepo) UpsertLine(ctx context.Context, line inventory.Line) (inventory.Line, error) {
	sql, args, err := r.upsertLineQuery(line).ToSql()
	if err != nil {
		return inventory.Line{}, fmt.Errorf("build upsert: %w", err)
	}

	var stored inventory.Line
	if err := pgxscan.Get(ctx, r.Querier(ctx), &stored, sql, args...); err != nil {
		return inventory.Line{}, fmt.Errorf("upsert line: %w", err)
	}
	return stored, nil
}

func (r *InventoryRepo) DeleteLine(ctx context.Context, inventoryID, articleID id.ID) error {
	return r.deleteLines(ctx, squirrel.Eq{"inventory_id": inventoryID, "article_id": articleID})
}

func (r *InventoryRepo) DeleteLines(ctx context.Context, inventoryID id.ID) error {
	return r.deleteLines(ctx, squirrel.Eq{"inventory_id": inventoryID})
}

func (r *InventoryRepo) deleteLines(ctx context.Context, where squirrel.Eq) error {
	sql, args, err := r.Builder().Delete(inventoryLinesTable).Where(where).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete lines: %w", err)
	}
	return nil
}
