// Package document_repo provides PostgreSQL repositories for inventory and
// purchase documents.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/storage/postgres"
)

// BaseDocumentRepo provides the CRUD operations shared by document headers.
type BaseDocumentRepo[T any] struct {
	txm        *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
}

// NewBaseDocumentRepo creates a new base document repository.
func NewBaseDocumentRepo[T any](txm *postgres.TxManager, tableName, entityName string) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txm:        txm,
		tableName:  tableName,
		entityName: entityName,
		selectCols: postgres.ExtractDBColumns[T](),
	}
}

// Builder returns a new squirrel builder.
func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Querier returns the transaction in ctx or the pool.
func (r *BaseDocumentRepo[T]) Querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// Create inserts a new document header.
func (r *BaseDocumentRepo[T]) Create(ctx context.Context, entity *T) error {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in %s", r.entityName)
	}

	sql, args, err := r.Builder().Insert(r.tableName).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// GetByID returns one document header, NOT_FOUND when missing.
func (r *BaseDocumentRepo[T]) GetByID(ctx context.Context, docID id.ID) (*T, error) {
	q := r.Builder().Select(r.selectCols...).From(r.tableName).Where(squirrel.Eq{"id": docID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out T
	if err := pgxscan.Get(ctx, r.Querier(ctx), &out, sql, args...); err != nil {
		if err := postgres.NotFound(err, r.entityName, docID); apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get %s: %w", r.entityName, err)
	}
	return &out, nil
}

// Select starts a query over every column of the table.
func (r *BaseDocumentRepo[T]) Select() squirrel.SelectBuilder {
	return r.Builder().Select(r.selectCols...).From(r.tableName)
}

// Find runs q and returns the matching headers.
func (r *BaseDocumentRepo[T]) Find(ctx context.Context, q squirrel.SelectBuilder) ([]*T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*T
	if err := pgxscan.Select(ctx, r.Querier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	return out, nil
}

// updateQuery sets every mapped column except the immutable id and created_at.
func (r *BaseDocumentRepo[T]) updateQuery(docID id.ID, entity *T) squirrel.UpdateBuilder {
	data := postgres.StructToMap(entity)
	delete(data, "id")
	delete(data, "created_at")
	return r.Builder().Update(r.tableName).SetMap(data).Where(squirrel.Eq{"id": docID})
}

// Update rewrites a document header, NOT_FOUND when missing.
func (r *BaseDocumentRepo[T]) Update(ctx context.Context, docID id.ID, entity *T) error {
	sql, args, err := r.updateQuery(docID, entity).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, docID)
	}
	return nil
}

// Delete removes a document header, NOT_FOUND when missing.
func (r *BaseDocumentRepo[T]) Delete(ctx context.Context, docID id.ID) error {
	sql, args, err := r.Builder().Delete(r.tableName).Where(squirrel.Eq{"id": docID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.tableName, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, docID)
	}
	return nil
}
