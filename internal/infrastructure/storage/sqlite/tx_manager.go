package sqlite

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/tx"
	"github.com/DarkSario/2025-Interactifs-Gestion/pkg/logger"
)

var tracer = otel.Tracer("github.com/DarkSario/2025-Interactifs-Gestion/storage/sqlite")

// Compile-time check that TxManager implements tx.ReadOnlyManager.
var _ tx.ReadOnlyManager = (*TxManager)(nil)

// TxManager runs engine operations in gorm transactions.
// The active transaction travels in the context; nested calls reuse it.
type TxManager struct {
	db *DB
}

// NewTxManager creates a transaction manager for db.
func NewTxManager(db *DB) *TxManager {
	return &TxManager{db: db}
}

// txKey is the context key for the active transaction.
type txKey struct{}

// RunInTransaction executes fn within a transaction.
// If a transaction already exists in ctx, it is reused and errors are
// returned untranslated to the outer call.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, nil, fn)
}

// ReadOnly executes fn in a read-only transaction.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.run(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (m *TxManager) run(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error {
	if m.GetTx(ctx) != nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(
			attribute.String("db.system", "sqlite"),
			attribute.Bool("tx.read_only", opts != nil && opts.ReadOnly),
		))
	defer span.End()

	var txOpts []*sql.TxOptions
	if opts != nil {
		txOpts = append(txOpts, opts)
	}

	err := m.db.gorm.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, gtx))
	}, txOpts...)
	if err != nil {
		err = translateError(err, m.db.path, m.db.busyTimeout)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Debug(ctx, "transaction rolled back", "error", err)
		return err
	}
	return nil
}

// GetTx returns the active transaction from context, or nil.
func (m *TxManager) GetTx(ctx context.Context) *gorm.DB {
	if gtx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return gtx
	}
	return nil
}

// Conn returns the transaction in ctx or a fresh session bound to ctx.
// Repositories use it so they work inside and outside transactions.
func (m *TxManager) Conn(ctx context.Context) *gorm.DB {
	if gtx := m.GetTx(ctx); gtx != nil {
		return gtx.WithContext(ctx)
	}
	return m.db.gorm.WithContext(ctx)
}
