// Package testutil provides migrated SQLite stores and fixtures for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/catalogs/article"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/documents/inventory"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/migration"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/storage/sqlite"
	"github.com/DarkSario/2025-Interactifs-Gestion/pkg/logger"
)

// Store is a migrated SQLite database in a test temp dir.
type Store struct {
	DB   *sqlite.DB
	TxM  *sqlite.TxManager
	Path string

	Stock       *sqlite.StockRepo
	Articles    *sqlite.ArticleRepo
	Inventories *sqlite.InventoryRepo
	Purchases   *sqlite.PurchaseRepo
}

// Context returns a background context with a discarding logger.
func Context() context.Context {
	return logger.WithLogger(context.Background(), logger.NewNop())
}

// NewStore creates, migrates and opens a fresh database file.
// It is closed when the test ends.
func NewStore(t testing.TB) *Store {
	t.Helper()
	ctx := Context()

	cfg := sqlite.DefaultConfig(filepath.Join(t.TempDir(), "association.db"))
	cfg.BusyTimeout = time.Second
	cfg.Tracing = false

	require.NoError(t, migration.UpSQLite(ctx, sqlite.DSN(cfg)))

	db, err := sqlite.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	txm := sqlite.NewTxManager(db)
	return &Store{
		DB:          db,
		TxM:         txm,
		Path:        cfg.Path,
		Stock:       sqlite.NewStockRepo(txm),
		Articles:    sqlite.NewArticleRepo(txm),
		Inventories: sqlite.NewInventoryRepo(txm),
		Purchases:   sqlite.NewPurchaseRepo(txm),
	}
}

// CreateArticle inserts an article with zero stock and returns its id.
func (s *Store) CreateArticle(t testing.TB, name string) id.ID {
	t.Helper()
	a := article.NewArticle(name, "boissons", "bouteille")
	require.NoError(t, s.Articles.Create(Context(), a))
	return a.ID
}

// CreateInventory inserts a standalone inventory header and returns its id.
func (s *Store) CreateInventory(t testing.TB, date time.Time) id.ID {
	t.Helper()
	inv := inventory.NewInventory(date, inventory.KindStandalone, nil, "")
	require.NoError(t, s.Inventories.Create(Context(), inv))
	return inv.ID
}

// InsertRawMovement writes a movement row directly, bypassing the recorder.
// Used to seed histories written by other tools, unknown types included.
func (s *Store) InsertRawMovement(t testing.TB, articleID id.ID, typ string, qty int64) {
	t.Helper()
	m := entity.NewMovement(articleID, entity.MovementType(typ), qty, entity.NoLink, time.Time{})
	require.NoError(t, s.Stock.InsertMovement(Context(), m))
}

// SetCachedStock overwrites the cached stock, simulating drift.
func (s *Store) SetCachedStock(t testing.TB, articleID id.ID, value int64) {
	t.Helper()
	require.NoError(t, s.Stock.SetStock(Context(), articleID, value))
}

// CountRows returns the number of rows in table.
func (s *Store) CountRows(t testing.TB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB.Gorm().Table(table).Count(&n).Error)
	return n
}
