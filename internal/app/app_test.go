package app_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/app"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/catalogs/article"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/documents/inventory"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/documents/purchase"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/config"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/testutil"
)

func sqliteConfig(t *testing.T, strict bool) *config.Config {
	t.Helper()
	return &config.Config{
		Storage: config.StorageConfig{
			Driver:      config.DriverSQLite,
			Path:        filepath.Join(t.TempDir(), "data", "association.db"),
			BusyTimeout: time.Second,
		},
		Lock:  config.LockConfig{Timeout: time.Second},
		Stock: config.StockConfig{StrictRevertOrder: strict},
		Log:   config.LogConfig{Level: "error"},
	}
}

func newApp(t *testing.T, strict bool) *app.App {
	t.Helper()
	ctx := testutil.Context()

	a, err := app.New(ctx, sqliteConfig(t, strict))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NoError(t, a.Migrate(ctx))
	return a
}

func TestNew_MigrateAndVersion(t *testing.T) {
	a := newApp(t, false)
	ctx := testutil.Context()

	version, dirty, err := a.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Up is idempotent.
	require.NoError(t, a.Migrate(ctx))
	assert.FileExists(t, a.Config.LockPath())
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := sqliteConfig(t, false)
	cfg.Storage.Driver = "mysql"

	_, err := app.New(testutil.Context(), cfg)
	assert.Error(t, err)
}

func TestApp_EndToEnd(t *testing.T) {
	a := newApp(t, false)
	ctx := testutil.Context()

	biere, err := a.Articles.Create(ctx, article.CreateInput{Name: "Bière", Category: "boissons"})
	require.NoError(t, err)

	_, err = a.Purchases.Create(ctx, purchase.CreateInput{
		ArticleID:    biere.ID,
		PurchaseDate: time.Now().AddDate(0, 0, -1),
		Quantity:     24,
		UnitPrice:    decimal.RequireFromString("1.10"),
	})
	require.NoError(t, err)

	before, err := a.Inventories.Create(ctx, inventory.CreateInput{InventoryDate: time.Now(), Kind: inventory.KindStandalone})
	require.NoError(t, err)
	_, err = a.Inventories.UpsertLine(ctx, before.ID, inventory.LineInput{ArticleID: biere.ID, Counted: 20})
	require.NoError(t, err)
	require.NoError(t, a.Inventories.Apply(ctx, before.ID))

	v, err := a.Stock.Stock(ctx, biere.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), v)

	report, err := a.Stock.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Articles)
	assert.Empty(t, report.Corrected)

	basis, err := a.Stock.CostBasis(ctx, biere.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(24), basis.RemainingQuantity)

	require.NoError(t, a.Inventories.Delete(ctx, before.ID))
	v, err = a.Stock.Stock(ctx, biere.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(24), v)
}

func TestApp_StrictRevertOrder(t *testing.T) {
	a := newApp(t, true)
	ctx := testutil.Context()

	biere, err := a.Articles.Create(ctx, article.CreateInput{Name: "Bière"})
	require.NoError(t, err)

	apply := func(counted int64) id.ID {
		doc, err := a.Inventories.Create(ctx, inventory.CreateInput{InventoryDate: time.Now(), Kind: inventory.KindStandalone})
		require.NoError(t, err)
		_, err = a.Inventories.UpsertLine(ctx, doc.ID, inventory.LineInput{ArticleID: biere.ID, Counted: counted})
		require.NoError(t, err)
		require.NoError(t, a.Inventories.Apply(ctx, doc.ID))
		return doc.ID
	}
	first := apply(10)
	second := apply(7)

	_, err = a.Inventories.Revert(ctx, first)
	assert.True(t, apperror.HasCode(err, apperror.CodeRevertOutOfOrder))

	_, err = a.Inventories.Revert(ctx, second)
	require.NoError(t, err)
	_, err = a.Inventories.Revert(ctx, first)
	require.NoError(t, err)

	v, err := a.Stock.Stock(ctx, biere.ID)
	require.NoError(t, err)
	assert.Zero(t, v)
}
