package purchase_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/catalogs/article"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/documents/purchase"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/registers/stock"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/testutil"
)

type env struct {
	store    *testutil.Store
	stock    *stock.Service
	articles *article.Service
	svc      *purchase.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := testutil.NewStore(t)
	engine := stock.NewService(store.Stock, store.TxM, nil, stock.Options{})
	articles := article.NewService(store.Articles, store.TxM)
	return &env{
		store:    store,
		stock:    engine,
		articles: articles,
		svc:      purchase.NewService(store.Purchases, engine, articles, store.TxM),
	}
}

func TestService_CreateOpensBatchAndRecordsPrice(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.Context()
	a := e.store.CreateArticle(t, "Bière")
	date := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)

	res, err := e.svc.Create(ctx, purchase.CreateInput{
		ArticleID:    a,
		PurchaseDate: date,
		Quantity:     24,
		UnitPrice:    decimal.RequireFromString("0.95"),
		Supplier:     " Metro ",
		FiscalYear:   "2024-2025",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(24), res.Stock)
	assert.False(t, id.IsNil(res.BatchID))
	assert.Equal(t, "Metro", res.Purchase.Supplier)
	assert.True(t, res.Purchase.Total().Equal(decimal.RequireFromString("22.8")))

	batches, err := e.stock.Batches(ctx, a, true)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, res.BatchID, batches[0].ID)
	require.NotNil(t, batches[0].PurchaseRef)
	assert.Equal(t, res.Purchase.ID, *batches[0].PurchaseRef)
	assert.True(t, batches[0].PurchaseDate.Equal(date))

	got, err := e.articles.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(24), got.Stock)
	require.True(t, got.PurchasePrice.Valid)
	assert.True(t, got.PurchasePrice.Decimal.Equal(decimal.RequireFromString("0.95")))

	movements, err := e.stock.Movements(ctx, a)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, entity.MovementPurchase, movements[0].Type)
	assert.Equal(t, entity.LinkPurchase, movements[0].Kind)
}

func TestService_CreateValidation(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.Context()
	a := e.store.CreateArticle(t, "Bière")

	tests := []struct {
		name string
		in   purchase.CreateInput
	}{
		{"zero quantity", purchase.CreateInput{ArticleID: a, PurchaseDate: time.Now(), UnitPrice: decimal.NewFromInt(1)}},
		{"negative price", purchase.CreateInput{ArticleID: a, PurchaseDate: time.Now(), Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}},
		{"missing date", purchase.CreateInput{ArticleID: a, Quantity: 1}},
		{"missing article", purchase.CreateInput{PurchaseDate: time.Now(), Quantity: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Create(ctx, tt.in)
			assert.True(t, apperror.IsValidation(err))
		})
	}
	assert.Equal(t, int64(0), e.store.CountRows(t, "purchases"))
}

func TestService_CreateUnknownArticleRollsBack(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.Context()

	_, err := e.svc.Create(ctx, purchase.CreateInput{
		ArticleID:    id.New(),
		PurchaseDate: time.Now(),
		Quantity:     3,
		UnitPrice:    decimal.NewFromInt(2),
	})
	require.Error(t, err)
	assert.Equal(t, int64(0), e.store.CountRows(t, "purchases"))
	assert.Equal(t, int64(0), e.store.CountRows(t, "purchase_batches"))
	assert.Equal(t, int64(0), e.store.CountRows(t, "stock_movements"))
}

func TestService_DeleteRemovesBatchAndMovement(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.Context()
	a := e.store.CreateArticle(t, "Bière")

	first, err := e.svc.Create(ctx, purchase.CreateInput{
		ArticleID: a, PurchaseDate: time.Now().AddDate(0, 0, -2), Quantity: 10, UnitPrice: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	_, err = e.svc.Create(ctx, purchase.CreateInput{
		ArticleID: a, PurchaseDate: time.Now(), Quantity: 6, UnitPrice: decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	require.NoError(t, e.svc.Delete(ctx, first.Purchase.ID))

	v, err := e.stock.Stock(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(6), v)

	batches, err := e.stock.Batches(ctx, a, false)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.True(t, batches[0].UnitPrice.Equal(decimal.NewFromInt(2)))

	listed, err := e.svc.List(ctx, purchase.ListFilter{ArticleID: &a})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = e.svc.Get(ctx, first.Purchase.ID)
	assert.True(t, apperror.IsNotFound(err))

	err = e.svc.Delete(ctx, first.Purchase.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_UpdateRebooksPurchase(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.Context()
	biere := e.store.CreateArticle(t, "Bière")
	cidre := e.store.CreateArticle(t, "Cidre")
	date := time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)

	created, err := e.svc.Create(ctx, purchase.CreateInput{
		ArticleID: biere, PurchaseDate: date, Quantity: 24, UnitPrice: decimal.RequireFromString("0.95"),
	})
	require.NoError(t, err)
	_, err = e.stock.ConsumeFIFO(ctx, biere, 4)
	require.NoError(t, err)

	t.Run("same article", func(t *testing.T) {
		res, err := e.svc.Update(ctx, created.Purchase.ID, purchase.CreateInput{
			ArticleID: biere, PurchaseDate: date, Quantity: 12, UnitPrice: decimal.RequireFromString("1.10"), Supplier: "Metro",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(12), res.Stock)
		assert.Equal(t, created.Purchase.ID, res.Purchase.ID)

		batches, err := e.stock.Batches(ctx, biere, false)
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.Equal(t, res.BatchID, batches[0].ID)
		assert.Equal(t, int64(12), batches[0].RemainingQuantity)

		got, err := e.articles.Get(ctx, biere)
		require.NoError(t, err)
		assert.True(t, got.PurchasePrice.Decimal.Equal(decimal.RequireFromString("1.10")))

		stored, err := e.svc.Get(ctx, created.Purchase.ID)
		require.NoError(t, err)
		assert.Equal(t, "Metro", stored.Supplier)
		assert.True(t, stored.CreatedAt.Equal(created.Purchase.CreatedAt))
	})

	t.Run("moved to another article", func(t *testing.T) {
		res, err := e.svc.Update(ctx, created.Purchase.ID, purchase.CreateInput{
			ArticleID: cidre, PurchaseDate: date, Quantity: 6, UnitPrice: decimal.NewFromInt(2),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(6), res.Stock)

		v, err := e.stock.Stock(ctx, biere)
		require.NoError(t, err)
		assert.Equal(t, int64(0), v)

		batches, err := e.stock.Batches(ctx, biere, false)
		require.NoError(t, err)
		assert.Empty(t, batches)
		assert.Equal(t, int64(1), e.store.CountRows(t, "stock_movements"))
		assert.Equal(t, int64(1), e.store.CountRows(t, "purchase_batches"))
	})

	t.Run("validation and unknown purchase", func(t *testing.T) {
		_, err := e.svc.Update(ctx, created.Purchase.ID, purchase.CreateInput{ArticleID: cidre, PurchaseDate: date})
		assert.True(t, apperror.IsValidation(err))

		_, err = e.svc.Update(ctx, id.New(), purchase.CreateInput{
			ArticleID: cidre, PurchaseDate: date, Quantity: 1, UnitPrice: decimal.NewFromInt(1),
		})
		assert.True(t, apperror.IsNotFound(err))
		assert.Equal(t, int64(1), e.store.CountRows(t, "purchases"))
	})
}

func TestService_AveragePrice(t *testing.T) {
	e := newEnv(t)
	ctx := testutil.Context()
	a := e.store.CreateArticle(t, "Bière")
	d1 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	empty, err := e.svc.AveragePrice(ctx, a, nil)
	require.NoError(t, err)
	assert.True(t, empty.UnitPrice.IsZero())
	assert.Equal(t, 0, empty.Purchases)

	for _, in := range []purchase.CreateInput{
		{ArticleID: a, PurchaseDate: d1, Quantity: 10, UnitPrice: decimal.NewFromInt(1)},
		{ArticleID: a, PurchaseDate: d2, Quantity: 30, UnitPrice: decimal.NewFromInt(2)},
	} {
		_, err := e.svc.Create(ctx, in)
		require.NoError(t, err)
	}
	// Consumption does not change the purchase average.
	_, err = e.stock.ConsumeFIFO(ctx, a, 10)
	require.NoError(t, err)

	all, err := e.svc.AveragePrice(ctx, a, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(40), all.Quantity)
	assert.True(t, all.Total.Equal(decimal.NewFromInt(70)))
	assert.True(t, all.UnitPrice.Equal(decimal.RequireFromString("1.75")))

	until := d1.AddDate(0, 1, 0)
	early, err := e.svc.AveragePrice(ctx, a, &until)
	require.NoError(t, err)
	assert.Equal(t, 1, early.Purchases)
	assert.True(t, early.UnitPrice.Equal(decimal.NewFromInt(1)))

	basis, err := e.stock.CostBasis(ctx, a)
	require.NoError(t, err)
	assert.True(t, basis.WeightedUnitCost.Equal(decimal.NewFromInt(2)))

	_, err = e.svc.AveragePrice(ctx, id.Nil(), nil)
	assert.True(t, apperror.IsValidation(err))
}
