package stock_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/entity"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/id"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/domain/registers/stock"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/filelock"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/testutil"
	"github.com/DarkSario/2025-Interactifs-Gestion/pkg/logger"
)

type fixture struct {
	store *testutil.Store
	svc   *stock.Service
	ctx   context.Context
}

func newFixture(t *testing.T, opts stock.Options) *fixture {
	t.Helper()
	store := testutil.NewStore(t)
	locker := filelock.New(filelock.ForStore(store.Path), time.Second)
	return &fixture{
		store: store,
		svc:   stock.NewService(store.Stock, store.TxM, locker, opts),
		ctx:   testutil.Context(),
	}
}

func (f *fixture) record(t *testing.T, articleID id.ID, typ entity.MovementType, qty int64) stock.MovementResult {
	t.Helper()
	res, err := f.svc.RecordMovement(f.ctx, stock.MovementInput{
		ArticleID: articleID,
		Type:      typ,
		Quantity:  qty,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) stockOf(t *testing.T, articleID id.ID) int64 {
	t.Helper()
	v, err := f.svc.Stock(f.ctx, articleID)
	require.NoError(t, err)
	return v
}

func (f *fixture) assertNoDrift(t *testing.T) {
	t.Helper()
	drifts, err := f.svc.Audit(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestRecordMovement_UpdatesCachedStock(t *testing.T) {
	f := newFixture(t, stock.Options{})
	a := f.store.CreateArticle(t, "Jus de pomme")

	assert.Equal(t, int64(10), f.record(t, a, entity.MovementEntry, 10).Stock)
	assert.Equal(t, int64(6), f.record(t, a, entity.MovementExit, 4).Stock)
	assert.Equal(t, int64(9), f.record(t, a, entity.MovementPurchase, 3).Stock)

	assert.Equal(t, int64(9), f.stockOf(t, a))
	assert.Equal(t, int64(3), f.store.CountRows(t, "stock_movements"))
	f.assertNoDrift(t)
}

func TestRecordMovement_Validation(t *testing.T) {
	f := newFixture(t, stock.Options{})
	a := f.store.CreateArticle(t, "Chips")
	link := id.New()

	tests := []struct {
		name string
		in   stock.MovementInput
	}{
		{"zero quantity", stock.MovementInput{ArticleID: a, Type: entity.MovementEntry}},
		{"negative quantity", stock.MovementInput{ArticleID: a, Type: entity.MovementEntry, Quantity: -2}},
		{"missing article", stock.MovementInput{Type: entity.MovementEntry, Quantity: 1}},
		{"link kind without id", stock.MovementInput{ArticleID: a, Type: entity.MovementEntry, Quantity: 1, LinkKind: entity.LinkEvent}},
		{"inventory link reserved", stock.MovementInput{ArticleID: a, Type: entity.MovementEntry, Quantity: 1, LinkKind: entity.LinkInventory, LinkID: &link}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordMovement(f.ctx, tt.in)
			require.Error(t, err)
			assert.True(t, apperror.IsValidation(err))
		})
	}
	assert.Equal(t, int64(0), f.store.CountRows(t, "stock_movements"))
}

func TestRecordMovement_UnknownArticle(t *testing.T) {
	f := newFixture(t, stock.Options{})

	_, err := f.svc.RecordMovement(f.ctx, stock.MovementInput{
		ArticleID: id.New(),
		Type:      entity.MovementEntry,
		Quantity:  1,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestUnknownMovementType_LoggedAndFoldedAsZero(t *testing.T) {
	f := newFixture(t, stock.Options{})
	a := f.store.CreateArticle(t, "Café")

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logger.WithLogger(context.Background(), logger.FromCore(core))

	f.record(t, a, entity.MovementEntry, 5)

	res, err := f.svc.RecordMovement(ctx, stock.MovementInput{ArticleID: a, Type: "gift", Quantity: 3})
	require.NoError(t, err)
	assert.True(t, res.Skipped())
	assert.Equal(t, int64(5), res.Stock)
	assert.Equal(t, 1, logs.FilterMessage("unknown movement type skipped").Len())

	f.store.InsertRawMovement(t, a, "transfer", 100)
	computed, err := f.svc.RecomputeStock(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(5), computed)

	folded := logs.FilterMessage("unknown movement type folded as zero").All()
	require.Len(t, folded, 1)
	assert.Equal(t, "transfer", folded[0].ContextMap()["type"])
}

func TestRecomputeStock_CorrectsDrift(t *testing.T) {
	f := newFixture(t, stock.Options{})
	a := f.store.CreateArticle(t, "Eau")
	b := f.store.CreateArticle(t, "Sirop")

	f.record(t, a, entity.MovementEntry, 8)
	f.record(t, b, entity.MovementEntry, 2)
	f.store.SetCachedStock(t, a, 42)

	drifts, err := f.svc.Audit(f.ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, a, drifts[0].ArticleID)
	assert.Equal(t, int64(42), drifts[0].Cached)
	assert.Equal(t, int64(8), drifts[0].Computed)
	assert.Equal(t, int64(-34), drifts[0].Difference())

	// Audit is read-only.
	assert.Equal(t, int64(42), f.stockOf(t, a))

	report, err := f.svc.RecomputeAll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Articles)
	require.Len(t, report.Corrected, 1)
	assert.Equal(t, a, report.Corrected[0].ArticleID)

	assert.Equal(t, int64(8), f.stockOf(t, a))
	f.assertNoDrift(t)
}

func TestRecomputeAll_LockTimeout(t *testing.T) {
	store := testutil.NewStore(t)
	path := filepath.Join(t.TempDir(), "stock.lock")

	release, err := filelock.New(path, time.Second).Acquire(context.Background())
	require.NoError(t, err)
	defer func() { _ = release() }()

	svc := stock.NewService(store.Stock, store.TxM, filelock.New(path, 100*time.Millisecond), stock.Options{})
	_, err = svc.RecomputeAll(testutil.Context())
	require.Error(t, err)
	assert.True(t, apperror.IsLockTimeout(err))
}

func TestApplyInventory_SetsCountedQuantity(t *testing.T) {
	f := newFixture(t, stock.Options{})
	a := f.store.CreateArticle(t, "Bière")
	b := f.store.CreateArticle(t, "Limonade")
	c := f.store.CreateArticle(t, "Cidre")

	f.record(t, a, entity.MovementEntry, 10)
	f.record(t, b, entity.MovementEntry, 4)
	f.record(t, c, entity.MovementEntry, 6)

	inv := f.store.CreateInventory(t, time.Now())
	require.NoError(t, f.svc.ApplyInventory(f.ctx, inv, map[id.ID]int64{a: 7, b: 9, c: 6}))

	assert.Equal(t, int64(7), f.stockOf(t, a))
	assert.Equal(t, int64(9), f.stockOf(t, b))
	assert.Equal(t, int64(6), f.stockOf(t, c))

	entries, err := f.svc.JournalFor(f.ctx, inv)
	require.NoError(t, err)
	deltas := make(map[id.ID]int64)
	for _, e := range entries {
		deltas[e.ArticleID] = e.Delta
	}
	// Unchanged articles are not journaled.
	assert.Equal(t, map[id.ID]int64{a: -3, b: 5}, deltas)

	movements, err := f.svc.Movements(f.ctx, a)
	require.NoError(t, err)
	last := movements[len(movements)-1]
	assert.Equal(t, entity.MovementExit, last.Type)
	assert.Equal(t, int64(3), last.Quantity)
	assert.Equal(t, entity.LinkInventory, last.Kind)

	f.assertNoDrift(t)
}

func TestApplyInventory_Idempotent(t *testing.T) {
	f := newFixture(t, stock.Options{})
	a := f.store.CreateArticle(t, "Bière")
	inv := f.store.CreateInventory(t, time.Now())

	counts := map[id.ID]int64{a: 10}
	require.NoError(t, f.svc.ApplyInventory(f.ctx, inv, counts))
	require.NoError(t, f.svc.ApplyInventory(f.ctx, inv, counts))

	assert.Equal(t, int64(10), f.stockOf(t, a))

	entries, err := f.svc.JournalFor(f.ctx, inv)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(10), entries[0].Delta)
	f.assertNoDrift(t)
}

func TestApplyInventory_RejectsNegativeCount(t *testing.T) {
	f := newFixture(t, stock.Options{})
	a := f.store.CreateArticle(t, "Bière")
	inv := f.store.CreateInventory(t, time.Now())

	err := f.svc.ApplyInventory(f.ctx, inv, map[id.ID]int64{a: -1})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, int64(0), f.store.CountRows(t, "stock_journal"))
}

func TestRevertInventory_RestoresPriorStock(t *testing.T) {
	f := newFixture(t, stock.Options{})
	a := f.store.CreateArticle(t, "Bière")
	b := f.store.CreateArticle(t, "Limonade")

	f.record(t, a, entity.MovementEntry, 10)
	f.record(t, b, entity.MovementEntry, 4)

	inv := f.store.CreateInventory(t, time.Now())
	require.NoError(t, f.svc.ApplyInventory(f.ctx, inv, map[id.ID]int64{a: 7, b: 9}))

	report, err := f.svc.RevertInventory(f.ctx, inv)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Entries)
	assert.Equal(t, map[id.ID]int64{a: 10, b: 4}, report.Stocks)
	assert.Empty(t, report.Corrected)

	assert.Equal(t, int64(10), f.stockOf(t, a))
	assert.Equal(t, int64(4), f.stockOf(t, b))
	assert.Equal(t, int64(0), f.store.CountRows(t, "stock_journal"))
	f.assertNoDrift(t)

	again, err := f.svc.RevertInventory(f.ctx, inv)
	require.NoError(t, err)
	assert.Zero(t, again.Entries)
	assert.Equal(t, int64(10), f.stockOf(t, a))
}

func TestRevertInventory_OutOfOrder(t *testing.T) {
	setup := func(t *testing.T, opts stock.Options) (*fixture, id.ID, id.ID) {
		f := newFixture(t, opts)
		a := f.store.CreateArticle(t, "Bière")

		inv1 := f.store.CreateInventory(t, time.Now())
		require.NoError(t, f.svc.ApplyInventory(f.ctx, inv1, map[id.ID]int64{a: 10}))
		inv2 := f.store.CreateInventory(t, time.Now())
		require.NoError(t, f.svc.ApplyInventory(f.ctx, inv2, map[id.ID]int64{a: 7}))
		require.Equal(t, int64(7), f.stockOf(t, a))
		return f, a, inv1
	}

	t.Run("recompute wins", func(t *testing.T) {
		f, a, inv1 := setup(t, stock.Options{})

		report, err := f.svc.RevertInventory(f.ctx, inv1)
		require.NoError(t, err)
		assert.Equal(t, int64(-3), report.Stocks[a])
		assert.Equal(t, int64(-3), f.stockOf(t, a))
		f.assertNoDrift(t)
	})

	t.Run("strict order", func(t *testing.T) {
		f, a, inv1 := setup(t, stock.Options{StrictRevertOrder: true})

		_, err := f.svc.RevertInventory(f.ctx, inv1)
		require.Error(t, err)
		assert.True(t, apperror.HasCode(err, apperror.CodeRevertOutOfOrder))

		assert.Equal(t, int64(7), f.stockOf(t, a))
		entries, err := f.svc.JournalFor(f.ctx, inv1)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

type failingJournal struct {
	stock.Repository
	after int
	calls int
}

func (r *failingJournal) InsertJournalEntry(ctx context.Context, e entity.JournalEntry) error {
	r.calls++
	if r.calls > r.after {
		return errors.New("disk full")
	}
	return r.Repository.InsertJournalEntry(ctx, e)
}

func TestApplyInventory_RollsBackOnFailure(t *testing.T) {
	store := testutil.NewStore(t)
	ctx := testutil.Context()
	a := store.CreateArticle(t, "Bière")
	b := store.CreateArticle(t, "Limonade")
	inv := store.CreateInventory(t, time.Now())

	repo := &failingJournal{Repository: store.Stock, after: 1}
	svc := stock.NewService(repo, store.TxM, nil, stock.Options{})

	err := svc.ApplyInventory(ctx, inv, map[id.ID]int64{a: 5, b: 8})
	require.Error(t, err)
	assert.True(t, apperror.IsTransactionFailure(err))

	assert.Equal(t, int64(0), store.CountRows(t, "stock_movements"))
	assert.Equal(t, int64(0), store.CountRows(t, "stock_journal"))

	for _, articleID := range []id.ID{a, b} {
		v, err := svc.Stock(ctx, articleID)
		require.NoError(t, err)
		assert.Zero(t, v)
	}
}

func TestFIFO_ConsumesOldestFirst(t *testing.T) {
	f := newFixture(t, stock.Options{})
	a := f.store.CreateArticle(t, "Bière")

	d1 := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 3)

	// Inserted newest first: order comes from the purchase date.
	b2, err := f.svc.CreateBatch(f.ctx, stock.BatchInput{
		ArticleID: a, Quantity: 5, UnitPrice: decimal.RequireFromString("2.00"), PurchaseDate: d2,
	})
	require.NoError(t, err)
	b1, err := f.svc.CreateBatch(f.ctx, stock.BatchInput{
		ArticleID: a, Quantity: 5, UnitPrice: decimal.RequireFromString("1.00"), PurchaseDate: d1,
	})
	require.NoError(t, err)

	res, err := f.svc.ConsumeFIFO(f.ctx, a, 7)
	require.NoError(t, err)
	assert.Nil(t, res.Shortfall)
	assert.Equal(t, int64(7), res.Consumed)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, b1, res.Lines[0].BatchID)
	assert.Equal(t, int64(5), res.Lines[0].Taken)
	assert.Equal(t, b2, res.Lines[1].BatchID)
	assert.Equal(t, int64(2), res.Lines[1].Taken)
	assert.True(t, res.TotalCost.Equal(decimal.NewFromInt(9)), res.TotalCost.String())

	batches, err := f.svc.Batches(f.ctx, a, false)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, int64(0), batches[0].RemainingQuantity)
	assert.Equal(t, int64(3), batches[1].RemainingQuantity)

	basis, err := f.svc.CostBasis(f.ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 1, basis.OpenBatches)
	assert.Equal(t, int64(3), basis.RemainingQuantity)
	assert.True(t, basis.TotalValue.Equal(decimal.NewFromInt(6)))
}

func TestFIFO_Shortfall(t *testing.T) {
	f := newFixture(t, stock.Options{})
	a := f.store.CreateArticle(t, "Bière")

	_, err := f.svc.CreateBatch(f.ctx, stock.BatchInput{
		ArticleID: a, Quantity: 5, UnitPrice: decimal.RequireFromString("1.50"), PurchaseDate: time.Now(),
	})
	require.NoError(t, err)

	res, err := f.svc.ConsumeFIFO(f.ctx, a, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Consumed)
	require.NotNil(t, res.Shortfall)
	assert.Equal(t, int64(2), res.Shortfall.Missing)
	assert.Equal(t, int64(7), res.Shortfall.Requested)

	open, err := f.svc.Batches(f.ctx, a, true)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestFIFO_ConsumeUnknownArticle(t *testing.T) {
	f := newFixture(t, stock.Options{})

	_, err := f.svc.ConsumeFIFO(f.ctx, id.New(), 3)
	assert.True(t, apperror.IsNotFound(err))
}

func TestRecordMovement_PurchaseAndExitDriveBatches(t *testing.T) {
	f := newFixture(t, stock.Options{})
	a := f.store.CreateArticle(t, "Bière")
	price := decimal.RequireFromString("1.20")

	res, err := f.svc.RecordMovement(f.ctx, stock.MovementInput{
		ArticleID: a, Type: entity.MovementPurchase, Quantity: 24, UnitPrice: &price,
	})
	require.NoError(t, err)
	require.NotNil(t, res.BatchID)
	assert.Equal(t, int64(24), res.Stock)

	res, err = f.svc.RecordMovement(f.ctx, stock.MovementInput{
		ArticleID: a, Type: entity.MovementExit, Quantity: 4,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Consumption)
	assert.Equal(t, int64(4), res.Consumption.Consumed)
	assert.Equal(t, int64(20), res.Stock)

	basis, err := f.svc.CostBasis(f.ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(20), basis.RemainingQuantity)
	assert.True(t, basis.WeightedUnitCost.Equal(price), basis.WeightedUnitCost.String())
}

func TestDeleteLinkedMovements_RecomputesTouchedArticles(t *testing.T) {
	f := newFixture(t, stock.Options{})
	a := f.store.CreateArticle(t, "Bière")
	b := f.store.CreateArticle(t, "Limonade")
	event := id.New()

	f.record(t, a, entity.MovementEntry, 10)
	for _, in := range []stock.MovementInput{
		{ArticleID: a, Type: entity.MovementExit, Quantity: 4, LinkKind: entity.LinkEvent, LinkID: &event},
		{ArticleID: b, Type: entity.MovementEntry, Quantity: 6, LinkKind: entity.LinkEvent, LinkID: &event},
	} {
		_, err := f.svc.RecordMovement(f.ctx, in)
		require.NoError(t, err)
	}
	require.Equal(t, int64(6), f.stockOf(t, a))

	stocks, err := f.svc.DeleteLinkedMovements(f.ctx, entity.LinkTo(entity.LinkEvent, event))
	require.NoError(t, err)
	assert.Equal(t, map[id.ID]int64{a: 10, b: 0}, stocks)
	assert.Equal(t, int64(1), f.store.CountRows(t, "stock_movements"))
	f.assertNoDrift(t)

	_, err = f.svc.DeleteLinkedMovements(f.ctx, entity.NoLink)
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.DeleteLinkedMovements(f.ctx, entity.LinkRef{Kind: entity.LinkEvent})
	assert.True(t, apperror.IsValidation(err))
}

func TestRecompute_MatchesIncrementalAfterMixedHistory(t *testing.T) {
	f := newFixture(t, stock.Options{})
	a := f.store.CreateArticle(t, "Bière")
	b := f.store.CreateArticle(t, "Limonade")

	f.record(t, a, entity.MovementPurchase, 24)
	f.record(t, a, entity.MovementExit, 30)
	f.record(t, b, entity.MovementEntry, 3)

	inv1 := f.store.CreateInventory(t, time.Now())
	require.NoError(t, f.svc.ApplyInventory(f.ctx, inv1, map[id.ID]int64{a: 2, b: 5}))
	f.record(t, b, entity.MovementExit, 1)
	inv2 := f.store.CreateInventory(t, time.Now())
	require.NoError(t, f.svc.ApplyInventory(f.ctx, inv2, map[id.ID]int64{b: 1}))
	_, err := f.svc.RevertInventory(f.ctx, inv2)
	require.NoError(t, err)

	for _, articleID := range []id.ID{a, b} {
		cached := f.stockOf(t, articleID)
		computed, err := f.svc.RecomputeStock(f.ctx, articleID)
		require.NoError(t, err)
		assert.Equal(t, cached, computed)
	}
	assert.Equal(t, int64(2), f.stockOf(t, a))
	assert.Equal(t, int64(4), f.stockOf(t, b))
}
