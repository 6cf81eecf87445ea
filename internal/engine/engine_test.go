package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daboss57/wallstreet-sub000/internal/model"
	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
	"github.com/Daboss57/wallstreet-sub000/internal/obs"
	"github.com/Daboss57/wallstreet-sub000/internal/ops"
	"github.com/Daboss57/wallstreet-sub000/internal/store"
)

func testEngine(t *testing.T, seed int64) (*Engine, *store.Memory, *obs.Metrics) {
	t.Helper()
	cfg, err := ops.Load("")
	require.NoError(t, err)
	cfg.Seed = seed
	cfg.FlushEvery = 2
	gw := store.NewMemory()
	metrics := obs.NewMetrics()
	return New(cfg, gw, metrics), gw, metrics
}

func TestRunTicksMovesAndPersistsPrices(t *testing.T) {
	eng, gw, metrics := testEngine(t, 99)
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	eng.RunTicks(ctx, 20, start)

	rows, err := gw.LoadPrices(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(rows), 30, "all instruments persisted")

	moved := 0
	for _, row := range rows {
		assert.Greater(t, row.Price, 0.0)
		assert.Less(t, row.Bid, row.Ask)
		if row.Price != row.SessionOpen {
			moved++
		}
	}
	assert.Greater(t, moved, 0, "prices should move over 20 ticks")

	assert.Equal(t, uint64(20), metrics.Snapshot().Ticks)

	rec, err := gw.ActiveRegime(ctx)
	require.NoError(t, err)
	assert.True(t, rec.Regime.IsAvailable())
}

func TestRunTicksDeterministicBySeed(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	engA, gwA, _ := testEngine(t, 7)
	engB, gwB, _ := testEngine(t, 7)
	engA.RunTicks(ctx, 50, start)
	engB.RunTicks(ctx, 50, start)

	quoteA, ok := engA.Prices().Quote("AAPL")
	require.True(t, ok)
	quoteB, ok := engB.Prices().Quote("AAPL")
	require.True(t, ok)
	assert.Equal(t, quoteA.Price, quoteB.Price)

	rowsA, err := gwA.LoadPrices(ctx)
	require.NoError(t, err)
	rowsB, err := gwB.LoadPrices(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(rowsA), len(rowsB))
}

func TestRunTicksFillsSeededOrder(t *testing.T) {
	eng, gw, metrics := testEngine(t, 42)
	ctx := context.Background()

	require.NoError(t, gw.SaveBalance(ctx, &model.Balance{
		UserID: "demo",
		Cash:   decimal.NewFromInt(1_000_000),
	}))
	require.NoError(t, gw.CreateOrder(ctx, &model.Order{
		OrderID: "demo-1",
		UserID:  "demo",
		Ticker:  "AAPL",
		Type:    enum.OrderTypeMarket,
		Side:    enum.OrderSideBuy,
		Qty:     decimal.NewFromInt(10),
		Status:  enum.OrderStatusOpen,
	}))

	eng.RunTicks(ctx, 5, time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC))

	trades, err := gw.Trades(ctx, "demo", 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Qty.Equal(decimal.NewFromInt(10)))

	positions, err := gw.Positions(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.True(t, positions[0].Qty.Equal(decimal.NewFromInt(10)))

	open, err := gw.OpenOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	assert.Equal(t, uint64(1), metrics.Snapshot().Fills)
}

func TestStepSurvivesStorageOutage(t *testing.T) {
	eng, gw, metrics := testEngine(t, 11)
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	eng.RunTicks(ctx, 4, start)
	gw.SetUnavailable(true)
	eng.RunTicks(ctx, 4, start.Add(4*time.Second))
	gw.SetUnavailable(false)
	eng.RunTicks(ctx, 4, start.Add(8*time.Second))

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(12), snap.Ticks, "ticks keep flowing through the outage")
	assert.Greater(t, snap.StorageErrors, uint64(0))

	rows, err := gw.LoadPrices(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, rows, "batches flushed after recovery")
}

func TestApplyNewsShockPersistsForcedRegime(t *testing.T) {
	eng, gw, _ := testEngine(t, 3)
	ctx := context.Background()

	eng.RunTicks(ctx, 2, time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC))
	require.NoError(t, eng.ApplyNewsShock(ctx, "AAPL", 0.05))

	rec, err := gw.ActiveRegime(ctx)
	require.NoError(t, err)
	assert.Equal(t, enum.RegimeEventShock, rec.Regime)

	assert.Error(t, eng.ApplyNewsShock(ctx, "NOPE", 0.05))
}
