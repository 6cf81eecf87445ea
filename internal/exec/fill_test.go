package exec

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
	"github.com/Daboss57/wallstreet-sub000/internal/obs"
	"github.com/Daboss57/wallstreet-sub000/internal/store"
)

func TestMarketBuyFillsAndDebitsCash(t *testing.T) {
	gw := store.NewMemory()
	e := newTestExecutor(t, gw)
	ctx := context.Background()
	now := time.Now().UTC()

	seedBalance(t, gw, "u1", 100_000)
	ord := openOrder(t, gw, marketOrder("o1", "u1", enum.OrderSideBuy, 10))

	require.NoError(t, e.ExecuteOrder(ctx, ord, quoteAt(100), 100.01, 0, now))

	bal, err := gw.Balance(ctx, "u1")
	require.NoError(t, err)
	wantCash := decimal.NewFromInt(100_000).
		Sub(decimal.NewFromFloat(100.01).Mul(decimal.NewFromInt(10)))
	assert.True(t, bal.Cash.Equal(wantCash), "cash %s want %s", bal.Cash, wantCash)

	pos, ok := onlyPosition(t, gw, "u1")
	require.True(t, ok)
	assert.True(t, pos.Qty.Equal(decimal.NewFromInt(10)))
	assert.True(t, pos.AvgCost.Equal(decimal.NewFromFloat(100.01)))

	_, stillOpen := findOrder(t, gw, "o1")
	assert.False(t, stillOpen, "order should be filled")

	trades, err := gw.Trades(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, enum.OrderSideBuy, trades[0].Side)
	assert.Equal(t, enum.RegimeNormal, trades[0].Regime)
}

func TestUnaffordableBuyIsCancelled(t *testing.T) {
	gw := store.NewMemory()
	metrics := obs.NewMetrics()
	e := NewExecutor(gw, CostModel{Realism: false}, execUniverse(t), stubRegime{active: enum.RegimeNormal}, nil, nil, metrics)
	ctx := context.Background()

	seedBalance(t, gw, "u1", 50)
	ord := openOrder(t, gw, marketOrder("o1", "u1", enum.OrderSideBuy, 1000))

	quote := quoteAt(100)
	require.NoError(t, e.ExecuteOrder(ctx, ord, quote, quote.Ask, 0, time.Now().UTC()))

	bal, err := gw.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, bal.Cash.Equal(decimal.NewFromInt(50)), "cash untouched")

	_, hasPos := onlyPosition(t, gw, "u1")
	assert.False(t, hasPos)

	trades, err := gw.Trades(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, trades)

	_, stillOpen := findOrder(t, gw, "o1")
	assert.False(t, stillOpen, "order should be cancelled")

	assert.Equal(t, uint64(1), metrics.Snapshot().Cancels)
	assert.Zero(t, metrics.Snapshot().Fills, "counted as a cancel, not a fill")
}

func TestPartiallyAffordableBuyShrinksAndCancelsRest(t *testing.T) {
	gw := store.NewMemory()
	e := newTestExecutor(t, gw)
	ctx := context.Background()

	seedBalance(t, gw, "u1", 500)
	ord := openOrder(t, gw, marketOrder("o1", "u1", enum.OrderSideBuy, 10))

	quote := quoteAt(100)
	require.NoError(t, e.ExecuteOrder(ctx, ord, quote, quote.Ask, 0, time.Now().UTC()))

	pos, ok := onlyPosition(t, gw, "u1")
	require.True(t, ok)
	assert.True(t, pos.Qty.IsPositive())
	assert.True(t, pos.Qty.LessThan(decimal.NewFromInt(10)))

	bal, err := gw.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, bal.Cash.IsPositive(), "cash %s", bal.Cash)

	// The unaffordable remainder is cancelled rather than left to spin.
	_, stillOpen := findOrder(t, gw, "o1")
	assert.False(t, stillOpen)

	trades, err := gw.Trades(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Qty.Equal(pos.Qty))
}

func TestShortOpenAndCoverRealizesPnl(t *testing.T) {
	gw := store.NewMemory()
	e := newTestExecutor(t, gw)
	ctx := context.Background()
	now := time.Now().UTC()

	seedBalance(t, gw, "u1", 10_000)

	sell := openOrder(t, gw, marketOrder("s1", "u1", enum.OrderSideSell, 10))
	require.NoError(t, e.ExecuteOrder(ctx, sell, quoteAt(100), 99.99, 0, now))

	pos, ok := onlyPosition(t, gw, "u1")
	require.True(t, ok)
	assert.True(t, pos.Qty.Equal(decimal.NewFromInt(-10)))
	assert.True(t, pos.AvgCost.Equal(decimal.NewFromFloat(99.99)))
	assert.True(t, pos.IsShort())

	// Cover lower: profit 10 * (99.99 - 90.01).
	buy := openOrder(t, gw, marketOrder("b1", "u1", enum.OrderSideBuy, 10))
	require.NoError(t, e.ExecuteOrder(ctx, buy, quoteAt(90), 90.01, 0, now))

	_, hasPos := onlyPosition(t, gw, "u1")
	assert.False(t, hasPos, "flat position row is deleted")

	bal, err := gw.Balance(ctx, "u1")
	require.NoError(t, err)
	ten := decimal.NewFromInt(10)
	expected := decimal.NewFromInt(10_000).
		Add(decimal.NewFromFloat(99.99).Mul(ten)).
		Sub(decimal.NewFromFloat(90.01).Mul(ten))
	assert.True(t, bal.Cash.Equal(expected), "cash %s want %s", bal.Cash, expected)

	trades, err := gw.Trades(ctx, "u1", 1)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	wantPnl := decimal.NewFromFloat(99.99).Sub(decimal.NewFromFloat(90.01)).Mul(ten)
	assert.True(t, trades[0].NetPnl.Equal(wantPnl), "pnl %s", trades[0].NetPnl)
}

func TestBuysAverageIntoWeightedCost(t *testing.T) {
	gw := store.NewMemory()
	e := newTestExecutor(t, gw)
	ctx := context.Background()
	now := time.Now().UTC()

	seedBalance(t, gw, "u1", 100_000)

	first := openOrder(t, gw, marketOrder("o1", "u1", enum.OrderSideBuy, 10))
	require.NoError(t, e.ExecuteOrder(ctx, first, quoteAt(100), 100, 0, now))

	second := openOrder(t, gw, marketOrder("o2", "u1", enum.OrderSideBuy, 10))
	require.NoError(t, e.ExecuteOrder(ctx, second, quoteAt(110), 110, 0, now))

	pos, ok := onlyPosition(t, gw, "u1")
	require.True(t, ok)
	assert.True(t, pos.Qty.Equal(decimal.NewFromInt(20)))
	assert.True(t, pos.AvgCost.Equal(decimal.NewFromInt(105)), "avg %s", pos.AvgCost)
}

func TestSellFlipsLongToShort(t *testing.T) {
	gw := store.NewMemory()
	e := newTestExecutor(t, gw)
	ctx := context.Background()
	now := time.Now().UTC()

	seedBalance(t, gw, "u1", 100_000)

	buy := openOrder(t, gw, marketOrder("o1", "u1", enum.OrderSideBuy, 10))
	require.NoError(t, e.ExecuteOrder(ctx, buy, quoteAt(100), 100, 0, now))

	sell := openOrder(t, gw, marketOrder("o2", "u1", enum.OrderSideSell, 15))
	require.NoError(t, e.ExecuteOrder(ctx, sell, quoteAt(120), 120, 0, now))

	pos, ok := onlyPosition(t, gw, "u1")
	require.True(t, ok)
	assert.True(t, pos.Qty.Equal(decimal.NewFromInt(-5)), "qty %s", pos.Qty)
	// Surplus opens at the fill price.
	assert.True(t, pos.AvgCost.Equal(decimal.NewFromInt(120)))

	trades, err := gw.Trades(ctx, "u1", 1)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	// Closed 10 at +20 each.
	assert.True(t, trades[0].NetPnl.Equal(decimal.NewFromInt(200)), "pnl %s", trades[0].NetPnl)
}

func TestStaleOrderIsANoop(t *testing.T) {
	gw := store.NewMemory()
	e := newTestExecutor(t, gw)
	ctx := context.Background()

	seedBalance(t, gw, "u1", 100_000)
	ord := openOrder(t, gw, marketOrder("o1", "u1", enum.OrderSideBuy, 10))
	require.NoError(t, gw.CancelOrder(ctx, "o1"))

	require.NoError(t, e.ExecuteOrder(ctx, ord, quoteAt(100), 100.01, 0, time.Now().UTC()))

	trades, err := gw.Trades(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestFillCancelsOCOSibling(t *testing.T) {
	gw := store.NewMemory()
	e := newTestExecutor(t, gw)
	ctx := context.Background()

	seedBalance(t, gw, "u1", 100_000)

	a := marketOrder("oco-a", "u1", enum.OrderSideBuy, 5)
	a.OCOID = "pair-1"
	a = openOrder(t, gw, a)

	b := marketOrder("oco-b", "u1", enum.OrderSideBuy, 5)
	b.OCOID = "pair-1"
	openOrder(t, gw, b)

	require.NoError(t, e.ExecuteOrder(ctx, a, quoteAt(100), 100.01, 0, time.Now().UTC()))

	_, aOpen := findOrder(t, gw, "oco-a")
	_, bOpen := findOrder(t, gw, "oco-b")
	assert.False(t, aOpen, "filled")
	assert.False(t, bOpen, "sibling cancelled")
}
