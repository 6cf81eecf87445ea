package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daboss57/wallstreet-sub000/internal/model"
	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
	"github.com/Daboss57/wallstreet-sub000/pkg/exception"
)

func seedLedger(t *testing.T, m *Memory) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, m.SaveBalance(ctx, &model.Balance{
		UserID: "u1",
		Cash:   decimal.NewFromInt(1000),
	}))
	require.NoError(t, m.CreateOrder(ctx, &model.Order{
		OrderID: "o1",
		UserID:  "u1",
		Ticker:  "TTA",
		Type:    enum.OrderTypeMarket,
		Side:    enum.OrderSideBuy,
		Qty:     decimal.NewFromInt(5),
	}))
}

func TestLedgerTxCommitsAtomically(t *testing.T) {
	m := NewMemory()
	seedLedger(t, m)
	ctx := context.Background()

	err := m.LedgerTx(ctx, "u1", "TTA", "o1", func(tx Tx) error {
		bal := tx.Balance()
		bal.Cash = bal.Cash.Sub(decimal.NewFromInt(100))
		if err := tx.SaveBalance(bal); err != nil {
			return err
		}
		return tx.SavePosition(&model.Position{
			UserID:  "u1",
			Ticker:  "TTA",
			Qty:     decimal.NewFromInt(5),
			AvgCost: decimal.NewFromInt(20),
		})
	})
	require.NoError(t, err)

	bal, err := m.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, bal.Cash.Equal(decimal.NewFromInt(900)))

	positions, err := m.Positions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.True(t, positions[0].Qty.Equal(decimal.NewFromInt(5)))
}

func TestLedgerTxRollsBackOnError(t *testing.T) {
	m := NewMemory()
	seedLedger(t, m)
	ctx := context.Background()

	boom := errors.New("boom")
	err := m.LedgerTx(ctx, "u1", "TTA", "o1", func(tx Tx) error {
		bal := tx.Balance()
		bal.Cash = decimal.Zero
		if err := tx.SaveBalance(bal); err != nil {
			return err
		}
		if err := tx.AppendTrade(&model.Trade{TradeID: "t1", UserID: "u1"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	bal, err := m.Balance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, bal.Cash.Equal(decimal.NewFromInt(1000)), "balance untouched")

	trades, err := m.Trades(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, trades, "staged trade discarded")
}

func TestLedgerTxMissingRowsAreNotFound(t *testing.T) {
	m := NewMemory()
	seedLedger(t, m)
	ctx := context.Background()

	err := m.LedgerTx(ctx, "u1", "TTA", "missing", func(tx Tx) error { return nil })
	assert.ErrorIs(t, err, exception.ErrNotFound)

	err = m.LedgerTx(ctx, "nobody", "TTA", "", func(tx Tx) error { return nil })
	assert.ErrorIs(t, err, exception.ErrNotFound)
}

func TestLedgerTxRejectsReopeningTerminalOrder(t *testing.T) {
	m := NewMemory()
	seedLedger(t, m)
	ctx := context.Background()

	require.NoError(t, m.CancelOrder(ctx, "o1"))

	err := m.LedgerTx(ctx, "u1", "TTA", "o1", func(tx Tx) error {
		ord := tx.Order()
		ord.Status = enum.OrderStatusOpen
		return tx.SaveOrder(ord)
	})
	assert.ErrorIs(t, err, exception.ErrOrderInvalidStatusSeq)

	assert.Equal(t, enum.OrderStatusCancelled, m.orders["o1"].Status, "rejected save rolled back")
}

func TestLedgerTxRejectsPartialToOpenRegression(t *testing.T) {
	m := NewMemory()
	seedLedger(t, m)
	ctx := context.Background()

	require.NoError(t, m.LedgerTx(ctx, "u1", "TTA", "o1", func(tx Tx) error {
		ord := tx.Order()
		ord.Status = enum.OrderStatusPartial
		return tx.SaveOrder(ord)
	}))

	err := m.LedgerTx(ctx, "u1", "TTA", "o1", func(tx Tx) error {
		ord := tx.Order()
		ord.Status = enum.OrderStatusOpen
		return tx.SaveOrder(ord)
	})
	assert.ErrorIs(t, err, exception.ErrOrderInvalidStatusSeq)
}

func TestUnavailableGatewayRejectsEverything(t *testing.T) {
	m := NewMemory()
	seedLedger(t, m)
	ctx := context.Background()

	m.SetUnavailable(true)

	_, err := m.OpenOrders(ctx)
	assert.ErrorIs(t, err, exception.ErrStorageUnavailable)
	_, err = m.Balance(ctx, "u1")
	assert.ErrorIs(t, err, exception.ErrStorageUnavailable)
	err = m.LedgerTx(ctx, "u1", "TTA", "o1", func(tx Tx) error { return nil })
	assert.ErrorIs(t, err, exception.ErrStorageUnavailable)
	err = m.UpsertPrices(ctx, nil)
	assert.ErrorIs(t, err, exception.ErrStorageUnavailable)

	m.SetUnavailable(false)
	_, err = m.OpenOrders(ctx)
	assert.NoError(t, err)
}

func TestCreateOrderValidates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.CreateOrder(ctx, &model.Order{OrderID: "x"})
	assert.ErrorIs(t, err, exception.ErrOrderInvalidRequest)

	err = m.CreateOrder(ctx, &model.Order{
		OrderID: "x", UserID: "u1", Ticker: "TTA",
		Type: enum.OrderTypeMarket, Side: enum.OrderSideBuy,
		Qty: decimal.Zero,
	})
	assert.ErrorIs(t, err, exception.ErrOrderInvalidQty)

	err = m.CreateOrder(ctx, &model.Order{
		OrderID: "x", UserID: "u1", Ticker: "TTA",
		Type: enum.OrderTypeLimit, Side: enum.OrderSideBuy,
		Qty: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, exception.ErrOrderMissingLimit)

	err = m.CreateOrder(ctx, &model.Order{
		OrderID: "x", UserID: "u1", Ticker: "TTA",
		Type: enum.OrderTypeTrailingStop, Side: enum.OrderSideSell,
		Qty: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, exception.ErrOrderMissingTrailPct)
}

func TestCancelOrderTransitions(t *testing.T) {
	m := NewMemory()
	seedLedger(t, m)
	ctx := context.Background()

	require.NoError(t, m.CancelOrder(ctx, "o1"))
	assert.ErrorIs(t, m.CancelOrder(ctx, "o1"), exception.ErrOrderNotOpen)
	assert.ErrorIs(t, m.CancelOrder(ctx, "ghost"), exception.ErrOrderNotOpen)

	open, err := m.OpenOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestCandleUpsertIsIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	openTime := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	first := model.Candle{
		Ticker: "TTA", Interval: enum.Interval1m, OpenTime: openTime,
		Open: 100, High: 102, Low: 99, Close: 101, Volume: 50,
	}
	require.NoError(t, m.UpsertCandles(ctx, []model.Candle{first}))

	// A later snapshot of the same bar extends extremes and volume.
	second := first
	second.High = 104
	second.Low = 98
	second.Close = 103
	second.Volume = 80
	require.NoError(t, m.UpsertCandles(ctx, []model.Candle{second}))

	// A replayed stale snapshot must not shrink the bar's extremes.
	require.NoError(t, m.UpsertCandles(ctx, []model.Candle{first}))

	candles, err := m.Candles(ctx, "TTA", enum.Interval1m, 10)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, 104.0, candles[0].High)
	assert.Equal(t, 98.0, candles[0].Low)
	assert.Equal(t, 80.0, candles[0].Volume)
}

func TestCandlesRejectsUnknownInterval(t *testing.T) {
	m := NewMemory()
	_, err := m.Candles(context.Background(), "TTA", enum.CandleInterval("7m"), 10)
	assert.ErrorIs(t, err, exception.ErrMarketDegenerateInterval)
}

func TestRegimeRecordsLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := m.ActiveRegime(ctx)
	assert.ErrorIs(t, err, exception.ErrNotFound)

	require.NoError(t, m.AppendRegime(ctx, &model.RegimeRecord{
		Regime: enum.RegimeNormal, StartedAt: now,
	}))
	rec, err := m.ActiveRegime(ctx)
	require.NoError(t, err)
	assert.Equal(t, enum.RegimeNormal, rec.Regime)

	require.NoError(t, m.CloseActiveRegimes(ctx, now.Add(time.Minute)))
	require.NoError(t, m.AppendRegime(ctx, &model.RegimeRecord{
		Regime: enum.RegimeEventShock, StartedAt: now.Add(time.Minute),
	}))

	rec, err = m.ActiveRegime(ctx)
	require.NoError(t, err)
	assert.Equal(t, enum.RegimeEventShock, rec.Regime)
}
