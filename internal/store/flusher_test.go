package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daboss57/wallstreet-sub000/internal/model"
	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
	"github.com/Daboss57/wallstreet-sub000/pkg/exception"
)

func tickRows(price float64) ([]model.PriceRow, []model.Candle) {
	rows := []model.PriceRow{{Ticker: "TTA", Price: price, Bid: price - 0.01, Ask: price + 0.01}}
	candles := []model.Candle{{
		Ticker: "TTA", Interval: enum.Interval1m,
		OpenTime: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
		Open:     price, High: price, Low: price, Close: price, Volume: 1,
	}}
	return rows, candles
}

func TestFlusherHonorsCadence(t *testing.T) {
	gw := NewMemory()
	f := NewFlusher(gw, 3)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		rows, candles := tickRows(100 + float64(i))
		f.Add(rows, candles)
		require.NoError(t, f.MaybeFlush(ctx))
	}
	loaded, err := gw.LoadPrices(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded, "nothing written before the cadence is due")

	rows, candles := tickRows(102)
	f.Add(rows, candles)
	require.NoError(t, f.MaybeFlush(ctx))

	loaded, err = gw.LoadPrices(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 102.0, loaded[0].Price, "latest buffered state wins")
}

func TestFlusherKeepsBatchAcrossOutage(t *testing.T) {
	gw := NewMemory()
	f := NewFlusher(gw, 1)
	ctx := context.Background()

	rows, candles := tickRows(100)
	f.Add(rows, candles)

	gw.SetUnavailable(true)
	err := f.MaybeFlush(ctx)
	assert.ErrorIs(t, err, exception.ErrStorageUnavailable)

	gw.SetUnavailable(false)
	require.NoError(t, f.Flush(ctx))

	loaded, err := gw.LoadPrices(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 100.0, loaded[0].Price)

	bars, err := gw.Candles(ctx, "TTA", enum.Interval1m, 10)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestFlushEmptyResetsCounter(t *testing.T) {
	gw := NewMemory()
	f := NewFlusher(gw, 2)
	ctx := context.Background()

	f.Add(nil, nil)
	f.Add(nil, nil)
	require.NoError(t, f.MaybeFlush(ctx))

	loaded, err := gw.LoadPrices(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
