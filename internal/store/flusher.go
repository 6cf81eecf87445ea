package store

import (
	"context"

	"github.com/yanun0323/errors"

	"github.com/Daboss57/wallstreet-sub000/internal/model"
)

const defaultFlushEvery = 5

// Flusher batches price and candle writes so the tick loop never blocks on
// per-row persistence. A failed flush keeps the batch for the next attempt.
type Flusher struct {
	gw    Gateway
	every int
	ticks int

	prices  map[string]model.PriceRow
	candles map[string]model.Candle
}

// NewFlusher flushes every `every` ticks (and on Flush).
func NewFlusher(gw Gateway, every int) *Flusher {
	if every <= 0 {
		every = defaultFlushEvery
	}
	return &Flusher{
		gw:      gw,
		every:   every,
		prices:  make(map[string]model.PriceRow),
		candles: make(map[string]model.Candle),
	}
}

// Add absorbs one tick's rows. Later states supersede buffered ones; candle
// rows carry cumulative bar values so latest-wins is lossless.
func (f *Flusher) Add(prices []model.PriceRow, candles []model.Candle) {
	for _, row := range prices {
		f.prices[row.Ticker] = row
	}
	for _, c := range candles {
		f.candles[candleKey(c)] = c
	}
	f.ticks++
}

// MaybeFlush flushes when the cadence is due.
func (f *Flusher) MaybeFlush(ctx context.Context) error {
	if f.ticks < f.every {
		return nil
	}
	return f.Flush(ctx)
}

// Flush writes both batches. Buffers are kept on failure and cleared only
// after a successful write.
func (f *Flusher) Flush(ctx context.Context) error {
	if len(f.prices) == 0 && len(f.candles) == 0 {
		f.ticks = 0
		return nil
	}

	prices := make([]model.PriceRow, 0, len(f.prices))
	for _, row := range f.prices {
		prices = append(prices, row)
	}
	if err := f.gw.UpsertPrices(ctx, prices); err != nil {
		return errors.Wrap(err, "flush prices")
	}
	f.prices = make(map[string]model.PriceRow)

	candles := make([]model.Candle, 0, len(f.candles))
	for _, c := range f.candles {
		candles = append(candles, c)
	}
	if err := f.gw.UpsertCandles(ctx, candles); err != nil {
		return errors.Wrap(err, "flush candles")
	}
	f.candles = make(map[string]model.Candle)
	f.ticks = 0
	return nil
}
