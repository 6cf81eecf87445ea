package market

import (
	"time"

	"github.com/Daboss57/wallstreet-sub000/internal/model"
	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
)

// CandleAggregator rolls ticks into one open bar per instrument and
// interval. Completed bars queue for persistence until drained.
type CandleAggregator struct {
	intervals []enum.CandleInterval
	open      map[string]map[enum.CandleInterval]*model.Candle
	completed []model.Candle
}

// NewCandleAggregator tracks every supported interval.
func NewCandleAggregator() *CandleAggregator {
	return &CandleAggregator{
		intervals: enum.Intervals(),
		open:      make(map[string]map[enum.CandleInterval]*model.Candle),
	}
}

// Apply extends the open bars of one instrument with a tick. Bars whose
// bucket has rolled over are completed and replaced with a bar seeded at the
// tick price.
func (a *CandleAggregator) Apply(ticker string, now time.Time, price, volume float64) {
	bars := a.open[ticker]
	if bars == nil {
		bars = make(map[enum.CandleInterval]*model.Candle, len(a.intervals))
		a.open[ticker] = bars
	}
	for _, interval := range a.intervals {
		bucket := bucketStart(now, interval)
		bar := bars[interval]
		if bar == nil || bucket.After(bar.OpenTime) {
			if bar != nil {
				a.completed = append(a.completed, *bar)
			}
			bars[interval] = &model.Candle{
				Ticker:   ticker,
				Interval: interval,
				OpenTime: bucket,
				Open:     price,
				High:     price,
				Low:      price,
				Close:    price,
				Volume:   volume,
			}
			continue
		}
		if price > bar.High {
			bar.High = price
		}
		if price < bar.Low {
			bar.Low = price
		}
		bar.Close = price
		bar.Volume += volume
	}
}

// Bar returns a copy of the open bar for one ticker and interval.
func (a *CandleAggregator) Bar(ticker string, interval enum.CandleInterval) (model.Candle, bool) {
	bar, ok := a.open[ticker][interval]
	if !ok {
		return model.Candle{}, false
	}
	return *bar, true
}

// Drain returns completed bars plus a snapshot of every open bar, clearing
// the completed queue. The flusher upserts the result idempotently.
func (a *CandleAggregator) Drain() []model.Candle {
	out := a.completed
	a.completed = nil
	for _, bars := range a.open {
		for _, bar := range bars {
			out = append(out, *bar)
		}
	}
	return out
}

func bucketStart(now time.Time, interval enum.CandleInterval) time.Time {
	sec := interval.Seconds()
	utc := now.UTC()
	return time.Unix(utc.Unix()-utc.Unix()%sec, 0).UTC()
}
