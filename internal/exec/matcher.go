package exec

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"github.com/Daboss57/wallstreet-sub000/internal/market"
	"github.com/Daboss57/wallstreet-sub000/internal/model"
	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
	"github.com/Daboss57/wallstreet-sub000/internal/store"
)

// QuoteSource provides the latest per-instrument quote to the matcher.
type QuoteSource interface {
	Quote(ticker string) (market.Quote, bool)
}

// Matcher scans open orders against current quotes every tick. Trigger
// evaluation is read-only; only the executor mutates the ledger.
type Matcher struct {
	gw     store.Gateway
	quotes QuoteSource
	exec   *Executor
}

// NewMatcher wires the per-tick matching scan.
func NewMatcher(gw store.Gateway, quotes QuoteSource, exec *Executor) *Matcher {
	return &Matcher{gw: gw, quotes: quotes, exec: exec}
}

// Run evaluates every open order once. A fill error on one order does
// not stop the scan; the first error is returned after the pass.
func (m *Matcher) Run(ctx context.Context, now time.Time) error {
	orders, err := m.gw.OpenOrders(ctx)
	if err != nil {
		return errors.Wrap(err, "load open orders")
	}

	var firstErr error
	for i := range orders {
		ord := orders[i]
		quote, ok := m.quotes.Quote(ord.Ticker)
		if !ok {
			continue
		}
		ref, limit, fire, err := m.evaluate(ctx, &ord, quote)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !fire {
			continue
		}
		if err := m.exec.ExecuteOrder(ctx, ord, quote, ref, limit, now); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// evaluate decides whether an order triggers this tick and at what
// reference price. It may persist trigger bookkeeping (trailing extremes,
// the stop-limit latch) even when the order does not fire.
func (m *Matcher) evaluate(ctx context.Context, ord *model.Order, q market.Quote) (ref, limit float64, fire bool, err error) {
	switch ord.Type {
	case enum.OrderTypeMarket:
		return sideRef(ord.Side, q), 0, true, nil

	case enum.OrderTypeLimit:
		return m.limitTrigger(ord, q)

	case enum.OrderTypeStop, enum.OrderTypeStopLoss:
		stop := ord.StopPrice.Decimal.InexactFloat64()
		if ord.Side == enum.OrderSideBuy && q.Price >= stop {
			return q.Ask, 0, true, nil
		}
		if ord.Side == enum.OrderSideSell && q.Price <= stop {
			return q.Bid, 0, true, nil
		}
		return 0, 0, false, nil

	case enum.OrderTypeStopLimit:
		if !ord.Triggered {
			stop := ord.StopPrice.Decimal.InexactFloat64()
			crossed := (ord.Side == enum.OrderSideBuy && q.Price >= stop) ||
				(ord.Side == enum.OrderSideSell && q.Price <= stop)
			if !crossed {
				return 0, 0, false, nil
			}
			ord.Triggered = true
			if err := m.gw.SaveOrderTrigger(ctx, ord); err != nil {
				return 0, 0, false, errors.Wrap(err, "latch stop-limit trigger")
			}
		}
		return m.limitTrigger(ord, q)

	case enum.OrderTypeTakeProfit:
		stop := ord.StopPrice.Decimal.InexactFloat64()
		if ord.Side == enum.OrderSideBuy && q.Price <= stop {
			return q.Ask, 0, true, nil
		}
		if ord.Side == enum.OrderSideSell && q.Price >= stop {
			return q.Bid, 0, true, nil
		}
		return 0, 0, false, nil

	case enum.OrderTypeTrailingStop:
		return m.trailingTrigger(ctx, ord, q)
	}
	return 0, 0, false, nil
}

// limitTrigger checks marketable limit prices. A buy fills when the ask
// is at or under the limit, never above it; sells mirror on the bid.
func (m *Matcher) limitTrigger(ord *model.Order, q market.Quote) (ref, limit float64, fire bool, err error) {
	lim := ord.LimitPrice.Decimal.InexactFloat64()
	if ord.Side == enum.OrderSideBuy {
		if q.Ask <= lim {
			return min(q.Ask, lim), lim, true, nil
		}
		return 0, 0, false, nil
	}
	if q.Bid >= lim {
		return max(q.Bid, lim), lim, true, nil
	}
	return 0, 0, false, nil
}

// trailingTrigger ratchets the tracked extreme each tick and fires when
// price retraces by the trail percentage from that extreme.
func (m *Matcher) trailingTrigger(ctx context.Context, ord *model.Order, q market.Quote) (ref, limit float64, fire bool, err error) {
	pct := ord.TrailPct.Decimal.InexactFloat64() / 100

	extreme := q.Price
	if ord.TrailHigh.Valid {
		prev := ord.TrailHigh.Decimal.InexactFloat64()
		if ord.Side == enum.OrderSideSell {
			extreme = max(prev, q.Price)
		} else {
			extreme = min(prev, q.Price)
		}
	}
	if !ord.TrailHigh.Valid || extreme != ord.TrailHigh.Decimal.InexactFloat64() {
		ord.TrailHigh = decimal.NewNullDecimal(decimal.NewFromFloat(extreme))
		if err := m.gw.SaveOrderTrigger(ctx, ord); err != nil {
			return 0, 0, false, errors.Wrap(err, "update trailing extreme")
		}
	}

	if ord.Side == enum.OrderSideSell {
		if q.Price <= extreme*(1-pct) {
			return q.Bid, 0, true, nil
		}
		return 0, 0, false, nil
	}
	if q.Price >= extreme*(1+pct) {
		return q.Ask, 0, true, nil
	}
	return 0, 0, false, nil
}

func sideRef(side enum.OrderSide, q market.Quote) float64 {
	if side == enum.OrderSideBuy {
		return q.Ask
	}
	return q.Bid
}
