package exec

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"github.com/Daboss57/wallstreet-sub000/internal/model"
	"github.com/Daboss57/wallstreet-sub000/internal/obs"
	"github.com/Daboss57/wallstreet-sub000/internal/store"
)

// marginRatio is the maintenance threshold: equity must cover short
// exposure with this much headroom or every short is covered.
const marginRatio = 1.1

// MarginMonitor liquidates under-margined accounts. Equity is cash plus
// marked positions; exposure is the marked value of shorts only.
type MarginMonitor struct {
	gw      store.Gateway
	quotes  QuoteSource
	exec    *Executor
	metrics *obs.Metrics
}

// NewMarginMonitor wires the per-tick margin check. metrics may be nil.
func NewMarginMonitor(gw store.Gateway, quotes QuoteSource, exec *Executor, metrics *obs.Metrics) *MarginMonitor {
	return &MarginMonitor{gw: gw, quotes: quotes, exec: exec, metrics: metrics}
}

// Check scans every user holding positions and force-covers all shorts
// of any account below the maintenance threshold.
func (m *MarginMonitor) Check(ctx context.Context, now time.Time) error {
	users, err := m.gw.UsersWithPositions(ctx)
	if err != nil {
		return errors.Wrap(err, "load position holders")
	}

	var firstErr error
	for _, userID := range users {
		if err := m.checkUser(ctx, userID, now); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *MarginMonitor) checkUser(ctx context.Context, userID string, now time.Time) error {
	positions, err := m.gw.Positions(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "load positions")
	}

	bal, err := m.gw.Balance(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "load balance")
	}

	equity := bal.Cash.InexactFloat64()
	shortExposure := 0.0
	var shorts []model.Position
	for _, p := range positions {
		quote, ok := m.quotes.Quote(p.Ticker)
		if !ok {
			continue
		}
		marked := p.Qty.InexactFloat64() * quote.Price
		equity += marked
		if p.IsShort() {
			shortExposure += -marked
			shorts = append(shorts, p)
		}
	}

	if len(shorts) == 0 || equity >= marginRatio*shortExposure {
		return nil
	}

	logs.Warnf("margin call: user=%s equity=%.2f short_exposure=%.2f", userID, equity, shortExposure)
	m.metrics.IncMarginCall()

	var firstErr error
	for _, p := range shorts {
		quote, ok := m.quotes.Quote(p.Ticker)
		if !ok {
			continue
		}
		if err := m.exec.Liquidate(ctx, userID, p.Ticker, quote, now); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "liquidate short")
		}
	}
	return firstErr
}
