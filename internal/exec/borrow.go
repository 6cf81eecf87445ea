package exec

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"github.com/Daboss57/wallstreet-sub000/internal/market"
	"github.com/Daboss57/wallstreet-sub000/internal/store"
)

const (
	accrualInterval = 30 * time.Second
	yearSeconds     = 365 * 24 * 3600
)

// BorrowAccruer debits short positions their borrow fee on a fixed
// cadence. The fee compounds into cash immediately and is tracked on the
// position so closes can attribute it to realized PnL.
type BorrowAccruer struct {
	gw       store.Gateway
	quotes   QuoteSource
	universe *market.Universe
	regimes  RegimeView
}

// NewBorrowAccruer wires the accrual pass.
func NewBorrowAccruer(gw store.Gateway, quotes QuoteSource, universe *market.Universe, regimes RegimeView) *BorrowAccruer {
	return &BorrowAccruer{gw: gw, quotes: quotes, universe: universe, regimes: regimes}
}

// Accrue charges every short position that is due. One failed position
// does not stop the pass.
func (b *BorrowAccruer) Accrue(ctx context.Context, now time.Time) error {
	shorts, err := b.gw.ShortPositions(ctx)
	if err != nil {
		return errors.Wrap(err, "load short positions")
	}

	borrowMult := b.regimes.Multipliers().Borrow

	var firstErr error
	for _, p := range shorts {
		if now.Sub(p.LastAccrualAt) < accrualInterval {
			continue
		}
		inst, ok := b.universe.Instrument(p.Ticker)
		if !ok {
			continue
		}
		quote, ok := b.quotes.Quote(p.Ticker)
		if !ok {
			continue
		}

		rate := inst.Micro.BorrowAPR * borrowMult
		err := b.gw.LedgerTx(ctx, p.UserID, p.Ticker, "", func(tx store.Tx) error {
			pos := tx.Position()
			if pos == nil || !pos.IsShort() {
				// Covered since the snapshot; nothing to charge.
				return nil
			}
			elapsed := now.Sub(pos.LastAccrualAt).Seconds()
			if elapsed < accrualInterval.Seconds() {
				return nil
			}

			charge := decimal.NewFromFloat(
				pos.Qty.Abs().InexactFloat64() * quote.Price * rate * elapsed / yearSeconds,
			)
			if !charge.IsPositive() {
				pos.LastAccrualAt = now
				return tx.SavePosition(pos)
			}

			bal := tx.Balance()
			bal.Cash = bal.Cash.Sub(charge)
			if err := tx.SaveBalance(bal); err != nil {
				return err
			}

			pos.BorrowAccrued = pos.BorrowAccrued.Add(charge)
			pos.LastAccrualAt = now
			return tx.SavePosition(pos)
		})
		if err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "borrow accrual")
		}
	}
	return firstErr
}
