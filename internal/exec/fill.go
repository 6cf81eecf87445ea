package exec

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"github.com/Daboss57/wallstreet-sub000/internal/market"
	"github.com/Daboss57/wallstreet-sub000/internal/model"
	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
	"github.com/Daboss57/wallstreet-sub000/internal/obs"
	"github.com/Daboss57/wallstreet-sub000/internal/store"
	"github.com/Daboss57/wallstreet-sub000/pkg/exception"
)

const (
	affordDecay    = 0.9
	affordMaxIters = 40
)

var minFillQty = decimal.NewFromFloat(1e-4)

// OrderFlowSink receives fill feedback for the price process.
type OrderFlowSink interface {
	AddOrderFlow(ticker string, side enum.OrderSide, notional float64)
}

// RegimeView exposes the active regime to the execution path.
type RegimeView interface {
	Active() enum.Regime
	Multipliers() market.Multipliers
}

// FillPublisher receives fill events after the transaction commits.
type FillPublisher interface {
	PublishFill(model.FillEvent)
}

// Executor applies candidate fills transactionally: order, balance and
// position rows are locked together, and any failure rolls the whole fill
// back.
type Executor struct {
	gw       store.Gateway
	cost     CostModel
	universe *market.Universe
	regimes  RegimeView
	flow     OrderFlowSink
	pub      FillPublisher
	metrics  *obs.Metrics
}

// NewExecutor wires the executor. flow, pub and metrics may be nil.
func NewExecutor(gw store.Gateway, cost CostModel, universe *market.Universe, regimes RegimeView, flow OrderFlowSink, pub FillPublisher, metrics *obs.Metrics) *Executor {
	return &Executor{
		gw:       gw,
		cost:     cost,
		universe: universe,
		regimes:  regimes,
		flow:     flow,
		pub:      pub,
		metrics:  metrics,
	}
}

// ExecuteOrder fills a triggered order at the given reference price. A
// stale (no longer open) order is a silent no-op. Buys that fail the
// affordability check shrink until affordable; shrinking to zero cancels
// the order instead of filling.
func (e *Executor) ExecuteOrder(ctx context.Context, ord model.Order, quote market.Quote, refPrice, limitPrice float64, now time.Time) error {
	inst, ok := e.universe.Instrument(ord.Ticker)
	if !ok {
		return exception.ErrOrderUnknownTicker
	}
	mult := e.regimes.Multipliers()
	mid := (quote.Bid + quote.Ask) / 2

	var event *model.FillEvent
	var flowNotional float64
	cancelled := false

	err := e.gw.LedgerTx(ctx, ord.UserID, ord.Ticker, ord.OrderID, func(tx store.Tx) error {
		cur := tx.Order()
		if cur == nil || cur.Status.IsTerminal() {
			return nil
		}

		qtyDec := cur.Remaining()
		if qtyDec.LessThan(minFillQty) {
			cur.Status = enum.OrderStatusCancelled
			cancelled = true
			return tx.SaveOrder(cur)
		}

		pos := tx.Position()
		bal := tx.Balance()

		posQty := decimal.Zero
		if pos != nil {
			posQty = pos.Qty
		}

		reduced := false
		qty := qtyDec.InexactFloat64()
		var res CostResult
		for i := 0; ; i++ {
			res = e.cost.Price(CostInput{
				Micro:          inst.Micro,
				Side:           ord.Side,
				Qty:            qty,
				RefPrice:       refPrice,
				MidPrice:       mid,
				Volatility:     quote.Volatility,
				LiquidityMult:  mult.Liquidity,
				BorrowMult:     mult.Borrow,
				OpenedShortQty: openedShortQty(ord.Side, posQty, qty),
				LimitPrice:     limitPrice,
			})
			if ord.Side != enum.OrderSideBuy {
				break
			}
			need := decimal.NewFromFloat(res.FillPrice*qty + res.Commission)
			if bal.Cash.GreaterThanOrEqual(need) {
				break
			}
			// Impact depends on quantity, so shrink and re-price.
			reduced = true
			qty *= affordDecay
			if i >= affordMaxIters || decimal.NewFromFloat(qty).LessThan(minFillQty) {
				cur.Status = enum.OrderStatusCancelled
				cancelled = true
				return tx.SaveOrder(cur)
			}
		}

		if reduced {
			qtyDec = decimal.NewFromFloat(qty).Truncate(4)
			if qtyDec.LessThan(minFillQty) {
				cur.Status = enum.OrderStatusCancelled
				cancelled = true
				return tx.SaveOrder(cur)
			}
		}

		fillPrice := decimal.NewFromFloat(res.FillPrice)
		notional := fillPrice.Mul(qtyDec)
		commission := decimal.NewFromFloat(res.Commission)

		delta := applyFill(pos, ord.Side, qtyDec, fillPrice)

		if ord.Side == enum.OrderSideBuy {
			bal.Cash = bal.Cash.Sub(notional).Sub(commission)
		} else {
			bal.Cash = bal.Cash.Add(notional).Sub(commission)
		}
		if err := tx.SaveBalance(bal); err != nil {
			return err
		}

		if err := applyDelta(tx, pos, delta, ord.UserID, ord.Ticker, now); err != nil {
			return err
		}

		netPnl := delta.Realized.Sub(commission).Sub(delta.BorrowRealized)
		trade := model.Trade{
			TradeID:      uuid.NewString(),
			OrderID:      cur.OrderID,
			UserID:       cur.UserID,
			Ticker:       cur.Ticker,
			Side:         cur.Side,
			Qty:          qtyDec,
			Price:        fillPrice,
			Notional:     notional,
			NetPnl:       netPnl,
			SlippageCost: decimal.NewFromFloat(res.SlippageCost),
			Commission:   commission,
			BorrowCost:   decimal.NewFromFloat(res.BorrowCost),
			QualityScore: res.QualityScore,
			Regime:       e.regimes.Active(),
			CreatedAt:    now,
		}
		if err := tx.AppendTrade(&trade); err != nil {
			return err
		}

		cur.FilledQty = cur.FilledQty.Add(qtyDec)
		switch {
		case cur.Remaining().LessThan(minFillQty):
			cur.Status = enum.OrderStatusFilled
		case reduced:
			// The remainder is unaffordable; cancel instead of spinning.
			cur.Status = enum.OrderStatusCancelled
			cancelled = true
		default:
			cur.Status = enum.OrderStatusPartial
		}
		if err := tx.SaveOrder(cur); err != nil {
			return err
		}

		if err := tx.CancelOCOSiblings(cur.OCOID, cur.OrderID); err != nil {
			return err
		}

		flowNotional = notional.InexactFloat64()
		event = &model.FillEvent{
			OrderID:      trade.OrderID,
			TradeID:      trade.TradeID,
			UserID:       trade.UserID,
			Ticker:       trade.Ticker,
			Side:         trade.Side,
			Qty:          trade.Qty,
			Price:        trade.Price,
			Total:        trade.Notional,
			Commission:   trade.Commission,
			BorrowCost:   trade.BorrowCost,
			SlippageBps:  res.ImpactBps,
			QualityScore: res.QualityScore,
			NetPnl:       trade.NetPnl,
			Regime:       trade.Regime,
			At:           now,
		}
		return nil
	})
	if err != nil {
		if stderrors.Is(err, exception.ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "fill transaction")
	}

	// Post-commit: feed order flow back into the price process and emit.
	if cancelled {
		e.metrics.IncCancel()
	}
	if event != nil {
		if e.flow != nil {
			e.flow.AddOrderFlow(ord.Ticker, ord.Side, flowNotional)
		}
		if e.pub != nil {
			e.pub.PublishFill(*event)
		}
	}
	return nil
}

// Liquidate force-covers one short position at the ask, with no parent
// order. Used by the margin call monitor.
func (e *Executor) Liquidate(ctx context.Context, userID, ticker string, quote market.Quote, now time.Time) error {
	inst, ok := e.universe.Instrument(ticker)
	if !ok {
		return exception.ErrOrderUnknownTicker
	}
	mult := e.regimes.Multipliers()
	mid := (quote.Bid + quote.Ask) / 2

	var event *model.FillEvent
	var flowNotional float64

	err := e.gw.LedgerTx(ctx, userID, ticker, "", func(tx store.Tx) error {
		pos := tx.Position()
		if pos == nil || !pos.IsShort() {
			return nil
		}
		bal := tx.Balance()

		qtyDec := pos.Qty.Neg()
		qty := qtyDec.InexactFloat64()
		res := e.cost.Price(CostInput{
			Micro:         inst.Micro,
			Side:          enum.OrderSideBuy,
			Qty:           qty,
			RefPrice:      quote.Ask,
			MidPrice:      mid,
			Volatility:    quote.Volatility,
			LiquidityMult: mult.Liquidity,
			BorrowMult:    mult.Borrow,
		})

		fillPrice := decimal.NewFromFloat(res.FillPrice)
		notional := fillPrice.Mul(qtyDec)
		commission := decimal.NewFromFloat(res.Commission)

		delta := applyFill(pos, enum.OrderSideBuy, qtyDec, fillPrice)

		bal.Cash = bal.Cash.Sub(notional).Sub(commission)
		if err := tx.SaveBalance(bal); err != nil {
			return err
		}
		if err := applyDelta(tx, pos, delta, userID, ticker, now); err != nil {
			return err
		}

		trade := model.Trade{
			TradeID:      uuid.NewString(),
			OrderID:      model.MarginCallOrderID,
			UserID:       userID,
			Ticker:       ticker,
			Side:         enum.OrderSideBuy,
			Qty:          qtyDec,
			Price:        fillPrice,
			Notional:     notional,
			NetPnl:       delta.Realized.Sub(commission).Sub(delta.BorrowRealized),
			SlippageCost: decimal.NewFromFloat(res.SlippageCost),
			Commission:   commission,
			BorrowCost:   decimal.NewFromFloat(res.BorrowCost),
			QualityScore: res.QualityScore,
			Regime:       e.regimes.Active(),
			CreatedAt:    now,
		}
		if err := tx.AppendTrade(&trade); err != nil {
			return err
		}

		flowNotional = notional.InexactFloat64()
		event = &model.FillEvent{
			OrderID:      trade.OrderID,
			TradeID:      trade.TradeID,
			UserID:       userID,
			Ticker:       ticker,
			Side:         enum.OrderSideBuy,
			Qty:          trade.Qty,
			Price:        trade.Price,
			Total:        trade.Notional,
			Commission:   trade.Commission,
			BorrowCost:   trade.BorrowCost,
			SlippageBps:  res.ImpactBps,
			QualityScore: res.QualityScore,
			NetPnl:       trade.NetPnl,
			Regime:       trade.Regime,
			At:           now,
		}
		return nil
	})
	if err != nil {
		if stderrors.Is(err, exception.ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "liquidation transaction")
	}

	if event != nil {
		if e.flow != nil {
			e.flow.AddOrderFlow(ticker, enum.OrderSideBuy, flowNotional)
		}
		if e.pub != nil {
			e.pub.PublishFill(*event)
		}
	}
	return nil
}

// openedShortQty is the portion of a sell that opens new short exposure.
func openedShortQty(side enum.OrderSide, posQty decimal.Decimal, qty float64) float64 {
	if side != enum.OrderSideSell {
		return 0
	}
	long := 0.0
	if posQty.IsPositive() {
		long = posQty.InexactFloat64()
	}
	if qty <= long {
		return 0
	}
	return qty - long
}

// fillDelta is the outcome of applying one fill to a position with
// weighted-average-cost accounting.
type fillDelta struct {
	NewQty         decimal.Decimal
	NewAvg         decimal.Decimal
	NewBorrow      decimal.Decimal
	Realized       decimal.Decimal
	BorrowRealized decimal.Decimal
	Deleted        bool
	Created        bool
}

// applyFill computes the position after a fill. pos may be nil (flat).
func applyFill(pos *model.Position, side enum.OrderSide, qty, price decimal.Decimal) fillDelta {
	signed := qty
	if side == enum.OrderSideSell {
		signed = qty.Neg()
	}

	if pos == nil || pos.Qty.IsZero() {
		return fillDelta{NewQty: signed, NewAvg: price, Created: true}
	}

	posQty := pos.Qty
	avg := pos.AvgCost
	borrow := pos.BorrowAccrued
	newQty := posQty.Add(signed)

	sameDirection := posQty.Sign() == signed.Sign()
	if sameDirection {
		// Extending: weighted-average cost over absolute quantities.
		total := posQty.Abs().Add(qty)
		newAvg := posQty.Abs().Mul(avg).Add(qty.Mul(price)).Div(total)
		return fillDelta{NewQty: newQty, NewAvg: newAvg, NewBorrow: borrow}
	}

	// Reducing or flipping.
	closed := decimal.Min(qty, posQty.Abs())
	var realized decimal.Decimal
	if posQty.IsPositive() {
		realized = closed.Mul(price.Sub(avg))
	} else {
		realized = closed.Mul(avg.Sub(price))
	}

	borrowRealized := decimal.Zero
	newBorrow := borrow
	if posQty.IsNegative() && borrow.IsPositive() {
		borrowRealized = borrow.Mul(closed).Div(posQty.Abs())
		newBorrow = borrow.Sub(borrowRealized)
	}

	if newQty.IsZero() {
		return fillDelta{
			NewQty:         decimal.Zero,
			Realized:       realized,
			BorrowRealized: borrowRealized,
			Deleted:        true,
		}
	}
	if newQty.Sign() == posQty.Sign() {
		// Partial close: average cost unchanged.
		return fillDelta{NewQty: newQty, NewAvg: avg, NewBorrow: newBorrow, Realized: realized, BorrowRealized: borrowRealized}
	}
	// Flipped through flat: the surplus opens at the fill price and any
	// remaining borrow is realized with the old short.
	return fillDelta{
		NewQty:         newQty,
		NewAvg:         price,
		Realized:       realized,
		BorrowRealized: borrowRealized.Add(newBorrow),
	}
}

func applyDelta(tx store.Tx, pos *model.Position, delta fillDelta, userID, ticker string, now time.Time) error {
	if delta.Deleted {
		if pos != nil {
			return tx.DeletePosition(pos)
		}
		return nil
	}
	if pos == nil {
		pos = &model.Position{
			UserID:        userID,
			Ticker:        ticker,
			OpenedAt:      now,
			LastAccrualAt: now,
		}
	}
	if delta.Created || pos.Qty.Sign() != delta.NewQty.Sign() {
		// Fresh exposure, including a flip through flat.
		pos.OpenedAt = now
		pos.LastAccrualAt = now
	}
	pos.Qty = delta.NewQty
	pos.AvgCost = delta.NewAvg
	pos.BorrowAccrued = delta.NewBorrow
	return tx.SavePosition(pos)
}
