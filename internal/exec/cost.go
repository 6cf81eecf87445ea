package exec

import (
	"math"

	"github.com/Daboss57/wallstreet-sub000/internal/market"
	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
)

// CostInput carries everything the cost model needs for one candidate fill.
type CostInput struct {
	Micro          market.Microstructure
	Side           enum.OrderSide
	Qty            float64
	RefPrice       float64
	MidPrice       float64
	Volatility     float64
	LiquidityMult  float64
	BorrowMult     float64
	OpenedShortQty float64
	LimitPrice     float64 // 0 = unconstrained
}

// CostResult is the full cost/quality breakdown of one candidate fill.
type CostResult struct {
	FillPrice    float64
	ImpactBps    float64
	SlippageCost float64
	Commission   float64
	BorrowCost   float64
	QualityScore float64
}

// CostModel computes cost-realistic fill prices. It is a pure function of
// its input; with Realism off it degrades to a zero-cost passthrough.
type CostModel struct {
	Realism bool
}

// Price computes the fill price and cost breakdown for one candidate fill.
func (m CostModel) Price(in CostInput) CostResult {
	if !m.Realism {
		return CostResult{FillPrice: in.RefPrice, QualityScore: 100}
	}

	volMult := clampFloat(1+25*in.Volatility, 0.85, 4)
	notional := in.RefPrice * in.Qty
	participation := 0.0
	if in.Micro.AvgDailyDollarVolume > 0 {
		participation = notional / in.Micro.AvgDailyDollarVolume
	}
	impactBps := in.Micro.BaseSpreadBps +
		in.Micro.ImpactCoeff*math.Pow(participation, 0.6)*in.LiquidityMult*volMult

	fillPrice := in.RefPrice * (1 + directional(in.Side)*impactBps/10000)

	// Limit guard: a constraining limit caps the fill and the realized
	// impact is recomputed from the capped price.
	if in.LimitPrice > 0 {
		if in.Side == enum.OrderSideBuy && fillPrice > in.LimitPrice {
			fillPrice = in.LimitPrice
		}
		if in.Side == enum.OrderSideSell && fillPrice < in.LimitPrice {
			fillPrice = in.LimitPrice
		}
		if in.RefPrice > 0 {
			impactBps = math.Abs(fillPrice-in.RefPrice) / in.RefPrice * 10000
		}
	}

	filledNotional := fillPrice * in.Qty
	slippage := math.Max(0, directional(in.Side)*(fillPrice-in.MidPrice)*in.Qty)
	commission := math.Max(in.Micro.CommissionMinUSD, filledNotional*in.Micro.CommissionBps/10000)
	borrow := in.OpenedShortQty * fillPrice * (in.Micro.BorrowAPR * in.BorrowMult / 365)

	commissionBps, borrowBps := 0.0, 0.0
	if filledNotional > 0 {
		commissionBps = commission / filledNotional * 10000
		borrowBps = borrow / filledNotional * 10000
	}
	quality := clampFloat(100-(impactBps*0.6+commissionBps*0.3+borrowBps*0.1), 0, 100)

	return CostResult{
		FillPrice:    fillPrice,
		ImpactBps:    impactBps,
		SlippageCost: slippage,
		Commission:   commission,
		BorrowCost:   borrow,
		QualityScore: quality,
	}
}

// directional is +1 for buys (costs push the price up) and -1 for sells.
func directional(side enum.OrderSide) float64 {
	if side == enum.OrderSideSell {
		return -1
	}
	return 1
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
