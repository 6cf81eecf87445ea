package market

import (
	"math"
	"time"

	"github.com/Daboss57/wallstreet-sub000/pkg/exception"
)

// ApplyNewsShock moves one instrument's price by a bounded fraction, spikes
// its volatility, and forces an event-shock regime transition when the
// magnitude crosses the threshold. impact is a fraction (0.015 = 1.5%).
// The returned transition is meaningful only when forced is true.
func (p *Process) ApplyNewsShock(ticker string, impact float64, now time.Time) (Transition, bool, error) {
	if math.IsNaN(impact) || math.IsInf(impact, 0) {
		return Transition{}, false, exception.ErrMarketInvalidShock
	}

	p.store.mu.Lock()
	st, ok := p.store.states[ticker]
	if !ok {
		p.store.mu.Unlock()
		return Transition{}, false, exception.ErrMarketUnknownTicker
	}

	inst := st.inst
	maxImpact := inst.Micro.MaxTickMovePct * p.regimes.Multipliers().News
	impact = clamp(impact, -maxImpact, maxImpact)

	oldPrice := st.price
	newPrice := clamp(oldPrice*(1+impact), inst.MinPrice, inst.MaxPrice)
	st.price = newPrice
	st.lastReturn = math.Log(newPrice / oldPrice)
	st.vol = clamp(st.vol*newsVolSpike, inst.BaseVol*p.cfg.VolMinFactor, inst.BaseVol*p.cfg.VolMaxFactor*inst.Micro.RiskMultiplier)
	st.setSpread(newPrice*st.vol*spreadVolWeight*inst.Style.SpreadMult/2, inst)
	if newPrice > st.sessionHigh {
		st.sessionHigh = newPrice
	}
	if newPrice < st.sessionLow {
		st.sessionLow = newPrice
	}
	p.store.mu.Unlock()

	if math.Abs(impact) >= newsShockThreshold {
		tr, changed := p.regimes.ForceEventShock(now)
		return tr, changed, nil
	}
	return Transition{}, false, nil
}
