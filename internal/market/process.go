package market

import (
	"math"
	"math/rand"
	"time"

	"github.com/Daboss57/wallstreet-sub000/internal/model"
)

// Config tunes the stochastic recurrences shared by all instruments.
type Config struct {
	GarchAlpha          float64 `json:"garchAlpha"`
	GarchBeta           float64 `json:"garchBeta"`
	VolOfVol            float64 `json:"volOfVol"`
	VolMinFactor        float64 `json:"volMinFactor"`
	VolMaxFactor        float64 `json:"volMaxFactor"`
	ShockMult           float64 `json:"shockMult"`
	DynamicAnchorWeight float64 `json:"dynamicAnchorWeight"`
	OrderFlowDecay      float64 `json:"orderFlowDecay"`
	MaxOrderFlowPct     float64 `json:"maxOrderFlowPct"`
	MoveVolumeMult      float64 `json:"moveVolumeMult"`
	VolVolumeMult       float64 `json:"volVolumeMult"`
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		GarchAlpha:          0.06,
		GarchBeta:           0.90,
		VolOfVol:            1.2,
		VolMinFactor:        0.4,
		VolMaxFactor:        4.0,
		ShockMult:           1.0,
		DynamicAnchorWeight: 0.65,
		OrderFlowDecay:      0.25,
		MaxOrderFlowPct:     0.0125,
		MoveVolumeMult:      14,
		VolVolumeMult:       8,
	}
}

const (
	garchOmegaWeight   = 0.03
	factorVolWeight    = 0.05
	spreadVolWeight    = 0.05
	orderFlowCoeff     = 0.5
	orderFlowNoiseEps  = 1e-6
	newsVolSpike       = 1.8
	newsShockThreshold = 0.015
)

// Process runs the per-tick stochastic price update for every instrument.
// It is driven by the engine tick goroutine only.
type Process struct {
	cfg     Config
	store   *PriceStore
	factors *FactorProcess
	regimes *RegimeController
	candles *CandleAggregator
	rng     *rand.Rand
}

// NewProcess wires the price process over its collaborators.
func NewProcess(cfg Config, store *PriceStore, factors *FactorProcess, regimes *RegimeController, candles *CandleAggregator, rng *rand.Rand) *Process {
	return &Process{
		cfg:     cfg,
		store:   store,
		factors: factors,
		regimes: regimes,
		candles: candles,
		rng:     rng,
	}
}

// Tick evolves the macro factors once, then updates every instrument and
// returns the tick events in universe order.
func (p *Process) Tick(now time.Time) []model.TickEvent {
	fv := p.factors.Step(now)
	mult := p.regimes.Multipliers()
	sessionVol := sessionVolMultiplier(now)
	sessionVolume := sessionVolumeMultiplier(now)

	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	events := make([]model.TickEvent, 0, len(p.store.ordered))
	for _, st := range p.store.ordered {
		events = append(events, p.step(st, fv, mult, sessionVol, sessionVolume, now))
	}
	return events
}

func (p *Process) step(st *priceState, fv FactorVector, mult Multipliers, sessionVol, sessionVolume float64, now time.Time) model.TickEvent {
	inst := st.inst
	st.rollSession(now)
	oldPrice := st.price

	factorShock := fv.Dot(inst.Style.Loadings)

	// GARCH(1,1) with a factor variance term.
	omega := inst.BaseVol * inst.BaseVol * garchOmegaWeight
	r := st.lastReturn
	variance := omega +
		p.cfg.GarchAlpha*r*r +
		p.cfg.GarchBeta*st.vol*st.vol +
		math.Abs(factorShock)*st.vol*p.cfg.VolOfVol*factorVolWeight
	vol := math.Sqrt(variance)
	vol = clamp(vol, inst.BaseVol*p.cfg.VolMinFactor, inst.BaseVol*p.cfg.VolMaxFactor*inst.Micro.RiskMultiplier)
	st.vol = vol
	effVol := vol * sessionVol * mult.Volatility

	// Raw log-return: drift + factor shock + trend carry + idiosyncratic
	// shock + optional jump, clamped to the class move limit.
	ret := inst.Drift +
		factorShock +
		st.lastReturn*inst.Style.TrendPersistence +
		p.rng.NormFloat64()*effVol*p.cfg.ShockMult*inst.Style.IdioMult
	if p.rng.Float64() < inst.Style.JumpProb {
		ret += p.rng.NormFloat64() * inst.Style.JumpScale * effVol
	}
	maxMove := inst.Micro.MaxTickMovePct
	ret = clamp(ret, -maxMove, maxMove)

	newPrice := oldPrice * math.Exp(ret)

	// Mean reversion toward the anchor/base blend.
	st.anchor += (oldPrice - st.anchor) * inst.Style.AnchorFollowRate
	target := p.cfg.DynamicAnchorWeight*st.anchor + (1-p.cfg.DynamicAnchorWeight)*inst.BasePrice
	newPrice += (target - newPrice) * inst.MeanRevRate * inst.Style.MeanRevMult

	// Pending order-flow impact, bounded, then decayed.
	impact := clamp(st.flowImpact, -p.cfg.MaxOrderFlowPct, p.cfg.MaxOrderFlowPct)
	newPrice += impact * newPrice
	st.flowImpact *= 1 - p.cfg.OrderFlowDecay
	if math.Abs(st.flowImpact) < orderFlowNoiseEps {
		st.flowImpact = 0
	}

	// Hard clamps: degenerate candidates fall back to the last valid price,
	// then per-tick move and absolute bounds apply.
	if math.IsNaN(newPrice) || math.IsInf(newPrice, 0) || newPrice <= 0 {
		newPrice = oldPrice
	}
	newPrice = clamp(newPrice, oldPrice*(1-maxMove), oldPrice*(1+maxMove))
	newPrice = clamp(newPrice, inst.MinPrice, inst.MaxPrice)

	st.lastReturn = math.Log(newPrice / oldPrice)
	st.price = newPrice

	spread := newPrice * effVol * spreadVolWeight * inst.Style.SpreadMult * mult.Liquidity
	st.setSpread(spread/2, inst)

	if newPrice > st.sessionHigh {
		st.sessionHigh = newPrice
	}
	if newPrice < st.sessionLow {
		st.sessionLow = newPrice
	}

	changePct := 0.0
	if oldPrice > 0 {
		changePct = (newPrice - oldPrice) / oldPrice
	}
	tickVolume := (inst.Style.VolumeBase + p.rng.Float64()*inst.Style.VolumeJitter) *
		(1 + math.Abs(changePct)*p.cfg.MoveVolumeMult) *
		(1 + vol*p.cfg.VolVolumeMult) *
		sessionVolume
	st.volume += tickVolume

	p.candles.Apply(inst.Ticker, now, newPrice, tickVolume)

	return model.TickEvent{
		Ticker:     inst.Ticker,
		Price:      newPrice,
		Bid:        st.bid,
		Ask:        st.ask,
		Open:       st.sessionOpen,
		High:       st.sessionHigh,
		Low:        st.sessionLow,
		PrevClose:  st.prevClose,
		Change:     newPrice - st.prevClose,
		ChangePct:  safeDiv(newPrice-st.prevClose, st.prevClose),
		Volume:     st.volume,
		Volatility: effVol,
		Regime:     p.regimes.Active(),
		At:         now,
	}
}

// sessionVolMultiplier scales volatility by UTC session hour.
func sessionVolMultiplier(now time.Time) float64 {
	h := now.UTC().Hour()
	switch {
	case h >= 13 && h < 15, h >= 19 && h < 21:
		return 1.2
	case h >= 21 || h < 7:
		return 0.75
	default:
		return 1
	}
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
