package market

import (
	"math"
	"math/rand"
	"time"
)

// FactorVector is the shared latent macro state, evolved once per tick and
// consumed by every instrument in the same tick.
type FactorVector struct {
	RiskOn float64
	USD    float64
	Rates  float64
	Energy float64
	Metals float64
	Crypto float64
	Vol    float64
}

// Dot projects the factor vector onto an instrument's loadings.
func (v FactorVector) Dot(l FactorLoadings) float64 {
	return v.RiskOn*l.RiskOn +
		v.USD*l.USD +
		v.Rates*l.Rates +
		v.Energy*l.Energy +
		v.Metals*l.Metals +
		v.Crypto*l.Crypto +
		v.Vol*l.Vol
}

type factorParams struct {
	persistence float64
	noise       float64
	jumpProb    float64
	jumpScale   float64
	clampAbs    float64
}

var (
	riskOnParams = factorParams{persistence: 0.97, noise: 0.012, jumpProb: 0.010, jumpScale: 0.05, clampAbs: 0.25}
	usdParams    = factorParams{persistence: 0.985, noise: 0.006, jumpProb: 0.004, jumpScale: 0.03, clampAbs: 0.15}
	ratesParams  = factorParams{persistence: 0.99, noise: 0.004, jumpProb: 0.003, jumpScale: 0.02, clampAbs: 0.12}
	energyParams = factorParams{persistence: 0.975, noise: 0.010, jumpProb: 0.008, jumpScale: 0.06, clampAbs: 0.20}
	metalsParams = factorParams{persistence: 0.98, noise: 0.008, jumpProb: 0.005, jumpScale: 0.04, clampAbs: 0.18}
	cryptoParams = factorParams{persistence: 0.96, noise: 0.020, jumpProb: 0.015, jumpScale: 0.09, clampAbs: 0.35}
	volParams    = factorParams{persistence: 0.94, noise: 0.015, jumpProb: 0.020, jumpScale: 0.08, clampAbs: 0.30}
)

// FactorProcess evolves the seven macro factors as AR(1) recurrences with
// deterministic cross-factor spillovers.
type FactorProcess struct {
	rng     *rand.Rand
	current FactorVector
}

// NewFactorProcess creates a factor process driven by the given source.
func NewFactorProcess(rng *rand.Rand) *FactorProcess {
	return &FactorProcess{rng: rng}
}

// Current returns the factor state after the most recent step.
func (p *FactorProcess) Current() FactorVector {
	return p.current
}

// Step advances every factor once and returns the new state. Session-hour
// multipliers scale risk-on/vol noise during US hours and usd/rates noise
// during the London overlap.
func (p *FactorProcess) Step(now time.Time) FactorVector {
	usMult, londonMult := sessionFactorMultipliers(now)

	next := FactorVector{
		RiskOn: p.step(p.current.RiskOn, riskOnParams, usMult),
		USD:    p.step(p.current.USD, usdParams, londonMult),
		Rates:  p.step(p.current.Rates, ratesParams, londonMult),
		Energy: p.step(p.current.Energy, energyParams, 1),
		Metals: p.step(p.current.Metals, metalsParams, 1),
		Crypto: p.step(p.current.Crypto, cryptoParams, 1),
		Vol:    p.step(p.current.Vol, volParams, usMult),
	}

	// Spillovers run after the independent AR(1) updates.
	next.Crypto = clamp(next.Crypto+next.RiskOn*0.035, -cryptoParams.clampAbs, cryptoParams.clampAbs)
	next.Energy = clamp(next.Energy+next.USD*-0.02, -energyParams.clampAbs, energyParams.clampAbs)
	next.Metals = clamp(next.Metals+next.USD*-0.02, -metalsParams.clampAbs, metalsParams.clampAbs)
	next.Vol = clamp(next.Vol+next.RiskOn*-0.04, -volParams.clampAbs, volParams.clampAbs)

	p.current = next
	return next
}

func (p *FactorProcess) step(prev float64, params factorParams, noiseMult float64) float64 {
	next := prev*params.persistence + p.rng.NormFloat64()*params.noise*noiseMult
	if p.rng.Float64() < params.jumpProb {
		next += p.rng.NormFloat64() * params.jumpScale
	}
	return clamp(next, -params.clampAbs, params.clampAbs)
}

// sessionFactorMultipliers returns (us, london) noise multipliers for the
// UTC hour of the tick.
func sessionFactorMultipliers(now time.Time) (float64, float64) {
	utc := now.UTC()
	minutes := utc.Hour()*60 + utc.Minute()

	us := 1.0
	if minutes >= 13*60+30 && minutes < 20*60 {
		us = 1.25
	}
	london := 1.0
	if minutes >= 12*60 && minutes < 16*60 {
		london = 1.2
	}
	return us, london
}

// sessionVolumeMultiplier scales simulated volume by UTC session.
func sessionVolumeMultiplier(now time.Time) float64 {
	h := now.UTC().Hour()
	switch {
	case h >= 13 && h < 15: // US open
		return 1.35
	case h >= 19 && h < 21: // US close
		return 1.25
	case h >= 7 && h < 13: // Europe
		return 1.0
	default:
		return 0.7
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
