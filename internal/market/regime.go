package market

import (
	"math/rand"
	"time"

	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
)

// Multipliers are the per-regime scalars consumed by the price process and
// the execution cost model.
type Multipliers struct {
	Liquidity  float64
	Volatility float64
	News       float64
	Borrow     float64
}

// RegimeMultipliers returns the multiplier set for a regime.
func RegimeMultipliers(r enum.Regime) Multipliers {
	switch r {
	case enum.RegimeTightLiquidity:
		return Multipliers{Liquidity: 1.8, Volatility: 1.25, News: 1.1, Borrow: 1.3}
	case enum.RegimeHighVolatility:
		return Multipliers{Liquidity: 1.4, Volatility: 1.9, News: 1.3, Borrow: 1.2}
	case enum.RegimeEventShock:
		return Multipliers{Liquidity: 2.2, Volatility: 2.6, News: 1.8, Borrow: 1.6}
	default:
		return Multipliers{Liquidity: 1, Volatility: 1, News: 1, Borrow: 1}
	}
}

const (
	defaultReviewInterval = 90 * time.Second
	defaultShockHold      = 120 * time.Second
	reviewJitterPct       = 0.2
)

// Weighted split for scheduled transitions: 62/18/16/4.
var regimeWeights = []struct {
	regime enum.Regime
	weight int
}{
	{enum.RegimeNormal, 62},
	{enum.RegimeTightLiquidity, 18},
	{enum.RegimeHighVolatility, 16},
	{enum.RegimeEventShock, 4},
}

// Transition records one regime change for persistence.
type Transition struct {
	From      enum.Regime
	To        enum.Regime
	At        time.Time
	StartedAt time.Time
}

// RegimeController owns the global 4-state regime machine. It is driven by
// the tick goroutine only.
type RegimeController struct {
	rng            *rand.Rand
	active         enum.Regime
	startedAt      time.Time
	nextReview     time.Time
	shockUntil     time.Time
	reviewInterval time.Duration
}

// NewRegimeController starts in the normal regime.
func NewRegimeController(rng *rand.Rand, reviewInterval time.Duration, now time.Time) *RegimeController {
	if reviewInterval <= 0 {
		reviewInterval = defaultReviewInterval
	}
	c := &RegimeController{
		rng:            rng,
		active:         enum.RegimeNormal,
		startedAt:      now,
		reviewInterval: reviewInterval,
	}
	c.nextReview = now.Add(c.jitteredInterval())
	return c
}

// Restore resumes a persisted unended regime episode.
func (c *RegimeController) Restore(active enum.Regime, startedAt, now time.Time) {
	if !active.IsAvailable() {
		return
	}
	c.active = active
	c.startedAt = startedAt
	c.nextReview = now.Add(c.jitteredInterval())
	if active == enum.RegimeEventShock {
		c.shockUntil = now.Add(defaultShockHold)
	}
}

// Active returns the current regime.
func (c *RegimeController) Active() enum.Regime {
	return c.active
}

// StartedAt returns when the current regime began.
func (c *RegimeController) StartedAt() time.Time {
	return c.startedAt
}

// Multipliers returns the active regime's multiplier set.
func (c *RegimeController) Multipliers() Multipliers {
	return RegimeMultipliers(c.active)
}

// Step runs the scheduled transition logic and returns the transition if the
// regime changed this tick.
func (c *RegimeController) Step(now time.Time) (Transition, bool) {
	// A forced shock overrides the schedule until it expires.
	if !c.shockUntil.IsZero() {
		if now.Before(c.shockUntil) {
			return Transition{}, false
		}
		c.shockUntil = time.Time{}
		c.nextReview = now // expired: fall through to a scheduled pick now
	}

	if now.Before(c.nextReview) {
		return Transition{}, false
	}

	next := c.weightedPick()
	c.nextReview = now.Add(c.jitteredInterval())
	if next == c.active {
		return Transition{}, false
	}
	return c.transitionTo(next, now), true
}

// ForceEventShock switches to event_shock immediately and holds it for the
// fixed duration, overriding the schedule. The returned flag is false when
// already in a forced shock.
func (c *RegimeController) ForceEventShock(now time.Time) (Transition, bool) {
	if c.active == enum.RegimeEventShock && !c.shockUntil.IsZero() {
		c.shockUntil = now.Add(defaultShockHold) // extend the hold
		return Transition{}, false
	}
	c.shockUntil = now.Add(defaultShockHold)
	if c.active == enum.RegimeEventShock {
		return Transition{}, false
	}
	return c.transitionTo(enum.RegimeEventShock, now), true
}

func (c *RegimeController) transitionTo(next enum.Regime, now time.Time) Transition {
	tr := Transition{From: c.active, To: next, At: now, StartedAt: now}
	c.active = next
	c.startedAt = now
	return tr
}

func (c *RegimeController) weightedPick() enum.Regime {
	total := 0
	for _, w := range regimeWeights {
		total += w.weight
	}
	pick := c.rng.Intn(total)
	for _, w := range regimeWeights {
		pick -= w.weight
		if pick < 0 {
			return w.regime
		}
	}
	return enum.RegimeNormal
}

func (c *RegimeController) jitteredInterval() time.Duration {
	jitter := 1 + reviewJitterPct*(2*c.rng.Float64()-1)
	return time.Duration(float64(c.reviewInterval) * jitter)
}
