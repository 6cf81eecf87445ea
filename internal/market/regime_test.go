package market

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
)

func TestRegimeMultiplierTable(t *testing.T) {
	assert.Equal(t, Multipliers{Liquidity: 1, Volatility: 1, News: 1, Borrow: 1},
		RegimeMultipliers(enum.RegimeNormal))
	assert.Equal(t, Multipliers{Liquidity: 1.8, Volatility: 1.25, News: 1.1, Borrow: 1.3},
		RegimeMultipliers(enum.RegimeTightLiquidity))
	assert.Equal(t, Multipliers{Liquidity: 1.4, Volatility: 1.9, News: 1.3, Borrow: 1.2},
		RegimeMultipliers(enum.RegimeHighVolatility))
	assert.Equal(t, Multipliers{Liquidity: 2.2, Volatility: 2.6, News: 1.8, Borrow: 1.6},
		RegimeMultipliers(enum.RegimeEventShock))
}

func TestRegimeStartsNormalAndHoldsUntilReview(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	c := NewRegimeController(rand.New(rand.NewSource(1)), 90*time.Second, now)

	assert.Equal(t, enum.RegimeNormal, c.Active())

	// Jitter is at most +-20%, so 70s is always before the first review.
	_, changed := c.Step(now.Add(70 * time.Second))
	assert.False(t, changed)
	assert.Equal(t, enum.RegimeNormal, c.Active())
}

func TestRegimeScheduledTransitionsEventuallyHappen(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	c := NewRegimeController(rand.New(rand.NewSource(7)), 90*time.Second, now)

	transitions := 0
	for i := 0; i < 500; i++ {
		now = now.Add(30 * time.Second)
		if tr, ok := c.Step(now); ok {
			transitions++
			assert.True(t, tr.To.IsAvailable())
			assert.NotEqual(t, tr.From, tr.To)
			assert.Equal(t, tr.To, c.Active())
		}
	}
	// ~166 reviews with a 38% chance of leaving normal each time.
	assert.Greater(t, transitions, 5)
}

func TestForceEventShockHolds(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	c := NewRegimeController(rand.New(rand.NewSource(3)), 90*time.Second, now)

	tr, changed := c.ForceEventShock(now)
	require.True(t, changed)
	assert.Equal(t, enum.RegimeNormal, tr.From)
	assert.Equal(t, enum.RegimeEventShock, tr.To)
	assert.Equal(t, enum.RegimeEventShock, c.Active())

	// The schedule cannot override the hold.
	for sec := 10; sec < 120; sec += 10 {
		_, changed := c.Step(now.Add(time.Duration(sec) * time.Second))
		assert.False(t, changed)
		assert.Equal(t, enum.RegimeEventShock, c.Active())
	}

	// Re-forcing during the hold extends it without a new transition.
	_, changed = c.ForceEventShock(now.Add(60 * time.Second))
	assert.False(t, changed)

	// After the hold expires a scheduled pick resumes.
	c.Step(now.Add(200 * time.Second))
	assert.True(t, c.Active().IsAvailable())
}

func TestRegimeRestore(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	c := NewRegimeController(rand.New(rand.NewSource(3)), 90*time.Second, now)

	started := now.Add(-5 * time.Minute)
	c.Restore(enum.RegimeTightLiquidity, started, now)
	assert.Equal(t, enum.RegimeTightLiquidity, c.Active())
	assert.Equal(t, started, c.StartedAt())

	// Unknown values are ignored.
	c.Restore(enum.Regime("bogus"), now, now)
	assert.Equal(t, enum.RegimeTightLiquidity, c.Active())
}
