package enum

// Regime is the global discrete market condition.
type Regime string

const (
	RegimeNormal         Regime = "normal"
	RegimeTightLiquidity Regime = "tight_liquidity"
	RegimeHighVolatility Regime = "high_volatility"
	RegimeEventShock     Regime = "event_shock"
)

func (r Regime) IsAvailable() bool {
	switch r {
	case RegimeNormal, RegimeTightLiquidity, RegimeHighVolatility, RegimeEventShock:
		return true
	default:
		return false
	}
}

// CandleInterval is a supported candle timeframe.
type CandleInterval string

const (
	Interval1m  CandleInterval = "1m"
	Interval5m  CandleInterval = "5m"
	Interval15m CandleInterval = "15m"
	Interval1h  CandleInterval = "1h"
	Interval4h  CandleInterval = "4h"
	Interval1d  CandleInterval = "1d"
)

// Intervals lists every supported timeframe in ascending order.
func Intervals() []CandleInterval {
	return []CandleInterval{Interval1m, Interval5m, Interval15m, Interval1h, Interval4h, Interval1d}
}

// Seconds returns the bucket width of the interval.
func (i CandleInterval) Seconds() int64 {
	switch i {
	case Interval1m:
		return 60
	case Interval5m:
		return 300
	case Interval15m:
		return 900
	case Interval1h:
		return 3600
	case Interval4h:
		return 14400
	case Interval1d:
		return 86400
	default:
		return 0
	}
}

func (i CandleInterval) IsAvailable() bool {
	return i.Seconds() > 0
}
