package market

import (
	"fmt"

	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
	"github.com/Daboss57/wallstreet-sub000/pkg/exception"
)

// Microstructure holds the execution-cost inputs of one instrument.
type Microstructure struct {
	AvgDailyDollarVolume float64 `json:"avgDailyDollarVolume"`
	BaseSpreadBps        float64 `json:"baseSpreadBps"`
	ImpactCoeff          float64 `json:"impactCoeff"`
	CommissionBps        float64 `json:"commissionBps"`
	CommissionMinUSD     float64 `json:"commissionMinUsd"`
	BorrowAPR            float64 `json:"borrowApr"`
	MaxTickMovePct       float64 `json:"maxTickMovePct"`
	RiskMultiplier       float64 `json:"riskMultiplier"`
}

// FactorLoadings is an instrument's exposure to the seven macro factors.
type FactorLoadings struct {
	RiskOn float64 `json:"riskOn"`
	USD    float64 `json:"usd"`
	Rates  float64 `json:"rates"`
	Energy float64 `json:"energy"`
	Metals float64 `json:"metals"`
	Crypto float64 `json:"crypto"`
	Vol    float64 `json:"vol"`
}

// Style tunes the stochastic behavior of one instrument.
type Style struct {
	Loadings         FactorLoadings `json:"loadings"`
	TrendPersistence float64        `json:"trendPersistence"`
	JumpProb         float64        `json:"jumpProb"`
	JumpScale        float64        `json:"jumpScale"`
	MeanRevMult      float64        `json:"meanRevMult"`
	AnchorFollowRate float64        `json:"anchorFollowRate"`
	IdioMult         float64        `json:"idioMult"`
	SpreadMult       float64        `json:"spreadMult"`
	VolumeBase       float64        `json:"volumeBase"`
	VolumeJitter     float64        `json:"volumeJitter"`
}

// Instrument is one tradable name. Definitions are immutable for the
// process lifetime.
type Instrument struct {
	Ticker      string          `json:"ticker"`
	Name        string          `json:"name"`
	Class       enum.AssetClass `json:"class"`
	BasePrice   float64         `json:"basePrice"`
	BaseVol     float64         `json:"baseVol"`
	Drift       float64         `json:"drift"`
	MeanRevRate float64         `json:"meanRevRate"`
	MinPrice    float64         `json:"minPrice"`
	MaxPrice    float64         `json:"maxPrice"`
	Micro       Microstructure  `json:"micro"`
	Style       Style           `json:"style"`
}

// Validate rejects definitions the price process cannot run on.
func (i Instrument) Validate() error {
	if i.Ticker == "" {
		return exception.ErrMarketInvalidInstrument
	}
	if !i.Class.IsAvailable() {
		return fmt.Errorf("%w: %s has unknown class %q", exception.ErrMarketInvalidInstrument, i.Ticker, i.Class)
	}
	if i.BasePrice <= 0 || i.BaseVol <= 0 {
		return fmt.Errorf("%w: %s base price/vol must be > 0", exception.ErrMarketInvalidInstrument, i.Ticker)
	}
	if i.MinPrice <= 0 || i.MaxPrice <= i.MinPrice {
		return fmt.Errorf("%w: %s price bounds", exception.ErrMarketInvalidInstrument, i.Ticker)
	}
	if i.BasePrice < i.MinPrice || i.BasePrice > i.MaxPrice {
		return fmt.Errorf("%w: %s base price outside bounds", exception.ErrMarketInvalidInstrument, i.Ticker)
	}
	if i.Micro.AvgDailyDollarVolume <= 0 || i.Micro.MaxTickMovePct <= 0 {
		return fmt.Errorf("%w: %s microstructure", exception.ErrMarketInvalidInstrument, i.Ticker)
	}
	if i.Style.JumpProb < 0 || i.Style.JumpProb > 1 {
		return fmt.Errorf("%w: %s jump probability", exception.ErrMarketInvalidInstrument, i.Ticker)
	}
	if i.Style.AnchorFollowRate < 0 || i.Style.AnchorFollowRate > 1 {
		return fmt.Errorf("%w: %s anchor follow rate", exception.ErrMarketInvalidInstrument, i.Ticker)
	}
	return nil
}

// ClassMicrostructure returns per-class microstructure defaults, applied to
// instruments that leave Micro zero in config.
func ClassMicrostructure(class enum.AssetClass) Microstructure {
	switch class {
	case enum.AssetClassEquity:
		return Microstructure{
			AvgDailyDollarVolume: 450_000_000,
			BaseSpreadBps:        3,
			ImpactCoeff:          24,
			CommissionBps:        1.5,
			CommissionMinUSD:     1,
			BorrowAPR:            0.035,
			MaxTickMovePct:       0.04,
			RiskMultiplier:       1,
		}
	case enum.AssetClassETF:
		return Microstructure{
			AvgDailyDollarVolume: 1_800_000_000,
			BaseSpreadBps:        1.2,
			ImpactCoeff:          14,
			CommissionBps:        1,
			CommissionMinUSD:     1,
			BorrowAPR:            0.02,
			MaxTickMovePct:       0.025,
			RiskMultiplier:       0.85,
		}
	case enum.AssetClassCrypto:
		return Microstructure{
			AvgDailyDollarVolume: 900_000_000,
			BaseSpreadBps:        6,
			ImpactCoeff:          40,
			CommissionBps:        8,
			CommissionMinUSD:     0.5,
			BorrowAPR:            0.09,
			MaxTickMovePct:       0.08,
			RiskMultiplier:       1.6,
		}
	case enum.AssetClassForex:
		return Microstructure{
			AvgDailyDollarVolume: 6_000_000_000,
			BaseSpreadBps:        0.6,
			ImpactCoeff:          7,
			CommissionBps:        0.4,
			CommissionMinUSD:     0.25,
			BorrowAPR:            0.015,
			MaxTickMovePct:       0.01,
			RiskMultiplier:       0.6,
		}
	case enum.AssetClassCommodity:
		return Microstructure{
			AvgDailyDollarVolume: 300_000_000,
			BaseSpreadBps:        4,
			ImpactCoeff:          30,
			CommissionBps:        2.5,
			CommissionMinUSD:     1.5,
			BorrowAPR:            0.045,
			MaxTickMovePct:       0.05,
			RiskMultiplier:       1.25,
		}
	default:
		return Microstructure{}
	}
}

// Universe is a validated, ticker-unique set of instruments.
type Universe struct {
	byTicker map[string]*Instrument
	ordered  []*Instrument
}

// NewUniverse validates instruments and fills zero microstructure from class
// defaults.
func NewUniverse(defs []Instrument) (*Universe, error) {
	if len(defs) == 0 {
		return nil, exception.ErrMarketEmptyUniverse
	}
	u := &Universe{byTicker: make(map[string]*Instrument, len(defs))}
	for idx := range defs {
		inst := defs[idx]
		if inst.Micro == (Microstructure{}) {
			inst.Micro = ClassMicrostructure(inst.Class)
		}
		if err := inst.Validate(); err != nil {
			return nil, err
		}
		if _, ok := u.byTicker[inst.Ticker]; ok {
			return nil, fmt.Errorf("%w: %s", exception.ErrMarketDuplicateTicker, inst.Ticker)
		}
		stored := inst
		u.byTicker[inst.Ticker] = &stored
		u.ordered = append(u.ordered, &stored)
	}
	return u, nil
}

// Instrument returns the definition for a ticker.
func (u *Universe) Instrument(ticker string) (*Instrument, bool) {
	inst, ok := u.byTicker[ticker]
	return inst, ok
}

// All returns instruments in configuration order.
func (u *Universe) All() []*Instrument {
	return u.ordered
}

// Len returns the number of instruments.
func (u *Universe) Len() int {
	return len(u.ordered)
}
