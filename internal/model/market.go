package model

import (
	"time"

	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
)

// PriceRow is the persisted snapshot of one instrument's price state.
type PriceRow struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	Ticker      string    `gorm:"uniqueIndex;size:16" json:"ticker"`
	Price       float64   `json:"price"`
	Bid         float64   `json:"bid"`
	Ask         float64   `json:"ask"`
	SessionOpen float64   `json:"session_open"`
	SessionHigh float64   `json:"session_high"`
	SessionLow  float64   `json:"session_low"`
	PrevClose   float64   `json:"prev_close"`
	Volume      float64   `json:"volume"`
	Volatility  float64   `json:"volatility"`
	Anchor      float64   `json:"anchor"`
	LastReturn  float64   `json:"last_return"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Candle is one OHLCV bar, keyed by ticker+interval+open time. Upserts carry
// cumulative bar snapshots, so replays are idempotent: high/low widen, close
// overwrites, volume takes the larger snapshot.
type Candle struct {
	ID       uint                `gorm:"primaryKey" json:"-"`
	Ticker   string              `gorm:"uniqueIndex:idx_candle_key;size:16" json:"ticker"`
	Interval enum.CandleInterval `gorm:"uniqueIndex:idx_candle_key;size:4" json:"interval"`
	OpenTime time.Time           `gorm:"uniqueIndex:idx_candle_key" json:"open_time"`
	Open     float64             `json:"open"`
	High     float64             `json:"high"`
	Low      float64             `json:"low"`
	Close    float64             `json:"close"`
	Volume   float64             `json:"volume"`
}

// RegimeRecord is one persisted regime episode.
type RegimeRecord struct {
	ID        uint        `gorm:"primaryKey" json:"-"`
	Regime    enum.Regime `gorm:"size:20" json:"regime"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   *time.Time  `json:"ended_at,omitempty"`
}
