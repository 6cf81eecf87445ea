package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
)

// TickEvent is emitted for every instrument on every tick.
type TickEvent struct {
	Ticker     string      `json:"ticker"`
	Price      float64     `json:"price"`
	Bid        float64     `json:"bid"`
	Ask        float64     `json:"ask"`
	Open       float64     `json:"open"`
	High       float64     `json:"high"`
	Low        float64     `json:"low"`
	PrevClose  float64     `json:"prev_close"`
	Change     float64     `json:"change"`
	ChangePct  float64     `json:"change_pct"`
	Volume     float64     `json:"volume"`
	Volatility float64     `json:"volatility"`
	Regime     enum.Regime `json:"regime"`
	At         time.Time   `json:"at"`
}

// FillEvent is emitted after a fill transaction commits.
type FillEvent struct {
	OrderID      string          `json:"order_id"`
	TradeID      string          `json:"trade_id"`
	UserID       string          `json:"user_id"`
	Ticker       string          `json:"ticker"`
	Side         enum.OrderSide  `json:"side"`
	Qty          decimal.Decimal `json:"qty"`
	Price        decimal.Decimal `json:"price"`
	Total        decimal.Decimal `json:"total"`
	Commission   decimal.Decimal `json:"commission"`
	BorrowCost   decimal.Decimal `json:"borrow_cost"`
	SlippageBps  float64         `json:"slippage_bps"`
	QualityScore float64         `json:"quality_score"`
	NetPnl       decimal.Decimal `json:"net_pnl"`
	Regime       enum.Regime     `json:"regime"`
	At           time.Time       `json:"at"`
}
