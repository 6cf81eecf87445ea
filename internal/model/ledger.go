package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
)

// Order is a user order mutated only by the matching loop.
type Order struct {
	ID         uint                `gorm:"primaryKey" json:"-"`
	OrderID    string              `gorm:"uniqueIndex;size:40" json:"order_id"`
	UserID     string              `gorm:"index;size:40" json:"user_id"`
	Ticker     string              `gorm:"index;size:16" json:"ticker"`
	Type       enum.OrderType      `gorm:"size:16" json:"type"`
	Side       enum.OrderSide      `gorm:"size:8" json:"side"`
	Qty        decimal.Decimal     `gorm:"type:numeric" json:"qty"`
	FilledQty  decimal.Decimal     `gorm:"type:numeric" json:"filled_qty"`
	LimitPrice decimal.NullDecimal `gorm:"type:numeric" json:"limit_price,omitempty"`
	StopPrice  decimal.NullDecimal `gorm:"type:numeric" json:"stop_price,omitempty"`
	TrailPct   decimal.NullDecimal `gorm:"type:numeric" json:"trail_pct,omitempty"`
	TrailHigh  decimal.NullDecimal `gorm:"type:numeric" json:"trail_high,omitempty"`
	OCOID      string              `gorm:"column:oco_id;index;size:40" json:"oco_id,omitempty"`
	Triggered  bool                `json:"triggered"`
	Status     enum.OrderStatus    `gorm:"index;size:12" json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Remaining returns the unfilled quantity.
func (o Order) Remaining() decimal.Decimal {
	left := o.Qty.Sub(o.FilledQty)
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

// Balance is a user cash row.
type Balance struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	UserID    string          `gorm:"uniqueIndex;size:40" json:"user_id"`
	Cash      decimal.Decimal `gorm:"type:numeric" json:"cash"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Position is the signed holding of one user in one ticker.
// The row is deleted when qty reaches zero.
type Position struct {
	ID            uint            `gorm:"primaryKey" json:"-"`
	UserID        string          `gorm:"uniqueIndex:idx_user_ticker;size:40" json:"user_id"`
	Ticker        string          `gorm:"uniqueIndex:idx_user_ticker;size:16" json:"ticker"`
	Qty           decimal.Decimal `gorm:"type:numeric" json:"qty"`
	AvgCost       decimal.Decimal `gorm:"type:numeric" json:"avg_cost"`
	BorrowAccrued decimal.Decimal `gorm:"type:numeric" json:"borrow_accrued"`
	OpenedAt      time.Time       `json:"opened_at"`
	LastAccrualAt time.Time       `json:"last_accrual_at"`
}

// IsShort reports whether the position is a short.
func (p Position) IsShort() bool {
	return p.Qty.IsNegative()
}

// Trade is an immutable fill record.
type Trade struct {
	ID           uint            `gorm:"primaryKey" json:"-"`
	TradeID      string          `gorm:"uniqueIndex;size:40" json:"trade_id"`
	OrderID      string          `gorm:"index;size:40" json:"order_id"`
	UserID       string          `gorm:"index;size:40" json:"user_id"`
	Ticker       string          `gorm:"index;size:16" json:"ticker"`
	Side         enum.OrderSide  `gorm:"size:8" json:"side"`
	Qty          decimal.Decimal `gorm:"type:numeric" json:"qty"`
	Price        decimal.Decimal `gorm:"type:numeric" json:"price"`
	Notional     decimal.Decimal `gorm:"type:numeric" json:"notional"`
	NetPnl       decimal.Decimal `gorm:"type:numeric" json:"net_pnl"`
	SlippageCost decimal.Decimal `gorm:"type:numeric" json:"slippage_cost"`
	Commission   decimal.Decimal `gorm:"type:numeric" json:"commission"`
	BorrowCost   decimal.Decimal `gorm:"type:numeric" json:"borrow_cost"`
	QualityScore float64         `json:"quality_score"`
	Regime       enum.Regime     `gorm:"size:20" json:"regime"`
	CreatedAt    time.Time       `json:"created_at"`
}

// MarginCallOrderID is the sentinel order id on forced-liquidation trades.
const MarginCallOrderID = "margin-call"
