package store

import (
	"context"
	"time"

	"github.com/Daboss57/wallstreet-sub000/internal/model"
	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
)

// Tx is the locked view inside one ledger transaction. Order is nil when the
// transaction was opened without an order lock. Position is nil when the
// user is flat in the ticker. Any error returned from the transaction
// function rolls back every mutation.
type Tx interface {
	Order() *model.Order
	Balance() *model.Balance
	Position() *model.Position

	SaveOrder(*model.Order) error
	SaveBalance(*model.Balance) error
	SavePosition(*model.Position) error
	DeletePosition(*model.Position) error
	AppendTrade(*model.Trade) error
	// CancelOCOSiblings cancels every other open order sharing the OCO id.
	CancelOCOSiblings(ocoID, exceptOrderID string) error
}

// Gateway is the persistence surface the core runs against. Implementations
// must return errors satisfying errors.Is(err, exception.ErrStorageUnavailable)
// for transient outages so the core can treat them as retryable.
type Gateway interface {
	OpenOrders(ctx context.Context) ([]model.Order, error)
	CreateOrder(ctx context.Context, ord *model.Order) error
	CancelOrder(ctx context.Context, orderID string) error
	// SaveOrderTrigger persists matcher-side bookkeeping (trailing extreme,
	// stop-limit trigger latch) outside a fill transaction.
	SaveOrderTrigger(ctx context.Context, ord *model.Order) error

	Balance(ctx context.Context, userID string) (model.Balance, error)
	SaveBalance(ctx context.Context, bal *model.Balance) error
	Positions(ctx context.Context, userID string) ([]model.Position, error)
	ShortPositions(ctx context.Context) ([]model.Position, error)
	UsersWithPositions(ctx context.Context) ([]string, error)
	Trades(ctx context.Context, userID string, limit int) ([]model.Trade, error)

	// LedgerTx runs fn inside one atomic transaction holding exclusive row
	// locks on the user balance, the user+ticker position, and, when orderID
	// is non-empty, the order.
	LedgerTx(ctx context.Context, userID, ticker, orderID string, fn func(Tx) error) error

	UpsertPrices(ctx context.Context, rows []model.PriceRow) error
	LoadPrices(ctx context.Context) ([]model.PriceRow, error)
	UpsertCandles(ctx context.Context, candles []model.Candle) error
	Candles(ctx context.Context, ticker string, interval enum.CandleInterval, limit int) ([]model.Candle, error)

	AppendRegime(ctx context.Context, rec *model.RegimeRecord) error
	CloseActiveRegimes(ctx context.Context, endedAt time.Time) error
	ActiveRegime(ctx context.Context) (model.RegimeRecord, error)
}
