package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Daboss57/wallstreet-sub000/internal/model"
	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
	"github.com/Daboss57/wallstreet-sub000/pkg/exception"
)

// Gorm is the PostgreSQL gateway.
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps an open connection and migrates the schema.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if db == nil {
		return nil, exception.ErrStorageUnavailable
	}
	if err := db.AutoMigrate(
		&model.Order{},
		&model.Balance{},
		&model.Position{},
		&model.Trade{},
		&model.PriceRow{},
		&model.Candle{},
		&model.RegimeRecord{},
	); err != nil {
		return nil, errors.Wrap(storageErr(err), "migrate schema")
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) OpenOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	err := g.db.WithContext(ctx).
		Where("status IN ?", []enum.OrderStatus{enum.OrderStatusOpen, enum.OrderStatusPartial}).
		Order("created_at asc").
		Find(&orders).Error
	if err != nil {
		return nil, storageErr(err)
	}
	return orders, nil
}

func (g *Gorm) CreateOrder(ctx context.Context, ord *model.Order) error {
	if err := validateOrder(ord); err != nil {
		return err
	}
	return storageErr(g.db.WithContext(ctx).Create(ord).Error)
}

func (g *Gorm) CancelOrder(ctx context.Context, orderID string) error {
	res := g.db.WithContext(ctx).Model(&model.Order{}).
		Where("order_id = ? AND status IN ?", orderID, []enum.OrderStatus{enum.OrderStatusOpen, enum.OrderStatusPartial}).
		Update("status", enum.OrderStatusCancelled)
	if res.Error != nil {
		return storageErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return exception.ErrOrderNotOpen
	}
	return nil
}

func (g *Gorm) SaveOrderTrigger(ctx context.Context, ord *model.Order) error {
	return storageErr(g.db.WithContext(ctx).Model(&model.Order{}).
		Where("order_id = ?", ord.OrderID).
		Updates(map[string]any{
			"trail_high": ord.TrailHigh,
			"triggered":  ord.Triggered,
		}).Error)
}

func (g *Gorm) Balance(ctx context.Context, userID string) (model.Balance, error) {
	var bal model.Balance
	err := g.db.WithContext(ctx).Where("user_id = ?", userID).First(&bal).Error
	if err != nil {
		return model.Balance{}, storageErr(err)
	}
	return bal, nil
}

func (g *Gorm) SaveBalance(ctx context.Context, bal *model.Balance) error {
	bal.UpdatedAt = time.Now().UTC()
	return storageErr(g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"cash", "updated_at"}),
		}).
		Create(bal).Error)
}

func (g *Gorm) Positions(ctx context.Context, userID string) ([]model.Position, error) {
	var positions []model.Position
	err := g.db.WithContext(ctx).Where("user_id = ?", userID).Find(&positions).Error
	if err != nil {
		return nil, storageErr(err)
	}
	return positions, nil
}

func (g *Gorm) ShortPositions(ctx context.Context) ([]model.Position, error) {
	var positions []model.Position
	err := g.db.WithContext(ctx).Where("qty < 0").Find(&positions).Error
	if err != nil {
		return nil, storageErr(err)
	}
	return positions, nil
}

func (g *Gorm) UsersWithPositions(ctx context.Context) ([]string, error) {
	var users []string
	err := g.db.WithContext(ctx).Model(&model.Position{}).
		Distinct("user_id").Pluck("user_id", &users).Error
	if err != nil {
		return nil, storageErr(err)
	}
	return users, nil
}

func (g *Gorm) Trades(ctx context.Context, userID string, limit int) ([]model.Trade, error) {
	var trades []model.Trade
	q := g.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&trades).Error; err != nil {
		return nil, storageErr(err)
	}
	return trades, nil
}

func (g *Gorm) LedgerTx(ctx context.Context, userID, ticker, orderID string, fn func(Tx) error) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		view := &gormTx{db: tx}

		if orderID != "" {
			var ord model.Order
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("order_id = ?", orderID).First(&ord).Error
			if err != nil {
				return storageErr(err)
			}
			view.order = &ord
			view.orderStatus = ord.Status
		}

		var bal model.Balance
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&bal).Error
		if err != nil {
			return storageErr(err)
		}
		view.balance = &bal

		var pos model.Position
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND ticker = ?", userID, ticker).First(&pos).Error
		switch {
		case err == nil:
			view.position = &pos
		case stderrors.Is(err, gorm.ErrRecordNotFound):
			// flat: no position row to lock
		default:
			return storageErr(err)
		}

		return fn(view)
	})
	return err
}

type gormTx struct {
	db          *gorm.DB
	order       *model.Order
	orderStatus enum.OrderStatus
	balance     *model.Balance
	position    *model.Position
}

func (t *gormTx) Order() *model.Order       { return t.order }
func (t *gormTx) Balance() *model.Balance   { return t.balance }
func (t *gormTx) Position() *model.Position { return t.position }

func (t *gormTx) SaveOrder(ord *model.Order) error {
	if t.order != nil && !t.orderStatus.CanTransition(ord.Status) {
		return exception.ErrOrderInvalidStatusSeq
	}
	ord.UpdatedAt = time.Now().UTC()
	return storageErr(t.db.Save(ord).Error)
}

func (t *gormTx) SaveBalance(bal *model.Balance) error {
	bal.UpdatedAt = time.Now().UTC()
	return storageErr(t.db.Save(bal).Error)
}

func (t *gormTx) SavePosition(pos *model.Position) error {
	return storageErr(t.db.Save(pos).Error)
}

func (t *gormTx) DeletePosition(pos *model.Position) error {
	if pos.ID == 0 {
		return nil
	}
	return storageErr(t.db.Delete(pos).Error)
}

func (t *gormTx) AppendTrade(trade *model.Trade) error {
	return storageErr(t.db.Create(trade).Error)
}

func (t *gormTx) CancelOCOSiblings(ocoID, exceptOrderID string) error {
	if ocoID == "" {
		return nil
	}
	return storageErr(t.db.Model(&model.Order{}).
		Where("oco_id = ? AND order_id <> ? AND status IN ?",
			ocoID, exceptOrderID, []enum.OrderStatus{enum.OrderStatusOpen, enum.OrderStatusPartial}).
		Update("status", enum.OrderStatusCancelled).Error)
}

func (g *Gorm) UpsertPrices(ctx context.Context, rows []model.PriceRow) error {
	if len(rows) == 0 {
		return nil
	}
	return storageErr(g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "ticker"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"price", "bid", "ask", "session_open", "session_high", "session_low",
				"prev_close", "volume", "volatility", "anchor", "last_return", "updated_at",
			}),
		}).
		Create(&rows).Error)
}

func (g *Gorm) LoadPrices(ctx context.Context) ([]model.PriceRow, error) {
	var rows []model.PriceRow
	if err := g.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, storageErr(err)
	}
	return rows, nil
}

func (g *Gorm) UpsertCandles(ctx context.Context, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	// Idempotent: high/low widen, close overwrites, volume keeps the largest
	// cumulative value seen for the bar.
	return storageErr(g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "ticker"}, {Name: "interval"}, {Name: "open_time"}},
			DoUpdates: clause.Assignments(map[string]any{
				"high":   gorm.Expr("GREATEST(candles.high, excluded.high)"),
				"low":    gorm.Expr("LEAST(candles.low, excluded.low)"),
				"close":  gorm.Expr("excluded.close"),
				"volume": gorm.Expr("GREATEST(candles.volume, excluded.volume)"),
			}),
		}).
		Create(&candles).Error)
}

func (g *Gorm) Candles(ctx context.Context, ticker string, interval enum.CandleInterval, limit int) ([]model.Candle, error) {
	if !interval.IsAvailable() {
		return nil, exception.ErrMarketDegenerateInterval
	}
	var candles []model.Candle
	q := g.db.WithContext(ctx).
		Where("ticker = ? AND interval = ?", ticker, interval).
		Order("open_time desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&candles).Error; err != nil {
		return nil, storageErr(err)
	}
	return candles, nil
}

func (g *Gorm) AppendRegime(ctx context.Context, rec *model.RegimeRecord) error {
	return storageErr(g.db.WithContext(ctx).Create(rec).Error)
}

func (g *Gorm) CloseActiveRegimes(ctx context.Context, endedAt time.Time) error {
	return storageErr(g.db.WithContext(ctx).Model(&model.RegimeRecord{}).
		Where("ended_at IS NULL").
		Update("ended_at", endedAt).Error)
}

func (g *Gorm) ActiveRegime(ctx context.Context) (model.RegimeRecord, error) {
	var rec model.RegimeRecord
	err := g.db.WithContext(ctx).
		Where("ended_at IS NULL").
		Order("started_at desc").
		First(&rec).Error
	if err != nil {
		return model.RegimeRecord{}, storageErr(err)
	}
	return rec, nil
}

// storageErr maps driver errors onto the core's taxonomy: missing rows stay
// distinguishable, everything else is a transient storage outage.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return exception.ErrNotFound
	}
	return fmt.Errorf("%w: %v", exception.ErrStorageUnavailable, err)
}

func validateOrder(ord *model.Order) error {
	if ord == nil || ord.UserID == "" || ord.Ticker == "" {
		return exception.ErrOrderInvalidRequest
	}
	if !ord.Type.IsAvailable() {
		return exception.ErrOrderUnsupportedType
	}
	if !ord.Side.IsAvailable() {
		return exception.ErrOrderUnsupportedSide
	}
	if !ord.Qty.IsPositive() {
		return exception.ErrOrderInvalidQty
	}
	if ord.Type.RequiresLimitPrice() && !ord.LimitPrice.Valid {
		return exception.ErrOrderMissingLimit
	}
	if ord.Type.RequiresStopPrice() && !ord.StopPrice.Valid {
		return exception.ErrOrderMissingStop
	}
	if ord.Type == enum.OrderTypeTrailingStop && !ord.TrailPct.Valid {
		return exception.ErrOrderMissingTrailPct
	}
	if ord.Status == "" {
		ord.Status = enum.OrderStatusOpen
	}
	return nil
}
