package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Daboss57/wallstreet-sub000/internal/model"
	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
	"github.com/Daboss57/wallstreet-sub000/pkg/exception"
)

// Memory is an in-process gateway with the same transactional semantics as
// the SQL one: a LedgerTx either commits every mutation or none. It backs
// tests and DB-less operation.
type Memory struct {
	mu          sync.Mutex
	unavailable bool

	orders    map[string]*model.Order
	balances  map[string]*model.Balance
	positions map[string]*model.Position
	trades    []model.Trade
	prices    map[string]model.PriceRow
	candles   map[string]model.Candle
	regimes   []model.RegimeRecord

	orderSeq uint
	posSeq   uint
}

// NewMemory creates an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{
		orders:    make(map[string]*model.Order),
		balances:  make(map[string]*model.Balance),
		positions: make(map[string]*model.Position),
		prices:    make(map[string]model.PriceRow),
		candles:   make(map[string]model.Candle),
	}
}

// SetUnavailable toggles a simulated storage outage.
func (m *Memory) SetUnavailable(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = down
}

func (m *Memory) check() error {
	if m.unavailable {
		return exception.ErrStorageUnavailable
	}
	return nil
}

func posKey(userID, ticker string) string { return userID + "|" + ticker }

func candleKey(c model.Candle) string {
	return c.Ticker + "|" + string(c.Interval) + "|" + strconv.FormatInt(c.OpenTime.Unix(), 10)
}

func (m *Memory) OpenOrders(ctx context.Context) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	var out []model.Order
	for _, ord := range m.orders {
		if !ord.Status.IsTerminal() {
			out = append(out, *ord)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) CreateOrder(ctx context.Context, ord *model.Order) error {
	if err := validateOrder(ord); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.orderSeq++
	ord.ID = m.orderSeq
	if ord.CreatedAt.IsZero() {
		ord.CreatedAt = time.Now().UTC()
	}
	cp := *ord
	m.orders[ord.OrderID] = &cp
	return nil
}

func (m *Memory) CancelOrder(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	ord, ok := m.orders[orderID]
	if !ok || ord.Status.IsTerminal() {
		return exception.ErrOrderNotOpen
	}
	ord.Status = enum.OrderStatusCancelled
	ord.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) SaveOrderTrigger(ctx context.Context, ord *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	existing, ok := m.orders[ord.OrderID]
	if !ok {
		return exception.ErrOrderNotFound
	}
	existing.TrailHigh = ord.TrailHigh
	existing.Triggered = ord.Triggered
	return nil
}

func (m *Memory) Balance(ctx context.Context, userID string) (model.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return model.Balance{}, err
	}
	bal, ok := m.balances[userID]
	if !ok {
		return model.Balance{}, exception.ErrNotFound
	}
	return *bal, nil
}

func (m *Memory) SaveBalance(ctx context.Context, bal *model.Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	bal.UpdatedAt = time.Now().UTC()
	cp := *bal
	m.balances[bal.UserID] = &cp
	return nil
}

func (m *Memory) Positions(ctx context.Context, userID string) ([]model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	var out []model.Position
	for _, pos := range m.positions {
		if pos.UserID == userID {
			out = append(out, *pos)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

func (m *Memory) ShortPositions(ctx context.Context) ([]model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	var out []model.Position
	for _, pos := range m.positions {
		if pos.Qty.IsNegative() {
			out = append(out, *pos)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return posKey(out[i].UserID, out[i].Ticker) < posKey(out[j].UserID, out[j].Ticker)
	})
	return out, nil
}

func (m *Memory) UsersWithPositions(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for _, pos := range m.positions {
		if _, ok := seen[pos.UserID]; !ok {
			seen[pos.UserID] = struct{}{}
			out = append(out, pos.UserID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Trades(ctx context.Context, userID string, limit int) ([]model.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	var out []model.Trade
	for i := len(m.trades) - 1; i >= 0; i-- {
		if m.trades[i].UserID == userID {
			out = append(out, m.trades[i])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// memTx stages mutations on copies; commit writes them back while the store
// lock is still held, so the transaction is atomic to every other caller.
type memTx struct {
	m           *Memory
	order       *model.Order
	orderStatus enum.OrderStatus
	balance     *model.Balance
	position    *model.Position

	deletePos  bool
	trades     []model.Trade
	ocoCancels [][2]string
}

func (m *Memory) LedgerTx(ctx context.Context, userID, ticker, orderID string, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}

	tx := &memTx{m: m}
	if orderID != "" {
		ord, ok := m.orders[orderID]
		if !ok {
			return exception.ErrNotFound
		}
		cp := *ord
		tx.order = &cp
		tx.orderStatus = cp.Status
	}
	bal, ok := m.balances[userID]
	if !ok {
		return exception.ErrNotFound
	}
	balCp := *bal
	tx.balance = &balCp
	if pos, ok := m.positions[posKey(userID, ticker)]; ok {
		cp := *pos
		tx.position = &cp
	}

	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (t *memTx) Order() *model.Order       { return t.order }
func (t *memTx) Balance() *model.Balance   { return t.balance }
func (t *memTx) Position() *model.Position { return t.position }

func (t *memTx) SaveOrder(ord *model.Order) error {
	if t.order != nil && !t.orderStatus.CanTransition(ord.Status) {
		return exception.ErrOrderInvalidStatusSeq
	}
	ord.UpdatedAt = time.Now().UTC()
	t.order = ord
	return nil
}

func (t *memTx) SaveBalance(bal *model.Balance) error {
	bal.UpdatedAt = time.Now().UTC()
	t.balance = bal
	return nil
}

func (t *memTx) SavePosition(pos *model.Position) error {
	if pos.ID == 0 {
		t.m.posSeq++
		pos.ID = t.m.posSeq
	}
	t.position = pos
	t.deletePos = false
	return nil
}

func (t *memTx) DeletePosition(pos *model.Position) error {
	t.position = pos
	t.deletePos = true
	return nil
}

func (t *memTx) AppendTrade(trade *model.Trade) error {
	t.trades = append(t.trades, *trade)
	return nil
}

func (t *memTx) CancelOCOSiblings(ocoID, exceptOrderID string) error {
	if ocoID == "" {
		return nil
	}
	t.ocoCancels = append(t.ocoCancels, [2]string{ocoID, exceptOrderID})
	return nil
}

func (t *memTx) commit() {
	m := t.m
	if t.order != nil {
		cp := *t.order
		m.orders[cp.OrderID] = &cp
	}
	if t.balance != nil {
		cp := *t.balance
		m.balances[cp.UserID] = &cp
	}
	if t.position != nil {
		key := posKey(t.position.UserID, t.position.Ticker)
		if t.deletePos {
			delete(m.positions, key)
		} else {
			cp := *t.position
			m.positions[key] = &cp
		}
	}
	m.trades = append(m.trades, t.trades...)
	for _, cancel := range t.ocoCancels {
		for _, ord := range m.orders {
			if ord.OCOID == cancel[0] && ord.OrderID != cancel[1] && !ord.Status.IsTerminal() {
				ord.Status = enum.OrderStatusCancelled
				ord.UpdatedAt = time.Now().UTC()
			}
		}
	}
}

func (m *Memory) UpsertPrices(ctx context.Context, rows []model.PriceRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	for _, row := range rows {
		m.prices[row.Ticker] = row
	}
	return nil
}

func (m *Memory) LoadPrices(ctx context.Context) ([]model.PriceRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	var out []model.PriceRow
	for _, row := range m.prices {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

func (m *Memory) UpsertCandles(ctx context.Context, candles []model.Candle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	for _, c := range candles {
		key := candleKey(c)
		existing, ok := m.candles[key]
		if !ok {
			m.candles[key] = c
			continue
		}
		if c.High > existing.High {
			existing.High = c.High
		}
		if c.Low < existing.Low {
			existing.Low = c.Low
		}
		existing.Close = c.Close
		if c.Volume > existing.Volume {
			existing.Volume = c.Volume
		}
		m.candles[key] = existing
	}
	return nil
}

func (m *Memory) Candles(ctx context.Context, ticker string, interval enum.CandleInterval, limit int) ([]model.Candle, error) {
	if !interval.IsAvailable() {
		return nil, exception.ErrMarketDegenerateInterval
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	var out []model.Candle
	for _, c := range m.candles {
		if c.Ticker == ticker && c.Interval == interval {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenTime.After(out[j].OpenTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) AppendRegime(ctx context.Context, rec *model.RegimeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	rec.ID = uint(len(m.regimes) + 1)
	m.regimes = append(m.regimes, *rec)
	return nil
}

func (m *Memory) CloseActiveRegimes(ctx context.Context, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	for i := range m.regimes {
		if m.regimes[i].EndedAt == nil {
			ended := endedAt
			m.regimes[i].EndedAt = &ended
		}
	}
	return nil
}

func (m *Memory) ActiveRegime(ctx context.Context) (model.RegimeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return model.RegimeRecord{}, err
	}
	for i := len(m.regimes) - 1; i >= 0; i-- {
		if m.regimes[i].EndedAt == nil {
			return m.regimes[i], nil
		}
	}
	return model.RegimeRecord{}, exception.ErrNotFound
}
