package market

import (
	"sync"
	"time"

	"github.com/Daboss57/wallstreet-sub000/internal/model"
	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
)

// priceState is the mutable per-instrument state. It is written only by the
// tick goroutine; the order-flow accumulator is the one field external
// writers touch, behind the store mutex.
type priceState struct {
	inst *Instrument

	price       float64
	bid         float64
	ask         float64
	sessionOpen float64
	sessionHigh float64
	sessionLow  float64
	prevClose   float64
	volume      float64
	vol         float64
	anchor      float64
	lastReturn  float64

	flowImpact float64 // signed pending order-flow impact, fraction of price
	sessionDay int
}

// Quote is a read-only snapshot of one instrument's price state.
type Quote struct {
	Ticker     string
	Price      float64
	Bid        float64
	Ask        float64
	Open       float64
	High       float64
	Low        float64
	PrevClose  float64
	Volume     float64
	Volatility float64
	Anchor     float64
	LastReturn float64
}

// PriceStore owns every instrument's mutable price state. All mutation
// funnels through the tick update and AddOrderFlow.
type PriceStore struct {
	mu       sync.RWMutex
	universe *Universe
	states   map[string]*priceState
	ordered  []*priceState
}

// NewPriceStore seeds state from instrument base prices.
func NewPriceStore(universe *Universe, now time.Time) *PriceStore {
	s := &PriceStore{
		universe: universe,
		states:   make(map[string]*priceState, universe.Len()),
	}
	for _, inst := range universe.All() {
		st := &priceState{
			inst:        inst,
			price:       inst.BasePrice,
			sessionOpen: inst.BasePrice,
			sessionHigh: inst.BasePrice,
			sessionLow:  inst.BasePrice,
			prevClose:   inst.BasePrice,
			vol:         inst.BaseVol,
			anchor:      inst.BasePrice,
			sessionDay:  now.UTC().YearDay(),
		}
		st.setSpread(inst.BasePrice*inst.BaseVol*0.05*inst.Style.SpreadMult, inst)
		s.states[inst.Ticker] = st
		s.ordered = append(s.ordered, st)
	}
	return s
}

// Restore overwrites seeded state from persisted rows. Unknown tickers are
// ignored; rows with degenerate values fall back to the seed.
func (s *PriceStore) Restore(rows []model.PriceRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		st, ok := s.states[row.Ticker]
		if !ok {
			continue
		}
		if row.Price < st.inst.MinPrice || row.Price > st.inst.MaxPrice {
			continue
		}
		st.price = row.Price
		st.sessionOpen = fallback(row.SessionOpen, row.Price)
		st.sessionHigh = fallback(row.SessionHigh, row.Price)
		st.sessionLow = fallback(row.SessionLow, row.Price)
		st.prevClose = fallback(row.PrevClose, row.Price)
		st.volume = row.Volume
		st.vol = fallback(row.Volatility, st.inst.BaseVol)
		st.anchor = fallback(row.Anchor, row.Price)
		st.lastReturn = row.LastReturn
		if row.Bid > 0 && row.Ask > row.Bid {
			st.bid, st.ask = row.Bid, row.Ask
		} else {
			st.setSpread(row.Price*st.vol*0.05*st.inst.Style.SpreadMult, st.inst)
		}
	}
}

// Quote returns a snapshot for one ticker.
func (s *PriceStore) Quote(ticker string) (Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[ticker]
	if !ok {
		return Quote{}, false
	}
	return st.quote(), true
}

// Quotes returns snapshots for every instrument in universe order.
func (s *PriceStore) Quotes() []Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Quote, 0, len(s.ordered))
	for _, st := range s.ordered {
		out = append(out, st.quote())
	}
	return out
}

// Rows materializes persistence rows for the batch flusher.
func (s *PriceStore) Rows(now time.Time) []model.PriceRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.PriceRow, 0, len(s.ordered))
	for _, st := range s.ordered {
		out = append(out, model.PriceRow{
			Ticker:      st.inst.Ticker,
			Price:       st.price,
			Bid:         st.bid,
			Ask:         st.ask,
			SessionOpen: st.sessionOpen,
			SessionHigh: st.sessionHigh,
			SessionLow:  st.sessionLow,
			PrevClose:   st.prevClose,
			Volume:      st.volume,
			Volatility:  st.vol,
			Anchor:      st.anchor,
			LastReturn:  st.lastReturn,
			UpdatedAt:   now,
		})
	}
	return out
}

// AddOrderFlow feeds a fill back into the price process. Buys push the
// pending impact up, sells push it down, scaled by participation in average
// daily dollar volume.
func (s *PriceStore) AddOrderFlow(ticker string, side enum.OrderSide, notional float64) {
	if notional <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[ticker]
	if !ok {
		return
	}
	impact := orderFlowCoeff * notional / st.inst.Micro.AvgDailyDollarVolume
	if side == enum.OrderSideSell {
		impact = -impact
	}
	st.flowImpact += impact
}

func (st *priceState) quote() Quote {
	return Quote{
		Ticker:     st.inst.Ticker,
		Price:      st.price,
		Bid:        st.bid,
		Ask:        st.ask,
		Open:       st.sessionOpen,
		High:       st.sessionHigh,
		Low:        st.sessionLow,
		PrevClose:  st.prevClose,
		Volume:     st.volume,
		Volatility: st.vol,
		Anchor:     st.anchor,
		LastReturn: st.lastReturn,
	}
}

func (st *priceState) setSpread(halfSpread float64, inst *Instrument) {
	minHalf := st.price * inst.Micro.BaseSpreadBps / 10000 / 2
	if halfSpread < minHalf {
		halfSpread = minHalf
	}
	st.bid = st.price - halfSpread
	st.ask = st.price + halfSpread
	if st.bid <= 0 {
		st.bid = st.price * 0.999
	}
}

// rollSession resets session aggregates on a UTC day change.
func (st *priceState) rollSession(now time.Time) {
	day := now.UTC().YearDay()
	if day == st.sessionDay {
		return
	}
	st.sessionDay = day
	st.prevClose = st.price
	st.sessionOpen = st.price
	st.sessionHigh = st.price
	st.sessionLow = st.price
	st.volume = 0
}

func fallback(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
