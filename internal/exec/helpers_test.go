package exec

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Daboss57/wallstreet-sub000/internal/market"
	"github.com/Daboss57/wallstreet-sub000/internal/model"
	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
	"github.com/Daboss57/wallstreet-sub000/internal/store"
)

type stubRegime struct {
	active enum.Regime
}

func (s stubRegime) Active() enum.Regime {
	return s.active
}

func (s stubRegime) Multipliers() market.Multipliers {
	return market.RegimeMultipliers(s.active)
}

type stubQuotes map[string]market.Quote

func (s stubQuotes) Quote(ticker string) (market.Quote, bool) {
	q, ok := s[ticker]
	return q, ok
}

func quoteAt(price float64) market.Quote {
	return market.Quote{
		Ticker:     "TTA",
		Price:      price,
		Bid:        price - 0.01,
		Ask:        price + 0.01,
		Volatility: 0.01,
	}
}

func execUniverse(t *testing.T) *market.Universe {
	t.Helper()
	u, err := market.NewUniverse([]market.Instrument{{
		Ticker:      "TTA",
		Name:        "Test",
		Class:       enum.AssetClassEquity,
		BasePrice:   100,
		BaseVol:     0.008,
		MeanRevRate: 0.02,
		MinPrice:    1,
		MaxPrice:    10000,
		Style: market.Style{
			MeanRevMult:      1,
			AnchorFollowRate: 0.05,
			IdioMult:         1,
			SpreadMult:       1,
			VolumeBase:       1000,
		},
	}})
	require.NoError(t, err)
	return u
}

// newTestExecutor uses a zero-cost model so ledger assertions are exact.
func newTestExecutor(t *testing.T, gw store.Gateway) *Executor {
	t.Helper()
	return NewExecutor(gw, CostModel{Realism: false}, execUniverse(t), stubRegime{active: enum.RegimeNormal}, nil, nil, nil)
}

func seedBalance(t *testing.T, gw store.Gateway, userID string, cash float64) {
	t.Helper()
	require.NoError(t, gw.SaveBalance(context.Background(), &model.Balance{
		UserID: userID,
		Cash:   decimal.NewFromFloat(cash),
	}))
}

func openOrder(t *testing.T, gw store.Gateway, ord model.Order) model.Order {
	t.Helper()
	if ord.CreatedAt.IsZero() {
		ord.CreatedAt = time.Now().UTC()
	}
	require.NoError(t, gw.CreateOrder(context.Background(), &ord))
	return ord
}

func marketOrder(orderID, userID string, side enum.OrderSide, qty float64) model.Order {
	return model.Order{
		OrderID: orderID,
		UserID:  userID,
		Ticker:  "TTA",
		Type:    enum.OrderTypeMarket,
		Side:    side,
		Qty:     decimal.NewFromFloat(qty),
		Status:  enum.OrderStatusOpen,
	}
}

func findOrder(t *testing.T, gw store.Gateway, orderID string) (model.Order, bool) {
	t.Helper()
	orders, err := gw.OpenOrders(context.Background())
	require.NoError(t, err)
	for _, ord := range orders {
		if ord.OrderID == orderID {
			return ord, true
		}
	}
	return model.Order{}, false
}

func onlyPosition(t *testing.T, gw store.Gateway, userID string) (model.Position, bool) {
	t.Helper()
	positions, err := gw.Positions(context.Background(), userID)
	require.NoError(t, err)
	if len(positions) == 0 {
		return model.Position{}, false
	}
	require.Len(t, positions, 1)
	return positions[0], true
}
