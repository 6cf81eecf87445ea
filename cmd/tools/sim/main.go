package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Daboss57/wallstreet-sub000/internal/engine"
	"github.com/Daboss57/wallstreet-sub000/internal/model"
	"github.com/Daboss57/wallstreet-sub000/internal/model/enum"
	"github.com/Daboss57/wallstreet-sub000/internal/obs"
	"github.com/Daboss57/wallstreet-sub000/internal/ops"
	"github.com/Daboss57/wallstreet-sub000/internal/store"
)

// Offline batch simulator: runs the full tick pipeline on in-memory
// storage with a simulated clock and prints what the market did.
func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	ticks := flag.Int("ticks", 3600, "Number of ticks to simulate")
	seed := flag.Int64("seed", 42, "RNG seed (0 = time-based)")
	user := flag.String("user", "sim-user", "User to seed with cash and a demo order")
	cash := flag.Float64("cash", 0, "Starting cash for the demo user (0 = config initialCash)")
	orderTicker := flag.String("order-ticker", "AAPL", "Ticker for the demo market order")
	orderQty := flag.Float64("order-qty", 25, "Quantity for the demo market order")
	flag.Parse()

	if *ticks <= 0 {
		log.Fatalf("ticks must be > 0")
	}

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *seed != 0 {
		loaded.Seed = *seed
	}

	gw := store.NewMemory()
	ctx := context.Background()
	start := time.Now().UTC()

	if err := seedDemo(ctx, gw, *user, demoCash(*cash, loaded), *orderTicker, *orderQty, start); err != nil {
		log.Fatalf("seed failed: %v", err)
	}

	metrics := obs.NewMetrics()
	eng := engine.New(loaded, gw, metrics)

	eng.RunTicks(ctx, *ticks, start)

	printSummary(ctx, gw, eng, metrics, *user, *ticks)
}

// demoCash resolves the demo balance: an explicit flag wins, otherwise
// the configured initial cash applies.
func demoCash(flagVal float64, loaded ops.Loaded) float64 {
	if flagVal > 0 {
		return flagVal
	}
	return loaded.InitialCash
}

func seedDemo(ctx context.Context, gw store.Gateway, user string, cash float64, ticker string, qty float64, now time.Time) error {
	if err := gw.SaveBalance(ctx, &model.Balance{
		UserID: user,
		Cash:   decimal.NewFromFloat(cash),
	}); err != nil {
		return err
	}
	return gw.CreateOrder(ctx, &model.Order{
		OrderID:   "sim-demo-order",
		UserID:    user,
		Ticker:    ticker,
		Type:      enum.OrderTypeMarket,
		Side:      enum.OrderSideBuy,
		Qty:       decimal.NewFromFloat(qty),
		Status:    enum.OrderStatusOpen,
		CreatedAt: now,
	})
}

func printSummary(ctx context.Context, gw store.Gateway, eng *engine.Engine, metrics *obs.Metrics, user string, ticks int) {
	quotes := eng.Prices().Quotes()
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Ticker < quotes[j].Ticker })

	fmt.Printf("simulated %d ticks across %d instruments\n\n", ticks, len(quotes))
	fmt.Printf("%-10s %12s %12s %12s %10s\n", "TICKER", "PRICE", "HIGH", "LOW", "CHG%")
	for _, q := range quotes {
		chg := 0.0
		if q.PrevClose > 0 {
			chg = (q.Price - q.PrevClose) / q.PrevClose * 100
		}
		fmt.Printf("%-10s %12.4f %12.4f %12.4f %9.2f%%\n", q.Ticker, q.Price, q.High, q.Low, chg)
	}

	trades, err := gw.Trades(ctx, user, 10)
	if err == nil && len(trades) > 0 {
		fmt.Printf("\ntrades for %s:\n", user)
		for _, t := range trades {
			fmt.Printf("  %s %s qty=%s price=%s net_pnl=%s quality=%.1f\n",
				t.Side, t.Ticker, t.Qty, t.Price, t.NetPnl, t.QualityScore)
		}
	}

	snap := metrics.Snapshot()
	fmt.Printf("\nticks=%d fills=%d margin_calls=%d storage_errors=%d tick_avg=%s\n",
		snap.Ticks, snap.Fills, snap.MarginCalls, snap.StorageErrors, snap.TickLatency.Avg)
}
