package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"github.com/Daboss57/wallstreet-sub000/internal/bus"
	"github.com/Daboss57/wallstreet-sub000/internal/exec"
	"github.com/Daboss57/wallstreet-sub000/internal/market"
	"github.com/Daboss57/wallstreet-sub000/internal/model"
	"github.com/Daboss57/wallstreet-sub000/internal/obs"
	"github.com/Daboss57/wallstreet-sub000/internal/ops"
	"github.com/Daboss57/wallstreet-sub000/internal/store"
)

// Engine owns the tick goroutine. Everything that mutates price state or
// the regime machine runs here; the ledger is only touched through
// gateway transactions so the scan order below is the whole concurrency
// story.
type Engine struct {
	cfg     ops.Loaded
	gw      store.Gateway
	prices  *market.PriceStore
	process *market.Process
	regimes *market.RegimeController
	candles *market.CandleAggregator
	flusher *store.Flusher
	queue   *bus.Queue
	matcher *exec.Matcher
	exec    *exec.Executor
	borrow  *exec.BorrowAccruer
	margin  *exec.MarginMonitor
	metrics *obs.Metrics
	limiter *rateLimiter
}

// New assembles the full pipeline from resolved config.
func New(cfg ops.Loaded, gw store.Gateway, metrics *obs.Metrics) *Engine {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UTC().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	now := time.Now().UTC()

	prices := market.NewPriceStore(cfg.Universe, now)
	factors := market.NewFactorProcess(rng)
	regimes := market.NewRegimeController(rng, cfg.RegimeReview, now)
	candles := market.NewCandleAggregator()
	process := market.NewProcess(cfg.Process, prices, factors, regimes, candles, rng)

	queue := bus.NewQueue(cfg.QueueCap)
	pub := &fillPublisher{queue: queue, metrics: metrics}
	cost := exec.CostModel{Realism: cfg.Realism}
	executor := exec.NewExecutor(gw, cost, cfg.Universe, regimes, prices, pub, metrics)

	return &Engine{
		cfg:     cfg,
		gw:      gw,
		prices:  prices,
		process: process,
		regimes: regimes,
		candles: candles,
		flusher: store.NewFlusher(gw, cfg.FlushEvery),
		queue:   queue,
		matcher: exec.NewMatcher(gw, prices, executor),
		exec:    executor,
		borrow:  exec.NewBorrowAccruer(gw, prices, cfg.Universe, regimes),
		margin:  exec.NewMarginMonitor(gw, prices, executor, metrics),
		metrics: metrics,
		limiter: newRateLimiter(10 * time.Second),
	}
}

// Queue exposes the event bus for consumers.
func (e *Engine) Queue() *bus.Queue {
	return e.queue
}

// Prices exposes read-only quotes.
func (e *Engine) Prices() *market.PriceStore {
	return e.prices
}

// Run drives the tick loop until the context is done or the process
// receives a shutdown signal, then flushes and reports.
func (e *Engine) Run(ctx context.Context) error {
	e.restore(ctx)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	logs.Infof("engine started: instruments=%d interval=%s realism=%t",
		e.cfg.Universe.Len(), e.cfg.TickInterval, e.cfg.Realism)

	for {
		select {
		case <-ctx.Done():
			return e.shutdown(context.Background())
		case <-sys.Shutdown():
			return e.shutdown(context.Background())
		case tickAt := <-ticker.C:
			// A step that overran leaves stale ticks queued; drop them
			// instead of bursting.
			if time.Since(tickAt) > e.cfg.TickInterval/2 {
				e.metrics.IncSkippedTick()
				continue
			}
			e.step(ctx, time.Now().UTC())
		}
	}
}

// RunTicks drives n steps against a simulated clock without waiting on
// wall time. Used by the offline simulator and by tests.
func (e *Engine) RunTicks(ctx context.Context, n int, start time.Time) {
	e.restore(ctx)
	now := start.UTC()
	for i := 0; i < n; i++ {
		now = now.Add(e.cfg.TickInterval)
		e.step(ctx, now)
	}
	if err := e.flusher.Flush(ctx); err != nil {
		e.logErr("final-flush", err)
	}
}

// ApplyNewsShock injects an exogenous price shock and persists any
// forced regime transition.
func (e *Engine) ApplyNewsShock(ctx context.Context, ticker string, impact float64) error {
	now := time.Now().UTC()
	tr, forced, err := e.process.ApplyNewsShock(ticker, impact, now)
	if err != nil {
		return err
	}
	if forced {
		e.persistTransition(ctx, tr)
	}
	return nil
}

func (e *Engine) step(ctx context.Context, now time.Time) {
	start := time.Now()

	if tr, ok := e.regimes.Step(now); ok {
		e.persistTransition(ctx, tr)
	}

	ticks := e.process.Tick(now)

	e.flusher.Add(e.prices.Rows(now), e.candles.Drain())
	flushStart := time.Now()
	if err := e.flusher.MaybeFlush(ctx); err != nil {
		e.metrics.IncStorageError()
		e.logErr("flush", err)
	}
	e.metrics.ObserveFlush(time.Since(flushStart))

	if err := e.queue.PublishTicks(ticks); err != nil {
		if err == bus.ErrQueueClosed {
			e.metrics.IncQueueClosed()
		} else {
			e.metrics.IncQueueDrop()
		}
	}

	if err := e.borrow.Accrue(ctx, now); err != nil {
		e.metrics.IncStorageError()
		e.logErr("borrow", err)
	}

	matchStart := time.Now()
	if err := e.matcher.Run(ctx, now); err != nil {
		e.metrics.IncStorageError()
		e.logErr("match", err)
	}
	e.metrics.ObserveMatch(time.Since(matchStart))

	if err := e.margin.Check(ctx, now); err != nil {
		e.metrics.IncStorageError()
		e.logErr("margin", err)
	}

	e.metrics.IncTick()
	e.metrics.ObserveTick(time.Since(start))
}

// restore loads persisted price rows and the active regime before the
// first tick. Missing rows are normal on a fresh database.
func (e *Engine) restore(ctx context.Context) {
	rows, err := e.gw.LoadPrices(ctx)
	if err != nil {
		e.logErr("restore-prices", err)
	} else if len(rows) > 0 {
		e.prices.Restore(rows)
		logs.Infof("restored %d price rows", len(rows))
	}

	now := time.Now().UTC()
	rec, err := e.gw.ActiveRegime(ctx)
	switch {
	case err == nil:
		e.regimes.Restore(rec.Regime, rec.StartedAt, now)
		logs.Infof("restored regime %s", rec.Regime)
	default:
		if err := e.gw.AppendRegime(ctx, &model.RegimeRecord{
			Regime:    e.regimes.Active(),
			StartedAt: now,
		}); err != nil {
			e.logErr("restore-regime", err)
		}
	}
}

func (e *Engine) persistTransition(ctx context.Context, tr market.Transition) {
	if err := e.gw.CloseActiveRegimes(ctx, tr.At); err != nil {
		e.metrics.IncStorageError()
		e.logErr("regime-close", err)
		return
	}
	if err := e.gw.AppendRegime(ctx, &model.RegimeRecord{
		Regime:    tr.To,
		StartedAt: tr.At,
	}); err != nil {
		e.metrics.IncStorageError()
		e.logErr("regime-append", err)
		return
	}
	logs.Infof("regime transition: %s -> %s", tr.From, tr.To)
}

func (e *Engine) shutdown(ctx context.Context) error {
	e.queue.Close()
	if err := e.flusher.Flush(ctx); err != nil {
		e.logErr("final-flush", err)
	}

	snap := e.metrics.Snapshot()
	logs.Infof("engine stopped: ticks=%d skipped=%d fills=%d margin_calls=%d queue_drops=%d storage_errors=%d tick_avg=%s",
		snap.Ticks, snap.SkippedTicks, snap.Fills, snap.MarginCalls,
		snap.QueueDrops, snap.StorageErrors, snap.TickLatency.Avg)
	return nil
}

// logErr logs one error per key per window so a storage outage does not
// produce a log line per order per tick.
func (e *Engine) logErr(key string, err error) {
	if e.limiter.Allow(key) {
		logs.Errorf("%s: %+v", key, err)
	}
}

// fillPublisher bridges the executor to the event queue.
type fillPublisher struct {
	queue   *bus.Queue
	metrics *obs.Metrics
}

func (p *fillPublisher) PublishFill(fill model.FillEvent) {
	p.metrics.IncFill()
	if err := p.queue.PublishFill(fill); err != nil {
		if err == bus.ErrQueueClosed {
			p.metrics.IncQueueClosed()
		} else {
			p.metrics.IncQueueDrop()
		}
	}
}
