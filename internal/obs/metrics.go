package obs

import (
	"sync/atomic"
	"time"
)

// Metrics collects lightweight counters and latency stats for the tick
// loop. All methods are safe on a nil receiver so callers never guard.
type Metrics struct {
	ticks         uint64
	skippedTicks  uint64
	fills         uint64
	cancels       uint64
	marginCalls   uint64
	queueDrops    uint64
	queueClosed   uint64
	storageErrors uint64

	tickLatency  LatencyStats
	matchLatency LatencyStats
	flushLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Ticks         uint64
	SkippedTicks  uint64
	Fills         uint64
	Cancels       uint64
	MarginCalls   uint64
	QueueDrops    uint64
	QueueClosed   uint64
	StorageErrors uint64
	TickLatency   LatencySnapshot
	MatchLatency  LatencySnapshot
	FlushLatency  LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncTick records one completed simulation step.
func (m *Metrics) IncTick() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.ticks, 1)
}

// IncSkippedTick records a step skipped because the prior one overran.
func (m *Metrics) IncSkippedTick() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.skippedTicks, 1)
}

// IncFill records one executed fill.
func (m *Metrics) IncFill() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.fills, 1)
}

// IncCancel records one cancelled order.
func (m *Metrics) IncCancel() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.cancels, 1)
}

// IncMarginCall records one forced liquidation sweep.
func (m *Metrics) IncMarginCall() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.marginCalls, 1)
}

// IncQueueDrop records an event dropped by a full queue.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a closed-queue publish attempt.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// IncStorageError records a failed storage round trip.
func (m *Metrics) IncStorageError() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.storageErrors, 1)
}

// ObserveTick measures one full simulation step.
func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.tickLatency.Observe(d)
}

// ObserveMatch measures one open-order matching pass.
func (m *Metrics) ObserveMatch(d time.Duration) {
	if m == nil {
		return
	}
	m.matchLatency.Observe(d)
}

// ObserveFlush measures one persistence flush.
func (m *Metrics) ObserveFlush(d time.Duration) {
	if m == nil {
		return
	}
	m.flushLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		Ticks:         atomic.LoadUint64(&m.ticks),
		SkippedTicks:  atomic.LoadUint64(&m.skippedTicks),
		Fills:         atomic.LoadUint64(&m.fills),
		Cancels:       atomic.LoadUint64(&m.cancels),
		MarginCalls:   atomic.LoadUint64(&m.marginCalls),
		QueueDrops:    atomic.LoadUint64(&m.queueDrops),
		QueueClosed:   atomic.LoadUint64(&m.queueClosed),
		StorageErrors: atomic.LoadUint64(&m.storageErrors),
		TickLatency:   m.tickLatency.Snapshot(),
		MatchLatency:  m.matchLatency.Snapshot(),
		FlushLatency:  m.flushLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
