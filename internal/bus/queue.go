package bus

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/Daboss57/wallstreet-sub000/internal/model"
)

var (
	ErrQueueFull   = errors.New("event queue full")
	ErrQueueClosed = errors.New("event queue closed")
)

// EventType discriminates the payload carried by an Event.
type EventType uint8

const (
	EventTick EventType = iota + 1
	EventFill
)

// Event is the unit passed through the in-memory bus. Ticks arrive as a
// whole batch per simulation step; fills are published one at a time.
type Event struct {
	Type  EventType
	Ticks []model.TickEvent
	Fill  model.FillEvent
}

// Queue is a bounded, non-blocking event queue. Slow consumers drop
// events rather than stall the tick loop.
type Queue struct {
	ch     chan Event
	closed uint32
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan Event, capacity)}
}

// TryPublish enqueues an event without blocking.
func (q *Queue) TryPublish(e Event) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// PublishTicks enqueues one tick batch.
func (q *Queue) PublishTicks(ticks []model.TickEvent) error {
	return q.TryPublish(Event{Type: EventTick, Ticks: ticks})
}

// PublishFill enqueues one fill event.
func (q *Queue) PublishFill(fill model.FillEvent) error {
	return q.TryPublish(Event{Type: EventFill, Fill: fill})
}

// Close stops the queue from accepting new events.
func (q *Queue) Close() {
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.ch)
	}
}

// Run consumes events until the context is done or the queue is closed.
func (q *Queue) Run(ctx context.Context, handler func(Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-q.ch:
			if !ok {
				return
			}
			handler(e)
		}
	}
}
