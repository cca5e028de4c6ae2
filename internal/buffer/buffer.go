package buffer

import (
	"log/slog"
	"sync"

	"github.com/runstream/runstream/internal/event"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 1000

// Buffer is a bounded, concurrency-safe FIFO of events.
type Buffer struct {
	mu  sync.Mutex
	buf []event.Event
	cap int
}

// New creates a Buffer holding at most capacity events.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		buf: make([]event.Event, 0, capacity),
		cap: capacity,
	}
}

// Enqueue appends ev to the buffer. If the buffer is full the oldest event
// is evicted first. Enqueue never blocks and never fails.
func (b *Buffer) Enqueue(ev event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.buf) >= b.cap {
		evicted := b.buf[0]
		b.buf = b.buf[1:]
		slog.Warn("buffer full, evicted oldest event",
			"evicted_kind", evicted.Kind, "capacity", b.cap)
	}
	b.buf = append(b.buf, ev)
}

// Drain returns all buffered events in enqueue order and empties the buffer.
// Draining an empty buffer returns an empty slice.
func (b *Buffer) Drain() []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.buf
	b.buf = make([]event.Event, 0, b.cap)
	return out
}

// Requeue puts events back at the front of the buffer, ahead of anything
// enqueued since the drain. Used when transmission fails mid-drain. If the
// combined length exceeds capacity, the oldest of the requeued events are
// dropped first so the newest capacity-many events survive.
func (b *Buffer) Requeue(events []event.Event) {
	if len(events) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	merged := append(append(make([]event.Event, 0, len(events)+len(b.buf)), events...), b.buf...)
	if drop := len(merged) - b.cap; drop > 0 {
		slog.Warn("buffer full on requeue, dropping oldest events",
			"dropped", drop, "capacity", b.cap)
		merged = merged[drop:]
	}
	b.buf = merged
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Empty reports whether the buffer holds no events.
func (b *Buffer) Empty() bool {
	return b.Len() == 0
}
