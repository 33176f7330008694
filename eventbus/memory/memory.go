// Package memory provides an in-process channel-backed event bus with
// work-queue delivery: each published event is consumed by exactly one
// receiver.
package memory

import (
	"sync"

	"github.com/terraskye/eventflow"
)

// Bus is a multi-producer bounded queue. SendEvent never blocks; it fails
// when the buffer is full or the bus is closed. All callers of
// ReceiveEvents share one underlying channel, so fan-out requires a single
// dedicated dispatcher.
type Bus[E eventflow.Event] struct {
	mu     sync.RWMutex
	events chan eventflow.Envelope[E]
	closed bool
}

// NewBus constructs a bus with the given buffer size.
func NewBus[E eventflow.Event](bufferSize int) *Bus[E] {
	return &Bus[E]{
		events: make(chan eventflow.Envelope[E], bufferSize),
	}
}

// SendEvent enqueues one event without blocking.
func (b *Bus[E]) SendEvent(event eventflow.Envelope[E]) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return eventflow.ErrBusClosed
	}
	select {
	case b.events <- event:
		return nil
	default:
		return eventflow.ErrBusSaturated
	}
}

// ReceiveEvents returns the shared receiving channel. The channel is closed
// when the bus is closed; events buffered before Close are still delivered.
func (b *Bus[E]) ReceiveEvents() <-chan eventflow.Envelope[E] {
	return b.events
}

// Close shuts down the bus. Close is idempotent; sends after Close fail
// with ErrBusClosed.
func (b *Bus[E]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	close(b.events)
	return nil
}
