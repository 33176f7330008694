package fixtures

import (
	"sync"

	"github.com/terraskye/eventflow"
)

// EventBusSpy is a configurable mock EventBus for testing. Sent events are
// recorded and forwarded to a buffered channel so tests can assert on both.
type EventBusSpy[E eventflow.Event] struct {
	mu sync.Mutex

	// Function overrides
	SendEventFn func(event eventflow.Envelope[E]) error

	// Call tracking
	SendEventCalls int

	// Captured sends
	SentEvents []eventflow.Envelope[E]

	// Error injection
	sendErr error

	events chan eventflow.Envelope[E]
}

// NewEventBusSpy creates a new EventBusSpy with room for bufferSize events.
func NewEventBusSpy[E eventflow.Event](bufferSize int) *EventBusSpy[E] {
	return &EventBusSpy[E]{
		events: make(chan eventflow.Envelope[E], bufferSize),
	}
}

// FailOnSend configures SendEvent to return an error.
func (b *EventBusSpy[E]) FailOnSend(err error) *EventBusSpy[E] {
	b.sendErr = err
	return b
}

func (b *EventBusSpy[E]) SendEvent(event eventflow.Envelope[E]) error {
	b.mu.Lock()
	b.SendEventCalls++
	b.mu.Unlock()

	if b.SendEventFn != nil {
		return b.SendEventFn(event)
	}
	if b.sendErr != nil {
		return b.sendErr
	}

	b.mu.Lock()
	b.SentEvents = append(b.SentEvents, event)
	b.mu.Unlock()

	select {
	case b.events <- event:
		return nil
	default:
		return eventflow.ErrBusSaturated
	}
}

func (b *EventBusSpy[E]) ReceiveEvents() <-chan eventflow.Envelope[E] {
	return b.events
}

// Sent returns a copy of the events recorded so far.
func (b *EventBusSpy[E]) Sent() []eventflow.Envelope[E] {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]eventflow.Envelope[E], len(b.SentEvents))
	copy(out, b.SentEvents)
	return out
}
