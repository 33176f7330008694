package eventflow

// EventBus is the transport port for publishing committed events to
// subscribers.
//
// Delivery follows work-queue semantics: each event reaches exactly one
// receiver reading the channel, not every reader. Callers needing fan-out
// must run a single dedicated dispatcher that consumes ReceiveEvents and
// re-publishes.
type EventBus[E Event] interface {
	// SendEvent enqueues one event without blocking. It fails with
	// ErrBusSaturated when the transport cannot accept the event and with
	// ErrBusClosed after the bus has shut down.
	SendEvent(event Envelope[E]) error

	// ReceiveEvents returns the receiving end of the bus: a lazy,
	// potentially unbounded sequence of published events.
	ReceiveEvents() <-chan Envelope[E]
}
