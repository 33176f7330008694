package eventflow

import "context"

// EventStore is the durable append-only log of one aggregate kind.
type EventStore[E Event] interface {
	// StoreEvents durably appends each envelope to the event log and, in
	// the same atomic unit per event, appends a copy to the outbox.
	//
	// Each event's log-append and outbox-append pair is its own
	// transaction: a multi-event batch is NOT all-or-nothing across events.
	// Partial failure across the batch is reported as a single error.
	//
	// StoreEvents performs no expected-sequence check: two concurrent
	// commands on one aggregate can both hydrate from the same prior state
	// and both append. Callers needing single-writer semantics must add an
	// external serialization point.
	StoreEvents(ctx context.Context, events []Envelope[E]) error

	// RetrieveEvents returns the envelopes for an aggregate ordered by
	// sequence ascending. When after is non-empty only events with a
	// sequence strictly greater are returned, enabling snapshot-resumed
	// replay. An unknown aggregate id yields an empty slice, not an error.
	RetrieveEvents(ctx context.Context, aggregateID, after string) ([]Envelope[E], error)
}

// SnapshotStore persists materialized aggregate state.
type SnapshotStore[A any] interface {
	// StoreSnapshot persists a snapshot. Failures here are non-fatal to
	// command completion; callers log and move on.
	StoreSnapshot(ctx context.Context, snapshot Snapshot[A]) error

	// RetrieveLatestSnapshot returns the snapshot with the highest snapshot
	// id for the aggregate, or nil if none exists.
	RetrieveLatestSnapshot(ctx context.Context, aggregateID string) (*Snapshot[A], error)
}

// OutboxStore is the bookkeeping side of the transactional outbox.
type OutboxStore[E Event] interface {
	// RetrieveOutboxEvents returns all currently pending outbox rows in
	// insertion order.
	RetrieveOutboxEvents(ctx context.Context) ([]Envelope[E], error)

	// SendAndDeleteOutboxEvent publishes one event via the given bus and
	// deletes its outbox row, the delete scoped to one storage transaction.
	// If the publish fails the row is not deleted and remains eligible for
	// retry; if the delete fails after a successful publish the transaction
	// is rolled back and the row also remains. Downstream consumers must
	// therefore tolerate duplicates (at-least-once delivery).
	SendAndDeleteOutboxEvent(ctx context.Context, event Envelope[E], bus EventBus[E]) error
}

// Repository is the full storage port for one aggregate kind: event log,
// snapshots and outbox. Any backend satisfying the contract is substitutable
// without touching the engine.
type Repository[A any, E Event] interface {
	EventStore[E]
	SnapshotStore[A]
	OutboxStore[E]
}
