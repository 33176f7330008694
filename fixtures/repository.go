// Package fixtures provides configurable spies for the engine's ports,
// used in tests to inject behavior and track calls.
package fixtures

import (
	"context"
	"sync"

	"github.com/terraskye/eventflow"
)

// RepositorySpy is a configurable mock Repository for testing. By default
// it behaves like a tiny in-memory store: stored events land in an outbox
// slice, configured history and snapshots are served back, and
// SendAndDeleteOutboxEvent publishes then removes the row.
type RepositorySpy[A any, E eventflow.Event] struct {
	mu sync.Mutex

	// Function overrides
	StoreEventsFn            func(ctx context.Context, events []eventflow.Envelope[E]) error
	RetrieveEventsFn         func(ctx context.Context, aggregateID, after string) ([]eventflow.Envelope[E], error)
	StoreSnapshotFn          func(ctx context.Context, snapshot eventflow.Snapshot[A]) error
	RetrieveLatestSnapshotFn func(ctx context.Context, aggregateID string) (*eventflow.Snapshot[A], error)

	// Call tracking
	StoreEventsCalls   int
	StoreSnapshotCalls int

	// Captured writes
	StoredEvents    []eventflow.Envelope[E]
	StoredSnapshots []eventflow.Snapshot[A]

	// Canned reads
	History  []eventflow.Envelope[E]
	Snapshot *eventflow.Snapshot[A]

	// Error injection
	storeEventsErr   error
	storeSnapshotErr error

	outbox []eventflow.Envelope[E]
}

// NewRepositorySpy creates a new RepositorySpy.
func NewRepositorySpy[A any, E eventflow.Event]() *RepositorySpy[A, E] {
	return &RepositorySpy[A, E]{}
}

// FailOnStoreEvents configures StoreEvents to return an error.
func (r *RepositorySpy[A, E]) FailOnStoreEvents(err error) *RepositorySpy[A, E] {
	r.storeEventsErr = err
	return r
}

// FailOnStoreSnapshot configures StoreSnapshot to return an error.
func (r *RepositorySpy[A, E]) FailOnStoreSnapshot(err error) *RepositorySpy[A, E] {
	r.storeSnapshotErr = err
	return r
}

// WithHistory seeds the envelopes served by RetrieveEvents.
func (r *RepositorySpy[A, E]) WithHistory(events ...eventflow.Envelope[E]) *RepositorySpy[A, E] {
	r.History = append(r.History, events...)
	return r
}

// WithSnapshot seeds the snapshot served by RetrieveLatestSnapshot.
func (r *RepositorySpy[A, E]) WithSnapshot(snapshot *eventflow.Snapshot[A]) *RepositorySpy[A, E] {
	r.Snapshot = snapshot
	return r
}

// WithOutbox seeds pending outbox rows.
func (r *RepositorySpy[A, E]) WithOutbox(events ...eventflow.Envelope[E]) *RepositorySpy[A, E] {
	r.outbox = append(r.outbox, events...)
	return r
}

// Outbox returns the currently pending outbox rows.
func (r *RepositorySpy[A, E]) Outbox() []eventflow.Envelope[E] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]eventflow.Envelope[E], len(r.outbox))
	copy(out, r.outbox)
	return out
}

func (r *RepositorySpy[A, E]) StoreEvents(ctx context.Context, events []eventflow.Envelope[E]) error {
	r.mu.Lock()
	r.StoreEventsCalls++
	r.mu.Unlock()

	if r.StoreEventsFn != nil {
		return r.StoreEventsFn(ctx, events)
	}
	if r.storeEventsErr != nil {
		return r.storeEventsErr
	}

	r.mu.Lock()
	r.StoredEvents = append(r.StoredEvents, events...)
	r.outbox = append(r.outbox, events...)
	r.mu.Unlock()
	return nil
}

func (r *RepositorySpy[A, E]) RetrieveEvents(ctx context.Context, aggregateID, after string) ([]eventflow.Envelope[E], error) {
	if r.RetrieveEventsFn != nil {
		return r.RetrieveEventsFn(ctx, aggregateID, after)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var results []eventflow.Envelope[E]
	for _, envelope := range r.History {
		if envelope.AggregateID != aggregateID {
			continue
		}
		if after != "" && envelope.Sequence <= after {
			continue
		}
		results = append(results, envelope)
	}
	return results, nil
}

func (r *RepositorySpy[A, E]) StoreSnapshot(ctx context.Context, snapshot eventflow.Snapshot[A]) error {
	r.mu.Lock()
	r.StoreSnapshotCalls++
	r.mu.Unlock()

	if r.StoreSnapshotFn != nil {
		return r.StoreSnapshotFn(ctx, snapshot)
	}
	if r.storeSnapshotErr != nil {
		return r.storeSnapshotErr
	}

	r.mu.Lock()
	r.StoredSnapshots = append(r.StoredSnapshots, snapshot)
	r.mu.Unlock()
	return nil
}

func (r *RepositorySpy[A, E]) RetrieveLatestSnapshot(ctx context.Context, aggregateID string) (*eventflow.Snapshot[A], error) {
	if r.RetrieveLatestSnapshotFn != nil {
		return r.RetrieveLatestSnapshotFn(ctx, aggregateID)
	}
	return r.Snapshot, nil
}

func (r *RepositorySpy[A, E]) RetrieveOutboxEvents(ctx context.Context) ([]eventflow.Envelope[E], error) {
	return r.Outbox(), nil
}

func (r *RepositorySpy[A, E]) SendAndDeleteOutboxEvent(ctx context.Context, event eventflow.Envelope[E], bus eventflow.EventBus[E]) error {
	if err := bus.SendEvent(event); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, pending := range r.outbox {
		if pending.Sequence == event.Sequence {
			r.outbox = append(r.outbox[:i], r.outbox[i+1:]...)
			break
		}
	}
	return nil
}
