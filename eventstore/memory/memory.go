// Package memory provides an in-memory Repository, suitable for tests and
// single-process setups where durability is not required.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/terraskye/eventflow"
)

type storedSnapshot struct {
	aggregateID   string
	aggregateType string
	payload       []byte
	lastSequence  string
	snapshotID    string
	timestamp     int64
}

// Store keeps the event log, snapshots and outbox in process memory behind
// one mutex. Snapshot payloads are serialized on write and decoded on read
// so callers never share mutable state with the store, matching the
// behavior of durable backends.
type Store[A any, E eventflow.Event] struct {
	mu        sync.RWMutex
	newState  func() A
	events    map[string][]eventflow.Envelope[E]
	snapshots map[string][]storedSnapshot
	outbox    []eventflow.Envelope[E]
}

// NewStore creates an empty store. newState must return the aggregate
// state's empty default used when decoding snapshots.
func NewStore[A any, E eventflow.Event](newState func() A) *Store[A, E] {
	return &Store[A, E]{
		newState:  newState,
		events:    make(map[string][]eventflow.Envelope[E]),
		snapshots: make(map[string][]storedSnapshot),
	}
}

func (s *Store[A, E]) StoreEvents(ctx context.Context, events []eventflow.Envelope[E]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, envelope := range events {
		s.events[envelope.AggregateID] = append(s.events[envelope.AggregateID], envelope)
		s.outbox = append(s.outbox, envelope)
	}
	return nil
}

func (s *Store[A, E]) RetrieveEvents(ctx context.Context, aggregateID, after string) ([]eventflow.Envelope[E], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []eventflow.Envelope[E]
	for _, envelope := range s.events[aggregateID] {
		if after != "" && envelope.Sequence <= after {
			continue
		}
		results = append(results, envelope)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Sequence < results[j].Sequence
	})
	return results, nil
}

func (s *Store[A, E]) StoreSnapshot(ctx context.Context, snapshot eventflow.Snapshot[A]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(snapshot.State)
	if err != nil {
		return fmt.Errorf("store snapshot for aggregate %q: %w", snapshot.AggregateID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.AggregateID] = append(s.snapshots[snapshot.AggregateID], storedSnapshot{
		aggregateID:   snapshot.AggregateID,
		aggregateType: snapshot.AggregateType,
		payload:       payload,
		lastSequence:  snapshot.LastSequence,
		snapshotID:    snapshot.SnapshotID,
		timestamp:     snapshot.Timestamp.UnixNano(),
	})
	return nil
}

func (s *Store[A, E]) RetrieveLatestSnapshot(ctx context.Context, aggregateID string) (*eventflow.Snapshot[A], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.snapshots[aggregateID]
	if len(stored) == 0 {
		return nil, nil
	}
	latest := stored[0]
	for _, candidate := range stored[1:] {
		if candidate.snapshotID > latest.snapshotID {
			latest = candidate
		}
	}

	state := s.newState()
	if err := json.Unmarshal(latest.payload, &state); err != nil {
		return nil, fmt.Errorf("decode snapshot %q: %w", latest.snapshotID, err)
	}
	return &eventflow.Snapshot[A]{
		AggregateID:   latest.aggregateID,
		AggregateType: latest.aggregateType,
		State:         state,
		LastSequence:  latest.lastSequence,
		SnapshotID:    latest.snapshotID,
	}, nil
}

func (s *Store[A, E]) RetrieveOutboxEvents(ctx context.Context) ([]eventflow.Envelope[E], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]eventflow.Envelope[E], len(s.outbox))
	copy(results, s.outbox)
	return results, nil
}

func (s *Store[A, E]) SendAndDeleteOutboxEvent(ctx context.Context, event eventflow.Envelope[E], bus eventflow.EventBus[E]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := bus.SendEvent(event); err != nil {
		return fmt.Errorf("publish outbox event %q: %w", event.Sequence, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, pending := range s.outbox {
		if pending.Sequence == event.Sequence {
			s.outbox = append(s.outbox[:i], s.outbox[i+1:]...)
			break
		}
	}
	return nil
}
