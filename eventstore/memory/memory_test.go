package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/terraskye/eventflow"
	"github.com/terraskye/eventflow/fixtures"
)

type storeEvent struct {
	ID  string `json:"event_id"`
	Val string `json:"val"`
}

func (e storeEvent) EventType() string    { return "store.event" }
func (e storeEvent) EventVersion() string { return "0.0.1" }
func (e storeEvent) EventID() string      { return e.ID }

type storeState struct {
	Vals []string `json:"vals"`
}

func newState() *storeState { return &storeState{} }

func envelope(aggregateID, sequence, val string) eventflow.Envelope[storeEvent] {
	return eventflow.Envelope[storeEvent]{
		AggregateID:   aggregateID,
		AggregateType: "test",
		Sequence:      sequence,
		Event:         storeEvent{ID: sequence, Val: val},
		Metadata:      map[string]string{"command_id": "cmd-1"},
		Timestamp:     time.Now(),
	}
}

func TestStoreAndRetrieveEvents(t *testing.T) {
	store := NewStore[*storeState, storeEvent](newState)
	ctx := context.Background()

	err := store.StoreEvents(ctx, []eventflow.Envelope[storeEvent]{
		envelope("agg-1", "02SEQ", "b"),
		envelope("agg-1", "01SEQ", "a"),
		envelope("agg-2", "03SEQ", "c"),
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	events, err := store.RetrieveEvents(ctx, "agg-1", "")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for agg-1, got %d", len(events))
	}
	if events[0].Sequence != "01SEQ" || events[1].Sequence != "02SEQ" {
		t.Fatalf("expected ascending sequence order, got %q then %q", events[0].Sequence, events[1].Sequence)
	}
}

func TestRetrieveEventsAfterSequence(t *testing.T) {
	store := NewStore[*storeState, storeEvent](newState)
	ctx := context.Background()

	err := store.StoreEvents(ctx, []eventflow.Envelope[storeEvent]{
		envelope("agg-1", "01SEQ", "a"),
		envelope("agg-1", "02SEQ", "b"),
		envelope("agg-1", "03SEQ", "c"),
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	events, err := store.RetrieveEvents(ctx, "agg-1", "01SEQ")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events after 01SEQ, got %d", len(events))
	}
	if events[0].Sequence != "02SEQ" {
		t.Fatalf("expected first event 02SEQ, got %q", events[0].Sequence)
	}
}

func TestSnapshotLatestWins(t *testing.T) {
	store := NewStore[*storeState, storeEvent](newState)
	ctx := context.Background()

	first := eventflow.Snapshot[*storeState]{
		AggregateID:  "agg-1",
		State:        &storeState{Vals: []string{"a"}},
		LastSequence: "01SEQ",
		SnapshotID:   "01SNAP",
	}
	second := eventflow.Snapshot[*storeState]{
		AggregateID:  "agg-1",
		State:        &storeState{Vals: []string{"a", "b"}},
		LastSequence: "02SEQ",
		SnapshotID:   "02SNAP",
	}
	if err := store.StoreSnapshot(ctx, second); err != nil {
		t.Fatalf("store snapshot: %v", err)
	}
	if err := store.StoreSnapshot(ctx, first); err != nil {
		t.Fatalf("store snapshot: %v", err)
	}

	latest, err := store.RetrieveLatestSnapshot(ctx, "agg-1")
	if err != nil {
		t.Fatalf("retrieve snapshot: %v", err)
	}
	if latest == nil || latest.SnapshotID != "02SNAP" {
		t.Fatalf("expected latest snapshot 02SNAP, got %+v", latest)
	}
	if len(latest.State.Vals) != 2 {
		t.Fatalf("expected restored state with 2 vals, got %+v", latest.State)
	}
}

func TestSnapshotStateIsIsolated(t *testing.T) {
	store := NewStore[*storeState, storeEvent](newState)
	ctx := context.Background()

	state := &storeState{Vals: []string{"a"}}
	snapshot := eventflow.Snapshot[*storeState]{
		AggregateID: "agg-1",
		State:       state,
		SnapshotID:  "01SNAP",
	}
	if err := store.StoreSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("store snapshot: %v", err)
	}

	// Mutating the original or a restored copy must not leak into the store.
	state.Vals = append(state.Vals, "mutated")
	restored, err := store.RetrieveLatestSnapshot(ctx, "agg-1")
	if err != nil {
		t.Fatalf("retrieve snapshot: %v", err)
	}
	restored.State.Vals = append(restored.State.Vals, "also mutated")

	again, err := store.RetrieveLatestSnapshot(ctx, "agg-1")
	if err != nil {
		t.Fatalf("retrieve snapshot: %v", err)
	}
	if len(again.State.Vals) != 1 || again.State.Vals[0] != "a" {
		t.Fatalf("expected stored snapshot unaffected by caller mutation, got %+v", again.State)
	}
}

func TestNoSnapshotReturnsNil(t *testing.T) {
	store := NewStore[*storeState, storeEvent](newState)

	snapshot, err := store.RetrieveLatestSnapshot(context.Background(), "missing")
	if err != nil {
		t.Fatalf("retrieve snapshot: %v", err)
	}
	if snapshot != nil {
		t.Fatalf("expected nil snapshot for unknown aggregate, got %+v", snapshot)
	}
}

func TestOutboxSendAndDelete(t *testing.T) {
	store := NewStore[*storeState, storeEvent](newState)
	ctx := context.Background()

	err := store.StoreEvents(ctx, []eventflow.Envelope[storeEvent]{
		envelope("agg-1", "01SEQ", "a"),
		envelope("agg-1", "02SEQ", "b"),
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	pending, err := store.RetrieveOutboxEvents(ctx)
	if err != nil {
		t.Fatalf("retrieve outbox: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending rows, got %d", len(pending))
	}

	bus := fixtures.NewEventBusSpy[storeEvent](4)
	if err := store.SendAndDeleteOutboxEvent(ctx, pending[0], bus); err != nil {
		t.Fatalf("send and delete: %v", err)
	}

	remaining, err := store.RetrieveOutboxEvents(ctx)
	if err != nil {
		t.Fatalf("retrieve outbox: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Sequence != "02SEQ" {
		t.Fatalf("expected only 02SEQ to remain, got %+v", remaining)
	}
	if len(bus.Sent()) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(bus.Sent()))
	}
}

func TestOutboxRetainedOnPublishFailure(t *testing.T) {
	store := NewStore[*storeState, storeEvent](newState)
	ctx := context.Background()

	if err := store.StoreEvents(ctx, []eventflow.Envelope[storeEvent]{envelope("agg-1", "01SEQ", "a")}); err != nil {
		t.Fatalf("store: %v", err)
	}

	bus := fixtures.NewEventBusSpy[storeEvent](4).FailOnSend(errors.New("broker unavailable"))
	pending, _ := store.RetrieveOutboxEvents(ctx)
	if err := store.SendAndDeleteOutboxEvent(ctx, pending[0], bus); err == nil {
		t.Fatalf("expected publish failure to propagate")
	}

	remaining, err := store.RetrieveOutboxEvents(ctx)
	if err != nil {
		t.Fatalf("retrieve outbox: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected failed row to remain, got %d rows", len(remaining))
	}
}
