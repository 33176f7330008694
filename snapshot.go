package eventflow

import "time"

// Snapshot is a materialized aggregate state at a point in time.
//
// Replaying all events with a sequence greater than LastSequence against
// State reconstructs the current aggregate state exactly. Snapshots are a
// performance optimization: losing one is never a correctness problem
// because full replay from the event log remains valid.
type Snapshot[A any] struct {
	// AggregateID is the id of the aggregate instance this snapshot is for.
	AggregateID string
	// AggregateType is the type tag of the aggregate instance.
	AggregateType string
	// State is the full aggregate state payload.
	State A
	// LastSequence is the sequence token of the last event folded into State.
	LastSequence string
	// SnapshotID is the unique id of this snapshot. Like sequence tokens it
	// is lexically sortable, so the highest id is the most recent snapshot.
	SnapshotID string
	// Timestamp records when the snapshot was produced.
	Timestamp time.Time
}
