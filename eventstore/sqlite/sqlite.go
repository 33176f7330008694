// Package sqlite provides a Repository backed by SQLite through
// database/sql and the pure-Go modernc driver.
//
// Three tables hold the persisted schema: events (the append-only log),
// snapshots, and outbox_events (one row per committed, not-yet-published
// event, deleted on successful relay).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/terraskye/eventflow"
	_ "modernc.org/sqlite"
)

const (
	eventTable    = "events"
	snapshotTable = "snapshots"
	outboxTable   = "outbox_events"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	sequence       TEXT NOT NULL PRIMARY KEY,
	event_type     TEXT NOT NULL,
	event_version  TEXT NOT NULL,
	payload        TEXT NOT NULL,
	metadata       TEXT NOT NULL,
	timestamp      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_aggregate ON events (aggregate_id, sequence);

CREATE TABLE IF NOT EXISTS snapshots (
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	payload        TEXT NOT NULL,
	last_sequence  TEXT NOT NULL,
	snapshot_id    TEXT NOT NULL PRIMARY KEY,
	timestamp      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_aggregate ON snapshots (aggregate_id, snapshot_id);

CREATE TABLE IF NOT EXISTS outbox_events (
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	sequence       TEXT NOT NULL PRIMARY KEY,
	event_type     TEXT NOT NULL,
	event_version  TEXT NOT NULL,
	payload        TEXT NOT NULL,
	metadata       TEXT NOT NULL,
	timestamp      TEXT NOT NULL
);
`

// Store implements eventflow.Repository on a shared *sql.DB handle. The
// handle is obtained once at startup and reused by every component that
// needs persistence; the store never closes it.
type Store[A any, E eventflow.Event] struct {
	db       *sql.DB
	codec    eventflow.Codec[E]
	newState func() A
}

// Open opens (creating if needed) a SQLite database at path and returns a
// store over it.
func Open[A any, E eventflow.Event](path string, codec eventflow.Codec[E], newState func() A) (*Store[A, E], *sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite database %q: %w", path, err)
	}
	store, err := NewStore[A, E](db, codec, newState)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

// NewStore wraps an existing database handle, creating the schema if it
// does not exist yet.
func NewStore[A any, E eventflow.Event](db *sql.DB, codec eventflow.Codec[E], newState func() A) (*Store[A, E], error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store[A, E]{db: db, codec: codec, newState: newState}, nil
}

// StoreEvents appends each envelope to the event log and its copy to the
// outbox inside one transaction per event. The batch is not atomic across
// events; failures are collected and reported as one error.
func (s *Store[A, E]) StoreEvents(ctx context.Context, events []eventflow.Envelope[E]) error {
	var errs []error
	for _, envelope := range events {
		if err := s.storeEvent(ctx, envelope); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store[A, E]) storeEvent(ctx context.Context, envelope eventflow.Envelope[E]) error {
	payload, err := s.codec.Marshal(envelope.Event)
	if err != nil {
		return fmt.Errorf("encode event %q: %w", envelope.Sequence, err)
	}
	metadata, err := json.Marshal(envelope.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata for event %q: %w", envelope.Sequence, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	args := []any{
		envelope.AggregateType,
		envelope.AggregateID,
		envelope.Sequence,
		envelope.Event.EventType(),
		envelope.Event.EventVersion(),
		string(payload),
		string(metadata),
		envelope.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	const columns = "(aggregate_type, aggregate_id, sequence, event_type, event_version, payload, metadata, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"

	if _, err := tx.ExecContext(ctx, "INSERT INTO "+eventTable+" "+columns, args...); err != nil {
		return fmt.Errorf("append event %q: %w", envelope.Sequence, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO "+outboxTable+" "+columns, args...); err != nil {
		return fmt.Errorf("append outbox copy of event %q: %w", envelope.Sequence, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event %q: %w", envelope.Sequence, err)
	}
	return nil
}

func (s *Store[A, E]) RetrieveEvents(ctx context.Context, aggregateID, after string) ([]eventflow.Envelope[E], error) {
	query := "SELECT aggregate_type, aggregate_id, sequence, event_type, payload, metadata, timestamp FROM " +
		eventTable + " WHERE aggregate_id = ?"
	args := []any{aggregateID}
	if after != "" {
		query += " AND sequence > ?"
		args = append(args, after)
	}
	query += " ORDER BY sequence ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load events for aggregate %q: %w", aggregateID, err)
	}
	defer rows.Close()
	return s.scanEnvelopes(rows)
}

func (s *Store[A, E]) RetrieveOutboxEvents(ctx context.Context) ([]eventflow.Envelope[E], error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT aggregate_type, aggregate_id, sequence, event_type, payload, metadata, timestamp FROM "+
			outboxTable+" ORDER BY sequence ASC")
	if err != nil {
		return nil, fmt.Errorf("load outbox events: %w", err)
	}
	defer rows.Close()
	return s.scanEnvelopes(rows)
}

func (s *Store[A, E]) scanEnvelopes(rows *sql.Rows) ([]eventflow.Envelope[E], error) {
	var results []eventflow.Envelope[E]
	for rows.Next() {
		var (
			envelope  eventflow.Envelope[E]
			eventType string
			payload   string
			metadata  string
			timestamp string
		)
		if err := rows.Scan(&envelope.AggregateType, &envelope.AggregateID, &envelope.Sequence,
			&eventType, &payload, &metadata, &timestamp); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		event, err := s.codec.Unmarshal(eventType, []byte(payload))
		if err != nil {
			return nil, err
		}
		envelope.Event = event
		if err := json.Unmarshal([]byte(metadata), &envelope.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for event %q: %w", envelope.Sequence, err)
		}
		if envelope.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
			return nil, fmt.Errorf("parse timestamp for event %q: %w", envelope.Sequence, err)
		}
		results = append(results, envelope)
	}
	return results, rows.Err()
}

func (s *Store[A, E]) StoreSnapshot(ctx context.Context, snapshot eventflow.Snapshot[A]) error {
	payload, err := json.Marshal(snapshot.State)
	if err != nil {
		return fmt.Errorf("encode snapshot %q: %w", snapshot.SnapshotID, err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO "+snapshotTable+" (aggregate_type, aggregate_id, payload, last_sequence, snapshot_id, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		snapshot.AggregateType,
		snapshot.AggregateID,
		string(payload),
		snapshot.LastSequence,
		snapshot.SnapshotID,
		snapshot.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store snapshot %q: %w", snapshot.SnapshotID, err)
	}
	return nil
}

func (s *Store[A, E]) RetrieveLatestSnapshot(ctx context.Context, aggregateID string) (*eventflow.Snapshot[A], error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT aggregate_type, aggregate_id, payload, last_sequence, snapshot_id, timestamp FROM "+
			snapshotTable+" WHERE aggregate_id = ? ORDER BY snapshot_id DESC LIMIT 1",
		aggregateID)

	var (
		snapshot  eventflow.Snapshot[A]
		payload   string
		timestamp string
	)
	err := row.Scan(&snapshot.AggregateType, &snapshot.AggregateID, &payload,
		&snapshot.LastSequence, &snapshot.SnapshotID, &timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot for aggregate %q: %w", aggregateID, err)
	}

	state := s.newState()
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return nil, fmt.Errorf("decode snapshot %q: %w", snapshot.SnapshotID, err)
	}
	snapshot.State = state
	if snapshot.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
		return nil, fmt.Errorf("parse timestamp for snapshot %q: %w", snapshot.SnapshotID, err)
	}
	return &snapshot, nil
}

// SendAndDeleteOutboxEvent publishes the event and deletes its outbox row,
// the delete scoped to one transaction. A failed publish leaves the row in
// place; a failed delete rolls back, so the event will be retried and
// downstream consumers may see duplicates.
func (s *Store[A, E]) SendAndDeleteOutboxEvent(ctx context.Context, event eventflow.Envelope[E], bus eventflow.EventBus[E]) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := bus.SendEvent(event); err != nil {
		return fmt.Errorf("publish outbox event %q: %w", event.Sequence, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+outboxTable+" WHERE sequence = ?", event.Sequence); err != nil {
		return fmt.Errorf("delete outbox event %q: %w", event.Sequence, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outbox delete %q: %w", event.Sequence, err)
	}
	return nil
}
