package eventflow

import "context"

// Command is a transient request to change an aggregate. Commands are never
// persisted; only the events they decide are.
type Command interface {
	// CommandName returns the name of the command variant, used by state
	// machine conditions and error reporting.
	CommandName() string
}

// Aggregate is the contract a business entity implements to participate in
// the event-sourcing protocol.
//
// A is the concrete aggregate type itself, S the injected services
// (capability set consulted during decisions), C the command union and E the
// event union of the aggregate kind.
//
// Lifecycle: default-construct, hydrate (optional snapshot plus trailing
// events through Apply), decide through Handle, fold the decided events back
// in through Apply, optionally Snapshot, discard. State is never kept
// resident between commands; every command re-hydrates from storage.
type Aggregate[A, S any, C Command, E Event] interface {
	// AggregateType returns the static type tag, constant per aggregate kind.
	AggregateType() string

	// AggregateID returns the identifier once known, or "" before the
	// entity exists.
	AggregateID() string

	// Handle decides which events a command produces. It is a pure decision
	// step: it must not mutate the receiver and must not perform storage
	// I/O. It may consult the injected services for validation lookups.
	//
	// Returns a *TransitionFailedError when no state machine transition
	// fires for the command in the current derived state, or a domain error
	// when business rules reject it.
	Handle(ctx context.Context, command C, services S) ([]E, error)

	// Apply folds an event into the aggregate state. It is deterministic,
	// total over all event variants and never fails.
	Apply(event E)

	// Snapshot returns a snapshot of the current state when the aggregate's
	// snapshot policy is due, reporting false otherwise.
	Snapshot() (*Snapshot[A], bool)
}
