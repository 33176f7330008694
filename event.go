package eventflow

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var now = time.Now

// Event is a domain event describing a fact that has happened to an
// aggregate. Events are immutable once decided.
type Event interface {
	// EventType returns the type tag of the event, used for persistence
	// tagging and for routing by consumers.
	EventType() string

	// EventVersion returns the schema version of the event payload.
	EventVersion() string

	// EventID returns the unique identifier of the event. It doubles as the
	// per-aggregate sequence token: identifiers are monotonically increasing
	// and lexically sortable, so sorting by EventID yields replay order.
	EventID() string
}

// Envelope wraps a domain event with the routing and audit metadata needed
// to persist and relay it.
//
// Sequence is copied from the event's EventID. For a given AggregateID,
// sequence tokens are strictly increasing and define total replay order.
type Envelope[E Event] struct {
	// AggregateID is the id of the aggregate instance.
	AggregateID string
	// AggregateType is the type tag of the aggregate instance.
	AggregateType string
	// Sequence is the per-aggregate ordering token.
	Sequence string
	// Event is the payload with all business information.
	Event E
	// Metadata carries free-form audit/trace key-value pairs.
	Metadata map[string]string
	// Timestamp records when the event was committed.
	Timestamp time.Time
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a new ULID string. IDs produced by successive calls are
// strictly increasing, which makes them usable as both event identifiers
// and sequence tokens.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now()), entropy).String()
}
