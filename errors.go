package eventflow

import (
	"errors"
	"fmt"
)

// ErrUnknown is the catch-all surfaced to command callers for storage and
// bus failures, and for the missing-identity guard after apply. Storage
// detail is deliberately not part of the engine's contract surface.
var ErrUnknown = errors.New("unknown error occurred")

// ErrBusSaturated is returned by SendEvent when the transport cannot accept
// another event.
var ErrBusSaturated = errors.New("event bus saturated")

// ErrBusClosed is returned by SendEvent after the bus has been closed.
var ErrBusClosed = errors.New("event bus closed")

// TransitionFailedError is returned by Handle when no state machine
// transition matched the active state, signalling a command that is invalid
// for the aggregate's current lifecycle phase.
type TransitionFailedError struct {
	Command string
}

func (e *TransitionFailedError) Error() string {
	return fmt.Sprintf("state machine failed to emit event for command %q", e.Command)
}
