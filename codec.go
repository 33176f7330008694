package eventflow

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Codec translates event payloads to and from their persisted form. Storage
// adapters use it to round-trip the tagged event union of one aggregate
// kind.
type Codec[E Event] interface {
	Marshal(event E) ([]byte, error)
	Unmarshal(eventType string, data []byte) (E, error)
}

// JSONCodec encodes events as JSON and decodes them by looking up a factory
// registered for the persisted event type tag.
type JSONCodec[E Event] struct {
	factories map[string]func() E
}

// NewJSONCodec builds a codec from event factories. Each factory must
// return a new instance of one concrete event variant; the variant is
// registered under its EventType.
//
// Panics on a nil factory or a duplicate event type, mirroring registration
// programming errors at startup rather than at decode time.
func NewJSONCodec[E Event](factories ...func() E) *JSONCodec[E] {
	m := make(map[string]func() E, len(factories))
	for _, fn := range factories {
		if fn == nil {
			panic("eventflow: cannot register nil event factory")
		}
		name := fn().EventType()
		if _, exists := m[name]; exists {
			panic(fmt.Sprintf("eventflow: event already registered: %s", name))
		}
		m[name] = fn
	}
	return &JSONCodec[E]{factories: m}
}

func (c *JSONCodec[E]) Marshal(event E) ([]byte, error) {
	return json.Marshal(event)
}

func (c *JSONCodec[E]) Unmarshal(eventType string, data []byte) (E, error) {
	var zero E
	fn, ok := c.factories[eventType]
	if !ok {
		return zero, fmt.Errorf("event not registered: %s", eventType)
	}
	// Decode into a fresh addressable instance of the concrete variant.
	rv := reflect.New(reflect.TypeOf(fn()))
	if err := json.Unmarshal(data, rv.Interface()); err != nil {
		return zero, fmt.Errorf("unmarshal event %s: %w", eventType, err)
	}
	event, ok := rv.Elem().Interface().(E)
	if !ok {
		return zero, fmt.Errorf("event %s does not implement the event union", eventType)
	}
	return event, nil
}
