package eventflow

import (
	"testing"
)

func TestJSONCodec_RoundTrip(t *testing.T) {
	codec := NewJSONCodec[testEvent](func() testEvent { return testEvent{} })

	original := testEvent{ID: "01SEQ", Agg: "agg-1", Val: "hello"}
	data, err := codec.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := codec.Unmarshal(original.EventType(), data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != original {
		t.Fatalf("expected %+v, got %+v", original, decoded)
	}
}

func TestJSONCodec_UnknownEventType(t *testing.T) {
	codec := NewJSONCodec[testEvent](func() testEvent { return testEvent{} })

	if _, err := codec.Unmarshal("does.not.exist", []byte(`{}`)); err == nil {
		t.Fatalf("expected error for unregistered event type")
	}
}

func TestJSONCodec_DuplicateRegistrationPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate registration")
		}
	}()
	NewJSONCodec[testEvent](
		func() testEvent { return testEvent{} },
		func() testEvent { return testEvent{} },
	)
}

func TestJSONCodec_NilFactoryPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on nil factory")
		}
	}()
	NewJSONCodec[testEvent](nil)
}

func TestNewID_Monotonic(t *testing.T) {
	prev := NewID()
	for i := 0; i < 1000; i++ {
		next := NewID()
		if next <= prev {
			t.Fatalf("expected strictly increasing ids, got %q after %q", next, prev)
		}
		prev = next
	}
}
