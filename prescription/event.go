package prescription

import "github.com/terraskye/eventflow"

// Event is the tagged union of facts that can happen to a prescription.
type Event = eventflow.Event

const eventVersion = "0.0.1"

// PrescriptionCreated records that a prescription came into existence.
type PrescriptionCreated struct {
	ID           string `json:"id"`
	PatientID    string `json:"patient_id"`
	MedicationID string `json:"medication_id"`
	Address      string `json:"address"`
	// Seq is the unique event id, doubling as the sequence token.
	Seq string `json:"event_id"`
}

func (PrescriptionCreated) EventType() string    { return "PrescriptionCreated" }
func (PrescriptionCreated) EventVersion() string { return eventVersion }
func (e PrescriptionCreated) EventID() string    { return e.Seq }

// PrescriptionUpdated records a delivery address change.
type PrescriptionUpdated struct {
	Address string `json:"address"`
	Seq     string `json:"event_id"`
}

func (PrescriptionUpdated) EventType() string    { return "PrescriptionUpdated" }
func (PrescriptionUpdated) EventVersion() string { return eventVersion }
func (e PrescriptionUpdated) EventID() string    { return e.Seq }

// EventCodec returns the codec decoding this aggregate kind's persisted
// event payloads.
func EventCodec() *eventflow.JSONCodec[Event] {
	return eventflow.NewJSONCodec[Event](
		func() Event { return PrescriptionCreated{} },
		func() Event { return PrescriptionUpdated{} },
	)
}
