package prescription

import (
	"context"
	"time"

	"github.com/terraskye/eventflow"
)

// AggregateType is the static type tag of the prescription aggregate.
const AggregateType = "prescription"

const snapshotThreshold = 10

// Prescription is the aggregate state, derived purely from its event
// history. Commands never mutate it directly; only Apply does.
type Prescription struct {
	ID            string `json:"id"`
	PatientID     string `json:"patient_id"`
	MedicationID  string `json:"medication_id"`
	Address       string `json:"address"`
	LastEventType string `json:"last_event_type"`
	LastEventID   string `json:"last_event_id"`
	AppliedEvents int    `json:"applied_events"`
}

// New returns the fixed empty default every command hydrates from.
func New() *Prescription {
	return &Prescription{}
}

func (p *Prescription) AggregateType() string {
	return AggregateType
}

func (p *Prescription) AggregateID() string {
	return p.ID
}

// Handle decides which events the command produces. A fresh state machine
// is constructed per call, seeded at the state derived from the last applied
// event, and the command is run through one Decide pass; the event set by
// the transition's exit hook is the decision output. The receiver is never
// mutated.
func (p *Prescription) Handle(ctx context.Context, command Command, services Directory) ([]Event, error) {
	if cmd, ok := command.(CreatePrescription); ok && services != nil {
		exists, err := services.MedicationExists(ctx, cmd.MedicationID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, &MedicationNotExistError{MedicationID: cmd.MedicationID}
		}
	}

	machine := newMachine(machineStateFor(p.LastEventType))
	decision := &machineContext{command: command}
	machine.Decide(decision)

	if decision.event == nil {
		return nil, &eventflow.TransitionFailedError{Command: command.CommandName()}
	}
	return []Event{decision.event}, nil
}

// Apply folds one event into the state. It is total over both event
// variants and never fails.
func (p *Prescription) Apply(event Event) {
	p.AppliedEvents++
	switch e := event.(type) {
	case PrescriptionCreated:
		p.ID = e.ID
		p.MedicationID = e.MedicationID
		p.PatientID = e.PatientID
		p.Address = e.Address
	case PrescriptionUpdated:
		p.Address = e.Address
	}
	p.LastEventType = event.EventType()
	p.LastEventID = event.EventID()
}

// Snapshot produces a snapshot once ten or more events have been applied
// since the last hydration point, reporting false otherwise.
func (p *Prescription) Snapshot() (*eventflow.Snapshot[*Prescription], bool) {
	if p.AppliedEvents < snapshotThreshold {
		return nil, false
	}
	state := *p
	return &eventflow.Snapshot[*Prescription]{
		AggregateID:   p.ID,
		AggregateType: p.AggregateType(),
		State:         &state,
		LastSequence:  p.LastEventID,
		SnapshotID:    eventflow.NewID(),
		Timestamp:     time.Now(),
	}, true
}

// Service is the command service instantiated for this aggregate kind.
type Service = eventflow.CommandService[*Prescription, Directory, Command, Event]

// NewService wires a command service over the shared storage handle.
func NewService(repository eventflow.Repository[*Prescription, Event], services Directory, opts ...eventflow.CommandServiceOption) *Service {
	return eventflow.NewCommandService[*Prescription, Directory, Command, Event](repository, New, services, opts...)
}
