package prescription

import (
	"github.com/terraskye/eventflow"
	"github.com/terraskye/eventflow/fsm"
)

// machineState identifies a lifecycle phase of a prescription.
type machineState string

const (
	stateNew     machineState = "new"
	stateCreated machineState = "created"
)

// machineStateFor derives the machine state from the type of the last
// applied event. Lifecycle state is never stored explicitly; this derivation
// is the single source of truth.
func machineStateFor(lastEventType string) machineState {
	switch lastEventType {
	case "PrescriptionCreated", "PrescriptionUpdated":
		return stateCreated
	default:
		return stateNew
	}
}

// machineContext is the throwaway decision context loaded with one command;
// the transition exit hook sets the decided event.
type machineContext struct {
	command Command
	event   Event
}

func commandIs(name string) fsm.Condition[machineContext] {
	return func(ctx *machineContext) bool {
		return ctx.command != nil && ctx.command.CommandName() == name
	}
}

// newMachine builds the prescription lifecycle graph seeded at the given
// state: new --CreatePrescription--> created, with UpdatePrescription
// looping on created.
func newMachine(initial machineState) *fsm.Machine[machineState, machineContext] {
	return fsm.New[machineState, machineContext](initial).
		State(stateNew, fsm.NewState[machineState](fsm.Funcs[machineContext]{
			OnExit: exitNew,
		}).Transition(stateCreated, commandIs("CreatePrescription"))).
		State(stateCreated, fsm.NewState[machineState](fsm.Funcs[machineContext]{
			OnExit: exitCreated,
		}).Transition(stateCreated, commandIs("UpdatePrescription")))
}

func exitNew(ctx *machineContext) {
	if cmd, ok := ctx.command.(CreatePrescription); ok {
		ctx.event = PrescriptionCreated{
			ID:           eventflow.NewID(),
			MedicationID: cmd.MedicationID,
			PatientID:    cmd.PatientID,
			Address:      cmd.Address,
			Seq:          eventflow.NewID(),
		}
	}
}

func exitCreated(ctx *machineContext) {
	if cmd, ok := ctx.command.(UpdatePrescription); ok {
		ctx.event = PrescriptionUpdated{
			Address: cmd.Address,
			Seq:     eventflow.NewID(),
		}
	}
}
