package prescription

import "github.com/terraskye/eventflow"

// Command is the union of operations that can be requested against a
// prescription.
type Command = eventflow.Command

// CreatePrescription requests a new prescription for a patient.
type CreatePrescription struct {
	MedicationID string
	PatientID    string
	Address      string
}

func (CreatePrescription) CommandName() string { return "CreatePrescription" }

// UpdatePrescription requests a delivery address change on an existing
// prescription.
type UpdatePrescription struct {
	ID      string
	Address string
}

func (UpdatePrescription) CommandName() string { return "UpdatePrescription" }
