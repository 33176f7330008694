package prescription

import "fmt"

// MedicationNotExistError rejects a prescription whose medication is not in
// the directory.
type MedicationNotExistError struct {
	MedicationID string
}

func (e *MedicationNotExistError) Error() string {
	return fmt.Sprintf("prescription invalid, medication with id %q does not exist", e.MedicationID)
}
