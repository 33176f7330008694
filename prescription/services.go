package prescription

import "context"

// Directory is the external capability set consulted during decisions. It
// answers validation lookups only; decisions never perform storage I/O.
type Directory interface {
	// MedicationExists reports whether the medication is known.
	MedicationExists(ctx context.Context, medicationID string) (bool, error)
}

// StaticDirectory is a Directory backed by a fixed medication set. A nil or
// empty set accepts every medication, which is the bootstrap default.
type StaticDirectory struct {
	Medications map[string]struct{}
}

func (d StaticDirectory) MedicationExists(_ context.Context, medicationID string) (bool, error) {
	if len(d.Medications) == 0 {
		return true, nil
	}
	_, ok := d.Medications[medicationID]
	return ok, nil
}
