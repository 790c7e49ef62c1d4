package consent

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Upsert inserts or updates the row for (patient, doctor), refreshing
	// updated_at. The unique pair constraint serializes concurrent calls.
	Upsert(ctx context.Context, c *Consent) error
	IsGranted(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Consent, error)
	GrantedPairs(ctx context.Context) ([]*GrantedPair, error)
}
