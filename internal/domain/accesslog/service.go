package accesslog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/auth"
)

// Recorder is the audit sink every workflow writes through. An error from
// Record must fail the enclosing workflow: the log is not best-effort.
type Recorder interface {
	Record(ctx context.Context, actor auth.Identity, patientID *uuid.UUID, action string) (*Entry, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends one audit entry. An actor with a doctor profile is
// attributed as that doctor; every other actor (admin, patient,
// unassigned) is attributed as the account itself.
func (s *Service) Record(ctx context.Context, actor auth.Identity, patientID *uuid.UUID, action string) (*Entry, error) {
	e := &Entry{
		PatientID: patientID,
		Action:    action,
	}

	if actor.Role == auth.RoleDoctor && actor.ProfileID != nil {
		e.DoctorID = actor.ProfileID
	} else if actor.AccountID != uuid.Nil {
		accountID := actor.AccountID
		e.AccountID = &accountID
	}

	if err := s.repo.Append(ctx, e); err != nil {
		return nil, fmt.Errorf("record audit entry: %w", err)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
