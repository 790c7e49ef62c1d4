package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/accesslog"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
)

type Service struct {
	repo     Repository
	recorder accesslog.Recorder
	runTx    db.Runner
}

func NewService(repo Repository, recorder accesslog.Recorder, runTx db.Runner) *Service {
	return &Service{repo: repo, recorder: recorder, runTx: runTx}
}

// AddParams carries the admin-entered patient details.
type AddParams struct {
	Name    string
	Age     int
	Address *string
	Contact string
}

// Add creates a patient record and audits the action. The patient has no
// account yet; self-registration links one later.
func (s *Service) Add(ctx context.Context, actor auth.Identity, params AddParams) (*Patient, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if params.Age < 0 {
		return nil, fmt.Errorf("age must not be negative")
	}
	if params.Contact == "" {
		return nil, fmt.Errorf("contact is required")
	}

	p := &Patient{
		Name:    params.Name,
		Age:     params.Age,
		Address: params.Address,
		Contact: params.Contact,
	}

	err := s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		_, err := s.recorder.Record(ctx, actor, &p.ID, accesslog.ActionPatientAdded)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Remove deletes a patient. Consent and appointment rows cascade away with
// the row; existing audit entries survive with their patient reference
// nulled, and the removal itself is audited without a patient reference.
func (s *Service) Remove(ctx context.Context, actor auth.Identity, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	return s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		_, err := s.recorder.Record(ctx, actor, nil, accesslog.ActionPatientRemoved)
		return err
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}
