package doctor

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

// Add creates a doctor profile and audits the action.
func (s *Service) Add(ctx context.Context, actor auth.Identity, name, specialization string) (*Doctor, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if specialization == "" {
		return nil, fmt.Errorf("specialization is required")
	}

	d := &Doctor{Name: name, Specialization: specialization}

	err := s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, d); err != nil {
			return err
		}
		_, err := s.recorder.Record(ctx, actor, nil, accesslog.ActionDoctorAdded)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Remove deletes a doctor. The doctor's consent and appointment rows cascade
// away; audit entries that mention the doctor survive with the reference
// nulled.
func (s *Service) Remove(ctx context.Context, actor auth.Identity, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	return s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		_, err := s.recorder.Record(ctx, actor, nil, accesslog.ActionDoctorRemoved)
		return err
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.repo.List(ctx, limit, offset)
}
