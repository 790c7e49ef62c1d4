package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/accesslog"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
)

// ErrNoDoctorProfile is returned when the caller has no doctor profile to
// book under.
var ErrNoDoctorProfile = errors.New("account has no doctor profile")

type Service struct {
	repo     Repository
	patients patient.Repository
	recorder accesslog.Recorder
	runTx    db.Runner
}

func NewService(repo Repository, patients patient.Repository, recorder accesslog.Recorder, runTx db.Runner) *Service {
	return &Service{repo: repo, patients: patients, recorder: recorder, runTx: runTx}
}

type BookParams struct {
	PatientID   uuid.UUID
	ScheduledAt time.Time
	Notes       *string
}

// Book schedules an appointment between the calling doctor and a patient.
// Booking does not require consent; consent gates the medical history, not
// the schedule.
func (s *Service) Book(ctx context.Context, actor auth.Identity, params BookParams) (*Appointment, error) {
	doctorID := actor.DoctorID()
	if doctorID == uuid.Nil {
		return nil, ErrNoDoctorProfile
	}
	if _, err := s.patients.GetByID(ctx, params.PatientID); err != nil {
		return nil, err
	}

	a := &Appointment{
		PatientID:   params.PatientID,
		DoctorID:    doctorID,
		ScheduledAt: params.ScheduledAt,
		Notes:       params.Notes,
	}
	err := s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, a); err != nil {
			return err
		}
		if _, err := s.recorder.Record(ctx, actor, &params.PatientID, accesslog.ActionAppointmentCreated); err != nil {
			return fmt.Errorf("record booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*DoctorAppointment, error) {
	return s.repo.ListByDoctor(ctx, doctorID)
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// Feed renders the calling doctor's schedule as calendar events.
func (s *Service) Feed(ctx context.Context, doctorID uuid.UUID) ([]FeedItem, error) {
	appts, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	feed := make([]FeedItem, 0, len(appts))
	for _, a := range appts {
		item := FeedItem{
			Title: "Appointment: " + a.PatientName,
			Start: a.ScheduledAt.Format(time.RFC3339),
		}
		if a.Notes != nil {
			item.Description = *a.Notes
		}
		feed = append(feed, item)
	}
	return feed, nil
}
