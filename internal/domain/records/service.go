package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/accesslog"
	"github.com/clinic/clinic/internal/domain/appointment"
	"github.com/clinic/clinic/internal/domain/consent"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/crypto"
	"github.com/clinic/clinic/internal/platform/db"
)

// ErrForbidden is returned when the caller holds no consent for the record
// they tried to change.
var ErrForbidden = errors.New("not authorized for this record")

// ErrNoPatientProfile is returned when a patient-only operation is called by
// an account without a patient profile.
var ErrNoPatientProfile = errors.New("account has no patient profile")

const overviewPatientsLimit = 100
const overviewActivityLimit = 20

// Service implements the medical-history access workflows. Every view and
// every update attempt leaves exactly one audit entry, authorized or not.
type Service struct {
	patients     patient.Repository
	appointments appointment.Repository
	logs         accesslog.Repository
	consents     *consent.Engine
	recorder     accesslog.Recorder
	enc          *crypto.HistoryEncryptor
	runTx        db.Runner
}

func NewService(
	patients patient.Repository,
	appointments appointment.Repository,
	logs accesslog.Repository,
	consents *consent.Engine,
	recorder accesslog.Recorder,
	enc *crypto.HistoryEncryptor,
	runTx db.Runner,
) *Service {
	return &Service{
		patients:     patients,
		appointments: appointments,
		logs:         logs,
		consents:     consents,
		recorder:     recorder,
		enc:          enc,
		runTx:        runTx,
	}
}

// canAccess reports whether the actor may read or write the patient's
// history: the patient themself, or a doctor the patient has granted
// consent to. Admins administer consent but do not read record content.
func (s *Service) canAccess(ctx context.Context, actor auth.Identity, patientID uuid.UUID) (bool, error) {
	if actor.PatientID() == patientID {
		return true, nil
	}
	if doctorID := actor.DoctorID(); doctorID != uuid.Nil {
		return s.consents.IsAuthorized(ctx, doctorID, patientID)
	}
	return false, nil
}

func deniedView(patientID uuid.UUID) *HistoryView {
	return &HistoryView{PatientID: patientID, History: DeniedPlaceholder}
}

// ViewHistory returns the decrypted history when the actor is authorized and
// the uniform denied placeholder otherwise. The audit entry is written
// before decryption, so a corrupt record still shows up as a completed view.
func (s *Service) ViewHistory(ctx context.Context, actor auth.Identity, patientID uuid.UUID) (*HistoryView, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if errors.Is(err, patient.ErrNotFound) {
		// Unknown id gets the same answer as a denied one. The audit
		// entry carries no patient reference because there is no row
		// to reference.
		if _, err := s.recorder.Record(ctx, actor, nil, accesslog.ActionViewDenied); err != nil {
			return nil, err
		}
		return deniedView(patientID), nil
	}
	if err != nil {
		return nil, err
	}

	allowed, err := s.canAccess(ctx, actor, patientID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		if _, err := s.recorder.Record(ctx, actor, &patientID, accesslog.ActionViewDenied); err != nil {
			return nil, err
		}
		return deniedView(patientID), nil
	}

	if _, err := s.recorder.Record(ctx, actor, &patientID, accesslog.ActionViewedRecord); err != nil {
		return nil, err
	}

	history := ""
	if p.EncryptedHistory != "" {
		history, err = s.enc.Decrypt(p.EncryptedHistory)
		if err != nil {
			return nil, fmt.Errorf("patient %s: %w", patientID, err)
		}
	}
	return &HistoryView{
		PatientID:   p.ID,
		PatientName: p.Name,
		History:     history,
		Authorized:  true,
	}, nil
}

// UpdateHistory replaces the patient's history. The new ciphertext and the
// audit entry commit in one transaction; a denied attempt is audited and
// returns ErrForbidden.
func (s *Service) UpdateHistory(ctx context.Context, actor auth.Identity, patientID uuid.UUID, text string) error {
	_, err := s.patients.GetByID(ctx, patientID)
	if errors.Is(err, patient.ErrNotFound) {
		if _, err := s.recorder.Record(ctx, actor, nil, accesslog.ActionHistoryUpdateDenied); err != nil {
			return err
		}
		return ErrForbidden
	}
	if err != nil {
		return err
	}

	allowed, err := s.canAccess(ctx, actor, patientID)
	if err != nil {
		return err
	}
	if !allowed {
		if _, err := s.recorder.Record(ctx, actor, &patientID, accesslog.ActionHistoryUpdateDenied); err != nil {
			return err
		}
		return ErrForbidden
	}

	ciphertext, err := s.enc.Encrypt(text)
	if err != nil {
		return err
	}
	return s.runTx(ctx, func(ctx context.Context) error {
		if err := s.patients.UpdateHistory(ctx, patientID, ciphertext); err != nil {
			return err
		}
		if _, err := s.recorder.Record(ctx, actor, &patientID, accesslog.ActionHistoryUpdated); err != nil {
			return fmt.Errorf("record history update: %w", err)
		}
		return nil
	})
}

// Dashboard builds the staff overview. Doctor callers additionally get the
// list of patients currently granting them consent.
func (s *Service) Dashboard(ctx context.Context, actor auth.Identity) (*Overview, error) {
	patients, total, err := s.patients.List(ctx, overviewPatientsLimit, 0)
	if err != nil {
		return nil, err
	}
	dist, err := s.consents.Distribution(ctx)
	if err != nil {
		return nil, err
	}
	graph, err := s.consents.Graph(ctx)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.logs.List(ctx, overviewActivityLimit, 0)
	if err != nil {
		return nil, err
	}

	ov := &Overview{
		Patients:       patients,
		TotalPatients:  total,
		Distribution:   dist,
		Graph:          graph,
		RecentActivity: recent,
	}
	if doctorID := actor.DoctorID(); doctorID != uuid.Nil {
		for _, dp := range dist {
			if dp.DoctorID == doctorID {
				ov.MyPatients = dp.Patients
				break
			}
		}
	}
	return ov, nil
}

// MyDashboard builds the patient's own view. Reading the own record goes
// through ViewHistory, so it is audited like any other view.
func (s *Service) MyDashboard(ctx context.Context, actor auth.Identity) (*PatientDashboard, error) {
	patientID := actor.PatientID()
	if patientID == uuid.Nil {
		return nil, ErrNoPatientProfile
	}

	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	view, err := s.ViewHistory(ctx, actor, patientID)
	if err != nil {
		return nil, err
	}
	appts, err := s.appointments.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	consents, err := s.consents.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	return &PatientDashboard{
		Patient:      p,
		History:      view.History,
		Appointments: appts,
		Consents:     consents,
	}, nil
}
