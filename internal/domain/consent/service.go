package consent

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/accesslog"
	"github.com/clinic/clinic/internal/domain/doctor"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
)

// Engine answers whether a doctor may access a patient's record and
// records every change to that answer. Absence of a consent row means
// access is denied.
type Engine struct {
	repo     Repository
	patients patient.Repository
	doctors  doctor.Repository
	recorder accesslog.Recorder
	runTx    db.Runner
}

func NewEngine(repo Repository, patients patient.Repository, doctors doctor.Repository, recorder accesslog.Recorder, runTx db.Runner) *Engine {
	return &Engine{repo: repo, patients: patients, doctors: doctors, recorder: recorder, runTx: runTx}
}

// IsAuthorized reports whether the doctor currently holds consent for the
// patient. Missing rows, revoked rows and unknown ids all read as false.
func (e *Engine) IsAuthorized(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	return e.repo.IsGranted(ctx, doctorID, patientID)
}

// SetConsent grants or revokes a doctor's access to a patient's record.
// Repeating the current state is a no-op upsert but is still audited.
func (e *Engine) SetConsent(ctx context.Context, actor auth.Identity, patientID, doctorID uuid.UUID, granted bool) (*Consent, error) {
	if _, err := e.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	if _, err := e.doctors.GetByID(ctx, doctorID); err != nil {
		return nil, err
	}

	c := &Consent{PatientID: patientID, DoctorID: doctorID, Granted: granted}
	err := e.runTx(ctx, func(ctx context.Context) error {
		if err := e.repo.Upsert(ctx, c); err != nil {
			return err
		}
		action := accesslog.ActionConsentRevoked
		if granted {
			action = accesslog.ActionConsentGranted
		}
		if _, err := e.recorder.Record(ctx, actor, &patientID, action); err != nil {
			return fmt.Errorf("record consent change: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (e *Engine) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Consent, error) {
	return e.repo.ListByPatient(ctx, patientID)
}

// Distribution groups currently granted consents by doctor.
func (e *Engine) Distribution(ctx context.Context) ([]*DoctorPatients, error) {
	pairs, err := e.repo.GrantedPairs(ctx)
	if err != nil {
		return nil, err
	}

	byDoctor := make(map[uuid.UUID]*DoctorPatients)
	var out []*DoctorPatients
	for _, p := range pairs {
		dp, ok := byDoctor[p.DoctorID]
		if !ok {
			dp = &DoctorPatients{DoctorID: p.DoctorID, DoctorName: p.DoctorName}
			byDoctor[p.DoctorID] = dp
			out = append(out, dp)
		}
		dp.Patients = append(dp.Patients, PatientRef{ID: p.PatientID, Name: p.PatientName})
	}
	return out, nil
}

// Graph renders granted consents as a node/edge set suitable for a
// client-side graph widget. Doctors and patients each appear once.
func (e *Engine) Graph(ctx context.Context) (*Graph, error) {
	pairs, err := e.repo.GrantedPairs(ctx)
	if err != nil {
		return nil, err
	}

	g := &Graph{Nodes: []Node{}, Edges: []Edge{}}
	seen := make(map[string]bool)
	addNode := func(id, label, kind string) {
		if seen[id] {
			return
		}
		seen[id] = true
		g.Nodes = append(g.Nodes, Node{Data: NodeData{ID: id, Label: label, Type: kind}})
	}

	for _, p := range pairs {
		docID := "doctor-" + p.DoctorID.String()
		patID := "patient-" + p.PatientID.String()
		addNode(docID, p.DoctorName, "doctor")
		addNode(patID, p.PatientName, "patient")
		g.Edges = append(g.Edges, Edge{Data: EdgeData{Source: docID, Target: patID}})
	}
	return g, nil
}
