package doctor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/accesslog"
	"github.com/clinic/clinic/internal/platform/auth"
)

// fkStore mimics the schema's referential behavior around the doctor table:
// consent and appointment rows cascade away with the doctor, audit entries
// survive with their doctor reference nulled.
type fkStore struct {
	doctors      map[uuid.UUID]*Doctor
	consents     []fkPairRow
	appointments []fkPairRow
	logs         []*accesslog.Entry
}

type fkPairRow struct {
	patientID uuid.UUID
	doctorID  uuid.UUID
}

func newFKStore() *fkStore {
	return &fkStore{doctors: make(map[uuid.UUID]*Doctor)}
}

func (s *fkStore) Create(_ context.Context, d *Doctor) error {
	d.ID = uuid.New()
	s.doctors[d.ID] = d
	return nil
}

func (s *fkStore) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := s.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (s *fkStore) GetByAccountID(_ context.Context, _ uuid.UUID) (*Doctor, error) {
	return nil, ErrNotFound
}

func (s *fkStore) List(_ context.Context, _, _ int) ([]*Doctor, int, error) {
	return nil, 0, nil
}

func (s *fkStore) LinkAccount(_ context.Context, _, _ uuid.UUID) error { return nil }

func (s *fkStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.doctors[id]; !ok {
		return ErrNotFound
	}
	delete(s.doctors, id)

	keep := func(rows []fkPairRow) []fkPairRow {
		var out []fkPairRow
		for _, r := range rows {
			if r.doctorID != id {
				out = append(out, r)
			}
		}
		return out
	}
	s.consents = keep(s.consents)
	s.appointments = keep(s.appointments)

	for _, e := range s.logs {
		if e.DoctorID != nil && *e.DoctorID == id {
			e.DoctorID = nil
		}
	}
	return nil
}

// fkRecorder appends to the same store the FK semantics act on.
type fkRecorder struct {
	store *fkStore
}

func (r *fkRecorder) Record(_ context.Context, actor auth.Identity, patientID *uuid.UUID, action string) (*accesslog.Entry, error) {
	e := &accesslog.Entry{ID: uuid.New(), PatientID: patientID, Action: action, RecordedAt: time.Now()}
	if actor.Role == auth.RoleDoctor && actor.ProfileID != nil {
		e.DoctorID = actor.ProfileID
	} else {
		accountID := actor.AccountID
		e.AccountID = &accountID
	}
	r.store.logs = append(r.store.logs, e)
	return e, nil
}

func TestRemoveDoctorPreservesAuditTrail(t *testing.T) {
	store := newFKStore()
	svc := NewService(store, &fkRecorder{store: store}, passthroughTx)
	admin := auth.Identity{AccountID: uuid.New(), Role: auth.RoleAdmin}
	ctx := context.Background()

	target := &Doctor{Name: "Gregory House", Specialization: "Diagnostics"}
	other := &Doctor{Name: "James Wilson", Specialization: "Oncology"}
	for _, d := range []*Doctor{target, other} {
		if err := store.Create(ctx, d); err != nil {
			t.Fatalf("seed doctor: %v", err)
		}
	}

	patientID := uuid.New()
	store.consents = []fkPairRow{
		{patientID: patientID, doctorID: target.ID},
		{patientID: patientID, doctorID: other.ID},
	}
	store.appointments = []fkPairRow{
		{patientID: patientID, doctorID: target.ID},
		{patientID: patientID, doctorID: target.ID},
	}

	actor := auth.Identity{AccountID: uuid.New(), Role: auth.RoleDoctor, ProfileID: &target.ID}
	for i := 0; i < 3; i++ {
		if _, err := (&fkRecorder{store: store}).Record(ctx, actor, &patientID, accesslog.ActionViewedRecord); err != nil {
			t.Fatalf("seed log entry: %v", err)
		}
	}

	if err := svc.Remove(ctx, admin, target.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if len(store.logs) != 4 {
		t.Fatalf("expected the 3 prior entries plus the removal entry, got %d", len(store.logs))
	}
	for _, e := range store.logs[:3] {
		if e.DoctorID != nil {
			t.Error("prior entry should survive with the doctor reference nulled")
		}
		if e.PatientID == nil || *e.PatientID != patientID {
			t.Error("prior entry must keep its patient reference")
		}
		if e.Action != accesslog.ActionViewedRecord {
			t.Errorf("prior entry action changed: %q", e.Action)
		}
	}
	if store.logs[3].Action != accesslog.ActionDoctorRemoved {
		t.Errorf("removal entry action = %q", store.logs[3].Action)
	}

	if len(store.consents) != 1 || store.consents[0].doctorID != other.ID {
		t.Error("the removed doctor's consent rows should cascade away, others stay")
	}
	if len(store.appointments) != 0 {
		t.Error("the removed doctor's appointments should cascade away")
	}
}
