package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/accesslog"
	"github.com/clinic/clinic/internal/domain/appointment"
	"github.com/clinic/clinic/internal/domain/consent"
	"github.com/clinic/clinic/internal/domain/doctor"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/crypto"
)

type mockPatientRepo struct {
	patients map[uuid.UUID]*patient.Patient
}

func (m *mockPatientRepo) Create(_ context.Context, p *patient.Patient) error {
	p.ID = uuid.New()
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

func (m *mockPatientRepo) GetByAccountID(_ context.Context, _ uuid.UUID) (*patient.Patient, error) {
	return nil, patient.ErrNotFound
}

func (m *mockPatientRepo) List(_ context.Context, _, _ int) ([]*patient.Patient, int, error) {
	var out []*patient.Patient
	for _, p := range m.patients {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockPatientRepo) UpdateHistory(_ context.Context, id uuid.UUID, ciphertext string) error {
	p, ok := m.patients[id]
	if !ok {
		return patient.ErrNotFound
	}
	p.EncryptedHistory = ciphertext
	return nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.patients, id)
	return nil
}

type mockDoctorRepo struct {
	doctors map[uuid.UUID]*doctor.Doctor
}

func (m *mockDoctorRepo) Create(_ context.Context, d *doctor.Doctor) error {
	d.ID = uuid.New()
	m.doctors[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, doctor.ErrNotFound
	}
	return d, nil
}

func (m *mockDoctorRepo) GetByAccountID(_ context.Context, _ uuid.UUID) (*doctor.Doctor, error) {
	return nil, doctor.ErrNotFound
}

func (m *mockDoctorRepo) List(_ context.Context, _, _ int) ([]*doctor.Doctor, int, error) {
	return nil, 0, nil
}

func (m *mockDoctorRepo) LinkAccount(_ context.Context, _, _ uuid.UUID) error { return nil }
func (m *mockDoctorRepo) Delete(_ context.Context, _ uuid.UUID) error         { return nil }

type pairKey struct {
	patientID uuid.UUID
	doctorID  uuid.UUID
}

type mockConsentRepo struct {
	rows map[pairKey]*consent.Consent
}

func (m *mockConsentRepo) Upsert(_ context.Context, c *consent.Consent) error {
	key := pairKey{c.PatientID, c.DoctorID}
	if existing, ok := m.rows[key]; ok {
		existing.Granted = c.Granted
		*c = *existing
		return nil
	}
	c.ID = uuid.New()
	cp := *c
	m.rows[key] = &cp
	return nil
}

func (m *mockConsentRepo) IsGranted(_ context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	c, ok := m.rows[pairKey{patientID, doctorID}]
	return ok && c.Granted, nil
}

func (m *mockConsentRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*consent.Consent, error) {
	var out []*consent.Consent
	for _, c := range m.rows {
		if c.PatientID == patientID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockConsentRepo) GrantedPairs(_ context.Context) ([]*consent.GrantedPair, error) {
	var out []*consent.GrantedPair
	for _, c := range m.rows {
		if c.Granted {
			out = append(out, &consent.GrantedPair{PatientID: c.PatientID, DoctorID: c.DoctorID})
		}
	}
	return out, nil
}

type mockApptRepo struct {
	appts []*appointment.Appointment
}

func (m *mockApptRepo) Create(_ context.Context, a *appointment.Appointment) error {
	a.ID = uuid.New()
	m.appts = append(m.appts, a)
	return nil
}

func (m *mockApptRepo) ListByDoctor(_ context.Context, _ uuid.UUID) ([]*appointment.DoctorAppointment, error) {
	return nil, nil
}

func (m *mockApptRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*appointment.Appointment, error) {
	var out []*appointment.Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out, nil
}

type mockLogRepo struct {
	entries []*accesslog.Entry
}

func (m *mockLogRepo) Append(_ context.Context, e *accesslog.Entry) error {
	e.ID = uuid.New()
	e.RecordedAt = time.Now()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockLogRepo) List(_ context.Context, _, _ int) ([]*accesslog.Entry, int, error) {
	return m.entries, len(m.entries), nil
}

func (m *mockLogRepo) ListByPatient(_ context.Context, patientID uuid.UUID, _, _ int) ([]*accesslog.Entry, int, error) {
	var out []*accesslog.Entry
	for _, e := range m.entries {
		if e.PatientID != nil && *e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc      *Service
	engine   *consent.Engine
	patients *mockPatientRepo
	logs     *mockLogRepo

	patientID uuid.UUID
	doctorID  uuid.UUID

	admin       auth.Identity
	doctorActor auth.Identity
	selfActor   auth.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	enc, err := crypto.NewHistoryEncryptor(key)
	if err != nil {
		t.Fatalf("encryptor: %v", err)
	}

	patientID := uuid.New()
	doctorID := uuid.New()
	patients := &mockPatientRepo{patients: map[uuid.UUID]*patient.Patient{
		patientID: {ID: patientID, Name: "Ada Byron", Age: 36, Contact: "555-0100"},
	}}
	doctors := &mockDoctorRepo{doctors: map[uuid.UUID]*doctor.Doctor{
		doctorID: {ID: doctorID, Name: "Gregory House", Specialization: "Diagnostics"},
	}}
	logs := &mockLogRepo{}
	recorder := accesslog.NewService(logs)
	engine := consent.NewEngine(&mockConsentRepo{rows: make(map[pairKey]*consent.Consent)}, patients, doctors, recorder, passthroughTx)
	svc := NewService(patients, &mockApptRepo{}, logs, engine, recorder, enc, passthroughTx)

	return &fixture{
		svc:       svc,
		engine:    engine,
		patients:  patients,
		logs:      logs,
		patientID: patientID,
		doctorID:  doctorID,

		admin:       auth.Identity{AccountID: uuid.New(), Role: auth.RoleAdmin},
		doctorActor: auth.Identity{AccountID: uuid.New(), Role: auth.RoleDoctor, ProfileID: &doctorID},
		selfActor:   auth.Identity{AccountID: uuid.New(), Role: auth.RolePatient, ProfileID: &patientID},
	}
}

func (f *fixture) seedHistory(t *testing.T, text string) {
	t.Helper()
	if err := f.svc.UpdateHistory(context.Background(), f.selfActor, f.patientID, text); err != nil {
		t.Fatalf("seed history: %v", err)
	}
	f.logs.entries = nil
}

func (f *fixture) grant(t *testing.T) {
	t.Helper()
	if _, err := f.engine.SetConsent(context.Background(), f.admin, f.patientID, f.doctorID, true); err != nil {
		t.Fatalf("grant consent: %v", err)
	}
	f.logs.entries = nil
}

func TestViewDeniedWithoutConsent(t *testing.T) {
	f := newFixture(t)
	f.seedHistory(t, "chronic migraine")
	ctx := context.Background()

	view, err := f.svc.ViewHistory(ctx, f.doctorActor, f.patientID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Authorized {
		t.Fatal("view without consent must be denied")
	}
	if view.History != DeniedPlaceholder {
		t.Errorf("history = %q, want the placeholder", view.History)
	}
	if view.PatientName != "" {
		t.Error("denied view must not reveal the patient's name")
	}

	if len(f.logs.entries) != 1 {
		t.Fatalf("expected exactly 1 audit entry, got %d", len(f.logs.entries))
	}
	e := f.logs.entries[0]
	if e.Action != accesslog.ActionViewDenied {
		t.Errorf("action = %q", e.Action)
	}
	if e.DoctorID == nil || *e.DoctorID != f.doctorID {
		t.Error("denied attempt should be attributed to the doctor")
	}
}

func TestViewAllowedWithConsent(t *testing.T) {
	f := newFixture(t)
	f.seedHistory(t, "chronic migraine")
	f.grant(t)
	ctx := context.Background()

	view, err := f.svc.ViewHistory(ctx, f.doctorActor, f.patientID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if !view.Authorized {
		t.Fatal("consented doctor must be authorized")
	}
	if view.History != "chronic migraine" {
		t.Errorf("history = %q", view.History)
	}
	if len(f.logs.entries) != 1 || f.logs.entries[0].Action != accesslog.ActionViewedRecord {
		t.Fatal("authorized view must leave exactly one viewed entry")
	}
}

func TestViewOwnRecord(t *testing.T) {
	f := newFixture(t)
	f.seedHistory(t, "chronic migraine")

	view, err := f.svc.ViewHistory(context.Background(), f.selfActor, f.patientID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if !view.Authorized || view.History != "chronic migraine" {
		t.Error("a patient must always read their own record")
	}
}

func TestAdminCannotReadRecordContent(t *testing.T) {
	f := newFixture(t)
	f.seedHistory(t, "chronic migraine")

	view, err := f.svc.ViewHistory(context.Background(), f.admin, f.patientID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Authorized || view.History != DeniedPlaceholder {
		t.Error("admins manage consent but do not read record content")
	}
}

func TestViewUnknownPatientIsIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unknown, err := f.svc.ViewHistory(ctx, f.doctorActor, uuid.New())
	if err != nil {
		t.Fatalf("view unknown: %v", err)
	}
	known, err := f.svc.ViewHistory(ctx, f.doctorActor, f.patientID)
	if err != nil {
		t.Fatalf("view known: %v", err)
	}
	if unknown.History != known.History || unknown.Authorized != known.Authorized || unknown.PatientName != known.PatientName {
		t.Error("denied responses must not differ between unknown and existing patients")
	}

	if len(f.logs.entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(f.logs.entries))
	}
	if f.logs.entries[0].PatientID != nil {
		t.Error("unknown-patient entry must carry no patient reference")
	}
	if f.logs.entries[1].PatientID == nil {
		t.Error("existing-patient entry must reference the patient")
	}
}

func TestGrantViewRevokeView(t *testing.T) {
	f := newFixture(t)
	f.seedHistory(t, "chronic migraine")
	ctx := context.Background()

	if _, err := f.engine.SetConsent(ctx, f.admin, f.patientID, f.doctorID, true); err != nil {
		t.Fatalf("grant: %v", err)
	}
	view, err := f.svc.ViewHistory(ctx, f.doctorActor, f.patientID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if !view.Authorized {
		t.Fatal("view after grant must succeed")
	}

	if _, err := f.engine.SetConsent(ctx, f.admin, f.patientID, f.doctorID, false); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	view, err = f.svc.ViewHistory(ctx, f.doctorActor, f.patientID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Authorized {
		t.Fatal("revocation must deny the very next view")
	}
}

func TestUpdateHistoryEncryptsAtRest(t *testing.T) {
	f := newFixture(t)
	f.grant(t)
	ctx := context.Background()

	if err := f.svc.UpdateHistory(ctx, f.doctorActor, f.patientID, "started beta blockers"); err != nil {
		t.Fatalf("update: %v", err)
	}

	stored := f.patients.patients[f.patientID].EncryptedHistory
	if stored == "" || stored == "started beta blockers" {
		t.Fatal("stored history must be ciphertext, not plaintext")
	}
	if len(f.logs.entries) != 1 || f.logs.entries[0].Action != accesslog.ActionHistoryUpdated {
		t.Fatal("update must leave exactly one updated entry")
	}

	view, err := f.svc.ViewHistory(ctx, f.doctorActor, f.patientID)
	if err != nil {
		t.Fatalf("view back: %v", err)
	}
	if view.History != "started beta blockers" {
		t.Errorf("round trip = %q", view.History)
	}
}

func TestUpdateDeniedWithoutConsent(t *testing.T) {
	f := newFixture(t)
	f.seedHistory(t, "original")
	ctx := context.Background()

	err := f.svc.UpdateHistory(ctx, f.doctorActor, f.patientID, "overwritten")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
	if len(f.logs.entries) != 1 || f.logs.entries[0].Action != accesslog.ActionHistoryUpdateDenied {
		t.Fatal("denied update must leave exactly one denied entry")
	}

	view, err := f.svc.ViewHistory(ctx, f.selfActor, f.patientID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.History != "original" {
		t.Error("denied update must not change the record")
	}
}

func TestCorruptRecordSurfacesIntegrityError(t *testing.T) {
	f := newFixture(t)
	f.patients.patients[f.patientID].EncryptedHistory = "not-a-valid-envelope"

	_, err := f.svc.ViewHistory(context.Background(), f.selfActor, f.patientID)
	if !errors.Is(err, crypto.ErrCorruptCiphertext) {
		t.Fatalf("got %v, want ErrCorruptCiphertext", err)
	}
	if len(f.logs.entries) != 1 || f.logs.entries[0].Action != accesslog.ActionViewedRecord {
		t.Fatal("the view must still be audited even when decryption fails")
	}
}

func TestMyDashboard(t *testing.T) {
	f := newFixture(t)
	f.seedHistory(t, "chronic migraine")
	f.grant(t)
	ctx := context.Background()

	dash, err := f.svc.MyDashboard(ctx, f.selfActor)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.History != "chronic migraine" {
		t.Errorf("history = %q", dash.History)
	}
	if len(dash.Consents) != 1 || !dash.Consents[0].Granted {
		t.Error("dashboard should list the granted consent")
	}

	if _, err := f.svc.MyDashboard(ctx, f.admin); !errors.Is(err, ErrNoPatientProfile) {
		t.Errorf("admin dashboard: got %v, want ErrNoPatientProfile", err)
	}
}

func TestDoctorDashboardListsConsentedPatients(t *testing.T) {
	f := newFixture(t)
	f.grant(t)

	ov, err := f.svc.Dashboard(context.Background(), f.doctorActor)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(ov.MyPatients) != 1 || ov.MyPatients[0].ID != f.patientID {
		t.Error("doctor overview should list consented patients")
	}
	if ov.Graph == nil || len(ov.Graph.Edges) != 1 {
		t.Error("overview graph should carry the granted edge")
	}
}
