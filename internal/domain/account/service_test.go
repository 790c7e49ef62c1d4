package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/accesslog"
	"github.com/clinic/clinic/internal/domain/doctor"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/platform/auth"
)

type mockAccountRepo struct {
	byUsername map[string]*Account
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{byUsername: make(map[string]*Account)}
}

func (m *mockAccountRepo) Create(_ context.Context, a *Account) error {
	if _, ok := m.byUsername[a.Username]; ok {
		return ErrDuplicateUsername
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	m.byUsername[a.Username] = a
	return nil
}

func (m *mockAccountRepo) GetByID(_ context.Context, id uuid.UUID) (*Account, error) {
	for _, a := range m.byUsername {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockAccountRepo) GetByUsername(_ context.Context, username string) (*Account, error) {
	a, ok := m.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

type mockPatientRepo struct {
	patients map[uuid.UUID]*patient.Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*patient.Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *patient.Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
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

func (m *mockPatientRepo) GetByAccountID(_ context.Context, accountID uuid.UUID) (*patient.Patient, error) {
	for _, p := range m.patients {
		if p.AccountID != nil && *p.AccountID == accountID {
			return p, nil
		}
	}
	return nil, patient.ErrNotFound
}

func (m *mockPatientRepo) List(_ context.Context, _, _ int) ([]*patient.Patient, int, error) {
	return nil, 0, nil
}

func (m *mockPatientRepo) UpdateHistory(_ context.Context, _ uuid.UUID, _ string) error { return nil }
func (m *mockPatientRepo) Delete(_ context.Context, _ uuid.UUID) error                  { return nil }

type mockDoctorRepo struct {
	doctors map[uuid.UUID]*doctor.Doctor
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[uuid.UUID]*doctor.Doctor)}
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

func (m *mockDoctorRepo) GetByAccountID(_ context.Context, accountID uuid.UUID) (*doctor.Doctor, error) {
	for _, d := range m.doctors {
		if d.AccountID != nil && *d.AccountID == accountID {
			return d, nil
		}
	}
	return nil, doctor.ErrNotFound
}

func (m *mockDoctorRepo) List(_ context.Context, _, _ int) ([]*doctor.Doctor, int, error) {
	return nil, 0, nil
}

func (m *mockDoctorRepo) LinkAccount(_ context.Context, doctorID, accountID uuid.UUID) error {
	d, ok := m.doctors[doctorID]
	if !ok || d.AccountID != nil {
		return doctor.ErrNotFound
	}
	d.AccountID = &accountID
	return nil
}

func (m *mockDoctorRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }

type mockRecorder struct {
	entries []*accesslog.Entry
}

func (m *mockRecorder) Record(_ context.Context, actor auth.Identity, patientID *uuid.UUID, action string) (*accesslog.Entry, error) {
	e := &accesslog.Entry{ID: uuid.New(), PatientID: patientID, Action: action, RecordedAt: time.Now()}
	m.entries = append(m.entries, e)
	return e, nil
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc      *Service
	accounts *mockAccountRepo
	patients *mockPatientRepo
	doctors  *mockDoctorRepo
	recorder *mockRecorder
}

func newFixture() *fixture {
	f := &fixture{
		accounts: newMockAccountRepo(),
		patients: newMockPatientRepo(),
		doctors:  newMockDoctorRepo(),
		recorder: &mockRecorder{},
	}
	f.svc = NewService(f.accounts, f.patients, f.doctors, f.recorder, passthroughTx)
	return f
}

func TestRegisterPatient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, p, err := f.svc.RegisterPatient(ctx, RegisterPatientParams{
		Username: "ada", Password: "s3cret", Name: "Ada Byron", Age: 36, Contact: "555-0100",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if p.AccountID == nil || *p.AccountID != a.ID {
		t.Error("patient profile should link to the new account")
	}
	if a.PasswordHash == "s3cret" {
		t.Error("password must be stored hashed")
	}
	if len(f.recorder.entries) != 1 || f.recorder.entries[0].Action != accesslog.ActionPatientRegistered {
		t.Error("registration must leave a single audit entry")
	}
}

func TestRegisterPatientDuplicateUsername(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	params := RegisterPatientParams{Username: "ada", Password: "pw", Name: "Ada Byron", Contact: "555-0100"}
	if _, _, err := f.svc.RegisterPatient(ctx, params); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, _, err := f.svc.RegisterPatient(ctx, params); !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("got %v, want ErrDuplicateUsername", err)
	}
}

func TestRegisterDoctor(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	d := &doctor.Doctor{Name: "Gregory House", Specialization: "Diagnostics"}
	if err := f.doctors.Create(ctx, d); err != nil {
		t.Fatalf("seed doctor: %v", err)
	}

	a, err := f.svc.RegisterDoctor(ctx, RegisterDoctorParams{Username: "house", Password: "pw", DoctorID: d.ID})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if d.AccountID == nil || *d.AccountID != a.ID {
		t.Error("doctor profile should link to the new account")
	}
	if len(f.recorder.entries) != 1 || f.recorder.entries[0].Action != accesslog.ActionDoctorRegistered {
		t.Error("registration must leave a single audit entry")
	}
}

func TestRegisterDoctorAlreadyLinked(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	existing := uuid.New()
	d := &doctor.Doctor{Name: "Gregory House", Specialization: "Diagnostics", AccountID: &existing}
	if err := f.doctors.Create(ctx, d); err != nil {
		t.Fatalf("seed doctor: %v", err)
	}

	if _, err := f.svc.RegisterDoctor(ctx, RegisterDoctorParams{Username: "house", Password: "pw", DoctorID: d.ID}); !errors.Is(err, ErrAlreadyLinked) {
		t.Fatalf("got %v, want ErrAlreadyLinked", err)
	}
}

func TestRegisterDoctorUnknownProfile(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.RegisterDoctor(context.Background(), RegisterDoctorParams{Username: "x", Password: "pw", DoctorID: uuid.New()}); !errors.Is(err, doctor.ErrNotFound) {
		t.Fatalf("got %v, want doctor.ErrNotFound", err)
	}
}

func TestLoginResolvesRoles(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, _, err := f.svc.RegisterPatient(ctx, RegisterPatientParams{
		Username: "ada", Password: "pw", Name: "Ada Byron", Contact: "555-0100",
	}); err != nil {
		t.Fatalf("register patient: %v", err)
	}

	id, err := f.svc.Login(ctx, "ada", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if id.Role != auth.RolePatient {
		t.Errorf("role = %s, want patient", id.Role)
	}
	if id.ProfileID == nil {
		t.Error("patient login should carry the profile id")
	}
}

func TestLoginAdminWinsOverProfiles(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, p, err := f.svc.RegisterPatient(ctx, RegisterPatientParams{
		Username: "root", Password: "pw", Name: "Root", Contact: "555-0100",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	f.accounts.byUsername["root"].IsAdmin = true

	id, err := f.svc.Login(ctx, "root", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if id.Role != auth.RoleAdmin {
		t.Errorf("role = %s, want admin despite patient profile %s", id.Role, p.ID)
	}
	if id.ProfileID != nil {
		t.Error("admin identity should carry no profile id")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, _, err := f.svc.RegisterPatient(ctx, RegisterPatientParams{
		Username: "ada", Password: "pw", Name: "Ada Byron", Contact: "555-0100",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := f.svc.Login(ctx, "ada", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := f.svc.Login(ctx, "nobody", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: got %v, want ErrInvalidCredentials", err)
	}
}
