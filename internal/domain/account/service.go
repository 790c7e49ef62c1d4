package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinic/clinic/internal/domain/accesslog"
	"github.com/clinic/clinic/internal/domain/doctor"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
)

var (
	// ErrInvalidCredentials is returned on unknown username or wrong
	// password. Callers must not distinguish the two.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrAlreadyLinked is returned when the doctor profile already has a
	// login account.
	ErrAlreadyLinked = errors.New("doctor profile already has an account")
)

type Service struct {
	repo     Repository
	patients patient.Repository
	doctors  doctor.Repository
	recorder accesslog.Recorder
	runTx    db.Runner
}

func NewService(repo Repository, patients patient.Repository, doctors doctor.Repository, recorder accesslog.Recorder, runTx db.Runner) *Service {
	return &Service{repo: repo, patients: patients, doctors: doctors, recorder: recorder, runTx: runTx}
}

type RegisterPatientParams struct {
	Username string
	Password string
	Name     string
	Age      int
	Address  *string
	Contact  string
}

// RegisterPatient creates a login account and its patient profile in one
// transaction. The registration itself is audited, attributed to the new
// account.
func (s *Service) RegisterPatient(ctx context.Context, params RegisterPatientParams) (*Account, *patient.Patient, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	a := &Account{Username: params.Username, PasswordHash: string(hash)}
	p := &patient.Patient{
		Name:    params.Name,
		Age:     params.Age,
		Address: params.Address,
		Contact: params.Contact,
	}
	err = s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, a); err != nil {
			return err
		}
		p.AccountID = &a.ID
		if err := s.patients.Create(ctx, p); err != nil {
			return err
		}
		actor := auth.Identity{AccountID: a.ID, Username: a.Username, Role: auth.RolePatient, ProfileID: &p.ID}
		if _, err := s.recorder.Record(ctx, actor, &p.ID, accesslog.ActionPatientRegistered); err != nil {
			return fmt.Errorf("record registration: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return a, p, nil
}

type RegisterDoctorParams struct {
	Username string
	Password string
	DoctorID uuid.UUID
}

// RegisterDoctor creates a login account for an existing doctor profile.
// A profile accepts at most one account.
func (s *Service) RegisterDoctor(ctx context.Context, params RegisterDoctorParams) (*Account, error) {
	d, err := s.doctors.GetByID(ctx, params.DoctorID)
	if err != nil {
		return nil, err
	}
	if d.AccountID != nil {
		return nil, ErrAlreadyLinked
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	a := &Account{Username: params.Username, PasswordHash: string(hash)}
	err = s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, a); err != nil {
			return err
		}
		if err := s.doctors.LinkAccount(ctx, d.ID, a.ID); err != nil {
			return err
		}
		actor := auth.Identity{AccountID: a.ID, Username: a.Username, Role: auth.RoleDoctor, ProfileID: &d.ID}
		if _, err := s.recorder.Record(ctx, actor, nil, accesslog.ActionDoctorRegistered); err != nil {
			return fmt.Errorf("record registration: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Login verifies credentials and resolves the account's role. The role and
// linked profile are fixed here; request handling trusts the resulting
// identity for the lifetime of the session token.
func (s *Service) Login(ctx context.Context, username, password string) (auth.Identity, error) {
	a, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return auth.Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return auth.Identity{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return auth.Identity{}, ErrInvalidCredentials
	}

	var doctorID, patientID *uuid.UUID
	if d, err := s.doctors.GetByAccountID(ctx, a.ID); err == nil {
		doctorID = &d.ID
	} else if !errors.Is(err, doctor.ErrNotFound) {
		return auth.Identity{}, err
	}
	if p, err := s.patients.GetByAccountID(ctx, a.ID); err == nil {
		patientID = &p.ID
	} else if !errors.Is(err, patient.ErrNotFound) {
		return auth.Identity{}, err
	}

	role, profileID := auth.ResolveRole(a.IsAdmin, doctorID, patientID)
	return auth.Identity{
		AccountID: a.ID,
		Username:  a.Username,
		Role:      role,
		ProfileID: profileID,
	}, nil
}
