package auth

import (
	"context"

	"github.com/google/uuid"
)

// RoleKind is the role an account resolves to at authentication time.
// Precedence when an account could match more than one: admin > doctor >
// patient > unassigned.
type RoleKind string

const (
	RoleAdmin      RoleKind = "admin"
	RoleDoctor     RoleKind = "doctor"
	RolePatient    RoleKind = "patient"
	RoleUnassigned RoleKind = "unassigned"
)

// Identity is the resolved caller of a request: the account plus the role it
// carries and, for doctor/patient roles, the linked profile. It is computed
// once at login, embedded in the session token, and passed through the
// request context so workflows never re-derive it.
type Identity struct {
	AccountID uuid.UUID
	Username  string
	Role      RoleKind
	// ProfileID is the doctor or patient row the account is linked to.
	// Nil for admin and unassigned roles.
	ProfileID *uuid.UUID
}

// IsAdmin reports whether the identity carries the admin role.
func (id Identity) IsAdmin() bool { return id.Role == RoleAdmin }

// DoctorID returns the linked doctor profile id, or uuid.Nil when the
// identity is not a doctor.
func (id Identity) DoctorID() uuid.UUID {
	if id.Role == RoleDoctor && id.ProfileID != nil {
		return *id.ProfileID
	}
	return uuid.Nil
}

// PatientID returns the linked patient profile id, or uuid.Nil when the
// identity is not a patient.
func (id Identity) PatientID() uuid.UUID {
	if id.Role == RolePatient && id.ProfileID != nil {
		return *id.ProfileID
	}
	return uuid.Nil
}

// ResolveRole computes the role for an account given which profiles link to
// it. The admin flag wins over profile links.
func ResolveRole(isAdmin bool, doctorID, patientID *uuid.UUID) (RoleKind, *uuid.UUID) {
	switch {
	case isAdmin:
		return RoleAdmin, nil
	case doctorID != nil:
		return RoleDoctor, doctorID
	case patientID != nil:
		return RolePatient, patientID
	default:
		return RoleUnassigned, nil
	}
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a context carrying the resolved identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity set by the session middleware.
// The second return value is false for unauthenticated requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
