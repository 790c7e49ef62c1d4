package accesslog

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one append-only audit record. At most one of AccountID/DoctorID
// identifies the actor; PatientID is the affected record and is nil for
// account-level actions. References are nulled when the entity they point
// at is deleted, the row itself is never mutated or removed.
type Entry struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	AccountID  *uuid.UUID `db:"account_id" json:"account_id,omitempty"`
	DoctorID   *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	PatientID  *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	Action     string     `db:"action" json:"action"`
	RecordedAt time.Time  `db:"recorded_at" json:"recorded_at"`
}

// Audited actions. Workflows pass one of these constants to Record; the
// action column never holds free-form text.
const (
	ActionViewedRecord        = "Viewed patient record"
	ActionViewDenied          = "Patient record access denied"
	ActionHistoryUpdated      = "Updated Medical History"
	ActionHistoryUpdateDenied = "Medical history update denied"
	ActionConsentGranted      = "Consent Granted"
	ActionConsentRevoked      = "Consent Revoked"
	ActionPatientAdded        = "Added New Patient"
	ActionPatientRemoved      = "Removed Patient"
	ActionDoctorAdded         = "Added Doctor"
	ActionDoctorRemoved       = "Removed Doctor"
	ActionPatientRegistered   = "Patient Registered"
	ActionDoctorRegistered    = "Doctor account registered"
	ActionAppointmentCreated  = "Created Appointment"
)
