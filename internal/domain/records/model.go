package records

import (
	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/accesslog"
	"github.com/clinic/clinic/internal/domain/appointment"
	"github.com/clinic/clinic/internal/domain/consent"
	"github.com/clinic/clinic/internal/domain/patient"
)

// DeniedPlaceholder is the history body returned for any request the caller
// is not authorized to read. It is identical for unknown patients and for
// known patients without consent, so a response never reveals whether a
// record exists.
const DeniedPlaceholder = "Access Denied"

// HistoryView is the result of a view-history request. Authorized is false
// when the caller received the placeholder instead of the record.
type HistoryView struct {
	PatientID   uuid.UUID `json:"patient_id"`
	PatientName string    `json:"patient_name,omitempty"`
	History     string    `json:"history"`
	Authorized  bool      `json:"authorized"`
}

// Overview is the staff dashboard: census, consent structure and the most
// recent audit activity.
type Overview struct {
	Patients       []*patient.Patient        `json:"patients"`
	TotalPatients  int                       `json:"total_patients"`
	Distribution   []*consent.DoctorPatients `json:"distribution"`
	Graph          *consent.Graph            `json:"graph"`
	RecentActivity []*accesslog.Entry        `json:"recent_activity"`
	// MyPatients is populated for doctor callers: the patients currently
	// granting them consent.
	MyPatients []consent.PatientRef `json:"my_patients,omitempty"`
}

// PatientDashboard is the patient's own view: their record, schedule and
// consent grants.
type PatientDashboard struct {
	Patient      *patient.Patient           `json:"patient"`
	History      string                     `json:"history"`
	Appointments []*appointment.Appointment `json:"appointments"`
	Consents     []*consent.Consent         `json:"consents"`
}
