package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Appointment struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// DoctorAppointment is an appointment joined with the patient's name for a
// doctor's schedule listing.
type DoctorAppointment struct {
	Appointment
	PatientName string `db:"patient_name" json:"patient_name"`
}

// FeedItem is one calendar event in the shape the schedule widget expects.
type FeedItem struct {
	Title       string `json:"title"`
	Start       string `json:"start"`
	Description string `json:"description"`
}
