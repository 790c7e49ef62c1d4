package consent

import (
	"time"

	"github.com/google/uuid"
)

// Consent is the authority for whether a doctor may read or write a
// patient's medical history. One row per (patient, doctor) pair; absence of
// a row means no consent.
type Consent struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Granted   bool      `db:"granted" json:"granted"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GrantedPair is one granted consent joined with the names the dashboard
// renders.
type GrantedPair struct {
	PatientID      uuid.UUID `json:"patient_id"`
	PatientName    string    `json:"patient_name"`
	DoctorID       uuid.UUID `json:"doctor_id"`
	DoctorName     string    `json:"doctor_name"`
	Specialization string    `json:"specialization"`
}

// Graph is the consent network rendered on the dashboard: doctor and
// patient nodes with one edge per granted consent.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type Node struct {
	Data NodeData `json:"data"`
}

type NodeData struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

type Edge struct {
	Data EdgeData `json:"data"`
}

type EdgeData struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// DoctorPatients is one bar of the patient-distribution chart: a doctor and
// the patients who currently grant them consent.
type DoctorPatients struct {
	DoctorID   uuid.UUID    `json:"doctor_id"`
	DoctorName string       `json:"doctor"`
	Patients   []PatientRef `json:"patients"`
}

type PatientRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
