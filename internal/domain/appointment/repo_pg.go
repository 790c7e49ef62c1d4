package appointment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

func (r *RepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *RepoPG) Create(ctx context.Context, a *Appointment) error {
	const q = `INSERT INTO appointment (patient_id, doctor_id, scheduled_at, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	if err := r.conn(ctx).QueryRow(ctx, q, a.PatientID, a.DoctorID, a.ScheduledAt, a.Notes).
		Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

func (r *RepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*DoctorAppointment, error) {
	const q = `SELECT a.id, a.patient_id, a.doctor_id, a.scheduled_at, a.notes, a.created_at, p.name
		FROM appointment a
		JOIN patient p ON p.id = a.patient_id
		WHERE a.doctor_id = $1
		ORDER BY a.scheduled_at`
	rows, err := r.conn(ctx).Query(ctx, q, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by doctor: %w", err)
	}
	defer rows.Close()

	var items []*DoctorAppointment
	for rows.Next() {
		var a DoctorAppointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.ScheduledAt, &a.Notes, &a.CreatedAt, &a.PatientName); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *RepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	const q = `SELECT id, patient_id, doctor_id, scheduled_at, notes, created_at
		FROM appointment
		WHERE patient_id = $1
		ORDER BY scheduled_at`
	rows, err := r.conn(ctx).Query(ctx, q, patientID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.ScheduledAt, &a.Notes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}
