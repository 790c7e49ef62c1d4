package consent

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

func (r *RepoPG) Upsert(ctx context.Context, c *Consent) error {
	const q = `INSERT INTO consent (patient_id, doctor_id, granted)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT consent_pair
		DO UPDATE SET granted = EXCLUDED.granted, updated_at = NOW()
		RETURNING id, updated_at`
	if err := r.conn(ctx).QueryRow(ctx, q, c.PatientID, c.DoctorID, c.Granted).
		Scan(&c.ID, &c.UpdatedAt); err != nil {
		return fmt.Errorf("upsert consent: %w", err)
	}
	return nil
}

func (r *RepoPG) IsGranted(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM consent WHERE doctor_id = $1 AND patient_id = $2 AND granted
	)`
	var granted bool
	if err := r.conn(ctx).QueryRow(ctx, q, doctorID, patientID).Scan(&granted); err != nil {
		return false, fmt.Errorf("check consent: %w", err)
	}
	return granted, nil
}

func (r *RepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Consent, error) {
	const q = `SELECT id, patient_id, doctor_id, granted, updated_at
		FROM consent WHERE patient_id = $1 ORDER BY updated_at DESC`
	rows, err := r.conn(ctx).Query(ctx, q, patientID)
	if err != nil {
		return nil, fmt.Errorf("list consents by patient: %w", err)
	}
	defer rows.Close()

	var items []*Consent
	for rows.Next() {
		var c Consent
		if err := rows.Scan(&c.ID, &c.PatientID, &c.DoctorID, &c.Granted, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		items = append(items, &c)
	}
	return items, rows.Err()
}

func (r *RepoPG) GrantedPairs(ctx context.Context) ([]*GrantedPair, error) {
	const q = `SELECT c.patient_id, p.name, c.doctor_id, d.name, d.specialization
		FROM consent c
		JOIN patient p ON p.id = c.patient_id
		JOIN doctor d ON d.id = c.doctor_id
		WHERE c.granted
		ORDER BY d.name, p.name`
	rows, err := r.conn(ctx).Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list granted pairs: %w", err)
	}
	defer rows.Close()

	var items []*GrantedPair
	for rows.Next() {
		var gp GrantedPair
		if err := rows.Scan(&gp.PatientID, &gp.PatientName, &gp.DoctorID, &gp.DoctorName, &gp.Specialization); err != nil {
			return nil, fmt.Errorf("scan granted pair: %w", err)
		}
		items = append(items, &gp)
	}
	return items, rows.Err()
}
