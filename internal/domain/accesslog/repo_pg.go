package accesslog

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

const entryCols = `id, account_id, doctor_id, patient_id, action, recorded_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.AccountID, &e.DoctorID, &e.PatientID, &e.Action, &e.RecordedAt)
	return &e, err
}

func (r *RepoPG) Append(ctx context.Context, e *Entry) error {
	const q = `INSERT INTO access_log (account_id, doctor_id, patient_id, action)
		VALUES ($1, $2, $3, $4)
		RETURNING id, recorded_at`
	if err := r.conn(ctx).QueryRow(ctx, q, e.AccountID, e.DoctorID, e.PatientID, e.Action).
		Scan(&e.ID, &e.RecordedAt); err != nil {
		return fmt.Errorf("append access log: %w", err)
	}
	return nil
}

func (r *RepoPG) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM access_log`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count access log: %w", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM access_log ORDER BY recorded_at DESC LIMIT $1 OFFSET $2`, entryCols)
	rows, err := r.conn(ctx).Query(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list access log: %w", err)
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan access log: %w", err)
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *RepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM access_log WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count access log by patient: %w", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM access_log WHERE patient_id = $1
		ORDER BY recorded_at DESC LIMIT $2 OFFSET $3`, entryCols)
	rows, err := r.conn(ctx).Query(ctx, q, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list access log by patient: %w", err)
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan access log: %w", err)
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
