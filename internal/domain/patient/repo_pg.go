package patient

import (
	"context"
	"errors"
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

const patientCols = `id, account_id, name, age, address, contact, encrypted_history, created_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.AccountID, &p.Name, &p.Age, &p.Address, &p.Contact, &p.EncryptedHistory, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	return &p, nil
}

func (r *RepoPG) Create(ctx context.Context, p *Patient) error {
	const q = `INSERT INTO patient (account_id, name, age, address, contact, encrypted_history)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	if err := r.conn(ctx).QueryRow(ctx, q,
		p.AccountID, p.Name, p.Age, p.Address, p.Contact, p.EncryptedHistory).
		Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	q := fmt.Sprintf(`SELECT %s FROM patient WHERE id = $1`, patientCols)
	return scanPatient(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Patient, error) {
	q := fmt.Sprintf(`SELECT %s FROM patient WHERE account_id = $1`, patientCols)
	return scanPatient(r.conn(ctx).QueryRow(ctx, q, accountID))
}

func (r *RepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM patient ORDER BY name LIMIT $1 OFFSET $2`, patientCols)
	rows, err := r.conn(ctx).Query(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *RepoPG) UpdateHistory(ctx context.Context, id uuid.UUID, ciphertext string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient SET encrypted_history = $2 WHERE id = $1`, id, ciphertext)
	if err != nil {
		return fmt.Errorf("update patient history: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
