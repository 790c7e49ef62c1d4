package doctor

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

const doctorCols = `id, account_id, name, specialization, created_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.AccountID, &d.Name, &d.Specialization, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan doctor: %w", err)
	}
	return &d, nil
}

func (r *RepoPG) Create(ctx context.Context, d *Doctor) error {
	const q = `INSERT INTO doctor (account_id, name, specialization)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	if err := r.conn(ctx).QueryRow(ctx, q, d.AccountID, d.Name, d.Specialization).
		Scan(&d.ID, &d.CreatedAt); err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}
	return nil
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	q := fmt.Sprintf(`SELECT %s FROM doctor WHERE id = $1`, doctorCols)
	return scanDoctor(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Doctor, error) {
	q := fmt.Sprintf(`SELECT %s FROM doctor WHERE account_id = $1`, doctorCols)
	return scanDoctor(r.conn(ctx).QueryRow(ctx, q, accountID))
}

func (r *RepoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctor`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM doctor ORDER BY name LIMIT $1 OFFSET $2`, doctorCols)
	rows, err := r.conn(ctx).Query(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *RepoPG) LinkAccount(ctx context.Context, doctorID, accountID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctor SET account_id = $2 WHERE id = $1 AND account_id IS NULL`, doctorID, accountID)
	if err != nil {
		return fmt.Errorf("link doctor account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctor WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete doctor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
