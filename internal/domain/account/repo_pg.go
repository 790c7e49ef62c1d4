package account

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

const accountCols = `id, username, password_hash, is_admin, created_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.IsAdmin, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

func (r *RepoPG) Create(ctx context.Context, a *Account) error {
	const q = `INSERT INTO account (username, password_hash, is_admin)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err := r.conn(ctx).QueryRow(ctx, q, a.Username, a.PasswordHash, a.IsAdmin).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	q := fmt.Sprintf(`SELECT %s FROM account WHERE id = $1`, accountCols)
	return scanAccount(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) GetByUsername(ctx context.Context, username string) (*Account, error) {
	q := fmt.Sprintf(`SELECT %s FROM account WHERE username = $1`, accountCols)
	return scanAccount(r.conn(ctx).QueryRow(ctx, q, username))
}
