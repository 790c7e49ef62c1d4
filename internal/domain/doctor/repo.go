package doctor

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the referenced doctor does not exist.
var ErrNotFound = errors.New("doctor not found")

type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Doctor, error)
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
	LinkAccount(ctx context.Context, doctorID, accountID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}
