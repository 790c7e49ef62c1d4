package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the referenced patient does not exist.
var ErrNotFound = errors.New("patient not found")

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	UpdateHistory(ctx context.Context, id uuid.UUID, ciphertext string) error
	Delete(ctx context.Context, id uuid.UUID) error
}
