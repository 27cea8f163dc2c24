package card

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Card) error
	GetByID(ctx context.Context, id uuid.UUID) (*Card, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateSpendingLimit(ctx context.Context, id uuid.UUID, limit *string) error
	List(ctx context.Context, limit, offset int) ([]*Card, int, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	SetTaxDeductible(ctx context.Context, id uuid.UUID, deductible bool) error
	List(ctx context.Context, cardID *uuid.UUID, from, to time.Time, limit, offset int) ([]*Transaction, int, error)
	ListInRange(ctx context.Context, from, to time.Time) ([]*Transaction, error)
}
