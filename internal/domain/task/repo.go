package task

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	Update(ctx context.Context, t *Task) error
	List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Task, int, error)
	ExistsForSession(ctx context.Context, sessionID uuid.UUID, taskType string) (bool, error)
}
