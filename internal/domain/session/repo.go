package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, s *Session) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Session, int, error)
	ListInRange(ctx context.Context, from, to time.Time) ([]*Session, error)
	ListUpcoming(ctx context.Context, from, to time.Time) ([]*Session, error)
	ListCompletedWithoutNotes(ctx context.Context, since time.Time) ([]*Session, error)
}

type MeetingRepository interface {
	Create(ctx context.Context, m *Meeting) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListInRange(ctx context.Context, from, to time.Time) ([]*Meeting, error)
}
