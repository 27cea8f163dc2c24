package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, t *Task) error {
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	if t.Type == "" {
		t.Type = TypeCustom
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Status != StatusPending && t.Status != StatusInProgress {
		return fmt.Errorf("new tasks must be pending or in_progress")
	}
	return s.repo.Create(ctx, t)
}

// EnsureSessionNoteTask creates a session_note task for the session unless one
// already exists. Used by the workflow jobs to follow up on completed
// sessions with no notes.
func (s *Service) EnsureSessionNoteTask(ctx context.Context, sessionID, patientID uuid.UUID, sessionStart time.Time) error {
	exists, err := s.repo.ExistsForSession(ctx, sessionID, TypeSessionNote)
	if err != nil {
		return fmt.Errorf("check existing task: %w", err)
	}
	if exists {
		return nil
	}
	due := sessionStart.AddDate(0, 0, 2)
	return s.repo.Create(ctx, &Task{
		Title:     "Write session note",
		Type:      TypeSessionNote,
		Status:    StatusPending,
		PatientID: &patientID,
		SessionID: &sessionID,
		DueDate:   &due,
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Task, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Task, int, error) {
	return s.repo.List(ctx, filters, limit, offset)
}

// ChangeStatus applies the task state machine. Moving to completed stamps
// CompletedAt; moving back out of completed is not allowed.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, status string) (*Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("task not found: %w", err)
	}
	if !CanTransition(t.Status, status) {
		return nil, fmt.Errorf("invalid status transition %s -> %s", t.Status, status)
	}
	t.Status = status
	if status == StatusCompleted {
		now := time.Now()
		t.CompletedAt = &now
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, title string, description *string, dueDate *time.Time) (*Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("task not found: %w", err)
	}
	if title != "" {
		t.Title = title
	}
	if description != nil {
		t.Description = description
	}
	if dueDate != nil {
		t.DueDate = dueDate
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}
