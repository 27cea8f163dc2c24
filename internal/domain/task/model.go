package task

import (
	"time"

	"github.com/google/uuid"
)

// Task statuses. Completed tasks get a CompletedAt stamp.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Task types recognized by the workflow jobs.
const (
	TypeSessionNote = "session_note"
	TypeIntakeDocs  = "intake_docs"
	TypeInvoice     = "invoice"
	TypeCustom      = "custom"
)

// Task maps to the task table. SessionID and PatientID link a task back to
// the work it was generated from; both are optional for ad-hoc tasks.
type Task struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description,omitempty"`
	Type        string     `db:"type" json:"type"`
	Status      string     `db:"status" json:"status"`
	PatientID   *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	SessionID   *uuid.UUID `db:"session_id" json:"session_id,omitempty"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

var validTransitions = map[string][]string{
	StatusPending:    {StatusInProgress, StatusCompleted},
	StatusInProgress: {StatusCompleted, StatusPending},
	StatusCompleted:  {},
}

// CanTransition reports whether a status change is allowed. Completed is
// terminal.
func CanTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
