package session

import (
	"time"

	"github.com/google/uuid"
)

// Session statuses. A session starts scheduled and terminates as either
// completed or no_show; reschedule moves the slot without changing status.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusNoShow    = "no_show"
)

// Session maps to the session table. The occupied calendar interval is
// [StartTime, StartTime + DurationMinutes).
type Session struct {
	ID              uuid.UUID `db:"id" json:"id"`
	PatientID       uuid.UUID `db:"patient_id" json:"patient_id"`
	StartTime       time.Time `db:"start_time" json:"start_time"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Type            *string   `db:"type" json:"type,omitempty"`
	Status          string    `db:"status" json:"status"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// EndTime returns the exclusive end of the session interval.
func (s *Session) EndTime() time.Time {
	return s.StartTime.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Meeting maps to the meeting table: non-session calendar blocks that
// participate in conflict checking.
type Meeting struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	StartTime       time.Time `db:"start_time" json:"start_time"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// EndTime returns the exclusive end of the meeting interval.
func (m *Meeting) EndTime() time.Time {
	return m.StartTime.Add(time.Duration(m.DurationMinutes) * time.Minute)
}

// Per-action request types. Each action has its own endpoint and payload
// rather than a generic update with a string discriminator.

// ScheduleRequest creates a single session, or a weekly recurring series
// when Occurrences > 1.
type ScheduleRequest struct {
	PatientID       uuid.UUID `json:"patient_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Type            *string   `json:"type,omitempty"`
	Occurrences     int       `json:"occurrences,omitempty"`
}

// RescheduleRequest moves a scheduled session to a new slot.
type RescheduleRequest struct {
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
}

// NoShowRequest marks a session as a no-show. InvoiceFee requests that the
// client's configured no-show fee be invoiced alongside the status change.
type NoShowRequest struct {
	InvoiceFee bool `json:"invoice_fee"`
}

// NotesRequest replaces the session notes.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// ScheduleResult reports the outcome of a recurring schedule request:
// sessions that were placed and occurrence start times skipped because of
// conflicts.
type ScheduleResult struct {
	Created []*Session  `json:"created"`
	Skipped []time.Time `json:"skipped,omitempty"`
}
