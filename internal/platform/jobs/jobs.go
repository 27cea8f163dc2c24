package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionSource is the slice of the session domain the jobs consume.
type SessionSource interface {
	ListUpcoming(ctx context.Context, from, to time.Time) ([]*UpcomingSession, error)
	ListCompletedWithoutNotes(ctx context.Context, since time.Time) ([]*UpcomingSession, error)
}

// UpcomingSession is the projection the jobs need from a session row.
type UpcomingSession struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	StartTime time.Time
}

// InvoiceFlagger flags pending invoices past their due date.
type InvoiceFlagger interface {
	FlagOverdueInvoices(ctx context.Context, asOf time.Time) (int, error)
}

// NoteTaskCreator creates followup tasks for completed sessions missing
// notes.
type NoteTaskCreator interface {
	EnsureSessionNoteTask(ctx context.Context, sessionID, patientID uuid.UUID, sessionStart time.Time) error
}

// Reminder delivers session reminders. The AMQP event publisher backs this
// in production.
type Reminder interface {
	RemindSession(ctx context.Context, sessionID, patientID uuid.UUID, startTime time.Time)
}

type Config struct {
	ReminderWindow time.Duration
}

// Runner owns the cron schedule for background maintenance: session
// reminders, overdue invoice flagging, and session-note followup tasks.
type Runner struct {
	scheduler *gocron.Scheduler
	sessions  SessionSource
	invoices  InvoiceFlagger
	tasks     NoteTaskCreator
	reminder  Reminder
	cfg       Config
	logger    zerolog.Logger

	mu       sync.Mutex
	reminded map[uuid.UUID]struct{}
}

func NewRunner(sessions SessionSource, invoices InvoiceFlagger, tasks NoteTaskCreator,
	reminder Reminder, cfg Config, logger zerolog.Logger) *Runner {
	// A run that outlasts its interval must not overlap the next one.
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()
	return &Runner{
		scheduler: scheduler,
		sessions:  sessions,
		invoices:  invoices,
		tasks:     tasks,
		reminder:  reminder,
		cfg:       cfg,
		logger:    logger.With().Str("component", "jobs").Logger(),
		reminded:  make(map[uuid.UUID]struct{}),
	}
}

// Start registers the jobs and launches the scheduler in the background.
func (r *Runner) Start() error {
	if _, err := r.scheduler.Every(5).Minutes().Do(r.sendSessionReminders); err != nil {
		return err
	}
	if _, err := r.scheduler.Every(1).Hour().Do(r.flagOverdueInvoices); err != nil {
		return err
	}
	if _, err := r.scheduler.Every(30).Minutes().Do(r.createSessionNoteTasks); err != nil {
		return err
	}
	r.scheduler.StartAsync()
	r.logger.Info().Msg("job scheduler started")
	return nil
}

func (r *Runner) Stop() {
	r.scheduler.Stop()
}

func (r *Runner) sendSessionReminders() {
	ctx := context.Background()
	now := time.Now()
	sessions, err := r.sessions.ListUpcoming(ctx, now, now.Add(r.cfg.ReminderWindow))
	if err != nil {
		r.logger.Error().Err(err).Msg("list upcoming sessions")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range sessions {
		if _, done := r.reminded[s.ID]; done {
			continue
		}
		r.reminder.RemindSession(ctx, s.ID, s.PatientID, s.StartTime)
		r.reminded[s.ID] = struct{}{}
	}
	// Drop entries for sessions already in the past.
	for id := range r.reminded {
		found := false
		for _, s := range sessions {
			if s.ID == id {
				found = true
				break
			}
		}
		if !found {
			delete(r.reminded, id)
		}
	}
}

func (r *Runner) flagOverdueInvoices() {
	flagged, err := r.invoices.FlagOverdueInvoices(context.Background(), time.Now())
	if err != nil {
		r.logger.Error().Err(err).Msg("flag overdue invoices")
		return
	}
	if flagged > 0 {
		r.logger.Info().Int("flagged", flagged).Msg("invoices marked overdue")
	}
}

func (r *Runner) createSessionNoteTasks() {
	ctx := context.Background()
	since := time.Now().AddDate(0, 0, -7)
	sessions, err := r.sessions.ListCompletedWithoutNotes(ctx, since)
	if err != nil {
		r.logger.Error().Err(err).Msg("list completed sessions without notes")
		return
	}
	for _, s := range sessions {
		if err := r.tasks.EnsureSessionNoteTask(ctx, s.ID, s.PatientID, s.StartTime); err != nil {
			r.logger.Error().Err(err).Str("session_id", s.ID.String()).Msg("create session note task")
		}
	}
}
