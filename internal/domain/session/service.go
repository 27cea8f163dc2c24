package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caretab/caretab/internal/platform/events"
)

// ErrConflict is returned when a candidate slot overlaps an existing session
// or meeting.
var ErrConflict = errors.New("scheduling conflict")

// ErrNoFeeConfigured is returned when a no-show invoice is requested but the
// client has neither a no-show fee nor a session cost configured.
var ErrNoFeeConfigured = errors.New("no no-show fee configured for client")

const (
	defaultDurationMinutes = 50
	maxOccurrences         = 52
)

// BillingGateway is the slice of the billing workflow the session actions
// need: fee lookup and no-show invoice creation.
type BillingGateway interface {
	NoShowCharge(ctx context.Context, patientID uuid.UUID) (*string, error)
	CreateNoShowInvoice(ctx context.Context, patientID, sessionID uuid.UUID, amount string) error
}

type Service struct {
	repo     Repository
	meetings MeetingRepository
	billing  BillingGateway
	events   events.Publisher
	logger   zerolog.Logger
}

func NewService(repo Repository, meetings MeetingRepository, billing BillingGateway, pub events.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		meetings: meetings,
		billing:  billing,
		events:   pub,
		logger:   logger.With().Str("component", "session").Logger(),
	}
}

// checkConflicts loads every interval that could collide with the candidate
// and runs the pure overlap check. excludeID removes the session being moved.
func (s *Service) checkConflicts(ctx context.Context, candidate Interval, excludeID uuid.UUID) error {
	sessions, err := s.repo.ListInRange(ctx, candidate.Start, candidate.End)
	if err != nil {
		return fmt.Errorf("load sessions for conflict check: %w", err)
	}
	meetings, err := s.meetings.ListInRange(ctx, candidate.Start, candidate.End)
	if err != nil {
		return fmt.Errorf("load meetings for conflict check: %w", err)
	}
	if CheckTimeSlotConflicts(candidate, sessions, meetings, excludeID) {
		return ErrConflict
	}
	return nil
}

// Schedule places a single session, or a weekly series when Occurrences > 1.
// Each occurrence is conflict-checked independently; in a series, conflicting
// occurrences are skipped and reported instead of failing the batch.
func (s *Service) Schedule(ctx context.Context, req *ScheduleRequest) (*ScheduleResult, error) {
	if req.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if req.StartTime.IsZero() {
		return nil, fmt.Errorf("start_time is required")
	}
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = defaultDurationMinutes
	}
	occurrences := req.Occurrences
	if occurrences <= 0 {
		occurrences = 1
	}
	if occurrences > maxOccurrences {
		return nil, fmt.Errorf("occurrences must not exceed %d", maxOccurrences)
	}

	result := &ScheduleResult{}
	for i := 0; i < occurrences; i++ {
		start := req.StartTime.AddDate(0, 0, 7*i)
		candidate := Interval{Start: start, End: start.Add(time.Duration(req.DurationMinutes) * time.Minute)}

		if err := s.checkConflicts(ctx, candidate, uuid.Nil); err != nil {
			if errors.Is(err, ErrConflict) {
				if occurrences == 1 {
					return nil, ErrConflict
				}
				result.Skipped = append(result.Skipped, start)
				continue
			}
			return nil, err
		}

		sess := &Session{
			PatientID:       req.PatientID,
			StartTime:       start,
			DurationMinutes: req.DurationMinutes,
			Type:            req.Type,
			Status:          StatusScheduled,
		}
		if err := s.repo.Create(ctx, sess); err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		result.Created = append(result.Created, sess)
		s.events.Publish(ctx, events.SessionScheduled, sess)
	}

	return result, nil
}

// Reschedule moves a scheduled session to a new slot. The session keeps its
// scheduled status; the move is rejected if the target interval conflicts
// with anything other than the session itself.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req *RescheduleRequest) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	if sess.Status != StatusScheduled {
		return nil, fmt.Errorf("cannot reschedule a %s session", sess.Status)
	}
	if req.StartTime.IsZero() {
		return nil, fmt.Errorf("start_time is required")
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = sess.DurationMinutes
	}
	candidate := Interval{Start: req.StartTime, End: req.StartTime.Add(time.Duration(duration) * time.Minute)}
	if err := s.checkConflicts(ctx, candidate, id); err != nil {
		return nil, err
	}

	sess.StartTime = req.StartTime
	sess.DurationMinutes = duration
	if err := s.repo.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	s.events.Publish(ctx, events.SessionRescheduled, sess)
	return sess, nil
}

// Complete transitions a scheduled session to completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	if sess.Status != StatusScheduled {
		return nil, fmt.Errorf("cannot complete a %s session", sess.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusCompleted); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	sess.Status = StatusCompleted
	s.events.Publish(ctx, events.SessionCompleted, sess)
	return sess, nil
}

// NoShow transitions a scheduled session to no_show. When InvoiceFee is set,
// the client's no-show fee (falling back to session cost) is invoiced after
// the status change; a missing fee leaves the status change in place and
// reports ErrNoFeeConfigured.
func (s *Service) NoShow(ctx context.Context, id uuid.UUID, req *NoShowRequest) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	if sess.Status != StatusScheduled {
		return nil, fmt.Errorf("cannot mark a %s session as no-show", sess.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusNoShow); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	sess.Status = StatusNoShow
	s.events.Publish(ctx, events.SessionNoShow, sess)

	if !req.InvoiceFee {
		return sess, nil
	}

	fee, err := s.billing.NoShowCharge(ctx, sess.PatientID)
	if err != nil {
		return sess, fmt.Errorf("look up no-show fee: %w", err)
	}
	if fee == nil {
		return sess, ErrNoFeeConfigured
	}
	if err := s.billing.CreateNoShowInvoice(ctx, sess.PatientID, sess.ID, *fee); err != nil {
		return sess, fmt.Errorf("create no-show invoice: %w", err)
	}
	return sess, nil
}

// UpdateNotes replaces the session notes.
func (s *Service) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	return s.repo.UpdateNotes(ctx, id, notes)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// Calendar returns sessions and meetings intersecting [from, to).
func (s *Service) Calendar(ctx context.Context, from, to time.Time) ([]*Session, []*Meeting, error) {
	sessions, err := s.repo.ListInRange(ctx, from, to)
	if err != nil {
		return nil, nil, err
	}
	meetings, err := s.meetings.ListInRange(ctx, from, to)
	if err != nil {
		return nil, nil, err
	}
	return sessions, meetings, nil
}

// CreateMeeting places a calendar block after conflict-checking it against
// sessions and other meetings.
func (s *Service) CreateMeeting(ctx context.Context, m *Meeting) error {
	if m.Title == "" {
		return fmt.Errorf("title is required")
	}
	if m.StartTime.IsZero() {
		return fmt.Errorf("start_time is required")
	}
	if m.DurationMinutes <= 0 {
		return fmt.Errorf("duration_minutes must be positive")
	}
	candidate := Interval{Start: m.StartTime, End: m.EndTime()}
	if err := s.checkConflicts(ctx, candidate, uuid.Nil); err != nil {
		return err
	}
	return s.meetings.Create(ctx, m)
}

func (s *Service) DeleteMeeting(ctx context.Context, id uuid.UUID) error {
	return s.meetings.Delete(ctx, id)
}
