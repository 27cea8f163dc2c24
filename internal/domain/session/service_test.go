package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caretab/caretab/internal/platform/events"
)

type mockRepo struct {
	sessions map[uuid.UUID]*Session
}

func newMockRepo() *mockRepo {
	return &mockRepo{sessions: make(map[uuid.UUID]*Session)}
}

func (m *mockRepo) Create(_ context.Context, s *Session) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = time.Now()
	m.sessions[s.ID] = s
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return s, nil
}

func (m *mockRepo) Update(_ context.Context, s *Session) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	s.Status = status
	return nil
}

func (m *mockRepo) UpdateNotes(_ context.Context, id uuid.UUID, notes string) error {
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	s.Notes = &notes
	return nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	var items []*Session
	for _, s := range m.sessions {
		if s.PatientID == patientID {
			items = append(items, s)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) ListInRange(_ context.Context, from, to time.Time) ([]*Session, error) {
	candidate := Interval{Start: from, End: to}
	var items []*Session
	for _, s := range m.sessions {
		if candidate.Overlaps(Interval{Start: s.StartTime, End: s.EndTime()}) {
			items = append(items, s)
		}
	}
	return items, nil
}

func (m *mockRepo) ListUpcoming(_ context.Context, from, to time.Time) ([]*Session, error) {
	var items []*Session
	for _, s := range m.sessions {
		if s.Status == StatusScheduled && !s.StartTime.Before(from) && !s.StartTime.After(to) {
			items = append(items, s)
		}
	}
	return items, nil
}

func (m *mockRepo) ListCompletedWithoutNotes(_ context.Context, since time.Time) ([]*Session, error) {
	var items []*Session
	for _, s := range m.sessions {
		if s.Status == StatusCompleted && (s.Notes == nil || *s.Notes == "") {
			items = append(items, s)
		}
	}
	return items, nil
}

type mockMeetingRepo struct {
	meetings map[uuid.UUID]*Meeting
}

func newMockMeetingRepo() *mockMeetingRepo {
	return &mockMeetingRepo{meetings: make(map[uuid.UUID]*Meeting)}
}

func (m *mockMeetingRepo) Create(_ context.Context, mt *Meeting) error {
	mt.ID = uuid.New()
	m.meetings[mt.ID] = mt
	return nil
}

func (m *mockMeetingRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.meetings, id)
	return nil
}

func (m *mockMeetingRepo) ListInRange(_ context.Context, from, to time.Time) ([]*Meeting, error) {
	candidate := Interval{Start: from, End: to}
	var items []*Meeting
	for _, mt := range m.meetings {
		if candidate.Overlaps(Interval{Start: mt.StartTime, End: mt.EndTime()}) {
			items = append(items, mt)
		}
	}
	return items, nil
}

type mockBilling struct {
	fee      *string
	feeErr   error
	invoiced []struct {
		patientID uuid.UUID
		sessionID uuid.UUID
		amount    string
	}
}

func (m *mockBilling) NoShowCharge(_ context.Context, patientID uuid.UUID) (*string, error) {
	return m.fee, m.feeErr
}

func (m *mockBilling) CreateNoShowInvoice(_ context.Context, patientID, sessionID uuid.UUID, amount string) error {
	m.invoiced = append(m.invoiced, struct {
		patientID uuid.UUID
		sessionID uuid.UUID
		amount    string
	}{patientID, sessionID, amount})
	return nil
}

func newTestService() (*Service, *mockRepo, *mockMeetingRepo, *mockBilling) {
	repo := newMockRepo()
	meetings := newMockMeetingRepo()
	billing := &mockBilling{}
	svc := NewService(repo, meetings, billing, events.NopPublisher{}, zerolog.Nop())
	return svc, repo, meetings, billing
}

func scheduled(repo *mockRepo, patientID uuid.UUID, start time.Time, minutes int) *Session {
	s := &Session{PatientID: patientID, StartTime: start, DurationMinutes: minutes, Status: StatusScheduled}
	repo.Create(context.Background(), s)
	return s
}

func TestSchedule_Single(t *testing.T) {
	svc, _, _, _ := newTestService()
	start := mustTime(t, "2025-03-01T14:00:00Z")

	result, err := svc.Schedule(context.Background(), &ScheduleRequest{
		PatientID: uuid.New(),
		StartTime: start,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Created) != 1 {
		t.Fatalf("expected 1 session, got %d", len(result.Created))
	}
	s := result.Created[0]
	if s.DurationMinutes != defaultDurationMinutes {
		t.Errorf("expected default duration %d, got %d", defaultDurationMinutes, s.DurationMinutes)
	}
	if s.Status != StatusScheduled {
		t.Errorf("expected scheduled status, got %s", s.Status)
	}
}

func TestSchedule_ConflictRejected(t *testing.T) {
	svc, repo, _, _ := newTestService()
	start := mustTime(t, "2025-03-01T14:00:00Z")
	scheduled(repo, uuid.New(), start, 50)

	_, err := svc.Schedule(context.Background(), &ScheduleRequest{
		PatientID:       uuid.New(),
		StartTime:       start.Add(30 * time.Minute),
		DurationMinutes: 50,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestSchedule_AdjacentSlotAllowed(t *testing.T) {
	svc, repo, _, _ := newTestService()
	start := mustTime(t, "2025-03-01T14:00:00Z")
	scheduled(repo, uuid.New(), start, 50)

	result, err := svc.Schedule(context.Background(), &ScheduleRequest{
		PatientID:       uuid.New(),
		StartTime:       start.Add(50 * time.Minute),
		DurationMinutes: 50,
	})
	if err != nil {
		t.Fatalf("expected back-to-back slot to be allowed, got %v", err)
	}
	if len(result.Created) != 1 {
		t.Fatalf("expected 1 session, got %d", len(result.Created))
	}
}

func TestSchedule_RecurringSkipsConflicts(t *testing.T) {
	svc, repo, _, _ := newTestService()
	start := mustTime(t, "2025-03-01T14:00:00Z")
	// Block week 2 of the series.
	scheduled(repo, uuid.New(), start.AddDate(0, 0, 7), 50)

	result, err := svc.Schedule(context.Background(), &ScheduleRequest{
		PatientID:       uuid.New(),
		StartTime:       start,
		DurationMinutes: 50,
		Occurrences:     3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Created) != 2 {
		t.Errorf("expected 2 created, got %d", len(result.Created))
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("expected 1 skipped occurrence, got %d", len(result.Skipped))
	}
	if !result.Skipped[0].Equal(start.AddDate(0, 0, 7)) {
		t.Errorf("expected week 2 skipped, got %v", result.Skipped[0])
	}
}

func TestReschedule_MovesSlot(t *testing.T) {
	svc, repo, _, _ := newTestService()
	start := mustTime(t, "2025-03-01T14:00:00Z")
	s := scheduled(repo, uuid.New(), start, 50)

	newStart := mustTime(t, "2025-03-02T10:00:00Z")
	moved, err := svc.Reschedule(context.Background(), s.ID, &RescheduleRequest{StartTime: newStart})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !moved.StartTime.Equal(newStart) {
		t.Errorf("expected start %v, got %v", newStart, moved.StartTime)
	}
	if moved.Status != StatusScheduled {
		t.Errorf("reschedule must not change status, got %s", moved.Status)
	}
	if moved.DurationMinutes != 50 {
		t.Errorf("expected duration carried over, got %d", moved.DurationMinutes)
	}
}

func TestReschedule_ExcludesSelfFromConflictCheck(t *testing.T) {
	svc, repo, _, _ := newTestService()
	start := mustTime(t, "2025-03-01T14:00:00Z")
	s := scheduled(repo, uuid.New(), start, 50)

	// Shift by 15 minutes: overlaps the session's own old slot only.
	moved, err := svc.Reschedule(context.Background(), s.ID, &RescheduleRequest{StartTime: start.Add(15 * time.Minute)})
	if err != nil {
		t.Fatalf("expected self-overlap to be ignored, got %v", err)
	}
	if !moved.StartTime.Equal(start.Add(15 * time.Minute)) {
		t.Errorf("expected moved start, got %v", moved.StartTime)
	}
}

func TestReschedule_ConflictWithOtherSession(t *testing.T) {
	svc, repo, _, _ := newTestService()
	start := mustTime(t, "2025-03-01T14:00:00Z")
	s := scheduled(repo, uuid.New(), start, 50)
	other := mustTime(t, "2025-03-01T16:00:00Z")
	scheduled(repo, uuid.New(), other, 50)

	_, err := svc.Reschedule(context.Background(), s.ID, &RescheduleRequest{StartTime: other.Add(20 * time.Minute)})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if got := repo.sessions[s.ID].StartTime; !got.Equal(start) {
		t.Errorf("failed reschedule must not move the session, got %v", got)
	}
}

func TestReschedule_RejectsTerminalStatus(t *testing.T) {
	svc, repo, _, _ := newTestService()
	s := scheduled(repo, uuid.New(), mustTime(t, "2025-03-01T14:00:00Z"), 50)
	repo.UpdateStatus(context.Background(), s.ID, StatusCompleted)

	_, err := svc.Reschedule(context.Background(), s.ID, &RescheduleRequest{
		StartTime: mustTime(t, "2025-03-02T10:00:00Z"),
	})
	if err == nil {
		t.Error("expected error rescheduling a completed session")
	}
}

func TestComplete(t *testing.T) {
	svc, repo, _, _ := newTestService()
	s := scheduled(repo, uuid.New(), mustTime(t, "2025-03-01T14:00:00Z"), 50)

	done, err := svc.Complete(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", done.Status)
	}

	if _, err := svc.Complete(context.Background(), s.ID); err == nil {
		t.Error("expected error completing twice")
	}
}

func TestNoShow_WithoutFee(t *testing.T) {
	svc, repo, _, billing := newTestService()
	s := scheduled(repo, uuid.New(), mustTime(t, "2025-03-01T14:00:00Z"), 50)

	got, err := svc.NoShow(context.Background(), s.ID, &NoShowRequest{InvoiceFee: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusNoShow {
		t.Errorf("expected no_show, got %s", got.Status)
	}
	if len(billing.invoiced) != 0 {
		t.Errorf("expected no invoice, got %d", len(billing.invoiced))
	}
}

func TestNoShow_InvoicesFee(t *testing.T) {
	svc, repo, _, billing := newTestService()
	fee := "75.00"
	billing.fee = &fee
	patientID := uuid.New()
	s := scheduled(repo, patientID, mustTime(t, "2025-03-01T14:00:00Z"), 50)

	got, err := svc.NoShow(context.Background(), s.ID, &NoShowRequest{InvoiceFee: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusNoShow {
		t.Errorf("expected no_show, got %s", got.Status)
	}
	if len(billing.invoiced) != 1 {
		t.Fatalf("expected 1 invoice call, got %d", len(billing.invoiced))
	}
	inv := billing.invoiced[0]
	if inv.patientID != patientID || inv.sessionID != s.ID || inv.amount != "75.00" {
		t.Errorf("unexpected invoice call: %+v", inv)
	}
}

func TestNoShow_FeeMissing(t *testing.T) {
	svc, repo, _, billing := newTestService()
	s := scheduled(repo, uuid.New(), mustTime(t, "2025-03-01T14:00:00Z"), 50)

	got, err := svc.NoShow(context.Background(), s.ID, &NoShowRequest{InvoiceFee: true})
	if !errors.Is(err, ErrNoFeeConfigured) {
		t.Fatalf("expected ErrNoFeeConfigured, got %v", err)
	}
	if got == nil || got.Status != StatusNoShow {
		t.Error("status change must survive the fee failure")
	}
	if len(billing.invoiced) != 0 {
		t.Errorf("expected no invoice, got %d", len(billing.invoiced))
	}
}

func TestCreateMeeting_ConflictsWithSession(t *testing.T) {
	svc, repo, _, _ := newTestService()
	start := mustTime(t, "2025-03-01T14:00:00Z")
	scheduled(repo, uuid.New(), start, 50)

	err := svc.CreateMeeting(context.Background(), &Meeting{
		Title:           "intake review",
		StartTime:       start.Add(30 * time.Minute),
		DurationMinutes: 30,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateNotes(t *testing.T) {
	svc, repo, _, _ := newTestService()
	s := scheduled(repo, uuid.New(), mustTime(t, "2025-03-01T14:00:00Z"), 50)

	if err := svc.UpdateNotes(context.Background(), s.ID, "attended, discussed goals"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.sessions[s.ID].Notes == nil || *repo.sessions[s.ID].Notes != "attended, discussed goals" {
		t.Error("expected notes persisted")
	}
}
