package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fakeSessions struct {
	upcoming []*UpcomingSession
	noteless []*UpcomingSession
}

func (f *fakeSessions) ListUpcoming(_ context.Context, _, _ time.Time) ([]*UpcomingSession, error) {
	return f.upcoming, nil
}

func (f *fakeSessions) ListCompletedWithoutNotes(_ context.Context, _ time.Time) ([]*UpcomingSession, error) {
	return f.noteless, nil
}

type fakeFlagger struct{ calls int }

func (f *fakeFlagger) FlagOverdueInvoices(_ context.Context, _ time.Time) (int, error) {
	f.calls++
	return 0, nil
}

type fakeTasks struct{ created []uuid.UUID }

func (f *fakeTasks) EnsureSessionNoteTask(_ context.Context, sessionID, _ uuid.UUID, _ time.Time) error {
	f.created = append(f.created, sessionID)
	return nil
}

type fakeReminder struct{ sent []uuid.UUID }

func (f *fakeReminder) RemindSession(_ context.Context, sessionID, _ uuid.UUID, _ time.Time) {
	f.sent = append(f.sent, sessionID)
}

func newTestRunner(sessions *fakeSessions) (*Runner, *fakeReminder, *fakeTasks) {
	reminder := &fakeReminder{}
	tasks := &fakeTasks{}
	r := NewRunner(sessions, &fakeFlagger{}, tasks, reminder,
		Config{ReminderWindow: time.Hour}, zerolog.Nop())
	return r, reminder, tasks
}

func TestSendSessionReminders_Deduplicates(t *testing.T) {
	s := &UpcomingSession{ID: uuid.New(), PatientID: uuid.New(), StartTime: time.Now().Add(30 * time.Minute)}
	sessions := &fakeSessions{upcoming: []*UpcomingSession{s}}
	r, reminder, _ := newTestRunner(sessions)

	r.sendSessionReminders()
	r.sendSessionReminders()

	if len(reminder.sent) != 1 {
		t.Errorf("expected exactly 1 reminder, got %d", len(reminder.sent))
	}
}

func TestSendSessionReminders_ConcurrentRunsStayDeduplicated(t *testing.T) {
	upcoming := make([]*UpcomingSession, 5)
	for i := range upcoming {
		upcoming[i] = &UpcomingSession{ID: uuid.New(), PatientID: uuid.New(), StartTime: time.Now().Add(30 * time.Minute)}
	}
	sessions := &fakeSessions{upcoming: upcoming}
	r, reminder, _ := newTestRunner(sessions)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.sendSessionReminders()
		}()
	}
	wg.Wait()

	if len(reminder.sent) != len(upcoming) {
		t.Errorf("expected %d reminders across overlapping runs, got %d", len(upcoming), len(reminder.sent))
	}
}

func TestSendSessionReminders_ForgetsPastSessions(t *testing.T) {
	s := &UpcomingSession{ID: uuid.New(), PatientID: uuid.New(), StartTime: time.Now().Add(30 * time.Minute)}
	sessions := &fakeSessions{upcoming: []*UpcomingSession{s}}
	r, reminder, _ := newTestRunner(sessions)

	r.sendSessionReminders()
	sessions.upcoming = nil
	r.sendSessionReminders()
	if len(r.reminded) != 0 {
		t.Error("expected reminded set pruned once session left the window")
	}
	if len(reminder.sent) != 1 {
		t.Errorf("expected 1 reminder, got %d", len(reminder.sent))
	}
}

func TestCreateSessionNoteTasks(t *testing.T) {
	a := &UpcomingSession{ID: uuid.New(), PatientID: uuid.New(), StartTime: time.Now().Add(-24 * time.Hour)}
	b := &UpcomingSession{ID: uuid.New(), PatientID: uuid.New(), StartTime: time.Now().Add(-48 * time.Hour)}
	sessions := &fakeSessions{noteless: []*UpcomingSession{a, b}}
	r, _, tasks := newTestRunner(sessions)

	r.createSessionNoteTasks()

	if len(tasks.created) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks.created))
	}
}
