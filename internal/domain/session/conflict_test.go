package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad time literal %q: %v", value, err)
	}
	return ts
}

func interval(t *testing.T, start string, minutes int) Interval {
	t.Helper()
	s := mustTime(t, start)
	return Interval{Start: s, End: s.Add(time.Duration(minutes) * time.Minute)}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name    string
		a, b    Interval
		overlap bool
	}{
		{
			name:    "partial overlap",
			a:       interval(t, "2025-03-01T14:00:00Z", 50),
			b:       interval(t, "2025-03-01T14:30:00Z", 50),
			overlap: true,
		},
		{
			name:    "containment",
			a:       interval(t, "2025-03-01T14:00:00Z", 120),
			b:       interval(t, "2025-03-01T14:30:00Z", 30),
			overlap: true,
		},
		{
			name:    "back to back does not overlap",
			a:       interval(t, "2025-03-01T14:00:00Z", 50),
			b:       interval(t, "2025-03-01T14:50:00Z", 50),
			overlap: false,
		},
		{
			name:    "disjoint",
			a:       interval(t, "2025-03-01T14:00:00Z", 50),
			b:       interval(t, "2025-03-01T16:00:00Z", 50),
			overlap: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Overlaps(tc.b); got != tc.overlap {
				t.Errorf("a.Overlaps(b) = %v, want %v", got, tc.overlap)
			}
			if got := tc.b.Overlaps(tc.a); got != tc.overlap {
				t.Errorf("b.Overlaps(a) = %v, want %v", got, tc.overlap)
			}
		})
	}
}

func TestCheckTimeSlotConflicts(t *testing.T) {
	existing := &Session{
		ID:              uuid.New(),
		StartTime:       mustTime(t, "2025-03-01T14:00:00Z"),
		DurationMinutes: 50,
		Status:          StatusScheduled,
	}

	t.Run("overlapping session conflicts", func(t *testing.T) {
		candidate := interval(t, "2025-03-01T14:30:00Z", 50)
		if !CheckTimeSlotConflicts(candidate, []*Session{existing}, nil, uuid.Nil) {
			t.Error("expected conflict")
		}
	})

	t.Run("adjacent session does not conflict", func(t *testing.T) {
		candidate := interval(t, "2025-03-01T14:50:00Z", 50)
		if CheckTimeSlotConflicts(candidate, []*Session{existing}, nil, uuid.Nil) {
			t.Error("expected no conflict for back-to-back slot")
		}
	})

	t.Run("excluded session is ignored", func(t *testing.T) {
		candidate := interval(t, "2025-03-01T14:30:00Z", 50)
		if CheckTimeSlotConflicts(candidate, []*Session{existing}, nil, existing.ID) {
			t.Error("expected no conflict when the session itself is excluded")
		}
	})

	t.Run("completed session does not block", func(t *testing.T) {
		done := &Session{
			ID:              uuid.New(),
			StartTime:       existing.StartTime,
			DurationMinutes: 50,
			Status:          StatusCompleted,
		}
		candidate := interval(t, "2025-03-01T14:00:00Z", 50)
		if CheckTimeSlotConflicts(candidate, []*Session{done}, nil, uuid.Nil) {
			t.Error("expected completed session not to occupy its slot")
		}
	})

	t.Run("meeting conflicts", func(t *testing.T) {
		m := &Meeting{
			ID:              uuid.New(),
			Title:           "staff sync",
			StartTime:       mustTime(t, "2025-03-01T15:00:00Z"),
			DurationMinutes: 60,
		}
		candidate := interval(t, "2025-03-01T15:30:00Z", 50)
		if !CheckTimeSlotConflicts(candidate, nil, []*Meeting{m}, uuid.Nil) {
			t.Error("expected conflict with meeting")
		}
	})
}
