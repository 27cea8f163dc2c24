package session

import (
	"time"

	"github.com/google/uuid"
)

// Interval is a half-open calendar interval [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect. Adjacent
// intervals (a.End == b.Start) do not overlap.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// CheckTimeSlotConflicts reports whether the candidate interval collides with
// any existing session or meeting on the calendar. excludeID removes the
// session being rescheduled from consideration; pass uuid.Nil for new
// placements. Only scheduled sessions occupy their slot; completed and
// no-show sessions do not block the calendar.
func CheckTimeSlotConflicts(candidate Interval, sessions []*Session, meetings []*Meeting, excludeID uuid.UUID) bool {
	for _, s := range sessions {
		if s.ID == excludeID {
			continue
		}
		if s.Status != StatusScheduled {
			continue
		}
		if candidate.Overlaps(Interval{Start: s.StartTime, End: s.EndTime()}) {
			return true
		}
	}
	for _, m := range meetings {
		if candidate.Overlaps(Interval{Start: m.StartTime, End: m.EndTime()}) {
			return true
		}
	}
	return false
}
