package apiclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caretab/caretab/pkg/querycache"
)

// ErrSchedulingConflict is returned when a candidate slot overlaps a known
// session or meeting. The client-side guard raises it before any network
// call; the server enforces the same rule authoritatively.
var ErrSchedulingConflict = errors.New("scheduling conflict")

// Session is the wire shape of a session.
type Session struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patient_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Type            *string   `json:"type,omitempty"`
	Status          string    `json:"status"`
	Notes           *string   `json:"notes,omitempty"`
}

// EndTime returns the exclusive end of the session interval.
func (s Session) EndTime() time.Time {
	return s.StartTime.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Meeting is a non-session calendar block.
type Meeting struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

func (m Meeting) EndTime() time.Time {
	return m.StartTime.Add(time.Duration(m.DurationMinutes) * time.Minute)
}

// CheckTimeSlotConflicts reports whether [start, start+duration) overlaps any
// scheduled session or meeting, excluding the session identified by
// excludeID. Adjacent intervals do not conflict.
func CheckTimeSlotConflicts(start time.Time, durationMinutes int, sessions []Session, meetings []Meeting, excludeID string) bool {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	for _, s := range sessions {
		if s.ID == excludeID {
			continue
		}
		if s.Status != "scheduled" {
			continue
		}
		if start.Before(s.EndTime()) && s.StartTime.Before(end) {
			return true
		}
	}
	for _, m := range meetings {
		if start.Before(m.EndTime()) && m.StartTime.Before(end) {
			return true
		}
	}
	return false
}

func sessionsKey(clientID string) string {
	return querycache.Key("sessions", "client", clientID)
}

// Sessions lists a client's sessions through the cache. Reads within the
// staleness window share one fetch; failures degrade to an empty slice.
func (c *Client) Sessions(ctx context.Context, clientID string) ([]Session, error) {
	value, err := c.cache.Get(ctx, sessionsKey(clientID), func(ctx context.Context) (interface{}, error) {
		return fetchList[Session](ctx, c, "/api/sessions?patient_id="+clientID)
	})
	if err != nil {
		return []Session{}, err
	}
	sessions, ok := value.([]Session)
	if !ok {
		return []Session{}, nil
	}
	return sessions, nil
}

// ScheduleSessionRequest creates one session, or a weekly series when
// Occurrences > 1.
type ScheduleSessionRequest struct {
	PatientID       string    `json:"patient_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Type            *string   `json:"type,omitempty"`
	Occurrences     int       `json:"occurrences,omitempty"`
}

// ScheduleSessionResult reports created sessions and skipped occurrences.
type ScheduleSessionResult struct {
	Created []Session   `json:"created"`
	Skipped []time.Time `json:"skipped,omitempty"`
}

// ScheduleSession places a session after running the client-side conflict
// guard against the cached calendar.
func (c *Client) ScheduleSession(ctx context.Context, req ScheduleSessionRequest) (*ScheduleSessionResult, error) {
	cached, _ := c.cache.Peek(sessionsKey(req.PatientID))
	if sessions, ok := cached.([]Session); ok && req.Occurrences <= 1 {
		duration := req.DurationMinutes
		if duration <= 0 {
			duration = 50
		}
		if CheckTimeSlotConflicts(req.StartTime, duration, sessions, nil, "") {
			return nil, ErrSchedulingConflict
		}
	}

	body, err := c.post(ctx, "/api/sessions", req)
	if err != nil {
		return nil, err
	}
	result, err := decodeOne[ScheduleSessionResult](body)
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(sessionsKey(req.PatientID))
	return result, nil
}

// CompleteSession transitions a session to completed and invalidates the
// client's session list.
func (c *Client) CompleteSession(ctx context.Context, sessionID, clientID string) (*Session, error) {
	body, err := c.put(ctx, "/api/sessions/"+sessionID+"/complete", nil)
	if err != nil {
		return nil, err
	}
	s, err := decodeOne[Session](body)
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(sessionsKey(clientID))
	return s, nil
}

// NoShowSession marks a session as a no-show. invoiceFee requests that the
// configured no-show fee be billed alongside the status change.
func (c *Client) NoShowSession(ctx context.Context, sessionID, clientID string, invoiceFee bool) (*Session, error) {
	payload := map[string]bool{"invoice_fee": invoiceFee}
	body, err := c.put(ctx, "/api/sessions/"+sessionID+"/no-show", payload)
	if err != nil {
		return nil, err
	}
	s, err := decodeOne[Session](body)
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(sessionsKey(clientID))
	return s, nil
}

// UpdateSessionNotes replaces a session's notes.
func (c *Client) UpdateSessionNotes(ctx context.Context, sessionID, clientID, notes string) error {
	payload := map[string]string{"notes": notes}
	if _, err := c.put(ctx, "/api/sessions/"+sessionID+"/notes", payload); err != nil {
		return err
	}
	c.cache.Invalidate(sessionsKey(clientID))
	return nil
}

// RescheduleSession moves a session optimistically: the cached list is
// patched before the request goes out, rolled back to an exact snapshot on
// failure, and reconciled with server truth on success.
func (c *Client) RescheduleSession(ctx context.Context, sessionID, clientID string, newStart time.Time) error {
	key := sessionsKey(clientID)

	if cached, ok := c.cache.Peek(key); ok {
		if sessions, ok := cached.([]Session); ok {
			duration := 50
			for _, s := range sessions {
				if s.ID == sessionID {
					duration = s.DurationMinutes
					break
				}
			}
			if CheckTimeSlotConflicts(newStart, duration, sessions, nil, sessionID) {
				return ErrSchedulingConflict
			}
		}
	}

	// A stale in-flight response must not clobber the optimistic value.
	c.cache.CancelInflight(key)

	snapshot, hasSnapshot := c.cache.Snapshot(key)
	if hasSnapshot {
		c.cache.SetData(key, func(current interface{}) interface{} {
			sessions, ok := current.([]Session)
			if !ok {
				// Legacy wrapped-shape entries pass through untouched.
				c.logger.Warn().Str("key", key).Msg("cached sessions in unexpected shape, skipping optimistic patch")
				return current
			}
			patched := make([]Session, len(sessions))
			copy(patched, sessions)
			for i := range patched {
				if patched[i].ID == sessionID {
					patched[i].StartTime = newStart
				}
			}
			return patched
		})
	}

	payload := map[string]string{"start_time": newStart.UTC().Format(time.RFC3339)}
	if _, err := c.put(ctx, "/api/sessions/"+sessionID+"/reschedule", payload); err != nil {
		if hasSnapshot {
			c.cache.Restore(key, snapshot)
		}
		return err
	}

	c.cache.Invalidate(key)
	if _, err := c.cache.Refetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		return fetchList[Session](ctx, c, "/api/sessions?patient_id="+clientID)
	}); err != nil {
		return fmt.Errorf("reschedule succeeded but refetch failed: %w", err)
	}
	return nil
}
