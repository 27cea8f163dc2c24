package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const sessionCols = `id, patient_id, start_time, duration_minutes, type, status, notes, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.PatientID, &s.StartTime, &s.DurationMinutes, &s.Type,
		&s.Status, &s.Notes, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *repoPG) Create(ctx context.Context, s *Session) error {
	s.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO session (id, patient_id, start_time, duration_minutes, type, status)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.PatientID, s.StartTime, s.DurationMinutes, s.Type, s.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	return r.scan(r.pool.QueryRow(ctx, `SELECT `+sessionCols+` FROM session WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, s *Session) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE session SET start_time=$2, duration_minutes=$3, type=$4, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.StartTime, s.DurationMinutes, s.Type)
	return err
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `UPDATE session SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

func (r *repoPG) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error {
	_, err := r.pool.Exec(ctx, `UPDATE session SET notes=$2, updated_at=NOW() WHERE id = $1`, id, notes)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM session WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+sessionCols+` FROM session WHERE patient_id = $1
		ORDER BY start_time DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Session
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListInRange(ctx context.Context, from, to time.Time) ([]*Session, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sessionCols+` FROM session
		WHERE start_time < $2 AND start_time + (duration_minutes || ' minutes')::interval > $1
		ORDER BY start_time`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Session
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *repoPG) ListUpcoming(ctx context.Context, from, to time.Time) ([]*Session, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sessionCols+` FROM session
		WHERE status = 'scheduled' AND start_time BETWEEN $1 AND $2
		ORDER BY start_time`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Session
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *repoPG) ListCompletedWithoutNotes(ctx context.Context, since time.Time) ([]*Session, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sessionCols+` FROM session
		WHERE status = 'completed' AND (notes IS NULL OR notes = '') AND updated_at >= $1
		ORDER BY start_time`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Session
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// =========== Meeting Repository ===========

type meetingRepoPG struct{ pool *pgxpool.Pool }

func NewMeetingRepoPG(pool *pgxpool.Pool) MeetingRepository { return &meetingRepoPG{pool: pool} }

func (r *meetingRepoPG) Create(ctx context.Context, m *Meeting) error {
	m.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO meeting (id, title, start_time, duration_minutes)
		VALUES ($1,$2,$3,$4)`,
		m.ID, m.Title, m.StartTime, m.DurationMinutes)
	return err
}

func (r *meetingRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM meeting WHERE id = $1`, id)
	return err
}

func (r *meetingRepoPG) ListInRange(ctx context.Context, from, to time.Time) ([]*Meeting, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, title, start_time, duration_minutes, created_at FROM meeting
		WHERE start_time < $2 AND start_time + (duration_minutes || ' minutes')::interval > $1
		ORDER BY start_time`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Meeting
	for rows.Next() {
		var m Meeting
		if err := rows.Scan(&m.ID, &m.Title, &m.StartTime, &m.DurationMinutes, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &m)
	}
	return items, rows.Err()
}
