package task

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const taskCols = `id, title, description, type, status, patient_id, session_id, due_date, completed_at, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Type, &t.Status, &t.PatientID,
		&t.SessionID, &t.DueDate, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *Task) error {
	t.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO task (id, title, description, type, status, patient_id, session_id, due_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.Title, t.Description, t.Type, t.Status, t.PatientID, t.SessionID, t.DueDate)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	return r.scan(r.pool.QueryRow(ctx, `SELECT `+taskCols+` FROM task WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, t *Task) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE task SET title=$2, description=$3, status=$4, due_date=$5, completed_at=$6, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Title, t.Description, t.Status, t.DueDate, t.CompletedAt)
	return err
}

func (r *repoPG) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Task, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	i := 1
	if s, ok := filters["status"]; ok {
		where += fmt.Sprintf(" AND status = $%d", i)
		args = append(args, s)
		i++
	}
	if tt, ok := filters["type"]; ok {
		where += fmt.Sprintf(" AND type = $%d", i)
		args = append(args, tt)
		i++
	}
	if p, ok := filters["patient_id"]; ok {
		where += fmt.Sprintf(" AND patient_id = $%d", i)
		args = append(args, p)
		i++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM task`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + taskCols + ` FROM task` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", i, i+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Task
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ExistsForSession(ctx context.Context, sessionID uuid.UUID, taskType string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM task WHERE session_id = $1 AND type = $2)`,
		sessionID, taskType).Scan(&exists)
	return exists, err
}
