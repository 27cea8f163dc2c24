package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const clientCols = `id, first_name, last_name, email, phone, date_of_birth, gender,
	address_line, city, state, postal_code, billing_type, session_cost, no_show_fee,
	insurer_name, policy_number, diagnosis_code, status, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.DateOfBirth,
		&c.Gender, &c.AddressLine, &c.City, &c.State, &c.PostalCode, &c.BillingType,
		&c.SessionCost, &c.NoShowFee, &c.InsurerName, &c.PolicyNumber, &c.DiagnosisCode,
		&c.Status, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *Client) error {
	c.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO client (id, first_name, last_name, email, phone, date_of_birth, gender,
			address_line, city, state, postal_code, billing_type, session_cost, no_show_fee,
			insurer_name, policy_number, diagnosis_code, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.DateOfBirth, c.Gender,
		c.AddressLine, c.City, c.State, c.PostalCode, c.BillingType, c.SessionCost,
		c.NoShowFee, c.InsurerName, c.PolicyNumber, c.DiagnosisCode, c.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	return r.scan(r.pool.QueryRow(ctx, `SELECT `+clientCols+` FROM client WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, c *Client) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE client SET first_name=$2, last_name=$3, email=$4, phone=$5, date_of_birth=$6,
			gender=$7, address_line=$8, city=$9, state=$10, postal_code=$11, billing_type=$12,
			session_cost=$13, no_show_fee=$14, insurer_name=$15, policy_number=$16,
			diagnosis_code=$17, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.DateOfBirth, c.Gender,
		c.AddressLine, c.City, c.State, c.PostalCode, c.BillingType, c.SessionCost,
		c.NoShowFee, c.InsurerName, c.PolicyNumber, c.DiagnosisCode)
	return err
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `UPDATE client SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

func (r *repoPG) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Client, int, error) {
	query := `SELECT ` + clientCols + ` FROM client WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM client WHERE 1=1`
	var args []interface{}
	idx := 1

	if s, ok := filters["status"]; ok {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, s)
		idx++
	}
	if bt, ok := filters["billing_type"]; ok {
		query += fmt.Sprintf(` AND billing_type = $%d`, idx)
		countQuery += fmt.Sprintf(` AND billing_type = $%d`, idx)
		args = append(args, bt)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Client
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}
