package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== Claim Repository ===========

type claimRepoPG struct{ pool *pgxpool.Pool }

func NewClaimRepoPG(pool *pgxpool.Pool) ClaimRepository { return &claimRepoPG{pool: pool} }

const claimCols = `id, claim_number, patient_id, session_id, date_of_service, charge_amount,
	cpt_code, diagnosis_code, place_of_service, patient_name, patient_dob,
	insurer_name, policy_number, status, created_at, updated_at`

func (r *claimRepoPG) scan(row pgx.Row) (*Claim, error) {
	var c Claim
	err := row.Scan(&c.ID, &c.ClaimNumber, &c.PatientID, &c.SessionID, &c.DateOfService,
		&c.ChargeAmount, &c.CPTCode, &c.DiagnosisCode, &c.PlaceOfService, &c.PatientName,
		&c.PatientDOB, &c.InsurerName, &c.PolicyNumber, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *claimRepoPG) Create(ctx context.Context, c *Claim) error {
	c.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO claim (id, claim_number, patient_id, session_id, date_of_service,
			charge_amount, cpt_code, diagnosis_code, place_of_service, patient_name,
			patient_dob, insurer_name, policy_number, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		c.ID, c.ClaimNumber, c.PatientID, c.SessionID, c.DateOfService,
		c.ChargeAmount, c.CPTCode, c.DiagnosisCode, c.PlaceOfService, c.PatientName,
		c.PatientDOB, c.InsurerName, c.PolicyNumber, c.Status)
	return err
}

func (r *claimRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return r.scan(r.pool.QueryRow(ctx, `SELECT `+claimCols+` FROM claim WHERE id = $1`, id))
}

func (r *claimRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `UPDATE claim SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

func (r *claimRepoPG) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Claim, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	i := 1
	if s, ok := filters["status"]; ok {
		where += fmt.Sprintf(" AND status = $%d", i)
		args = append(args, s)
		i++
	}
	if p, ok := filters["patient_id"]; ok {
		where += fmt.Sprintf(" AND patient_id = $%d", i)
		args = append(args, p)
		i++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM claim`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + claimCols + ` FROM claim` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", i, i+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Claim
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *claimRepoPG) NextClaimNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('claim_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("CLM-%06d", n), nil
}

// =========== Invoice Repository ===========

type invoiceRepoPG struct{ pool *pgxpool.Pool }

func NewInvoiceRepoPG(pool *pgxpool.Pool) InvoiceRepository { return &invoiceRepoPG{pool: pool} }

const invoiceCols = `id, patient_id, session_id, amount, description, service_date,
	status, hosted_url, provider_invoice_id, due_date, created_at, updated_at`

func (r *invoiceRepoPG) scan(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.PatientID, &inv.SessionID, &inv.Amount, &inv.Description,
		&inv.ServiceDate, &inv.Status, &inv.HostedURL, &inv.ProviderInvoiceID, &inv.DueDate,
		&inv.CreatedAt, &inv.UpdatedAt)
	return &inv, err
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO invoice (id, patient_id, session_id, amount, description, service_date,
			status, hosted_url, provider_invoice_id, due_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		inv.ID, inv.PatientID, inv.SessionID, inv.Amount, inv.Description, inv.ServiceDate,
		inv.Status, inv.HostedURL, inv.ProviderInvoiceID, inv.DueDate)
	return err
}

func (r *invoiceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return r.scan(r.pool.QueryRow(ctx, `SELECT `+invoiceCols+` FROM invoice WHERE id = $1`, id))
}

func (r *invoiceRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `UPDATE invoice SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

func (r *invoiceRepoPG) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Invoice, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	i := 1
	if s, ok := filters["status"]; ok {
		where += fmt.Sprintf(" AND status = $%d", i)
		args = append(args, s)
		i++
	}
	if p, ok := filters["patient_id"]; ok {
		where += fmt.Sprintf(" AND patient_id = $%d", i)
		args = append(args, p)
		i++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoice`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + invoiceCols + ` FROM invoice` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", i, i+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Invoice
	for rows.Next() {
		inv, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, rows.Err()
}

func (r *invoiceRepoPG) ListPendingPastDue(ctx context.Context, asOf time.Time) ([]*Invoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceCols+` FROM invoice
		WHERE status = 'pending' AND due_date IS NOT NULL AND due_date < $1
		ORDER BY due_date`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Invoice
	for rows.Next() {
		inv, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, inv)
	}
	return items, rows.Err()
}

// =========== Profile Repository ===========

type profileRepoPG struct{ pool *pgxpool.Pool }

func NewProfileRepoPG(pool *pgxpool.Pool) ProfileRepository { return &profileRepoPG{pool: pool} }

func (r *profileRepoPG) Get(ctx context.Context) (*Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx, `
		SELECT id, practice_name, npi, tax_id, address, phone, banking_status, updated_at
		FROM billing_profile LIMIT 1`).
		Scan(&p.ID, &p.PracticeName, &p.NPI, &p.TaxID, &p.Address, &p.Phone, &p.BankingStatus, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepoPG) Upsert(ctx context.Context, p *Profile) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO billing_profile (id, practice_name, npi, tax_id, address, phone, banking_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			practice_name=EXCLUDED.practice_name, npi=EXCLUDED.npi, tax_id=EXCLUDED.tax_id,
			address=EXCLUDED.address, phone=EXCLUDED.phone, banking_status=EXCLUDED.banking_status,
			updated_at=NOW()`,
		p.ID, p.PracticeName, p.NPI, p.TaxID, p.Address, p.Phone, p.BankingStatus)
	return err
}
