package card

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const cardCols = `id, provider_card_id, cardholder_name, last4, brand, exp_month, exp_year,
	type, status, spending_limit, created_at, updated_at`

func (r *repoPG) scan(row pgx.Row) (*Card, error) {
	var c Card
	err := row.Scan(&c.ID, &c.ProviderCardID, &c.CardholderName, &c.Last4, &c.Brand,
		&c.ExpMonth, &c.ExpYear, &c.Type, &c.Status, &c.SpendingLimit, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *repoPG) Create(ctx context.Context, c *Card) error {
	c.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO card (id, provider_card_id, cardholder_name, last4, brand, exp_month,
			exp_year, type, status, spending_limit)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		c.ID, c.ProviderCardID, c.CardholderName, c.Last4, c.Brand, c.ExpMonth,
		c.ExpYear, c.Type, c.Status, c.SpendingLimit)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Card, error) {
	return r.scan(r.pool.QueryRow(ctx, `SELECT `+cardCols+` FROM card WHERE id = $1`, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `UPDATE card SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

func (r *repoPG) UpdateSpendingLimit(ctx context.Context, id uuid.UUID, limit *string) error {
	_, err := r.pool.Exec(ctx, `UPDATE card SET spending_limit=$2, updated_at=NOW() WHERE id = $1`, id, limit)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Card, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM card`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+cardCols+` FROM card
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Card
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

// =========== Transaction Repository ===========

type txRepoPG struct{ pool *pgxpool.Pool }

func NewTransactionRepoPG(pool *pgxpool.Pool) TransactionRepository { return &txRepoPG{pool: pool} }

const txCols = `id, card_id, amount, merchant_name, category, tax_deductible, occurred_at, created_at`

func (r *txRepoPG) scan(row pgx.Row) (*Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.CardID, &t.Amount, &t.MerchantName, &t.Category,
		&t.TaxDeductible, &t.OccurredAt, &t.CreatedAt)
	return &t, err
}

func (r *txRepoPG) Create(ctx context.Context, t *Transaction) error {
	t.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO card_transaction (id, card_id, amount, merchant_name, category, tax_deductible, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		t.ID, t.CardID, t.Amount, t.MerchantName, t.Category, t.TaxDeductible, t.OccurredAt)
	return err
}

func (r *txRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return r.scan(r.pool.QueryRow(ctx, `SELECT `+txCols+` FROM card_transaction WHERE id = $1`, id))
}

func (r *txRepoPG) SetTaxDeductible(ctx context.Context, id uuid.UUID, deductible bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE card_transaction SET tax_deductible=$2 WHERE id = $1`, id, deductible)
	return err
}

func (r *txRepoPG) List(ctx context.Context, cardID *uuid.UUID, from, to time.Time, limit, offset int) ([]*Transaction, int, error) {
	where := ` WHERE occurred_at >= $1 AND occurred_at < $2`
	args := []interface{}{from, to}
	i := 3
	if cardID != nil {
		where += fmt.Sprintf(" AND card_id = $%d", i)
		args = append(args, *cardID)
		i++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM card_transaction`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + txCols + ` FROM card_transaction` + where +
		fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT $%d OFFSET $%d", i, i+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Transaction
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *txRepoPG) ListInRange(ctx context.Context, from, to time.Time) ([]*Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+txCols+` FROM card_transaction
		WHERE occurred_at >= $1 AND occurred_at < $2 ORDER BY occurred_at`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Transaction
	for rows.Next() {
		t, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
