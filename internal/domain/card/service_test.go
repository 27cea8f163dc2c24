package card

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caretab/caretab/internal/platform/events"
)

type mockRepo struct {
	cards map[uuid.UUID]*Card
}

func newMockRepo() *mockRepo {
	return &mockRepo{cards: make(map[uuid.UUID]*Card)}
}

func (m *mockRepo) Create(_ context.Context, c *Card) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.cards[c.ID] = c
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Card, error) {
	c, ok := m.cards[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return c, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	c, ok := m.cards[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	c.Status = status
	return nil
}

func (m *mockRepo) UpdateSpendingLimit(_ context.Context, id uuid.UUID, limit *string) error {
	c, ok := m.cards[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	c.SpendingLimit = limit
	return nil
}

func (m *mockRepo) List(_ context.Context, _, _ int) ([]*Card, int, error) {
	var items []*Card
	for _, c := range m.cards {
		items = append(items, c)
	}
	return items, len(items), nil
}

type mockTxRepo struct {
	txs map[uuid.UUID]*Transaction
}

func newMockTxRepo() *mockTxRepo {
	return &mockTxRepo{txs: make(map[uuid.UUID]*Transaction)}
}

func (m *mockTxRepo) Create(_ context.Context, t *Transaction) error {
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	m.txs[t.ID] = t
	return nil
}

func (m *mockTxRepo) GetByID(_ context.Context, id uuid.UUID) (*Transaction, error) {
	t, ok := m.txs[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return t, nil
}

func (m *mockTxRepo) SetTaxDeductible(_ context.Context, id uuid.UUID, deductible bool) error {
	t, ok := m.txs[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	t.TaxDeductible = deductible
	return nil
}

func (m *mockTxRepo) List(_ context.Context, cardID *uuid.UUID, from, to time.Time, _, _ int) ([]*Transaction, int, error) {
	items, err := m.ListInRange(context.Background(), from, to)
	if err != nil {
		return nil, 0, err
	}
	if cardID != nil {
		var filtered []*Transaction
		for _, t := range items {
			if t.CardID == *cardID {
				filtered = append(filtered, t)
			}
		}
		items = filtered
	}
	return items, len(items), nil
}

func (m *mockTxRepo) ListInRange(_ context.Context, from, to time.Time) ([]*Transaction, error) {
	var items []*Transaction
	for _, t := range m.txs {
		if !t.OccurredAt.Before(from) && t.OccurredAt.Before(to) {
			items = append(items, t)
		}
	}
	return items, nil
}

func newTestService() (*Service, *mockRepo, *mockTxRepo) {
	cards := newMockRepo()
	txs := newMockTxRepo()
	svc := NewService(cards, txs, StaticIssuer{}, events.NopPublisher{}, zerolog.Nop())
	return svc, cards, txs
}

func TestIssue_Defaults(t *testing.T) {
	svc, _, _ := newTestService()
	c, err := svc.Issue(context.Background(), &IssueRequest{CardholderName: "Dana Reyes"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != StatusActive {
		t.Errorf("expected active, got %s", c.Status)
	}
	if c.Type != TypeVirtual {
		t.Errorf("expected virtual default, got %s", c.Type)
	}
	if c.ProviderCardID == "" || c.Last4 == "" {
		t.Error("expected provider metadata mirrored")
	}
}

func TestIssue_RejectsBadLimit(t *testing.T) {
	svc, _, _ := newTestService()
	limit := "unlimited"
	_, err := svc.Issue(context.Background(), &IssueRequest{CardholderName: "Dana", SpendingLimit: &limit})
	if err == nil {
		t.Error("expected error for non-decimal limit")
	}
}

func TestChangeStatus_Transitions(t *testing.T) {
	cases := []struct {
		from, to string
		allow    bool
	}{
		{StatusActive, StatusInactive, true},
		{StatusInactive, StatusActive, true},
		{StatusActive, StatusCanceled, true},
		{StatusInactive, StatusCanceled, true},
		{StatusCanceled, StatusActive, false},
		{StatusCanceled, StatusInactive, false},
	}

	for _, tc := range cases {
		t.Run(tc.from+"_to_"+tc.to, func(t *testing.T) {
			svc, repo, _ := newTestService()
			c := &Card{CardholderName: "Dana", Status: tc.from, ProviderCardID: "card_x"}
			repo.Create(context.Background(), c)

			_, err := svc.ChangeStatus(context.Background(), c.ID, tc.to)
			if tc.allow && err != nil {
				t.Errorf("expected transition allowed, got %v", err)
			}
			if !tc.allow && err == nil {
				t.Error("expected transition rejected")
			}
		})
	}
}

func TestSetSpendingLimit_RejectsCanceled(t *testing.T) {
	svc, repo, _ := newTestService()
	c := &Card{CardholderName: "Dana", Status: StatusCanceled, ProviderCardID: "card_x"}
	repo.Create(context.Background(), c)

	limit := "500.00"
	if _, err := svc.SetSpendingLimit(context.Background(), c.ID, &limit); err == nil {
		t.Error("expected error updating canceled card")
	}
}

func TestSetTaxDeductible(t *testing.T) {
	svc, repo, txs := newTestService()
	c := &Card{CardholderName: "Dana", Status: StatusActive, ProviderCardID: "card_x"}
	repo.Create(context.Background(), c)

	tx := &Transaction{CardID: c.ID, Amount: "42.50", MerchantName: "Office Depot"}
	if err := svc.RecordTransaction(context.Background(), tx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.SetTaxDeductible(context.Background(), tx.ID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.TaxDeductible {
		t.Error("expected tax_deductible set")
	}
	if !txs.txs[tx.ID].TaxDeductible {
		t.Error("expected flag persisted")
	}
}

func TestSummarize(t *testing.T) {
	svc, repo, _ := newTestService()
	c := &Card{CardholderName: "Dana", Status: StatusActive, ProviderCardID: "card_x"}
	repo.Create(context.Background(), c)

	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	add := func(amount, category string, deductible bool) {
		tx := &Transaction{
			CardID:        c.ID,
			Amount:        amount,
			Category:      category,
			TaxDeductible: deductible,
			OccurredAt:    now,
		}
		if err := svc.RecordTransaction(context.Background(), tx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	add("100.00", "supplies", true)
	add("50.50", "supplies", false)
	add("25.00", "software", true)

	summary, err := svc.Summarize(context.Background(), now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Total != "175.50" {
		t.Errorf("expected total 175.50, got %s", summary.Total)
	}
	if summary.DeductibleTotal != "125.00" {
		t.Errorf("expected deductible 125.00, got %s", summary.DeductibleTotal)
	}
	if summary.ByCategory["supplies"] != "150.50" {
		t.Errorf("expected supplies 150.50, got %s", summary.ByCategory["supplies"])
	}
	if summary.Count != 3 {
		t.Errorf("expected 3 transactions, got %d", summary.Count)
	}
}
