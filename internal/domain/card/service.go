package card

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caretab/caretab/internal/platform/events"
)

type Service struct {
	cards  Repository
	txs    TransactionRepository
	issuer Issuer
	events events.Publisher
	logger zerolog.Logger
}

func NewService(cards Repository, txs TransactionRepository, issuer Issuer, pub events.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		cards:  cards,
		txs:    txs,
		issuer: issuer,
		events: pub,
		logger: logger.With().Str("component", "card").Logger(),
	}
}

// Issue creates a card through the provider and mirrors it locally.
func (s *Service) Issue(ctx context.Context, req *IssueRequest) (*Card, error) {
	if req.CardholderName == "" {
		return nil, fmt.Errorf("cardholder_name is required")
	}
	if req.Type == "" {
		req.Type = TypeVirtual
	}
	if req.Type != TypeVirtual && req.Type != TypePhysical {
		return nil, fmt.Errorf("invalid card type: %s", req.Type)
	}
	if req.SpendingLimit != nil {
		if _, err := strconv.ParseFloat(*req.SpendingLimit, 64); err != nil {
			return nil, fmt.Errorf("spending_limit must be a decimal string: %q", *req.SpendingLimit)
		}
	}

	issued, err := s.issuer.IssueCard(ctx, req.CardholderName, req.Type, req.SpendingLimit)
	if err != nil {
		return nil, fmt.Errorf("issue card: %w", err)
	}

	c := &Card{
		ProviderCardID: issued.ProviderCardID,
		CardholderName: req.CardholderName,
		Last4:          issued.Last4,
		Brand:          issued.Brand,
		ExpMonth:       issued.ExpMonth,
		ExpYear:        issued.ExpYear,
		Type:           req.Type,
		Status:         StatusActive,
		SpendingLimit:  req.SpendingLimit,
	}
	if err := s.cards.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	return c, nil
}

// ChangeStatus applies the card state machine. The provider is updated first;
// the local mirror only changes after the provider accepts.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, status string) (*Card, error) {
	c, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("card not found: %w", err)
	}
	if !CanTransition(c.Status, status) {
		return nil, fmt.Errorf("invalid card transition %s -> %s", c.Status, status)
	}
	if err := s.issuer.SetCardStatus(ctx, c.ProviderCardID, status); err != nil {
		return nil, fmt.Errorf("provider status update: %w", err)
	}
	if err := s.cards.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("update card status: %w", err)
	}
	c.Status = status
	if status == StatusCanceled {
		s.events.Publish(ctx, events.CardCanceled, c)
	}
	return c, nil
}

// SetSpendingLimit updates the card's limit at the provider and locally.
func (s *Service) SetSpendingLimit(ctx context.Context, id uuid.UUID, limit *string) (*Card, error) {
	c, err := s.cards.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("card not found: %w", err)
	}
	if c.Status == StatusCanceled {
		return nil, fmt.Errorf("cannot update a canceled card")
	}
	if limit != nil {
		if _, err := strconv.ParseFloat(*limit, 64); err != nil {
			return nil, fmt.Errorf("spending_limit must be a decimal string: %q", *limit)
		}
	}
	if err := s.issuer.SetSpendingLimit(ctx, c.ProviderCardID, limit); err != nil {
		return nil, fmt.Errorf("provider limit update: %w", err)
	}
	if err := s.cards.UpdateSpendingLimit(ctx, id, limit); err != nil {
		return nil, fmt.Errorf("update spending limit: %w", err)
	}
	c.SpendingLimit = limit
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Card, error) {
	return s.cards.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Card, int, error) {
	return s.cards.List(ctx, limit, offset)
}

// RecordTransaction mirrors a provider spend event locally. Transactions are
// append-only.
func (s *Service) RecordTransaction(ctx context.Context, t *Transaction) error {
	if t.CardID == uuid.Nil {
		return fmt.Errorf("card_id is required")
	}
	if _, err := strconv.ParseFloat(t.Amount, 64); err != nil {
		return fmt.Errorf("amount must be a decimal string: %q", t.Amount)
	}
	if _, err := s.cards.GetByID(ctx, t.CardID); err != nil {
		return fmt.Errorf("card not found: %w", err)
	}
	if t.OccurredAt.IsZero() {
		t.OccurredAt = time.Now()
	}
	if t.Category == "" {
		t.Category = "uncategorized"
	}
	return s.txs.Create(ctx, t)
}

// SetTaxDeductible flips the one mutable field on a transaction.
func (s *Service) SetTaxDeductible(ctx context.Context, id uuid.UUID, deductible bool) (*Transaction, error) {
	t, err := s.txs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("transaction not found: %w", err)
	}
	if err := s.txs.SetTaxDeductible(ctx, id, deductible); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	t.TaxDeductible = deductible
	return t, nil
}

func (s *Service) ListTransactions(ctx context.Context, cardID *uuid.UUID, from, to time.Time, limit, offset int) ([]*Transaction, int, error) {
	return s.txs.List(ctx, cardID, from, to, limit, offset)
}

// Summarize aggregates spend over [from, to). Amounts are decimal strings;
// totals are rendered with two decimal places.
func (s *Service) Summarize(ctx context.Context, from, to time.Time) (*SpendingSummary, error) {
	txs, err := s.txs.ListInRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	var total, deductible float64
	byCategory := make(map[string]float64)
	for _, t := range txs {
		amount, err := strconv.ParseFloat(t.Amount, 64)
		if err != nil {
			s.logger.Warn().Str("transaction_id", t.ID.String()).Str("amount", t.Amount).Msg("unparseable amount skipped")
			continue
		}
		total += amount
		if t.TaxDeductible {
			deductible += amount
		}
		byCategory[t.Category] += amount
	}

	summary := &SpendingSummary{
		From:            from,
		To:              to,
		Total:           strconv.FormatFloat(total, 'f', 2, 64),
		DeductibleTotal: strconv.FormatFloat(deductible, 'f', 2, 64),
		ByCategory:      make(map[string]string, len(byCategory)),
		Count:           len(txs),
	}
	for cat, amount := range byCategory {
		summary.ByCategory[cat] = strconv.FormatFloat(amount, 'f', 2, 64)
	}
	return summary, nil
}
