package card

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// IssuedCard is what the provider returns when a card is created.
type IssuedCard struct {
	ProviderCardID string
	Last4          string
	Brand          string
	ExpMonth       int
	ExpYear        int
}

// Issuer abstracts the external card-issuing provider. The application only
// sees provider identifiers and card metadata, never PANs.
type Issuer interface {
	IssueCard(ctx context.Context, cardholderName, cardType string, spendingLimit *string) (*IssuedCard, error)
	SetCardStatus(ctx context.Context, providerCardID, status string) error
	SetSpendingLimit(ctx context.Context, providerCardID string, limit *string) error
}

// StaticIssuer fabricates card metadata for development and tests.
type StaticIssuer struct{}

func (StaticIssuer) IssueCard(_ context.Context, _, _ string, _ *string) (*IssuedCard, error) {
	id := uuid.New()
	return &IssuedCard{
		ProviderCardID: "card_" + id.String(),
		Last4:          fmt.Sprintf("%04d", id.ID()%10000),
		Brand:          "visa",
		ExpMonth:       12,
		ExpYear:        2030,
	}, nil
}

func (StaticIssuer) SetCardStatus(context.Context, string, string) error { return nil }

func (StaticIssuer) SetSpendingLimit(context.Context, string, *string) error { return nil }
