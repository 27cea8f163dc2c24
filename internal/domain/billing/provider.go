package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrBankingSetup marks invoice creation failures caused by missing or
// incomplete business banking setup. The message is part of the API contract:
// clients classify this category by matching "banking setup" in the error
// body.
var ErrBankingSetup = errors.New("business banking setup incomplete")

// PaymentProvider abstracts the external payment platform. Hosted invoices
// carry a payment URL; the application never touches card data.
type PaymentProvider interface {
	CreateHostedInvoice(ctx context.Context, inv *Invoice) (hostedURL, providerInvoiceID string, err error)
}

// StaticProvider fabricates deterministic hosted URLs. Used in development
// and tests where no real payment platform is wired up.
type StaticProvider struct {
	BaseURL string
}

func (p *StaticProvider) CreateHostedInvoice(_ context.Context, inv *Invoice) (string, string, error) {
	providerID := "inv_" + uuid.NewString()
	base := p.BaseURL
	if base == "" {
		base = "https://pay.example.com"
	}
	return fmt.Sprintf("%s/i/%s", base, providerID), providerID, nil
}
