package card

import (
	"time"

	"github.com/google/uuid"
)

// Card statuses. Active and inactive toggle freely; canceled is one-way.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusCanceled = "canceled"
)

// Card types.
const (
	TypeVirtual  = "virtual"
	TypePhysical = "physical"
)

// Card mirrors a card issued by the external provider. The local record is a
// projection of remote state; the provider owns the card lifecycle.
type Card struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ProviderCardID string    `db:"provider_card_id" json:"provider_card_id"`
	CardholderName string    `db:"cardholder_name" json:"cardholder_name"`
	Last4          string    `db:"last4" json:"last4"`
	Brand          string    `db:"brand" json:"brand"`
	ExpMonth       int       `db:"exp_month" json:"exp_month"`
	ExpYear        int       `db:"exp_year" json:"exp_year"`
	Type           string    `db:"type" json:"type"`
	Status         string    `db:"status" json:"status"`
	SpendingLimit  *string   `db:"spending_limit" json:"spending_limit,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

var validTransitions = map[string][]string{
	StatusActive:   {StatusInactive, StatusCanceled},
	StatusInactive: {StatusActive, StatusCanceled},
	StatusCanceled: {},
}

// CanTransition reports whether a card status change is allowed.
func CanTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transaction is an immutable record of card spend. Only the TaxDeductible
// classification may change after creation.
type Transaction struct {
	ID            uuid.UUID `db:"id" json:"id"`
	CardID        uuid.UUID `db:"card_id" json:"card_id"`
	Amount        string    `db:"amount" json:"amount"`
	MerchantName  string    `db:"merchant_name" json:"merchant_name"`
	Category      string    `db:"category" json:"category"`
	TaxDeductible bool      `db:"tax_deductible" json:"tax_deductible"`
	OccurredAt    time.Time `db:"occurred_at" json:"occurred_at"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// IssueRequest creates a card through the provider.
type IssueRequest struct {
	CardholderName string  `json:"cardholder_name"`
	Type           string  `json:"type"`
	SpendingLimit  *string `json:"spending_limit,omitempty"`
}

// SpendingSummary aggregates transactions over a period.
type SpendingSummary struct {
	From            time.Time         `json:"from"`
	To              time.Time         `json:"to"`
	Total           string            `json:"total"`
	DeductibleTotal string            `json:"deductible_total"`
	ByCategory      map[string]string `json:"by_category"`
	Count           int               `json:"count"`
}
