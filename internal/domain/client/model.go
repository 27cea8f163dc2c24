package client

import (
	"time"

	"github.com/google/uuid"
)

// Billing types supported for a client.
const (
	BillingPrivatePay = "private_pay"
	BillingInsurance  = "insurance"
)

// Client statuses. Clients are never hard-deleted; they move through
// inquiry -> active -> inactive/terminated.
const (
	StatusInquiry    = "inquiry"
	StatusActive     = "active"
	StatusInactive   = "inactive"
	StatusTerminated = "terminated"
)

// Client maps to the client table. SessionCost and NoShowFee are decimal
// strings (e.g. "150.00") matching the wire contract; absence means the fee
// is not configured.
type Client struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	Email         *string    `db:"email" json:"email,omitempty"`
	Phone         *string    `db:"phone" json:"phone,omitempty"`
	DateOfBirth   *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender        *string    `db:"gender" json:"gender,omitempty"`
	AddressLine   *string    `db:"address_line" json:"address_line,omitempty"`
	City          *string    `db:"city" json:"city,omitempty"`
	State         *string    `db:"state" json:"state,omitempty"`
	PostalCode    *string    `db:"postal_code" json:"postal_code,omitempty"`
	BillingType   string     `db:"billing_type" json:"billing_type"`
	SessionCost   *string    `db:"session_cost" json:"session_cost,omitempty"`
	NoShowFee     *string    `db:"no_show_fee" json:"no_show_fee,omitempty"`
	InsurerName   *string    `db:"insurer_name" json:"insurer_name,omitempty"`
	PolicyNumber  *string    `db:"policy_number" json:"policy_number,omitempty"`
	DiagnosisCode *string    `db:"diagnosis_code" json:"diagnosis_code,omitempty"`
	Status        string     `db:"status" json:"status"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName returns the client's display name.
func (c *Client) FullName() string {
	return c.FirstName + " " + c.LastName
}

// validTransitions encodes the allowed status moves. Terminated is terminal.
var validTransitions = map[string][]string{
	StatusInquiry:  {StatusActive, StatusInactive, StatusTerminated},
	StatusActive:   {StatusInactive, StatusTerminated},
	StatusInactive: {StatusActive, StatusTerminated},
}

// CanTransition reports whether a status change is allowed.
func CanTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
