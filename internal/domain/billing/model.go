package billing

import (
	"time"

	"github.com/google/uuid"
)

// Claim statuses: draft -> submitted -> paid | denied.
const (
	ClaimDraft     = "draft"
	ClaimSubmitted = "submitted"
	ClaimPaid      = "paid"
	ClaimDenied    = "denied"
)

// Invoice statuses: pending -> paid, with overdue as a flag for invoices past
// their due date.
const (
	InvoicePending = "pending"
	InvoicePaid    = "paid"
	InvoiceOverdue = "overdue"
)

// CMS-1500 defaults applied when neither the session nor the client record
// supplies a value.
const (
	DefaultCPTCode        = "90834"
	DefaultDiagnosisCode  = "F41.1"
	DefaultChargeAmount   = "150.00"
	DefaultPlaceOfService = "11"
)

// Claim is a CMS-1500 insurance claim. Monetary amounts are decimal strings.
type Claim struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ClaimNumber    string     `db:"claim_number" json:"claim_number"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	SessionID      *uuid.UUID `db:"session_id" json:"session_id,omitempty"`
	DateOfService  time.Time  `db:"date_of_service" json:"date_of_service"`
	ChargeAmount   string     `db:"charge_amount" json:"charge_amount"`
	CPTCode        string     `db:"cpt_code" json:"cpt_code"`
	DiagnosisCode  string     `db:"diagnosis_code" json:"diagnosis_code"`
	PlaceOfService string     `db:"place_of_service" json:"place_of_service"`
	PatientName    string     `db:"patient_name" json:"patient_name"`
	PatientDOB     *string    `db:"patient_dob" json:"patient_dob,omitempty"`
	InsurerName    *string    `db:"insurer_name" json:"insurer_name,omitempty"`
	PolicyNumber   *string    `db:"policy_number" json:"policy_number,omitempty"`
	Status         string     `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Invoice is a private-pay bill. HostedURL points at the payment page the
// provider hosts; no card data is stored locally.
type Invoice struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patient_id"`
	SessionID         *uuid.UUID `db:"session_id" json:"session_id,omitempty"`
	Amount            string     `db:"amount" json:"amount"`
	Description       string     `db:"description" json:"description"`
	ServiceDate       time.Time  `db:"service_date" json:"service_date"`
	Status            string     `db:"status" json:"status"`
	HostedURL         *string    `db:"hosted_url" json:"hosted_url,omitempty"`
	ProviderInvoiceID *string    `db:"provider_invoice_id" json:"provider_invoice_id,omitempty"`
	DueDate           *time.Time `db:"due_date" json:"due_date,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Profile holds the clinician's own billing identity used to fill the
// provider side of a CMS-1500 form and to gate payment features on banking
// setup.
type Profile struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PracticeName  string    `db:"practice_name" json:"practice_name"`
	NPI           string    `db:"npi" json:"npi"`
	TaxID         string    `db:"tax_id" json:"tax_id"`
	Address       string    `db:"address" json:"address"`
	Phone         string    `db:"phone" json:"phone"`
	BankingStatus string    `db:"banking_status" json:"banking_status"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Banking setup states on the profile.
const (
	BankingNotStarted = "not_started"
	BankingPending    = "pending"
	BankingComplete   = "complete"
)

var claimTransitions = map[string][]string{
	ClaimDraft:     {ClaimSubmitted},
	ClaimSubmitted: {ClaimPaid, ClaimDenied},
	ClaimPaid:      {},
	ClaimDenied:    {ClaimSubmitted},
}

// CanTransitionClaim reports whether a claim status change is allowed. Denied
// claims may be resubmitted.
func CanTransitionClaim(from, to string) bool {
	for _, allowed := range claimTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CreateBillRequest drives the billing-type branch: the client's billing type
// decides whether a claim or an invoice is created.
type CreateBillRequest struct {
	PatientID   uuid.UUID  `json:"patient_id"`
	SessionID   *uuid.UUID `json:"session_id,omitempty"`
	ServiceDate time.Time  `json:"service_date"`
	Amount      *string    `json:"amount,omitempty"`
	Description string     `json:"description,omitempty"`
	CPTCode     *string    `json:"cpt_code,omitempty"`
}

// Bill is the union result of a create-bill request.
type Bill struct {
	Claim   *Claim   `json:"claim,omitempty"`
	Invoice *Invoice `json:"invoice,omitempty"`
}

// ValidationResult reports the pre-flight check run before generating a
// CMS-1500 PDF.
type ValidationResult struct {
	Valid           bool     `json:"valid"`
	MissingFields   []string `json:"missing_fields,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}
