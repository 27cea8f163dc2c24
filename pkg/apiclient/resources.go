package apiclient

import (
	"context"
	"time"

	"github.com/caretab/caretab/pkg/querycache"
)

// ClientRecord is the wire shape of a client.
type ClientRecord struct {
	ID          string  `json:"id"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	BillingType string  `json:"billing_type"`
	SessionCost *string `json:"session_cost,omitempty"`
	NoShowFee   *string `json:"no_show_fee,omitempty"`
	Status      string  `json:"status"`
}

// Task is the wire shape of a task.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	SessionID   *string    `json:"session_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Claim is the wire shape of a CMS-1500 claim.
type Claim struct {
	ID             string  `json:"id"`
	ClaimNumber    string  `json:"claim_number"`
	PatientID      string  `json:"patient_id"`
	SessionID      *string `json:"session_id,omitempty"`
	ChargeAmount   string  `json:"charge_amount"`
	CPTCode        string  `json:"cpt_code"`
	DiagnosisCode  string  `json:"diagnosis_code"`
	PlaceOfService string  `json:"place_of_service"`
	Status         string  `json:"status"`
}

// Invoice is the wire shape of a private-pay invoice.
type Invoice struct {
	ID        string  `json:"id"`
	PatientID string  `json:"patient_id"`
	SessionID *string `json:"session_id,omitempty"`
	Amount    string  `json:"amount"`
	Status    string  `json:"status"`
	HostedURL *string `json:"hosted_url,omitempty"`
}

// Bill is the union result of a create-bill request: exactly one of Claim or
// Invoice is set, decided by the client's billing type.
type Bill struct {
	Claim   *Claim   `json:"claim,omitempty"`
	Invoice *Invoice `json:"invoice,omitempty"`
}

// Card is the wire shape of an issued card.
type Card struct {
	ID             string  `json:"id"`
	CardholderName string  `json:"cardholder_name"`
	Last4          string  `json:"last4"`
	Brand          string  `json:"brand"`
	Type           string  `json:"type"`
	Status         string  `json:"status"`
	SpendingLimit  *string `json:"spending_limit,omitempty"`
}

// Transaction is the wire shape of a card transaction.
type Transaction struct {
	ID            string    `json:"id"`
	CardID        string    `json:"card_id"`
	Amount        string    `json:"amount"`
	MerchantName  string    `json:"merchant_name"`
	Category      string    `json:"category"`
	TaxDeductible bool      `json:"tax_deductible"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// ClaimValidation is the pre-flight check result for CMS-1500 generation.
type ClaimValidation struct {
	Valid           bool     `json:"valid"`
	MissingFields   []string `json:"missing_fields,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Clients lists clients through the cache.
func (c *Client) Clients(ctx context.Context) ([]ClientRecord, error) {
	return cachedList[ClientRecord](ctx, c, querycache.Key("clients"), "/api/clients")
}

// Tasks lists tasks through the cache.
func (c *Client) Tasks(ctx context.Context) ([]Task, error) {
	return cachedList[Task](ctx, c, querycache.Key("tasks"), "/api/tasks")
}

// Claims lists insurance claims through the cache.
func (c *Client) Claims(ctx context.Context) ([]Claim, error) {
	return cachedList[Claim](ctx, c, querycache.Key("claims"), "/api/claims")
}

// Invoices lists invoices through the cache.
func (c *Client) Invoices(ctx context.Context) ([]Invoice, error) {
	return cachedList[Invoice](ctx, c, querycache.Key("invoices"), "/api/invoices")
}

// Cards lists issued cards through the cache.
func (c *Client) Cards(ctx context.Context) ([]Card, error) {
	return cachedList[Card](ctx, c, querycache.Key("cards"), "/api/cards")
}

// Transactions lists card transactions through the cache.
func (c *Client) Transactions(ctx context.Context) ([]Transaction, error) {
	return cachedList[Transaction](ctx, c, querycache.Key("transactions"), "/api/transactions")
}

func cachedList[T any](ctx context.Context, c *Client, key, path string) ([]T, error) {
	value, err := c.cache.Get(ctx, key, func(ctx context.Context) (interface{}, error) {
		return fetchList[T](ctx, c, path)
	})
	if err != nil {
		return []T{}, err
	}
	items, ok := value.([]T)
	if !ok {
		return []T{}, nil
	}
	return items, nil
}

// CreateBillRequest asks the server to bill a client. The server branches on
// the client's billing type; no type discriminator travels in the payload.
type CreateBillRequest struct {
	PatientID   string     `json:"patient_id"`
	SessionID   *string    `json:"session_id,omitempty"`
	ServiceDate *time.Time `json:"service_date,omitempty"`
	Amount      *string    `json:"amount,omitempty"`
	Description string     `json:"description,omitempty"`
}

// CreateBill creates a claim or an invoice depending on the client's billing
// type. Banking setup failures are classifiable with IsBankingSetupError.
func (c *Client) CreateBill(ctx context.Context, req CreateBillRequest) (*Bill, error) {
	body, err := c.post(ctx, "/api/bills", req)
	if err != nil {
		return nil, err
	}
	bill, err := decodeOne[Bill](body)
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(querycache.Key("claims"))
	c.cache.Invalidate(querycache.Key("invoices"))
	return bill, nil
}

// ValidateClaim runs the server-side completeness check before a CMS-1500
// PDF is generated.
func (c *Client) ValidateClaim(ctx context.Context, claimID string) (*ClaimValidation, error) {
	body, err := c.get(ctx, "/api/claims/"+claimID+"/validate")
	if err != nil {
		return nil, err
	}
	return decodeOne[ClaimValidation](body)
}

// SetTaskStatus moves a task through its lifecycle.
func (c *Client) SetTaskStatus(ctx context.Context, taskID, status string) (*Task, error) {
	payload := map[string]string{"status": status}
	body, err := c.put(ctx, "/api/tasks/"+taskID+"/status", payload)
	if err != nil {
		return nil, err
	}
	t, err := decodeOne[Task](body)
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(querycache.Key("tasks"))
	return t, nil
}

// SetCardStatus toggles or cancels a card.
func (c *Client) SetCardStatus(ctx context.Context, cardID, status string) (*Card, error) {
	payload := map[string]string{"status": status}
	body, err := c.put(ctx, "/api/cards/"+cardID+"/status", payload)
	if err != nil {
		return nil, err
	}
	card, err := decodeOne[Card](body)
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(querycache.Key("cards"))
	return card, nil
}

// SetTransactionDeductible flips a transaction's tax classification.
func (c *Client) SetTransactionDeductible(ctx context.Context, transactionID string, deductible bool) (*Transaction, error) {
	payload := map[string]bool{"tax_deductible": deductible}
	body, err := c.put(ctx, "/api/transactions/"+transactionID+"/tax-deductible", payload)
	if err != nil {
		return nil, err
	}
	t, err := decodeOne[Transaction](body)
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(querycache.Key("transactions"))
	return t, nil
}
