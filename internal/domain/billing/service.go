package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caretab/caretab/internal/domain/client"
	"github.com/caretab/caretab/internal/platform/events"
)

// ClientDirectory is the slice of the client domain billing needs: the
// billing-relevant view of a client record.
type ClientDirectory interface {
	GetBillingInfo(ctx context.Context, id uuid.UUID) (*client.BillingInfo, error)
}

type Service struct {
	claims   ClaimRepository
	invoices InvoiceRepository
	profiles ProfileRepository
	clients  ClientDirectory
	provider PaymentProvider
	events   events.Publisher
	logger   zerolog.Logger

	invoiceDueDays int
}

func NewService(claims ClaimRepository, invoices InvoiceRepository, profiles ProfileRepository,
	clients ClientDirectory, provider PaymentProvider, pub events.Publisher,
	invoiceDueDays int, logger zerolog.Logger) *Service {
	return &Service{
		claims:         claims,
		invoices:       invoices,
		profiles:       profiles,
		clients:        clients,
		provider:       provider,
		events:         pub,
		logger:         logger.With().Str("component", "billing").Logger(),
		invoiceDueDays: invoiceDueDays,
	}
}

// CreateBill branches on the client's billing type: insurance clients get a
// CMS-1500 claim, private-pay clients get a hosted invoice. Exactly one of
// the two is ever created per request.
func (s *Service) CreateBill(ctx context.Context, req *CreateBillRequest) (*Bill, error) {
	if req.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if req.ServiceDate.IsZero() {
		req.ServiceDate = time.Now()
	}

	info, err := s.clients.GetBillingInfo(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	switch info.BillingType {
	case client.BillingInsurance:
		c, err := s.createClaim(ctx, req, info)
		if err != nil {
			return nil, err
		}
		return &Bill{Claim: c}, nil
	case client.BillingPrivatePay:
		inv, err := s.createInvoice(ctx, req, info)
		if err != nil {
			return nil, err
		}
		return &Bill{Invoice: inv}, nil
	default:
		return nil, fmt.Errorf("unknown billing type: %s", info.BillingType)
	}
}

func (s *Service) createClaim(ctx context.Context, req *CreateBillRequest, info *client.BillingInfo) (*Claim, error) {
	number, err := s.claims.NextClaimNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("assign claim number: %w", err)
	}

	c := &Claim{
		ClaimNumber:    number,
		PatientID:      req.PatientID,
		SessionID:      req.SessionID,
		DateOfService:  req.ServiceDate,
		ChargeAmount:   DefaultChargeAmount,
		CPTCode:        DefaultCPTCode,
		DiagnosisCode:  DefaultDiagnosisCode,
		PlaceOfService: DefaultPlaceOfService,
		PatientName:    info.FullName,
		PatientDOB:     info.DateOfBirth,
		InsurerName:    info.InsurerName,
		PolicyNumber:   info.PolicyNumber,
		Status:         ClaimDraft,
	}
	if req.Amount != nil {
		c.ChargeAmount = *req.Amount
	} else if info.SessionCost != nil {
		c.ChargeAmount = *info.SessionCost
	}
	if req.CPTCode != nil {
		c.CPTCode = *req.CPTCode
	}
	if info.DiagnosisCode != nil {
		c.DiagnosisCode = *info.DiagnosisCode
	}

	if err := s.claims.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}
	s.events.Publish(ctx, events.BillCreated, c)
	return c, nil
}

func (s *Service) createInvoice(ctx context.Context, req *CreateBillRequest, info *client.BillingInfo) (*Invoice, error) {
	profile, err := s.profiles.Get(ctx)
	if err != nil || profile.BankingStatus != BankingComplete {
		return nil, ErrBankingSetup
	}

	amount := req.Amount
	if amount == nil {
		amount = info.SessionCost
	}
	if amount == nil {
		return nil, fmt.Errorf("no amount given and client has no session cost")
	}

	description := req.Description
	if description == "" {
		description = fmt.Sprintf("Therapy session on %s", req.ServiceDate.Format("2006-01-02"))
	}
	due := req.ServiceDate.AddDate(0, 0, s.invoiceDueDays)

	inv := &Invoice{
		PatientID:   req.PatientID,
		SessionID:   req.SessionID,
		Amount:      *amount,
		Description: description,
		ServiceDate: req.ServiceDate,
		Status:      InvoicePending,
		DueDate:     &due,
	}

	hostedURL, providerID, err := s.provider.CreateHostedInvoice(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("create hosted invoice: %w", err)
	}
	inv.HostedURL = &hostedURL
	inv.ProviderInvoiceID = &providerID

	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	s.events.Publish(ctx, events.BillCreated, inv)
	return inv, nil
}

// CreateNoShowInvoice bills a missed session. The hosted payment URL needs a
// completed banking setup, same as regular invoices.
func (s *Service) CreateNoShowInvoice(ctx context.Context, patientID, sessionID uuid.UUID, amount string) error {
	profile, err := s.profiles.Get(ctx)
	if err != nil || profile.BankingStatus != BankingComplete {
		return ErrBankingSetup
	}

	now := time.Now()
	due := now.AddDate(0, 0, s.invoiceDueDays)
	inv := &Invoice{
		PatientID:   patientID,
		SessionID:   &sessionID,
		Amount:      amount,
		Description: "No-show fee",
		ServiceDate: now,
		Status:      InvoicePending,
		DueDate:     &due,
	}

	hostedURL, providerID, err := s.provider.CreateHostedInvoice(ctx, inv)
	if err != nil {
		return fmt.Errorf("create hosted invoice: %w", err)
	}
	inv.HostedURL = &hostedURL
	inv.ProviderInvoiceID = &providerID

	if err := s.invoices.Create(ctx, inv); err != nil {
		return fmt.Errorf("create no-show invoice: %w", err)
	}
	s.events.Publish(ctx, events.BillCreated, inv)
	return nil
}

// NoShowCharge resolves the amount to bill for a missed session: the
// client's no-show fee, falling back to session cost. Nil means the client
// has neither configured.
func (s *Service) NoShowCharge(ctx context.Context, patientID uuid.UUID) (*string, error) {
	info, err := s.clients.GetBillingInfo(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if info.NoShowFee != nil {
		return info.NoShowFee, nil
	}
	return info.SessionCost, nil
}

// ValidateClaim runs the pre-flight completeness check before a CMS-1500 PDF
// is generated. The claim itself and the practice billing profile both
// contribute required fields.
func (s *Service) ValidateClaim(ctx context.Context, id uuid.UUID) (*ValidationResult, error) {
	c, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("claim not found: %w", err)
	}

	result := &ValidationResult{Valid: true}
	missing := func(field, recommendation string) {
		result.Valid = false
		result.MissingFields = append(result.MissingFields, field)
		result.Recommendations = append(result.Recommendations, recommendation)
	}

	if c.PatientName == "" {
		missing("patient_name", "Add the client's full name to their record")
	}
	if c.PatientDOB == nil {
		missing("patient_dob", "Add the client's date of birth to their record")
	}
	if c.InsurerName == nil || *c.InsurerName == "" {
		missing("insurer_name", "Add the client's insurance carrier")
	}
	if c.PolicyNumber == nil || *c.PolicyNumber == "" {
		missing("policy_number", "Add the client's policy number")
	}
	if c.DiagnosisCode == "" {
		missing("diagnosis_code", "Set a diagnosis code on the claim or client")
	}

	profile, err := s.profiles.Get(ctx)
	if err != nil {
		missing("billing_profile", "Complete your practice billing profile")
	} else {
		if profile.NPI == "" {
			missing("npi", "Add your NPI to the billing profile")
		}
		if profile.TaxID == "" {
			missing("tax_id", "Add your tax ID to the billing profile")
		}
	}

	return result, nil
}

// ChangeClaimStatus applies the claim state machine.
func (s *Service) ChangeClaimStatus(ctx context.Context, id uuid.UUID, status string) (*Claim, error) {
	c, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("claim not found: %w", err)
	}
	if !CanTransitionClaim(c.Status, status) {
		return nil, fmt.Errorf("invalid claim transition %s -> %s", c.Status, status)
	}
	if err := s.claims.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("update claim status: %w", err)
	}
	c.Status = status
	s.events.Publish(ctx, events.BillStatusChanged, c)
	return c, nil
}

// MarkInvoicePaid settles a pending or overdue invoice.
func (s *Service) MarkInvoicePaid(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("invoice not found: %w", err)
	}
	if inv.Status == InvoicePaid {
		return nil, fmt.Errorf("invoice already paid")
	}
	if err := s.invoices.UpdateStatus(ctx, id, InvoicePaid); err != nil {
		return nil, fmt.Errorf("update invoice status: %w", err)
	}
	inv.Status = InvoicePaid
	s.events.Publish(ctx, events.BillStatusChanged, inv)
	return inv, nil
}

// FlagOverdueInvoices marks pending invoices past their due date as overdue.
// Called from the scheduled jobs. Returns how many were flagged.
func (s *Service) FlagOverdueInvoices(ctx context.Context, asOf time.Time) (int, error) {
	pastDue, err := s.invoices.ListPendingPastDue(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("list past-due invoices: %w", err)
	}
	flagged := 0
	for _, inv := range pastDue {
		if err := s.invoices.UpdateStatus(ctx, inv.ID, InvoiceOverdue); err != nil {
			s.logger.Error().Err(err).Str("invoice_id", inv.ID.String()).Msg("flag overdue invoice")
			continue
		}
		flagged++
	}
	return flagged, nil
}

func (s *Service) ListClaims(ctx context.Context, filters map[string]string, limit, offset int) ([]*Claim, int, error) {
	return s.claims.List(ctx, filters, limit, offset)
}

func (s *Service) ListInvoices(ctx context.Context, filters map[string]string, limit, offset int) ([]*Invoice, int, error) {
	return s.invoices.List(ctx, filters, limit, offset)
}

func (s *Service) GetClaim(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return s.claims.GetByID(ctx, id)
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.invoices.GetByID(ctx, id)
}

func (s *Service) GetProfile(ctx context.Context) (*Profile, error) {
	return s.profiles.Get(ctx)
}

func (s *Service) UpdateProfile(ctx context.Context, p *Profile) error {
	if p.BankingStatus == "" {
		p.BankingStatus = BankingNotStarted
	}
	switch p.BankingStatus {
	case BankingNotStarted, BankingPending, BankingComplete:
	default:
		return fmt.Errorf("invalid banking status: %s", p.BankingStatus)
	}
	return s.profiles.Upsert(ctx, p)
}
