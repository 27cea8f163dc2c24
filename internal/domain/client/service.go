package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var validBillingTypes = map[string]bool{
	BillingPrivatePay: true,
	BillingInsurance:  true,
}

var validStatuses = map[string]bool{
	StatusInquiry: true, StatusActive: true,
	StatusInactive: true, StatusTerminated: true,
}

func (s *Service) Create(ctx context.Context, c *Client) error {
	if c.FirstName == "" || c.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if c.BillingType == "" {
		c.BillingType = BillingPrivatePay
	}
	if !validBillingTypes[c.BillingType] {
		return fmt.Errorf("invalid billing type: %s", c.BillingType)
	}
	if c.Status == "" {
		c.Status = StatusInquiry
	}
	if !validStatuses[c.Status] {
		return fmt.Errorf("invalid status: %s", c.Status)
	}
	if err := validateFee(c.SessionCost, "session_cost"); err != nil {
		return err
	}
	if err := validateFee(c.NoShowFee, "no_show_fee"); err != nil {
		return err
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Client, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, c *Client) error {
	existing, err := s.repo.GetByID(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("client not found: %w", err)
	}
	if c.BillingType != "" && !validBillingTypes[c.BillingType] {
		return fmt.Errorf("invalid billing type: %s", c.BillingType)
	}
	if c.BillingType == "" {
		c.BillingType = existing.BillingType
	}
	if err := validateFee(c.SessionCost, "session_cost"); err != nil {
		return err
	}
	if err := validateFee(c.NoShowFee, "no_show_fee"); err != nil {
		return err
	}
	return s.repo.Update(ctx, c)
}

// ChangeStatus moves a client through the inquiry/active/inactive/terminated
// lifecycle. Clients are archived by status change, never deleted.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validStatuses[status] {
		return fmt.Errorf("invalid status: %s", status)
	}
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("client not found: %w", err)
	}
	if !CanTransition(existing.Status, status) {
		return fmt.Errorf("cannot transition client from %s to %s", existing.Status, status)
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

// Archive marks a client inactive. Client rows are never deleted; the
// billing history hanging off them must stay resolvable.
func (s *Service) Archive(ctx context.Context, id uuid.UUID) error {
	return s.ChangeStatus(ctx, id, StatusInactive)
}

func (s *Service) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Client, int, error) {
	return s.repo.List(ctx, filters, limit, offset)
}

// BillingInfo is the subset of client data the billing workflow branches on.
type BillingInfo struct {
	BillingType   string
	SessionCost   *string
	NoShowFee     *string
	InsurerName   *string
	PolicyNumber  *string
	DiagnosisCode *string
	FullName      string
	DateOfBirth   *string
}

// GetBillingInfo returns the billing-relevant view of a client. Used by the
// billing service to decide between claim and invoice creation.
func (s *Service) GetBillingInfo(ctx context.Context, id uuid.UUID) (*BillingInfo, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("client not found: %w", err)
	}
	info := &BillingInfo{
		BillingType:   c.BillingType,
		SessionCost:   c.SessionCost,
		NoShowFee:     c.NoShowFee,
		InsurerName:   c.InsurerName,
		PolicyNumber:  c.PolicyNumber,
		DiagnosisCode: c.DiagnosisCode,
		FullName:      c.FullName(),
	}
	if c.DateOfBirth != nil {
		dob := c.DateOfBirth.Format("2006-01-02")
		info.DateOfBirth = &dob
	}
	return info, nil
}

func validateFee(fee *string, field string) error {
	if fee == nil {
		return nil
	}
	if _, err := strconv.ParseFloat(*fee, 64); err != nil {
		return fmt.Errorf("%s must be a decimal string: %q", field, *fee)
	}
	return nil
}
