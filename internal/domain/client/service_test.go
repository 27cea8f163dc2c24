package client

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	clients map[uuid.UUID]*Client
}

func newMockRepo() *mockRepo {
	return &mockRepo{clients: make(map[uuid.UUID]*Client)}
}

func (m *mockRepo) Create(_ context.Context, c *Client) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	m.clients[c.ID] = c
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return c, nil
}

func (m *mockRepo) Update(_ context.Context, c *Client) error {
	m.clients[c.ID] = c
	return nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	c, ok := m.clients[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	c.Status = status
	return nil
}

func (m *mockRepo) List(_ context.Context, filters map[string]string, limit, offset int) ([]*Client, int, error) {
	var result []*Client
	for _, c := range m.clients {
		if s, ok := filters["status"]; ok && c.Status != s {
			continue
		}
		result = append(result, c)
	}
	return result, len(result), nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo), repo
}

func TestCreate_Defaults(t *testing.T) {
	svc, _ := newTestService()
	c := &Client{FirstName: "Dana", LastName: "Reyes"}
	if err := svc.Create(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Status != StatusInquiry {
		t.Errorf("expected status inquiry, got %s", c.Status)
	}
	if c.BillingType != BillingPrivatePay {
		t.Errorf("expected private_pay default, got %s", c.BillingType)
	}
}

func TestCreate_RequiresName(t *testing.T) {
	svc, _ := newTestService()
	if err := svc.Create(context.Background(), &Client{FirstName: "Dana"}); err == nil {
		t.Error("expected error for missing last_name")
	}
}

func TestCreate_RejectsBadBillingType(t *testing.T) {
	svc, _ := newTestService()
	c := &Client{FirstName: "Dana", LastName: "Reyes", BillingType: "barter"}
	if err := svc.Create(context.Background(), c); err == nil {
		t.Error("expected error for invalid billing type")
	}
}

func TestCreate_RejectsNonDecimalFee(t *testing.T) {
	svc, _ := newTestService()
	fee := "lots"
	c := &Client{FirstName: "Dana", LastName: "Reyes", NoShowFee: &fee}
	if err := svc.Create(context.Background(), c); err == nil {
		t.Error("expected error for non-decimal no_show_fee")
	}
}

func TestChangeStatus_Transitions(t *testing.T) {
	cases := []struct {
		from, to string
		allow    bool
	}{
		{StatusInquiry, StatusActive, true},
		{StatusActive, StatusInactive, true},
		{StatusActive, StatusTerminated, true},
		{StatusInactive, StatusActive, true},
		{StatusTerminated, StatusActive, false},
		{StatusInquiry, StatusInactive, true},
	}

	for _, tc := range cases {
		t.Run(tc.from+"_to_"+tc.to, func(t *testing.T) {
			svc, repo := newTestService()
			c := &Client{FirstName: "Dana", LastName: "Reyes", Status: tc.from}
			repo.Create(context.Background(), c)

			err := svc.ChangeStatus(context.Background(), c.ID, tc.to)
			if tc.allow && err != nil {
				t.Errorf("expected transition allowed, got %v", err)
			}
			if !tc.allow && err == nil {
				t.Error("expected transition rejected")
			}
		})
	}
}

func TestGetBillingInfo(t *testing.T) {
	svc, repo := newTestService()
	cost := "150.00"
	fee := "75.00"
	dob := time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC)
	c := &Client{
		FirstName: "Dana", LastName: "Reyes",
		BillingType: BillingInsurance, SessionCost: &cost, NoShowFee: &fee,
		DateOfBirth: &dob, Status: StatusActive,
	}
	repo.Create(context.Background(), c)

	info, err := svc.GetBillingInfo(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.BillingType != BillingInsurance {
		t.Errorf("expected insurance, got %s", info.BillingType)
	}
	if info.FullName != "Dana Reyes" {
		t.Errorf("expected full name, got %s", info.FullName)
	}
	if info.DateOfBirth == nil || *info.DateOfBirth != "1990-04-02" {
		t.Errorf("expected dob 1990-04-02, got %v", info.DateOfBirth)
	}
}
