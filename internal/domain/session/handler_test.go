package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caretab/caretab/internal/platform/auth"
)

func newTestServer(t *testing.T, roles ...string) (*echo.Echo, *mockRepo, *mockBilling) {
	t.Helper()
	svc, repo, _, billing := newTestService()

	e := echo.New()
	api := e.Group("/api")
	api.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), auth.UserRolesKey, roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(svc).RegisterRoutes(api)
	return e, repo, billing
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_ScheduleConflictReturns409(t *testing.T) {
	e, repo, _ := newTestServer(t, "clinician")
	scheduled(repo, uuid.New(), mustTime(t, "2025-03-01T14:00:00Z"), 50)

	rec := doJSON(e, http.MethodPost, "/api/sessions",
		`{"patient_id":"`+uuid.NewString()+`","start_time":"2025-03-01T14:30:00Z"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_NoShowWithoutFeeReturns422(t *testing.T) {
	e, repo, _ := newTestServer(t, "clinician")
	s := scheduled(repo, uuid.New(), mustTime(t, "2025-03-01T14:00:00Z"), 50)

	rec := doJSON(e, http.MethodPut, "/api/sessions/"+s.ID.String()+"/no-show",
		`{"invoice_fee":true}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Error   string   `json:"error"`
		Session *Session `json:"session"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Session == nil || body.Session.Status != StatusNoShow {
		t.Errorf("expected no_show session in error body, got %+v", body.Session)
	}
}

func TestHandler_NoShowWithFeeReturns200(t *testing.T) {
	e, repo, billing := newTestServer(t, "clinician")
	fee := "75.00"
	billing.fee = &fee
	s := scheduled(repo, uuid.New(), mustTime(t, "2025-03-01T14:00:00Z"), 50)

	rec := doJSON(e, http.MethodPut, "/api/sessions/"+s.ID.String()+"/no-show",
		`{"invoice_fee":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(billing.invoiced) != 1 {
		t.Fatalf("expected 1 no-show invoice, got %d", len(billing.invoiced))
	}
}

func TestHandler_CalendarRequiresRFC3339Range(t *testing.T) {
	e, _, _ := newTestServer(t, "clinician")

	rec := doJSON(e, http.MethodGet, "/api/calendar?from=yesterday&to=tomorrow", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = doJSON(e, http.MethodGet, "/api/calendar?from=2025-03-01T00:00:00Z&to=2025-03-08T00:00:00Z", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	for _, key := range []string{"sessions", "meetings"} {
		raw, ok := body[key]
		if !ok || string(raw) == "null" {
			t.Errorf("expected %q to be a non-null array, got %s", key, raw)
		}
	}
}

func TestHandler_RejectsUnauthorizedRole(t *testing.T) {
	e, _, _ := newTestServer(t, "biller")

	rec := doJSON(e, http.MethodGet, "/api/sessions?patient_id="+uuid.NewString(), "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
