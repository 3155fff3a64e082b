package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mkwanja/internal/core"
	"mkwanja/internal/ledger"
	"mkwanja/internal/ledger/memory"
	"mkwanja/internal/lock"
	"mkwanja/internal/services"
)

func fixedClock() time.Time {
	return time.Date(2025, time.March, 15, 12, 0, 0, 0, time.Local)
}

type fakeAuth struct{ pin string }

func (f fakeAuth) Authenticate(_ context.Context, secret string) (bool, error) {
	return secret == f.pin, nil
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *lock.Gate) {
	t.Helper()
	store := memory.New(ledger.DefaultCategories, fixedClock)
	svc := services.NewLedgerService(store, services.WithClock(fixedClock))
	gate := lock.NewGate(fakeAuth{pin: "1234"}, false)
	srv := NewServer(":0", svc, gate, opts...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, gate
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s missing security headers", path)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s missing request id", path)
		}
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "abc123" {
		t.Fatalf("X-Request-ID = %q", got)
	}
}

func TestDashboardScenario(t *testing.T) {
	srv, _ := newTestServer(t, WithCurrency("KES"))

	rr := do(t, srv, http.MethodPut, "/api/settings", `{"monthly_income": "500.00", "savings_target": 100}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("settings status=%d body=%s", rr.Code, rr.Body)
	}
	for _, body := range []string{
		`{"category":"Food","amount":"120.00"}`,
		`{"category":"Transport","amount":"50"}`,
	} {
		rr := do(t, srv, http.MethodPost, "/api/expenses", body)
		if rr.Code != http.StatusCreated {
			t.Fatalf("add expense status=%d body=%s", rr.Code, rr.Body)
		}
		if rr.Header().Get(ChangedHeader) != "expense:create" {
			t.Errorf("changed header = %q", rr.Header().Get(ChangedHeader))
		}
	}

	rr = do(t, srv, http.MethodGet, "/api/dashboard?month=2025-03", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status=%d body=%s", rr.Code, rr.Body)
	}
	got := decode[struct {
		Month             string              `json:"month"`
		Currency          string              `json:"currency"`
		TotalSpent        core.Money          `json:"total_spent"`
		SafeToSpend       core.Money          `json:"safe_to_spend"`
		BudgetUsedPercent float64             `json:"budget_used_percent"`
		TopCategory       core.CategoryAmount `json:"top_category"`
		Recent            []core.Expense      `json:"recent"`
	}](t, rr)

	if got.Month != "2025-03" || got.Currency != "KES" {
		t.Errorf("month=%q currency=%q", got.Month, got.Currency)
	}
	if got.TotalSpent.Cents != 17000 {
		t.Errorf("total_spent = %d", got.TotalSpent.Cents)
	}
	if got.SafeToSpend.Cents != 23000 {
		t.Errorf("safe_to_spend = %d", got.SafeToSpend.Cents)
	}
	if got.TopCategory.Name != "Food" || got.TopCategory.Amount.Cents != 12000 {
		t.Errorf("top_category = %+v", got.TopCategory)
	}
	if got.BudgetUsedPercent != 34.0 {
		t.Errorf("budget_used_percent = %v", got.BudgetUsedPercent)
	}
	if len(got.Recent) != 2 || got.Recent[0].Category != "Transport" {
		t.Errorf("recent = %+v", got.Recent)
	}
}

func TestDashboardDefaultsToCurrentMonth(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/dashboard", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	got := decode[struct {
		Month       string `json:"month"`
		HasSettings bool   `json:"has_settings"`
	}](t, rr)
	if got.Month != "2025-03" || got.HasSettings {
		t.Errorf("got %+v", got)
	}
}

func TestErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"negative amount", http.MethodPost, "/api/expenses", `{"category":"Food","amount":"-5"}`, http.StatusBadRequest},
		{"empty category", http.MethodPost, "/api/expenses", `{"category":"  ","amount":"5"}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/expenses", `{"category":`, http.StatusBadRequest},
		{"bad month", http.MethodGet, "/api/dashboard?month=2025-13", "", http.StatusBadRequest},
		{"bad id", http.MethodDelete, "/api/expenses/abc", "", http.StatusBadRequest},
		{"missing expense", http.MethodPut, "/api/expenses/999", `{"category":"Food","amount":"1"}`, http.StatusNotFound},
		{"empty category name", http.MethodPost, "/api/categories", `{"name":""}`, http.StatusBadRequest},
		{"wrong method", http.MethodPatch, "/api/settings", `{}`, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.want, rr.Body)
			}
		})
	}
}

func TestValidationErrorNamesField(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodPut, "/api/settings", `{"monthly_income":"abc","savings_target":"1"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
	got := decode[errorBody](t, rr)
	if got.Field != "monthly_income" {
		t.Errorf("field = %q", got.Field)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/expenses", `{"category":"Rent","amount":"10,50","note":"deposit"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d", rr.Code)
	}
	created := decode[core.Expense](t, rr)
	if created.Amount.Cents != 1050 || created.Note != "deposit" {
		t.Fatalf("created = %+v", created)
	}

	path := "/api/expenses/" + itoa(created.ID)
	if rr := do(t, srv, http.MethodPut, path, `{"category":"Rent","amount":"20"}`); rr.Code != http.StatusNoContent {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body)
	}

	rr = do(t, srv, http.MethodGet, "/api/expenses?month=2025-03", "")
	list := decode[[]core.Expense](t, rr)
	if len(list) != 1 || list[0].Amount.Cents != 2000 {
		t.Fatalf("list = %+v", list)
	}

	if rr := do(t, srv, http.MethodDelete, path, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	// Deleting again is not an error.
	if rr := do(t, srv, http.MethodDelete, path, ""); rr.Code != http.StatusNoContent {
		t.Fatalf("second delete status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/expenses", "")
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %s", rr.Body)
	}
}

func TestFormEncodedBody(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader("name=Gym"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	if got := decode[core.Category](t, rr); got.Name != "Gym" {
		t.Errorf("name = %q", got.Name)
	}
}

func TestOversizedBodyIsRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	body := "category=" + strings.Repeat("x", maxBodyBytes) + "&amount=5"
	req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	if got := decode[errorBody](t, rr); got.Field != "body" {
		t.Errorf("field = %q", got.Field)
	}
	list := decode[[]core.Expense](t, do(t, srv, http.MethodGet, "/api/expenses?month=2025-03", ""))
	if len(list) != 0 {
		t.Errorf("expected no stored expense, got %d", len(list))
	}
}

func TestCategoriesHideCaseVariants(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/categories", `{"name":"food"}`)

	display := decode[[]core.Category](t, do(t, srv, http.MethodGet, "/api/categories", ""))
	all := decode[[]core.Category](t, do(t, srv, http.MethodGet, "/api/categories?all=1", ""))
	if len(all) != len(display)+1 {
		t.Fatalf("display=%d all=%d", len(display), len(all))
	}
}

func TestSettingsAbsent(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/settings", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"configured":false}` {
		t.Fatalf("body = %s", rr.Body)
	}
}

func TestLockGate(t *testing.T) {
	srv, gate := newTestServer(t)

	if rr := do(t, srv, http.MethodPost, "/api/lock", ""); rr.Code != http.StatusOK {
		t.Fatalf("lock status=%d", rr.Code)
	}
	if !gate.Locked() {
		t.Fatal("gate should be locked")
	}

	for _, path := range []string{"/api/dashboard", "/api/expenses", "/api/settings"} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusLocked {
			t.Errorf("%s status=%d, want 423", path, rr.Code)
		}
	}
	// Probes stay reachable.
	if rr := do(t, srv, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Errorf("healthz status=%d", rr.Code)
	}

	if rr := do(t, srv, http.MethodPost, "/api/unlock", `{"pin":"0000"}`); rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong pin status=%d", rr.Code)
	}
	if !gate.Locked() {
		t.Fatal("wrong pin must leave the gate locked")
	}

	if rr := do(t, srv, http.MethodPost, "/api/unlock", `{"pin":"1234"}`); rr.Code != http.StatusOK {
		t.Fatalf("unlock status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/dashboard", ""); rr.Code != http.StatusOK {
		t.Fatalf("dashboard after unlock status=%d", rr.Code)
	}
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	srv, _ := newTestServer(t, WithRateLimit(2))

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/api/categories", `{"name":"X"}`); rr.Code != http.StatusCreated {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPost, "/api/categories", `{"name":"X"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}

	// Reads are not limited.
	if rr := do(t, srv, http.MethodGet, "/api/categories", ""); rr.Code != http.StatusOK {
		t.Fatalf("read status=%d", rr.Code)
	}
}

func TestExportCSV(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/expenses", `{"category":"Food","amount":"12.34","note":"lunch"}`)

	rr := do(t, srv, http.MethodGet, "/api/export.csv?month=2025-03", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "mkwanja-2025-03.csv") {
		t.Errorf("content disposition = %q", cd)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Food") || !strings.Contains(body, "lunch") {
		t.Errorf("csv body = %q", body)
	}
}

func TestReport(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/expenses", `{"category":"Food","amount":"30"}`)
	do(t, srv, http.MethodPost, "/api/expenses", `{"category":"Rent","amount":"10"}`)

	rr := do(t, srv, http.MethodGet, "/api/reports?month=2025-03", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	got := decode[services.Report](t, rr)
	if len(got.Categories) != 2 || got.Categories[0].Name != "Food" || got.Categories[0].Percent != 75 {
		t.Fatalf("report = %+v", got)
	}
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
