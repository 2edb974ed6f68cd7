package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"hisab/internal/core"
	"hisab/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "hisab.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	s := NewServer(":0", "local", repo, nil)
	ts := httptest.NewServer(s.Server.Handler)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { s.caches.Stop(); s.limiter.Stop() })
	return s, ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func decodeInto(t *testing.T, data []byte, dst any) {
	t.Helper()
	if err := json.Unmarshal(data, dst); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
}

func createAccount(t *testing.T, ts *httptest.Server, name, initial string) accountResponse {
	t.Helper()
	resp, data := doJSON(t, ts, http.MethodPost, "/api/accounts", accountRequest{
		Name:           name,
		Type:           "current",
		InitialBalance: initial,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create account: status %d, body %s", resp.StatusCode, data)
	}
	var out accountResponse
	decodeInto(t, data, &out)
	return out
}

func TestHealthEndpoints(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, _ := doJSON(t, ts, http.MethodGet, path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	// A couple of requests so counters move
	doJSON(t, ts, http.MethodGet, "/healthz", nil)
	resp, data := doJSON(t, ts, http.MethodGet, "/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: status %d", resp.StatusCode)
	}
	body := string(data)
	for _, metric := range []string{"http_requests_total", "cache_entries", "rate_limit_hits_total", "suspicious_requests_total", "uptime_seconds"} {
		if !bytes.Contains(data, []byte(metric)) {
			t.Errorf("metrics output missing %s:\n%s", metric, body)
		}
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodGet, "/healthz", nil)
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestEntryLifecycle(t *testing.T) {
	_, ts := newTestServer(t)
	account := createAccount(t, ts, "Checking", "1000")

	// Create a one-time expense
	resp, data := doJSON(t, ts, http.MethodPost, "/api/entries", entryRequest{
		Title:             "Groceries",
		Amount:            "74.30",
		Kind:              "expense",
		Schedule:          "one_time",
		Date:              "2026-03-14",
		PaidFromAccountID: account.ID.String(),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create entry: status %d, body %s", resp.StatusCode, data)
	}
	var created entryResponse
	decodeInto(t, data, &created)
	if created.Title != "Groceries" || created.Amount != "74.3" {
		t.Errorf("created = %q/%s", created.Title, created.Amount)
	}

	// Fetch it back
	resp, data = doJSON(t, ts, http.MethodGet, "/api/entries/"+created.ID.String(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get entry: status %d, body %s", resp.StatusCode, data)
	}

	// Patch the amount
	resp, data = doJSON(t, ts, http.MethodPatch, "/api/entries/"+created.ID.String()+"/amount",
		map[string]string{"amount": "80"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch amount: status %d, body %s", resp.StatusCode, data)
	}
	var patched entryResponse
	decodeInto(t, data, &patched)
	if patched.Amount != "80" {
		t.Errorf("patched amount = %s, want 80", patched.Amount)
	}

	// Delete, then a fetch is 404
	resp, _ = doJSON(t, ts, http.MethodDelete, "/api/entries/"+created.ID.String(), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete entry: status %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, ts, http.MethodGet, "/api/entries/"+created.ID.String(), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get deleted entry: status %d, want 404", resp.StatusCode)
	}
}

func TestEntryValidationErrors(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/entries", entryRequest{
		Title:    "",
		Amount:   "50",
		Kind:     "income",
		Schedule: "one_time",
		Date:     "2026-03-01",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("empty title: status %d, want 422", resp.StatusCode)
	}

	resp, _ = doJSON(t, ts, http.MethodPost, "/api/entries", entryRequest{
		Title:    "Bad amount",
		Amount:   "-5",
		Kind:     "income",
		Schedule: "one_time",
		Date:     "2026-03-01",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("negative amount: status %d, want 422", resp.StatusCode)
	}

	resp, _ = doJSON(t, ts, http.MethodGet, "/api/months?year=2026&month=13", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("month 13: status %d, want 422", resp.StatusCode)
	}
}

func TestAccountValidationErrors(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name string
		req  accountRequest
	}{
		{"unknown type", accountRequest{Name: "Main", Type: "checking", InitialBalance: "100"}},
		{"empty name", accountRequest{Name: "", Type: "current", InitialBalance: "100"}},
		{"negative initial balance", accountRequest{Name: "Main", Type: "current", InitialBalance: "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := doJSON(t, ts, http.MethodPost, "/api/accounts", tt.req)
			if resp.StatusCode != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422, body %s", resp.StatusCode, data)
			}
		})
	}
}

func TestMonthViewAndCompletionFlow(t *testing.T) {
	_, ts := newTestServer(t)
	account := createAccount(t, ts, "Checking", "1000")

	// Recurring rent, monthly from January
	resp, data := doJSON(t, ts, http.MethodPost, "/api/entries", entryRequest{
		Title:             "Rent",
		Amount:            "850",
		Kind:              "expense",
		Schedule:          "recurring",
		Cadence:           "monthly",
		StartDate:         "2026-01-01",
		PaidFromAccountID: account.ID.String(),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create template: status %d, body %s", resp.StatusCode, data)
	}
	var rent entryResponse
	decodeInto(t, data, &rent)

	// March view shows it pending at the template amount
	resp, data = doJSON(t, ts, http.MethodGet, "/api/months?year=2026&month=3", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("month view: status %d, body %s", resp.StatusCode, data)
	}
	var view core.MonthView
	decodeInto(t, data, &view)
	if view.PendingRecurring != 1 || view.CompletedRecurring != 0 {
		t.Fatalf("pending/completed = %d/%d, want 1/0", view.PendingRecurring, view.CompletedRecurring)
	}
	if !view.TotalExpense.Equal(decimal.RequireFromString("850")) {
		t.Errorf("TotalExpense = %s, want 850", view.TotalExpense)
	}

	// Complete at the actual amount
	resp, data = doJSON(t, ts, http.MethodPost, "/api/entries/"+rent.ID.String()+"/complete",
		map[string]any{"year": 2026, "month": 3, "amount": "830"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("complete: status %d, body %s", resp.StatusCode, data)
	}

	// The view now reflects the completion-resolved amount
	resp, data = doJSON(t, ts, http.MethodGet, "/api/months?year=2026&month=3", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("month view after complete: status %d", resp.StatusCode)
	}
	decodeInto(t, data, &view)
	if view.CompletedRecurring != 1 || view.PendingRecurring != 0 {
		t.Fatalf("pending/completed = %d/%d, want 0/1", view.PendingRecurring, view.CompletedRecurring)
	}
	if !view.TotalExpense.Equal(decimal.RequireFromString("830")) {
		t.Errorf("TotalExpense = %s, want 830", view.TotalExpense)
	}

	// Revert restores the template amount
	resp, _ = doJSON(t, ts, http.MethodPost, "/api/entries/"+rent.ID.String()+"/revert",
		map[string]any{"year": 2026, "month": 3})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("revert: status %d", resp.StatusCode)
	}
	resp, data = doJSON(t, ts, http.MethodGet, "/api/months?year=2026&month=3", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("month view after revert: status %d", resp.StatusCode)
	}
	decodeInto(t, data, &view)
	if !view.TotalExpense.Equal(decimal.RequireFromString("850")) {
		t.Errorf("TotalExpense after revert = %s, want 850", view.TotalExpense)
	}

	// Complete-all picks the still-pending template back up
	resp, data = doJSON(t, ts, http.MethodPost, "/api/months/complete-all",
		map[string]any{"year": 2026, "month": 3})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete-all: status %d, body %s", resp.StatusCode, data)
	}
	var completeAll struct {
		Completed int `json:"completed"`
	}
	decodeInto(t, data, &completeAll)
	if completeAll.Completed != 1 {
		t.Errorf("complete-all completed = %d, want 1", completeAll.Completed)
	}
}

func TestMarkCompletedRejectsNonDueMonth(t *testing.T) {
	_, ts := newTestServer(t)
	account := createAccount(t, ts, "Checking", "1000")

	// Quarterly from January: due in Jan, Apr, Jul, Oct only
	resp, data := doJSON(t, ts, http.MethodPost, "/api/entries", entryRequest{
		Title:             "Insurance",
		Amount:            "300",
		Kind:              "expense",
		Schedule:          "recurring",
		Cadence:           "quarterly",
		StartDate:         "2026-01-01",
		PaidFromAccountID: account.ID.String(),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create template: status %d, body %s", resp.StatusCode, data)
	}
	var tpl entryResponse
	decodeInto(t, data, &tpl)

	resp, data = doJSON(t, ts, http.MethodPost, "/api/entries/"+tpl.ID.String()+"/complete",
		map[string]any{"year": 2026, "month": 2, "amount": "300"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("complete in non-due month: status %d, want 422, body %s", resp.StatusCode, data)
	}

	// No completion record was persisted for February
	resp, data = doJSON(t, ts, http.MethodGet, "/api/months?year=2026&month=2", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("month view: status %d", resp.StatusCode)
	}
	var view core.MonthView
	decodeInto(t, data, &view)
	if view.CompletedRecurring != 0 {
		t.Errorf("CompletedRecurring = %d, want 0", view.CompletedRecurring)
	}

	// A due month still completes normally
	resp, data = doJSON(t, ts, http.MethodPost, "/api/entries/"+tpl.ID.String()+"/complete",
		map[string]any{"year": 2026, "month": 4, "amount": "300"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("complete in due month: status %d, body %s", resp.StatusCode, data)
	}
}

func TestBalanceEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	account := createAccount(t, ts, "Checking", "1000")

	resp, data := doJSON(t, ts, http.MethodPost, "/api/entries", entryRequest{
		Title:               "Salary",
		Amount:              "2500",
		Kind:                "income",
		Schedule:            "one_time",
		Date:                "2026-03-05",
		ReceivedToAccountID: account.ID.String(),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create income: status %d, body %s", resp.StatusCode, data)
	}

	resp, data = doJSON(t, ts, http.MethodGet,
		"/api/balance?account_id="+account.ID.String()+"&year=2026&month=3", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("balance: status %d, body %s", resp.StatusCode, data)
	}
	var balance struct {
		Balance        string `json:"balance"`
		ManualOverride bool   `json:"manual_override"`
	}
	decodeInto(t, data, &balance)
	if balance.Balance != "3500.00" {
		t.Errorf("balance = %s, want 3500.00", balance.Balance)
	}
	if balance.ManualOverride {
		t.Error("manual_override should be false")
	}

	// Missing account id is a 400
	resp, _ = doJSON(t, ts, http.MethodGet, "/api/balance?year=2026&month=3", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("balance without account: status %d, want 400", resp.StatusCode)
	}
}

func TestUserScopingViaHeader(t *testing.T) {
	_, ts := newTestServer(t)
	account := createAccount(t, ts, "Checking", "0")

	resp, data := doJSON(t, ts, http.MethodPost, "/api/entries", entryRequest{
		Title:             "Groceries",
		Amount:            "20",
		Kind:              "expense",
		Schedule:          "one_time",
		Date:              "2026-03-01",
		PaidFromAccountID: account.ID.String(),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create entry: status %d, body %s", resp.StatusCode, data)
	}
	var created entryResponse
	decodeInto(t, data, &created)

	// A different user cannot see it
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/entries/"+created.ID.String(), nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-User-ID", "someone-else")
	otherResp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	otherResp.Body.Close()
	if otherResp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign user fetch: status %d, want 404", otherResp.StatusCode)
	}
}

func TestCategoriesSeeded(t *testing.T) {
	_, ts := newTestServer(t)

	resp, data := doJSON(t, ts, http.MethodGet, "/api/categories", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("categories: status %d, body %s", resp.StatusCode, data)
	}
	var categories []struct {
		Name   string `json:"name"`
		Type   string `json:"type"`
		System bool   `json:"system"`
	}
	decodeInto(t, data, &categories)
	if len(categories) == 0 {
		t.Fatal("expected seeded categories")
	}
	found := false
	for _, c := range categories {
		if c.Name == "Housing" && c.Type == "expense" && c.System {
			found = true
		}
	}
	if !found {
		t.Error("seeded Housing category missing")
	}
}

func TestInsightsQueryEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	account := createAccount(t, ts, "Checking", "100")

	resp, data := doJSON(t, ts, http.MethodPost, "/api/entries", entryRequest{
		Title:             "Groceries",
		Amount:            "74.30",
		Kind:              "expense",
		Schedule:          "one_time",
		Date:              "2026-03-14",
		PaidFromAccountID: account.ID.String(),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create entry: status %d, body %s", resp.StatusCode, data)
	}

	resp, data = doJSON(t, ts, http.MethodPost, "/api/insights/query",
		map[string]any{"intent": "expense", "year": 2026, "month": 3})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("insights query: status %d, body %s", resp.StatusCode, data)
	}
	var result struct {
		Intent      string `json:"intent"`
		TotalAmount string `json:"total_amount"`
	}
	decodeInto(t, data, &result)
	if result.Intent != "expense" || result.TotalAmount != "74.3" {
		t.Errorf("result = %s/%s, want expense/74.3", result.Intent, result.TotalAmount)
	}

	resp, _ = doJSON(t, ts, http.MethodPost, "/api/insights/query",
		map[string]any{"intent": "net-worth", "year": 2026, "month": 3})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("unknown intent: status %d, want 422", resp.StatusCode)
	}
}

func TestUpdateFutureEndpointForksSeries(t *testing.T) {
	_, ts := newTestServer(t)
	account := createAccount(t, ts, "Checking", "0")

	resp, data := doJSON(t, ts, http.MethodPost, "/api/entries", entryRequest{
		Title:             "Gym",
		Amount:            "40",
		Kind:              "expense",
		Schedule:          "recurring",
		Cadence:           "monthly",
		StartDate:         "2026-01-01",
		PaidFromAccountID: account.ID.String(),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create template: status %d, body %s", resp.StatusCode, data)
	}
	var gym entryResponse
	decodeInto(t, data, &gym)

	resp, data = doJSON(t, ts, http.MethodPost, "/api/entries/"+gym.ID.String()+"/future",
		map[string]any{
			"effective_from": "2026-05-01",
			"changes": entryRequest{
				Title:             "Gym",
				Amount:            "55",
				Kind:              "expense",
				Schedule:          "recurring",
				Cadence:           "monthly",
				PaidFromAccountID: account.ID.String(),
			},
		})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update future: status %d, body %s", resp.StatusCode, data)
	}
	var successor entryResponse
	decodeInto(t, data, &successor)
	if successor.ID == gym.ID {
		t.Error("successor should be a new template")
	}
	if successor.Amount != "55" || successor.StartDate != "2026-05-01" {
		t.Errorf("successor = %s from %s", successor.Amount, successor.StartDate)
	}
	if successor.RecurrenceGroupID != gym.RecurrenceGroupID {
		t.Error("recurrence group must be preserved across the fork")
	}

	// April still bills at the old amount, May at the new one
	resp, data = doJSON(t, ts, http.MethodGet, "/api/months?year=2026&month=4", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("april view: status %d", resp.StatusCode)
	}
	var view core.MonthView
	decodeInto(t, data, &view)
	if !view.TotalExpense.Equal(decimal.RequireFromString("40")) {
		t.Errorf("april TotalExpense = %s, want 40", view.TotalExpense)
	}

	resp, data = doJSON(t, ts, http.MethodGet, "/api/months?year=2026&month=5", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("may view: status %d", resp.StatusCode)
	}
	decodeInto(t, data, &view)
	if !view.TotalExpense.Equal(decimal.RequireFromString("55")) {
		t.Errorf("may TotalExpense = %s, want 55", view.TotalExpense)
	}
}
