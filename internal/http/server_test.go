package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"billdash/internal/core"
	applog "billdash/internal/log"
	"billdash/internal/middleware/trace"
	"billdash/internal/services"
	"billdash/internal/store/memory"
)

var march15 = time.Date(2025, time.March, 15, 9, 0, 0, 0, time.UTC)

func seedBill(id, name string, cents int64, cat core.Category, y, m, d int) core.Bill {
	return core.Bill{ID: id, Name: name, Amount: core.Money{Cents: cents}, Category: cat, Date: core.NewDate(y, m, d)}
}

func defaultSeed() []core.Bill {
	return []core.Bill{
		seedBill("b1", "Electricity", 50000, core.Utilities, 2025, 3, 2),
		seedBill("b2", "Printer paper", 30000, core.Supplies, 2025, 3, 5),
		seedBill("b3", "Boiler service", 20000, core.Maintenance, 2025, 3, 9),
		seedBill("b4", "April rent", 90000, core.Other, 2025, 4, 1),
	}
}

func newTestServer(t *testing.T, opts Options, seed ...core.Bill) (*Server, *services.BillService) {
	t.Helper()
	logger := applog.NewText(io.Discard, slog.LevelError, applog.ComponentHTTP)
	svc := services.NewBillService(memory.New(seed), logger)
	opts.Logger = logger
	if opts.Now == nil {
		opts.Now = func() time.Time { return march15 }
	}
	srv, err := NewServer(svc, opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, svc
}

func do(t *testing.T, srv *Server, method, target, body string, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	return w
}

func TestIndexShowsCurrentMonth(t *testing.T) {
	srv, _ := newTestServer(t, Options{}, defaultSeed()...)

	w := do(t, srv, http.MethodGet, "/", "", false)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Electricity", "Printer paper", "Boiler service", "Rs.1000.00", "March 2025", `value="2025-03-15"`} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}
	if strings.Contains(body, "April rent") {
		t.Error("index shows a bill from another month")
	}
	if w.Header().Get("X-Frame-Options") != "DENY" || w.Header().Get("Content-Security-Policy") == "" {
		t.Error("security headers not applied")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("request id not echoed")
	}
}

func TestIndexEmptyMonth(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	w := do(t, srv, http.MethodGet, "/", "", false)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "No bills found for the current month.") {
		t.Fatalf("status = %d, body lacks empty state", w.Code)
	}
}

func TestCreateBill(t *testing.T) {
	srv, _ := newTestServer(t, Options{}, defaultSeed()...)

	w := do(t, srv, http.MethodPost, "/bills", "name=Water&amount=150.25&category=Utilities&date=2025-03-20", false)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/" {
		t.Fatalf("status = %d location = %q", w.Code, w.Header().Get("Location"))
	}
	if body := do(t, srv, http.MethodGet, "/", "", false).Body.String(); !strings.Contains(body, "Water") || !strings.Contains(body, "Rs.1150.25") {
		t.Fatal("new bill missing from dashboard")
	}

	w = do(t, srv, http.MethodPost, "/bills", "name=Flyers&amount=40&category=Marketing&date=2025-03-21", true)
	if w.Code != http.StatusCreated {
		t.Fatalf("htmx status = %d", w.Code)
	}
	trigger := w.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, `"bill:changed"`) || !strings.Contains(trigger, `"form:reset"`) {
		t.Errorf("HX-Trigger = %s", trigger)
	}
	if body := w.Body.String(); !strings.Contains(body, `id="bills"`) || !strings.Contains(body, "Flyers") || strings.Contains(body, "<html") {
		t.Error("htmx response should be the bills table fragment")
	}
}

func TestCreateBillValidation(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	tests := []struct {
		name    string
		body    string
		htmx    bool
		wantMsg string
	}{
		{"negative amount", "name=Zorbo&amount=-10&category=Other&date=2025-03-01", false, "Amount must be a non-negative number"},
		{"missing name", "name=&amount=10&category=Other&date=2025-03-01", false, "Bill name is required"},
		{"unknown category", "name=Zorbo&amount=10&category=Food&date=2025-03-01", true, "Unknown category"},
		{"bad date", "name=Zorbo&amount=10&category=Other&date=tomorrow", true, "Date must be a valid YYYY-MM-DD date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, "/bills", tt.body, tt.htmx)
			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d", w.Code)
			}
			body := w.Body.String()
			if !strings.Contains(body, tt.wantMsg) {
				t.Errorf("body missing %q", tt.wantMsg)
			}
			if !tt.htmx && strings.Contains(tt.body, "name=Zorbo") && !strings.Contains(body, `value="Zorbo"`) {
				t.Error("form values not preserved")
			}
		})
	}

	if body := do(t, srv, http.MethodGet, "/", "", false).Body.String(); strings.Contains(body, "Zorbo") {
		t.Error("rejected bill was stored")
	}
}

func TestEditUpdateDelete(t *testing.T) {
	srv, _ := newTestServer(t, Options{}, defaultSeed()...)

	w := do(t, srv, http.MethodGet, "/bills/b2/edit", "", false)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `action="/bills/b2"`) || !strings.Contains(w.Body.String(), `value="300.00"`) {
		t.Fatalf("edit page status = %d", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/bills/b2/edit", "", true); !strings.HasPrefix(strings.TrimSpace(w.Body.String()), "<form") {
		t.Error("htmx edit should return the form fragment")
	}

	w = do(t, srv, http.MethodPost, "/bills/b2", "name=Toner&amount=310&category=Supplies&date=2025-03-06", false)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("update status = %d", w.Code)
	}
	body := do(t, srv, http.MethodGet, "/", "", false).Body.String()
	if !strings.Contains(body, "Toner") || strings.Contains(body, "Printer paper") {
		t.Fatal("update not visible")
	}

	w = do(t, srv, http.MethodDelete, "/bills/b2", "", false)
	if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("HX-Trigger"), `"deleted"`) {
		t.Fatalf("delete status = %d trigger = %s", w.Code, w.Header().Get("HX-Trigger"))
	}
	if strings.Contains(w.Body.String(), "Toner") {
		t.Error("deleted bill still in table")
	}

	if w := do(t, srv, http.MethodPost, "/bills/b1/delete", "", false); w.Code != http.StatusSeeOther {
		t.Fatalf("form delete status = %d", w.Code)
	}

	for _, req := range []struct{ method, target, body string }{
		{http.MethodGet, "/bills/b2/edit", ""},
		{http.MethodDelete, "/bills/b2", ""},
		{http.MethodPost, "/bills/missing", "name=x&amount=1&category=Other&date=2025-03-01"},
	} {
		if w := do(t, srv, req.method, req.target, req.body, true); w.Code != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want 404", req.method, req.target, w.Code)
		}
	}
}

func TestFilter(t *testing.T) {
	srv, svc := newTestServer(t, Options{}, defaultSeed()...)

	w := do(t, srv, http.MethodPost, "/filter", "category=Supplies", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Printer paper") || strings.Contains(body, "Electricity") {
		t.Error("table not filtered")
	}
	if f, _ := svc.Filter(context.Background()); f != core.CategoryFilter(core.Supplies) {
		t.Errorf("stored filter = %q", f)
	}

	// The overview still covers the whole month.
	if page := do(t, srv, http.MethodGet, "/", "", false).Body.String(); !strings.Contains(page, "Rs.1000.00") {
		t.Error("overview should ignore the filter")
	}

	if w := do(t, srv, http.MethodPost, "/filter", "category=All", false); w.Code != http.StatusSeeOther {
		t.Fatalf("reset status = %d", w.Code)
	}
	if w := do(t, srv, http.MethodPost, "/filter", "category=Food", false); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid filter status = %d", w.Code)
	}
}

func TestOptimize(t *testing.T) {
	srv, _ := newTestServer(t, Options{}, defaultSeed()...)

	w := do(t, srv, http.MethodPost, "/optimize", "budget=600", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Boiler service", "Printer paper", "Rs.500.00", "Rs.100.00", "83.3%"} {
		if !strings.Contains(body, want) {
			t.Errorf("results missing %q", want)
		}
	}
	if strings.Contains(body, "Electricity") || strings.Contains(body, "April rent") {
		t.Error("results include a bill that does not fit or is out of month")
	}

	w = do(t, srv, http.MethodPost, "/optimize", "budget=600", false)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `id="bill-b3" class="selected"`) || !strings.Contains(w.Body.String(), `value="600"`) {
		t.Fatal("full page should highlight selected rows and keep the budget")
	}

	if w := do(t, srv, http.MethodPost, "/optimize", "budget=0", true); !strings.Contains(w.Body.String(), "No bills fit within this budget.") {
		t.Error("zero budget should select nothing")
	}
	w = do(t, srv, http.MethodPost, "/optimize", "budget=abc", false)
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), "Budget must be a non-negative number") {
		t.Fatalf("invalid budget status = %d", w.Code)
	}
}

func TestChartAndTrendJSON(t *testing.T) {
	srv, _ := newTestServer(t, Options{}, defaultSeed()...)

	w := do(t, srv, http.MethodGet, "/chart", "", false)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<polyline") || !strings.Contains(w.Body.String(), "Apr 2025") {
		t.Fatalf("chart status = %d", w.Code)
	}

	w = do(t, srv, http.MethodGet, "/api/trend", "", false)
	var got trendDTO
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode trend: %v", err)
	}
	if len(got.Months) != 2 || got.Months[0].Label != "Mar 2025" || got.Months[0].Total.Cents != 100000 {
		t.Fatalf("unexpected months %+v", got.Months)
	}
	if got.Total.Value != "1900.00" || got.Highest.Cents != 100000 || got.Lowest.Cents != 90000 {
		t.Fatalf("unexpected summary %+v", got)
	}

	empty, _ := newTestServer(t, Options{})
	if w := do(t, empty, http.MethodGet, "/chart", "", false); !strings.Contains(w.Body.String(), "No bills recorded yet.") {
		t.Error("empty chart should show placeholder")
	}
}

func TestDashboardCacheInvalidation(t *testing.T) {
	srv, svc := newTestServer(t, Options{}, defaultSeed()...)

	do(t, srv, http.MethodGet, "/", "", false)
	do(t, srv, http.MethodGet, "/", "", false)
	if hits, misses := srv.dashboards.Stats(); hits != 1 || misses != 1 {
		t.Fatalf("hits=%d misses=%d", hits, misses)
	}

	if _, err := svc.CreateBill(context.Background(), seedBill("", "Internet", 7000, core.Utilities, 2025, 3, 12)); err != nil {
		t.Fatal(err)
	}
	if srv.dashboardCache.Size() != 0 {
		t.Fatal("mutation did not purge the dashboard cache")
	}
	if body := do(t, srv, http.MethodGet, "/", "", false).Body.String(); !strings.Contains(body, "Internet") {
		t.Fatal("stale dashboard served after create")
	}
}

func TestHealthAndReadiness(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	if w := do(t, srv, http.MethodGet, "/healthz", "", false); w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", w.Code, w.Body.String())
	}
	if w := do(t, srv, http.MethodGet, "/readyz", "", false); w.Code != http.StatusOK {
		t.Fatalf("readyz = %d", w.Code)
	}

	down, _ := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("db closed") }})
	if w := do(t, down, http.MethodGet, "/readyz", "", false); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing backend = %d", w.Code)
	}
}

func TestMetrics(t *testing.T) {
	srv, _ := newTestServer(t, Options{}, defaultSeed()...)
	do(t, srv, http.MethodPost, "/bills", "name=Water&amount=10&category=Utilities&date=2025-03-20", false)
	do(t, srv, http.MethodPost, "/optimize", "budget=100", true)
	do(t, srv, http.MethodGet, "/.env", "", false)

	body := do(t, srv, http.MethodGet, "/metrics", "", false).Body.String()
	for _, want := range []string{
		"bills_created_total 1",
		"optimize_runs_total 1",
		"security_suspicious_requests_total 1",
		"http_requests_total 3",
		`cache_entries{cache="dashboard"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitPerMinute: 2})

	for i := 0; i < 2; i++ {
		if w := do(t, srv, http.MethodPost, "/filter", "category=All", true); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
	w := do(t, srv, http.MethodPost, "/filter", "category=All", true)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("status = %d retry-after = %q", w.Code, w.Header().Get("Retry-After"))
	}
	if w := do(t, srv, http.MethodGet, "/", "", false); w.Code != http.StatusOK {
		t.Fatalf("reads should not be limited, got %d", w.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	w := do(t, srv, http.MethodGet, "/static/app.css", "", false)
	if w.Code != http.StatusOK || w.Header().Get("Cache-Control") != "public, max-age=3600" {
		t.Fatalf("status = %d cache-control = %q", w.Code, w.Header().Get("Cache-Control"))
	}
}

func TestTemplateFuncs(t *testing.T) {
	if got := formatMoney(core.Money{Cents: -1234}); got != "-Rs.12.34" {
		t.Errorf("formatMoney = %q", got)
	}
	if got := formatLongDate(core.NewDate(2025, 3, 5)); got != "Mar 5, 2025" {
		t.Errorf("formatLongDate = %q", got)
	}
	if monthName(13) != "" || monthName(1) != "January" {
		t.Error("monthName out of range handling")
	}
}

func TestInternalErrorCarriesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	writeError(w, req.WithContext(context.WithValue(req.Context(), trace.RequestIDKey, "req-42")), "test", errors.New("boom"))
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "(request req-42)") {
		t.Fatalf("status = %d body = %q", w.Code, w.Body.String())
	}

	// Unknown errors never leak their text.
	if strings.Contains(w.Body.String(), "boom") {
		t.Fatal("internal error text exposed")
	}
}
