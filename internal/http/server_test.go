package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flightdash/internal/dataset"
	"flightdash/internal/log"
	"flightdash/internal/source/memory"
)

type recordingPublisher struct {
	published int
}

func (p *recordingPublisher) PublishRefresh(context.Context, string, string) error {
	p.published++
	return nil
}

func testServer(t *testing.T, publisher RefreshPublisher) (*Server, *memory.Store) {
	t.Helper()
	cfg := log.DefaultConfig()
	cfg.Handler = slog.NewTextHandler(io.Discard, nil)
	logger := log.New(cfg)

	store := memory.NewWithSample("bookings")
	loader := dataset.NewLoader(store, nil, logger)
	srv := NewServer(":0", loader, "bookings", publisher, time.Minute, logger)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, store
}

func do(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeChart(t *testing.T, rr *httptest.ResponseRecorder) (bool, []map[string]any) {
	t.Helper()
	var resp struct {
		Available bool             `json:"available"`
		Rows      []map[string]any `json:"rows"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode chart response: %v (body %q)", err, rr.Body.String())
	}
	return resp.Available, resp.Rows
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := testServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, srv, http.MethodGet, path); rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestFacets(t *testing.T) {
	srv, _ := testServer(t, nil)
	rr := do(t, srv, http.MethodGet, "/api/facets")
	if rr.Code != 200 {
		t.Fatalf("facets status=%d", rr.Code)
	}
	var resp struct {
		Years  []int    `json:"years"`
		Months []string `json:"months"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode facets: %v", err)
	}
	if len(resp.Years) != 2 || resp.Years[0] != 2024 || resp.Years[1] != 2023 {
		t.Errorf("years = %v, want [2024 2023]", resp.Years)
	}
	// Sample months: Jan, Feb, Mar, Nov, in calendar order.
	want := []string{"January", "February", "March", "November"}
	if len(resp.Months) != len(want) {
		t.Fatalf("months = %v, want %v", resp.Months, want)
	}
	for i := range want {
		if resp.Months[i] != want[i] {
			t.Fatalf("months = %v, want %v", resp.Months, want)
		}
	}
}

func TestSummary(t *testing.T) {
	srv, _ := testServer(t, nil)
	rr := do(t, srv, http.MethodGet, "/api/summary?years=2024&months=January")
	if rr.Code != 200 {
		t.Fatalf("summary status=%d", rr.Code)
	}
	var resp struct {
		Bookings  int     `json:"bookings"`
		Ticketed  int     `json:"ticketed"`
		TotalComm float64 `json:"total_commission"`
		DateRange *struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"date_range"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if resp.Bookings != 2 || resp.Ticketed != 1 {
		t.Errorf("bookings=%d ticketed=%d, want 2 and 1", resp.Bookings, resp.Ticketed)
	}
	if resp.TotalComm != 450 {
		t.Errorf("total_commission = %v, want 450", resp.TotalComm)
	}
	if resp.DateRange == nil || resp.DateRange.From != "2024-01-05" || resp.DateRange.To != "2024-01-20" {
		t.Errorf("date_range = %+v", resp.DateRange)
	}
}

func TestChartEndpointsRespond(t *testing.T) {
	srv, _ := testServer(t, nil)
	paths := []string{
		"/api/flight-types",
		"/api/destinations",
		"/api/routes",
		"/api/financials/commission-by-type",
		"/api/financials/price-ranges",
		"/api/payments/commission",
		"/api/payments/usage",
		"/api/airports/commission",
		"/api/airports/sales",
		"/api/airports/volume",
	}
	for _, path := range paths {
		rr := do(t, srv, http.MethodGet, path)
		if rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		available, _ := decodeChart(t, rr)
		if !available {
			t.Errorf("%s reported unavailable with full columns", path)
		}
	}
}

func TestChartSelectionFilters(t *testing.T) {
	srv, _ := testServer(t, nil)
	rr := do(t, srv, http.MethodGet, "/api/flight-types?years=2024&months=january")
	if rr.Code != 200 {
		t.Fatalf("status=%d", rr.Code)
	}
	_, rows := decodeChart(t, rr)
	// January 2024 has one ticketed row, a Domestic flight.
	if len(rows) != 1 || rows[0]["name"] != "Domestic" {
		t.Errorf("rows = %v, want single Domestic entry", rows)
	}
}

func TestChartUnavailableWithoutColumn(t *testing.T) {
	srv, store := testServer(t, nil)
	store.SetRecords("bookings", [][]string{
		{"Date", "Ticket Numbers", "Total Price", "Commission"},
		{"2024-01-05", "T-1", "100", "10"},
	})

	rr := do(t, srv, http.MethodGet, "/api/airports/volume")
	if rr.Code != 200 {
		t.Fatalf("status=%d", rr.Code)
	}
	if available, _ := decodeChart(t, rr); available {
		t.Error("airport chart available without an Airport column")
	}
}

func TestBadSelectionRejected(t *testing.T) {
	srv, _ := testServer(t, nil)
	if rr := do(t, srv, http.MethodGet, "/api/summary?years=twenty"); rr.Code != http.StatusBadRequest {
		t.Errorf("invalid year status=%d, want 400", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/flight-types?months=Januember"); rr.Code != http.StatusBadRequest {
		t.Errorf("invalid month status=%d, want 400", rr.Code)
	}
}

func TestRefresh(t *testing.T) {
	pub := &recordingPublisher{}
	srv, store := testServer(t, pub)

	// Warm the cache.
	if rr := do(t, srv, http.MethodGet, "/api/flight-types"); rr.Code != 200 {
		t.Fatalf("warmup status=%d", rr.Code)
	}

	if rr := do(t, srv, http.MethodGet, "/api/refresh"); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET refresh status=%d, want 405", rr.Code)
	}

	store.SetRecords("bookings", [][]string{
		{"Date", "Ticket Numbers", "Payment Method", "From", "To", "Airport", "Type", "Total Price", "Commission", "No Passengers"},
		{"2024-05-01", "T-2001", "Card", "DEL", "GOI", "DEL", "Charter", "7500", "750", "4"},
	})

	rr := do(t, srv, http.MethodPost, "/api/refresh")
	if rr.Code != 200 {
		t.Fatalf("refresh status=%d body=%s", rr.Code, rr.Body.String())
	}
	if pub.published != 1 {
		t.Errorf("publisher called %d times, want 1", pub.published)
	}

	// The report cache must have been dropped with the dataset.
	rr = do(t, srv, http.MethodGet, "/api/flight-types")
	_, rows := decodeChart(t, rr)
	if len(rows) != 1 || rows[0]["name"] != "Charter" {
		t.Errorf("rows after refresh = %v, want single Charter entry", rows)
	}
}

func TestExportCSV(t *testing.T) {
	srv, _ := testServer(t, nil)
	rr := do(t, srv, http.MethodGet, "/api/export.csv?years=2024&months=January")
	if rr.Code != 200 {
		t.Fatalf("export status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("export has %d lines, want header plus 2 rows: %q", len(lines), rr.Body.String())
	}
	if !strings.HasPrefix(lines[0], "Date,") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(rr.Body.String(), "T-1001") {
		t.Error("export missing ticketed booking")
	}
	if !strings.Contains(rr.Body.String(), "No Tickets") {
		t.Error("export missing unticketed booking")
	}
}

func TestReportCacheServesStaleUntilRefresh(t *testing.T) {
	srv, store := testServer(t, nil)

	if rr := do(t, srv, http.MethodGet, "/api/payments/usage"); rr.Code != 200 {
		t.Fatalf("warmup status=%d", rr.Code)
	}

	// Changing the upstream table alone must not change responses; the
	// dataset is memoized until an explicit refresh.
	store.SetRecords("bookings", [][]string{
		{"Date", "Ticket Numbers", "Payment Method", "Total Price", "Commission"},
		{"2024-01-05", "T-1", "Wire", "100", "10"},
	})

	rr := do(t, srv, http.MethodGet, "/api/payments/usage")
	_, rows := decodeChart(t, rr)
	for _, row := range rows {
		if row["name"] == "Wire" {
			t.Fatal("cached report leaked upstream change without refresh")
		}
	}
}
