package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/jszwec/csvutil"

	"flightdash/internal/core"
	"flightdash/internal/report"
)

// chartResponse is the envelope for every chart endpoint. Available is false
// when the source table is missing a column the chart needs; Rows is then
// empty rather than the endpoint failing.
type chartResponse struct {
	Available bool `json:"available"`
	Rows      any  `json:"rows"`
}

type summaryResponse struct {
	Bookings        int         `json:"bookings"`
	Ticketed        int         `json:"ticketed"`
	Dropped         int         `json:"dropped"`
	Passengers      int         `json:"passengers"`
	MaxTicketPrice  core.Amount `json:"max_ticket_price"`
	TotalCommission float64     `json:"total_commission"`
	TotalSales      float64     `json:"total_sales"`
	AvgTicketPrice  core.Amount `json:"avg_ticket_price"`
	DateRange       *dateRange  `json:"date_range"`
	LoadedAt        time.Time   `json:"loaded_at"`
}

type dateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type facetsResponse struct {
	Years  []int    `json:"years"`
	Months []string `json:"months"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the dataset can be loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.loader.Load(r.Context(), s.locator); err != nil {
		s.logger.WarnContext(r.Context(), "readiness check failed", "error", err)
		http.Error(w, "dataset unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	ds, err := s.loader.Load(r.Context(), s.locator)
	if err != nil {
		s.datasetError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, facetsResponse{
		Years:  orEmpty(report.AvailableYears(ds)),
		Months: orEmpty(report.AvailableMonths(ds)),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	sel, err := selectionFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ds, err := s.loader.Load(r.Context(), s.locator)
	if err != nil {
		s.datasetError(w, r, err)
		return
	}

	rep := report.Build(ds, sel)
	h := rep.Headline()
	resp := summaryResponse{
		Bookings:        h.Bookings,
		Ticketed:        len(rep.Ticketed),
		Dropped:         ds.Dropped,
		Passengers:      h.Passengers,
		MaxTicketPrice:  h.MaxTicketPrice,
		TotalCommission: h.TotalCommission,
		TotalSales:      h.TotalSales,
		AvgTicketPrice:  h.AvgTicketPrice,
		LoadedAt:        ds.LoadedAt,
	}
	if dr, ok := report.Range(rep.Filtered); ok {
		resp.DateRange = &dateRange{
			From: dr.From.Format("2006-01-02"),
			To:   dr.To.Format("2006-01-02"),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// chartHandler serves one aggregation as a chartResponse, with the selection
// parsed from the query string.
func (s *Server) chartHandler(fn func(*report.Report) (any, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}

		sel, err := selectionFromQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		rep, err := s.report(r.Context(), sel)
		if err != nil {
			s.datasetError(w, r, err)
			return
		}

		rows, ok := fn(rep)
		writeJSON(w, http.StatusOK, chartResponse{Available: ok, Rows: rows})
	}
}

func flightTypes(r *report.Report) (any, bool) {
	rows, ok := r.FlightTypeShares()
	return orEmpty(rows), ok
}

func topDestinations(r *report.Report) (any, bool) {
	rows, ok := r.TopDestinations()
	return orEmpty(rows), ok
}

func topRoutes(r *report.Report) (any, bool) {
	rows, ok := r.TopRoutesByCommission()
	return orEmpty(rows), ok
}

func commissionByType(r *report.Report) (any, bool) {
	rows, ok := r.CommissionByFlightType()
	return orEmpty(rows), ok
}

func priceRanges(r *report.Report) (any, bool) {
	rows, ok := r.PriceRangeHistogram()
	return orEmpty(rows), ok
}

func paymentCommission(r *report.Report) (any, bool) {
	rows, ok := r.CommissionByPaymentMethod()
	return orEmpty(rows), ok
}

func paymentUsage(r *report.Report) (any, bool) {
	rows, ok := r.PaymentMethodUsage()
	return orEmpty(rows), ok
}

func airportCommission(r *report.Report) (any, bool) {
	rows, ok := r.CommissionByAirport()
	return orEmpty(rows), ok
}

func airportSales(r *report.Report) (any, bool) {
	rows, ok := r.SalesByAirport()
	return orEmpty(rows), ok
}

func airportVolume(r *report.Report) (any, bool) {
	rows, ok := r.BookingVolumeByAirport()
	return orEmpty(rows), ok
}

// exportRow mirrors the canonical source header so an exported file can be
// re-ingested as-is.
type exportRow struct {
	Date          string `csv:"Date"`
	TicketNumbers string `csv:"Ticket Numbers"`
	PaymentMethod string `csv:"Payment Method"`
	From          string `csv:"From"`
	To            string `csv:"To"`
	Airport       string `csv:"Airport"`
	FlightType    string `csv:"Type"`
	TotalPrice    string `csv:"Total Price"`
	Commission    string `csv:"Commission"`
	Passengers    int    `csv:"No Passengers"`
}

// handleExportCSV streams the filtered rows back out as CSV.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	sel, err := selectionFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rep, err := s.report(r.Context(), sel)
	if err != nil {
		s.datasetError(w, r, err)
		return
	}

	rows := make([]exportRow, 0, len(rep.Filtered))
	for _, b := range rep.Filtered {
		rows = append(rows, exportRow{
			Date:          b.Date.Format("2006-01-02"),
			TicketNumbers: b.TicketNumbers,
			PaymentMethod: b.PaymentMethod,
			From:          b.From,
			To:            b.To,
			Airport:       b.Airport,
			FlightType:    b.FlightType,
			TotalPrice:    amountString(b.TotalPrice),
			Commission:    amountString(b.Commission),
			Passengers:    b.Passengers,
		})
	}

	body, err := csvutil.Marshal(rows)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "csv export failed", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="bookings.csv"`)
	_, _ = w.Write(body)
}

// handleRefresh reloads the dataset from the source, drops the report cache
// and, when a publisher is configured, tells worker processes to do the same.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	ds, err := s.loader.Refresh(r.Context(), s.locator)
	if err != nil {
		s.datasetError(w, r, err)
		return
	}
	s.reports.Purge()

	if s.publisher != nil {
		if err := s.publisher.PublishRefresh(r.Context(), s.locator, "api"); err != nil {
			s.logger.WarnContext(r.Context(), "refresh publish failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "refreshed",
		"rows":    len(ds.Bookings),
		"dropped": ds.Dropped,
	})
}

func (s *Server) datasetError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.ErrorContext(r.Context(), "dataset load failed",
		"locator", s.locator, "error", err)
	http.Error(w, "dataset unavailable", http.StatusServiceUnavailable)
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	w.WriteHeader(http.StatusMethodNotAllowed)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func amountString(a core.Amount) string {
	if !a.Valid {
		return ""
	}
	return strconv.FormatFloat(a.Value, 'f', -1, 64)
}

func orEmpty[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
