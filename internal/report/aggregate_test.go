package report

import (
	"math"
	"testing"

	"flightdash/internal/core"
	"flightdash/internal/normalize"
	"flightdash/internal/source"
)

func ticketedBooking(from, to, flightType, airport, payment string, price, commission float64, passengers int) core.Booking {
	b := booking("2024-01-05", "T-1", price, commission)
	b.From = from
	b.To = to
	b.FlightType = flightType
	b.Airport = airport
	b.PaymentMethod = payment
	b.Passengers = passengers
	return b
}

func TestHeadline(t *testing.T) {
	ds := datasetOf(
		ticketedBooking("DEL", "BOM", "Domestic", "DEL", "Card", 4500, 450, 2),
		ticketedBooking("DEL", "DXB", "International", "DEL", "Cash", 22000, 1100, 3),
		booking("2024-01-10", "No Tickets", 999, 99),
	)

	h := Build(ds, Selection{}).Headline()
	if h.Bookings != 3 {
		t.Errorf("Bookings = %d, want 3", h.Bookings)
	}
	if h.Passengers != 5 {
		t.Errorf("Passengers = %d, want 5", h.Passengers)
	}
	if !h.MaxTicketPrice.Valid || h.MaxTicketPrice.Value != 22000 {
		t.Errorf("MaxTicketPrice = %+v, want 22000", h.MaxTicketPrice)
	}
	if h.TotalCommission != 1550 {
		t.Errorf("TotalCommission = %v, want 1550", h.TotalCommission)
	}
	if h.TotalSales != 26500 {
		t.Errorf("TotalSales = %v, want 26500", h.TotalSales)
	}
	if !h.AvgTicketPrice.Valid || h.AvgTicketPrice.Value != 13250 {
		t.Errorf("AvgTicketPrice = %+v, want 13250", h.AvgTicketPrice)
	}
}

func TestHeadlineEmptyTicketed(t *testing.T) {
	ds := datasetOf(booking("2024-01-10", "No Tickets", 1, 1))

	h := Build(ds, Selection{}).Headline()
	if h.Bookings != 1 {
		t.Errorf("Bookings = %d, want 1", h.Bookings)
	}
	if h.MaxTicketPrice.Valid || h.AvgTicketPrice.Valid {
		t.Errorf("price metrics should be null with no ticketed rows, got max=%+v avg=%+v",
			h.MaxTicketPrice, h.AvgTicketPrice)
	}
}

func TestFlightTypeShares(t *testing.T) {
	ds := datasetOf(
		ticketedBooking("A", "B", "Domestic", "A", "Card", 1, 1, 1),
		ticketedBooking("A", "B", "Domestic", "A", "Card", 1, 1, 1),
		ticketedBooking("A", "B", "International", "A", "Card", 1, 1, 1),
		ticketedBooking("A", "B", "", "A", "Card", 1, 1, 1),
	)

	shares, ok := Build(ds, Selection{}).FlightTypeShares()
	if !ok {
		t.Fatal("FlightTypeShares reported not ok")
	}
	if len(shares) != 2 {
		t.Fatalf("got %d categories, want 2 (empty type dropped)", len(shares))
	}
	if shares[0].Name != "Domestic" || shares[0].Count != 2 {
		t.Errorf("shares[0] = %+v, want Domestic count 2", shares[0])
	}
	// Percent is over rows with a type, so 2/3 and 1/3.
	if math.Abs(shares[0].Percent-200.0/3) > 1e-9 {
		t.Errorf("Domestic percent = %v, want %v", shares[0].Percent, 200.0/3)
	}
	if math.Abs(shares[0].Percent+shares[1].Percent-100) > 1e-9 {
		t.Errorf("percents sum to %v, want 100", shares[0].Percent+shares[1].Percent)
	}
}

func TestMissingColumnDisablesMetric(t *testing.T) {
	ds := datasetOf(ticketedBooking("A", "B", "Domestic", "A", "Card", 1, 1, 1))
	delete(ds.Columns, core.ColType)
	delete(ds.Columns, core.ColAirport)

	r := Build(ds, Selection{})
	if _, ok := r.FlightTypeShares(); ok {
		t.Error("FlightTypeShares ok without Type column")
	}
	if _, ok := r.CommissionByFlightType(); ok {
		t.Error("CommissionByFlightType ok without Type column")
	}
	if _, ok := r.CommissionByAirport(); ok {
		t.Error("CommissionByAirport ok without Airport column")
	}
	if _, ok := r.TopDestinations(); !ok {
		t.Error("TopDestinations should stay available")
	}
}

func TestTopDestinationsLimitAndStableTies(t *testing.T) {
	var bookings []core.Booking
	// Twelve destinations with equal sales; only ten survive, in input order.
	names := []string{"AAA", "BBB", "CCC", "DDD", "EEE", "FFF", "GGG", "HHH", "III", "JJJ", "KKK", "LLL"}
	for _, n := range names {
		bookings = append(bookings, ticketedBooking("HUB", n, "Domestic", "HUB", "Card", 100, 10, 1))
	}
	ds := datasetOf(bookings...)

	got, ok := Build(ds, Selection{}).TopDestinations()
	if !ok {
		t.Fatal("TopDestinations reported not ok")
	}
	if len(got) != 10 {
		t.Fatalf("got %d destinations, want 10", len(got))
	}
	for i, n := range names[:10] {
		if got[i].Name != n {
			t.Fatalf("tie order broken at %d: got %q, want %q", i, got[i].Name, n)
		}
	}
}

func TestTopRoutesByCommission(t *testing.T) {
	ds := datasetOf(
		ticketedBooking("DEL", "BOM", "Domestic", "DEL", "Card", 4500, 450, 2),
		ticketedBooking("DEL", "BOM", "Domestic", "DEL", "Cash", 5000, 500, 1),
		ticketedBooking("BOM", "DXB", "International", "BOM", "Card", 20000, 2000, 4),
		ticketedBooking("", "", "Domestic", "DEL", "Card", 100, 10, 1),
	)

	routes, ok := Build(ds, Selection{}).TopRoutesByCommission()
	if !ok {
		t.Fatal("TopRoutesByCommission reported not ok")
	}
	if len(routes) != 2 {
		t.Fatalf("got %d routes, want 2 (blank route dropped)", len(routes))
	}
	if routes[0].Route != "BOM → DXB" || routes[0].Commission != 2000 {
		t.Errorf("routes[0] = %+v, want BOM → DXB commission 2000", routes[0])
	}
	if routes[1].Route != "DEL → BOM" || routes[1].Commission != 950 ||
		routes[1].Sales != 9500 || routes[1].Passengers != 3 {
		t.Errorf("routes[1] = %+v, want DEL → BOM commission 950 sales 9500 passengers 3", routes[1])
	}
}

func TestPriceRangeHistogramBoundaries(t *testing.T) {
	ds := datasetOf(
		ticketedBooking("A", "B", "D", "A", "Card", 0, 1, 1),      // 0–5K
		ticketedBooking("A", "B", "D", "A", "Card", 4999.99, 1, 1), // 0–5K
		ticketedBooking("A", "B", "D", "A", "Card", 5000, 1, 1),   // 5K–10K, lower bound inclusive
		ticketedBooking("A", "B", "D", "A", "Card", 100000, 1, 1), // 100K+
		ticketedBooking("A", "B", "D", "A", "Card", 250000, 1, 1), // 100K+
	)

	r := Build(ds, Selection{})
	bands, ok := r.PriceRangeHistogram()
	if !ok {
		t.Fatal("PriceRangeHistogram reported not ok")
	}
	counts := map[string]int{}
	total := 0
	for _, b := range bands {
		counts[b.Label] = b.Count
		total += b.Count
	}
	if total != len(r.Ticketed) {
		t.Errorf("band counts sum to %d, want %d", total, len(r.Ticketed))
	}
	if counts["0–5K"] != 2 {
		t.Errorf("0–5K count = %d, want 2", counts["0–5K"])
	}
	if counts["5K–10K"] != 1 {
		t.Errorf("5K–10K count = %d, want 1", counts["5K–10K"])
	}
	if counts["100K+"] != 2 {
		t.Errorf("100K+ count = %d, want 2", counts["100K+"])
	}
	if bands[0].Label != "0–5K" || !bands[0].AvgPrice.Valid {
		t.Errorf("bands[0] = %+v, want 0–5K with an average", bands[0])
	}
	if bands[2].AvgPrice.Valid {
		t.Errorf("empty band carries an average: %+v", bands[2])
	}
}

func TestPaymentAggregations(t *testing.T) {
	ds := datasetOf(
		ticketedBooking("A", "B", "D", "A", "Card", 100, 10, 1),
		ticketedBooking("A", "B", "D", "A", "Card", 100, 10, 1),
		ticketedBooking("A", "B", "D", "A", "UPI", 100, 50, 1),
	)
	r := Build(ds, Selection{})

	byMethod, ok := r.CommissionByPaymentMethod()
	if !ok || len(byMethod) != 2 {
		t.Fatalf("CommissionByPaymentMethod = %v ok=%v, want 2 methods", byMethod, ok)
	}
	if byMethod[0].Name != "UPI" || byMethod[0].Value != 50 {
		t.Errorf("byMethod[0] = %+v, want UPI 50", byMethod[0])
	}

	usage, ok := r.PaymentMethodUsage()
	if !ok || len(usage) != 2 {
		t.Fatalf("PaymentMethodUsage = %v ok=%v, want 2 methods", usage, ok)
	}
	if usage[0].Name != "Card" || usage[0].Count != 2 {
		t.Errorf("usage[0] = %+v, want Card 2", usage[0])
	}
}

func TestAirportAggregations(t *testing.T) {
	ds := datasetOf(
		ticketedBooking("A", "B", "D", "DEL", "Card", 100, 10, 1),
		ticketedBooking("A", "B", "D", "DEL", "Card", 200, 30, 1),
		ticketedBooking("A", "B", "D", "BOM", "Card", 500, 20, 1),
	)
	r := Build(ds, Selection{})

	comm, ok := r.CommissionByAirport()
	if !ok || comm[0].Name != "DEL" || comm[0].Value != 40 {
		t.Errorf("CommissionByAirport = %v ok=%v, want DEL 40 first", comm, ok)
	}
	sales, ok := r.SalesByAirport()
	if !ok || sales[0].Name != "BOM" || sales[0].Value != 500 {
		t.Errorf("SalesByAirport = %v ok=%v, want BOM 500 first", sales, ok)
	}
	vol, ok := r.BookingVolumeByAirport()
	if !ok || vol[0].Name != "DEL" || vol[0].Count != 2 {
		t.Errorf("BookingVolumeByAirport = %v ok=%v, want DEL 2 first", vol, ok)
	}
}

func TestBuildFromNormalizedTable(t *testing.T) {
	df := source.FromRecords([][]string{
		{"Date", "Ticket Numbers", "Payment Method", "From", "To", "Airport", "Type", "Total Price", "Commission", "No Passengers"},
		{"2024-01-05", "T-1001", "Card", "DEL", "BOM", "DEL", "Domestic", "4500", "450", "2"},
		{"2024-01-20", "No Tickets", "Cash", "DEL", "DXB", "DEL", "International", "", "", "1"},
		{"2023-06-10", "T-1002", "Card", "BOM", "DXB", "BOM", "International", "21000", "2100", "3"},
	})
	ds, err := normalize.Normalize(df)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	r := Build(ds, Selection{Years: []int{2024}, Months: []string{"January"}})
	if len(r.Filtered) != 2 {
		t.Fatalf("filtered %d rows, want 2", len(r.Filtered))
	}
	if len(r.Ticketed) != 1 {
		t.Fatalf("ticketed %d rows, want 1", len(r.Ticketed))
	}
	bands, ok := r.PriceRangeHistogram()
	if !ok {
		t.Fatal("PriceRangeHistogram reported not ok")
	}
	if bands[0].Label != "0–5K" || bands[0].Count != 1 {
		t.Errorf("bands[0] = %+v, want 0–5K count 1", bands[0])
	}
	if h := r.Headline(); h.TotalCommission != 450 {
		t.Errorf("TotalCommission = %v, want 450", h.TotalCommission)
	}
}
