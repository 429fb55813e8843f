package report

import (
	"math"
	"sort"

	"flightdash/internal/core"
)

// CategoryShare is a category's slice of the row count.
type CategoryShare struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// CategoryValue is a summed metric per category.
type CategoryValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// CategoryCount is a row count per category.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RouteStat carries the three metrics charted per route.
type RouteStat struct {
	Route      string  `json:"route"`
	Commission float64 `json:"commission"`
	Sales      float64 `json:"sales"`
	Passengers int     `json:"passengers"`
}

// PriceBand is one fixed histogram bucket over ticket prices.
type PriceBand struct {
	Label      string      `json:"label"`
	Count      int         `json:"count"`
	Commission float64     `json:"commission"`
	AvgPrice   core.Amount `json:"avg_price"`
}

// Headline holds the single-number metrics shown above the charts. Max and
// average price are null when the ticketed subset is empty.
type Headline struct {
	Bookings        int         `json:"bookings"`
	Passengers      int         `json:"passengers"`
	MaxTicketPrice  core.Amount `json:"max_ticket_price"`
	TotalCommission float64     `json:"total_commission"`
	TotalSales      float64     `json:"total_sales"`
	AvgTicketPrice  core.Amount `json:"avg_ticket_price"`
}

// priceBands are lower-inclusive, upper-exclusive. Anything below the first
// upper bound lands in the first band, so every ticketed row is counted
// exactly once.
var priceBands = []struct {
	Label string
	Upper float64
}{
	{"0–5K", 5000},
	{"5K–10K", 10000},
	{"10K–15K", 15000},
	{"15K–20K", 20000},
	{"20K–30K", 30000},
	{"30K–40K", 40000},
	{"40K–60K", 60000},
	{"60K–100K", 100000},
	{"100K+", math.Inf(1)},
}

// Report is the aggregation surface over one dataset+selection. Each
// operation returns ok=false when the columns it needs are missing from the
// source, leaving the rest of the dashboard intact.
type Report struct {
	columns  core.ColumnSet
	Filtered []core.Booking
	Ticketed []core.Booking
}

// Build applies the selection and derives the ticketed subset once.
func Build(ds *core.Dataset, sel Selection) *Report {
	filtered := Apply(ds, sel)
	return &Report{
		columns:  ds.Columns,
		Filtered: filtered,
		Ticketed: Ticketed(filtered),
	}
}

// Headline computes the key metrics over the filtered and ticketed subsets.
func (r *Report) Headline() Headline {
	h := Headline{Bookings: len(r.Filtered)}
	var priceSum float64
	var priced int
	for _, b := range r.Ticketed {
		h.Passengers += b.Passengers
		h.TotalCommission += b.Commission.Or(0)
		if b.TotalPrice.Valid {
			h.TotalSales += b.TotalPrice.Value
			priceSum += b.TotalPrice.Value
			priced++
			if !h.MaxTicketPrice.Valid || b.TotalPrice.Value > h.MaxTicketPrice.Value {
				h.MaxTicketPrice = b.TotalPrice
			}
		}
	}
	if priced > 0 {
		h.AvgTicketPrice = core.AmountOf(priceSum / float64(priced))
	}
	return h
}

// FlightTypeShares returns each flight type's share of the ticketed rows as a
// percentage. Rows with an empty type are dropped from the distribution.
func (r *Report) FlightTypeShares() ([]CategoryShare, bool) {
	if !r.columns.Has(core.ColType) {
		return nil, false
	}
	counts, total := countBy(r.Ticketed, func(b core.Booking) string { return b.FlightType })
	shares := make([]CategoryShare, 0, len(counts))
	for _, c := range counts {
		pct := 0.0
		if total > 0 {
			pct = float64(c.Count) * 100 / float64(total)
		}
		shares = append(shares, CategoryShare{Name: c.Name, Count: c.Count, Percent: pct})
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].Count > shares[j].Count })
	return shares, true
}

// TopDestinations ranks destination airports by total sales, top 10.
func (r *Report) TopDestinations() ([]CategoryValue, bool) {
	if !r.columns.Has(core.ColTo, core.ColTotalPrice) {
		return nil, false
	}
	vals := sumBy(r.Ticketed,
		func(b core.Booking) string { return b.To },
		func(b core.Booking) core.Amount { return b.TotalPrice })
	return topValues(vals, 10), true
}

// TopRoutesByCommission ranks routes by commission earned, top 15, carrying
// sales and passenger totals alongside.
func (r *Report) TopRoutesByCommission() ([]RouteStat, bool) {
	if !r.columns.Has(core.ColFrom, core.ColTo, core.ColCommission) {
		return nil, false
	}
	byRoute := map[string]*RouteStat{}
	var order []string
	for _, b := range r.Ticketed {
		route := b.Route()
		if route == " → " {
			continue
		}
		st, ok := byRoute[route]
		if !ok {
			st = &RouteStat{Route: route}
			byRoute[route] = st
			order = append(order, route)
		}
		st.Commission += b.Commission.Or(0)
		st.Sales += b.TotalPrice.Or(0)
		st.Passengers += b.Passengers
	}
	stats := make([]RouteStat, 0, len(order))
	for _, route := range order {
		stats = append(stats, *byRoute[route])
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Commission > stats[j].Commission })
	if len(stats) > 15 {
		stats = stats[:15]
	}
	return stats, true
}

// CommissionByFlightType sums commission per flight type, all types,
// descending.
func (r *Report) CommissionByFlightType() ([]CategoryValue, bool) {
	if !r.columns.Has(core.ColType, core.ColCommission) {
		return nil, false
	}
	vals := sumBy(r.Ticketed,
		func(b core.Booking) string { return b.FlightType },
		func(b core.Booking) core.Amount { return b.Commission })
	return topValues(vals, 0), true
}

// PriceRangeHistogram buckets ticketed rows into the fixed price bands, in
// band order. Boundary prices fall into the band where they are the lower
// bound.
func (r *Report) PriceRangeHistogram() ([]PriceBand, bool) {
	if !r.columns.Has(core.ColTotalPrice, core.ColCommission) {
		return nil, false
	}
	bands := make([]PriceBand, len(priceBands))
	sums := make([]float64, len(priceBands))
	for i := range bands {
		bands[i].Label = priceBands[i].Label
	}
	for _, b := range r.Ticketed {
		i := bandIndex(b.TotalPrice.Or(0))
		bands[i].Count++
		bands[i].Commission += b.Commission.Or(0)
		sums[i] += b.TotalPrice.Or(0)
	}
	for i := range bands {
		if bands[i].Count > 0 {
			bands[i].AvgPrice = core.AmountOf(sums[i] / float64(bands[i].Count))
		}
	}
	return bands, true
}

func bandIndex(price float64) int {
	for i, band := range priceBands {
		if price < band.Upper {
			return i
		}
	}
	return len(priceBands) - 1
}

// CommissionByPaymentMethod ranks payment methods by commission, top 10.
func (r *Report) CommissionByPaymentMethod() ([]CategoryValue, bool) {
	if !r.columns.Has(core.ColPaymentMethod, core.ColCommission) {
		return nil, false
	}
	vals := sumBy(r.Ticketed,
		func(b core.Booking) string { return b.PaymentMethod },
		func(b core.Booking) core.Amount { return b.Commission })
	return topValues(vals, 10), true
}

// PaymentMethodUsage counts rows per payment method, all methods, most used
// first.
func (r *Report) PaymentMethodUsage() ([]CategoryCount, bool) {
	if !r.columns.Has(core.ColPaymentMethod) {
		return nil, false
	}
	counts, _ := countBy(r.Ticketed, func(b core.Booking) string { return b.PaymentMethod })
	sortCountDesc(counts)
	return counts, true
}

// CommissionByAirport ranks servicing airports by commission, top 10.
func (r *Report) CommissionByAirport() ([]CategoryValue, bool) {
	if !r.columns.Has(core.ColAirport, core.ColCommission) {
		return nil, false
	}
	vals := sumBy(r.Ticketed,
		func(b core.Booking) string { return b.Airport },
		func(b core.Booking) core.Amount { return b.Commission })
	return topValues(vals, 10), true
}

// SalesByAirport ranks servicing airports by total sales, top 10.
func (r *Report) SalesByAirport() ([]CategoryValue, bool) {
	if !r.columns.Has(core.ColAirport, core.ColTotalPrice) {
		return nil, false
	}
	vals := sumBy(r.Ticketed,
		func(b core.Booking) string { return b.Airport },
		func(b core.Booking) core.Amount { return b.TotalPrice })
	return topValues(vals, 10), true
}

// BookingVolumeByAirport counts ticketed rows per airport, top 15.
func (r *Report) BookingVolumeByAirport() ([]CategoryCount, bool) {
	if !r.columns.Has(core.ColAirport) {
		return nil, false
	}
	counts, _ := countBy(r.Ticketed, func(b core.Booking) string { return b.Airport })
	sortCountDesc(counts)
	if len(counts) > 15 {
		counts = counts[:15]
	}
	return counts, true
}

// countBy groups rows by key in first-seen order, dropping empty keys, and
// returns the counts plus the number of rows counted.
func countBy(rows []core.Booking, key func(core.Booking) string) ([]CategoryCount, int) {
	idx := map[string]int{}
	var counts []CategoryCount
	total := 0
	for _, b := range rows {
		k := key(b)
		if k == "" {
			continue
		}
		i, ok := idx[k]
		if !ok {
			i = len(counts)
			idx[k] = i
			counts = append(counts, CategoryCount{Name: k})
		}
		counts[i].Count++
		total++
	}
	return counts, total
}

// sumBy groups rows by key in first-seen order, dropping empty keys, summing
// the metric and skipping null values.
func sumBy(rows []core.Booking, key func(core.Booking) string, metric func(core.Booking) core.Amount) []CategoryValue {
	idx := map[string]int{}
	var vals []CategoryValue
	for _, b := range rows {
		k := key(b)
		if k == "" {
			continue
		}
		i, ok := idx[k]
		if !ok {
			i = len(vals)
			idx[k] = i
			vals = append(vals, CategoryValue{Name: k})
		}
		if m := metric(b); m.Valid {
			vals[i].Value += m.Value
		}
	}
	return vals
}

// topValues sorts descending by value, stable so ties keep first-seen order,
// and truncates to n when n > 0.
func topValues(vals []CategoryValue, n int) []CategoryValue {
	sort.SliceStable(vals, func(i, j int) bool { return vals[i].Value > vals[j].Value })
	if n > 0 && len(vals) > n {
		vals = vals[:n]
	}
	return vals
}

func sortCountDesc(counts []CategoryCount) {
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
}
