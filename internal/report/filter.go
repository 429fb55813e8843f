// Package report implements the filtering and aggregation pipeline: facet
// discovery, year/month selection, the ticketed subset, and the ranked
// summaries the dashboard renders. Everything here is a pure function over
// the cached dataset; derived slices never alias back into it mutably.
package report

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"flightdash/internal/core"
)

// Selection is the year/month filter chosen by the presentation layer. An
// empty set on either facet means "no filter on that facet", mirroring the
// default-select-all convention of the UI.
type Selection struct {
	Years  []int
	Months []string
}

// Key returns a deterministic cache key for the selection.
func (s Selection) Key() string {
	years := append([]int(nil), s.Years...)
	sort.Ints(years)
	parts := make([]string, 0, len(years))
	for _, y := range years {
		parts = append(parts, strconv.Itoa(y))
	}

	months := make([]string, 0, len(s.Months))
	for _, m := range s.Months {
		months = append(months, strings.ToLower(strings.TrimSpace(m)))
	}
	sort.Strings(months)

	return strings.Join(parts, ",") + "|" + strings.Join(months, ",")
}

// AvailableYears returns the distinct years in the dataset, newest first.
func AvailableYears(ds *core.Dataset) []int {
	seen := map[int]bool{}
	var years []int
	for _, b := range ds.Bookings {
		if !seen[b.Year] {
			seen[b.Year] = true
			years = append(years, b.Year)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// AvailableMonths returns the distinct month names in the dataset in calendar
// order (January..December), not alphabetically.
func AvailableMonths(ds *core.Dataset) []string {
	seen := map[time.Month]bool{}
	for _, b := range ds.Bookings {
		seen[b.Month] = true
	}
	var months []string
	for m := time.January; m <= time.December; m++ {
		if seen[m] {
			months = append(months, m.String())
		}
	}
	return months
}

// Apply returns the rows matching the selection. Both facets must match;
// an empty facet passes everything through.
func Apply(ds *core.Dataset, sel Selection) []core.Booking {
	yearSet := map[int]bool{}
	for _, y := range sel.Years {
		yearSet[y] = true
	}
	monthSet := map[string]bool{}
	for _, m := range sel.Months {
		monthSet[strings.ToLower(strings.TrimSpace(m))] = true
	}

	out := make([]core.Booking, 0, len(ds.Bookings))
	for _, b := range ds.Bookings {
		if len(yearSet) > 0 && !yearSet[b.Year] {
			continue
		}
		if len(monthSet) > 0 && !monthSet[strings.ToLower(b.MonthName)] {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Ticketed narrows filtered rows to actual issued tickets: the "no tickets"
// placeholder is dropped along with any row missing price or commission.
func Ticketed(rows []core.Booking) []core.Booking {
	out := make([]core.Booking, 0, len(rows))
	for _, b := range rows {
		if b.Ticketed() {
			out = append(out, b)
		}
	}
	return out
}

// DateRange is the min/max booking date of a row set, echoed back to the UI
// next to the active filters.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Range returns the date span covered by rows; ok is false for empty input.
func Range(rows []core.Booking) (DateRange, bool) {
	if len(rows) == 0 {
		return DateRange{}, false
	}
	r := DateRange{From: rows[0].Date, To: rows[0].Date}
	for _, b := range rows[1:] {
		if b.Date.Before(r.From) {
			r.From = b.Date
		}
		if b.Date.After(r.To) {
			r.To = b.Date
		}
	}
	return r, true
}
