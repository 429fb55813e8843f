// Package normalize turns a raw string table into the typed booking dataset.
// Every transformation is per-row: a malformed cell degrades to null and only
// an unparseable date drops the row.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"

	"flightdash/internal/core"
)

var dateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
}

// Normalize converts the raw DataFrame into a Dataset. Header matching is
// case-insensitive and trimmed; columns the source does not carry are simply
// absent from the ColumnSet. A table without a usable Date column normalizes
// to an empty dataset with every row counted as dropped.
func Normalize(df dataframe.DataFrame) (*core.Dataset, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("read table: %w", df.Err)
	}

	ds := &core.Dataset{Columns: core.ColumnSet{}, LoadedAt: time.Now()}

	records := df.Records()
	if len(records) == 0 {
		return ds, nil
	}

	idx := resolveColumns(records[0])
	for c := range idx {
		ds.Columns[c] = true
	}

	get := func(row []string, c core.Column) string {
		i, ok := idx[c]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	for _, row := range records[1:] {
		date, ok := parseDate(get(row, core.ColDate))
		if !ok {
			ds.Dropped++
			continue
		}
		ds.Bookings = append(ds.Bookings, core.Booking{
			Date:          date,
			Year:          date.Year(),
			Month:         date.Month(),
			MonthName:     date.Month().String(),
			From:          get(row, core.ColFrom),
			To:            get(row, core.ColTo),
			FlightType:    get(row, core.ColType),
			Airport:       get(row, core.ColAirport),
			PaymentMethod: get(row, core.ColPaymentMethod),
			TicketNumbers: get(row, core.ColTicketNumbers),
			TotalPrice:    parseAmount(get(row, core.ColTotalPrice)),
			Commission:    parseAmount(get(row, core.ColCommission)),
			Passengers:    parsePassengers(get(row, core.ColPassengers)),
		})
	}

	return ds, nil
}

// resolveColumns maps canonical columns to header positions. The first header
// matching a canonical name wins.
func resolveColumns(headers []string) map[core.Column]int {
	idx := make(map[core.Column]int)
	for i, h := range headers {
		h = strings.TrimSpace(h)
		for _, c := range core.Columns {
			if strings.EqualFold(h, string(c)) {
				if _, dup := idx[c]; !dup {
					idx[c] = i
				}
			}
		}
	}
	return idx
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return toDate(t), true
		}
	}
	// Spreadsheet exports sometimes leave dates as raw Excel serial numbers.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < 200000 {
		return toDate(excelSerialToTime(serial)), true
	}
	return time.Time{}, false
}

func toDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// excelSerialToTime converts a 1900-system Excel serial number, adjusting for
// the fictitious 1900-02-29 that Excel inherited from Lotus 1-2-3.
func excelSerialToTime(serial float64) time.Time {
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	if serial < 60 {
		base = time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	days := int(serial)
	frac := serial - float64(days)
	return base.AddDate(0, 0, days).Add(time.Duration(frac * 24 * float64(time.Hour)))
}

// isNullSentinel recognizes the placeholder strings the source uses for
// missing numbers: blanks, "NaN" and "Null" in any casing.
func isNullSentinel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "null":
		return true
	}
	return false
}

func parseAmount(s string) core.Amount {
	if isNullSentinel(s) {
		return core.Amount{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return core.Amount{}
	}
	return core.AmountOf(v)
}

// parsePassengers coerces the passenger count to a non-negative integer,
// defaulting nulls and unparseable cells to zero.
func parsePassengers(s string) int {
	if isNullSentinel(s) {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 {
		return 0
	}
	return int(v)
}
