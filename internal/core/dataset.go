package core

import "time"

// Column names the canonical headers of the booking table. Sources may carry
// extra columns; these are the ones the pipeline understands.
type Column string

const (
	ColDate          Column = "Date"
	ColTicketNumbers Column = "Ticket Numbers"
	ColPaymentMethod Column = "Payment Method"
	ColFrom          Column = "From"
	ColTo            Column = "To"
	ColAirport       Column = "Airport"
	ColType          Column = "Type"
	ColTotalPrice    Column = "Total Price"
	ColCommission    Column = "Commission"
	ColPassengers    Column = "No Passengers"
)

// Columns lists every canonical column in table order.
var Columns = []Column{
	ColDate, ColTicketNumbers, ColPaymentMethod, ColFrom, ColTo,
	ColAirport, ColType, ColTotalPrice, ColCommission, ColPassengers,
}

// ColumnSet records which canonical columns the source actually provided.
// Aggregations guard on it so a missing column degrades that metric instead
// of failing the load.
type ColumnSet map[Column]bool

// Has reports whether every given column is present.
func (cs ColumnSet) Has(cols ...Column) bool {
	for _, c := range cols {
		if !cs[c] {
			return false
		}
	}
	return true
}

// Dataset is the normalized booking table for one source locator. It is
// cached read-only for the process lifetime; filtered views are always new
// slices computed from Bookings.
type Dataset struct {
	Bookings []Booking
	Columns  ColumnSet
	// Dropped counts raw rows excluded because their date did not parse.
	Dropped  int
	LoadedAt time.Time
}
