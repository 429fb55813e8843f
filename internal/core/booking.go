package core

import (
	"strings"
	"time"
)

// NoTicketsSentinel marks a booking row that never produced an issued ticket.
// The comparison is case-insensitive.
const NoTicketsSentinel = "no tickets"

// Booking is one row of the booking table after normalization. Date is always
// set; Year, Month and MonthName are derived from it.
type Booking struct {
	Date          time.Time
	Year          int
	Month         time.Month
	MonthName     string
	From          string
	To            string
	FlightType    string
	Airport       string
	PaymentMethod string
	TicketNumbers string
	TotalPrice    Amount
	Commission    Amount
	Passengers    int
}

// Route renders the origin/destination pair the way charts display it.
// It is only meaningful on the ticketed subset.
func (b Booking) Route() string {
	return b.From + " → " + b.To
}

// Ticketed reports whether the row represents an actual issued ticket:
// no "no tickets" placeholder and both monetary fields present.
func (b Booking) Ticketed() bool {
	if strings.EqualFold(strings.TrimSpace(b.TicketNumbers), NoTicketsSentinel) {
		return false
	}
	return b.TotalPrice.Valid && b.Commission.Valid
}

// MonthIndex resolves a full English month name ("January".."December"),
// case-insensitively, to its calendar month.
func MonthIndex(name string) (time.Month, bool) {
	name = strings.TrimSpace(name)
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(m.String(), name) {
			return m, true
		}
	}
	return 0, false
}
