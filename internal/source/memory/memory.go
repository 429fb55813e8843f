// Package memory holds booking tables in process memory. It backs tests and
// the demo backend that ships without external credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-gota/gota/dataframe"

	"flightdash/internal/source"
)

// Store maps locators to raw record tables.
type Store struct {
	mu     sync.RWMutex
	tables map[string][][]string
}

var _ source.Source = (*Store)(nil)

func New() *Store {
	return &Store{tables: make(map[string][][]string)}
}

// NewWithSample returns a store seeded with a small booking table under the
// given locator.
func NewWithSample(locator string) *Store {
	s := New()
	s.SetRecords(locator, SampleRecords())
	return s
}

// SetRecords replaces the table stored under locator. The first row is the
// header. The records are copied so callers can reuse their slice.
func (s *Store) SetRecords(locator string, records [][]string) {
	cp := make([][]string, len(records))
	for i, row := range records {
		cp[i] = append([]string(nil), row...)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[locator] = cp
}

func (s *Store) Fetch(_ context.Context, locator string) (dataframe.DataFrame, error) {
	s.mu.RLock()
	records, ok := s.tables[locator]
	s.mu.RUnlock()
	if !ok {
		return dataframe.DataFrame{}, fmt.Errorf("no table stored for locator %q", locator)
	}
	return source.FromRecords(records), nil
}

// SampleRecords is a tiny booking table covering both ticketed and
// unticketed rows.
func SampleRecords() [][]string {
	return [][]string{
		{"Date", "Ticket Numbers", "Payment Method", "From", "To", "Airport", "Type", "Total Price", "Commission", "No Passengers"},
		{"2024-01-05", "T-1001", "Card", "DEL", "BOM", "DEL", "Domestic", "4500", "450", "2"},
		{"2024-01-20", "No Tickets", "Cash", "DEL", "DXB", "DEL", "International", "", "", "1"},
		{"2024-02-14", "T-1002", "UPI", "BOM", "DXB", "BOM", "International", "21000", "2100", "3"},
		{"2024-03-02", "T-1003", "Card", "BLR", "DEL", "BLR", "Domestic", "6200", "310", "1"},
		{"2023-11-18", "T-0901", "Cash", "DEL", "CCU", "DEL", "Domestic", "3800", "190", "2"},
	}
}
