package httpfile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestFetchCSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("Date,Total Price\n2024-01-05,4500\n2024-01-06,900\n"))
	}))
	defer srv.Close()

	df, err := New().Fetch(context.Background(), srv.URL+"/bookings.csv")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := df.Nrow(); got != 2 {
		t.Errorf("Nrow = %d, want 2", got)
	}
	if got := df.Names(); len(got) != 2 || got[0] != "Date" || got[1] != "Total Price" {
		t.Errorf("Names = %v, want [Date, Total Price]", got)
	}
	if v := df.Elem(0, 1).String(); v != "4500" {
		t.Errorf("first price = %q, want 4500", v)
	}
}

func TestFetchCSVShortRowsPadded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Date,Total Price,Commission\n2024-01-05,4500\n"))
	}))
	defer srv.Close()

	df, err := New().Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if v := df.Elem(0, 2).String(); v != "" {
		t.Errorf("missing cell = %q, want empty", v)
	}
}

func TestFetchExcel(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Date", "Total Price"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow("Sheet1", "A2", &[]interface{}{"2024-01-05", 4500}); err != nil {
		t.Fatal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	df, err := New().Fetch(context.Background(), srv.URL+"/bookings.xlsx")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := df.Nrow(); got != 1 {
		t.Errorf("Nrow = %d, want 1", got)
	}
	if got := df.Names(); len(got) != 2 || got[0] != "Date" {
		t.Errorf("Names = %v, want header row", got)
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := New().Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestIsExcel(t *testing.T) {
	tests := []struct {
		contentType string
		locator     string
		want        bool
	}{
		{"text/csv", "http://x/f.xlsx", false},
		{"application/vnd.ms-excel", "http://x/f", true},
		{"application/octet-stream", "http://x/f.xlsx", true},
		{"", "http://x/f.XLSX?token=1", true},
		{"", "http://x/f.csv", false},
	}
	for _, tt := range tests {
		if got := isExcel(tt.contentType, tt.locator); got != tt.want {
			t.Errorf("isExcel(%q, %q) = %v, want %v", tt.contentType, tt.locator, got, tt.want)
		}
	}
}
