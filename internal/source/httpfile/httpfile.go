// Package httpfile fetches booking tables published as CSV or Excel files
// over HTTP.
package httpfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"

	"flightdash/internal/source"
)

const fetchTimeout = 30 * time.Second

// Client downloads a spreadsheet from a URL locator and parses it into a raw
// string table. The format is picked from the Content-Type header first, the
// URL extension second, defaulting to CSV.
type Client struct {
	http *http.Client
}

func New() *Client {
	return &Client{http: &http.Client{Timeout: fetchTimeout}}
}

// NewWithClient lets callers supply their own HTTP client, mainly for tests.
func NewWithClient(c *http.Client) *Client {
	return &Client{http: c}
}

func (c *Client) Fetch(ctx context.Context, locator string) (dataframe.DataFrame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("building request for %s: %w", locator, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("fetching %s: %w", locator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return dataframe.DataFrame{}, fmt.Errorf("fetching %s: unexpected status %s", locator, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("reading %s: %w", locator, err)
	}

	if isExcel(resp.Header.Get("Content-Type"), locator) {
		return parseExcel(body)
	}
	return parseCSV(body)
}

func isExcel(contentType, locator string) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"application/vnd.ms-excel":
			return true
		case "text/csv":
			return false
		}
	}
	if u, err := url.Parse(locator); err == nil {
		switch strings.ToLower(path.Ext(u.Path)) {
		case ".xlsx", ".xlsm", ".xls":
			return true
		}
	}
	return false
}

func parseCSV(body []byte) (dataframe.DataFrame, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("parsing csv: %w", err)
	}
	return source.FromRecords(records), nil
}

func parseExcel(body []byte) (dataframe.DataFrame, error) {
	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return source.FromRecords(rows), nil
}
