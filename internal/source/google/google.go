// Package google reads booking tables straight from a Google Sheets
// spreadsheet using a service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"flightdash/internal/source"
)

// Client implements source.Source over the Sheets API. The locator is
// "spreadsheetID#sheetName"; either part may be empty to fall back to the
// configured defaults.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ source.Source = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID plus service account credentials
// (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS). Optional: GOOGLE_SHEET_NAME
// (default "Bookings").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Bookings"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// newSheetsService initializes a read-only Sheets service from service
// account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
}

func (c *Client) Fetch(ctx context.Context, locator string) (dataframe.DataFrame, error) {
	if c.svc == nil {
		return dataframe.DataFrame{}, errors.New("sheets service not initialized")
	}

	spreadsheetID, sheetName := c.resolve(locator)
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, sheetName).Context(ctx).Do()
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read %s!%s: %w", spreadsheetID, sheetName, err)
	}

	records := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		records = append(records, toStrings(row))
	}
	return source.FromRecords(records), nil
}

// resolve splits a "spreadsheetID#sheetName" locator, keeping configured
// defaults for any empty part.
func (c *Client) resolve(locator string) (string, string) {
	spreadsheetID, sheetName := c.spreadsheetID, c.sheetName
	id, sheet, found := strings.Cut(locator, "#")
	if strings.TrimSpace(id) != "" {
		spreadsheetID = strings.TrimSpace(id)
	}
	if found && strings.TrimSpace(sheet) != "" {
		sheetName = strings.TrimSpace(sheet)
	}
	return spreadsheetID, sheetName
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v == nil {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
