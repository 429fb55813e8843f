// Package source defines the port through which booking tables enter the
// system, plus the adapters that implement it (HTTP file, Google Sheets,
// in-memory).
package source

import (
	"context"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Source fetches the raw booking table identified by a locator. Adapters
// return string-typed DataFrames with the header row preserved, leaving all
// coercion to the normalizer. Failures are recoverable errors; adapters never
// panic on malformed input.
type Source interface {
	Fetch(ctx context.Context, locator string) (dataframe.DataFrame, error)
}

// FromRecords builds a string-typed DataFrame from raw records where the
// first row is the header. Short rows are padded so every column has a value.
func FromRecords(records [][]string) dataframe.DataFrame {
	if len(records) == 0 {
		// dataframe.New with zero series reports an error; the zero value is
		// a legitimate empty table.
		return dataframe.DataFrame{}
	}

	headers := records[0]
	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(records)-1)
	}

	for _, row := range records[1:] {
		for i := range headers {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			columns[i] = append(columns[i], v)
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, name := range headers {
		seriesList[i] = series.New(columns[i], series.String, name)
	}

	return dataframe.New(seriesList...)
}
