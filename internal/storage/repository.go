// Package storage persists the last normalized dataset per locator in
// SQLite so the dashboard can keep serving reports when the upstream
// spreadsheet is unreachable.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"flightdash/internal/core"
)

// ErrNoSnapshot is returned by Load when nothing was persisted for the
// locator yet.
var ErrNoSnapshot = errors.New("no snapshot for locator")

const dateLayout = "2006-01-02"

type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(dbPath string) (*SnapshotRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SnapshotRepository{db: db}, nil
}

func (r *SnapshotRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Save replaces the stored snapshot for locator with the given dataset.
func (r *SnapshotRepository) Save(ctx context.Context, locator string, ds *core.Dataset) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (locator, columns, dropped, loaded_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(locator) DO UPDATE SET columns = excluded.columns,
		 dropped = excluded.dropped, loaded_at = excluded.loaded_at`,
		locator, encodeColumns(ds.Columns), ds.Dropped, ds.LoadedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_bookings WHERE locator = ?`, locator); err != nil {
		return fmt.Errorf("clear snapshot bookings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_bookings
		 (locator, date, ticket_numbers, payment_method, from_airport, to_airport,
		  airport, flight_type, total_price, commission, passengers)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare booking insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range ds.Bookings {
		_, err := stmt.ExecContext(ctx,
			locator, b.Date.Format(dateLayout), b.TicketNumbers, b.PaymentMethod,
			b.From, b.To, b.Airport, b.FlightType,
			nullFloat(b.TotalPrice), nullFloat(b.Commission), b.Passengers)
		if err != nil {
			return fmt.Errorf("insert snapshot booking: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Load reads the stored snapshot for locator, rebuilding the derived date
// fields that are not persisted.
func (r *SnapshotRepository) Load(ctx context.Context, locator string) (*core.Dataset, error) {
	var columns string
	var dropped int
	var loadedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT columns, dropped, loaded_at FROM snapshots WHERE locator = ?`, locator).
		Scan(&columns, &dropped, &loadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	ds := &core.Dataset{Columns: decodeColumns(columns), Dropped: dropped}
	if t, err := time.Parse(time.RFC3339, loadedAt); err == nil {
		ds.LoadedAt = t
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT date, ticket_numbers, payment_method, from_airport, to_airport,
		        airport, flight_type, total_price, commission, passengers
		 FROM snapshot_bookings WHERE locator = ? ORDER BY id`, locator)
	if err != nil {
		return nil, fmt.Errorf("read snapshot bookings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b core.Booking
		var date string
		var price, commission sql.NullFloat64
		err := rows.Scan(&date, &b.TicketNumbers, &b.PaymentMethod, &b.From, &b.To,
			&b.Airport, &b.FlightType, &price, &commission, &b.Passengers)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot booking: %w", err)
		}
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot date %q: %w", date, err)
		}
		b.Date = d
		b.Year = d.Year()
		b.Month = d.Month()
		b.MonthName = d.Month().String()
		if price.Valid {
			b.TotalPrice = core.AmountOf(price.Float64)
		}
		if commission.Valid {
			b.Commission = core.AmountOf(commission.Float64)
		}
		ds.Bookings = append(ds.Bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot bookings: %w", err)
	}
	return ds, nil
}

func nullFloat(a core.Amount) sql.NullFloat64 {
	return sql.NullFloat64{Float64: a.Value, Valid: a.Valid}
}

// Column names never contain commas, so a comma join is a safe encoding.
func encodeColumns(cs core.ColumnSet) string {
	parts := make([]string, 0, len(cs))
	for _, c := range core.Columns {
		if cs[c] {
			parts = append(parts, string(c))
		}
	}
	return strings.Join(parts, ",")
}

func decodeColumns(s string) core.ColumnSet {
	cs := core.ColumnSet{}
	if s == "" {
		return cs
	}
	for _, part := range strings.Split(s, ",") {
		cs[core.Column(part)] = true
	}
	return cs
}
