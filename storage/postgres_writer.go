package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"car-sales-dashboard/models"
	"car-sales-dashboard/utils"
)

const (
	listingsTable = "vehicle_listings"
	insertColumns = 12
	batchSize     = 500
)

// PostgresWriter persists the enriched table to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB

	// Progress, when set, is called with the number of rows after each batch.
	Progress func(inserted int)
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string, retry utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do(ctx, "postgres ping", db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS vehicle_listings (
			id                SERIAL PRIMARY KEY,
			model             TEXT             NOT NULL,
			model_year        INTEGER,
			odometer          DOUBLE PRECISION,
			date_posted       DATE             NOT NULL,
			price             DOUBLE PRECISION NOT NULL DEFAULT 0,
			type              TEXT             NOT NULL DEFAULT '',
			condition         TEXT             NOT NULL DEFAULT '',
			days_listed       INTEGER          NOT NULL DEFAULT 0,
			manufacturer      TEXT             NOT NULL DEFAULT '',
			vehicle_age       INTEGER,
			mileage           DOUBLE PRECISION NOT NULL DEFAULT 0,
			month_year_posted VARCHAR(7)       NOT NULL,
			created_at        TIMESTAMPTZ      NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_vehicle_listings_manufacturer ON vehicle_listings(manufacturer);
		CREATE INDEX IF NOT EXISTS idx_vehicle_listings_type         ON vehicle_listings(type);
		CREATE INDEX IF NOT EXISTS idx_vehicle_listings_month        ON vehicle_listings(month_year_posted);
	`)
	return err
}

// execer is satisfied by *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// clearListings deletes every stored listing through ex.
func clearListings(ctx context.Context, ex execer) error {
	if _, err := ex.ExecContext(ctx, "DELETE FROM "+listingsTable); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}
	return nil
}

// Write replaces the stored rows with every row of t, in batches inside one
// transaction.
func (pw *PostgresWriter) Write(ctx context.Context, t models.Table) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := clearListings(ctx, tx); err != nil {
		return err
	}

	rows := t.Rows()
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		query, args := buildInsert(rows[i:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres: insert rows %d-%d: %w", i, end, err)
		}
		if pw.Progress != nil {
			pw.Progress(end - i)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// buildInsert returns a multi-row INSERT for batch and its positional args.
func buildInsert(batch []models.Listing) (string, []interface{}) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*insertColumns)

	for idx, l := range batch {
		base := idx * insertColumns
		ph := make([]string, insertColumns)
		for c := range ph {
			ph[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs,
			l.Model, l.ModelYear, l.Odometer, l.DatePosted, l.Price, l.Type, l.Condition,
			l.DaysListed, l.Manufacturer, l.VehicleAge, l.Mileage, l.MonthYearPosted)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (model, model_year, odometer, date_posted, price, type, condition,
			days_listed, manufacturer, vehicle_age, mileage, month_year_posted)
		VALUES %s
	`, listingsTable, strings.Join(valueStrings, ","))
	return query, valueArgs
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll reads every stored listing back in insertion order.
func (pw *PostgresWriter) FetchAll(ctx context.Context) (models.Table, error) {
	rows, err := pw.db.QueryContext(ctx, `
		SELECT model, model_year, odometer, date_posted, price, type, condition,
		       days_listed, manufacturer, vehicle_age, mileage, month_year_posted
		FROM vehicle_listings
		ORDER BY id
	`)
	if err != nil {
		return models.Table{}, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var l models.Listing
		if err := rows.Scan(
			&l.Model, &l.ModelYear, &l.Odometer, &l.DatePosted, &l.Price, &l.Type, &l.Condition,
			&l.DaysListed, &l.Manufacturer, &l.VehicleAge, &l.Mileage, &l.MonthYearPosted,
		); err != nil {
			return models.Table{}, fmt.Errorf("postgres: scan row: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return models.Table{}, fmt.Errorf("postgres: iterate: %w", err)
	}
	return models.NewTable(listings), nil
}
