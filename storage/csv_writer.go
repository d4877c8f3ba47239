package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-gota/gota/dataframe"

	"car-sales-dashboard/models"
	"car-sales-dashboard/services"
)

// exportRow is the flat CSV shape of an enriched listing. Nullable and
// fractional columns are pre-formatted so blanks and precision survive.
type exportRow struct {
	Model           string `dataframe:"model"`
	ModelYear       string `dataframe:"model_year"`
	Odometer        string `dataframe:"odometer"`
	DatePosted      string `dataframe:"date_posted"`
	Price           string `dataframe:"price"`
	Type            string `dataframe:"type"`
	Condition       string `dataframe:"condition"`
	DaysListed      int    `dataframe:"days_listed"`
	Manufacturer    string `dataframe:"manufacturer"`
	VehicleAge      string `dataframe:"vehicle_age"`
	Mileage         string `dataframe:"mileage"`
	MonthYearPosted string `dataframe:"month_year_posted"`
}

// ExportColumns is the header written by CSVWriter, in order.
var ExportColumns = []string{
	"model", "model_year", "odometer", "date_posted", "price", "type", "condition",
	"days_listed", "manufacturer", "vehicle_age", "mileage", "month_year_posted",
}

// CSVWriter writes the enriched table to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewCSVWriter creates (or truncates) the CSV file at the given path.
// Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}
	return &CSVWriter{path: path, file: f}, nil
}

// Write replaces the file contents with every row of t.
func (c *CSVWriter) Write(_ context.Context, t models.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("csv: rewind: %w", err)
	}
	if err := c.file.Truncate(0); err != nil {
		return fmt.Errorf("csv: truncate: %w", err)
	}
	return WriteListings(c.file, t)
}

// Close closes the underlying file.
func (c *CSVWriter) Close() error {
	return c.file.Close()
}

// WriteListings encodes t as CSV with an ExportColumns header.
func WriteListings(w io.Writer, t models.Table) error {
	if t.Len() == 0 {
		_, err := io.WriteString(w, strings.Join(ExportColumns, ",")+"\n")
		return err
	}

	rows := make([]exportRow, t.Len())
	for i := range rows {
		rows[i] = toExportRow(t.At(i))
	}

	// no NaN markers: a model named "NA" is exported as written
	df := dataframe.LoadStructs(rows, dataframe.NaNValues([]string{}))
	if df.Err != nil {
		return fmt.Errorf("csv: build frame: %w", df.Err)
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("csv: write: %w", err)
	}
	return nil
}

func toExportRow(l models.Listing) exportRow {
	r := exportRow{
		Model:           l.Model,
		DatePosted:      l.DatePosted.Format(services.DatePostedLayout),
		Price:           formatFloat(l.Price),
		Type:            l.Type,
		Condition:       l.Condition,
		DaysListed:      l.DaysListed,
		Manufacturer:    l.Manufacturer,
		Mileage:         formatFloat(l.Mileage),
		MonthYearPosted: l.MonthYearPosted,
	}
	if l.ModelYear.Valid {
		r.ModelYear = strconv.FormatInt(l.ModelYear.Int64, 10)
	}
	if l.Odometer.Valid {
		r.Odometer = formatFloat(l.Odometer.Float64)
	}
	if l.VehicleAge.Valid {
		r.VehicleAge = strconv.FormatInt(l.VehicleAge.Int64, 10)
	}
	return r
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
