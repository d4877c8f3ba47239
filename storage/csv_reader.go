package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/zeebo/xxh3"

	"car-sales-dashboard/models"
)

// RequiredColumns are the CSV headers every input file must carry.
var RequiredColumns = []string{
	"model", "model_year", "odometer", "date_posted",
	"price", "type", "condition", "days_listed",
}

// Dataset is a loaded input file.
type Dataset struct {
	Path        string
	Rows        []models.RawRow
	Fingerprint string // xxh3 of the file bytes, hex encoded
}

// LoadFile reads the CSV at path and fingerprints its contents.
func LoadFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("csv: read %q: %w", path, err)
	}

	rows, err := ReadListings(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("csv: load %q: %w", path, err)
	}

	return &Dataset{
		Path:        path,
		Rows:        rows,
		Fingerprint: Fingerprint(data),
	}, nil
}

// Fingerprint returns the hex encoded xxh3 hash of data.
func Fingerprint(data []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}

// ReadListings parses CSV text into rows. Every column is read as a string
// so that blanks and "2011.0"-style years reach the cleaner unchanged.
// Extra columns are ignored; missing required columns yield *models.SchemaError.
// A header with no data rows is an empty dataset, not an error.
func ReadListings(r io.Reader) ([]models.RawRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("csv: read: %w", err)
	}

	header, hasRows, err := readHeader(data)
	if err != nil {
		return nil, fmt.Errorf("csv: parse: %w", err)
	}
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, &models.SchemaError{Missing: missing}
	}
	if !hasRows {
		return []models.RawRow{}, nil
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("csv: parse: %w", df.Err)
	}

	col := func(name string) []string { return df.Col(name).Records() }
	model, year, odometer := col("model"), col("model_year"), col("odometer")
	posted, price, typ := col("date_posted"), col("price"), col("type")
	condition, days := col("condition"), col("days_listed")

	rows := make([]models.RawRow, df.Nrow())
	for i := range rows {
		rows[i] = models.RawRow{
			Model:      model[i],
			ModelYear:  year[i],
			Odometer:   odometer[i],
			DatePosted: posted[i],
			Price:      price[i],
			Type:       typ[i],
			Condition:  condition[i],
			DaysListed: days[i],
		}
	}
	return rows, nil
}

// readHeader returns the first record of data and whether a data record
// follows it. gota refuses frames without rows, so the header is read here.
func readHeader(data []byte) (header []string, hasRows bool, err error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	header, err = cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	_, err = cr.Read()
	switch {
	case errors.Is(err, io.EOF):
		return header, false, nil
	case err != nil:
		return nil, false, err
	}
	return header, true, nil
}

func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}
	var missing []string
	for _, name := range RequiredColumns {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
