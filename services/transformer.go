package services

import (
	"database/sql"
	"math"
	"strings"
	"time"

	"car-sales-dashboard/models"
	"car-sales-dashboard/utils"
)

// DatePostedLayout is the format of the date_posted column.
const DatePostedLayout = "2006-01-02"

// step is one named column derivation. Every step returns a new slice and
// leaves its input untouched.
type step struct {
	name string
	run  func([]models.Listing) []models.Listing
}

// Transformer turns raw CSV rows into the enriched, read-only table.
type Transformer struct {
	logger *utils.Logger
	steps  []step
}

// NewTransformer creates a Transformer with the given logger.
func NewTransformer(logger *utils.Logger) *Transformer {
	t := &Transformer{logger: logger}
	t.steps = []step{
		{"manufacturer", withManufacturer},
		{"vehicle_age", withVehicleAge},
		{"mileage", t.withMileage},
		{"month_year_posted", withMonthYear},
	}
	return t
}

// Transform parses the posting dates and applies every derivation in order.
// A malformed date aborts the whole transformation with a *models.ParseError.
func (t *Transformer) Transform(raw []models.RawListing) (models.Table, error) {
	rows, err := fromRaw(raw)
	if err != nil {
		return models.Table{}, err
	}

	for _, s := range t.steps {
		rows = s.run(rows)
		t.logger.Debug("[transformer] step %s applied to %d rows", s.name, len(rows))
	}

	t.logger.Info("[transformer] Enriched %d listings", len(rows))
	return models.NewTable(rows), nil
}

// DeriveManufacturer returns the first space-delimited token of model.
func DeriveManufacturer(model string) string {
	return strings.SplitN(model, " ", 2)[0]
}

// ParseDatePosted parses a YYYY-MM-DD posting date.
func ParseDatePosted(s string) (time.Time, error) {
	return time.Parse(DatePostedLayout, s)
}

// DeriveAge is the posting year minus the model year. It is not clamped.
func DeriveAge(modelYear int, datePosted time.Time) int {
	return datePosted.Year() - modelYear
}

// DeriveMileage returns the yearly mileage of a vehicle.
//
// A vehicle of age 0 keeps its odometer reading. Otherwise the ratio is
// rounded to two decimals. NaN and infinite results collapse to 0.
func DeriveMileage(odometer float64, age int) float64 {
	v := odometer
	if age != 0 {
		v = round2(odometer / float64(age))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// DeriveMonthYear formats the posting date as YYYY-MM.
func DeriveMonthYear(datePosted time.Time) string {
	return datePosted.Format("2006-01")
}

// FilterHighVolumeManufacturers keeps the rows whose manufacturer has at
// least threshold rows in t. Row order is preserved.
func FilterHighVolumeManufacturers(t models.Table, threshold int) models.Table {
	counts := make(map[string]int)
	for i := 0; i < t.Len(); i++ {
		counts[t.At(i).Manufacturer]++
	}
	return t.Where(func(l models.Listing) bool {
		return counts[l.Manufacturer] >= threshold
	})
}

func fromRaw(raw []models.RawListing) ([]models.Listing, error) {
	rows := make([]models.Listing, len(raw))
	for i, r := range raw {
		posted, err := ParseDatePosted(strings.TrimSpace(r.DatePosted))
		if err != nil {
			return nil, &models.ParseError{Row: i, Column: "date_posted", Value: r.DatePosted, Err: err}
		}
		rows[i] = models.Listing{
			Model:      r.Model,
			ModelYear:  r.ModelYear,
			Odometer:   r.Odometer,
			DatePosted: posted,
			Price:      r.Price,
			Type:       r.Type,
			Condition:  r.Condition,
			DaysListed: r.DaysListed,
		}
	}
	return rows, nil
}

func withManufacturer(rows []models.Listing) []models.Listing {
	return mapRows(rows, func(l *models.Listing) {
		l.Manufacturer = DeriveManufacturer(l.Model)
	})
}

func withVehicleAge(rows []models.Listing) []models.Listing {
	return mapRows(rows, func(l *models.Listing) {
		if !l.ModelYear.Valid {
			l.VehicleAge = sql.NullInt64{}
			return
		}
		age := DeriveAge(int(l.ModelYear.Int64), l.DatePosted)
		l.VehicleAge = sql.NullInt64{Int64: int64(age), Valid: true}
	})
}

func (t *Transformer) withMileage(rows []models.Listing) []models.Listing {
	var zeroAge, missing int
	out := mapRows(rows, func(l *models.Listing) {
		if !l.VehicleAge.Valid || !l.Odometer.Valid {
			missing++
			l.Mileage = 0
			return
		}
		if l.VehicleAge.Int64 == 0 {
			zeroAge++
		}
		l.Mileage = DeriveMileage(l.Odometer.Float64, int(l.VehicleAge.Int64))
	})
	t.logger.Debug("[transformer] mileage: %d rows of age 0 kept their odometer, %d rows with missing inputs set to 0",
		zeroAge, missing)
	return out
}

func withMonthYear(rows []models.Listing) []models.Listing {
	return mapRows(rows, func(l *models.Listing) {
		l.MonthYearPosted = DeriveMonthYear(l.DatePosted)
	})
}

func mapRows(rows []models.Listing, fn func(*models.Listing)) []models.Listing {
	out := make([]models.Listing, len(rows))
	copy(out, rows)
	for i := range out {
		fn(&out[i])
	}
	return out
}

// round2 rounds half to even at two decimals. Values too large to scale are
// returned unchanged.
func round2(f float64) float64 {
	scaled := f * 100
	if math.IsInf(scaled, 0) || math.IsNaN(scaled) {
		return f
	}
	return math.RoundToEven(scaled) / 100
}
