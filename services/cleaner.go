package services

import (
	"database/sql"
	"math"
	"strconv"
	"strings"

	"car-sales-dashboard/models"
	"car-sales-dashboard/utils"
)

// missingValues are the cell contents treated as an absent value.
var missingValues = map[string]struct{}{
	"":     {},
	"NaN":  {},
	"nan":  {},
	"NA":   {},
	"null": {},
}

// Cleaner converts text rows into typed raw listings.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean parses the numeric columns of every row. Rows are never dropped:
// missing numbers stay invalid (model_year, odometer) or become 0 (price,
// days_listed), and unparsable numbers are treated as missing.
func (c *Cleaner) Clean(rows []models.RawRow) []models.RawListing {
	result := make([]models.RawListing, 0, len(rows))
	var malformed int

	for _, r := range rows {
		modelYear, ok := parseNullInt(r.ModelYear)
		if !ok {
			malformed++
		}
		odometer, ok := parseNullFloat(r.Odometer)
		if !ok {
			malformed++
		}
		price, ok := parseNullFloat(r.Price)
		if !ok {
			malformed++
		}
		days, ok := parseNullInt(r.DaysListed)
		if !ok {
			malformed++
		}

		result = append(result, models.RawListing{
			Model:      r.Model,
			ModelYear:  modelYear,
			Odometer:   odometer,
			DatePosted: strings.TrimSpace(r.DatePosted),
			Price:      price.Float64,
			Type:       r.Type,
			Condition:  r.Condition,
			DaysListed: int(days.Int64),
		})
	}

	if malformed > 0 {
		c.logger.Warn("[cleaner] %d unparsable numeric values treated as missing", malformed)
	}
	c.logger.Info("[cleaner] Parsed %d listings", len(result))
	return result
}

// parseNullFloat parses a numeric cell. ok is false only when the cell is
// neither a number nor a recognised missing marker.
func parseNullFloat(raw string) (v sql.NullFloat64, ok bool) {
	raw = strings.TrimSpace(raw)
	if _, missing := missingValues[raw]; missing {
		return sql.NullFloat64{}, true
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || math.IsNaN(f) {
		return sql.NullFloat64{}, false
	}
	return sql.NullFloat64{Float64: f, Valid: true}, true
}

// maxExactInt is the largest magnitude a float64 holds without losing
// integer precision.
const maxExactInt = 1 << 53

// parseNullInt accepts integral values written as floats, e.g. "2011.0".
func parseNullInt(raw string) (v sql.NullInt64, ok bool) {
	f, ok := parseNullFloat(raw)
	if !f.Valid {
		return sql.NullInt64{}, ok
	}
	if f.Float64 != math.Trunc(f.Float64) || math.Abs(f.Float64) > maxExactInt {
		return sql.NullInt64{}, false
	}
	return sql.NullInt64{Int64: int64(f.Float64), Valid: true}, true
}
