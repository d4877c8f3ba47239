package web

import (
	"car-sales-dashboard/models"
	"car-sales-dashboard/services"
)

// tableRow is the JSON and HTML shape of one enriched listing. Missing
// numbers encode as null.
type tableRow struct {
	Model           string   `json:"model"`
	ModelYear       *int64   `json:"model_year"`
	Odometer        *float64 `json:"odometer"`
	DatePosted      string   `json:"date_posted"`
	Price           float64  `json:"price"`
	Type            string   `json:"type"`
	Condition       string   `json:"condition"`
	DaysListed      int      `json:"days_listed"`
	Manufacturer    string   `json:"manufacturer"`
	VehicleAge      *int64   `json:"vehicle_age"`
	Mileage         float64  `json:"mileage"`
	MonthYearPosted string   `json:"month_year_posted"`
}

func tableRows(t models.Table) []tableRow {
	out := make([]tableRow, t.Len())
	for i := range out {
		l := t.At(i)
		r := tableRow{
			Model:           l.Model,
			DatePosted:      l.DatePosted.Format(services.DatePostedLayout),
			Price:           l.Price,
			Type:            l.Type,
			Condition:       l.Condition,
			DaysListed:      l.DaysListed,
			Manufacturer:    l.Manufacturer,
			Mileage:         l.Mileage,
			MonthYearPosted: l.MonthYearPosted,
		}
		if l.ModelYear.Valid {
			v := l.ModelYear.Int64
			r.ModelYear = &v
		}
		if l.Odometer.Valid {
			v := l.Odometer.Float64
			r.Odometer = &v
		}
		if l.VehicleAge.Valid {
			v := l.VehicleAge.Int64
			r.VehicleAge = &v
		}
		out[i] = r
	}
	return out
}
