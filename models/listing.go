package models

import (
	"database/sql"
	"time"
)

// RawRow is one CSV data row as text, keyed by the required columns.
type RawRow struct {
	Model      string
	ModelYear  string
	Odometer   string
	DatePosted string
	Price      string
	Type       string
	Condition  string
	DaysListed string
}

// RawListing holds one typed row of the source CSV before any derivation.
// Numeric columns that are empty (or "NaN") in the file are left invalid.
type RawListing struct {
	Model      string
	ModelYear  sql.NullInt64
	Odometer   sql.NullFloat64
	DatePosted string
	Price      float64
	Type       string
	Condition  string
	DaysListed int
}

// Listing is an enriched row with every derived column populated.
// Listings are never modified after the transformer produces them.
type Listing struct {
	Model      string
	ModelYear  sql.NullInt64
	Odometer   sql.NullFloat64
	DatePosted time.Time
	Price      float64
	Type       string
	Condition  string
	DaysListed int

	Manufacturer    string
	VehicleAge      sql.NullInt64
	Mileage         float64
	MonthYearPosted string
}

// Selection is the widget state of a single dashboard interaction.
type Selection struct {
	MonthYear      string // empty selects every month
	Type1          string
	Type2          string
	HighVolumeOnly bool
}

// Domains are the sorted categorical value lists used to populate selectors.
type Domains struct {
	Types         []string `json:"types"`
	Conditions    []string `json:"conditions"`
	Manufacturers []string `json:"manufacturers"`
	MonthYears    []string `json:"month_years"`
}

// SummaryReport holds the computed analytics over the enriched dataset.
type SummaryReport struct {
	TotalListings      int
	HighVolumeListings int
	Manufacturers      int
	AveragePrice       float64
	MinPrice           float64
	MaxPrice           float64
	AverageMileage     float64
	AverageDaysListed  float64
	ZeroAgeListings    int
	FirstMonth         string
	LastMonth          string
	MostExpensive      *Listing
	ByManufacturer     map[string]int
	ByType             map[string]int
	ByCondition        map[string]int
}
