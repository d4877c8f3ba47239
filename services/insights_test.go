package services

import (
	"bytes"
	"database/sql"
	"strings"
	"testing"

	"car-sales-dashboard/models"
)

func sampleListings() models.Table {
	return models.NewTable([]models.Listing{
		{Model: "ford f-150", Manufacturer: "ford", Type: "truck", Condition: "good", Price: 20000,
			Mileage: 10000, DaysListed: 10, MonthYearPosted: "2018-05", VehicleAge: sql.NullInt64{Int64: 0, Valid: true}},
		{Model: "ford escape", Manufacturer: "ford", Type: "SUV", Condition: "excellent", Price: 8000,
			Mileage: 12000, DaysListed: 30, MonthYearPosted: "2019-04", VehicleAge: sql.NullInt64{Int64: 4, Valid: true}},
		{Model: "honda civic", Manufacturer: "honda", Type: "sedan", Condition: "good", Price: 5000,
			Mileage: 8000, DaysListed: 20, MonthYearPosted: "2018-11", VehicleAge: sql.NullInt64{Int64: 7, Valid: true}},
		{Model: "kia soul", Manufacturer: "kia", Type: "hatchback", Condition: "fair", Price: 0,
			Mileage: 0, DaysListed: 40, MonthYearPosted: "2018-07"},
	})
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(newTestLogger(), 2)
	r := svc.Generate(sampleListings())

	if r.TotalListings != 4 {
		t.Errorf("TotalListings: got %d, want 4", r.TotalListings)
	}
	if r.HighVolumeListings != 2 {
		t.Errorf("HighVolumeListings: got %d, want 2", r.HighVolumeListings)
	}
	if r.Manufacturers != 3 {
		t.Errorf("Manufacturers: got %d, want 3", r.Manufacturers)
	}
	if r.ByManufacturer["ford"] != 2 || r.ByCondition["good"] != 2 || r.ByType["SUV"] != 1 {
		t.Errorf("grouping: %v %v %v", r.ByManufacturer, r.ByCondition, r.ByType)
	}
	if r.ZeroAgeListings != 1 {
		t.Errorf("ZeroAgeListings: got %d, want 1", r.ZeroAgeListings)
	}
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(newTestLogger(), 1000)
	r := svc.Generate(sampleListings())

	if r.AveragePrice != 11000 {
		t.Errorf("AveragePrice: got %.2f, want 11000", r.AveragePrice)
	}
	if r.MinPrice != 5000 || r.MaxPrice != 20000 {
		t.Errorf("price range: got %.2f..%.2f", r.MinPrice, r.MaxPrice)
	}
	if r.MostExpensive == nil || r.MostExpensive.Model != "ford f-150" {
		t.Errorf("MostExpensive: got %+v", r.MostExpensive)
	}
}

func TestInsightAveragesAndRange(t *testing.T) {
	svc := NewInsightService(newTestLogger(), 1000)
	r := svc.Generate(sampleListings())

	if r.AverageMileage != 7500 {
		t.Errorf("AverageMileage: got %.2f, want 7500", r.AverageMileage)
	}
	if r.AverageDaysListed != 25 {
		t.Errorf("AverageDaysListed: got %.2f, want 25", r.AverageDaysListed)
	}
	if r.FirstMonth != "2018-05" || r.LastMonth != "2019-04" {
		t.Errorf("posting range: got %s..%s", r.FirstMonth, r.LastMonth)
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(newTestLogger(), 1000)
	r := svc.Generate(models.NewTable(nil))
	if r.TotalListings != 0 || r.MostExpensive != nil {
		t.Errorf("expected empty report, got %+v", r)
	}
}

func TestInsightPrint(t *testing.T) {
	svc := NewInsightService(newTestLogger(), 1000)
	var buf bytes.Buffer
	svc.Print(&buf, svc.Generate(sampleListings()))

	out := buf.String()
	for _, want := range []string{"CAR SALES AND ADS SUMMARY", "Listings by Manufacturer", "ford", "2018-05 to 2019-04"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}
