package charts

import (
	"database/sql"
	"math"
	"testing"

	"car-sales-dashboard/models"
)

func listing(manufacturer, typ, condition, month string, price float64, days int) models.Listing {
	return models.Listing{
		Manufacturer:    manufacturer,
		Type:            typ,
		Condition:       condition,
		MonthYearPosted: month,
		Price:           price,
		DaysListed:      days,
		ModelYear:       sql.NullInt64{Int64: 2012, Valid: true},
	}
}

func sampleTable() models.Table {
	return models.NewTable([]models.Listing{
		listing("ford", "truck", "good", "2018-05", 9000, 10),
		listing("ford", "SUV", "excellent", "2018-06", 12000, 25),
		listing("chevrolet", "truck", "good", "2018-05", 15000, 3),
		listing("toyota", "SUV", "like new", "2019-01", 21000, 40),
		listing("ford", "truck", "fair", "2019-01", 4000, 7),
	})
}

func TestBuildCategorical(t *testing.T) {
	h, err := Build(sampleTable(), Definition{Name: "m", X: "manufacturer", Color: "type"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wantLabels := []string{"chevrolet", "ford", "toyota"}
	if len(h.Labels) != len(wantLabels) {
		t.Fatalf("labels: got %v, want %v", h.Labels, wantLabels)
	}
	for i := range wantLabels {
		if h.Labels[i] != wantLabels[i] {
			t.Errorf("label %d: got %q, want %q", i, h.Labels[i], wantLabels[i])
		}
	}

	if len(h.Series) != 2 || h.Series[0].Name != "SUV" || h.Series[1].Name != "truck" {
		t.Fatalf("series: got %+v", h.Series)
	}
	suv, truck := h.Series[0], h.Series[1]
	if suv.Values[1] != 1 || suv.Values[2] != 1 || suv.Total != 2 {
		t.Errorf("SUV counts: got %v (total %d)", suv.Values, suv.Total)
	}
	if truck.Values[0] != 1 || truck.Values[1] != 2 || truck.Total != 3 {
		t.Errorf("truck counts: got %v (total %d)", truck.Values, truck.Total)
	}
	if h.Rows != 5 || h.Norm != NormCount || h.BarMode != BarStack {
		t.Errorf("defaults: rows=%d norm=%s mode=%s", h.Rows, h.Norm, h.BarMode)
	}
}

func TestBuildMonthLabelsAreChronological(t *testing.T) {
	h, err := Build(sampleTable(), Definition{Name: "d", X: "month_year_posted", Color: "type"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{"2018-05", "2018-06", "2019-01"}
	for i := range want {
		if h.Labels[i] != want[i] {
			t.Errorf("label %d: got %q, want %q", i, h.Labels[i], want[i])
		}
	}
}

func TestBuildPercentNormalisesEachSeries(t *testing.T) {
	h, err := Build(sampleTable(), Definition{Name: "p", X: "month_year_posted", Color: "type", Norm: NormPercent})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, s := range h.Series {
		sum := 0.0
		for _, v := range s.Values {
			sum += v
		}
		if math.Abs(sum-100) > 1e-9 {
			t.Errorf("series %s sums to %v, want 100", s.Name, sum)
		}
	}
	if h.YLabel != "Percent" {
		t.Errorf("YLabel: got %q", h.YLabel)
	}
}

func TestBuildNumericBins(t *testing.T) {
	h, err := Build(sampleTable(), Definition{Name: "price", X: "price", Color: "type", NBins: 4, BarMode: BarOverlay})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// span 17000 / 4 bins -> width 5000 starting at 0
	want := []string{"0-5000", "5000-10000", "10000-15000", "15000-20000", "20000-25000"}
	if len(h.Labels) != len(want) {
		t.Fatalf("labels: got %v, want %v", h.Labels, want)
	}
	for i := range want {
		if h.Labels[i] != want[i] {
			t.Errorf("label %d: got %q, want %q", i, h.Labels[i], want[i])
		}
	}

	total := 0.0
	for _, s := range h.Series {
		for _, v := range s.Values {
			total += v
		}
	}
	if total != 5 {
		t.Errorf("binned rows: got %v, want 5", total)
	}
}

func TestBuildSkipsMissingNumericValues(t *testing.T) {
	rows := []models.Listing{
		listing("ford", "truck", "good", "2018-05", 1, 1),
		listing("ford", "truck", "good", "2018-05", 1, 1),
	}
	rows[1].ModelYear = sql.NullInt64{}

	h, err := Build(models.NewTable(rows), Definition{Name: "y", X: "model_year", Color: "condition"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if h.Rows != 1 {
		t.Errorf("rows: got %d, want 1", h.Rows)
	}
}

func TestBuildEmptySelection(t *testing.T) {
	empty := sampleTable().Where(func(models.Listing) bool { return false })

	for _, x := range []string{"manufacturer", "price"} {
		h, err := Build(empty, Definition{Name: x, X: x, Color: "type"})
		if err != nil {
			t.Fatalf("Build(%s): %v", x, err)
		}
		if !h.Empty() || len(h.Labels) != 0 || len(h.Series) != 0 {
			t.Errorf("%s: expected empty histogram, got %+v", x, h)
		}
	}
}

func TestBuildRejectsUnknownColumns(t *testing.T) {
	tests := []Definition{
		{Name: "bad-x", X: "colour", Color: "type"},
		{Name: "bad-color", X: "price", Color: "price"},
	}
	for _, s := range tests {
		if _, err := Build(sampleTable(), s); err == nil {
			t.Errorf("Build(%s): expected error", s.Name)
		}
	}
}

func TestNewBins(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		target   int
		integral bool
		want     Bins
	}{
		{"single value", []float64{7, 7}, 10, true, Bins{Start: 7, Width: 1, Count: 1}},
		{"integral floor", []float64{0, 3}, 10, true, Bins{Start: 0, Width: 1, Count: 4}},
		{"nice width", []float64{0, 271}, 30, true, Bins{Start: 0, Width: 10, Count: 28}},
		{"fractional", []float64{0.1, 0.9}, 4, false, Bins{Start: 0, Width: 0.2, Count: 5}},
	}
	for _, tt := range tests {
		got := NewBins(tt.values, tt.target, tt.integral)
		if got.Count != tt.want.Count || math.Abs(got.Width-tt.want.Width) > 1e-12 || math.Abs(got.Start-tt.want.Start) > 1e-12 {
			t.Errorf("%s: NewBins = %+v; want %+v", tt.name, got, tt.want)
		}
	}
}

func TestBinsIndexClamps(t *testing.T) {
	b := Bins{Start: 0, Width: 10, Count: 3}
	tests := []struct {
		v    float64
		want int
	}{
		{-5, 0},
		{0, 0},
		{9.99, 0},
		{10, 1},
		{29, 2},
		{30, 2},
	}
	for _, tt := range tests {
		if got := b.Index(tt.v); got != tt.want {
			t.Errorf("Index(%v) = %d; want %d", tt.v, got, tt.want)
		}
	}
}

func TestColumnLabel(t *testing.T) {
	tests := map[string]string{
		"month_year_posted": "Month Year Posted",
		"price":             "Price",
		"days_listed":       "Days Listed",
	}
	for in, want := range tests {
		if got := ColumnLabel(in); got != want {
			t.Errorf("ColumnLabel(%q) = %q; want %q", in, got, want)
		}
	}
}
