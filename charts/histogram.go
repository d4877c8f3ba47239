// Package charts aggregates listing tables into grouped histograms and
// renders them as images.
package charts

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"car-sales-dashboard/models"
)

// Norm selects how histogram counts are reported.
type Norm string

const (
	NormCount   Norm = "count"
	NormPercent Norm = "percent" // each series is scaled to sum to 100
)

// BarMode selects how series are drawn against each other.
type BarMode string

const (
	BarStack   BarMode = "stack"
	BarOverlay BarMode = "overlay"
)

// Definition describes one grouped histogram.
type Definition struct {
	Name    string
	Title   string
	X       string // column binned along the x axis
	Color   string // categorical column that splits the series
	Norm    Norm
	BarMode BarMode
	NBins   int // numeric columns only; 0 picks a bin count from the row count
	Opacity float64
}

// Series is the per-color row of a histogram. Values line up with Histogram.Labels.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
	Total  int       `json:"total"`
}

// Histogram is a render-ready grouped histogram.
type Histogram struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	XLabel  string   `json:"x_label"`
	YLabel  string   `json:"y_label"`
	Color   string   `json:"color"`
	Norm    Norm     `json:"norm"`
	BarMode BarMode  `json:"bar_mode"`
	Opacity float64  `json:"opacity"`
	Labels  []string `json:"labels"`
	Series  []Series `json:"series"`
	Rows    int      `json:"rows"`
}

// Empty reports whether no row contributed to the histogram.
func (h Histogram) Empty() bool { return h.Rows == 0 }

var categorical = map[string]func(models.Listing) string{
	"manufacturer":      func(l models.Listing) string { return l.Manufacturer },
	"type":              func(l models.Listing) string { return l.Type },
	"condition":         func(l models.Listing) string { return l.Condition },
	"month_year_posted": func(l models.Listing) string { return l.MonthYearPosted },
	"model":             func(l models.Listing) string { return l.Model },
}

type numericColumn struct {
	value    func(models.Listing) (float64, bool)
	integral bool
}

var numeric = map[string]numericColumn{
	"days_listed": {func(l models.Listing) (float64, bool) { return float64(l.DaysListed), true }, true},
	"price":       {func(l models.Listing) (float64, bool) { return l.Price, true }, false},
	"model_year": {func(l models.Listing) (float64, bool) {
		return float64(l.ModelYear.Int64), l.ModelYear.Valid
	}, true},
	"mileage": {func(l models.Listing) (float64, bool) { return l.Mileage, true }, false},
	"odometer": {func(l models.Listing) (float64, bool) {
		return l.Odometer.Float64, l.Odometer.Valid
	}, false},
}

// Build aggregates t into the histogram described by s.
func Build(t models.Table, s Definition) (Histogram, error) {
	colorOf, ok := categorical[s.Color]
	if !ok {
		return Histogram{}, fmt.Errorf("charts: %s: color column %q is not categorical", s.Name, s.Color)
	}

	h := Histogram{
		Name:    s.Name,
		Title:   s.Title,
		XLabel:  ColumnLabel(s.X),
		YLabel:  yLabel(s.Norm),
		Color:   s.Color,
		Norm:    s.Norm,
		BarMode: s.BarMode,
		Opacity: s.Opacity,
	}
	if h.Norm == "" {
		h.Norm = NormCount
	}
	if h.BarMode == "" {
		h.BarMode = BarStack
	}

	var slots []int
	var colors []string
	if cat, ok := categorical[s.X]; ok {
		keys := make([]string, t.Len())
		for i := range keys {
			row := t.At(i)
			keys[i] = cat(row)
			colors = append(colors, colorOf(row))
		}
		h.Labels = sortedUnique(keys)
		pos := make(map[string]int, len(h.Labels))
		for i, label := range h.Labels {
			pos[label] = i
		}
		slots = make([]int, len(keys))
		for i, key := range keys {
			slots[i] = pos[key]
		}
	} else if num, ok := numeric[s.X]; ok {
		var values []float64
		for i := 0; i < t.Len(); i++ {
			row := t.At(i)
			v, ok := num.value(row)
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			values = append(values, v)
			colors = append(colors, colorOf(row))
		}
		bins := NewBins(values, s.NBins, num.integral)
		h.Labels = bins.Labels()
		slots = make([]int, len(values))
		for i, v := range values {
			slots[i] = bins.Index(v)
		}
	} else {
		return Histogram{}, fmt.Errorf("charts: %s: unknown x column %q", s.Name, s.X)
	}

	h.Rows = len(slots)
	if h.Rows == 0 {
		h.Labels = nil
		return h, nil
	}

	names := sortedUnique(colors)
	seriesAt := make(map[string]int, len(names))
	h.Series = make([]Series, len(names))
	for i, name := range names {
		h.Series[i] = Series{Name: name, Values: make([]float64, len(h.Labels))}
		seriesAt[name] = i
	}
	for i, slot := range slots {
		ser := &h.Series[seriesAt[colors[i]]]
		ser.Values[slot]++
		ser.Total++
	}

	if h.Norm == NormPercent {
		for i := range h.Series {
			ser := &h.Series[i]
			for j := range ser.Values {
				ser.Values[j] = ser.Values[j] / float64(ser.Total) * 100
			}
		}
	}
	return h, nil
}

// Bins are equal-width numeric buckets. Bucket i covers [Start+i*Width, Start+(i+1)*Width).
type Bins struct {
	Start float64
	Width float64
	Count int
}

// NewBins picks a "nice" bin width (1, 2 or 5 times a power of ten) so that
// roughly target bins span values. A target of 0 uses Sturges' rule.
func NewBins(values []float64, target int, integral bool) Bins {
	if len(values) == 0 {
		return Bins{Width: 1}
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if target <= 0 {
		target = int(math.Ceil(math.Log2(float64(len(values))))) + 1
	}

	width := niceWidth((hi - lo) / float64(target))
	if integral && width < 1 {
		width = 1
	}
	start := math.Floor(lo/width) * width
	count := int(math.Floor((hi-start)/width)) + 1
	return Bins{Start: start, Width: width, Count: count}
}

// Index returns the bucket holding v, clamped to the valid range.
func (b Bins) Index(v float64) int {
	i := int(math.Floor((v - b.Start) / b.Width))
	if i < 0 {
		return 0
	}
	if i >= b.Count {
		return b.Count - 1
	}
	return i
}

// Labels names each bucket by its half-open bounds.
func (b Bins) Labels() []string {
	labels := make([]string, b.Count)
	for i := range labels {
		lo := b.Start + float64(i)*b.Width
		labels[i] = b.format(lo) + "-" + b.format(lo+b.Width)
	}
	return labels
}

func niceWidth(raw float64) float64 {
	if raw <= 0 || math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 1
	}
	exp := math.Floor(math.Log10(raw))
	base := math.Pow(10, exp)
	switch frac := raw / base; {
	case frac <= 1:
		return base
	case frac <= 2:
		return 2 * base
	case frac <= 5:
		return 5 * base
	default:
		return 10 * base
	}
}

func (b Bins) format(f float64) string {
	decimals := 0
	if b.Width < 1 {
		decimals = int(math.Ceil(-math.Log10(b.Width)))
	}
	return strconv.FormatFloat(f, 'f', decimals, 64)
}

func sortedUnique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0)
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// ColumnLabel turns a column key such as month_year_posted into "Month Year Posted".
func ColumnLabel(column string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(column, "_", " "))
}

func yLabel(n Norm) string {
	if n == NormPercent {
		return "Percent"
	}
	return "Count"
}
