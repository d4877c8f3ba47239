package services

import (
	"fmt"
	"sort"

	"car-sales-dashboard/charts"
	"car-sales-dashboard/models"
	"car-sales-dashboard/utils"
)

// Source names the table a dashboard panel is computed from.
type Source string

const (
	SourceFull     Source = "full"
	SourceFiltered Source = "filtered"
)

// Panel is one histogram of the dashboard.
type Panel struct {
	Section string
	Source  Source
	Def     charts.Definition
}

// Panels returns the dashboard histograms in display order.
func Panels(priceBins int) []Panel {
	return []Panel{
		{"types", SourceFiltered, charts.Definition{Name: "manufacturer_by_type", Title: "Manufacturers and their Car Types",
			X: "manufacturer", Color: "type", Opacity: 0.75}},
		{"types", SourceFiltered, charts.Definition{Name: "month_year_by_type", Title: "Ads Dates and Car Types",
			X: "month_year_posted", Color: "type", Opacity: 0.75}},
		{"types", SourceFiltered, charts.Definition{Name: "days_listed_by_type", Title: "Number of Days Listed and Car Types",
			X: "days_listed", Color: "type", Opacity: 0.75}},
		{"types", SourceFiltered, charts.Definition{Name: "price_by_type", Title: "Price by Car Type",
			X: "price", Color: "type", Norm: charts.NormPercent, BarMode: charts.BarOverlay, NBins: priceBins, Opacity: 0.7}},
		{"conditions", SourceFull, charts.Definition{Name: "manufacturer_by_condition", Title: "Manufacturer and their Conditions",
			X: "manufacturer", Color: "condition", Opacity: 0.75}},
		{"conditions", SourceFull, charts.Definition{Name: "type_by_condition", Title: "Car Types and their Conditions",
			X: "type", Color: "condition", Opacity: 0.75}},
		{"conditions", SourceFull, charts.Definition{Name: "model_year_by_condition", Title: "Model Year and their Conditions",
			X: "model_year", Color: "condition", Opacity: 0.75}},
		{"conditions", SourceFull, charts.Definition{Name: "month_year_share_by_type", Title: "Ads Date by Car Type",
			X: "month_year_posted", Color: "type", Norm: charts.NormPercent}},
	}
}

// Dashboard is everything the presentation layer needs for one interaction.
type Dashboard struct {
	Selection  models.Selection
	Domains    models.Domains
	Full       models.Table
	HighVolume models.Table
	Listings   models.Table // HighVolume when the checkbox is on, Full otherwise
	Filtered   models.Table
	Charts     []charts.Histogram
}

// Chart returns the histogram with the given name.
func (d Dashboard) Chart(name string) (charts.Histogram, bool) {
	for _, h := range d.Charts {
		if h.Name == name {
			return h, true
		}
	}
	return charts.Histogram{}, false
}

// ViewObserver is notified of every view recomputation.
type ViewObserver interface {
	ObserveView(view string, rows int)
}

// ViewBuilder slices the enriched table for each dashboard interaction.
// The enriched table and the high-volume view are computed once; filtered
// views are rebuilt from scratch on every call to Build.
type ViewBuilder struct {
	logger     *utils.Logger
	observer   ViewObserver
	full       models.Table
	highVolume models.Table
	domains    models.Domains
	panels     []Panel
}

// NewViewBuilder caches the views that do not depend on the selection.
func NewViewBuilder(full models.Table, threshold, priceBins int, logger *utils.Logger, observer ViewObserver) *ViewBuilder {
	b := &ViewBuilder{
		logger:     logger,
		observer:   observer,
		full:       full,
		highVolume: FilterHighVolumeManufacturers(full, threshold),
		domains:    Domains(full),
		panels:     Panels(priceBins),
	}
	logger.Info("[views] %d listings, %d from manufacturers with >= %d listings",
		full.Len(), b.highVolume.Len(), threshold)
	return b
}

// Full returns the enriched table.
func (b *ViewBuilder) Full() models.Table { return b.full }

// HighVolume returns the high-volume manufacturer view.
func (b *ViewBuilder) HighVolume() models.Table { return b.highVolume }

// Domains returns the selector values of the enriched table.
func (b *ViewBuilder) Domains() models.Domains { return b.domains }

// Panels returns the histogram panels in display order.
func (b *ViewBuilder) Panels() []Panel { return b.panels }

// Build recomputes the filtered view and every histogram for sel.
func (b *ViewBuilder) Build(sel models.Selection) (Dashboard, error) {
	d := Dashboard{
		Selection:  sel,
		Domains:    b.domains,
		Full:       b.full,
		HighVolume: b.highVolume,
		Listings:   b.full,
	}
	if sel.HighVolumeOnly {
		d.Listings = b.highVolume
	}
	d.Filtered = FilterByTypes(FilterByMonth(b.full, sel.MonthYear), sel.Type1, sel.Type2)
	b.observe("listings", d.Listings.Len())
	b.observe("filtered", d.Filtered.Len())

	d.Charts = make([]charts.Histogram, 0, len(b.panels))
	for _, p := range b.panels {
		src := d.Full
		if p.Source == SourceFiltered {
			src = d.Filtered
		}
		h, err := charts.Build(src, p.Def)
		if err != nil {
			return Dashboard{}, fmt.Errorf("views: %w", err)
		}
		d.Charts = append(d.Charts, h)
	}

	if d.Filtered.Len() == 0 {
		b.logger.Debug("[views] selection %+v matches no listings", sel)
	}
	return d, nil
}

func (b *ViewBuilder) observe(view string, rows int) {
	if b.observer != nil {
		b.observer.ObserveView(view, rows)
	}
}

// FilterByTypes keeps rows whose type equals any of types.
func FilterByTypes(t models.Table, types ...string) models.Table {
	want := make(map[string]struct{}, len(types))
	for _, typ := range types {
		want[typ] = struct{}{}
	}
	return t.Where(func(l models.Listing) bool {
		_, ok := want[l.Type]
		return ok
	})
}

// FilterByMonth keeps rows posted in the given YYYY-MM bucket. An empty
// bucket keeps every row.
func FilterByMonth(t models.Table, monthYear string) models.Table {
	if monthYear == "" {
		return t
	}
	return t.Where(func(l models.Listing) bool { return l.MonthYearPosted == monthYear })
}

// Domains collects the sorted distinct values of the categorical columns.
func Domains(t models.Table) models.Domains {
	types := make(map[string]struct{})
	conditions := make(map[string]struct{})
	manufacturers := make(map[string]struct{})
	months := make(map[string]struct{})
	for i := 0; i < t.Len(); i++ {
		l := t.At(i)
		types[l.Type] = struct{}{}
		conditions[l.Condition] = struct{}{}
		manufacturers[l.Manufacturer] = struct{}{}
		months[l.MonthYearPosted] = struct{}{}
	}
	return models.Domains{
		Types:         sortedKeys(types),
		Conditions:    sortedKeys(conditions),
		Manufacturers: sortedKeys(manufacturers),
		MonthYears:    sortedKeys(months),
	}
}

// DefaultSelection picks the preferred types when the dataset has them and
// falls back to the first types of the domain otherwise.
func DefaultSelection(d models.Domains, preferred1, preferred2 string) models.Selection {
	sel := models.Selection{HighVolumeOnly: true}
	sel.Type1 = pickType(d.Types, preferred1, 0)
	sel.Type2 = pickType(d.Types, preferred2, 1)
	return sel
}

func pickType(types []string, preferred string, fallback int) string {
	for _, t := range types {
		if t == preferred {
			return t
		}
	}
	if len(types) == 0 {
		return ""
	}
	if fallback >= len(types) {
		fallback = len(types) - 1
	}
	return types[fallback]
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
