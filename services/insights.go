package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"car-sales-dashboard/models"
	"car-sales-dashboard/utils"
)

var (
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("135"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	valueStyle   = lipgloss.NewStyle().Bold(true)
	moneyStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
)

type InsightService struct {
	logger    *utils.Logger
	threshold int
}

func NewInsightService(logger *utils.Logger, threshold int) *InsightService {
	return &InsightService{logger: logger, threshold: threshold}
}

func (s *InsightService) Generate(t models.Table) *models.SummaryReport {
	report := &models.SummaryReport{
		ByManufacturer: make(map[string]int),
		ByType:         make(map[string]int),
		ByCondition:    make(map[string]int),
	}

	if t.Len() == 0 {
		return report
	}

	report.TotalListings = t.Len()
	report.HighVolumeListings = FilterHighVolumeManufacturers(t, s.threshold).Len()

	var priceTotal, mileageTotal, daysTotal float64
	var priced int
	for i := 0; i < t.Len(); i++ {
		l := t.At(i)
		report.ByManufacturer[l.Manufacturer]++
		report.ByType[l.Type]++
		report.ByCondition[l.Condition]++

		mileageTotal += l.Mileage
		daysTotal += float64(l.DaysListed)
		if l.VehicleAge.Valid && l.VehicleAge.Int64 == 0 {
			report.ZeroAgeListings++
		}

		if report.FirstMonth == "" || l.MonthYearPosted < report.FirstMonth {
			report.FirstMonth = l.MonthYearPosted
		}
		if l.MonthYearPosted > report.LastMonth {
			report.LastMonth = l.MonthYearPosted
		}

		if l.Price <= 0 {
			continue
		}
		if priced == 0 || l.Price < report.MinPrice {
			report.MinPrice = l.Price
		}
		if priced == 0 || l.Price > report.MaxPrice {
			report.MaxPrice = l.Price
			row := l
			report.MostExpensive = &row
		}
		priceTotal += l.Price
		priced++
	}

	report.Manufacturers = len(report.ByManufacturer)
	report.AverageMileage = round2(mileageTotal / float64(t.Len()))
	report.AverageDaysListed = round2(daysTotal / float64(t.Len()))
	if priced > 0 {
		report.AveragePrice = round2(priceTotal / float64(priced))
	}

	s.logger.Debug("[insights] summarised %d listings across %d manufacturers",
		report.TotalListings, report.Manufacturers)
	return report
}

func (s *InsightService) Print(w io.Writer, r *models.SummaryReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n%s\n", bannerStyle.Render(sep))
	fmt.Fprintf(w, "%s\n", bannerStyle.Render("  CAR SALES AND ADS SUMMARY"))
	fmt.Fprintf(w, "%s\n\n", bannerStyle.Render(sep))

	fmt.Fprintf(w, "%s\n", headingStyle.Render("  Overview"))
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings            : %s\n", valueStyle.Render(fmt.Sprint(r.TotalListings)))
	fmt.Fprintf(w, "  From high-volume makers   : %s\n", valueStyle.Render(fmt.Sprint(r.HighVolumeListings)))
	fmt.Fprintf(w, "  Manufacturers             : %s\n", valueStyle.Render(fmt.Sprint(r.Manufacturers)))
	fmt.Fprintf(w, "  Posting range             : %s to %s\n", r.FirstMonth, r.LastMonth)
	fmt.Fprintf(w, "  Listed in model year      : %s\n", valueStyle.Render(fmt.Sprint(r.ZeroAgeListings)))
	fmt.Fprintf(w, "  Average mileage per year  : %s\n", valueStyle.Render(fmt.Sprintf("%.2f", r.AverageMileage)))
	fmt.Fprintf(w, "  Average days listed       : %s\n", valueStyle.Render(fmt.Sprintf("%.2f", r.AverageDaysListed)))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s\n", headingStyle.Render("  Price Statistics"))
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Fprintf(w, "  Average price : %s\n", moneyStyle.Render(fmt.Sprintf("$%.2f", r.AveragePrice)))
		fmt.Fprintf(w, "  Minimum price : %s\n", moneyStyle.Render(fmt.Sprintf("$%.2f", r.MinPrice)))
		fmt.Fprintf(w, "  Maximum price : %s\n", moneyStyle.Render(fmt.Sprintf("$%.2f", r.MaxPrice)))
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	if r.MostExpensive != nil {
		fmt.Fprintf(w, "  Most expensive: %s (%s, posted %s)\n",
			truncate(r.MostExpensive.Model, 36), r.MostExpensive.Type, r.MostExpensive.MonthYearPosted)
	}
	fmt.Fprintln(w)

	printCounts(w, "Listings by Manufacturer", thin, r.ByManufacturer, 15)
	printCounts(w, "Listings by Type", thin, r.ByType, 0)
	printCounts(w, "Listings by Condition", thin, r.ByCondition, 0)

	fmt.Fprintf(w, "%s\n\n", bannerStyle.Render(sep))
}

type keyCount struct {
	key   string
	count int
}

// printCounts draws one bar per key, largest first. limit <= 0 prints every key.
func printCounts(w io.Writer, title, thin string, counts map[string]int, limit int) {
	fmt.Fprintf(w, "%s\n", headingStyle.Render("  "+title))
	fmt.Fprintf(w, "  %s\n", thin)
	if len(counts) == 0 {
		fmt.Fprintf(w, "  No data\n\n")
		return
	}

	kcs := make([]keyCount, 0, len(counts))
	maxCount := 0
	for k, c := range counts {
		kcs = append(kcs, keyCount{k, c})
		if c > maxCount {
			maxCount = c
		}
	}
	sort.Slice(kcs, func(i, j int) bool {
		if kcs[i].count != kcs[j].count {
			return kcs[i].count > kcs[j].count
		}
		return kcs[i].key < kcs[j].key
	})
	if limit > 0 && len(kcs) > limit {
		kcs = kcs[:limit]
	}

	for _, kc := range kcs {
		width := kc.count * 30 / maxCount
		if width == 0 {
			width = 1
		}
		fmt.Fprintf(w, "  %-18s %s (%d)\n", truncate(kc.key, 18), barStyle.Render(strings.Repeat("█", width)), kc.count)
	}
	fmt.Fprintln(w)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
