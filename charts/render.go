package charts

import (
	"errors"
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrEmptyChart is returned when a histogram without rows is rendered.
var ErrEmptyChart = errors.New("charts: histogram has no rows")

// Format is an image encoding supported by Render.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat accepts "png" or "svg".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPNG, FormatSVG:
		return Format(s), nil
	}
	return "", fmt.Errorf("charts: unsupported format %q", s)
}

// ContentType is the HTTP media type of the format.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// Palette holds the series colors, assigned in series order.
var Palette = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// SeriesColor returns the palette color of the i-th series.
func SeriesColor(i int) string { return Palette[i%len(Palette)] }

// Renderer draws histograms at a fixed size.
type Renderer struct {
	Width  int
	Height int
}

// Render writes h to w. Stacked histograms draw cumulative series so each
// bucket's height is its total; overlay histograms draw every series from
// zero with translucent fills.
func (r Renderer) Render(w io.Writer, h Histogram, f Format) error {
	if h.Empty() {
		return ErrEmptyChart
	}

	heights := seriesHeights(h)
	maxY := 0.0
	for _, ys := range heights {
		for _, y := range ys {
			maxY = math.Max(maxY, y)
		}
	}
	if maxY == 0 {
		maxY = 1
	}

	order := make([]int, len(h.Series))
	for i := range order {
		order[i] = i
	}
	if h.BarMode != BarOverlay {
		// tallest cumulative layer first so lower layers stay visible
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}

	series := make([]chart.Series, 0, len(h.Series))
	for _, idx := range order {
		col := drawing.ColorFromHex(SeriesColor(idx)[1:])
		fill := col
		if h.BarMode == BarOverlay {
			fill = col.WithAlpha(opacityAlpha(h.Opacity))
		}
		xs, ys := stepPoints(heights[idx])
		series = append(series, chart.ContinuousSeries{
			Name:    h.Series[idx].Name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: col,
				StrokeWidth: 1,
				FillColor:   fill,
			},
		})
	}

	ticks := make([]chart.Tick, len(h.Labels))
	for i, label := range h.Labels {
		ticks[i] = chart.Tick{Value: float64(i) + 0.5, Label: label}
	}

	ch := chart.Chart{
		Title:      h.Title,
		Width:      r.Width,
		Height:     r.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  h.XLabel,
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: 0, Max: float64(len(h.Labels))},
			Style: chart.Style{TextRotationDegrees: rotation(len(h.Labels))},
		},
		YAxis: chart.YAxis{
			Name:  h.YLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: maxY * 1.05},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	provider := chart.PNG
	if f == FormatSVG {
		provider = chart.SVG
	}
	if err := ch.Render(provider, w); err != nil {
		return fmt.Errorf("charts: render %s: %w", h.Name, err)
	}
	return nil
}

// seriesHeights returns the drawn height of every series per bucket.
func seriesHeights(h Histogram) [][]float64 {
	out := make([][]float64, len(h.Series))
	for i, s := range h.Series {
		out[i] = make([]float64, len(s.Values))
		copy(out[i], s.Values)
		if h.BarMode != BarOverlay && i > 0 {
			for j := range out[i] {
				out[i][j] += out[i-1][j]
			}
		}
	}
	return out
}

// stepPoints draws one flat segment per bucket so filled series look like bars.
func stepPoints(values []float64) ([]float64, []float64) {
	xs := make([]float64, 0, 2*len(values))
	ys := make([]float64, 0, 2*len(values))
	for i, v := range values {
		xs = append(xs, float64(i), float64(i+1))
		ys = append(ys, v, v)
	}
	return xs, ys
}

func opacityAlpha(opacity float64) uint8 {
	if opacity <= 0 || opacity > 1 {
		opacity = 0.75
	}
	return uint8(math.Round(opacity * 255))
}

func rotation(labels int) float64 {
	if labels > 12 {
		return 45
	}
	return 0
}
