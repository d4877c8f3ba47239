// Package metrics exposes dashboard activity as Prometheus collectors on a
// private registry.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the dashboard collectors.
type Recorder struct {
	reg *prometheus.Registry

	datasetRows  prometheus.Gauge
	loadDuration prometheus.Histogram
	viewBuilds   *prometheus.CounterVec // "dashboard_view_builds_total"
	viewRows     *prometheus.GaugeVec
	chartRenders *prometheus.CounterVec // "dashboard_chart_renders_total"
}

// New constructs a Recorder and registers its collectors, plus the Go
// runtime and process collectors.
func New() (*Recorder, error) {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		reg: reg,
		datasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_dataset_rows",
			Help: "Rows in the enriched listings table.",
		}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_dataset_load_seconds",
			Help:    "Time spent loading and transforming the input file.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		viewBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_view_builds_total",
			Help: "View recomputations, partitioned by view.",
		}, []string{"view"}),
		viewRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashboard_view_rows",
			Help: "Row count of the most recent build of each view.",
		}, []string{"view"}),
		chartRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_chart_renders_total",
			Help: "Chart image renders, partitioned by format and status.",
		}, []string{"format", "status"}),
	}

	all := []prometheus.Collector{
		r.datasetRows, r.loadDuration, r.viewBuilds, r.viewRows, r.chartRenders,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range all {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register collector: %w", err)
		}
	}
	return r, nil
}

// SetDataset records the size of a freshly loaded table and how long it took.
func (r *Recorder) SetDataset(rows int, took time.Duration) {
	r.datasetRows.Set(float64(rows))
	r.loadDuration.Observe(took.Seconds())
}

// ObserveView records one recomputation of a named view.
func (r *Recorder) ObserveView(view string, rows int) {
	r.viewBuilds.WithLabelValues(view).Inc()
	r.viewRows.WithLabelValues(view).Set(float64(rows))
}

// ObserveRender records a chart render outcome: "ok", "empty" or "error".
func (r *Recorder) ObserveRender(format, status string) {
	r.chartRenders.WithLabelValues(format, status).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
