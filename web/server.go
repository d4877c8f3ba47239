// Package web serves the listings dashboard over HTTP.
//
// Routes:
//
//	GET /                   → dashboard page for the selection in the query
//	GET /api/domains        → selector values as JSON
//	GET /api/table          → rows of one view as JSON (?view=&limit=)
//	GET /api/charts         → every histogram of the selection as JSON
//	GET /charts/{name}.png  → one histogram as PNG (or .svg); 204 when empty
//	GET /healthz            → liveness with dataset size
//	GET /metrics            → Prometheus exposition, when configured
package web

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"car-sales-dashboard/charts"
	"car-sales-dashboard/models"
	"car-sales-dashboard/services"
	"car-sales-dashboard/utils"
)

// RenderObserver is notified of every chart image request outcome.
type RenderObserver interface {
	ObserveRender(format, status string)
}

// Config controls server startup and page content.
type Config struct {
	Addr         string
	PreviewRows  int
	Threshold    int // high-volume manufacturer threshold, shown on the page
	DefaultType1 string
	DefaultType2 string
	ChartWidth   int
	ChartHeight  int
	Fingerprint  string       // identifies the loaded dataset in ETags
	Metrics      http.Handler // mounted on /metrics when set
	Renders      RenderObserver
}

// Server wraps the dashboard routes.
type Server struct {
	cfg      Config
	mux      *http.ServeMux
	tmpl     *template.Template
	views    *services.ViewBuilder
	renderer charts.Renderer
	logger   *utils.Logger
	started  time.Time
}

// NewServer constructs a Server with routes and embedded template.
func NewServer(cfg Config, views *services.ViewBuilder, logger *utils.Logger) *Server {
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = 50
	}
	s := &Server{
		cfg:      cfg,
		mux:      http.NewServeMux(),
		tmpl:     template.Must(template.New("index").Funcs(templateFuncs).Parse(indexHTML)),
		views:    views,
		renderer: charts.Renderer{Width: cfg.ChartWidth, Height: cfg.ChartHeight},
		logger:   logger,
		started:  time.Now(),
	}
	s.routes()
	return s
}

// Handler returns the request router wrapped with access logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("[web] Dashboard listening on http://%s", ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	s.logger.Info("[web] Dashboard stopped")
	return nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /api/domains", s.handleDomains)
	s.mux.HandleFunc("GET /api/table", s.handleTable)
	s.mux.HandleFunc("GET /api/charts", s.handleCharts)
	s.mux.HandleFunc("GET /charts/{file}", s.handleChartImage)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		s.mux.Handle("GET /metrics", s.cfg.Metrics)
	}
}

// build recomputes every view for the selection in the request query.
func (s *Server) build(r *http.Request) (services.Dashboard, error) {
	def := services.DefaultSelection(s.views.Domains(), s.cfg.DefaultType1, s.cfg.DefaultType2)
	return s.views.Build(parseSelection(r.URL.Query(), def))
}

type panelView struct {
	Name  string
	Title string
	Empty bool
	Src   string
}

type pageData struct {
	Selection    models.Selection
	Domains      models.Domains
	Threshold    int
	FullRows     int
	ListingsRows int
	Preview      []tableRow
	TypePanels   []panelView
	CondPanels   []panelView
}

// handleIndex renders the dashboard page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	d, err := s.build(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	query := SelectionQuery(d.Selection)
	data := pageData{
		Selection:    d.Selection,
		Domains:      d.Domains,
		Threshold:    s.cfg.Threshold,
		FullRows:     d.Full.Len(),
		ListingsRows: d.Listings.Len(),
		Preview:      tableRows(d.Listings.Head(s.cfg.PreviewRows)),
	}
	for i, p := range s.views.Panels() {
		h := d.Charts[i]
		pv := panelView{
			Name:  p.Def.Name,
			Title: p.Def.Title,
			Empty: h.Empty(),
			Src:   "/charts/" + p.Def.Name + ".png?" + query,
		}
		if p.Section == "types" {
			data.TypePanels = append(data.TypePanels, pv)
		} else {
			data.CondPanels = append(data.CondPanels, pv)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		s.fail(w, fmt.Errorf("web: template: %w", err))
		return
	}
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleDomains(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.views.Domains())
}

type tableResponse struct {
	View  string     `json:"view"`
	Total int        `json:"total"`
	Rows  []tableRow `json:"rows"`
}

// handleTable returns up to limit rows of a view; limit=0 returns all rows.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := q.Get("view")
	if view == "" {
		view = "listings"
	}

	limit := s.cfg.PreviewRows
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var t models.Table
	switch view {
	case "full":
		// the full table does not depend on the selection
		etag := fmt.Sprintf(`"%s-full-%d"`, s.cfg.Fingerprint, limit)
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		t = s.views.Full()
	case "high-volume":
		t = s.views.HighVolume()
	case "listings", "filtered":
		d, err := s.build(r)
		if err != nil {
			s.fail(w, err)
			return
		}
		t = d.Listings
		if view == "filtered" {
			t = d.Filtered
		}
	default:
		http.Error(w, fmt.Sprintf("unknown view %q", view), http.StatusBadRequest)
		return
	}

	rows := t
	if limit > 0 {
		rows = t.Head(limit)
	}
	s.writeJSON(w, http.StatusOK, tableResponse{View: view, Total: t.Len(), Rows: tableRows(rows)})
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	d, err := s.build(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d.Charts)
}

// handleChartImage renders one histogram; an empty histogram yields 204.
func (s *Server) handleChartImage(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	ext := path.Ext(file)
	format, err := charts.ParseFormat(strings.TrimPrefix(ext, "."))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	name := strings.TrimSuffix(file, ext)

	d, err := s.build(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	h, ok := d.Chart(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	err = s.renderer.Render(&buf, h, format)
	switch {
	case errors.Is(err, charts.ErrEmptyChart):
		s.observeRender(format, "empty")
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		s.observeRender(format, "error")
		s.fail(w, err)
		return
	}

	s.observeRender(format, "ok")
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"rows":        s.views.Full().Len(),
		"fingerprint": s.cfg.Fingerprint,
		"uptime":      time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) observeRender(f charts.Format, status string) {
	if s.cfg.Renders != nil {
		s.cfg.Renders.ObserveRender(string(f), status)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("[web] encode response: %v", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.logger.Error("[web] %v", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("[web] %s %s %d %v", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
	})
}

var templateFuncs = template.FuncMap{
	"money": func(f float64) string { return strconv.FormatFloat(f, 'f', 0, 64) },
}

// indexHTML is the embedded dashboard page.
//
//go:embed index.tmpl.html
var indexHTML string
