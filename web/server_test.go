package web

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"car-sales-dashboard/models"
	"car-sales-dashboard/services"
	"car-sales-dashboard/utils"
)

type renderCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *renderCounter) ObserveRender(format, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[format+"/"+status]++
}

func (c *renderCounter) get(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key]
}

func listing(model, typ, month string) models.Listing {
	posted, _ := time.Parse("2006-01", month)
	return models.Listing{
		Model:           model,
		ModelYear:       sql.NullInt64{Int64: 2012, Valid: true},
		Odometer:        sql.NullFloat64{Float64: 60000, Valid: true},
		DatePosted:      posted,
		Price:           9000,
		Type:            typ,
		Condition:       "good",
		DaysListed:      30,
		Manufacturer:    services.DeriveManufacturer(model),
		VehicleAge:      sql.NullInt64{Int64: int64(posted.Year() - 2012), Valid: true},
		Mileage:         10000,
		MonthYearPosted: month,
	}
}

func newTestServer(t *testing.T, renders *renderCounter) *httptest.Server {
	t.Helper()
	logger := utils.NewWriterLogger(utils.LevelError, io.Discard)
	table := models.NewTable([]models.Listing{
		listing("ford escape", "SUV", "2018-06"),
		listing("ford explorer", "SUV", "2018-07"),
		listing("ford f-150", "truck", "2018-06"),
		listing("kia rio", "sedan", "2018-07"),
	})
	views := services.NewViewBuilder(table, 2, 10, logger, nil)

	cfg := Config{
		PreviewRows:  2,
		Threshold:    2,
		DefaultType1: "SUV",
		DefaultType2: "truck",
		ChartWidth:   640,
		ChartHeight:  320,
		Fingerprint:  "00000000deadbeef",
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "dashboard_dataset_rows 4\n")
		}),
	}
	if renders != nil {
		cfg.Renders = renders
	}
	srv := httptest.NewServer(NewServer(cfg, views, logger).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, target string, header ...string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+target, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", target, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func decodeTable(t *testing.T, body []byte) tableResponse {
	t.Helper()
	var tr tableResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return tr
}

func TestTableViews(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		query     string
		wantTotal int
		wantRows  int
	}{
		{"?view=full&limit=0", 4, 4},
		{"?view=full", 4, 2},
		{"?view=high-volume&limit=0", 3, 3},
		{"?view=listings&limit=0", 3, 3},
		{"?view=listings&limit=0&highvol=0", 4, 4},
		{"?view=listings&limit=0&highvol=0&highvol=1", 3, 3},
		{"?view=filtered&limit=0", 3, 3},
		{"?view=filtered&limit=0&type1=sedan&type2=sedan", 1, 1},
		{"?view=filtered&limit=0&month=2018-06", 2, 2},
		{"?view=filtered&limit=0&month=1999-01", 0, 0},
	}

	for _, tt := range tests {
		resp, body := get(t, srv, "/api/table"+tt.query)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status %d", tt.query, resp.StatusCode)
			continue
		}
		tr := decodeTable(t, body)
		if tr.Total != tt.wantTotal || len(tr.Rows) != tt.wantRows {
			t.Errorf("%s: total=%d rows=%d, want %d/%d", tt.query, tr.Total, len(tr.Rows), tt.wantTotal, tt.wantRows)
		}
	}
}

func TestTableRowEncoding(t *testing.T) {
	srv := newTestServer(t, nil)
	_, body := get(t, srv, "/api/table?view=full&limit=1")

	var raw struct {
		Rows []map[string]any `json:"rows"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatal(err)
	}
	row := raw.Rows[0]
	if row["manufacturer"] != "ford" || row["date_posted"] != "2018-06-01" || row["model_year"] != float64(2012) {
		t.Errorf("unexpected row %v", row)
	}
}

func TestTableBadRequests(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, q := range []string{"?view=bogus", "?limit=-1", "?limit=ten"} {
		if resp, _ := get(t, srv, "/api/table"+q); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestFullTableETag(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, _ := get(t, srv, "/api/table?view=full&limit=0")
	etag := resp.Header.Get("ETag")
	if etag != `"00000000deadbeef-full-0"` {
		t.Fatalf("ETag = %q", etag)
	}

	resp, body := get(t, srv, "/api/table?view=full&limit=0", "If-None-Match", etag)
	if resp.StatusCode != http.StatusNotModified || len(body) != 0 {
		t.Errorf("expected 304 with empty body, got %d (%d bytes)", resp.StatusCode, len(body))
	}
}

func TestDomainsAndHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	_, body := get(t, srv, "/api/domains")
	var d models.Domains
	if err := json.Unmarshal(body, &d); err != nil {
		t.Fatal(err)
	}
	if strings.Join(d.Types, ",") != "SUV,sedan,truck" || strings.Join(d.MonthYears, ",") != "2018-06,2018-07" {
		t.Errorf("domains = %+v", d)
	}

	resp, body := get(t, srv, "/healthz")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"rows":4`) {
		t.Errorf("healthz: %d %s", resp.StatusCode, body)
	}

	_, body = get(t, srv, "/metrics")
	if !strings.Contains(string(body), "dashboard_dataset_rows 4") {
		t.Errorf("metrics handler not mounted: %s", body)
	}
}

func TestChartsJSON(t *testing.T) {
	srv := newTestServer(t, nil)
	_, body := get(t, srv, "/api/charts?type1=SUV&type2=SUV")

	var hs []struct {
		Name string `json:"name"`
		Rows int    `json:"rows"`
	}
	if err := json.Unmarshal(body, &hs); err != nil {
		t.Fatal(err)
	}
	if len(hs) != 8 {
		t.Fatalf("expected 8 charts, got %d", len(hs))
	}
	if hs[0].Name != "manufacturer_by_type" || hs[0].Rows != 2 {
		t.Errorf("first chart = %+v", hs[0])
	}
	if hs[4].Name != "manufacturer_by_condition" || hs[4].Rows != 4 {
		t.Errorf("condition charts use the full table, got %+v", hs[4])
	}
}

func TestChartImages(t *testing.T) {
	renders := &renderCounter{counts: map[string]int{}}
	srv := newTestServer(t, renders)

	resp, body := get(t, srv, "/charts/manufacturer_by_type.png")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("png: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.HasPrefix(string(body), "\x89PNG") {
		t.Error("body is not a PNG")
	}

	resp, body = get(t, srv, "/charts/price_by_type.svg")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "<svg") {
		t.Errorf("svg: %d", resp.StatusCode)
	}

	resp, _ = get(t, srv, "/charts/manufacturer_by_type.png?month=1999-01")
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("empty selection: status %d, want 204", resp.StatusCode)
	}

	for _, p := range []string{"/charts/nope.png", "/charts/manufacturer_by_type.gif"} {
		if resp, _ := get(t, srv, p); resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: status %d, want 404", p, resp.StatusCode)
		}
	}

	if renders.get("png/ok") != 1 || renders.get("svg/ok") != 1 || renders.get("png/empty") != 1 {
		t.Errorf("render observations = %v", renders.counts)
	}
}

func TestIndexPage(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := get(t, srv, "/?type1=sedan&type2=truck&highvol=0")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	page := string(body)
	for _, want := range []string{
		"Data Viewer",
		"Explore Car Types",
		"Explore Conditions",
		"Manufacturers with more than 2 listings",
		"Showing 2 of 4 listings",
		`<option value="sedan" selected>`,
		"/charts/manufacturer_by_type.png?",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(page, `name="highvol" value="1" checked`) {
		t.Error("checkbox should be unchecked")
	}

	if resp, _ := get(t, srv, "/missing"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path: status %d", resp.StatusCode)
	}
}

func TestParseSelection(t *testing.T) {
	def := models.Selection{Type1: "SUV", Type2: "truck", HighVolumeOnly: true}

	tests := []struct {
		query string
		want  models.Selection
	}{
		{"", def},
		{"month=2019-01", models.Selection{MonthYear: "2019-01", Type1: "SUV", Type2: "truck", HighVolumeOnly: true}},
		{"type1=sedan&type2=coupe", models.Selection{Type1: "sedan", Type2: "coupe", HighVolumeOnly: true}},
		{"highvol=0", models.Selection{Type1: "SUV", Type2: "truck"}},
		{"highvol=0&highvol=1", def},
		{"highvol=on", models.Selection{Type1: "SUV", Type2: "truck"}},
		{"month=", def},
	}

	for _, tt := range tests {
		q, err := url.ParseQuery(tt.query)
		if err != nil {
			t.Fatal(err)
		}
		if got := parseSelection(q, def); got != tt.want {
			t.Errorf("parseSelection(%q) = %+v, want %+v", tt.query, got, tt.want)
		}
	}
}

func TestSelectionQueryRoundTrip(t *testing.T) {
	sel := models.Selection{MonthYear: "2018-06", Type1: "pickup", Type2: "SUV", HighVolumeOnly: false}
	q, err := url.ParseQuery(SelectionQuery(sel))
	if err != nil {
		t.Fatal(err)
	}
	if got := parseSelection(q, models.Selection{HighVolumeOnly: true}); got != sel {
		t.Errorf("round trip = %+v, want %+v", got, sel)
	}
}
