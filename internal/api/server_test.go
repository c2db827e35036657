package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/eqlens/eqlens/internal/analysis"
	"github.com/eqlens/eqlens/internal/cache"
	"github.com/eqlens/eqlens/internal/health"
	"github.com/eqlens/eqlens/internal/jobs"
	"github.com/eqlens/eqlens/internal/marketdata"
	"github.com/eqlens/eqlens/internal/markets"
	"github.com/eqlens/eqlens/internal/store"
)

type fakeProvider struct {
	companies map[string]*marketdata.Company
}

func (f *fakeProvider) Company(_ context.Context, ticker string) (*marketdata.Company, error) {
	if c, ok := f.companies[ticker]; ok {
		return c, nil
	}
	return nil, marketdata.ErrNotFound
}

type fakeLLM struct {
	response string
}

func (f *fakeLLM) Generate(context.Context, string) (string, error) { return f.response, nil }
func (f *fakeLLM) Model() string                                    { return "fake-model" }

func revenue(v float64) *float64 { return &v }

func testServer(t *testing.T, token string, llm analysis.LLMClient) *Server {
	t.Helper()

	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "catalog.yaml")
	body := `
segments:
  - name: Test Segment
    companies:
      - { name: Alpha Systems, ticker: ALPH }
      - { name: Beta Cloud, ticker: BETA }
`
	if err := os.WriteFile(catalogPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	catalog, err := markets.LoadFile(catalogPath)
	if err != nil {
		t.Fatal(err)
	}

	st, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })

	mem := cache.NewMemory(0)
	t.Cleanup(mem.Stop)

	provider := &fakeProvider{companies: map[string]*marketdata.Company{
		"ALPH": {
			Ticker:  "ALPH",
			Profile: marketdata.Profile{Name: "Alpha Systems", Sector: "Technology"},
			Financials: marketdata.Financials{
				RevenueQuarterlyM: revenue(420),
				EPS:               revenue(1.1),
				MarketCap:         revenue(5e9),
			},
		},
		"BETA": {
			Ticker:  "BETA",
			Profile: marketdata.Profile{Name: "Beta Cloud", Sector: "Technology"},
		},
	}}
	refresher := jobs.NewRefresher(provider, catalog, st, mem, jobs.Config{})

	hm := health.NewManager("test")
	hm.RegisterChecker(health.NewPingChecker("store", st.Ping))

	var svc *analysis.Service
	if llm != nil {
		svc = analysis.NewService(llm, st, mem, "IBM", time.Minute, zerolog.Nop())
	}

	return NewServer(Options{
		Catalog:     catalog,
		Store:       st,
		Cache:       mem,
		Refresher:   refresher,
		Analysis:    svc,
		Health:      hm,
		Version:     "test",
		APIToken:    token,
		HouseTicker: "IBM",
	})
}

func doRequest(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func refreshed(t *testing.T, s *Server) http.Handler {
	t.Helper()
	h := s.Router()
	if rec := doRequest(t, h, "POST", "/api/v1/refresh", "", ""); rec.Code != 200 {
		t.Fatalf("refresh failed: %d %s", rec.Code, rec.Body.String())
	}
	return h
}

func TestMarketsEndpoint(t *testing.T) {
	h := testServer(t, "", nil).Router()

	rec := doRequest(t, h, "GET", "/api/v1/markets", "", "")
	if rec.Code != 200 {
		t.Fatalf("code = %d", rec.Code)
	}

	var segments []struct {
		Name      string `json:"name"`
		Companies []struct {
			Ticker string `json:"ticker"`
		} `json:"companies"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &segments); err != nil {
		t.Fatal(err)
	}
	if len(segments) != 1 || segments[0].Name != "Test Segment" || len(segments[0].Companies) != 2 {
		t.Errorf("segments = %+v", segments)
	}
}

func TestCompaniesEndpoint(t *testing.T) {
	h := testServer(t, "", nil).Router()

	rec := doRequest(t, h, "GET", "/api/v1/companies?segment=Test+Segment", "", "")
	if rec.Code != 200 {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}

	if rec := doRequest(t, h, "GET", "/api/v1/companies?segment=Nope", "", ""); rec.Code != 404 {
		t.Errorf("unknown segment code = %d", rec.Code)
	}
	if rec := doRequest(t, h, "GET", "/api/v1/companies", "", ""); rec.Code != 400 {
		t.Errorf("missing segment code = %d", rec.Code)
	}
}

func TestCompanyEndpoint(t *testing.T) {
	s := testServer(t, "", nil)
	h := s.Router()

	if rec := doRequest(t, h, "GET", "/api/v1/companies/ALPH", "", ""); rec.Code != 404 {
		t.Errorf("before refresh code = %d", rec.Code)
	}

	h = refreshed(t, s)

	rec := doRequest(t, h, "GET", "/api/v1/companies/alph", "", "")
	if rec.Code != 200 {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Ticker  string `json:"ticker"`
		Quality struct {
			Level string `json:"level"`
		} `json:"quality"`
		Segments     []string `json:"segments"`
		RevenueDelta struct {
			Synthesized bool `json:"synthesized"`
		} `json:"revenue_delta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Ticker != "ALPH" || resp.Quality.Level != "high" {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Segments) != 1 || resp.Segments[0] != "Test Segment" {
		t.Errorf("segments = %v", resp.Segments)
	}
	if !resp.RevenueDelta.Synthesized {
		t.Error("revenue delta must be flagged synthesized")
	}
}

func TestCommentaryEndpoint(t *testing.T) {
	s := testServer(t, "", nil)
	h := refreshed(t, s)

	rec := doRequest(t, h, "GET", "/api/v1/companies/ALPH/commentary", "", "")
	if rec.Code != 200 {
		t.Fatalf("code = %d", rec.Code)
	}

	var resp struct {
		Quotes []struct {
			Executive string `json:"executive"`
			Period    string `json:"period"`
		} `json:"quotes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Quotes) != 3 {
		t.Fatalf("quotes = %d", len(resp.Quotes))
	}
	if !strings.HasPrefix(resp.Quotes[0].Executive, "ALPH CEO") {
		t.Errorf("executive = %q", resp.Quotes[0].Executive)
	}
}

func TestRevenueHistoryEndpoint(t *testing.T) {
	s := testServer(t, "", nil)
	h := refreshed(t, s)

	rec := doRequest(t, h, "GET", "/api/v1/companies/ALPH/revenue-history", "", "")
	if rec.Code != 200 {
		t.Fatalf("code = %d", rec.Code)
	}

	var resp struct {
		Points      []struct{ Reported bool } `json:"points"`
		Synthesized bool                      `json:"synthesized"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Points) != 4 || !resp.Synthesized {
		t.Errorf("resp = %+v", resp)
	}
}

func TestAuthRequired(t *testing.T) {
	s := testServer(t, "secret", nil)
	h := s.Router()

	if rec := doRequest(t, h, "POST", "/api/v1/refresh", "", ""); rec.Code != 401 {
		t.Errorf("no token code = %d", rec.Code)
	}
	if rec := doRequest(t, h, "POST", "/api/v1/refresh", "wrong", ""); rec.Code != 401 {
		t.Errorf("bad token code = %d", rec.Code)
	}
	if rec := doRequest(t, h, "POST", "/api/v1/refresh", "secret", ""); rec.Code != 200 {
		t.Errorf("good token code = %d", rec.Code)
	}

	// reads stay public
	if rec := doRequest(t, h, "GET", "/api/v1/markets", "", ""); rec.Code != 200 {
		t.Errorf("read code = %d", rec.Code)
	}
}

func TestAnalysisLifecycle(t *testing.T) {
	s := testServer(t, "", &fakeLLM{response: "Strategic themes for Alpha."})
	h := refreshed(t, s)

	if rec := doRequest(t, h, "GET", "/api/v1/companies/ALPH/analysis", "", ""); rec.Code != 404 {
		t.Errorf("before analysis code = %d", rec.Code)
	}

	rec := doRequest(t, h, "POST", "/api/v1/companies/ALPH/analysis", "", "")
	if rec.Code != 200 {
		t.Fatalf("post code = %d: %s", rec.Code, rec.Body.String())
	}

	var a struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatal(err)
	}
	if a.Content != "Strategic themes for Alpha." {
		t.Errorf("content = %q", a.Content)
	}

	if rec := doRequest(t, h, "GET", "/api/v1/companies/ALPH/analysis", "", ""); rec.Code != 200 {
		t.Errorf("get code = %d", rec.Code)
	}
	if rec := doRequest(t, h, "GET", "/api/v1/analyses/"+a.ID, "", ""); rec.Code != 200 {
		t.Errorf("by id code = %d", rec.Code)
	}
}

func TestAnalysisWithoutLLM(t *testing.T) {
	s := testServer(t, "", nil)
	h := refreshed(t, s)

	if rec := doRequest(t, h, "POST", "/api/v1/companies/ALPH/analysis", "", ""); rec.Code != 503 {
		t.Errorf("code = %d", rec.Code)
	}
	if rec := doRequest(t, h, "POST", "/api/v1/search", "", `{"segment":"Test Segment","topic":"AI"}`); rec.Code != 503 {
		t.Errorf("search code = %d", rec.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	llm := &fakeLLM{response: `COMPANY: Alpha Systems
EXECUTIVE: Jane Doe, CEO
QUOTE: "AI is reshaping our pipeline."
SOURCE: Recent Earnings Discussion
RELEVANCE: Direct AI commentary
CITATION: Alpha Systems Investor Relations - Earnings Materials`}
	s := testServer(t, "", llm)
	h := refreshed(t, s)

	rec := doRequest(t, h, "POST", "/api/v1/search", "", `{"segment":"Test Segment","topic":"AI"}`)
	if rec.Code != 200 {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		AnalysisID string `json:"analysis_id"`
		Results    []struct {
			Company string `json:"company"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.AnalysisID == "" || len(resp.Results) != 1 || resp.Results[0].Company != "Alpha Systems" {
		t.Errorf("resp = %+v", resp)
	}

	if rec := doRequest(t, h, "POST", "/api/v1/search", "", `{"segment":"Nope","topic":"AI"}`); rec.Code != 404 {
		t.Errorf("unknown segment code = %d", rec.Code)
	}
	if rec := doRequest(t, h, "POST", "/api/v1/search", "", `{"segment":"Test Segment"}`); rec.Code != 400 {
		t.Errorf("missing topic code = %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := testServer(t, "", nil)
	h := refreshed(t, s)

	rec := doRequest(t, h, "GET", "/api/v1/status", "", "")
	if rec.Code != 200 {
		t.Fatalf("code = %d", rec.Code)
	}

	var resp struct {
		Version string `json:"version"`
		Tickers int    `json:"tickers"`
		Refresh struct {
			Succeeded int `json:"succeeded"`
		} `json:"refresh"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Version != "test" || resp.Tickers != 2 || resp.Refresh.Succeeded != 2 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHealthEndpoints(t *testing.T) {
	h := testServer(t, "", nil).Router()

	if rec := doRequest(t, h, "GET", "/healthz", "", ""); rec.Code != 200 {
		t.Errorf("healthz code = %d", rec.Code)
	}
	if rec := doRequest(t, h, "GET", "/readyz", "", ""); rec.Code != 200 {
		t.Errorf("readyz code = %d", rec.Code)
	}
	if rec := doRequest(t, h, "GET", "/metrics", "", ""); rec.Code != 200 {
		t.Errorf("metrics code = %d", rec.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	h := testServer(t, "", nil).Router()

	req := httptest.NewRequest("GET", "/api/v1/markets", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("request id = %q", got)
	}
}
