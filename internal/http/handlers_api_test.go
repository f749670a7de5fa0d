package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"budgetviz/internal/config"
	"budgetviz/internal/session"
)

const fixtureJSONL = `{"Date": "2024-03-01", "Description": "Rent March", "Category": "Rent", "Amount": 1500, "Currency": "GBP"}
{"Date": "2024-03-05", "Description": "Weekly shop", "Category": "Grocery", "Amount": 50.50, "Currency": "GBP"}
{"Date": "2024-04-02", "Description": "Rent April", "Category": "Rent", "Amount": 1500, "Currency": "GBP"}`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Port:               "0",
		LogLevel:           "error",
		ClickTolerance:     5,
		DetailRowLimit:     100,
		MaxUploadBytes:     1 << 20,
		RateLimitPerMinute: 10000,
		CacheTTL:           time.Minute,
		CacheSize:          16,
	}
	s := NewServer(cfg, session.New(), nil)
	t.Cleanup(func() { s.rateLimiter.Stop() })
	return s
}

func multipartUpload(t *testing.T, target, payload string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "expenses.jsonl")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := io.WriteString(fw, payload); err != nil {
		t.Fatalf("writing payload: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func doRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func uploadFixture(t *testing.T, s *Server) {
	t.Helper()
	rec := doRequest(s, multipartUpload(t, "/expenses/upload", fixtureJSONL))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadResponse(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, multipartUpload(t, "/expenses/upload", fixtureJSONL))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Message != "File uploaded successfully" {
		t.Errorf("message = %q", resp.Message)
	}
	wantCats := []string{"Grocery", "Rent"}
	if len(resp.Categories) != len(wantCats) {
		t.Fatalf("categories = %v, want %v", resp.Categories, wantCats)
	}
	for i, c := range wantCats {
		if resp.Categories[i] != c {
			t.Errorf("categories[%d] = %q, want %q", i, resp.Categories[i], c)
		}
	}
	if len(resp.Years) != 1 || resp.Years[0] != 2024 {
		t.Errorf("years = %v, want [2024]", resp.Years)
	}
}

func TestUploadRawBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/expenses/upload", strings.NewReader(fixtureJSONL))
	rec := doRequest(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadRejectsMalformedPayload(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "this is not json"},
		{"missing date", `{"Description": "x", "Category": "Rent", "Amount": 10}`},
		{"unknown currency", `{"Date": "2024-01-01", "Description": "x", "Category": "Rent", "Amount": 10, "Currency": "EUR"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, multipartUpload(t, "/expenses/upload", tt.payload))
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422, body: %s", rec.Code, rec.Body.String())
			}
			var detail map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
				t.Fatalf("decoding error body: %v", err)
			}
			if detail["detail"] == "" {
				t.Error("error body missing detail field")
			}
		})
	}
}

func TestUploadEmptyFileClearsDataset(t *testing.T) {
	s := newTestServer(t)
	uploadFixture(t, s)

	rec := doRequest(s, multipartUpload(t, "/expenses/upload", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"categories":[]`) || !strings.Contains(body, `"years":[]`) {
		t.Errorf("body = %s, want empty lists", body)
	}
	if s.session.Len() != 0 {
		t.Errorf("session rows = %d after empty upload, want 0", s.session.Len())
	}
}

func TestUploadPreservesDatasetOnFailure(t *testing.T) {
	s := newTestServer(t)
	uploadFixture(t, s)

	rec := doRequest(s, multipartUpload(t, "/expenses/upload", "broken"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if s.session.Len() != 3 {
		t.Errorf("session rows = %d after failed upload, want 3", s.session.Len())
	}
}

func TestGetExpensesEmptySession(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/expenses?time_period=month", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"barChartData":[]`) || !strings.Contains(body, `"lineChartData":[]`) {
		t.Errorf("empty session body = %s, want empty arrays", body)
	}
}

func TestGetExpensesMonthly(t *testing.T) {
	s := newTestServer(t)
	uploadFixture(t, s)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/expenses?time_period=month", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp expensesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	wantBar := []chartPoint{
		{TimePeriod: "2024-03", Category: "Grocery", Amount: 50.50},
		{TimePeriod: "2024-03", Category: "Rent", Amount: 1500},
		{TimePeriod: "2024-04", Category: "Rent", Amount: 1500},
	}
	if len(resp.BarChartData) != len(wantBar) {
		t.Fatalf("barChartData = %+v, want %+v", resp.BarChartData, wantBar)
	}
	for i, want := range wantBar {
		if resp.BarChartData[i] != want {
			t.Errorf("barChartData[%d] = %+v, want %+v", i, resp.BarChartData[i], want)
		}
	}

	wantLine := []chartPoint{
		{TimePeriod: "2024-03", Category: "Total", Amount: 1550.50},
		{TimePeriod: "2024-04", Category: "Total", Amount: 1500},
	}
	if len(resp.LineChartData) != len(wantLine) {
		t.Fatalf("lineChartData = %+v, want %+v", resp.LineChartData, wantLine)
	}
	for i, want := range wantLine {
		if resp.LineChartData[i] != want {
			t.Errorf("lineChartData[%d] = %+v, want %+v", i, resp.LineChartData[i], want)
		}
	}
}

func TestGetExpensesInUSD(t *testing.T) {
	s := newTestServer(t)
	uploadFixture(t, s)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/expenses?time_period=month&currency=USD&categories=Rent&years=2024", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp expensesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.BarChartData) != 2 {
		t.Fatalf("barChartData = %+v, want two Rent rows", resp.BarChartData)
	}
	for _, p := range resp.BarChartData {
		if p.Amount != 1875 {
			t.Errorf("Rent amount in USD = %v, want 1875", p.Amount)
		}
	}
}

func TestGetExpensesBadParams(t *testing.T) {
	s := newTestServer(t)
	uploadFixture(t, s)

	tests := []struct {
		name   string
		target string
	}{
		{"bad granularity", "/expenses?time_period=fortnight"},
		{"bad currency", "/expenses?time_period=month&currency=EUR"},
		{"bad year", "/expenses?time_period=month&years=abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestGetExpensesCached(t *testing.T) {
	s := newTestServer(t)
	uploadFixture(t, s)

	target := "/expenses?time_period=month"
	first := doRequest(s, httptest.NewRequest(http.MethodGet, target, nil))
	second := doRequest(s, httptest.NewRequest(http.MethodGet, target, nil))
	if first.Body.String() != second.Body.String() {
		t.Error("cached response differs from computed response")
	}
	if atomic.LoadInt64(&s.appMetrics.cacheHits) == 0 {
		t.Error("expected a cache hit on the second identical request")
	}

	// A new upload must invalidate what the cache serves.
	uploadFixture(t, s)
	third := doRequest(s, httptest.NewRequest(http.MethodGet, target, nil))
	if third.Code != http.StatusOK {
		t.Fatalf("status after re-upload = %d", third.Code)
	}
}

func TestGetSummary(t *testing.T) {
	s := newTestServer(t)
	uploadFixture(t, s)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/expenses/summary?time_period=month", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.TotalSpent != 3050.50 {
		t.Errorf("totalSpent = %v, want 3050.50", resp.TotalSpent)
	}
	if resp.PeriodCount != 2 {
		t.Errorf("periodCount = %d, want 2", resp.PeriodCount)
	}
	if resp.AveragePerPeriod != 1525.25 {
		t.Errorf("averagePerPeriod = %v, want 1525.25", resp.AveragePerPeriod)
	}
	if resp.Currency != "GBP" {
		t.Errorf("currency = %q, want GBP", resp.Currency)
	}
}

func TestGetSummaryEmptySession(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/expenses/summary?time_period=month", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.TotalSpent != 0 || resp.PeriodCount != 0 {
		t.Errorf("empty session summary = %+v, want zeros", resp)
	}
}

func TestGetDetails(t *testing.T) {
	s := newTestServer(t)
	uploadFixture(t, s)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/expenses/details?category=Rent&time_period=2024-03", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Details []struct {
			Date        string  `json:"date"`
			Description string  `json:"description"`
			Category    string  `json:"category"`
			Amount      float64 `json:"amount"`
			Currency    string  `json:"currency"`
		} `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Details) != 1 {
		t.Fatalf("details = %+v, want one row", resp.Details)
	}
	row := resp.Details[0]
	if row.Description != "Rent March" || row.Amount != 1500 || row.Currency != "GBP" {
		t.Errorf("detail row = %+v", row)
	}
}

func TestGetDetailsErrors(t *testing.T) {
	s := newTestServer(t)
	uploadFixture(t, s)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing params", "/expenses/details", http.StatusBadRequest},
		{"bad period", "/expenses/details?category=Rent&time_period=03/2024", http.StatusBadRequest},
		{"bad currency", "/expenses/details?category=Rent&time_period=2024-03&currency=EUR", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, httptest.NewRequest(http.MethodGet, tt.target, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestGetDetailsEmptySession(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/expenses/details?category=Rent&time_period=2024-03", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"details":[]`) {
		t.Errorf("body = %s, want empty details array", rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{"/healthz", "/readyz"} {
		rec := doRequest(s, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", target, rec.Code)
		}
	}

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "uploads_total") {
		t.Error("metrics output missing uploads_total")
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing Content-Security-Policy header")
	}
}
