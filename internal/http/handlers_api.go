package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync/atomic"

	"budgetviz/internal/core"
	"budgetviz/internal/events"
	"budgetviz/internal/pipeline"
)

type chartPoint struct {
	TimePeriod string  `json:"timePeriod"`
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
}

type expensesResponse struct {
	BarChartData  []chartPoint `json:"barChartData"`
	LineChartData []chartPoint `json:"lineChartData"`
}

type summaryResponse struct {
	TotalSpent       float64 `json:"totalSpent"`
	AveragePerPeriod float64 `json:"averagePerPeriod"`
	PeriodCount      int     `json:"periodCount"`
	Currency         string  `json:"currency"`
}

type uploadResponse struct {
	Message    string   `json:"message"`
	Categories []string `json:"categories"`
	Years      []int    `json:"years"`
}

// uploadResult carries what the two upload handlers need from one processed
// payload.
type uploadResult struct {
	Rows       int
	Categories []string
	Years      []int
}

// readUploadPayload extracts the raw upload bytes from a multipart form
// field named "file", or from the request body for clients posting the file
// directly. Size is bounded either way.
func (s *Server) readUploadPayload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
			return nil, fmt.Errorf("%w: %v", pipeline.ErrMalformedInput, err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: missing file field", pipeline.ErrMalformedInput)
		}
		defer func(f multipart.File) { _ = f.Close() }(file)
		return io.ReadAll(file)
	}

	return io.ReadAll(r.Body)
}

// processUpload runs the ingestion pipeline and swaps the session dataset.
// The returned categories reflect the requested remap mode and the years the
// upload's distinct transaction years.
func (s *Server) processUpload(ctx context.Context, payload []byte, opts QueryOptions) (uploadResult, error) {
	records, err := pipeline.ParseRecords(payload)
	if err != nil {
		return uploadResult{}, err
	}

	txs, err := pipeline.Normalize(records)
	if err != nil {
		return uploadResult{}, err
	}

	table, err := pipeline.BuildTable(txs, pipeline.Options{
		Granularity:      opts.Granularity,
		CoarseCategories: opts.Coarse,
	})
	if err != nil {
		return uploadResult{}, err
	}

	s.session.Replace(txs)
	s.purgeCaches()
	atomic.AddInt64(&s.appMetrics.totalUploads, 1)

	result := uploadResult{
		Rows:       len(txs),
		Categories: table.Categories(),
		Years:      table.Years(),
	}
	// An empty upload clears the dataset and reports empty lists, never null.
	if result.Categories == nil {
		result.Categories = []string{}
	}
	if result.Years == nil {
		result.Years = []int{}
	}

	slog.InfoContext(ctx, "Dataset replaced",
		"rows", result.Rows,
		"years", result.Years,
		"categories", len(result.Categories),
		"generation", s.session.Generation())

	s.publishDatasetReplaced(ctx, result)
	return result, nil
}

// publishDatasetReplaced notifies consumers of the new dataset. Publishing
// is best effort: a nil publisher skips, a failure is logged and never fails
// the upload.
func (s *Server) publishDatasetReplaced(ctx context.Context, result uploadResult) {
	if s.publisher == nil {
		return
	}
	msg := events.NewDatasetReplacedMessage(result.Rows, result.Categories, result.Years, s.session.Generation())
	if err := s.publisher.PublishDatasetReplaced(context.WithoutCancel(ctx), msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish dataset replaced event", "error", err)
	}
}

// handleUpload ingests a JSON or JSONL expense file and replaces the
// in-memory dataset wholesale.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseQueryOptions(r.URL.Query())
	if err != nil {
		writeDetailError(w, http.StatusBadRequest, err)
		return
	}

	payload, err := s.readUploadPayload(w, r)
	if err != nil {
		writeDetailError(w, http.StatusUnprocessableEntity, err)
		return
	}

	result, err := s.processUpload(r.Context(), payload, opts)
	if err != nil {
		writeDetailError(w, http.StatusUnprocessableEntity, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Message:    "File uploaded successfully",
		Categories: result.Categories,
		Years:      result.Years,
	})
}

// buildProjection runs the aggregation for the given options against the
// current session snapshot and converts it to the display currency.
func (s *Server) buildProjection(opts QueryOptions) (pipeline.Aggregation, error) {
	table, err := pipeline.BuildTable(s.session.Snapshot(), pipeline.Options{
		Granularity:      opts.Granularity,
		CoarseCategories: opts.Coarse,
	})
	if err != nil {
		return pipeline.Aggregation{}, err
	}
	agg := pipeline.Aggregate(table, pipeline.Filters{
		Years:      opts.Years,
		Categories: opts.Categories,
	})
	return agg.InCurrency(opts.Currency)
}

func buildChartResponse(agg pipeline.Aggregation) expensesResponse {
	resp := expensesResponse{
		BarChartData:  make([]chartPoint, 0, len(agg.ByPeriodCategory)),
		LineChartData: make([]chartPoint, 0, len(agg.ByPeriod)),
	}
	for _, row := range agg.ByPeriodCategory {
		resp.BarChartData = append(resp.BarChartData, chartPoint{
			TimePeriod: row.Period,
			Category:   row.Category,
			Amount:     row.Amount.Units(),
		})
	}
	for _, row := range agg.ByPeriod {
		resp.LineChartData = append(resp.LineChartData, chartPoint{
			TimePeriod: row.Period,
			Category:   row.Category,
			Amount:     row.Amount.Units(),
		})
	}
	return resp
}

// handleGetExpenses returns both chart projections for the requested
// options. Before any upload it returns well-formed empty arrays.
func (s *Server) handleGetExpenses(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseQueryOptions(r.URL.Query())
	if err != nil {
		writeDetailError(w, http.StatusBadRequest, err)
		return
	}

	if s.session.Empty() {
		writeJSON(w, http.StatusOK, expensesResponse{
			BarChartData:  []chartPoint{},
			LineChartData: []chartPoint{},
		})
		return
	}

	key := cacheKey(s.session.Generation(), r.URL.Query())
	if cached, ok := s.chartCache.Get(key); ok {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		writeJSON(w, http.StatusOK, cached)
		return
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	agg, err := s.buildProjection(opts)
	if err != nil {
		writeDetailError(w, http.StatusInternalServerError, err)
		return
	}

	resp := buildChartResponse(agg)
	s.chartCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleGetSummary returns the scalar summary shared by both front-ends.
func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseQueryOptions(r.URL.Query())
	if err != nil {
		writeDetailError(w, http.StatusBadRequest, err)
		return
	}

	if s.session.Empty() {
		writeJSON(w, http.StatusOK, summaryResponse{Currency: opts.Currency})
		return
	}

	key := cacheKey(s.session.Generation(), r.URL.Query())
	if cached, ok := s.summaryCache.Get(key); ok {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		writeJSON(w, http.StatusOK, cached)
		return
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	agg, err := s.buildProjection(opts)
	if err != nil {
		writeDetailError(w, http.StatusInternalServerError, err)
		return
	}

	resp := summaryResponse{
		TotalSpent:       agg.Total.Units(),
		AveragePerPeriod: agg.AveragePerPeriod.Units(),
		PeriodCount:      agg.PeriodCount,
		Currency:         opts.Currency,
	}
	s.summaryCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

// handleGetDetails returns the transactions behind one (category, period)
// cell, amounts converted to the display currency, sorted by amount
// descending.
func (s *Server) handleGetDetails(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	category := sanitizeInput(query.Get("category"))
	period := sanitizeInput(query.Get("time_period"))
	if category == "" || period == "" {
		writeDetailError(w, http.StatusBadRequest, fmt.Errorf("category and time_period are required"))
		return
	}

	currency := core.BaseCurrency
	if c := strings.TrimSpace(query.Get("currency")); c != "" {
		currency = c
	}
	coarse := parseBoolParam(query.Get("use_higher_category"))

	if s.session.Empty() {
		writeJSON(w, http.StatusOK, map[string][]pipeline.DetailRow{"details": {}})
		return
	}

	granularity, err := core.InferGranularity(period)
	if err != nil {
		writeDetailError(w, http.StatusBadRequest, err)
		return
	}

	table, err := pipeline.BuildTable(s.session.Snapshot(), pipeline.Options{
		Granularity:      granularity,
		CoarseCategories: coarse,
	})
	if err != nil {
		writeDetailError(w, http.StatusInternalServerError, err)
		return
	}

	details, err := pipeline.DetailsForCategory(table, period, category, currency)
	if err != nil {
		writeDetailError(w, http.StatusBadRequest, err)
		return
	}
	if details == nil {
		details = []pipeline.DetailRow{}
	}

	writeJSON(w, http.StatusOK, map[string][]pipeline.DetailRow{"details": details})
}
