package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"budgetviz/internal/core"
	"budgetviz/internal/pipeline"
)

// selectOption is one entry of a dashboard selector.
type selectOption struct {
	Value    string
	Label    string
	Selected bool
}

type controlsView struct {
	HasData       bool
	Granularities []selectOption
	Currencies    []selectOption
	Years         []selectOption
	Categories    []selectOption
	Coarse        bool
}

type chartSegment struct {
	Category  string
	Amount    string
	WidthPct  float64
	DetailURL string
}

type chartPeriod struct {
	Label    string
	Total    string
	WidthPct float64
	Segments []chartSegment
}

type chartsView struct {
	HasData bool
	Periods []chartPeriod
}

type summaryView struct {
	HasData     bool
	Total       string
	Average     string
	PeriodCount int
}

type detailsView struct {
	Period   string
	HasRows  bool
	Currency string
	Rows     []detailRowView
}

type detailRowView struct {
	Date        string
	Description string
	Category    string
	Amount      string
}

func (s *Server) renderPartial(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded")
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "template", name, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleDashboard renders the main dashboard page
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.renderPartial(w, r, "dashboard_page", nil)
}

// handleUIControls renders the filter selectors fed from the current
// session. Selections arrive back in the query so they survive re-renders.
func (s *Server) handleUIControls(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseQueryOptions(r.URL.Query())
	if err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}

	granularityLabels := []struct {
		g     core.Granularity
		label string
	}{
		{core.Yearly, "Yearly"},
		{core.Monthly, "Monthly"},
		{core.Weekly, "Weekly"},
	}

	view := controlsView{Coarse: opts.Coarse}
	for _, gl := range granularityLabels {
		view.Granularities = append(view.Granularities, selectOption{
			Value:    string(gl.g),
			Label:    gl.label,
			Selected: gl.g == opts.Granularity,
		})
	}
	for _, c := range core.Currencies() {
		view.Currencies = append(view.Currencies, selectOption{
			Value:    c,
			Label:    c,
			Selected: c == opts.Currency,
		})
	}

	if !s.session.Empty() {
		table, err := pipeline.BuildTable(s.session.Snapshot(), pipeline.Options{
			Granularity:      opts.Granularity,
			CoarseCategories: opts.Coarse,
		})
		if err != nil {
			ErrorResponse(http.StatusInternalServerError, err.Error()).Write(w)
			return
		}
		view.HasData = true

		selectedYears := map[int]bool{}
		for _, y := range opts.Years {
			selectedYears[y] = true
		}
		for _, y := range table.Years() {
			view.Years = append(view.Years, selectOption{
				Value:    strconv.Itoa(y),
				Label:    strconv.Itoa(y),
				Selected: len(selectedYears) == 0 || selectedYears[y],
			})
		}

		selectedCats := map[string]bool{}
		for _, c := range opts.Categories {
			selectedCats[c] = true
		}
		for _, c := range table.Categories() {
			view.Categories = append(view.Categories, selectOption{
				Value:    c,
				Label:    c,
				Selected: len(selectedCats) == 0 || selectedCats[c],
			})
		}
	}

	s.renderPartial(w, r, "controls", view)
}

// handleUICharts renders the stacked per-category bars with proportional
// widths. Each segment carries the drill-down URL with the displayed
// whole-unit amount so clicking it exercises the tolerance resolver exactly
// like a chart click.
func (s *Server) handleUICharts(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseQueryOptions(r.URL.Query())
	if err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}

	if s.session.Empty() {
		s.renderPartial(w, r, "charts", chartsView{})
		return
	}

	agg, err := s.buildProjection(opts)
	if err != nil {
		ErrorResponse(http.StatusInternalServerError, err.Error()).Write(w)
		return
	}

	var maxTotal int64
	totals := map[string]core.Money{}
	for _, row := range agg.ByPeriod {
		totals[row.Period] = row.Amount
		if row.Amount.Cents > maxTotal {
			maxTotal = row.Amount.Cents
		}
	}

	segments := map[string][]chartSegment{}
	for _, row := range agg.ByPeriodCategory {
		total := totals[row.Period]
		widthPct := 0.0
		if total.Cents > 0 {
			widthPct = float64(row.Amount.Cents) / float64(total.Cents) * 100
		}
		detail := url.Values{}
		detail.Set("period", row.Period)
		detail.Set("amount", strconv.FormatInt(row.Amount.WholeUnits(), 10))
		detail.Set("currency", opts.Currency)
		if opts.Coarse {
			detail.Set("use_higher_category", "true")
		}
		segments[row.Period] = append(segments[row.Period], chartSegment{
			Category:  row.Category,
			Amount:    formatAmount(row.Amount, opts.Currency),
			WidthPct:  widthPct,
			DetailURL: "/ui/details?" + detail.Encode(),
		})
	}

	view := chartsView{HasData: true}
	for _, row := range agg.ByPeriod {
		widthPct := 0.0
		if maxTotal > 0 {
			widthPct = float64(row.Amount.Cents) / float64(maxTotal) * 100
		}
		view.Periods = append(view.Periods, chartPeriod{
			Label:    row.Period,
			Total:    formatAmount(row.Amount, opts.Currency),
			WidthPct: widthPct,
			Segments: segments[row.Period],
		})
	}

	s.renderPartial(w, r, "charts", view)
}

// handleUISummary renders the total and per-period average partial.
func (s *Server) handleUISummary(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseQueryOptions(r.URL.Query())
	if err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}

	if s.session.Empty() {
		s.renderPartial(w, r, "summary", summaryView{})
		return
	}

	agg, err := s.buildProjection(opts)
	if err != nil {
		ErrorResponse(http.StatusInternalServerError, err.Error()).Write(w)
		return
	}

	s.renderPartial(w, r, "summary", summaryView{
		HasData:     true,
		Total:       formatAmount(agg.Total, opts.Currency),
		Average:     formatAmount(agg.AveragePerPeriod, opts.Currency),
		PeriodCount: agg.PeriodCount,
	})
}

// handleUIUpload ingests a form upload and triggers the other partials to
// refresh. When the category mode differs from the previous one the
// category filter is reset so stale selections do not linger.
func (s *Server) handleUIUpload(w http.ResponseWriter, r *http.Request) {
	opts, err := ParseQueryOptions(r.URL.Query())
	if err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}

	payload, err := s.readUploadPayload(w, r)
	if err != nil {
		ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Write(w)
		return
	}
	// Form fields take precedence over query params for the checkbox state,
	// since the browser posts them with the file.
	if r.MultipartForm != nil {
		if v := r.FormValue("use_higher_category"); v != "" {
			opts.Coarse = parseBoolParam(v)
		}
	}
	prevCoarse := parseBoolParam(r.FormValue("prev_use_higher_category"))

	result, err := s.processUpload(r.Context(), payload, opts)
	if err != nil {
		ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Write(w)
		return
	}

	builder := NewHTMXResponse().
		TriggerDatasetReplaced(s.session.Generation(), result.Rows).
		TriggerSuccessNotification(fmt.Sprintf("Loaded %d transactions", result.Rows)).
		BodyHTML(fmt.Sprintf(`<span class="upload-status">%d transactions loaded</span>`, result.Rows))
	if opts.Coarse != prevCoarse {
		builder.TriggerFiltersReset()
	}
	builder.Write(w)
}

// handleUIDetails maps a clicked chart segment back to its transactions via
// the tolerance resolver and renders them as a table partial.
func (s *Server) handleUIDetails(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	period := sanitizeInput(query.Get("period"))
	if period == "" {
		ErrorResponse(http.StatusBadRequest, "period is required").Write(w)
		return
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(query.Get("amount")), 10, 64)
	if err != nil {
		ErrorResponse(http.StatusBadRequest, "invalid amount").Write(w)
		return
	}
	currency := core.BaseCurrency
	if c := strings.TrimSpace(query.Get("currency")); c != "" {
		currency = c
	}
	coarse := parseBoolParam(query.Get("use_higher_category"))

	granularity, err := core.InferGranularity(period)
	if err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}

	table, err := pipeline.BuildTable(s.session.Snapshot(), pipeline.Options{
		Granularity:      granularity,
		CoarseCategories: coarse,
	})
	if err != nil {
		ErrorResponse(http.StatusInternalServerError, err.Error()).Write(w)
		return
	}

	rows, err := pipeline.ResolveDetails(table, period, amount, currency, pipeline.ResolveOptions{
		Tolerance: s.cfg.ClickTolerance,
		Limit:     s.cfg.DetailRowLimit,
	})
	if err != nil {
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
		return
	}

	view := detailsView{Period: period, HasRows: len(rows) > 0, Currency: currency}
	for _, row := range rows {
		view.Rows = append(view.Rows, detailRowView{
			Date:        row.Date,
			Description: row.Description,
			Category:    row.Category,
			Amount:      formatAmount(core.Money{Cents: core.CentsFromFloat(row.Amount)}, currency),
		})
	}

	s.renderPartial(w, r, "details_table", view)
}
