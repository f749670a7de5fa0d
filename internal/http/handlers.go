package http

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady performs readiness check. The service holds everything in
// memory, so readiness reduces to templates being parsed and the internal
// components responding.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	checks["session"] = map[string]any{
		"generation":   s.session.Generation(),
		"transactions": s.session.Len(),
		"status":       "ok",
	}
	checks["cache"] = map[string]any{
		"chart_entries":   s.chartCache.Size(),
		"summary_entries": s.summaryCache.Size(),
		"status":          "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	totalUploads := atomic.LoadInt64(&s.appMetrics.totalUploads)
	cacheHits := atomic.LoadInt64(&s.appMetrics.cacheHits)
	cacheMisses := atomic.LoadInt64(&s.appMetrics.cacheMisses)
	uptime := time.Since(s.appMetrics.uptime)

	fmt.Fprintf(w, "# Application metrics\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
	fmt.Fprintf(w, "uploads_total %d\n", totalUploads)
	fmt.Fprintf(w, "session_generation %d\n", s.session.Generation())
	fmt.Fprintf(w, "session_transactions %d\n", s.session.Len())
	fmt.Fprintf(w, "\n# HTTP metrics\n")
	fmt.Fprintf(w, "http_requests_total %d\n", traceMetrics.TotalRequests)
	fmt.Fprintf(w, "http_response_time_microseconds %d\n", traceMetrics.AverageResponseTime)
	fmt.Fprintf(w, "rate_limit_rejections_total %d\n", s.rateLimiter.TotalHits())
	fmt.Fprintf(w, "rate_limit_active_clients %d\n", s.rateLimiter.ActiveClients())
	fmt.Fprintf(w, "\n# Cache metrics\n")
	fmt.Fprintf(w, "cache_hits_total %d\n", cacheHits)
	fmt.Fprintf(w, "cache_misses_total %d\n", cacheMisses)
	fmt.Fprintf(w, "cache_chart_entries %d\n", s.chartCache.Size())
	fmt.Fprintf(w, "cache_summary_entries %d\n", s.summaryCache.Size())
}
