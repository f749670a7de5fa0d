// Package http provides the HTTP server and handler implementations for the
// JSON API and the HTMX dashboard.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"budgetviz/internal/cache"
	"budgetviz/internal/config"
	"budgetviz/internal/events"
	"budgetviz/internal/middleware/ratelimit"
	"budgetviz/internal/middleware/security"
	"budgetviz/internal/middleware/trace"
	"budgetviz/internal/session"
	appweb "budgetviz/web"
)

// EventPublisher notifies interested consumers that the dataset changed.
// A nil publisher disables notifications.
type EventPublisher interface {
	PublishDatasetReplaced(ctx context.Context, msg *events.DatasetReplacedMessage) error
}

type appMetrics struct {
	uptime       time.Time
	totalUploads int64
	cacheHits    int64
	cacheMisses  int64
}

type Server struct {
	http.Server
	templates *template.Template
	cfg       *config.Config
	session   *session.Session
	publisher EventPublisher

	// Computed chart responses keyed by (session generation, query). A new
	// upload bumps the generation, so stale entries can only waste cache
	// space, never serve wrong data; Purge on upload reclaims them early.
	chartCache   *cache.LRUCache[expensesResponse]
	summaryCache *cache.LRUCache[summaryResponse]

	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware
	ipResolver      *security.Resolver

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
// publisher may be nil when event publishing is disabled.
func NewServer(cfg *config.Config, sess *session.Session, publisher EventPublisher) *Server {
	s := &Server{
		cfg:             cfg,
		session:         sess,
		publisher:       publisher,
		chartCache:      cache.NewLRUCache[expensesResponse](cfg.CacheSize, cfg.CacheTTL),
		summaryCache:    cache.NewLRUCache[summaryResponse](cfg.CacheSize, cfg.CacheTTL),
		rateLimiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		ipResolver:      security.NewResolver(),
		appMetrics:      appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.ipResolver.ExtractClientIP)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	r := chi.NewRouter()
	r.Use(headers.Middleware)
	r.Use(s.traceMiddleware.Middleware)
	r.Use(s.rateLimiter.Middleware(s.ipResolver.ExtractClientIP))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/expenses", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Get("/", s.handleGetExpenses)
		r.Get("/details", s.handleGetDetails)
		r.Get("/summary", s.handleGetSummary)
	})

	r.Get("/", s.handleDashboard)
	r.Route("/ui", func(r chi.Router) {
		r.Post("/upload", s.handleUIUpload)
		r.Get("/controls", s.handleUIControls)
		r.Get("/charts", s.handleUICharts)
		r.Get("/summary", s.handleUISummary)
		r.Get("/details", s.handleUIDetails)
	})

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	s.Server = http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Caches returns the response caches for registration with a cleanup manager.
func (s *Server) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.chartCache, s.summaryCache}
}

// purgeCaches drops every cached response. Called after an upload replaces
// the dataset.
func (s *Server) purgeCaches() {
	s.chartCache.Purge()
	s.summaryCache.Purge()
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
