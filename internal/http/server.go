// Package http serves the bill dashboard: server-rendered pages, HTMX
// partials and a small JSON endpoint for the trend chart.
package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"billdash/internal/cache"
	applog "billdash/internal/log"
	"billdash/internal/middleware/ratelimit"
	"billdash/internal/middleware/security"
	"billdash/internal/middleware/trace"
	"billdash/internal/report"
	"billdash/internal/services"
	appweb "billdash/web"
)

const (
	monthKeyLayout  = "2006-01"
	trendKey        = "trend"
	cleanupInterval = 10 * time.Minute
)

// Options configures NewServer. Zero values fall back to defaults.
type Options struct {
	Addr               string
	Logger             *applog.Logger
	CacheTTL           time.Duration
	CacheSize          int
	RateLimitPerMinute int

	// Ready reports whether the backend can serve requests.
	Ready func(ctx context.Context) error

	// Now is the clock used to pick the current month.
	Now func() time.Time
}

type appMetrics struct {
	billsCreated atomic.Int64
	billsUpdated atomic.Int64
	billsDeleted atomic.Int64
	optimizeRuns atomic.Int64
	startedAt    time.Time
}

// Server embeds http.Server and owns the middleware and caches behind it.
type Server struct {
	http.Server

	svc       *services.BillService
	templates *template.Template
	logger    *applog.Logger
	now       func() time.Time
	ready     func(ctx context.Context) error

	dashboardCache *cache.LRUCache[services.Dashboard]
	trendCache     *cache.LRUCache[report.TrendSummary]
	dashboards     *cache.Loader[services.Dashboard]
	trends         *cache.Loader[report.TrendSummary]
	caches         *cache.Manager

	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector

	metrics      appMetrics
	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires routes and middleware.
func NewServer(svc *services.BillService, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Component: applog.ComponentHTTP})
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Ready == nil {
		opts.Ready = func(context.Context) error { return nil }
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 100
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	s := &Server{
		svc:            svc,
		templates:      t,
		logger:         logger,
		now:            opts.Now,
		ready:          opts.Ready,
		dashboardCache: cache.NewLRUCache[services.Dashboard](opts.CacheSize, opts.CacheTTL),
		trendCache:     cache.NewLRUCache[report.TrendSummary](1, opts.CacheTTL),
		caches:         cache.NewManager(),
		detector:       security.NewDetector(),
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		metrics:        appMetrics{startedAt: time.Now()},
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	s.dashboards = cache.NewLoader[services.Dashboard](s.dashboardCache, func(ctx context.Context, key string) (services.Dashboard, error) {
		month, err := time.Parse(monthKeyLayout, key)
		if err != nil {
			return services.Dashboard{}, err
		}
		return s.svc.Dashboard(ctx, month)
	})
	s.trends = cache.NewLoader[report.TrendSummary](s.trendCache, func(ctx context.Context, _ string) (report.TrendSummary, error) {
		return s.svc.Trend(ctx)
	})
	s.caches.Register(s.dashboardCache)
	s.caches.Register(s.trendCache)
	svc.OnChange(s.invalidate)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(static),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(static fs.FS) http.Handler {
	r := chi.NewRouter()
	r.Use(
		s.tracer.Middleware,
		chimw.Recoverer,
		chimw.CleanPath,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.detector.Middleware,
		s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, s.handleRateLimited),
	)

	r.With(security.StaticAssetMiddleware(3600)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", s.handleIndex)
	r.Get("/chart", s.handleChart)
	r.Get("/api/trend", s.handleTrendJSON)

	r.Route("/bills", func(r chi.Router) {
		r.Post("/", s.handleCreateBill)
		r.Get("/{id}/edit", s.handleEditBill)
		r.Post("/{id}", s.handleUpdateBill)
		r.Delete("/{id}", s.handleDeleteBill)
		r.Post("/{id}/delete", s.handleDeleteBill)
	})
	r.Post("/filter", s.handleFilter)
	r.Post("/optimize", s.handleOptimize)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)
	return r
}

// invalidate drops every cached view; a single edit can move a bill
// between months and always changes the trend.
func (s *Server) invalidate() {
	s.dashboards.Purge()
	s.trends.Purge()
}

func (s *Server) monthKey() string {
	return s.now().Format(monthKeyLayout)
}

func (s *Server) dashboard(ctx context.Context) (services.Dashboard, error) {
	return s.dashboards.Get(ctx, s.monthKey())
}

func (s *Server) trend(ctx context.Context) (report.TrendSummary, error) {
	return s.trends.Get(ctx, trendKey)
}

// Run serves until ctx is cancelled, then shuts down within shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.caches.StartCleanup(cleanupInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("HTTP server listening", applog.FieldOperation, applog.OpStartup, "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", s.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("HTTP server shutting down", applog.FieldOperation, applog.OpShutdown)
		return s.Shutdown(sctx)
	})
	return g.Wait()
}

// Shutdown stops background routines and the HTTP server. Later calls are no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.caches.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(),
			"Template execution failed", err, applog.ComponentTemplate, applog.OpRender,
			applog.NewFields().WithErrorType(applog.ErrorTypeInternal))
	}
}
