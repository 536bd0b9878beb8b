// Package api provides the HTTP REST API of the stock analyzer.
//
// It exposes the full analysis pipeline, each agent individually, PDF
// reports and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seenimoa/stockanalyzer/internal/agent"
	"github.com/seenimoa/stockanalyzer/internal/config"
	"github.com/seenimoa/stockanalyzer/internal/logger"
	"github.com/seenimoa/stockanalyzer/internal/metrics"
)

// ServiceName and Version are reported by the health endpoint.
const (
	ServiceName = "Multi-Agent Stock Analyzer API"
	Version     = "2.0"
)

// maxBodyBytes bounds request bodies; /api/pdf/generate may carry a full bundle.
const maxBodyBytes = 8 << 20

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	orch     *agent.Orchestrator
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	log      *logger.Logger

	// upstreams reports circuit breaker states for the health endpoint.
	upstreams func() map[string]string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and handler logger.
func WithLogger(l *logger.Logger) Option { return func(s *Server) { s.log = l } }

// WithMetrics records request metrics on m and serves gatherer on /metrics.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithUpstreams adds breaker states from fn to the health payload.
func WithUpstreams(fn func() map[string]string) Option {
	return func(s *Server) { s.upstreams = fn }
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, orch *agent.Orchestrator, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		cfg:      cfg,
		orch:     orch,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrNop(s.log).Named("api")
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves until ctx is cancelled or SIGINT/SIGTERM arrives,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:         s.cfg.API.Addr(),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.cfg.API.RequestTimeout() + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.log.Infow("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if d := s.cfg.API.RequestTimeout(); d > 0 {
		r.Use(middleware.Timeout(d))
	}

	origins := s.cfg.API.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Stock analysis
		r.Get("/quick-summary/{symbol}", s.handleQuickSummary)
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/analyze/{symbol}/pdf", s.handleAnalyzePDF)

		// Agents
		r.Get("/agents/list", s.handleListAgents)
		r.Post("/agents/{name}", s.handleRunAgent)
		r.Post("/orchestrator/full-analysis", s.handleFullAnalysis)

		// Reports
		r.Post("/pdf/generate", s.handleGeneratePDF)
	})

	return r
}

// requestLogger logs each request and records its metrics under the matched
// route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		d := time.Since(start)
		s.metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(status), d)

		log := s.log.With(
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", d,
		)
		switch {
		case status >= 500:
			log.Errorw("request failed")
		case status >= 400:
			log.Warnw("request rejected")
		default:
			log.Infow("request served")
		}
	})
}
