// Package http serves the pipeline's web surface: run status and
// progress, on-demand pipeline runs, per-ticker feature rows, the CSV
// report and Prometheus metrics, plus a WebSocket progress feed.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"divrisk/internal/config"
	"divrisk/internal/dataset"
	"divrisk/internal/exporter"
)

// RunFunc executes one pipeline run with the requested overwrite mode
// (empty means the configured default). The server guarantees at most
// one run in flight.
type RunFunc func(ctx context.Context, mode string) error

// Server is the HTTP surface over the feature store and the pipeline.
type Server struct {
	cfg      config.ServerConfig
	paths    *config.Paths
	store    *dataset.Store
	exporter *exporter.Exporter
	logger   *slog.Logger
	validate *validator.Validate
	metrics  http.Handler
	runFunc  RunFunc
	hub      *Hub

	mu         sync.Mutex
	runInUse   bool
	lastRunID  string
	lastRunErr error

	httpServer *http.Server
}

// Options configures the server's collaborators. Metrics and RunFunc
// may be nil; the matching endpoints then report unavailable.
type Options struct {
	Config   config.ServerConfig
	Paths    *config.Paths
	Store    *dataset.Store
	Exporter *exporter.Exporter
	Logger   *slog.Logger
	Metrics  http.Handler
	RunFunc  RunFunc
}

// NewServer assembles the HTTP server and its routes.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:      opts.Config,
		paths:    opts.Paths,
		store:    opts.Store,
		exporter: opts.Exporter,
		logger:   logger,
		validate: validator.New(),
		metrics:  opts.Metrics,
		runFunc:  opts.RunFunc,
		hub:      NewHub(logger),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(s.logRequests)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/progress", s.handleProgress)
		r.Get("/operations", s.handleLastRun)
		r.Post("/operations", s.handleStartRun)
		r.Get("/features", s.handleListTickers)
		r.Get("/features/{ticker}", s.handleTickerFeatures)
		r.Get("/report.csv", s.handleCSVReport)
	})
	router.Get("/ws/progress", s.hub.HandleUpgrade)
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Config.Port),
		Handler:      router,
		ReadTimeout:  opts.Config.ReadTimeout,
		WriteTimeout: opts.Config.WriteTimeout,
		IdleTimeout:  opts.Config.IdleTimeout,
	}
	return s
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Hub returns the WebSocket progress hub so the pipeline can publish
// progress updates to connected clients.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start serves until the context is cancelled, then drains with the
// configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.hub.Close()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// logRequests emits one structured log line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}
