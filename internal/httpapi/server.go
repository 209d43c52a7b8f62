// Package httpapi serves fairness audits over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/huangsam/fairspot/internal/contract"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Audit outcomes counted by fairspot_audits_total.
const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	cfg      *contract.Config
	mgr      contract.StoreManager
	registry *prometheus.Registry
	audits   *prometheus.CounterVec
}

// NewServer creates a server whose audits start from cfg.
func NewServer(cfg *contract.Config, mgr contract.StoreManager) *Server {
	registry := prometheus.NewRegistry()
	audits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fairspot",
		Name:      "audits_total",
		Help:      "Audits served over HTTP, by outcome.",
	}, []string{"outcome"})
	registry.MustRegister(
		audits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Server{cfg: cfg, mgr: mgr, registry: registry, audits: audits}
}

// Routes returns the HTTP handler of the API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Post("/audit", s.handleAudit)
		r.Get("/metrics", s.handleCatalog)
		r.Get("/runs/status", s.handleRunStatus)
	})
	return r
}

// Serve listens on cfg.Listen until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewServer(cfg, mgr).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("http api listening", "addr", cfg.Listen)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("http api shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
