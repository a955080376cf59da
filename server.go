package worldmonitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SparkyNY/worldmonitor/cache"
	"github.com/SparkyNY/worldmonitor/config"
	"github.com/SparkyNY/worldmonitor/pipeline"
)

// Server exposes the read path over HTTP: cached payloads, an explicit
// refresh trigger, health, and Prometheus metrics.
type Server struct {
	cfg         *config.AppConfig
	service     *pipeline.Service
	logger      *slog.Logger
	httpServer  *http.Server
	proxyClient *http.Client
}

func NewServer(cfg *config.AppConfig, service *pipeline.Service, logger *slog.Logger) *Server {
	s := &Server{
		cfg:         cfg,
		service:     service,
		logger:      logger,
		proxyClient: &http.Client{Timeout: 15 * time.Second},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/datasets/{id}", s.handleDataset)
	mux.HandleFunc("POST /api/datasets/{id}/refresh", s.handleRefresh)
	mux.HandleFunc("GET /proxy", s.handleProxy)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start begins serving in the background. Errors other than a clean
// shutdown are fatal.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
}

// HandleGracefulShutdown blocks until SIGINT or SIGTERM, then drains the
// server with a 10 second deadline.
func (s *Server) HandleGracefulShutdown() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	s.logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("server shutdown error", "error", err)
		return
	}
	s.logger.Info("server shut down")
}

// handleDataset serves the last cached payload without touching the
// network.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.cfg.Source(id); !ok {
		writeError(w, http.StatusNotFound, "unknown dataset: "+id)
		return
	}
	payload, err := s.service.Cached(r.Context(), id)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			writeError(w, http.StatusNotFound, "no cached payload for dataset: "+id)
			return
		}
		s.logger.Error("cache read failed", "dataset", id, "error", err)
		writeError(w, http.StatusInternalServerError, "cache read failed")
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleRefresh triggers a refresh and returns the freshly assembled
// payload. A failed refresh leaves any cached payload untouched.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.cfg.Source(id); !ok {
		writeError(w, http.StatusNotFound, "unknown dataset: "+id)
		return
	}
	payload, err := s.service.Refresh(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleProxy fetches an upstream feed on behalf of clients that cannot
// cross origins. Only absolute http(s) targets are accepted.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	target, err := url.Parse(r.URL.Query().Get("url"))
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		writeError(w, http.StatusBadRequest, "proxy requires an absolute http(s) url parameter")
		return
	}
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid proxy target")
		return
	}
	resp, err := s.proxyClient.Do(req)
	if err != nil {
		s.logger.Warn("proxy fetch failed", "target", target.String(), "error", err)
		writeError(w, http.StatusBadGateway, "proxy fetch failed")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}
