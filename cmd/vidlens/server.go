package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/vidlens/config"
	"github.com/BaSui01/vidlens/fetch"
	"github.com/BaSui01/vidlens/internal/metrics"
	"github.com/BaSui01/vidlens/internal/server"
	"github.com/BaSui01/vidlens/pipeline"
	"github.com/BaSui01/vidlens/providers/gemini"
)

// Server is the vidlens web server: the UI listener plus a separate
// metrics listener.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	collector *metrics.Collector
	handler   *webHandler
}

// NewServer creates a server instance. Call Start to begin serving.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// Start builds the pipeline and starts both listeners.
func (s *Server) Start() error {
	s.collector = metrics.NewCollector("vidlens", s.logger)

	backend := gemini.New(gemini.Config{
		APIKey:  s.cfg.Gemini.APIKey,
		BaseURL: s.cfg.Gemini.BaseURL,
		Model:   s.cfg.Gemini.Model,
	}, s.logger)

	fetcher := fetch.NewDownloader(s.cfg.Fetch.Dir, s.logger)

	p := pipeline.New(fetcher, backend, pipeline.Options{
		ActivationTimeout: s.cfg.Pipeline.ActivationTimeout,
		PollInterval:      s.cfg.Pipeline.PollInterval,
		MaxAttempts:       s.cfg.Pipeline.MaxAttempts,
		RetryDelay:        s.cfg.Pipeline.RetryDelay,
		CallTimeout:       s.cfg.Pipeline.CallTimeout,
	}, s.collector, s.logger)

	var err error
	s.handler, err = newWebHandler(p, s.logger)
	if err != nil {
		return fmt.Errorf("init web handler: %w", err)
	}

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("start HTTP server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}

	s.logger.Info("all servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)
	return nil
}

func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handler.Index)
	mux.HandleFunc("POST /analyze", s.handler.Analyze)
	mux.HandleFunc("GET /health", s.handler.Health)

	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		RateLimit(s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst),
		Metrics(s.collector),
		RequestLogger(s.logger),
	)

	s.httpManager = server.NewManager(handler, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     s.cfg.Server.IdleTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	return s.httpManager.Start()
}

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.metricsManager = server.NewManager(mux, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger.With(zap.String("listener", "metrics")))

	return s.metricsManager.Start()
}

// WaitForShutdown blocks until termination, then stops both listeners.
func (s *Server) WaitForShutdown() {
	s.httpManager.WaitForShutdown()
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(context.Background()); err != nil {
			s.logger.Error("metrics server shutdown failed", zap.Error(err))
		}
	}
}
