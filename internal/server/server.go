// Package server exposes the answer pipeline over HTTP
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/nurpath/nurpath/internal/catalog"
	"github.com/nurpath/nurpath/internal/model"
	"github.com/nurpath/nurpath/internal/pipeline"
)

const shutdownTimeout = 10 * time.Second

// Options are the optional collaborators of a Server
type Options struct {
	Gatherer    prometheus.Gatherer // Source for /metrics; defaults to the global registry
	ServiceName string
	Logger      *slog.Logger
}

// Server is the HTTP API
type Server struct {
	pipeline *pipeline.Pipeline
	store    *catalog.Store
	cfg      model.ServerConfig
	validate *validator.Validate
	router   *gin.Engine
	logger   *slog.Logger
}

// New creates a server and registers its routes
func New(p *pipeline.Pipeline, store *catalog.Store, cfg model.ServerConfig, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "nurpath"
	}

	s := &Server{
		pipeline: p,
		store:    store,
		cfg:      cfg,
		validate: validator.New(),
		logger:   opts.Logger,
	}

	router := gin.New()
	router.Use(requestID(), recovery(opts.Logger), otelgin.Middleware(opts.ServiceName), accessLog(opts.Logger))

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/v1")
	{
		v1.POST("/ask", s.handleAsk)
		v1.GET("/sources", s.handleSources)
		v1.GET("/sources/:id", s.handleSource)
		v1.GET("/health/retrieval", s.handleRetrievalHealth)
		v1.GET("/diagnostics", s.handleDiagnostics)
	}

	s.router = router
	return s
}

// Router returns the configured router
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
