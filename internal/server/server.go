// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server is the HTTP front end: it starts runs in the
// background and serves their progress, results and reports.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/landscape-engine/internal/logger"
	"github.com/pdiddy/landscape-engine/internal/pipeline"
	"github.com/pdiddy/landscape-engine/internal/progress"
	"github.com/pdiddy/landscape-engine/pkg/types"
)

const shutdownTimeout = 10 * time.Second

// Runner executes one research run under a caller-chosen id.
type Runner interface {
	RunWithID(ctx context.Context, runID string, req types.ResearchRequest, sink pipeline.ProgressSink) types.RunOutcome
}

// Keywords derives search keywords for requests that carry none.
type Keywords interface {
	KeywordsFor(ctx context.Context, topic string) ([]string, error)
	PipelineKeywords(drug, indication string) []string
}

// Status is the system status reported by GET /api/status.
type Status struct {
	Sources        []types.SourceID `json:"sources"`
	AIEnabled      bool             `json:"ai_enabled"`
	Model          string           `json:"model,omitempty"`
	BreakerTripped bool             `json:"breaker_tripped"`
}

// Options wires the server's collaborators. Runner, Keywords and Store
// are required.
type Options struct {
	Runner   Runner
	Keywords Keywords
	Store    progress.Store
	Log      logger.Logger

	// Gatherer backs GET /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer

	// Status is called for GET /api/status.
	Status func() Status
}

// Server owns the router and the background runs it started.
type Server struct {
	opts   Options
	log    logger.Logger
	router *gin.Engine

	// ctx scopes background runs; cancel stops them on shutdown.
	ctx    context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup

	// Now and NewID are replaced in tests.
	Now   func() time.Time
	NewID func() string
}

// New builds a server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Runner == nil || opts.Keywords == nil || opts.Store == nil {
		return nil, types.ConfigError("server: runner, keywords and store are required")
	}
	if opts.Log == nil {
		opts.Log = logger.NewNop()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Status == nil {
		opts.Status = func() Status { return Status{} }
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		opts:   opts,
		log:    opts.Log,
		ctx:    ctx,
		cancel: cancel,
		Now:    time.Now,
		NewID:  uuid.NewString,
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.GET("/status", s.status)
	api.GET("/examples", s.examples)
	api.POST("/runs", s.startRun)
	api.GET("/runs/:id", s.getProgress)
	api.GET("/runs/:id/result", s.getResult)
	api.GET("/runs/:id/report", s.getReport)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("elapsed", time.Since(start)),
		)
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down:
// it stops accepting requests, cancels background runs and waits for
// them to record their outcome.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			s.Close()
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close cancels background runs and waits for them to finish.
func (s *Server) Close() {
	s.cancel()
	s.runs.Wait()
}
