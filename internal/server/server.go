// Package server provides the HTTP API for interviewd.
//
// The surface covers case document upload and lookup, fact search, and
// the interview session lifecycle, plus the operational endpoints
// /healthz and /metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/interviewd/internal/factstore"
	"github.com/fyrsmithlabs/interviewd/internal/interview"
)

// PageExtractor extracts per-page text from an uploaded PDF.
type PageExtractor interface {
	PagesFromReader(r io.ReaderAt, size int64) ([]string, error)
}

// CaseExtractor derives a structured case from document text.
type CaseExtractor interface {
	Extract(ctx context.Context, text string) (interview.CaseDocument, error)
}

// FactStore ingests, searches and removes per-case fact indexes.
type FactStore interface {
	IngestPages(ctx context.Context, documentID string, pages []string) (int, error)
	Search(ctx context.Context, documentID, query string, k int) ([]factstore.Chunk, error)
	Remove(documentID string) error
}

// Deps bundles the collaborators the HTTP layer drives.
type Deps struct {
	Pages     PageExtractor
	Extractor CaseExtractor
	Facts     FactStore
	Oracle    interview.Oracle
	Cases     *interview.CaseRegistry
	Sessions  *interview.Registry
}

func (d Deps) validate() error {
	if d.Pages == nil {
		return fmt.Errorf("%w: page extractor is required", ErrInvalidConfig)
	}
	if d.Extractor == nil {
		return fmt.Errorf("%w: case extractor is required", ErrInvalidConfig)
	}
	if d.Facts == nil {
		return fmt.Errorf("%w: fact store is required", ErrInvalidConfig)
	}
	if d.Oracle == nil {
		return fmt.Errorf("%w: oracle is required", ErrInvalidConfig)
	}
	if d.Cases == nil {
		return fmt.Errorf("%w: case registry is required", ErrInvalidConfig)
	}
	if d.Sessions == nil {
		return fmt.Errorf("%w: session registry is required", ErrInvalidConfig)
	}
	return nil
}

// Server provides HTTP endpoints for interviewd.
type Server struct {
	cfg    Config
	echo   *echo.Echo
	deps   Deps
	logger *zap.Logger
}

// New creates the HTTP server and registers all routes.
func New(cfg Config, deps Deps, logger *zap.Logger) (*Server, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(newHTTPMetrics(logger).middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		cfg:    cfg,
		echo:   e,
		deps:   deps,
		logger: logger,
	}
	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/v1")

	v1.POST("/cases", s.handleUploadCase)
	v1.GET("/cases", s.handleListCases)
	v1.GET("/cases/:id", s.handleGetCase)
	v1.DELETE("/cases/:id", s.handleDeleteCase)
	v1.GET("/cases/:id/facts", s.handleSearchFacts)

	v1.POST("/sessions", s.handleCreateSession)
	v1.GET("/sessions", s.handleListSessions)
	v1.GET("/sessions/:id", s.handleGetSession)
	v1.DELETE("/sessions/:id", s.handleDeleteSession)
	v1.POST("/sessions/:id/evaluate", s.handleEvaluate)
	v1.POST("/sessions/:id/next", s.handleNext)
	v1.POST("/sessions/:id/advance", s.handleAdvance)
	v1.POST("/sessions/:id/coach", s.handleCoach)
	v1.POST("/sessions/:id/end", s.handleEnd)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start runs the server and blocks until ctx is cancelled, then shuts
// down gracefully within the configured timeout. It returns nil on
// clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("starting http server", zap.String("addr", s.cfg.Addr()))
		if err := s.echo.Start(s.cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down http server")
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	}
}

// Echo returns the underlying Echo instance for registering additional
// routes in tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
