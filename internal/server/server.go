package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/matthieukhl/bakehouse/internal/backfill"
	"github.com/matthieukhl/bakehouse/internal/integrity"
	"github.com/matthieukhl/bakehouse/internal/lock"
	"github.com/matthieukhl/bakehouse/internal/logger"
	"github.com/matthieukhl/bakehouse/internal/metrics"
	"github.com/matthieukhl/bakehouse/internal/types"
)

const version = "0.1.0"

// Options wires the server to the jobs it exposes.
type Options struct {
	Store   types.Store
	Checker *integrity.Checker
	// NewTimeSlotJob builds a fresh job for each request.
	NewTimeSlotJob func(dryRun bool) *backfill.TimeSlotJob
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
}

type Server struct {
	router *gin.Engine
	opts   Options
}

// NewServer creates a new server instance
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(logger.Recovery(opts.Logger), logger.GinMiddleware(opts.Logger))

	server := &Server{
		router: router,
		opts:   opts,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)
		api.GET("/integrity", s.checkIntegrity)
		api.POST("/backfill/timeslots", s.fixTimeSlots)
	}

	if s.opts.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.opts.Metrics.Handler()))
	}
}

// Handler exposes the router for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.router
}

// healthCheck endpoint for monitoring
func (s *Server) healthCheck(c *gin.Context) {
	if err := s.opts.Store.Ping(c.Request.Context()); err != nil {
		logger.FromGin(c).Warn("store ping failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"error":  "store unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "bakehouse",
		"version": version,
	})
}

// checkIntegrity runs the validator and answers 409 when the check fails.
func (s *Server) checkIntegrity(c *gin.Context) {
	report, err := s.opts.Checker.Run(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusOK
	if !report.Passed() {
		status = http.StatusConflict
	}
	c.JSON(status, report.Document())
}

// fixTimeSlots runs the backfill synchronously under the run lock.
func (s *Server) fixTimeSlots(c *gin.Context) {
	dryRun := false
	if v := c.Query("dryRun"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dryRun must be a boolean"})
			return
		}
		dryRun = parsed
	}

	job := s.opts.NewTimeSlotJob(dryRun)
	job.Logger = logger.FromGin(c)

	result, err := job.Run(c.Request.Context())
	switch {
	case errors.Is(err, lock.ErrLocked):
		c.JSON(http.StatusLocked, gin.H{"error": "a timeslot backfill is already running"})
	case err != nil:
		_ = c.Error(err)
		var partial *backfill.PartialCommitError
		if errors.As(err, &partial) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "result": result})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, result)
	}
}

// Start starts the HTTP server and stops it when ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return srv.Shutdown(context.WithoutCancel(ctx))
	}
}
