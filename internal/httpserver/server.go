// Package httpserver exposes the triage service over HTTP: run submission,
// per-run SSE progress streams, ticket lookup, and operational endpoints.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"email-triage/internal/common/config"
	"email-triage/internal/common/logger"
	"email-triage/internal/events"
	"email-triage/internal/store"
	"email-triage/internal/triage"
)

// defaultHeartbeat keeps idle SSE streams alive when no interval is configured.
const defaultHeartbeat = 30 * time.Second

// Pinger reports storage liveness for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the HTTP surface and its collaborators.
type Server struct {
	engine    *gin.Engine
	pipeline  *triage.Pipeline
	registry  *events.Registry
	tickets   *store.TicketStore
	db        Pinger
	logger    logger.Logger
	heartbeat time.Duration
}

func NewServer(
	cfg *config.Config,
	pipeline *triage.Pipeline,
	registry *events.Registry,
	tickets *store.TicketStore,
	db Pinger,
	log logger.Logger,
) *Server {
	if cfg.Logging.Format == "json" {
		gin.SetMode(gin.ReleaseMode)
	}

	// A zero interval would make the stream loop spin on time.After(0).
	heartbeat := time.Duration(cfg.Triage.HeartbeatInterval) * time.Second
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	s := &Server{
		engine:    gin.New(),
		pipeline:  pipeline,
		registry:  registry,
		tickets:   tickets,
		db:        db,
		logger:    log.WithFields(map[string]interface{}{"component": "http"}),
		heartbeat: heartbeat,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.Use(gin.Recovery(), s.requestLogger())

	api := s.engine.Group("/api")
	api.POST("/runs", s.startRun)
	api.GET("/runs/:run_id/events", s.streamRun)
	api.GET("/tickets/:ticket_id", s.getTicket)

	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/readyz", s.readyz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the listener and blocks until ctx is cancelled or the listener
// fails. Shutdown drains in-flight requests but not open SSE streams; those
// end when their run finishes or the client disconnects.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", map[string]interface{}{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
