// Package statusapi exposes a read-only JSON status surface over a running
// search, built the same way the teacher's network.go builds NewNetwork:
// gin.New(), a bound *http.Server with read/write timeouts, and a
// context-driven Shutdown. Where the teacher shuttles Raft messages
// between cluster nodes, this server reports search progress instead.
package statusapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anjanaperera/premosa-go/internal/goalmanager"
	"github.com/anjanaperera/premosa-go/internal/telemetry"
)

// Server is the gin-based status/metrics HTTP surface (SPEC_FULL.md
// AMBIENT STACK: "GET /status, GET /archive, GET /goals").
type Server struct {
	port    int
	ctx     context.Context
	server  *http.Server
	logger  *telemetry.Logger
	metrics *telemetry.Metrics

	lock sync.RWMutex
	gm   *goalmanager.GoalManager
}

// New constructs a Server, mirroring the teacher's NewNetwork shape
// exactly: gin.SetMode(gin.ReleaseMode), gin.New(), route registration,
// then an *http.Server with 5s read/write timeouts.
func New(ctx context.Context, port int, logger *telemetry.Logger, metrics *telemetry.Metrics) *Server {
	s := &Server{
		port:    port,
		ctx:     ctx,
		logger:  logger,
		metrics: metrics,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.GET("/status", s.handleStatus)
	r.GET("/archive", s.handleArchive)
	r.GET("/goals", s.handleGoals)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	s.server = &http.Server{
		Addr:         fmt.Sprintf("localhost:%d", port),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	s.logger.With(telemetry.Fields{"port": port}).Debug("created status api server")

	return s
}

// Attach swaps in the goal manager the server reports on, called once the
// search driver has built it.
func (s *Server) Attach(gm *goalmanager.GoalManager) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.gm = gm
}

func (s *Server) snapshot() *goalmanager.GoalManager {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.gm
}

func (s *Server) handleStatus(c *gin.Context) {
	gm := s.snapshot()
	if gm == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search not yet started"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"covered":       len(gm.Covered()),
		"uncovered":     len(gm.Uncovered()),
		"current":       len(gm.Current()),
		"trigger_fired": gm.TriggerFired(),
		"archived_statements": gm.Archive().StatementCount(),
		"finished":      gm.Archive().IsFinished(),
	})
}

func (s *Server) handleArchive(c *gin.Context) {
	gm := s.snapshot()
	if gm == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search not yet started"})
		return
	}
	tests := gm.Archive().Tests()
	ids := make([]string, 0, len(tests))
	for _, t := range tests {
		ids = append(ids, t.ID())
	}
	c.JSON(http.StatusOK, gin.H{"tests": ids})
}

func (s *Server) handleGoals(c *gin.Context) {
	gm := s.snapshot()
	if gm == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search not yet started"})
		return
	}
	coveredNames := make([]string, 0)
	for _, t := range gm.Covered() {
		coveredNames = append(coveredNames, t.String())
	}
	uncoveredNames := make([]string, 0)
	for _, t := range gm.Uncovered() {
		uncoveredNames = append(uncoveredNames, t.String())
	}
	currentNames := make([]string, 0)
	for _, t := range gm.Current() {
		currentNames = append(currentNames, t.String())
	}

	c.JSON(http.StatusOK, gin.H{
		"covered":   coveredNames,
		"uncovered": uncoveredNames,
		"current":   currentNames,
	})
}

// Start runs the server in the background and tears it down when ctx is
// cancelled, exactly matching the teacher's Network.Start/Shutdown pair.
func (s *Server) Start() {
	s.logger.Debug("starting status api")
	go func() {
		s.server.ListenAndServe()
	}()

	go func() {
		<-s.ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()
}

// Shutdown gracefully stops the server, waiting up to 2s for in-flight
// requests. It does nothing when ctx is already cancelled, since Start's
// goroutine shuts the server down in that case.
func (s *Server) Shutdown() {
	select {
	case <-s.ctx.Done():
		return
	default:
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.server.Shutdown(ctx)
}
