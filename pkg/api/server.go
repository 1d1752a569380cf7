// Package api provides the HTTP surface collaborating agents and
// operators use to read and write the context graph.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ctxatlas/atlas/pkg/config"
	"github.com/ctxatlas/atlas/pkg/consumers/consolidation"
	"github.com/ctxatlas/atlas/pkg/eventstore"
	"github.com/ctxatlas/atlas/pkg/graphstore"
	"github.com/ctxatlas/atlas/pkg/payloadstore"
	"github.com/ctxatlas/atlas/pkg/retrieval"
)

// Server is the HTTP API server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	cfg        *config.Config

	events    *eventstore.Store
	graph     *graphstore.Store
	retrieval *retrieval.Service
	payloads  *payloadstore.Store // nil until set (GDPR erasure needs it)
	admin     *consolidation.Handler // nil until set (force-reconsolidate/prune endpoints)
}

// NewServer creates a new API server wired to the stores and retrieval
// service every request handler needs. The admin and payload-store
// dependencies are optional and wired separately via Set* methods,
// since a deployment may run the API without the consolidation pass or
// without payload storage configured.
func NewServer(cfg *config.Config, events *eventstore.Store, graph *graphstore.Store, ret *retrieval.Service) *Server {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery())

	s := &Server{
		engine:    e,
		cfg:       cfg,
		events:    events,
		graph:     graph,
		retrieval: ret,
	}

	s.setupRoutes()
	return s
}

// SetPayloadStore wires the forgettable payload store, required for GDPR
// erasure to crypto-shred a user's stored payloads alongside their graph
// data.
func (s *Server) SetPayloadStore(p *payloadstore.Store) {
	s.payloads = p
}

// SetAdmin wires the consolidation handler, required for the force
// reconsolidate/prune admin endpoints.
func (s *Server) SetAdmin(h *consolidation.Handler) {
	s.admin = h
}

// ValidateWiring checks that every optional service a route handler
// depends on has been wired via its Set* method. Call after all Set*
// calls and before Start/StartWithListener, so a missing wire surfaces
// at startup instead of as a 500 on first request.
func (s *Server) ValidateWiring() error {
	var errs []error
	if s.payloads == nil {
		errs = append(errs, fmt.Errorf("payloadstore not set (call SetPayloadStore)"))
	}
	if s.admin == nil {
		errs = append(errs, fmt.Errorf("consolidation handler not set (call SetAdmin)"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("server wiring incomplete: %w", errors.Join(errs...))
	}
	return nil
}

// setupRoutes registers every route under /v1 plus the unauthenticated
// health endpoints.
func (s *Server) setupRoutes() {
	s.engine.Use(securityHeaders())
	s.engine.MaxMultipartMemory = 2 << 20 // 2 MiB

	s.engine.GET("/v1/health", s.healthHandler)
	s.engine.GET("/v1/health/detailed", s.detailedHealthHandler)

	v1 := s.engine.Group("/v1")
	v1.POST("/events", s.appendEventHandler)
	v1.POST("/events/batch", s.appendEventBatchHandler)

	v1.GET("/context/:session_id", s.getContextHandler)
	v1.POST("/query/subgraph", s.querySubgraphHandler)
	v1.GET("/nodes/:id/lineage", s.getLineageHandler)

	v1.GET("/entities/:entity_id", s.getEntityHandler)

	// Static personalization-view paths must precede the data route so
	// /data isn't shadowed by a wildcard this router doesn't even have,
	// kept explicit for readability.
	v1.GET("/users/:user_id/profile", s.getUserProfileHandler)
	v1.GET("/users/:user_id/preferences", s.getUserPreferencesHandler)
	v1.GET("/users/:user_id/skills", s.getUserSkillsHandler)
	v1.GET("/users/:user_id/patterns", s.getUserPatternsHandler)
	v1.GET("/users/:user_id/interests", s.getUserInterestsHandler)
	v1.GET("/users/:user_id/data", s.exportUserDataHandler)
	v1.DELETE("/users/:user_id/data", s.eraseUserDataHandler)

	v1.POST("/admin/reconsolidate", s.forceReconsolidateHandler)
	v1.POST("/admin/prune", s.forcePruneHandler)
	v1.GET("/admin/stats", s.adminStatsHandler)
}

// Start starts the HTTP server on the given address (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener.
// Used by test infrastructure to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
