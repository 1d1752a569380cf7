package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// healthHandler handles GET /v1/health: a minimal liveness check safe
// for unauthenticated, high-frequency polling. It reports the process is
// up without touching any backing store.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: healthStatusHealthy})
}

// detailedHealthHandler handles GET /v1/health/detailed: liveness plus a
// cheap read against each backing store, composed into one overall
// status. Any single check failing degrades the overall status rather
// than failing the whole request, so an operator can see which
// dependency is down.
func (s *Server) detailedHealthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	if _, err := s.events.StreamLength(reqCtx); err != nil {
		status = healthStatusUnhealthy
		checks["event_store"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
	} else {
		checks["event_store"] = HealthCheck{Status: healthStatusHealthy}
	}

	if _, err := s.graph.CountNodesByKind(reqCtx); err != nil {
		if status == healthStatusHealthy {
			status = healthStatusDegraded
		}
		checks["graph_store"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
	} else {
		checks["graph_store"] = HealthCheck{Status: healthStatusHealthy}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, HealthResponse{Status: status, Checks: checks})
}
