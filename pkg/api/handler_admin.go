package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ctxatlas/atlas/pkg/domain"
)

// forceReconsolidateHandler handles POST /v1/admin/reconsolidate.
func (s *Server) forceReconsolidateHandler(c *gin.Context) {
	if err := s.admin.ForceReconsolidate(c.Request.Context()); err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "force reconsolidate", err))
		return
	}
	c.JSON(http.StatusAccepted, reconsolidateResponse{Status: "completed"})
}

// forcePruneHandler handles POST /v1/admin/prune. ?dry_run=true reports
// what a prune would remove without removing it.
func (s *Server) forcePruneHandler(c *gin.Context) {
	dryRun := c.Query("dry_run") == "true"

	report, err := s.admin.ForcePrune(c.Request.Context(), dryRun)
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "force prune", err))
		return
	}
	c.JSON(http.StatusOK, report)
}

// adminStatsHandler handles GET /v1/admin/stats.
func (s *Server) adminStatsHandler(c *gin.Context) {
	ctx := c.Request.Context()

	streamLen, err := s.events.StreamLength(ctx)
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "admin stats: stream length", err))
		return
	}
	cursor, err := s.events.LastPosition(ctx)
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "admin stats: last position", err))
		return
	}
	nodeCounts, err := s.graph.CountNodesByKind(ctx)
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "admin stats: node counts", err))
		return
	}

	counts := make(map[string]int64, len(nodeCounts))
	for kind, n := range nodeCounts {
		counts[string(kind)] = int64(n)
	}

	c.JSON(http.StatusOK, statsResponse{
		EventStreamLength: streamLen,
		EventStreamCursor: cursor,
		GraphNodeCounts:   counts,
	})
}
