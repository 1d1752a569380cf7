package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ctxatlas/atlas/pkg/domain"
)

// getEntityHandler handles GET /v1/entities/{entity_id}: the entity
// itself plus every node one hop away, regardless of edge type.
func (s *Server) getEntityHandler(c *gin.Context) {
	entityID := c.Param("entity_id")

	if _, found, err := s.graph.GetEntityByID(c.Request.Context(), entityID); err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "get entity", err))
		return
	} else if !found {
		writeError(c, domain.NewError(domain.ErrNotFound, "entity not found", nil))
		return
	}

	resp, err := s.retrieval.EntityContext(c.Request.Context(), entityID,
		intQuery(c, "max_depth", 0), intQuery(c, "max_nodes", 0))
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "get entity context", err))
		return
	}
	c.JSON(http.StatusOK, resp)
}
