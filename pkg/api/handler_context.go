package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/graphstore"
	"github.com/ctxatlas/atlas/pkg/retrieval"
	"github.com/ctxatlas/atlas/pkg/scoring"
)

// getContextHandler handles GET /v1/context/{session_id}.
func (s *Server) getContextHandler(c *gin.Context) {
	resp, err := s.retrieval.AssembleContext(c.Request.Context(), retrieval.ContextRequest{
		SessionID: c.Param("session_id"),
		Query:     c.Query("query"),
		MaxNodes:  intQuery(c, "max_nodes", 0),
	})
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "assemble context", err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// querySubgraphHandler handles POST /v1/query/subgraph.
func (s *Server) querySubgraphHandler(c *gin.Context) {
	var req subgraphQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewError(domain.ErrValidationFailed, "malformed request body", err))
		return
	}
	if req.Query == "" && req.SessionID == "" && len(req.SeedNodes) == 0 {
		writeError(c, domain.NewError(domain.ErrValidationFailed, "at least one of query, session_id, or seed_nodes is required", nil))
		return
	}

	var intentOverride *scoring.Intent
	if req.Intent != "" {
		i := scoring.Intent(req.Intent)
		intentOverride = &i
	}

	var seedOverride []graphstore.SeedRef
	for _, id := range req.SeedNodes {
		seedOverride = append(seedOverride, graphstore.SeedRef{ID: id, Kind: inferSeedKind(id)})
	}

	resp, err := s.retrieval.Retrieve(c.Request.Context(), retrieval.Request{
		Query:          req.Query,
		SessionID:      req.SessionID,
		AgentID:        req.AgentID,
		IntentOverride: intentOverride,
		SeedOverride:   seedOverride,
		MaxDepth:       req.MaxDepth,
		MaxNodes:       req.MaxNodes,
		TimeoutMs:      req.TimeoutMs,
	})
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "query subgraph", err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// getLineageHandler handles GET /v1/nodes/{id}/lineage.
func (s *Server) getLineageHandler(c *gin.Context) {
	var intentOverride *scoring.Intent
	if raw := c.Query("intent"); raw != "" {
		i := scoring.Intent(raw)
		intentOverride = &i
	}

	resp, err := s.retrieval.Lineage(c.Request.Context(), retrieval.LineageRequest{
		NodeID:    c.Param("id"),
		NodeKind:  inferSeedKind(c.Param("id")),
		Intent:    intentOverride,
		MaxDepth:  intQuery(c, "max_depth", 0),
		MaxNodes:  intQuery(c, "max_nodes", 0),
		TimeoutMs: intQuery(c, "timeout_ms", 0),
	})
	if err != nil {
		writeError(c, domain.NewError(domain.ErrUnavailable, "get lineage", err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// inferSeedKind guesses a node's kind from its id's deterministic prefix.
// Entity and Skill ids are content-derived (see domain.EntityID/SkillID)
// and always carry their prefix; every other kind uses a caller-supplied
// or random id with no stable prefix, so anything unrecognized is
// treated as an Event, the overwhelmingly common seed/lineage target.
func inferSeedKind(id string) domain.NodeKind {
	switch {
	case strings.HasPrefix(id, "ent_"):
		return domain.NodeKindEntity
	case strings.HasPrefix(id, "skl_"):
		return domain.NodeKindSkill
	default:
		return domain.NodeKindEvent
	}
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
