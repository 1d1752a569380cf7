package retrieval

import (
	"context"
	"sort"
	"time"

	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/scoring"
)

// ContextRequest is one working-memory assembly call: the session to
// pull from, an optional query to score relevance against, and a node
// budget.
type ContextRequest struct {
	SessionID string
	Query     string
	MaxNodes  int
}

type scoredEvent struct {
	event *domain.EventNode
	score float64
}

// AssembleContext implements the working-memory (context) retrieval
// path: fetch every event in a session, decay-score each against the
// optional query, and return the top max_nodes, chunked into episodes
// by trace_id.
func (s *Service) AssembleContext(ctx context.Context, req ContextRequest) (*domain.AtlasResponse, error) {
	start := time.Now()

	maxNodes := req.MaxNodes
	if maxNodes <= 0 {
		maxNodes = s.graphCfg.MaxTraversalNodes
	}

	events, err := s.events.GetBySession(ctx, req.SessionID, 0)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		empty := domain.EmptyAtlasResponse()
		empty.Meta.QueryMs = time.Since(start).Milliseconds()
		return &empty, nil
	}

	now := time.Now()
	queryVector := s.queryVector(ctx, req.Query)

	scored := make([]scoredEvent, len(events))
	for i, ev := range events {
		in := scoring.Input{
			OccurredAt:      ev.OccurredAt,
			LastAccessedAt:  ev.LastAccessedAt,
			Accessed:        ev.AccessCount > 0,
			ImportanceScore: ev.ImportanceScore,
			Embedding:       ev.Embedding,
			QueryVector:     queryVector,
		}
		scored[i] = scoredEvent{event: ev, score: scoring.Score(s.scoringCfg, in, now)}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	truncated := len(scored) > maxNodes
	if truncated {
		scored = scored[:maxNodes]
	}

	nodes := make(map[string]domain.AtlasNode, len(scored))
	byTrace := make(map[string][]string)
	var traceOrder []string
	for _, se := range scored {
		ev := se.event
		nodes[ev.EventID] = domain.AtlasNode{
			ID:         ev.EventID,
			Type:       domain.NodeKindEvent,
			Attributes: ev,
			Provenance: []domain.Provenance{eventProvenance(ev)},
			Scores: domain.Scores{
				Recency:    recencyComponent(s.scoringCfg, scoring.Input{OccurredAt: ev.OccurredAt, LastAccessedAt: ev.LastAccessedAt, Accessed: ev.AccessCount > 0}, now),
				Importance: float64(ev.ImportanceScore) / 10,
				Relevance:  relevanceComponent(scoring.Input{Embedding: ev.Embedding, QueryVector: queryVector}),
				Composite:  se.score,
			},
			RetrievalReason: domain.ReasonSeed,
		}
		if _, ok := byTrace[ev.TraceID]; !ok {
			traceOrder = append(traceOrder, ev.TraceID)
		}
		byTrace[ev.TraceID] = append(byTrace[ev.TraceID], ev.EventID)
	}

	episodes := make([]domain.Episode, 0, len(traceOrder))
	for _, traceID := range traceOrder {
		ids := byTrace[traceID]
		var timeStart, timeEnd time.Time
		for _, id := range ids {
			occ := nodes[id].Attributes.(*domain.EventNode).OccurredAt
			if timeStart.IsZero() || occ.Before(timeStart) {
				timeStart = occ
			}
			if occ.After(timeEnd) {
				timeEnd = occ
			}
		}
		summary := ""
		if sm, found, err := s.graph.FindSummaryByScope(ctx, domain.SummaryScopeEpisode, traceID); err == nil && found {
			summary = sm.Content
		}
		episodes = append(episodes, domain.Episode{
			TraceID: traceID, NodeIDs: ids, Summary: summary,
			TimeStart: timeStart, TimeEnd: timeEnd,
		})
	}

	s.access.EnqueueAll(nodes)

	return &domain.AtlasResponse{
		Nodes:    nodes,
		Edges:    []domain.AtlasEdge{},
		Episodes: episodes,
		Meta: domain.Meta{
			QueryMs:       time.Since(start).Milliseconds(),
			NodesReturned: len(nodes),
			Truncated:     truncated,
			SeedNodes:     []string{},
			ScoringWeights: domain.ScoringWeights{
				Recency:      s.scoringCfg.WeightRecency,
				Importance:   s.scoringCfg.WeightImportance,
				Relevance:    s.scoringCfg.WeightRelevance,
				UserAffinity: s.scoringCfg.WeightUserAffinity,
			},
			Capacity: domain.Capacity{MaxNodes: maxNodes, UsedNodes: len(nodes)},
		},
	}, nil
}
