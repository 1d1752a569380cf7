package retrieval

import (
	"context"
	"time"

	"github.com/ctxatlas/atlas/pkg/config"
	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/graphstore"
	"github.com/ctxatlas/atlas/pkg/scoring"
)

const provenanceEventLimit = 5

// neutralImportance is the importance component fed into decay scoring
// for node kinds that carry no importance_score column (Entity,
// UserProfile, Skill): a structural fact is neither reinforced nor
// penalized by the traffic-derived signal Events and Preferences carry.
const neutralImportance = 5

// Retrieve runs Traverse and assembles the result into the canonical
// Atlas response shape, hydrating node bodies, provenance, and decay
// scores.
func (s *Service) Retrieve(ctx context.Context, req Request) (*domain.AtlasResponse, error) {
	start := time.Now()

	result, err := s.Traverse(ctx, req)
	if err != nil {
		return nil, err
	}

	nodes, edges, err := s.assembleNodesAndEdges(ctx, result.Candidates, result.Edges, result.QueryVector)
	if err != nil {
		return nil, err
	}

	s.access.EnqueueAll(nodes)

	var intentOverride *domain.Intent
	if result.IntentOverride {
		for intent := range result.InferredIntents {
			i := intent
			intentOverride = &i
			break
		}
	}

	return &domain.AtlasResponse{
		Nodes: nodes,
		Edges: edges,
		Meta: domain.Meta{
			QueryMs:             time.Since(start).Milliseconds(),
			NodesReturned:       len(nodes),
			Truncated:           result.Truncated,
			InferredIntents:     result.InferredIntents,
			IntentOverride:      intentOverride,
			SeedNodes:           result.SeedNodeIDs,
			ProactiveNodesCount: result.ProactiveCount,
			ScoringWeights: domain.ScoringWeights{
				Recency:      s.scoringCfg.WeightRecency,
				Importance:   s.scoringCfg.WeightImportance,
				Relevance:    s.scoringCfg.WeightRelevance,
				UserAffinity: s.scoringCfg.WeightUserAffinity,
			},
			Capacity: domain.Capacity{MaxNodes: result.MaxNodes, UsedNodes: len(nodes), MaxDepth: result.MaxDepth},
		},
	}, nil
}

func (s *Service) queryVector(ctx context.Context, query string) []float32 {
	if query == "" || s.embed == nil {
		return nil
	}
	vectors, err := s.embed.Embed(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		return nil
	}
	return vectors[0]
}

// hydrateBodies fetches the full node body for every candidate, grouped
// by kind so each node table is queried once regardless of how many of
// its nodes the traversal reached.
func (s *Service) hydrateBodies(ctx context.Context, byKind map[domain.NodeKind][]string) (map[string]interface{}, error) {
	out := make(map[string]interface{})

	if ids := byKind[domain.NodeKindEvent]; len(ids) > 0 {
		for _, id := range ids {
			ev, err := s.events.GetByID(ctx, id)
			if err != nil {
				continue
			}
			out[id] = ev
		}
	}
	if ids := byKind[domain.NodeKindEntity]; len(ids) > 0 {
		rows, err := s.graph.GetEntitiesByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out[r.EntityID] = r
		}
	}
	if ids := byKind[domain.NodeKindSummary]; len(ids) > 0 {
		rows, err := s.graph.GetSummariesByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out[r.SummaryID] = r
		}
	}
	if ids := byKind[domain.NodeKindUserProfile]; len(ids) > 0 {
		rows, err := s.graph.GetUserProfilesByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out[r.ProfileID] = r
		}
	}
	if ids := byKind[domain.NodeKindPreference]; len(ids) > 0 {
		rows, err := s.graph.GetPreferencesByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out[r.PreferenceID] = r
		}
	}
	if ids := byKind[domain.NodeKindSkill]; len(ids) > 0 {
		rows, err := s.graph.GetSkillsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out[r.SkillID] = r
		}
	}
	if ids := byKind[domain.NodeKindWorkflow]; len(ids) > 0 {
		rows, err := s.graph.GetWorkflowsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out[r.WorkflowID] = r
		}
	}
	if ids := byKind[domain.NodeKindBehavioralPattern]; len(ids) > 0 {
		rows, err := s.graph.GetBehavioralPatternsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out[r.PatternID] = r
		}
	}

	return out, nil
}

func (s *Service) provenanceFor(ctx context.Context, id string, kind domain.NodeKind, body interface{}) ([]domain.Provenance, error) {
	if ev, ok := body.(*domain.EventNode); ok {
		return []domain.Provenance{eventProvenance(ev)}, nil
	}

	eventIDs, err := s.graph.ProvenanceEvents(ctx, id, kind, provenanceEventLimit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Provenance, 0, len(eventIDs))
	for _, eid := range eventIDs {
		ev, err := s.events.GetByID(ctx, eid)
		if err != nil {
			continue
		}
		out = append(out, eventProvenance(ev))
	}
	return out, nil
}

// assembleNodesAndEdges hydrates bodies, provenance, and scores for a
// candidate set and converts graph edge references to the wire shape.
// Shared by Retrieve and Lineage, which differ only in how they produce
// the candidate set.
func (s *Service) assembleNodesAndEdges(ctx context.Context, candidates []Candidate, edgeRefs []graphstore.EdgeRef, queryVector []float32) (map[string]domain.AtlasNode, []domain.AtlasEdge, error) {
	now := time.Now()

	byKind := make(map[domain.NodeKind][]string)
	for _, c := range candidates {
		byKind[c.Kind] = append(byKind[c.Kind], c.ID)
	}

	bodies, err := s.hydrateBodies(ctx, byKind)
	if err != nil {
		return nil, nil, err
	}

	nodes := make(map[string]domain.AtlasNode, len(candidates))
	for _, c := range candidates {
		body, ok := bodies[c.ID]
		if !ok {
			continue
		}
		provenance, err := s.provenanceFor(ctx, c.ID, c.Kind, body)
		if err != nil {
			return nil, nil, err
		}
		in := scoringInputFor(c.Kind, body, queryVector, now)
		scores := domain.Scores{
			Recency:    recencyComponent(s.scoringCfg, in, now),
			Importance: float64(in.ImportanceScore) / 10,
			Relevance:  relevanceComponent(in),
			Composite:  scoring.Score(s.scoringCfg, in, now),
		}
		nodes[c.ID] = domain.AtlasNode{
			ID: c.ID, Type: c.Kind, Attributes: body,
			Provenance: provenance, Scores: scores, RetrievalReason: c.RetrievalReason,
		}
	}

	edges := make([]domain.AtlasEdge, 0, len(edgeRefs))
	for _, e := range edgeRefs {
		edges = append(edges, domain.AtlasEdge{Source: e.From, Target: e.To, Type: e.Type})
	}
	return nodes, edges, nil
}

func eventProvenance(ev *domain.EventNode) domain.Provenance {
	return domain.Provenance{
		EventID:        ev.EventID,
		GlobalPosition: ev.GlobalPosition,
		Source:         ev.EventType,
		OccurredAt:     ev.OccurredAt,
		SessionID:      ev.SessionID,
		AgentID:        ev.AgentID,
		TraceID:        ev.TraceID,
	}
}

// scoringInputFor adapts one node kind's body into the flat Input the
// decay formula scores, using each kind's closest analog to "occurred
// at" and "importance" since only Event and Preference carry those
// literally.
func scoringInputFor(kind domain.NodeKind, body interface{}, queryVector []float32, now time.Time) scoring.Input {
	in := scoring.Input{QueryVector: queryVector}

	switch n := body.(type) {
	case *domain.EventNode:
		in.OccurredAt = n.OccurredAt
		in.LastAccessedAt = n.LastAccessedAt
		in.Accessed = n.AccessCount > 0
		in.ImportanceScore = n.ImportanceScore
		in.Embedding = n.Embedding
	case *domain.EntityNode:
		in.OccurredAt = n.LastSeen
		in.ImportanceScore = neutralImportance
		in.Embedding = n.Embedding
	case *domain.SummaryNode:
		in.OccurredAt = n.TimeRangeEnd
		in.ImportanceScore = neutralImportance
	case *domain.UserProfileNode:
		in.OccurredAt = n.UpdatedAt
		in.ImportanceScore = neutralImportance
	case *domain.PreferenceNode:
		in.OccurredAt = n.LastConfirmedAt
		last := n.LastConfirmedAt
		in.LastAccessedAt = &last
		in.Accessed = n.AccessCount > 0
		in.ImportanceScore = int(n.Confidence * 10)
		in.HalfLifeCategory = scoring.HalfLifeCategoryFor(n.Category)
	case *domain.SkillNode:
		in.OccurredAt = now
		in.ImportanceScore = neutralImportance
	case *domain.WorkflowNode:
		in.OccurredAt = now
		in.ImportanceScore = int(n.SuccessRate * 10)
		in.Embedding = n.Embedding
	case *domain.BehavioralPatternNode:
		in.OccurredAt = n.LastConfirmedAt
		last := n.LastConfirmedAt
		in.LastAccessedAt = &last
		in.Accessed = n.AccessCount > 0
		in.ImportanceScore = int(n.Confidence * 10)
	default:
		in.OccurredAt = now
		in.ImportanceScore = neutralImportance
	}

	return in
}

// recencyComponent and relevanceComponent re-derive the individual
// score terms scoring.Score already folds into its composite, purely so
// the response's per-node score breakdown shows them separately.
func recencyComponent(cfg *config.ScoringConfig, in scoring.Input, now time.Time) float64 {
	withoutOthers := in
	withoutOthers.ImportanceScore = 0
	withoutOthers.QueryVector = nil
	withoutOthers.RetrievalRecurrence = 0
	withoutOthers.EntityOverlap = 0
	isolated := &config.ScoringConfig{
		WeightRecency: 1, EventHalfLife: cfg.EventHalfLife, PreferenceHalfLives: cfg.PreferenceHalfLives,
		DefaultPreferenceHalfLife: cfg.DefaultPreferenceHalfLife, AccessBoost: cfg.AccessBoost,
	}
	return scoring.Score(isolated, withoutOthers, now)
}

func relevanceComponent(in scoring.Input) float64 {
	if len(in.QueryVector) == 0 || len(in.Embedding) == 0 {
		return 0.5
	}
	isolated := &config.ScoringConfig{WeightRelevance: 1}
	return scoring.Score(isolated, scoring.Input{Embedding: in.Embedding, QueryVector: in.QueryVector}, time.Time{})
}
