package retrieval

import (
	"context"
	"time"

	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/graphstore"
	"github.com/ctxatlas/atlas/pkg/scoring"
)

// LineageRequest asks for the causal chain around one node: what led to
// it and, under broader intents, what followed or referenced it.
type LineageRequest struct {
	NodeID   string
	NodeKind domain.NodeKind
	Intent   *scoring.Intent // nil defaults to "why" (CAUSED_BY-biased)

	MaxDepth  int
	MaxNodes  int
	TimeoutMs int
}

// Lineage runs a bounded, CAUSED_BY-biased traversal from one node,
// defaulting to the "why" intent's edge weights so FOLLOWS/REFERENCES
// still participate at low priority without dominating the causal
// chain. Depth, node count, and wall time are all bounded; any of them
// tripping reports truncated: true rather than erroring.
func (s *Service) Lineage(ctx context.Context, req LineageRequest) (*domain.AtlasResponse, error) {
	start := time.Now()

	timeout := s.graphCfg.DefaultTraversalTimeout
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	intent := scoring.IntentWhy
	if req.Intent != nil {
		intent = *req.Intent
	}

	maxDepth := req.MaxDepth
	if maxDepth <= 0 {
		maxDepth = s.intentCfg.DefaultMaxDepth
	}
	if maxDepth > s.intentCfg.DefaultMaxDepthCap {
		maxDepth = s.intentCfg.DefaultMaxDepthCap
	}
	maxNodes := req.MaxNodes
	if maxNodes <= 0 {
		maxNodes = s.graphCfg.MaxTraversalNodes
	}

	weights := scoring.WeightsForIntent(s.intentCfg.EdgeWeightOverrides, intent)
	seeds := []graphstore.SeedRef{{ID: req.NodeID, Kind: req.NodeKind}}
	sub, err := s.graph.GetSubgraph(ctx, seeds, weights, maxDepth, maxNodes)
	truncated := ctx.Err() != nil
	if err != nil {
		if !truncated {
			return nil, err
		}
		sub = &graphstore.SubgraphResult{}
	}

	candidates := make([]Candidate, 0)
	for kind, ids := range sub.NodeIDs {
		for _, id := range ids {
			reason := domain.ReasonTraversal
			if id == req.NodeID {
				reason = domain.ReasonSeed
			}
			candidates = append(candidates, Candidate{
				ID: id, Kind: kind, CombinedScore: 1.0,
				MatchedIntents:  map[scoring.Intent]float64{intent: 1.0},
				RetrievalReason: reason,
			})
		}
	}
	if len(candidates) > maxNodes {
		candidates = candidates[:maxNodes]
		truncated = true
	}

	nodes, edges, err := s.assembleNodesAndEdges(ctx, candidates, sub.Edges, nil)
	if err != nil {
		return nil, err
	}
	s.access.EnqueueAll(nodes)

	return &domain.AtlasResponse{
		Nodes: nodes,
		Edges: edges,
		Meta: domain.Meta{
			QueryMs:         time.Since(start).Milliseconds(),
			NodesReturned:   len(nodes),
			Truncated:       truncated,
			InferredIntents: map[domain.Intent]float64{intent: 1.0},
			IntentOverride:  &intent,
			SeedNodes:       []string{req.NodeID},
			Capacity:        domain.Capacity{MaxNodes: maxNodes, UsedNodes: len(nodes), MaxDepth: maxDepth},
		},
	}, nil
}
