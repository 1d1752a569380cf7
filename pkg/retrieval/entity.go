package retrieval

import (
	"context"
	"time"

	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/graphstore"
)

// EntityContext fetches one Entity and its immediate neighborhood: every
// node reachable in one hop, regardless of edge type, so a caller gets
// the entity plus the events/nodes that mention or relate to it. It
// follows the same bounded-traversal shape as Lineage but with no
// intent bias — every edge type carries equal weight.
func (s *Service) EntityContext(ctx context.Context, entityID string, maxDepth, maxNodes int) (*domain.AtlasResponse, error) {
	start := time.Now()

	if maxDepth <= 0 {
		maxDepth = 1
	}
	if maxDepth > s.intentCfg.DefaultMaxDepthCap {
		maxDepth = s.intentCfg.DefaultMaxDepthCap
	}
	if maxNodes <= 0 {
		maxNodes = s.graphCfg.MaxTraversalNodes
	}

	ctx, cancel := context.WithTimeout(ctx, s.graphCfg.DefaultTraversalTimeout)
	defer cancel()

	seeds := []graphstore.SeedRef{{ID: entityID, Kind: domain.NodeKindEntity}}
	sub, err := s.graph.GetSubgraph(ctx, seeds, nil, maxDepth, maxNodes)
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
			if id == entityID {
				reason = domain.ReasonSeed
			}
			candidates = append(candidates, Candidate{ID: id, Kind: kind, CombinedScore: 1.0, RetrievalReason: reason})
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
			QueryMs:       time.Since(start).Milliseconds(),
			NodesReturned: len(nodes),
			Truncated:     truncated,
			SeedNodes:     []string{entityID},
			Capacity:      domain.Capacity{MaxNodes: maxNodes, UsedNodes: len(nodes), MaxDepth: maxDepth},
		},
	}, nil
}
