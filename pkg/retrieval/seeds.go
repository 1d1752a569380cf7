package retrieval

import (
	"context"

	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/graphstore"
	"github.com/ctxatlas/atlas/pkg/scoring"
)

const (
	nameMatchLimit      = 20
	embeddingPoolLimit  = 500
	embeddingSeedTopK   = 10
	sessionEventSeedCap = 10
)

// SelectSeeds picks the nodes a traversal starts from: an explicit
// override always wins; otherwise entities matched in the query by
// name and by embedding similarity, plus the session's own recent
// events so a context-free query still anchors on what's already in
// flight.
func (s *Service) SelectSeeds(ctx context.Context, req Request) ([]graphstore.SeedRef, error) {
	if len(req.SeedOverride) > 0 {
		return req.SeedOverride, nil
	}

	var seeds []graphstore.SeedRef

	if req.Query != "" {
		entitySeeds, err := s.matchEntitySeeds(ctx, req.Query)
		if err != nil {
			return nil, err
		}
		for _, e := range entitySeeds {
			seeds = append(seeds, graphstore.SeedRef{ID: e.EntityID, Kind: domain.NodeKindEntity})
		}
	}

	if req.SessionID != "" {
		events, err := s.events.GetBySession(ctx, req.SessionID, sessionEventSeedCap)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			seeds = append(seeds, graphstore.SeedRef{ID: ev.EventID, Kind: domain.NodeKindEvent})
		}
	}

	return dedupeSeedRefs(seeds), nil
}

func (s *Service) matchEntitySeeds(ctx context.Context, query string) ([]*domain.EntityNode, error) {
	named, err := s.graph.SearchEntitiesByName(ctx, query, nameMatchLimit)
	if err != nil {
		return nil, err
	}
	nameMatches := scoring.MatchEntitiesByName(query, named)

	var embeddingMatches []*domain.EntityNode
	if s.embed != nil {
		vectors, err := s.embed.Embed(ctx, []string{query})
		if err == nil && len(vectors) == 1 {
			pool, err := s.graph.AllEntitiesWithEmbedding(ctx, embeddingPoolLimit)
			if err == nil {
				embeddingMatches = scoring.MatchEntitiesByEmbedding(vectors[0], pool, embeddingSeedTopK)
			}
		}
	}

	return scoring.DedupeEntitySeeds(nameMatches, embeddingMatches), nil
}

func dedupeSeedRefs(seeds []graphstore.SeedRef) []graphstore.SeedRef {
	seen := make(map[string]bool, len(seeds))
	out := make([]graphstore.SeedRef, 0, len(seeds))
	for _, sd := range seeds {
		if seen[sd.ID] {
			continue
		}
		seen[sd.ID] = true
		out = append(out, sd)
	}
	return out
}
