package scoring

import (
	"sort"
	"strings"

	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/embedding"
)

// entitySimilarityFloor is the minimum cosine similarity for an
// embedding-matched entity to count as a seed; below this the query
// embedding just isn't about that entity.
const entitySimilarityFloor = 0.6

// MatchEntitiesByName keeps entities whose name appears in the query,
// case-insensitively — the fast keyword half of seed entity matching.
func MatchEntitiesByName(query string, candidates []*domain.EntityNode) []*domain.EntityNode {
	lower := strings.ToLower(query)
	var out []*domain.EntityNode
	for _, e := range candidates {
		if strings.Contains(lower, strings.ToLower(e.Name)) {
			out = append(out, e)
		}
	}
	return out
}

// MatchEntitiesByEmbedding ranks the embedded entity inventory by
// cosine similarity to the query embedding, keeping matches above
// entitySimilarityFloor — the slower semantic half of seed entity
// matching, for names the query never states verbatim.
func MatchEntitiesByEmbedding(queryVector []float32, pool []*domain.EntityNode, topK int) []*domain.EntityNode {
	if len(queryVector) == 0 {
		return nil
	}
	type scored struct {
		entity *domain.EntityNode
		score  float64
	}
	var ranked []scored
	for _, e := range pool {
		sim := embedding.CosineSimilarity(e.Embedding, queryVector)
		if sim >= entitySimilarityFloor {
			ranked = append(ranked, scored{e, sim})
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	out := make([]*domain.EntityNode, len(ranked))
	for i, r := range ranked {
		out[i] = r.entity
	}
	return out
}

// DedupeEntitySeeds merges the keyword and embedding match sets,
// keeping each entity once.
func DedupeEntitySeeds(sets ...[]*domain.EntityNode) []*domain.EntityNode {
	seen := make(map[string]bool)
	var out []*domain.EntityNode
	for _, set := range sets {
		for _, e := range set {
			if !seen[e.EntityID] {
				seen[e.EntityID] = true
				out = append(out, e)
			}
		}
	}
	return out
}
