package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/embedding"
)

// relatedToThreshold is the cosine-similarity floor for tier-3 "family/
// version similarity" RELATED_TO edges. The exact cutoff is left
// unspecified beyond "lower than tier 2"; this implementation uses a
// fixed band below EntityResolutionThreshold rather than a second
// configured value, since no part of the corpus motivates a separate
// knob for it.
const relatedToThreshold = 0.75

// resolveEntity implements three-tier entity resolution for one
// extracted entity mention. Tier 1 is
// always applied (MergeEntity's deterministic id makes repeated exact
// mentions merge automatically); tiers 2 and 3 only ever add SAME_AS or
// RELATED_TO edges to a different entity_id — they never merge two
// distinct ids into one.
func (h *Handler) resolveEntity(ctx context.Context, name string, entityType domain.EntityType, now time.Time) (*domain.EntityNode, error) {
	entity := domain.NewEntityNode(name, entityType, now)
	vectors, err := h.embed.Embed(ctx, []string{domain.NormalizeEntityName(name)})
	if err != nil {
		return nil, fmt.Errorf("extraction: embed entity %q: %w", name, err)
	}
	entity.Embedding = vectors[0]

	if err := h.graph.MergeEntity(ctx, &entity); err != nil {
		return nil, fmt.Errorf("extraction: merge entity: %w", err)
	}

	candidates, err := h.graph.CandidateEntitiesByType(ctx, entityType, entityCandidatePoolSize)
	if err != nil {
		return nil, fmt.Errorf("extraction: candidate entities: %w", err)
	}

	for _, candidate := range candidates {
		if candidate.EntityID == entity.EntityID {
			continue
		}
		sim := embedding.CosineSimilarity(entity.Embedding, candidate.Embedding)
		switch {
		case sim > h.embCfg.EntityResolutionThreshold:
			if err := h.graph.CreateSameAs(ctx, domain.SameAsEdge{
				FromEntityID: entity.EntityID, ToEntityID: candidate.EntityID, Confidence: sim,
			}); err != nil {
				return nil, fmt.Errorf("extraction: create same_as: %w", err)
			}
		case sim > relatedToThreshold:
			if err := h.graph.CreateRelatedTo(ctx, domain.RelatedToEdge{
				FromEntityID: entity.EntityID, ToEntityID: candidate.EntityID, Confidence: sim,
			}); err != nil {
				return nil, fmt.Errorf("extraction: create related_to: %w", err)
			}
		}
	}

	return &entity, nil
}

// entityCandidatePoolSize bounds the top-K neighborhood tier-2/3
// resolution compares a new mention against.
const entityCandidatePoolSize = 25
