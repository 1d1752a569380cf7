package enrichment

import (
	"context"
	"fmt"

	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/embedding"
)

// candidatePoolSize bounds how many prior events a new event is
// compared against, in each of the same-session and cross-session
// pools.
const candidatePoolSize = 30

// linkSimilarEvents implements the "for each pair (new event, candidate
// recent event in the same session and nearby sessions)" step: compare
// against a same-session pool (captures topic continuity within one
// conversation) and a cross-session pool (captures recurring topics
// across conversations), creating a SIMILAR_TO edge wherever cosine
// similarity clears the configured threshold.
func (h *Handler) linkSimilarEvents(ctx context.Context, ev *domain.EventNode) error {
	sameSession, err := h.events.RecentWithEmbedding(ctx, ev.SessionID, ev.OccurredAt, candidatePoolSize)
	if err != nil {
		return fmt.Errorf("enrichment: same-session candidates: %w", err)
	}
	crossSession, err := h.events.RecentWithEmbedding(ctx, "", ev.OccurredAt, candidatePoolSize)
	if err != nil {
		return fmt.Errorf("enrichment: cross-session candidates: %w", err)
	}

	seen := make(map[string]bool, len(sameSession)+len(crossSession))
	for _, candidate := range append(sameSession, crossSession...) {
		if candidate.EventID == ev.EventID || seen[candidate.EventID] {
			continue
		}
		seen[candidate.EventID] = true

		score := embedding.CosineSimilarity(ev.Embedding, candidate.Embedding)
		if score <= h.embCfg.SimilarityThreshold {
			continue
		}
		if err := h.graph.CreateSimilarTo(ctx, domain.SimilarToEdge{
			FromEventID: ev.EventID, ToEventID: candidate.EventID, Score: score,
		}); err != nil {
			return fmt.Errorf("enrichment: create similar_to: %w", err)
		}
	}
	return nil
}
