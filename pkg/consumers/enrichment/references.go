package enrichment

import (
	"context"
	"fmt"
	"strings"

	"github.com/ctxatlas/atlas/pkg/domain"
)

// minKeywordLenForEntity filters keywords too short or too generic to be
// worth promoting to a concept Entity; the event_type segments already
// passed through ExtractKeywords are typically short category words
// ("tool", "turn") that would otherwise flood the graph with noise
// entities.
const minKeywordLenForEntity = 5

// linkReferencedEntities implements the mention half of REFERENCES: each
// keyword long enough to plausibly be a topic (not a category word) is
// merged as a concept Entity and linked with role=object. Unlike
// Projection's tool_name rule fallback, this is the only path that
// surfaces topical entities from event content rather than structural
// metadata.
func (h *Handler) linkReferencedEntities(ctx context.Context, ev *domain.EventNode, keywords []string) error {
	for _, kw := range keywords {
		if len(kw) < minKeywordLenForEntity {
			continue
		}
		entity := domain.NewEntityNode(kw, domain.EntityTypeConcept, ev.OccurredAt)
		if err := h.graph.MergeEntity(ctx, &entity); err != nil {
			return fmt.Errorf("enrichment: merge concept entity: %w", err)
		}
		if err := h.graph.CreateReferences(ctx, domain.ReferencesEdge{
			EventID: ev.EventID, EntityID: entity.EntityID, Role: domain.RoleObject,
		}); err != nil {
			return fmt.Errorf("enrichment: create references: %w", err)
		}
	}
	return nil
}

// causalMarkers are connector phrases a deterministic pass can use to
// infer causation between consecutive events in a session, without an
// LLM call. Checked as a substring against lowercased content.
var causalMarkers = []string{
	"because", "due to", "as a result of", "triggered by", "caused by", "so that",
}

func containsCausalMarker(content string) bool {
	lower := strings.ToLower(content)
	for _, m := range causalMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// linkInferredCausedBy creates the CAUSED_BY{mechanism: inferred} edge
// this consumer owns: when an event's content carries a causal
// connector, link it back to the immediately preceding event in the
// same session. Direct causation (explicit parent_event_id) is
// Projection's job; this is the weaker, content-driven signal.
func (h *Handler) linkInferredCausedBy(ctx context.Context, ev *domain.EventNode, content string) error {
	if ev.ParentEventID != nil || !containsCausalMarker(content) {
		return nil
	}

	history, err := h.events.GetBySession(ctx, ev.SessionID, 0)
	if err != nil {
		return fmt.Errorf("enrichment: session history for causal inference: %w", err)
	}
	var prev *domain.EventNode
	for _, e := range history {
		if e.EventID == ev.EventID {
			break
		}
		prev = e
	}
	if prev == nil {
		return nil
	}

	if err := h.graph.CreateCausedBy(ctx, domain.CausedByEdge{
		FromEventID: prev.EventID, ToEventID: ev.EventID, Mechanism: domain.MechanismInferred,
	}); err != nil {
		return fmt.Errorf("enrichment: create inferred caused_by: %w", err)
	}
	return nil
}
