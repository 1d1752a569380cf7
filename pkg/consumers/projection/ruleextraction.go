package projection

import (
	"context"
	"fmt"
	"strings"

	"github.com/ctxatlas/atlas/pkg/domain"
)

// toolAliasPrefixes maps a tool_name prefix to the entity_type a
// rule-based pass should tag it with when Consumer 2's LLM extraction is
// unavailable. Checked longest-prefix-first; anything unmatched falls
// back to EntityTypeTool.
var toolAliasPrefixes = map[string]domain.EntityType{
	"http_":   domain.EntityTypeService,
	"slack_":  domain.EntityTypeService,
	"github_": domain.EntityTypeService,
	"jira_":   domain.EntityTypeService,
	"sql_":    domain.EntityTypeResource,
	"db_":     domain.EntityTypeResource,
	"s3_":     domain.EntityTypeResource,
}

func classifyToolName(toolName string) domain.EntityType {
	lower := strings.ToLower(toolName)
	for prefix, kind := range toolAliasPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return kind
		}
	}
	return domain.EntityTypeTool
}

// extractRuleBasedEntity implements step 5 of the Projection consumer: a
// resilience fallback for when Consumer 2's LLM extraction is
// unavailable or hasn't run yet. It only looks at tool_name, never the
// decrypted payload, so it stays cheap enough to run inline on every
// event and meet the ≤50ms p50 latency target. confidence is not a field
// on EntityNode (entities are mentions, not graded facts); the
// rule_extraction provenance lives entirely on the REFERENCES edge's
// role, and Consumer 2's later llm_extraction pass simply bumps the same
// entity's mention_count rather than needing to supersede anything.
func (h *Handler) extractRuleBasedEntity(ctx context.Context, ev *domain.EventNode) error {
	if ev.ToolName == nil || strings.TrimSpace(*ev.ToolName) == "" {
		return nil
	}

	entityType := classifyToolName(*ev.ToolName)
	entity := domain.NewEntityNode(*ev.ToolName, entityType, ev.OccurredAt)
	if err := h.graph.MergeEntity(ctx, &entity); err != nil {
		return fmt.Errorf("rule extraction: merge entity: %w", err)
	}
	if err := h.graph.CreateReferences(ctx, domain.ReferencesEdge{
		EventID: ev.EventID, EntityID: entity.EntityID, Role: domain.RoleInstrument,
	}); err != nil {
		return fmt.Errorf("rule extraction: create references: %w", err)
	}
	return nil
}
