package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/llm"
)

func sessionUserEntityName(sessionID string) string {
	return "user:" + sessionID
}

// ensureUserEntity merges the session-scoped user Entity (see the
// package doc comment for why session_id, not a separate user_id, is
// the identity key here) and returns it.
func (h *Handler) ensureUserEntity(ctx context.Context, sessionID string, now time.Time) (*domain.EntityNode, error) {
	user := domain.NewEntityNode(sessionUserEntityName(sessionID), domain.EntityTypeUser, now)
	if err := h.graph.MergeEntity(ctx, &user); err != nil {
		return nil, fmt.Errorf("extraction: merge user entity: %w", err)
	}
	return &user, nil
}

func derivedFromEvidence(sourceID string, sourceKind domain.NodeKind, eventID string, modelUsed, promptVersion, quote string, turnIndex *int) domain.DerivedFromEdge {
	model := modelUsed
	prompt := promptVersion
	evidence := quote
	return domain.DerivedFromEdge{
		SourceNodeID:     sourceID,
		SourceKind:       sourceKind,
		EventID:          eventID,
		DerivationMethod: domain.DerivationLLMExtraction,
		DerivedAt:        time.Now(),
		ModelID:          &model,
		PromptVersion:    &prompt,
		EvidenceQuote:    &evidence,
		SourceTurnIndex:  turnIndex,
	}
}

// writePreference implements the write phase plus conflict resolution
// for one validated, confidence-gated preference: reinforce an active
// preference confirming the same
// (key, category, scope), supersede one that contradicts it (opposite
// polarity), or insert fresh.
func (h *Handler) writePreference(ctx context.Context, userEntityID string, p llm.ExtractedPreference, confidence float64, sourceTurn *turn, now time.Time) error {
	category := domain.PreferenceCategory(p.Category)
	polarity := domain.Polarity(p.Polarity)
	scope := domain.PreferenceScope(p.Scope)

	node := domain.NewPreferenceNode(category, p.Key, polarity, p.Strength, confidence, extractionSource, scope, now)

	existing, err := h.graph.FindActivePreference(ctx, p.Key, category, scope, nil)
	switch {
	case err == nil && existing.Polarity == polarity:
		if err := h.graph.ReinforcePreference(ctx, existing.PreferenceID, domain.PreferenceNode{
			LastConfirmedAt: now, Confidence: minFloat(1, existing.Confidence+0.05),
		}); err != nil {
			return fmt.Errorf("extraction: reinforce preference: %w", err)
		}
		node.PreferenceID = existing.PreferenceID
	case err == nil:
		if err := h.graph.InsertPreference(ctx, &node); err != nil {
			return fmt.Errorf("extraction: insert superseding preference: %w", err)
		}
		if err := h.graph.SupersedePreference(ctx, existing.PreferenceID, node.PreferenceID); err != nil {
			return fmt.Errorf("extraction: supersede preference: %w", err)
		}
	default:
		if err := h.graph.InsertPreference(ctx, &node); err != nil {
			return fmt.Errorf("extraction: insert preference: %w", err)
		}
	}

	if err := h.graph.CreateHasPreference(ctx, domain.HasPreferenceEdge{UserEntityID: userEntityID, PreferenceID: node.PreferenceID}); err != nil {
		return fmt.Errorf("extraction: create has_preference: %w", err)
	}
	return h.attachDerivedFrom(ctx, node.PreferenceID, domain.NodeKindPreference, p.EvidenceQuote, sourceTurn)
}

func (h *Handler) writeSkill(ctx context.Context, userEntityID string, s llm.ExtractedSkill, proficiency domain.SkillProficiency, confidence float64, sourceTurn *turn, now time.Time) error {
	skill := domain.SkillNode{SkillID: domain.SkillID(s.Name), Name: s.Name}
	if s.Category != "" {
		skill.Category = &s.Category
	}
	if err := h.graph.MergeSkill(ctx, &skill); err != nil {
		return fmt.Errorf("extraction: merge skill: %w", err)
	}
	if err := h.graph.CreateHasSkill(ctx, domain.HasSkillEdge{
		UserEntityID: userEntityID, SkillID: skill.SkillID, Proficiency: proficiency,
		Confidence: confidence, LastAssessedAt: now, Source: domain.KnowledgeInferred,
	}); err != nil {
		return fmt.Errorf("extraction: create has_skill: %w", err)
	}
	return h.attachDerivedFrom(ctx, skill.SkillID, domain.NodeKindSkill, s.EvidenceQuote, sourceTurn)
}

// writeEntityMention resolves the entity (three-tier resolution) and, for
// concept entities, treats the mention itself as an interest signal,
// folded into the entity schema rather than a separate extraction
// target — see DESIGN.md.
func (h *Handler) writeEntityMention(ctx context.Context, userEntityID string, e llm.ExtractedEntity, sourceTurn *turn, now time.Time) error {
	entity, err := h.resolveEntity(ctx, e.Name, domain.EntityType(e.EntityType), now)
	if err != nil {
		return err
	}
	if sourceTurn != nil {
		if err := h.graph.CreateReferences(ctx, domain.ReferencesEdge{
			EventID: sourceTurn.eventID, EntityID: entity.EntityID, Role: domain.RoleObject,
		}); err != nil {
			return fmt.Errorf("extraction: create references: %w", err)
		}
	}
	if entity.EntityType == domain.EntityTypeConcept {
		if err := h.graph.CreateInterestedIn(ctx, domain.InterestedInEdge{
			UserEntityID: userEntityID, ConceptEntityID: entity.EntityID,
			Weight: 1.0, Source: domain.KnowledgeInferred, LastUpdated: now,
		}); err != nil {
			return fmt.Errorf("extraction: create interested_in: %w", err)
		}
	}
	return nil
}

func (h *Handler) attachDerivedFrom(ctx context.Context, sourceID string, kind domain.NodeKind, quote string, sourceTurn *turn) error {
	if sourceTurn == nil {
		return nil
	}
	turnIndex := sourceTurn.turnIndex
	edge := derivedFromEvidence(sourceID, kind, sourceTurn.eventID, h.lastModelUsed, h.llmCfg.PromptVersion, quote, &turnIndex)
	if err := h.graph.CreateDerivedFrom(ctx, edge); err != nil {
		return fmt.Errorf("extraction: create derived_from: %w", err)
	}
	return nil
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
