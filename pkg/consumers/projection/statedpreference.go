package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ctxatlas/atlas/pkg/domain"
)

// statedPreferencePayload is the JSON shape of a user.preference.stated
// event's decrypted payload: an explicit structured knowledge event
// carries its own user_id since a Preference is scoped to a user, not
// to the agent or session that happened to relay it.
type statedPreferencePayload struct {
	UserID   string  `json:"user_id"`
	Category string  `json:"category"`
	Key      string  `json:"key"`
	Value    string  `json:"value"`
	Polarity string  `json:"polarity"`
	Strength float64 `json:"strength"`
	Scope    string  `json:"scope"`
	ScopeID  *string `json:"scope_id,omitempty"`
}

// projectStatedPreference implements step 4 of the Projection consumer:
// an explicit structured knowledge event (user.preference.stated) is
// parsed directly, bypassing LLM extraction entirely, and upserted as a
// Preference node with derivation_method "stated".
func (h *Handler) projectStatedPreference(ctx context.Context, ev *domain.EventNode) error {
	raw, err := h.payloads.Get(ctx, ev.PayloadRef)
	if err != nil {
		return fmt.Errorf("projection: fetch preference payload: %w", err)
	}

	var p statedPreferencePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return poisonError{fmt.Errorf("projection: malformed preference.stated payload: %w", err)}
	}

	category := domain.PreferenceCategory(p.Category)
	polarity := domain.Polarity(p.Polarity)
	scope := domain.PreferenceScope(p.Scope)
	if !category.Valid() || !polarity.Valid() || !scope.Valid() {
		return poisonError{fmt.Errorf("projection: preference.stated has invalid enum values")}
	}
	strength := p.Strength
	if strength == 0 {
		strength = 1.0
	}

	node := domain.NewPreferenceNode(category, p.Key, polarity, strength, domain.SourceExplicit.ConfidenceCeiling(),
		domain.SourceExplicit, scope, ev.OccurredAt)
	if p.ScopeID != nil {
		node.ScopeID = p.ScopeID
	}

	existing, err := h.graph.FindActivePreference(ctx, node.Key, node.Category, node.Scope, node.ScopeID)
	switch {
	case err == nil && existing.Polarity == node.Polarity:
		if err := h.graph.ReinforcePreference(ctx, existing.PreferenceID, domain.PreferenceNode{
			LastConfirmedAt: ev.OccurredAt, Confidence: minFloat(1, existing.Confidence+0.05),
		}); err != nil {
			return fmt.Errorf("projection: reinforce preference: %w", err)
		}
		node.PreferenceID = existing.PreferenceID
	case err == nil:
		if err := h.graph.InsertPreference(ctx, &node); err != nil {
			return fmt.Errorf("projection: insert superseding preference: %w", err)
		}
		if err := h.graph.SupersedePreference(ctx, existing.PreferenceID, node.PreferenceID); err != nil {
			return fmt.Errorf("projection: supersede preference: %w", err)
		}
	default:
		if err := h.graph.InsertPreference(ctx, &node); err != nil {
			return fmt.Errorf("projection: insert preference: %w", err)
		}
	}

	userEntity := domain.NewEntityNode(userEntityName(p.UserID), domain.EntityTypeUser, ev.OccurredAt)
	if err := h.graph.MergeEntity(ctx, &userEntity); err != nil {
		return fmt.Errorf("projection: merge user entity: %w", err)
	}
	if err := h.graph.CreateHasPreference(ctx, domain.HasPreferenceEdge{
		UserEntityID: userEntity.EntityID, PreferenceID: node.PreferenceID,
	}); err != nil {
		return fmt.Errorf("projection: create has_preference: %w", err)
	}

	if p.Value != "" {
		valueEntity := domain.NewEntityNode(p.Value, domain.EntityTypeConcept, ev.OccurredAt)
		if err := h.graph.MergeEntity(ctx, &valueEntity); err != nil {
			return fmt.Errorf("projection: merge preference value entity: %w", err)
		}
		if err := h.graph.CreateAbout(ctx, domain.AboutEdge{PreferenceID: node.PreferenceID, EntityID: valueEntity.EntityID}); err != nil {
			return fmt.Errorf("projection: create about: %w", err)
		}
	}

	quote := fmt.Sprintf("%s: %s (%s)", p.Key, p.Value, p.Polarity)
	if err := h.graph.CreateDerivedFrom(ctx, domain.DerivedFromEdge{
		SourceNodeID: node.PreferenceID, SourceKind: domain.NodeKindPreference, EventID: ev.EventID,
		DerivationMethod: domain.DerivationStated, DerivedAt: time.Now(), EvidenceQuote: &quote,
	}); err != nil {
		return fmt.Errorf("projection: create derived_from: %w", err)
	}
	return nil
}

func userEntityName(userID string) string {
	return "user:" + userID
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
