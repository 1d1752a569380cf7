package consolidation

import (
	"context"
	"fmt"
	"time"

	"github.com/ctxatlas/atlas/pkg/domain"
)

type preferenceGroupKey struct {
	category domain.PreferenceCategory
	key      string
	polarity domain.Polarity
}

// mergeCrossSessionPreferences reconciles duplicate preferences created
// by the session-scoped user Entity model (see DESIGN.md's Consumer 1/2
// Open Question resolutions): the same real preference can surface as two
// distinct, never-merged Preference nodes in different sessions; two
// active preferences sharing category, key, and polarity are treated as
// that same fact re-observed. The earliest-observed node is kept
// canonical; the rest are reinforced into it and marked superseded,
// reusing the exact Reinforce/Supersede methods Consumers 1 and 2
// already use for same-session conflict resolution.
func (h *Handler) mergeCrossSessionPreferences(ctx context.Context) error {
	active, err := h.graph.ActivePreferences(ctx)
	if err != nil {
		return fmt.Errorf("consolidation: active preferences: %w", err)
	}

	groups := make(map[preferenceGroupKey][]*domain.PreferenceNode)
	for _, p := range active {
		k := preferenceGroupKey{category: p.Category, key: p.Key, polarity: p.Polarity}
		groups[k] = append(groups[k], p)
	}

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		if err := h.mergeGroup(ctx, group); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) mergeGroup(ctx context.Context, group []*domain.PreferenceNode) error {
	canonical := group[0]
	for _, p := range group[1:] {
		if p.FirstObservedAt.Before(canonical.FirstObservedAt) {
			canonical = p
		}
	}

	now := time.Now()
	for _, p := range group {
		if p.PreferenceID == canonical.PreferenceID {
			continue
		}
		if err := h.graph.ReinforcePreference(ctx, canonical.PreferenceID, domain.PreferenceNode{
			LastConfirmedAt: now, Confidence: maxFloat(canonical.Confidence, p.Confidence),
		}); err != nil {
			return fmt.Errorf("consolidation: reinforce canonical preference: %w", err)
		}
		if err := h.graph.SupersedePreference(ctx, p.PreferenceID, canonical.PreferenceID); err != nil {
			return fmt.Errorf("consolidation: supersede duplicate preference: %w", err)
		}
	}
	return nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
