package consolidation

import (
	"context"
	"fmt"
	"time"

	"github.com/ctxatlas/atlas/pkg/consumers/enrichment"
	"github.com/ctxatlas/atlas/pkg/domain"
)

// importanceRecalcLimit bounds one pass of the traffic-driven
// recalculation so a single run never walks the entire hot set.
const importanceRecalcLimit = 5000

// recalculateImportance re-scores events that have accumulated access
// traffic since they were first enriched, using the same rule-table-plus-
// centrality formula Consumer 3 applies at ingestion time, so an event
// that became a traversal hub after enrichment still gets credit for it.
func (h *Handler) recalculateImportance(ctx context.Context) error {
	ids, err := h.events.HighTrafficEventIDs(ctx, h.retention.ColdAccessFloor, importanceRecalcLimit)
	if err != nil {
		return fmt.Errorf("consolidation: high traffic event ids: %w", err)
	}

	for _, id := range ids {
		ev, err := h.events.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("consolidation: get event %s: %w", id, err)
		}
		degree, err := h.graph.EventDegree(ctx, id)
		if err != nil {
			return fmt.Errorf("consolidation: event degree %s: %w", id, err)
		}
		score := enrichment.ComputeImportanceScore(ev.EventType, ev.ImportanceHint, ev.AccessCount, degree)
		if err := h.events.SetImportanceScore(ctx, id, float64(score)); err != nil {
			return fmt.Errorf("consolidation: set importance score %s: %w", id, err)
		}
	}
	return nil
}

// tierLimit bounds each tier's per-run batch so one slow consolidation
// pass can't lock up the stores indefinitely; the next scheduled run
// picks up whatever is left.
const tierLimit = 2000

// staleDerivedConfidenceFloor is the confidence below which a
// superseded Preference is considered fully decayed and safe to drop,
// distinct from the live Preference confidence any active node carries.
const staleDerivedConfidenceFloor = 0.2

// applyActiveForgetting runs the Warm, Cold, and Archive tiers of the
// retention table, plus superseded-node cleanup, in ascending order of
// how much history each tier destroys. Cold and Archive both require a
// summary to already cover the period they remove; summarize always
// runs earlier in Run so that invariant holds.
func (h *Handler) applyActiveForgetting(ctx context.Context) error {
	if err := h.pruneWarmTier(ctx); err != nil {
		return err
	}
	if err := h.pruneColdTier(ctx); err != nil {
		return err
	}
	if err := h.pruneArchiveTier(ctx); err != nil {
		return err
	}
	return h.pruneStaleDerivedNodes(ctx)
}

func (h *Handler) pruneWarmTier(ctx context.Context) error {
	cutoff := time.Now().Add(-time.Duration(h.retention.WarmHours) * time.Hour)
	n, err := h.graph.PruneWeakSimilarEdges(ctx, cutoff, h.retention.WarmSimilarityFloor)
	if err != nil {
		return fmt.Errorf("consolidation: prune warm tier: %w", err)
	}
	h.countPruned("similar_to_edge", "warm", n)
	return nil
}

func (h *Handler) pruneColdTier(ctx context.Context) error {
	cutoff := time.Now().Add(-time.Duration(h.retention.ColdDays) * 24 * time.Hour)
	candidates, err := h.events.ColdTierCandidates(ctx, cutoff, float64(h.retention.ColdImportanceFloor), h.retention.ColdAccessFloor, tierLimit)
	if err != nil {
		return fmt.Errorf("consolidation: cold tier candidates: %w", err)
	}

	var pruned int64
	for _, c := range candidates {
		summaryID, err := h.coldTierSummary(ctx, c.EventID)
		if err != nil {
			return err
		}
		if err := h.graph.RepointDerivedFrom(ctx, c.EventID, summaryID); err != nil {
			return fmt.Errorf("consolidation: repoint derived_from for cold event %s: %w", c.EventID, err)
		}
		if err := h.graph.DropEventEdges(ctx, c.EventID); err != nil {
			return fmt.Errorf("consolidation: drop edges for cold event %s: %w", c.EventID, err)
		}
		if _, err := h.events.Trim(ctx, []string{c.EventID}); err != nil {
			return fmt.Errorf("consolidation: trim cold event %s: %w", c.EventID, err)
		}
		pruned++
	}
	h.countPruned("event", "cold", pruned)
	return nil
}

// coldTierSummary ensures the episode a cold event belongs to already
// has a Summary node to repoint onto, covering events whose episode
// fell outside summarize's tighter lookback window (an event can sit
// idle for ColdDays well past the last consolidation interval).
func (h *Handler) coldTierSummary(ctx context.Context, eventID string) (string, error) {
	ev, err := h.events.GetByID(ctx, eventID)
	if err != nil {
		return "", fmt.Errorf("consolidation: get cold event %s: %w", eventID, err)
	}
	existing, found, err := h.graph.FindSummaryByScope(ctx, domain.SummaryScopeEpisode, ev.TraceID)
	if err != nil {
		return "", fmt.Errorf("consolidation: find episode summary for %s: %w", eventID, err)
	}
	if found {
		return existing.SummaryID, nil
	}
	return h.writeEventSummary(ctx, domain.SummaryScopeEpisode, ev.TraceID, []*domain.EventNode{ev})
}

func (h *Handler) pruneArchiveTier(ctx context.Context) error {
	cutoff := time.Now().Add(-time.Duration(h.retention.ArchiveDays) * 24 * time.Hour)
	ids, err := h.events.ArchiveTierEventIDs(ctx, cutoff, tierLimit)
	if err != nil {
		return fmt.Errorf("consolidation: archive tier candidates: %w", err)
	}

	var pruned int64
	for _, id := range ids {
		summaryID, err := h.coldTierSummary(ctx, id)
		if err != nil {
			return err
		}
		if err := h.graph.RepointDerivedFrom(ctx, id, summaryID); err != nil {
			return fmt.Errorf("consolidation: repoint derived_from for archived event %s: %w", id, err)
		}
		if err := h.graph.DropEventEdges(ctx, id); err != nil {
			return fmt.Errorf("consolidation: drop edges for archived event %s: %w", id, err)
		}
		if _, err := h.events.Trim(ctx, []string{id}); err != nil {
			return fmt.Errorf("consolidation: trim archived event %s: %w", id, err)
		}
		pruned++
	}
	h.countPruned("event", "archive", pruned)
	return nil
}

func (h *Handler) pruneStaleDerivedNodes(ctx context.Context) error {
	cutoff := time.Now().Add(-time.Duration(h.retention.ArchiveDays) * 24 * time.Hour)
	ids, err := h.graph.StaleDerivedNodeIDs(ctx, cutoff, staleDerivedConfidenceFloor, tierLimit)
	if err != nil {
		return fmt.Errorf("consolidation: stale derived node ids: %w", err)
	}
	n, err := h.graph.PruneSupersededPreferences(ctx, ids)
	if err != nil {
		return fmt.Errorf("consolidation: prune superseded preferences: %w", err)
	}
	h.countPruned("preference", "archive", n)
	return nil
}

func (h *Handler) countPruned(kind, tier string, n int64) {
	if h.mx == nil || n == 0 {
		return
	}
	h.mx.GraphNodesPrunedTotal.WithLabelValues(kind, tier).Add(float64(n))
}

// trimEventStore removes stream entries older than Thot from both the
// global and per-session streams; the backing documents follow their own,
// longer CeilingDays deletion window so search can still reach recently
// hot-tier-expired events.
func (h *Handler) trimEventStore(ctx context.Context) error {
	hotCutoff := time.Now().Add(-time.Duration(h.retention.HotDays) * 24 * time.Hour)
	if _, err := h.events.TrimHotWindow(ctx, hotCutoff); err != nil {
		return fmt.Errorf("consolidation: trim hot window: %w", err)
	}

	ceilingCutoff := time.Now().Add(-time.Duration(h.retention.CeilingDays) * 24 * time.Hour)
	ids, err := h.events.ArchiveTierEventIDs(ctx, ceilingCutoff, tierLimit)
	if err != nil {
		return fmt.Errorf("consolidation: ceiling candidates: %w", err)
	}
	if _, err := h.events.Trim(ctx, ids); err != nil {
		return fmt.Errorf("consolidation: trim ceiling documents: %w", err)
	}
	return nil
}
