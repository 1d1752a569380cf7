package consolidation

import (
	"context"
	"fmt"
	"time"
)

// ForceReconsolidate runs a full consolidation pass on demand, outside
// its normal schedule or reflection trigger. It's the same Run an
// interval tick fires, just invoked directly.
func (h *Handler) ForceReconsolidate(ctx context.Context) error {
	return h.Run(ctx)
}

// PruneReport counts what an active-forgetting pass removed, or would
// remove under DryRun, broken down by tier.
type PruneReport struct {
	DryRun              bool  `json:"dry_run"`
	WarmEdgesPruned     int64 `json:"warm_edges_pruned"`
	ColdEventsPruned    int64 `json:"cold_events_pruned"`
	ArchiveEventsPruned int64 `json:"archive_events_pruned"`
	StaleNodesPruned    int64 `json:"stale_nodes_pruned"`
}

// ForcePrune runs the four-tier active-forgetting sweep on demand. With
// dryRun true, every tier is counted using its read-only candidate
// query instead of mutated, so an operator can see what a real prune
// would remove before running it.
func (h *Handler) ForcePrune(ctx context.Context, dryRun bool) (PruneReport, error) {
	if !dryRun {
		report := PruneReport{}
		warmCutoff := time.Now().Add(-time.Duration(h.retention.WarmHours) * time.Hour)
		n, err := h.graph.PruneWeakSimilarEdges(ctx, warmCutoff, h.retention.WarmSimilarityFloor)
		if err != nil {
			return report, fmt.Errorf("consolidation: force prune warm tier: %w", err)
		}
		report.WarmEdgesPruned = n

		if err := h.pruneColdTier(ctx); err != nil {
			return report, fmt.Errorf("consolidation: force prune cold tier: %w", err)
		}
		if err := h.pruneArchiveTier(ctx); err != nil {
			return report, fmt.Errorf("consolidation: force prune archive tier: %w", err)
		}
		if err := h.pruneStaleDerivedNodes(ctx); err != nil {
			return report, fmt.Errorf("consolidation: force prune stale derived nodes: %w", err)
		}
		return report, nil
	}

	return h.dryRunPrune(ctx)
}

// dryRunPrune mirrors applyActiveForgetting's four tiers using only the
// read-only candidate-listing calls each stage already performs before
// it mutates anything, so a dry run exercises the exact same selection
// logic a real prune would.
func (h *Handler) dryRunPrune(ctx context.Context) (PruneReport, error) {
	report := PruneReport{DryRun: true}

	warmCutoff := time.Now().Add(-time.Duration(h.retention.WarmHours) * time.Hour)
	warmCount, err := h.graph.CountWeakSimilarEdges(ctx, warmCutoff, h.retention.WarmSimilarityFloor)
	if err != nil {
		return report, fmt.Errorf("consolidation: dry run warm tier: %w", err)
	}
	report.WarmEdgesPruned = warmCount

	coldCutoff := time.Now().Add(-time.Duration(h.retention.ColdDays) * 24 * time.Hour)
	coldCandidates, err := h.events.ColdTierCandidates(ctx, coldCutoff, float64(h.retention.ColdImportanceFloor), h.retention.ColdAccessFloor, tierLimit)
	if err != nil {
		return report, fmt.Errorf("consolidation: dry run cold tier: %w", err)
	}
	report.ColdEventsPruned = int64(len(coldCandidates))

	archiveCutoff := time.Now().Add(-time.Duration(h.retention.ArchiveDays) * 24 * time.Hour)
	archiveIDs, err := h.events.ArchiveTierEventIDs(ctx, archiveCutoff, tierLimit)
	if err != nil {
		return report, fmt.Errorf("consolidation: dry run archive tier: %w", err)
	}
	report.ArchiveEventsPruned = int64(len(archiveIDs))

	staleCutoff := time.Now().Add(-time.Duration(h.retention.ArchiveDays) * 24 * time.Hour)
	staleIDs, err := h.graph.StaleDerivedNodeIDs(ctx, staleCutoff, staleDerivedConfidenceFloor, tierLimit)
	if err != nil {
		return report, fmt.Errorf("consolidation: dry run stale derived nodes: %w", err)
	}
	report.StaleNodesPruned = int64(len(staleIDs))

	return report, nil
}
