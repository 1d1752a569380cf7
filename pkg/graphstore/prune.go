package graphstore

import (
	"context"
	"time"
)

// PruneWeakSimilarEdges implements the Warm tier's forgetting rule:
// SIMILAR_TO edges older than olderThan whose score never cleared floor
// are dropped, thinning associative links that turned out not to
// matter without touching either endpoint event.
func (s *Store) PruneWeakSimilarEdges(ctx context.Context, olderThan time.Time, floor float64) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM similar_to_edges WHERE created_at < $1 AND score < $2`,
		olderThan, floor)
	if err != nil {
		return 0, wrapf("prune weak similar edges", err)
	}
	return tag.RowsAffected(), nil
}

// CountWeakSimilarEdges is the read-only counterpart of
// PruneWeakSimilarEdges, used to report what a warm-tier pass would
// remove without removing it.
func (s *Store) CountWeakSimilarEdges(ctx context.Context, olderThan time.Time, floor float64) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM similar_to_edges WHERE created_at < $1 AND score < $2`,
		olderThan, floor).Scan(&n)
	if err != nil {
		return 0, wrapf("count weak similar edges", err)
	}
	return n, nil
}

// RepointDerivedFrom redirects provenance edges from a trimmed event
// onto the summary that absorbed it, so a derived node's lineage still
// resolves after the Archive tier removes its source event.
func (s *Store) RepointDerivedFrom(ctx context.Context, eventID, summaryID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO summarizes_edges (summary_id, target_id, target_kind)
		VALUES ($1, $2, 'event') ON CONFLICT (summary_id, target_id) DO NOTHING`,
		summaryID, eventID)
	return wrapf("repoint derived_from", err)
}

// DropEventEdges removes every edge row keyed on an event_id that the
// Archive tier is about to trim from the Event Store, leaving the
// summary's SUMMARIZES edge (set up via RepointDerivedFrom beforehand)
// as the sole surviving pointer to that period.
func (s *Store) DropEventEdges(ctx context.Context, eventID string) error {
	batch := []string{
		`DELETE FROM follows_edges WHERE from_event_id = $1 OR to_event_id = $1`,
		`DELETE FROM caused_by_edges WHERE from_event_id = $1 OR to_event_id = $1`,
		`DELETE FROM similar_to_edges WHERE from_event_id = $1 OR to_event_id = $1`,
		`DELETE FROM references_edges WHERE event_id = $1`,
		`DELETE FROM derived_from_edges WHERE event_id = $1`,
	}
	for _, stmt := range batch {
		if _, err := s.pool.Exec(ctx, stmt, eventID); err != nil {
			return wrapf("drop event edges", err)
		}
	}
	return nil
}

// StaleDerivedNodeIDs finds Preference/BehavioralPattern/Workflow nodes
// that have decayed past recall: superseded or never reinforced since
// olderThan, and below the confidence floor an active-forgetting pass
// uses to decide a node is no longer worth keeping live.
func (s *Store) StaleDerivedNodeIDs(ctx context.Context, olderThan time.Time, confidenceFloor float64, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT preference_id FROM preferences
		WHERE superseded_by IS NOT NULL AND last_confirmed_at < $1 AND confidence < $2
		LIMIT $3`,
		olderThan, confidenceFloor, limit)
	if err != nil {
		return nil, wrapf("stale derived node ids", err)
	}
	var ids []string
	if err := collectIDs(rows, func(id string) { ids = append(ids, id) }); err != nil {
		return nil, wrapf("stale derived node ids", err)
	}
	return ids, nil
}

// PruneSupersededPreferences deletes superseded preference nodes once
// they've fully decayed out of the staleness query above, completing
// the append-only history's own forgetting rather than growing forever.
func (s *Store) PruneSupersededPreferences(ctx context.Context, preferenceIDs []string) (int64, error) {
	if len(preferenceIDs) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM preferences WHERE preference_id = ANY($1)`, preferenceIDs)
	if err != nil {
		return 0, wrapf("prune superseded preferences", err)
	}
	return tag.RowsAffected(), nil
}
