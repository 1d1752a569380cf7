package graphstore

import "context"

// EventDegree counts the edges touching an Event node across every edge
// table that can reference one (FOLLOWS, CAUSED_BY, SIMILAR_TO,
// REFERENCES, DERIVED_FROM as a target). Enrichment uses this as the
// graph-degree boost term for importance_score: a well-connected event
// is more likely to be worth keeping than an isolated one with the same
// rule-table base score.
func (s *Store) EventDegree(ctx context.Context, eventID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM follows_edges WHERE from_event_id = $1 OR to_event_id = $1) +
			(SELECT count(*) FROM caused_by_edges WHERE from_event_id = $1 OR to_event_id = $1) +
			(SELECT count(*) FROM similar_to_edges WHERE from_event_id = $1 OR to_event_id = $1) +
			(SELECT count(*) FROM references_edges WHERE event_id = $1) +
			(SELECT count(*) FROM derived_from_edges WHERE event_id = $1)
	`, eventID).Scan(&n)
	return n, wrapf("event degree", err)
}
