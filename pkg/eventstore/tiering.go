package eventstore

import (
	"context"
	"fmt"
	"time"
)

// ColdTierCandidate identifies an event old enough to be evaluated for
// summarize-and-prune by the Cold retention tier.
type ColdTierCandidate struct {
	EventID         string
	ImportanceScore float64
	AccessCount     int
}

// ColdTierCandidates returns events older than olderThan whose
// importance and access count fall below the Cold tier's keep
// thresholds, i.e. candidates for summarization and pruning rather than
// verbatim retention.
func (s *Store) ColdTierCandidates(ctx context.Context, olderThan time.Time, importanceFloor float64, accessFloor int, limit int) ([]ColdTierCandidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT event_id, importance_score, access_count FROM events
		 WHERE occurred_at < $1 AND importance_score < $2 AND access_count < $3
		 ORDER BY occurred_at ASC LIMIT $4`,
		olderThan, importanceFloor, accessFloor, limit)
	if err != nil {
		return nil, fmt.Errorf("eventstore: cold tier candidates: %w", err)
	}
	defer rows.Close()

	var out []ColdTierCandidate
	for rows.Next() {
		var c ColdTierCandidate
		if err := rows.Scan(&c.EventID, &c.ImportanceScore, &c.AccessCount); err != nil {
			return nil, fmt.Errorf("eventstore: scan cold tier candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ArchiveTierEventIDs returns event_ids older than olderThan, ordered
// oldest-first, whose backing Event node the Archive tier removes from
// the graph once a hierarchical summary has captured them.
func (s *Store) ArchiveTierEventIDs(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT event_id FROM events WHERE occurred_at < $1 ORDER BY occurred_at ASC LIMIT $2`,
		olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("eventstore: archive tier candidates: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("eventstore: scan archive tier id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Trim permanently removes an event's document row. Called by the
// Archive tier only after a Summary node has absorbed its content; the
// event's id may still appear in other nodes' source_session_ids or
// DERIVED_FROM edges, which the caller is responsible for repointing at
// the summary before trimming.
func (s *Store) Trim(ctx context.Context, eventIDs []string) (int64, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE event_id = ANY($1)`, eventIDs)
	if err != nil {
		return 0, fmt.Errorf("eventstore: trim: %w", err)
	}
	return tag.RowsAffected(), nil
}
