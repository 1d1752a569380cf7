package eventstore

import (
	"context"
	"fmt"
	"time"
)

// AgentEventTypeCounts returns, for every agent active since since, a
// count of each event_type it produced. This is the frequency signal
// the consolidation consumer's cross-session pattern detection starts
// from, before any co-occurrence or centrality weighting is applied.
func (s *Store) AgentEventTypeCounts(ctx context.Context, since time.Time) (map[string]map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT agent_id, event_type, count(*) FROM events
		 WHERE occurred_at >= $1 GROUP BY agent_id, event_type`,
		since)
	if err != nil {
		return nil, fmt.Errorf("eventstore: agent event type counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]int)
	for rows.Next() {
		var agentID, eventType string
		var n int
		if err := rows.Scan(&agentID, &eventType, &n); err != nil {
			return nil, fmt.Errorf("eventstore: scan agent event type count: %w", err)
		}
		if out[agentID] == nil {
			out[agentID] = make(map[string]int)
		}
		out[agentID][eventType] = n
	}
	return out, rows.Err()
}

// DistinctSessionCountByAgent returns, for every agent active since
// since, the number of distinct sessions it appeared in — the
// co-occurrence denominator cross-session pattern detection uses to
// tell "five events in one session" from "five sessions, one event
// each".
func (s *Store) DistinctSessionCountByAgent(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT agent_id, count(DISTINCT session_id) FROM events WHERE occurred_at >= $1 GROUP BY agent_id`,
		since)
	if err != nil {
		return nil, fmt.Errorf("eventstore: distinct session count by agent: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var agentID string
		var n int
		if err := rows.Scan(&agentID, &n); err != nil {
			return nil, fmt.Errorf("eventstore: scan distinct session count: %w", err)
		}
		out[agentID] = n
	}
	return out, rows.Err()
}

// SessionSequence is one session's ordered event_type timeline, the raw
// material workflow extraction looks for recurring subsequences in.
type SessionSequence struct {
	SessionID string
	AgentID   string
	Types     []string
	StartedAt time.Time
	EndedAt   time.Time
}

// SessionEventTypeSequences returns the ordered event_type sequence of
// every session with activity since since.
func (s *Store) SessionEventTypeSequences(ctx context.Context, since time.Time, limit int) ([]SessionSequence, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, min(agent_id), array_agg(event_type ORDER BY occurred_at ASC),
			min(occurred_at), max(occurred_at)
		FROM events
		WHERE occurred_at >= $1
		GROUP BY session_id
		ORDER BY max(occurred_at) DESC
		LIMIT $2`,
		since, limit)
	if err != nil {
		return nil, fmt.Errorf("eventstore: session event type sequences: %w", err)
	}
	defer rows.Close()

	var out []SessionSequence
	for rows.Next() {
		var seq SessionSequence
		if err := rows.Scan(&seq.SessionID, &seq.AgentID, &seq.Types, &seq.StartedAt, &seq.EndedAt); err != nil {
			return nil, fmt.Errorf("eventstore: scan session event type sequence: %w", err)
		}
		out = append(out, seq)
	}
	return out, rows.Err()
}

// HighTrafficEventIDs returns event_ids whose access_count meets or
// exceeds accessFloor, the candidate set importance recalculation
// re-scores by current graph centrality rather than leaving at their
// enrichment-time value forever.
func (s *Store) HighTrafficEventIDs(ctx context.Context, accessFloor int, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx,
		`SELECT event_id FROM events WHERE access_count >= $1 ORDER BY access_count DESC LIMIT $2`,
		accessFloor, limit)
	if err != nil {
		return nil, fmt.Errorf("eventstore: high traffic event ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("eventstore: scan high traffic event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetImportanceScore overwrites an event's importance_score directly,
// used by the consolidation consumer's centrality-based recalculation
// rather than UpdateEnrichment, which would also require keywords and
// embedding the recalculation pass never recomputes.
func (s *Store) SetImportanceScore(ctx context.Context, eventID string, score float64) error {
	_, err := s.pool.Exec(ctx, `UPDATE events SET importance_score = $2 WHERE event_id = $1`, eventID, score)
	if err != nil {
		return fmt.Errorf("eventstore: set importance score: %w", err)
	}
	return nil
}
