package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ctxatlas/atlas/pkg/domain"
)

func marshalEmbedding(embedding []float32) ([]byte, error) {
	if embedding == nil {
		return nil, nil
	}
	return json.Marshal(embedding)
}

// Search runs a full-text query over event summaries and keywords,
// optionally scoped to a session, ordered by recency.
func (s *Store) Search(ctx context.Context, query, sessionID string, limit int) ([]*domain.EventNode, error) {
	if limit <= 0 {
		limit = 50
	}
	sql := selectEventColumns + `
		WHERE to_tsvector('english', coalesce(summary, '')) @@ plainto_tsquery('english', $1)`
	args := []any{query}
	if sessionID != "" {
		sql += ` AND session_id = $2 ORDER BY occurred_at DESC LIMIT $3`
		args = append(args, sessionID, limit)
	} else {
		sql += ` ORDER BY occurred_at DESC LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("eventstore: search: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// UpdateEnrichment persists the Enrichment consumer's derived fields
// (keywords, embedding, summary, importance_score) for an already-stored
// event. It never touches the immutable ingestion fields.
func (s *Store) UpdateEnrichment(ctx context.Context, eventID string, keywords []string, embedding []float32, summary string, importanceScore float64) error {
	embeddingJSON, err := marshalEmbedding(embedding)
	if err != nil {
		return fmt.Errorf("eventstore: marshal embedding: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE events SET keywords = $2, embedding = $3, summary = $4, importance_score = $5
		 WHERE event_id = $1`,
		eventID, keywords, embeddingJSON, summary, importanceScore)
	if err != nil {
		return fmt.Errorf("eventstore: update enrichment: %w", err)
	}
	return nil
}

// RecentWithEmbedding returns up to limit already-enriched events
// occurring strictly before before, newest first, restricted to
// sessionID when it is non-empty. This is the Enrichment consumer's
// candidate pool for SIMILAR_TO comparison: same-session candidates
// when sessionID is supplied, a cross-session recent window otherwise.
func (s *Store) RecentWithEmbedding(ctx context.Context, sessionID string, before time.Time, limit int) ([]*domain.EventNode, error) {
	if limit <= 0 {
		limit = 50
	}
	sql := selectEventColumns + ` WHERE embedding IS NOT NULL AND occurred_at < $1`
	args := []any{before}
	if sessionID != "" {
		sql += ` AND session_id = $2 ORDER BY occurred_at DESC LIMIT $3`
		args = append(args, sessionID, limit)
	} else {
		sql += ` ORDER BY occurred_at DESC LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("eventstore: recent with embedding: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// RecordAccess bumps access_count and last_accessed_at, called whenever
// a retrieval operation surfaces this event (feeds the access-boosted
// recency half-life in the scoring component).
func (s *Store) RecordAccess(ctx context.Context, eventID string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE events SET access_count = access_count + 1, last_accessed_at = $2 WHERE event_id = $1`,
		eventID, at)
	if err != nil {
		return fmt.Errorf("eventstore: record access: %w", err)
	}
	return nil
}

// DeleteDocument scrubs an event's narrative content (summary, keywords,
// embedding) in place for GDPR erasure while keeping the structural row
// (event_id, timestamps, session linkage) intact so FOLLOWS/CAUSED_BY
// edges remain resolvable. The raw payload is erased separately by
// crypto-shredding its key in the payload store.
func (s *Store) DeleteDocument(ctx context.Context, eventID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE events SET summary = NULL, keywords = NULL, embedding = NULL, payload_ref = ''
		 WHERE event_id = $1`,
		eventID)
	if err != nil {
		return fmt.Errorf("eventstore: delete document: %w", err)
	}
	return nil
}
