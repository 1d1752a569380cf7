package eventstore

import (
	"context"
	"fmt"
)

func (s *Store) dedupKey(eventID string) string {
	return s.cfg.StreamKeyPrefix + ":dedup:" + eventID
}

// seenRecently is a fast pre-check against the Redis dedup set, avoiding a
// round trip to Postgres for the common case of a producer retrying an
// already-ingested event_id. It is advisory only: Postgres's event_id
// primary key is the authoritative dedup boundary, so a false negative
// here (e.g. after the TTL expires or Redis is flushed) never produces a
// duplicate row, only a wasted INSERT attempt.
func (s *Store) seenRecently(ctx context.Context, eventID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.dedupKey(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("eventstore: dedup check: %w", err)
	}
	return n > 0, nil
}

func (s *Store) markSeen(ctx context.Context, eventID string) error {
	if err := s.redis.Set(ctx, s.dedupKey(eventID), "1", s.cfg.DedupTTL).Err(); err != nil {
		return fmt.Errorf("eventstore: dedup mark: %w", err)
	}
	return nil
}
