package eventstore

import (
	"context"
	"fmt"
)

func (s *Store) projectionMarkerKey(eventID string) string {
	return s.cfg.StreamKeyPrefix + ":projected:" + eventID
}

// MarkProjected records that Consumer 1 has finished processing eventID,
// so Consumer 3 and Consumer 2 can tell whether they are allowed to run
// yet. Called once, at the end of Consumer 1's Handle.
func (s *Store) MarkProjected(ctx context.Context, eventID string) error {
	if err := s.redis.Set(ctx, s.projectionMarkerKey(eventID), "1", s.cfg.ProjectionMarkerTTL).Err(); err != nil {
		return fmt.Errorf("eventstore: mark projected: %w", err)
	}
	return nil
}

// IsProjected is the read-after-acknowledge handshake: Consumer 3 must
// process an event only after Consumer 1 has acknowledged it, and this
// is how it checks. A false result is not an error — it means Consumer
// 1's own consumer group hasn't reached this entry yet, and the caller
// should return an error so the stream redelivers it later rather than
// acking it now.
func (s *Store) IsProjected(ctx context.Context, eventID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.projectionMarkerKey(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("eventstore: check projected: %w", err)
	}
	return n > 0, nil
}
