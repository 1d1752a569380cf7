package eventstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ctxatlas/atlas/pkg/domain"
)

// publishToStreams appends ev to the global stream and to its session's
// stream. The global_position assigned by Postgres is carried as a
// field so consumers can correlate a stream entry back to its document
// row without an extra lookup.
func (s *Store) publishToStreams(ctx context.Context, ev *domain.Event) error {
	values := map[string]any{
		"event_id":        ev.EventID,
		"event_type":      ev.EventType,
		"session_id":      ev.SessionID,
		"agent_id":        ev.AgentID,
		"trace_id":        ev.TraceID,
		"global_position": ev.GlobalPosition,
	}

	pipe := s.redis.TxPipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{Stream: s.globalStreamKey(), Values: values})
	pipe.XAdd(ctx, &redis.XAddArgs{Stream: s.sessionStreamKey(ev.SessionID), Values: values})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("eventstore: xadd: %w", err)
	}
	return nil
}

// StreamLength returns the number of entries currently retained on the
// global stream (entries trimmed by retention are no longer counted).
func (s *Store) StreamLength(ctx context.Context) (int64, error) {
	n, err := s.redis.XLen(ctx, s.globalStreamKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("eventstore: xlen: %w", err)
	}
	return n, nil
}

// LastPosition returns the highest global_position assigned so far.
func (s *Store) LastPosition(ctx context.Context) (int64, error) {
	var pos int64
	err := s.pool.QueryRow(ctx, `SELECT coalesce(max(global_position), 0) FROM events`).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("eventstore: last position: %w", err)
	}
	return pos, nil
}

// ReadRange returns events with global_position > afterCursor, ordered
// ascending, capped at limit. An empty afterCursor starts from the
// beginning of the timeline.
func (s *Store) ReadRange(ctx context.Context, afterCursor string, limit int) ([]*domain.EventNode, error) {
	if limit <= 0 {
		limit = 100
	}
	after := int64(0)
	if afterCursor != "" {
		v, err := strconv.ParseInt(afterCursor, 10, 64)
		if err != nil {
			return nil, ErrInvalidCursor
		}
		after = v
	}

	rows, err := s.pool.Query(ctx,
		selectEventColumns+` WHERE global_position > $1 ORDER BY global_position ASC LIMIT $2`,
		after, limit)
	if err != nil {
		return nil, fmt.Errorf("eventstore: read range: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// TrimHotWindow trims the global stream down to entries at or after
// cutoff, implementing Thot: once an event's document has aged past the
// hot tier it no longer needs to sit on the stream awaiting ordered
// redelivery, only in the Postgres document layer.
func (s *Store) TrimHotWindow(ctx context.Context, cutoff time.Time) (int64, error) {
	minID := strconv.FormatInt(cutoff.UnixMilli(), 10) + "-0"
	n, err := s.redis.XTrimMinID(ctx, s.globalStreamKey(), minID).Result()
	if err != nil {
		return 0, fmt.Errorf("eventstore: xtrim min id: %w", err)
	}
	return n, nil
}

// EnsureConsumerGroup creates the named consumer group on the global
// stream if it does not already exist, starting from the beginning of
// the stream so a freshly deployed consumer replays history.
func (s *Store) EnsureConsumerGroup(ctx context.Context, group string) error {
	err := s.redis.XGroupCreateMkStream(ctx, s.globalStreamKey(), group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("eventstore: create consumer group %q: %w", group, err)
	}
	return nil
}

// ReadGroup reads up to count new entries for consumer within group,
// blocking up to the store's configured block timeout if none are
// immediately available.
func (s *Store) ReadGroup(ctx context.Context, group, consumer string, count int64) ([]redis.XStream, error) {
	res, err := s.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{s.globalStreamKey(), ">"},
		Count:    count,
		Block:    s.cfg.BlockTimeout,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("eventstore: xreadgroup: %w", err)
	}
	return res, nil
}

// Ack acknowledges a delivered stream entry, removing it from the
// group's pending entries list.
func (s *Store) Ack(ctx context.Context, group, messageID string) error {
	if err := s.redis.XAck(ctx, s.globalStreamKey(), group, messageID).Err(); err != nil {
		return fmt.Errorf("eventstore: xack: %w", err)
	}
	return nil
}

// Pending returns entries claimed but not yet acknowledged by group,
// used to detect and reclaim work from crashed consumers.
func (s *Store) Pending(ctx context.Context, group string) ([]redis.XPendingExt, error) {
	summary, err := s.redis.XPending(ctx, s.globalStreamKey(), group).Result()
	if err != nil {
		return nil, fmt.Errorf("eventstore: xpending summary: %w", err)
	}
	if summary.Count == 0 {
		return nil, nil
	}
	details, err := s.redis.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: s.globalStreamKey(),
		Group:  group,
		Start:  "-",
		End:    "+",
		Count:  summary.Count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("eventstore: xpending ext: %w", err)
	}
	return details, nil
}

// Claim transfers ownership of pending messages idle for longer than
// minIdle to consumer, used when the orphan-detection loop finds work
// abandoned by a crashed consumer.
func (s *Store) Claim(ctx context.Context, group, consumer string, minIdleMs int64, ids []string) ([]redis.XMessage, error) {
	msgs, err := s.redis.XClaim(ctx, &redis.XClaimArgs{
		Stream:   s.globalStreamKey(),
		Group:    group,
		Consumer: consumer,
		MinIdle:  time.Duration(minIdleMs) * time.Millisecond,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("eventstore: xclaim: %w", err)
	}
	return msgs, nil
}
