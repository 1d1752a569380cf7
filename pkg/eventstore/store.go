// Package eventstore implements the append-only, idempotent event log:
// a Redis-backed hot stream for ordered delivery to consumer groups, and
// a Postgres-backed document layer for durable storage, lookup and
// full-text search. The document layer doubles as the Graph Store's
// Event node table, so reads return the full EventNode (raw event plus
// derived/scoring fields), not just the ingested envelope.
package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ctxatlas/atlas/pkg/config"
	"github.com/ctxatlas/atlas/pkg/domain"
)

// Store is the Event Store: append, lookup, search and stream-consume
// operations over the global and per-session event timelines.
type Store struct {
	pool  *pgxpool.Pool
	redis *redis.Client
	cfg   *config.EventStoreConfig
}

// New builds a Store over an already-connected Postgres pool and Redis
// client.
func New(pool *pgxpool.Pool, rdb *redis.Client, cfg *config.EventStoreConfig) *Store {
	return &Store{pool: pool, redis: rdb, cfg: cfg}
}

func (s *Store) globalStreamKey() string {
	return s.cfg.StreamKeyPrefix + ":global"
}

func (s *Store) sessionStreamKey(sessionID string) string {
	return s.cfg.StreamKeyPrefix + ":session:" + sessionID
}

// Append ingests a single event. Re-appending an event_id that has
// already been stored and published is not an error: Append returns
// (false, nil) once the redis dedup key is set, so producers can retry
// blindly. Until the stream publish actually succeeds, though, a retry
// with the same event_id is deliberately allowed to fall through to
// insertDocument's conflict branch and re-attempt publishToStreams —
// the document insert is idempotent, but the stream publish is the one
// effect that isn't covered by a unique index, so it's the one effect a
// retry still needs to be able to repeat.
func (s *Store) Append(ctx context.Context, ev *domain.Event) (appended bool, err error) {
	if seen, err := s.seenRecently(ctx, ev.EventID); err == nil && seen {
		return false, nil
	}

	appended, err = s.insertDocument(ctx, ev)
	if err != nil {
		return false, fmt.Errorf("eventstore: insert document: %w", err)
	}

	if err := s.publishToStreams(ctx, ev); err != nil {
		// The document row is already durable at this point; a stream
		// publish failure is surfaced to the caller without rolling back
		// the insert, and markSeen is deliberately skipped so the next
		// retry with this event_id reaches insertDocument's conflict
		// branch (which still resolves global_position) and tries
		// publishToStreams again instead of being silently absorbed by
		// the dedup check above.
		slog.Error("failed to publish event to streams", "event_id", ev.EventID, "error", err)
		return appended, fmt.Errorf("eventstore: publish to streams: %w", err)
	}

	if err := s.markSeen(ctx, ev.EventID); err != nil {
		slog.Warn("failed to mark event seen in dedup set", "event_id", ev.EventID, "error", err)
	}

	return appended, nil
}

// AppendBatch appends events in order, stopping at the first hard
// failure. It returns the number of events actually appended (duplicates
// do not count).
func (s *Store) AppendBatch(ctx context.Context, events []*domain.Event) (int, error) {
	n := 0
	for _, ev := range events {
		ok, err := s.Append(ctx, ev)
		if err != nil {
			return n, fmt.Errorf("eventstore: append batch at event_id %s: %w", ev.EventID, err)
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// GetByID fetches a single event node by its event_id.
func (s *Store) GetByID(ctx context.Context, eventID string) (*domain.EventNode, error) {
	row := s.pool.QueryRow(ctx, selectEventColumns+` WHERE event_id = $1`, eventID)
	ev, err := scanEvent(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("eventstore: get by id: %w", err)
	}
	return ev, nil
}

// GetBySession returns every event in a session, ordered by occurrence.
func (s *Store) GetBySession(ctx context.Context, sessionID string, limit int) ([]*domain.EventNode, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx,
		selectEventColumns+` WHERE session_id = $1 ORDER BY occurred_at ASC LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("eventstore: get by session: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

const selectEventColumns = `SELECT event_id, event_type, occurred_at, ended_at, session_id, agent_id,
	trace_id, tool_name, parent_event_id, status, schema_version, importance_hint, payload_ref,
	global_position, keywords, embedding, summary, importance_score, access_count, last_accessed_at
	FROM events`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.EventNode, error) {
	var node domain.EventNode
	var pos int64
	var embeddingJSON []byte
	if err := row.Scan(
		&node.EventID, &node.EventType, &node.OccurredAt, &node.EndedAt, &node.SessionID, &node.AgentID,
		&node.TraceID, &node.ToolName, &node.ParentEventID, &node.Status, &node.SchemaVersion, &node.ImportanceHint,
		&node.PayloadRef, &pos, &node.Keywords, &embeddingJSON, &node.Summary,
		&node.ImportanceScore, &node.AccessCount, &node.LastAccessedAt,
	); err != nil {
		return nil, err
	}
	node.GlobalPosition = strconv.FormatInt(pos, 10)
	if len(embeddingJSON) > 0 {
		if err := json.Unmarshal(embeddingJSON, &node.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding: %w", err)
		}
	}
	return &node, nil
}

func scanEvents(rows pgx.Rows) ([]*domain.EventNode, error) {
	var out []*domain.EventNode
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// insertDocument upserts the event's document row and always resolves
// global_position on ev, whether this call inserted the row or found it
// already present — a no-op DO UPDATE rather than DO NOTHING, so a
// retried Append can still learn global_position and re-attempt
// publishToStreams after an earlier call's publish failed. (xmax = 0)
// distinguishes a fresh insert from a conflict that hit the update
// branch without touching global_position, which is never reassigned.
func (s *Store) insertDocument(ctx context.Context, ev *domain.Event) (bool, error) {
	const insert = `INSERT INTO events
		(event_id, event_type, occurred_at, ended_at, session_id, agent_id, trace_id, tool_name,
		 parent_event_id, status, schema_version, importance_hint, payload_ref)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (event_id) DO UPDATE SET event_id = events.event_id
		RETURNING global_position, (xmax = 0) AS inserted`

	var pos int64
	var inserted bool
	err := s.pool.QueryRow(ctx, insert,
		ev.EventID, ev.EventType, ev.OccurredAt, ev.EndedAt, ev.SessionID, ev.AgentID, ev.TraceID,
		ev.ToolName, ev.ParentEventID, ev.Status, ev.SchemaVersion, ev.ImportanceHint, ev.PayloadRef,
	).Scan(&pos, &inserted)
	if err != nil {
		return false, err
	}
	ev.GlobalPosition = strconv.FormatInt(pos, 10)
	return inserted, nil
}
