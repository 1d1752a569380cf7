package eventstore

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ctxatlas/atlas/pkg/config"
	"github.com/ctxatlas/atlas/pkg/database"
	"github.com/ctxatlas/atlas/pkg/domain"
)

func newTestStore(t *testing.T) *Store {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("test"), postgres.WithUsername("test"), postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pgContainer) })

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dbClient, err := database.NewClient(ctx, database.Config{
		Host: host, Port: port.Int(), User: "test", Password: "test", Database: "test", SSLMode: "disable",
	})
	require.NoError(t, err)
	t.Cleanup(dbClient.Close)

	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(redisContainer) })

	connStr, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(connStr)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.DefaultEventStoreConfig()
	return New(dbClient.Pool, rdb, cfg)
}

func testEvent(id, sessionID string) *domain.Event {
	return &domain.Event{
		EventID:       id,
		EventType:     "tool.call.completed",
		OccurredAt:    time.Now().UTC(),
		SessionID:     sessionID,
		AgentID:       "agent-1",
		TraceID:       "trace-1",
		PayloadRef:    "payload-" + id,
		SchemaVersion: 1,
	}
}

func TestAppend_IsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ev := testEvent("evt-1", "sess-1")
	ok, err := store.Append(ctx, ev)
	require.NoError(t, err)
	assert.True(t, ok)

	// Re-appending the same event_id is a no-op, not an error.
	ok, err = store.Append(ctx, testEvent("evt-1", "sess-1"))
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.GetByID(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "tool.call.completed", got.EventType)
}

func TestInsertDocument_ConflictStillResolvesGlobalPosition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testEvent("evt-conflict", "sess-conflict")
	inserted, err := store.insertDocument(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)
	firstPosition := first.GlobalPosition
	require.NotEmpty(t, firstPosition)

	// Simulates a retry after a prior call's publishToStreams failed:
	// the document row already exists, but the retry still needs
	// global_position to attempt publishing again.
	retry := testEvent("evt-conflict", "sess-conflict")
	inserted, err = store.insertDocument(ctx, retry)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, firstPosition, retry.GlobalPosition)
}

func TestGetBySession_OrdersByOccurrence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testEvent("evt-a", "sess-2")
	first.OccurredAt = time.Now().UTC().Add(-time.Minute)
	second := testEvent("evt-b", "sess-2")
	second.OccurredAt = time.Now().UTC()

	_, err := store.Append(ctx, second)
	require.NoError(t, err)
	_, err = store.Append(ctx, first)
	require.NoError(t, err)

	events, err := store.GetBySession(ctx, "sess-2", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "evt-a", events[0].EventID)
	assert.Equal(t, "evt-b", events[1].EventID)
}

func TestReadRange_UsesGlobalPositionCursor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, testEvent("evt-1", "sess-3"))
	require.NoError(t, err)
	_, err = store.Append(ctx, testEvent("evt-2", "sess-3"))
	require.NoError(t, err)

	page, err := store.ReadRange(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "evt-1", page[0].EventID)

	next, err := store.ReadRange(ctx, page[0].GlobalPosition, 10)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, "evt-2", next[0].EventID)
}

func TestEnsureConsumerGroupAndReadGroup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureConsumerGroup(ctx, "projection"))
	_, err := store.Append(ctx, testEvent("evt-1", "sess-4"))
	require.NoError(t, err)

	streams, err := store.ReadGroup(ctx, "projection", "projection-0", 10)
	require.NoError(t, err)
	require.Len(t, streams, 1)
	require.Len(t, streams[0].Messages, 1)

	require.NoError(t, store.Ack(ctx, "projection", streams[0].Messages[0].ID))
}
