package retrieval

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
	"github.com/ctxatlas/atlas/pkg/eventstore"
)

// newTestService builds a Service backed by real Postgres/Redis, with
// graph/embed/llm/access left nil: the tests here only exercise Event
// candidates, which rankByDecayScore and hydrateBodies resolve entirely
// through the Event Store.
func newTestService(t *testing.T) (*Service, *eventstore.Store) {
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

	events := eventstore.New(dbClient.Pool, rdb, config.DefaultEventStoreConfig())
	svc := NewService(nil, events, nil, nil, nil,
		config.DefaultScoringConfig(), config.DefaultIntentConfig(), config.DefaultGraphStoreConfig())
	return svc, events
}

// TestRankByDecayScore_OrdersByCompositeNotCombinedScore pins the fix
// for Traverse truncating on mergeCandidates' pre-decay CombinedScore:
// a month-old event with a high CombinedScore must not survive a
// decay-keyed truncation over a same-query recent event with a low one.
func TestRankByDecayScore_OrdersByCompositeNotCombinedScore(t *testing.T) {
	svc, events := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	recent := &domain.Event{
		EventID: "evt-recent", EventType: "tool.call.completed", OccurredAt: now,
		SessionID: "sess-1", AgentID: "agent-1", TraceID: "trace-1", PayloadRef: "ref-recent", SchemaVersion: 1,
	}
	old := &domain.Event{
		EventID: "evt-old", EventType: "tool.call.completed", OccurredAt: now.Add(-30 * 24 * time.Hour),
		SessionID: "sess-1", AgentID: "agent-1", TraceID: "trace-1", PayloadRef: "ref-old", SchemaVersion: 1,
	}
	_, err := events.Append(ctx, recent)
	require.NoError(t, err)
	_, err = events.Append(ctx, old)
	require.NoError(t, err)

	candidates := []Candidate{
		// evt-old's multi-intent CombinedScore dwarfs evt-recent's; a
		// truncation keyed on CombinedScore alone would keep evt-old and
		// drop evt-recent even though decay should flip that ordering.
		{ID: "evt-old", Kind: domain.NodeKindEvent, CombinedScore: 0.95},
		{ID: "evt-recent", Kind: domain.NodeKindEvent, CombinedScore: 0.1},
	}

	ranked, truncated, err := svc.rankByDecayScore(ctx, candidates, nil, 1)
	require.NoError(t, err)
	assert.True(t, truncated)
	require.Len(t, ranked, 1)
	assert.Equal(t, "evt-recent", ranked[0].ID)
}

// TestRankByDecayScore_DropsBodyThatNoLongerExists covers the hydration
// miss path: a candidate whose row vanished between traversal and
// ranking is dropped rather than scored against a nil body.
func TestRankByDecayScore_DropsBodyThatNoLongerExists(t *testing.T) {
	svc, events := newTestService(t)
	ctx := context.Background()

	ev := &domain.Event{
		EventID: "evt-1", EventType: "tool.call.completed", OccurredAt: time.Now().UTC(),
		SessionID: "sess-1", AgentID: "agent-1", TraceID: "trace-1", PayloadRef: "ref-1", SchemaVersion: 1,
	}
	_, err := events.Append(ctx, ev)
	require.NoError(t, err)

	candidates := []Candidate{
		{ID: "evt-1", Kind: domain.NodeKindEvent, CombinedScore: 0.5},
		{ID: "evt-missing", Kind: domain.NodeKindEvent, CombinedScore: 0.9},
	}

	ranked, truncated, err := svc.rankByDecayScore(ctx, candidates, nil, 10)
	require.NoError(t, err)
	assert.False(t, truncated)
	require.Len(t, ranked, 1)
	assert.Equal(t, "evt-1", ranked[0].ID)
}
