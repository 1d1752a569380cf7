package projection

import (
	"context"
	"encoding/json"
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
	"github.com/ctxatlas/atlas/pkg/graphstore"
	"github.com/ctxatlas/atlas/pkg/payloadstore"
)

func newTestHandler(t *testing.T) (*Handler, *eventstore.Store) {
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
	graph := graphstore.New(dbClient.Pool, config.DefaultGraphStoreConfig())
	payloads := payloadstore.New(dbClient.Pool, config.DefaultPayloadStoreConfig())

	return NewHandler(graph, events, payloads), events
}

func appendTestEvent(t *testing.T, events *eventstore.Store, ev *domain.Event) {
	t.Helper()
	ok, err := events.Append(context.Background(), ev)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestHandle_CreatesFollowsBetweenConsecutiveSessionEvents(t *testing.T) {
	h, events := newTestHandler(t)
	ctx := context.Background()
	sessionID := "sess-1"

	first := &domain.Event{
		EventID: "evt-1", EventType: "tool.call.started", OccurredAt: time.Now().UTC(),
		SessionID: sessionID, AgentID: "agent-1", TraceID: "trace-1", PayloadRef: "ref-1", SchemaVersion: 1,
	}
	second := &domain.Event{
		EventID: "evt-2", EventType: "tool.call.completed", OccurredAt: first.OccurredAt.Add(250 * time.Millisecond),
		SessionID: sessionID, AgentID: "agent-1", TraceID: "trace-1", PayloadRef: "ref-2", SchemaVersion: 1,
	}
	appendTestEvent(t, events, first)
	appendTestEvent(t, events, second)

	require.NoError(t, h.Handle(ctx, first.EventID, map[string]string{"event_id": first.EventID}))
	require.NoError(t, h.Handle(ctx, second.EventID, map[string]string{"event_id": second.EventID}))

	neighbors, err := h.graph.GetSubgraph(ctx,
		[]graphstore.SeedRef{{ID: first.EventID, Kind: domain.NodeKindEvent}}, nil, 1, 10)
	require.NoError(t, err)
	require.Len(t, neighbors.Edges, 1)
	assert.Equal(t, domain.EdgeFollows, neighbors.Edges[0].Type)
	assert.Equal(t, second.EventID, neighbors.Edges[0].To)
}

func TestHandle_MissingDocumentIsAckedAsPoison(t *testing.T) {
	h, _ := newTestHandler(t)
	err := h.Handle(context.Background(), "does-not-exist", map[string]string{"event_id": "does-not-exist"})
	assert.NoError(t, err)
}

func TestHandle_StatedPreferenceCreatesPreferenceAndProvenance(t *testing.T) {
	h, events := newTestHandler(t)
	ctx := context.Background()

	payload, err := json.Marshal(statedPreferencePayload{
		UserID: "u1", Category: "communication", Key: "notification_method",
		Value: "email", Polarity: "positive", Strength: 0.9, Scope: "global",
	})
	require.NoError(t, err)
	pseudonym, err := h.payloads.Put(ctx, "u1", payload)
	require.NoError(t, err)

	ev := &domain.Event{
		EventID: "evt-pref", EventType: domain.PreferenceStatedEventType, OccurredAt: time.Now().UTC(),
		SessionID: "sess-2", AgentID: "agent-1", TraceID: "trace-2", PayloadRef: pseudonym, SchemaVersion: 1,
	}
	appendTestEvent(t, events, ev)

	require.NoError(t, h.Handle(ctx, ev.EventID, map[string]string{"event_id": ev.EventID}))

	active, err := h.graph.FindActivePreference(ctx, "notification_method", domain.PreferenceCategoryCommunication, domain.ScopeGlobal, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PolarityPositive, active.Polarity)
	assert.Equal(t, domain.SourceExplicit, active.Source)
	assert.InDelta(t, 0.95, active.Confidence, 1e-9)
}
