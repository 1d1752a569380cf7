package enrichment

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
	"github.com/ctxatlas/atlas/pkg/consumers"
	"github.com/ctxatlas/atlas/pkg/database"
	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/eventstore"
	"github.com/ctxatlas/atlas/pkg/graphstore"
	"github.com/ctxatlas/atlas/pkg/payloadstore"
)

// stubEmbedder returns a fixed-length deterministic vector so SIMILAR_TO
// comparisons are exercised without a real embedding backend.
type stubEmbedder struct{ vector []float32 }

func (s stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, nil
}

func newTestHandler(t *testing.T, vector []float32) (*Handler, *eventstore.Store, *payloadstore.Store) {
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

	h := &Handler{
		graph: graph, events: events, payloads: payloads,
		embed: stubEmbedder{vector: vector}, embCfg: config.DefaultEmbeddingConfig(),
		reflectionThreshold: config.DefaultQueueConfig().ReflectionThreshold,
	}
	return h, events, payloads
}

func appendEvent(t *testing.T, events *eventstore.Store, payloads *payloadstore.Store, eventID, sessionID, eventType, content string, occurredAt time.Time) *domain.Event {
	t.Helper()
	raw, err := json.Marshal(struct {
		Content string `json:"content"`
	}{Content: content})
	require.NoError(t, err)
	pseudonym, err := payloads.Put(context.Background(), "user:"+sessionID, raw)
	require.NoError(t, err)

	ev := &domain.Event{
		EventID: eventID, EventType: eventType, OccurredAt: occurredAt,
		SessionID: sessionID, AgentID: "agent-1", TraceID: "trace-1", PayloadRef: pseudonym, SchemaVersion: 1,
	}
	ok, err := events.Append(context.Background(), ev)
	require.NoError(t, err)
	require.True(t, ok)
	return ev
}

func TestHandle_NotYetProjectedReturnsError(t *testing.T) {
	h, events, payloads := newTestHandler(t, []float32{1, 0, 0})
	ev := appendEvent(t, events, payloads, "evt-1", "sess-1", "conversation.turn", "hello there", time.Now().UTC())

	err := h.Handle(context.Background(), ev.EventID, map[string]string{"event_id": ev.EventID})
	assert.ErrorIs(t, err, errNotYetProjected)
}

func TestHandle_WritesDerivedFieldsAfterProjection(t *testing.T) {
	h, events, payloads := newTestHandler(t, []float32{1, 0, 0})
	ctx := context.Background()
	ev := appendEvent(t, events, payloads, "evt-2", "sess-2", "user.preference.stated", "I prefer dark mode interfaces", time.Now().UTC())
	require.NoError(t, events.MarkProjected(ctx, ev.EventID))

	require.NoError(t, h.Handle(ctx, ev.EventID, map[string]string{"event_id": ev.EventID}))

	enriched, err := events.GetByID(ctx, ev.EventID)
	require.NoError(t, err)
	assert.NotEmpty(t, enriched.Keywords)
	assert.NotEmpty(t, enriched.Embedding)
	assert.GreaterOrEqual(t, enriched.ImportanceScore, 1)
	assert.LessOrEqual(t, enriched.ImportanceScore, 10)
}

func TestHandle_MissingDocumentIsAckedAsPoison(t *testing.T) {
	h, events, _ := newTestHandler(t, []float32{1, 0, 0})
	require.NoError(t, events.MarkProjected(context.Background(), "does-not-exist"))
	err := h.Handle(context.Background(), "does-not-exist", map[string]string{"event_id": "does-not-exist"})
	assert.NoError(t, err)
}

func TestComputeImportanceScore_HintOverridesRuleTable(t *testing.T) {
	hint := 2
	score := ComputeImportanceScore("error.tool_failure", &hint, 0, 0)
	assert.Equal(t, 2, score)
}

func TestComputeImportanceScore_ClampsToTen(t *testing.T) {
	score := ComputeImportanceScore("error.tool_failure", nil, 30, 30)
	assert.Equal(t, 10, score)
}

func TestExtractKeywords_IncludesEventTypeSegments(t *testing.T) {
	keywords := ExtractKeywords("user.preference.stated", "I really prefer dark mode over light mode")
	assert.Contains(t, keywords, "user")
	assert.Contains(t, keywords, "preference")
	assert.Contains(t, keywords, "stated")
}

func TestAccumulateImportance_ResetsAfterThresholdCrossed(t *testing.T) {
	trigger := consumers.NewReflectionTrigger()
	h := &Handler{reflection: trigger, reflectionThreshold: 10}

	h.accumulateImportance(4)
	h.mu.Lock()
	cumulative := h.cumulativeImportance
	h.mu.Unlock()
	assert.Equal(t, 4, cumulative, "below threshold, total keeps accumulating")

	h.accumulateImportance(7)
	h.mu.Lock()
	cumulative = h.cumulativeImportance
	h.mu.Unlock()
	assert.Equal(t, 0, cumulative, "cumulative total resets once the trigger fires")

	// A second crossing must not block on the trigger's buffered channel.
	h.accumulateImportance(20)
}

func TestAccumulateImportance_NilTriggerIsNoop(t *testing.T) {
	h := &Handler{reflectionThreshold: 1}
	assert.NotPanics(t, func() { h.accumulateImportance(100) })
}
