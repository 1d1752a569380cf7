package extraction

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
	"github.com/ctxatlas/atlas/pkg/llm"
	"github.com/ctxatlas/atlas/pkg/masking"
	"github.com/ctxatlas/atlas/pkg/payloadstore"
)

// stubExtractor lets tests drive the pipeline's validation/resolution/
// write stages without making real chat-completion calls.
type stubExtractor struct{ result *llm.Result }

func (s *stubExtractor) Extract(ctx context.Context, transcript string, turnIndex int) (*llm.Result, error) {
	return s.result, nil
}

// stubEmbedder returns a fixed-length deterministic vector so cosine
// similarity comparisons in entity resolution are exercised without a
// real embedding backend.
type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func newTestHandler(t *testing.T, result *llm.Result) (*Handler, *eventstore.Store) {
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
		llm: &stubExtractor{result: result}, embed: stubEmbedder{}, mask: masking.NewService(),
		llmCfg: config.DefaultLLMConfig(), embCfg: config.DefaultEmbeddingConfig(),
		turnThreshold: config.DefaultQueueConfig().SessionTurnThreshold,
	}
	return h, events
}

func appendTestEvent(t *testing.T, events *eventstore.Store, ev *domain.Event) {
	t.Helper()
	ok, err := events.Append(context.Background(), ev)
	require.NoError(t, err)
	require.True(t, ok)
}

func appendTurn(t *testing.T, events *eventstore.Store, payloads *payloadstore.Store, eventID, sessionID, role, content string, occurredAt time.Time) *domain.Event {
	t.Helper()
	raw, err := json.Marshal(turnPayload{Role: role, Content: content})
	require.NoError(t, err)
	pseudonym, err := payloads.Put(context.Background(), "user:"+sessionID, raw)
	require.NoError(t, err)

	ev := &domain.Event{
		EventID: eventID, EventType: "conversation.turn", OccurredAt: occurredAt,
		SessionID: sessionID, AgentID: "agent-1", TraceID: "trace-1", PayloadRef: pseudonym, SchemaVersion: 1,
	}
	appendTestEvent(t, events, ev)
	return ev
}

func TestHandle_SessionEndedTriggersExtractionAndWritesPreference(t *testing.T) {
	result := &llm.Result{
		Preferences: []llm.ExtractedPreference{{
			Category: "communication", Key: "tone", Polarity: "positive",
			Strength: 0.8, Confidence: 0.7, Scope: "global",
			EvidenceQuote: "I really like a casual tone",
		}},
		ModelUsed: "stub-model",
	}
	h, events := newTestHandler(t, result)
	ctx := context.Background()
	sessionID := "sess-extract-1"
	now := time.Now().UTC()

	appendTurn(t, events, h.payloads, "evt-turn-1", sessionID, "user", "I really like a casual tone", now)
	endEvt := &domain.Event{
		EventID: "evt-end", EventType: domain.SessionEndedEventType, OccurredAt: now.Add(time.Second),
		SessionID: sessionID, AgentID: "agent-1", TraceID: "trace-1", PayloadRef: "ref-end", SchemaVersion: 1,
	}
	appendTestEvent(t, events, endEvt)

	require.NoError(t, h.Handle(ctx, endEvt.EventID, map[string]string{"event_id": endEvt.EventID}))

	active, err := h.graph.FindActivePreference(ctx, "tone", domain.PreferenceCategoryCommunication, domain.ScopeGlobal, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PolarityPositive, active.Polarity)
	assert.Equal(t, domain.SourceImplicitIntentional, active.Source)
}

func TestHandle_HallucinatedEvidenceQuoteIsDropped(t *testing.T) {
	result := &llm.Result{
		Preferences: []llm.ExtractedPreference{{
			Category: "communication", Key: "tone", Polarity: "positive",
			Strength: 0.8, Confidence: 0.7, Scope: "global",
			EvidenceQuote: "this sentence never appears anywhere in the transcript",
		}},
		ModelUsed: "stub-model",
	}
	h, events := newTestHandler(t, result)
	ctx := context.Background()
	sessionID := "sess-extract-hallucinated"
	now := time.Now().UTC()

	appendTurn(t, events, h.payloads, "evt-turn-1", sessionID, "user", "I really like a casual tone", now)
	endEvt := &domain.Event{
		EventID: "evt-end", EventType: domain.SessionEndedEventType, OccurredAt: now.Add(time.Second),
		SessionID: sessionID, AgentID: "agent-1", TraceID: "trace-1", PayloadRef: "ref-end", SchemaVersion: 1,
	}
	appendTestEvent(t, events, endEvt)

	require.NoError(t, h.Handle(ctx, endEvt.EventID, map[string]string{"event_id": endEvt.EventID}))

	_, err := h.graph.FindActivePreference(ctx, "tone", domain.PreferenceCategoryCommunication, domain.ScopeGlobal, nil)
	assert.Error(t, err)
}

func TestHandle_NonTriggeringEventIsAckedWithoutAction(t *testing.T) {
	h, events := newTestHandler(t, &llm.Result{})
	ctx := context.Background()
	ev := appendTurn(t, events, h.payloads, "evt-noop", "sess-extract-2", "user", "hello", time.Now().UTC())

	err := h.Handle(ctx, ev.EventID, map[string]string{"event_id": ev.EventID})
	assert.NoError(t, err)
}

func TestHandle_MissingDocumentIsAckedAsPoison(t *testing.T) {
	h, _ := newTestHandler(t, &llm.Result{})
	err := h.Handle(context.Background(), "does-not-exist", map[string]string{"event_id": "does-not-exist"})
	assert.NoError(t, err)
}

func TestConfidenceGate_RejectsBelowFloor(t *testing.T) {
	_, ok := confidenceGate(0.2, domain.SourceImplicitIntentional)
	assert.False(t, ok)
}

func TestConfidenceGate_ClampsToCeiling(t *testing.T) {
	confidence, ok := confidenceGate(0.99, domain.SourceImplicitIntentional)
	require.True(t, ok)
	assert.InDelta(t, domain.SourceImplicitIntentional.ConfidenceCeiling(), confidence, 1e-9)
}
