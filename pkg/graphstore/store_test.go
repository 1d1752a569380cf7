package graphstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
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

	return New(dbClient.Pool, config.DefaultGraphStoreConfig())
}

func TestMergeEntity_IncrementsMentionCountOnRepeat(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	e := &domain.EntityNode{EntityID: "ent-1", Name: "Project Atlas", EntityType: domain.EntityTypeConcept, FirstSeen: now}
	require.NoError(t, store.MergeEntity(ctx, e))
	require.NoError(t, store.MergeEntity(ctx, e))

	var mentionCount int
	row := store.pool.QueryRow(ctx, `SELECT mention_count FROM entities WHERE entity_id = $1`, "ent-1")
	require.NoError(t, row.Scan(&mentionCount))
	assert.Equal(t, 2, mentionCount)
}

func TestTombstoneEntity_ScrubsNameButKeepsRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.MergeEntity(ctx, &domain.EntityNode{
		EntityID: "ent-2", Name: "Jane Doe", EntityType: domain.EntityTypeUser, FirstSeen: time.Now().UTC(),
	}))
	require.NoError(t, store.TombstoneEntity(ctx, "ent-2"))

	var name string
	var tombstoned bool
	row := store.pool.QueryRow(ctx, `SELECT name, tombstoned FROM entities WHERE entity_id = $1`, "ent-2")
	require.NoError(t, row.Scan(&name, &tombstoned))
	assert.Equal(t, "[erased]", name)
	assert.True(t, tombstoned)

	// A tombstoned entity no longer accepts merges.
	require.NoError(t, store.MergeEntity(ctx, &domain.EntityNode{
		EntityID: "ent-2", Name: "Jane Doe", EntityType: domain.EntityTypeUser, FirstSeen: time.Now().UTC(),
	}))
	row = store.pool.QueryRow(ctx, `SELECT name FROM entities WHERE entity_id = $1`, "ent-2")
	require.NoError(t, row.Scan(&name))
	assert.Equal(t, "[erased]", name)
}

func TestPreferenceLifecycle_ReinforceThenSupersede(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	original := &domain.PreferenceNode{
		PreferenceID: "pref-1", Category: domain.PreferenceCategoryCommunication, Key: "tone",
		Polarity: domain.PolarityPositive, Strength: 0.6, Confidence: 0.5, Source: domain.SourceExplicit,
		Scope: domain.ScopeGlobal, ObservationCount: 1, FirstObservedAt: now, LastConfirmedAt: now,
	}
	require.NoError(t, store.InsertPreference(ctx, original))

	reinforced := *original
	reinforced.LastConfirmedAt = now.Add(time.Hour)
	reinforced.Confidence = 0.7
	require.NoError(t, store.ReinforcePreference(ctx, "pref-1", reinforced))

	active, err := store.FindActivePreference(ctx, "tone", domain.PreferenceCategoryCommunication, domain.ScopeGlobal, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, active.ObservationCount)
	assert.InDelta(t, 0.7, active.Confidence, 0.001)

	newer := &domain.PreferenceNode{
		PreferenceID: "pref-2", Category: domain.PreferenceCategoryCommunication, Key: "tone",
		Polarity: domain.PolarityNegative, Strength: 0.8, Confidence: 0.9, Source: domain.SourceExplicit,
		Scope: domain.ScopeGlobal, ObservationCount: 1, FirstObservedAt: now, LastConfirmedAt: now.Add(2 * time.Hour),
	}
	require.NoError(t, store.InsertPreference(ctx, newer))
	require.NoError(t, store.SupersedePreference(ctx, "pref-1", "pref-2"))

	active, err = store.FindActivePreference(ctx, "tone", domain.PreferenceCategoryCommunication, domain.ScopeGlobal, nil)
	require.NoError(t, err)
	assert.Equal(t, "pref-2", active.PreferenceID)
}

func TestGetSubgraph_FollowsEdgesWithinBounds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.MergeEntity(ctx, &domain.EntityNode{EntityID: "ent-3", Name: "x", EntityType: domain.EntityTypeConcept, FirstSeen: now}))
	require.NoError(t, store.InsertPreference(ctx, &domain.PreferenceNode{
		PreferenceID: "pref-3", Category: domain.PreferenceCategoryTool, Key: "editor",
		Polarity: domain.PolarityPositive, Strength: 0.5, Confidence: 0.5, Source: domain.SourceImplicitIntentional,
		Scope: domain.ScopeGlobal, ObservationCount: 1, FirstObservedAt: now, LastConfirmedAt: now,
	}))
	require.NoError(t, store.CreateHasPreference(ctx, domain.HasPreferenceEdge{UserEntityID: "ent-3", PreferenceID: "pref-3"}))

	result, err := store.GetSubgraph(ctx, []SeedRef{{ID: "ent-3", Kind: domain.NodeKindEntity}}, nil, 2, 50)
	require.NoError(t, err)
	assert.Contains(t, result.NodeIDs[domain.NodeKindPreference], "pref-3")
	require.Len(t, result.Edges, 1)
	assert.Equal(t, domain.EdgeHasPreference, result.Edges[0].Type)
}

func TestPruneWeakSimilarEdges_DropsBelowFloor(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSimilarTo(ctx, domain.SimilarToEdge{FromEventID: "evt-a", ToEventID: "evt-b", Score: 0.2}))
	_, err := store.pool.Exec(ctx, `UPDATE similar_to_edges SET created_at = now() - interval '48 hours'`)
	require.NoError(t, err)

	n, err := store.PruneWeakSimilarEdges(ctx, time.Now().UTC().Add(-24*time.Hour), 0.7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
