package payloadstore

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

	return New(dbClient.Pool, config.DefaultPayloadStoreConfig())
}

func TestPutGet_RoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pseudonym, err := store.Put(ctx, "user-1", []byte(`{"tool_input":"rm -rf /tmp/x"}`))
	require.NoError(t, err)
	require.NotEmpty(t, pseudonym)

	plaintext, err := store.Get(ctx, pseudonym)
	require.NoError(t, err)
	assert.Equal(t, `{"tool_input":"rm -rf /tmp/x"}`, string(plaintext))
}

func TestRevokeUserKeys_ShredsFuturePayloadsUndecryptable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pseudonym, err := store.Put(ctx, "user-2", []byte("secret turn content"))
	require.NoError(t, err)

	n, err := store.RevokeUserKeys(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Get(ctx, pseudonym)
	assert.ErrorIs(t, err, ErrKeyRevoked)
}

func TestPut_SamePlaintextDifferentCiphertextEachCall(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a, err := store.Put(ctx, "user-3", []byte("same content"))
	require.NoError(t, err)
	b, err := store.Put(ctx, "user-3", []byte("same content"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "each call should mint a distinct pseudonym")
}
