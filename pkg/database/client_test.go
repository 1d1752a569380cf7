package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestClient spins up a disposable Postgres container, applies the
// embedded migrations against it, and returns a pooled client.
func newTestClient(t *testing.T) *Client {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := Config{
		Host:     host,
		Port:     port.Int(),
		User:     "test",
		Password: "test",
		Database: "test",
		SSLMode:  "disable",
	}

	client, err := NewClient(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

func TestNewClient_AppliesMigrationsAndConnects(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	health, err := Health(ctx, client.Pool)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Greater(t, health.MaxConns, int32(0))

	var tableCount int
	err = client.Pool.QueryRow(ctx,
		`SELECT count(*) FROM information_schema.tables WHERE table_name = 'events'`,
	).Scan(&tableCount)
	require.NoError(t, err)
	assert.Equal(t, 1, tableCount)
}

func TestEventsFullTextSearch(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	insert := `INSERT INTO events
		(event_id, event_type, occurred_at, session_id, agent_id, trace_id, payload_ref, summary)
		VALUES ($1, $2, now(), $3, $4, $5, $6, $7)`

	_, err := client.Pool.Exec(ctx, insert,
		"evt-1", "tool.call.completed", "sess-1", "agent-1", "trace-1", "payload-1",
		"critical error in production cluster with pod failures")
	require.NoError(t, err)

	_, err = client.Pool.Exec(ctx, insert,
		"evt-2", "tool.call.completed", "sess-1", "agent-1", "trace-1", "payload-2",
		"warning: high memory usage detected")
	require.NoError(t, err)

	var eventID string
	err = client.Pool.QueryRow(ctx,
		`SELECT event_id FROM events WHERE to_tsvector('english', summary) @@ to_tsquery('english', $1)`,
		"error & production",
	).Scan(&eventID)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", eventID)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Host: "localhost", Port: 5432, User: "test", Password: "test",
				Database: "test", SSLMode: "disable", MaxConns: 10, MinConns: 2,
			},
		},
		{
			name:    "missing password",
			cfg:     Config{Host: "localhost", Port: 5432, User: "test", Database: "test", MaxConns: 10},
			wantErr: true,
		},
		{
			name:    "min conns exceed max conns",
			cfg:     Config{Host: "localhost", Port: 5432, User: "test", Password: "test", Database: "test", MaxConns: 5, MinConns: 10},
			wantErr: true,
		},
		{
			name:    "zero max conns",
			cfg:     Config{Host: "localhost", Port: 5432, User: "test", Password: "test", Database: "test", MaxConns: 0},
			wantErr: true,
		},
		{
			name:    "negative min conns",
			cfg:     Config{Host: "localhost", Port: 5432, User: "test", Password: "test", Database: "test", MaxConns: 10, MinConns: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
