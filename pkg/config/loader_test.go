package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultRetentionConfig(), cfg.Retention)
	assert.Equal(t, DefaultQueueConfig(), cfg.Queue)
}

func TestInitialize_YAMLOverridesMergeOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
queue:
  projection_workers: 7
retention:
  hot_days: 14
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "atlas.yaml"), []byte(yamlContent), 0o644))

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Queue.ProjectionWorkers)
	// unset fields keep their built-in default
	assert.Equal(t, DefaultQueueConfig().EnrichmentWorkers, cfg.Queue.EnrichmentWorkers)
	assert.Equal(t, 14, cfg.Retention.HotDays)
	assert.Equal(t, DefaultRetentionConfig().CeilingDays, cfg.Retention.CeilingDays)
}

func TestInitialize_EnvExpansion(t *testing.T) {
	t.Setenv("ATLAS_TEST_REDIS_ADDR", "redis.internal:6380")

	dir := t.TempDir()
	yamlContent := `
event_store:
  redis_addr: ${ATLAS_TEST_REDIS_ADDR}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "atlas.yaml"), []byte(yamlContent), 0o644))

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6380", cfg.EventStore.RedisAddr)
}

func TestInitialize_InvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
retention:
  hot_days: 30
  ceiling_days: 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "atlas.yaml"), []byte(yamlContent), 0o644))

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestInitialize_InvalidYAMLRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "atlas.yaml"), []byte("not: valid: yaml: ["), 0o644))

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestDefaults_AreInternallyConsistent(t *testing.T) {
	r := DefaultRetentionConfig()
	assert.Less(t, r.HotDays, r.CeilingDays)
	assert.Less(t, time.Duration(0), time.Duration(r.ArchiveDays))
}
