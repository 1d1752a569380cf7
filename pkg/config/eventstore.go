package config

import "time"

// EventStoreConfig configures the Redis-backed hot stream/dedup layer and
// the Postgres-backed document/secondary-index layer of the Event Store.
type EventStoreConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPassword string `yaml:"redis_password"`

	// StreamKeyPrefix namespaces the global and per-session stream keys.
	StreamKeyPrefix string `yaml:"stream_key_prefix"`

	// ConsumerGroup is the shared consumer-group name; each consumer
	// component (projection, enrichment) uses its own group derived from
	// this prefix plus its component name.
	ConsumerGroup string `yaml:"consumer_group"`

	// DedupTTL is how long an event_id is retained in the dedup sorted
	// set after first being seen.
	DedupTTL time.Duration `yaml:"dedup_ttl"`

	// BlockTimeout is how long XREADGROUP blocks waiting for new entries.
	BlockTimeout time.Duration `yaml:"block_timeout"`

	// AppendFsync is "everysec" (default, <=1s data-loss window) or
	// "always" (synchronous per-write fsync).
	AppendFsync string `yaml:"append_fsync"`

	// ProjectionMarkerTTL is how long the Projection consumer's
	// completion marker survives in Redis. Enrichment polls this marker
	// as a deterministic read-after-acknowledge handshake, so it never
	// processes an event before Projection has.
	ProjectionMarkerTTL time.Duration `yaml:"projection_marker_ttl"`
}

// DefaultEventStoreConfig returns the built-in Event Store defaults.
func DefaultEventStoreConfig() *EventStoreConfig {
	return &EventStoreConfig{
		RedisAddr:       "localhost:6379",
		RedisDB:         0,
		StreamKeyPrefix: "atlas:events",
		ConsumerGroup:   "atlas",
		DedupTTL:        90 * 24 * time.Hour,
		BlockTimeout:        5 * time.Second,
		AppendFsync:         "everysec",
		ProjectionMarkerTTL: 24 * time.Hour,
	}
}
