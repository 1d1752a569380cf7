package config

import "time"

// QueueConfig controls the worker concurrency and consumer-group behavior
// of the four consolidation consumers (projection, extraction, enrichment,
// consolidation).
type QueueConfig struct {
	// ProjectionWorkers is the number of workers sharing the projection
	// consumer group. Each stream entry is delivered to exactly one.
	ProjectionWorkers int `yaml:"projection_workers"`

	// EnrichmentWorkers is the number of workers sharing the enrichment
	// consumer group.
	EnrichmentWorkers int `yaml:"enrichment_workers"`

	// ExtractionWorkers is the number of workers processing session
	// extraction jobs concurrently.
	ExtractionWorkers int `yaml:"extraction_workers"`

	// ConsolidationInterval is the period of the scheduled consolidation
	// pass (default every 6 hours).
	ConsolidationInterval time.Duration `yaml:"consolidation_interval"`

	// ReflectionThreshold is the cumulative importance_score sum that
	// triggers an immediate consolidation pass outside the schedule.
	ReflectionThreshold int `yaml:"reflection_threshold"`

	// SessionTurnThreshold is the per-session turn count that triggers
	// extraction even without a session-end event.
	SessionTurnThreshold int `yaml:"session_turn_threshold"`

	// GracefulShutdownTimeout bounds how long Stop() waits for in-flight
	// work to drain before returning.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// OrphanDetectionInterval is how often the pending-entry list is
	// scanned for stale/unacked entries past OrphanThreshold.
	OrphanDetectionInterval time.Duration `yaml:"orphan_detection_interval"`

	// OrphanThreshold is how long an entry can sit unacknowledged before
	// it is considered orphaned and eligible for redelivery.
	OrphanThreshold time.Duration `yaml:"orphan_threshold"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		ProjectionWorkers:       3,
		EnrichmentWorkers:       3,
		ExtractionWorkers:       2,
		ConsolidationInterval:   6 * time.Hour,
		ReflectionThreshold:     150,
		SessionTurnThreshold:    10,
		GracefulShutdownTimeout: 30 * time.Second,
		OrphanDetectionInterval: 1 * time.Minute,
		OrphanThreshold:         5 * time.Minute,
	}
}
