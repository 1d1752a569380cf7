package config

// Config is the umbrella configuration object returned by Initialize and
// threaded through cmd/atlasd into every component constructor.
type Config struct {
	configDir string

	EventStore *EventStoreConfig
	GraphStore *GraphStoreConfig
	Queue      *QueueConfig
	Retention  *RetentionConfig
	Scoring    *ScoringConfig
	Intent     *IntentConfig
	LLM        *LLMConfig
	Embedding  *EmbeddingConfig
}

// ConfigDir returns the directory configuration was loaded from.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// Stats summarizes the loaded configuration for startup logging.
type Stats struct {
	ProjectionWorkers int
	EnrichmentWorkers int
	RetentionHotDays  int
}

// Stats returns a summary of loaded configuration.
func (c *Config) Stats() Stats {
	return Stats{
		ProjectionWorkers: c.Queue.ProjectionWorkers,
		EnrichmentWorkers: c.Queue.EnrichmentWorkers,
		RetentionHotDays:  c.Retention.HotDays,
	}
}
