package config

import "time"

// EmbeddingConfig configures the embedding service adapter.
type EmbeddingConfig struct {
	// Dimension is the embedding vector width (default 384).
	Dimension int `yaml:"dimension"`

	// BatchSize is the maximum number of texts embedded per call.
	BatchSize int `yaml:"batch_size"`

	// SimilarityThreshold is the cosine-similarity cutoff above which
	// the enrichment consumer creates a SIMILAR_TO edge (default 0.85).
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// EntityResolutionThreshold is the cosine-similarity cutoff for
	// tier-2 entity resolution (default 0.9).
	EntityResolutionThreshold float64 `yaml:"entity_resolution_threshold"`

	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// DefaultEmbeddingConfig returns the built-in Embedding Service defaults.
func DefaultEmbeddingConfig() *EmbeddingConfig {
	return &EmbeddingConfig{
		Dimension:                 384,
		BatchSize:                 64,
		SimilarityThreshold:       0.85,
		EntityResolutionThreshold: 0.9,
		RequestTimeout:            10 * time.Second,
	}
}
