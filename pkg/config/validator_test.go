package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAll(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "ceiling_days below hot_days is rejected",
			mutate:  func(c *Config) { c.Retention.CeilingDays = c.Retention.HotDays - 1 },
			wantErr: true,
		},
		{
			name:    "negative event half-life rejected",
			mutate:  func(c *Config) { c.Scoring.EventHalfLife = -1 },
			wantErr: true,
		},
		{
			name:    "decomposition threshold out of range rejected",
			mutate:  func(c *Config) { c.Intent.DecompositionThreshold = 1.5 },
			wantErr: true,
		},
		{
			name:    "max_depth_cap below default rejected",
			mutate:  func(c *Config) { c.Intent.DefaultMaxDepthCap = 1; c.Intent.DefaultMaxDepth = 3 },
			wantErr: true,
		},
		{
			name:    "zero projection workers rejected",
			mutate:  func(c *Config) { c.Queue.ProjectionWorkers = 0 },
			wantErr: true,
		},
		{
			name:    "traversal depth above cap rejected",
			mutate:  func(c *Config) { c.GraphStore.MaxTraversalDepth = 11 },
			wantErr: true,
		},
		{
			name:    "similarity threshold out of range rejected",
			mutate:  func(c *Config) { c.Embedding.SimilarityThreshold = 1.1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				EventStore: DefaultEventStoreConfig(),
				GraphStore: DefaultGraphStoreConfig(),
				Queue:      DefaultQueueConfig(),
				Retention:  DefaultRetentionConfig(),
				Scoring:    DefaultScoringConfig(),
				Intent:     DefaultIntentConfig(),
				LLM:        DefaultLLMConfig(),
				Embedding:  DefaultEmbeddingConfig(),
			}
			tt.mutate(cfg)

			err := NewValidator(cfg).ValidateAll()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
