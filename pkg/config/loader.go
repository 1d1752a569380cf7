package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// AtlasYAMLConfig represents the complete atlas.yaml file structure. Every
// section is optional; omitted sections fall back to their Default*Config.
type AtlasYAMLConfig struct {
	EventStore *EventStoreConfig `yaml:"event_store"`
	GraphStore *GraphStoreConfig `yaml:"graph_store"`
	Queue      *QueueConfig      `yaml:"queue"`
	Retention  *RetentionConfig  `yaml:"retention"`
	Scoring    *ScoringConfig    `yaml:"scoring"`
	Intent     *IntentConfig     `yaml:"intent"`
	LLM        *LLMConfig        `yaml:"llm"`
	Embedding  *EmbeddingConfig  `yaml:"embedding"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
//
// Steps performed:
//  1. Load atlas.yaml from configDir (missing file is tolerated; built-in
//     defaults apply).
//  2. Expand environment variables before parsing.
//  3. Merge user-provided sections onto built-in defaults.
//  4. Validate all configuration.
//  5. Return Config ready for use.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized",
		"projection_workers", stats.ProjectionWorkers,
		"enrichment_workers", stats.EnrichmentWorkers,
		"retention_hot_days", stats.RetentionHotDays)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	yamlCfg, err := loader.loadAtlasYAML()
	if err != nil {
		return nil, err
	}

	eventStore := DefaultEventStoreConfig()
	if yamlCfg.EventStore != nil {
		if err := mergo.Merge(eventStore, yamlCfg.EventStore, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge event_store config: %w", err)
		}
	}

	graphStore := DefaultGraphStoreConfig()
	if yamlCfg.GraphStore != nil {
		if err := mergo.Merge(graphStore, yamlCfg.GraphStore, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge graph_store config: %w", err)
		}
	}

	queue := DefaultQueueConfig()
	if yamlCfg.Queue != nil {
		if err := mergo.Merge(queue, yamlCfg.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	retention := DefaultRetentionConfig()
	if yamlCfg.Retention != nil {
		if err := mergo.Merge(retention, yamlCfg.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}

	scoring := DefaultScoringConfig()
	if yamlCfg.Scoring != nil {
		if err := mergo.Merge(scoring, yamlCfg.Scoring, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge scoring config: %w", err)
		}
	}

	intent := DefaultIntentConfig()
	if yamlCfg.Intent != nil {
		if err := mergo.Merge(intent, yamlCfg.Intent, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge intent config: %w", err)
		}
	}

	llmCfg := DefaultLLMConfig()
	if yamlCfg.LLM != nil {
		if err := mergo.Merge(llmCfg, yamlCfg.LLM, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge llm config: %w", err)
		}
	}

	embedding := DefaultEmbeddingConfig()
	if yamlCfg.Embedding != nil {
		if err := mergo.Merge(embedding, yamlCfg.Embedding, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge embedding config: %w", err)
		}
	}

	return &Config{
		configDir:  configDir,
		EventStore: eventStore,
		GraphStore: graphStore,
		Queue:      queue,
		Retention:  retention,
		Scoring:    scoring,
		Intent:     intent,
		LLM:        llmCfg,
		Embedding:  embedding,
	}, nil
}

func validate(cfg *Config) error {
	v := NewValidator(cfg)
	return v.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadAtlasYAML() (*AtlasYAMLConfig, error) {
	var cfg AtlasYAMLConfig

	path := filepath.Join(l.configDir, "atlas.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file: every section uses its Default*Config.
			return &cfg, nil
		}
		return nil, NewLoadError("atlas.yaml", err)
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, NewLoadError("atlas.yaml", fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	return &cfg, nil
}
