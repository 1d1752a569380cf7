package config

// IntentConfig configures query-intent classification and the
// edge-weight matrix used to bias traversal.
type IntentConfig struct {
	// DecompositionThreshold is the minimum confidence an intent must
	// clear to be included in the multi-intent traversal set (default 0.3).
	DecompositionThreshold float64 `yaml:"decomposition_threshold"`

	// DefaultMaxDepth and DefaultMaxDepthCap are the traversal depth
	// default (3) and hard cap (10).
	DefaultMaxDepth    int `yaml:"default_max_depth"`
	DefaultMaxDepthCap int `yaml:"default_max_depth_cap"`

	// MultiSignalBoost is the 0.2 coefficient applied to the sum of
	// non-maximal per-intent scores when merging traversal results.
	MultiSignalBoost float64 `yaml:"multi_signal_boost"`

	// EdgeWeightOverrides lets deployments override individual
	// INTENT_WEIGHTS[intent][edge_type] cells without redefining the
	// whole matrix; unset cells keep the built-in table from
	// pkg/scoring.
	EdgeWeightOverrides map[string]map[string]float64 `yaml:"edge_weight_overrides"`
}

// DefaultIntentConfig returns the built-in intent-classification defaults.
func DefaultIntentConfig() *IntentConfig {
	return &IntentConfig{
		DecompositionThreshold: 0.3,
		DefaultMaxDepth:        3,
		DefaultMaxDepthCap:     10,
		MultiSignalBoost:       0.2,
	}
}
