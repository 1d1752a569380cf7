package config

import "time"

// ScoringConfig configures the decay-score weights and half-lives.
type ScoringConfig struct {
	// WeightRecency, WeightImportance, WeightRelevance, and
	// WeightUserAffinity are w_r, w_i, w_v, w_u.
	WeightRecency      float64 `yaml:"weight_recency"`
	WeightImportance   float64 `yaml:"weight_importance"`
	WeightRelevance    float64 `yaml:"weight_relevance"`
	WeightUserAffinity float64 `yaml:"weight_user_affinity"`

	// EventHalfLife is S_base for Event nodes (default 168h).
	EventHalfLife time.Duration `yaml:"event_half_life"`

	// PreferenceHalfLives maps a Preference category's half-life
	// override; unlisted categories fall back to DefaultPreferenceHalfLife.
	PreferenceHalfLives map[string]time.Duration `yaml:"preference_half_lives"`

	// DefaultPreferenceHalfLife is used for Preference categories not
	// present in PreferenceHalfLives.
	DefaultPreferenceHalfLife time.Duration `yaml:"default_preference_half_life"`

	// AccessBoost is S_boost: the half-life extension applied on access
	// (default 24h).
	AccessBoost time.Duration `yaml:"access_boost"`

	// SessionProximityCurrent/Recent/Older are the session_proximity
	// constants in user_affinity (1.0 / 0.7 / 0.3).
	SessionProximityCurrent float64 `yaml:"session_proximity_current"`
	SessionProximityRecent  float64 `yaml:"session_proximity_recent"`
	SessionProximityOlder   float64 `yaml:"session_proximity_older"`

	// SessionProximityRecentWindow is the "≤7d" window defining "recent".
	SessionProximityRecentWindow time.Duration `yaml:"session_proximity_recent_window"`
}

// DefaultScoringConfig returns the built-in scoring defaults.
func DefaultScoringConfig() *ScoringConfig {
	return &ScoringConfig{
		WeightRecency:      1.0,
		WeightImportance:   1.0,
		WeightRelevance:    1.0,
		WeightUserAffinity: 0.5,
		EventHalfLife:      168 * time.Hour,
		PreferenceHalfLives: map[string]time.Duration{
			"tool":          30 * 24 * time.Hour,
			"workflow":      14 * time.Hour * 24,
			"communication": 7 * 24 * time.Hour,
		},
		DefaultPreferenceHalfLife:     30 * 24 * time.Hour,
		AccessBoost:                   24 * time.Hour,
		SessionProximityCurrent:       1.0,
		SessionProximityRecent:        0.7,
		SessionProximityOlder:         0.3,
		SessionProximityRecentWindow:  7 * 24 * time.Hour,
	}
}
