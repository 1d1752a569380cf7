package config

// RetentionConfig controls Event Store tiering and Graph Store active
// forgetting thresholds.
type RetentionConfig struct {
	// HotDays is Thot: stream entries + documents both present.
	HotDays int `yaml:"hot_days"`

	// CeilingDays is Tceiling: beyond this, documents are deleted from
	// the Event Store (Graph Store summary nodes preserve residue).
	CeilingDays int `yaml:"ceiling_days"`

	// WarmHours is the age at which SIMILAR_TO edges below
	// WarmSimilarityFloor start being dropped (24h in the four-tier
	// table).
	WarmHours int `yaml:"warm_hours"`

	// WarmSimilarityFloor is the SIMILAR_TO score floor below which
	// warm-tier edges are pruned.
	WarmSimilarityFloor float64 `yaml:"warm_similarity_floor"`

	// ColdDays is the age at which the cold-tier Event-retention rule
	// (importance_score >= ColdImportanceFloor OR access_count >=
	// ColdAccessFloor) starts applying.
	ColdDays int `yaml:"cold_days"`

	// ColdImportanceFloor and ColdAccessFloor are the OR'd retention
	// conditions for cold-tier Event nodes.
	ColdImportanceFloor int `yaml:"cold_importance_floor"`
	ColdAccessFloor     int `yaml:"cold_access_floor"`

	// ArchiveDays is the age beyond which Event nodes are removed from
	// the graph unconditionally (summary persists).
	ArchiveDays int `yaml:"archive_days"`
}

// DefaultRetentionConfig returns the built-in four-tier retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		HotDays:             7,
		CeilingDays:         90,
		WarmHours:           24,
		WarmSimilarityFloor: 0.7,
		ColdDays:            7,
		ColdImportanceFloor: 5,
		ColdAccessFloor:     3,
		ArchiveDays:         30,
	}
}
