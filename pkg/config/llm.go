package config

import "time"

// LLMConfig configures the LLM extraction service adapter (go-openai
// function-calling).
type LLMConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url,omitempty"`

	// CheapModel is the default, lower-cost model used for extraction.
	CheapModel string `yaml:"cheap_model"`

	// EscalationModel is used when extraction confidence is low and a
	// retry with a stronger model is warranted.
	EscalationModel string `yaml:"escalation_model"`

	// PatternModel is the Sonnet-class model used for cross-session
	// pattern confirmation/description in the consolidation consumer.
	PatternModel string `yaml:"pattern_model"`

	// PromptVersion is stamped onto every DERIVED_FROM edge produced by
	// this adapter build.
	PromptVersion string `yaml:"prompt_version"`

	MaxSchemaRetries int           `yaml:"max_schema_retries"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`

	// EvidenceQuoteMinRatio is the fuzzy substring match ratio a
	// source_quote must clear against the reconstructed transcript
	// (hallucination gate, default 0.8).
	EvidenceQuoteMinRatio float64 `yaml:"evidence_quote_min_ratio"`
}

// DefaultLLMConfig returns the built-in LLM adapter defaults.
func DefaultLLMConfig() *LLMConfig {
	return &LLMConfig{
		APIKeyEnv:             "OPENAI_API_KEY",
		CheapModel:            "gpt-4o-mini",
		EscalationModel:       "gpt-4o",
		PatternModel:          "gpt-4o",
		PromptVersion:         "v1",
		MaxSchemaRetries:      3,
		RequestTimeout:        30 * time.Second,
		EvidenceQuoteMinRatio: 0.8,
	}
}
