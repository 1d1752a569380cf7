// Package llm adapts the Extraction consumer's four-layer pipeline to
// an OpenAI-compatible function-calling backend: the model is forced to
// call a single structured-output function rather than asked to free-
// write JSON, and every derived fact is required to carry the evidence
// quote the L4 confidence gate and DERIVED_FROM provenance edge need.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ctxatlas/atlas/pkg/config"
)

// ExtractedPreference is one preference fact surfaced by a call to Extract.
type ExtractedPreference struct {
	Category      string  `json:"category"`
	Key           string  `json:"key"`
	Polarity      string  `json:"polarity"`
	Strength      float64 `json:"strength"`
	Confidence    float64 `json:"confidence"`
	Scope         string  `json:"scope"`
	EvidenceQuote string  `json:"evidence_quote"`
}

// ExtractedEntity is one entity mention surfaced by a call to Extract.
type ExtractedEntity struct {
	Name          string `json:"name"`
	EntityType    string `json:"entity_type"`
	EvidenceQuote string `json:"evidence_quote"`
}

// ExtractedSkill is one demonstrated skill surfaced by a call to Extract.
type ExtractedSkill struct {
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Proficiency   string  `json:"proficiency"`
	Confidence    float64 `json:"confidence"`
	EvidenceQuote string  `json:"evidence_quote"`
}

// Result is the parsed, schema-valid output of one extraction call.
type Result struct {
	Preferences []ExtractedPreference `json:"preferences"`
	Entities    []ExtractedEntity     `json:"entities"`
	Skills      []ExtractedSkill      `json:"skills"`
	ModelUsed   string                `json:"-"`
}

// Client is the Extraction consumer's LLM adapter.
type Client struct {
	cfg    *config.LLMConfig
	openai *openai.Client
}

// NewClient builds a Client from the configured API key environment
// variable and optional self-hosted base URL.
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("llm: environment variable %s is not set", cfg.APIKeyEnv)
	}

	oaiCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		oaiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{cfg: cfg, openai: openai.NewClientWithConfig(oaiCfg)}, nil
}

// Extract runs the structured-extraction function call against
// transcript, retrying schema failures up to MaxSchemaRetries and
// escalating to the stronger model if every cheap-model attempt yields
// a hallucinated evidence_quote (one that doesn't actually appear in
// transcript, allowing for the configured fuzzy-match tolerance).
func (c *Client) Extract(ctx context.Context, transcript string, turnIndex int) (*Result, error) {
	result, err := c.extractWithModel(ctx, c.cfg.CheapModel, transcript, turnIndex)
	if err == nil {
		return result, nil
	}

	slog.Warn("extraction failed on cheap model, escalating", "error", err, "model", c.cfg.EscalationModel)
	return c.extractWithModel(ctx, c.cfg.EscalationModel, transcript, turnIndex)
}

func (c *Client) extractWithModel(ctx context.Context, model, transcript string, turnIndex int) (*Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	fn := openai.FunctionDefinition{
		Name:       extractionFunctionName,
		Parameters: extractionParameters(),
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxSchemaRetries; attempt++ {
		resp, err := c.openai.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(transcript, turnIndex)},
			},
			Tools: []openai.Tool{{Type: openai.ToolTypeFunction, Function: &fn}},
			ToolChoice: openai.ToolChoice{
				Type:     openai.ToolTypeFunction,
				Function: openai.ToolFunction{Name: extractionFunctionName},
			},
		})
		if err != nil {
			lastErr = fmt.Errorf("llm: chat completion: %w", err)
			continue
		}

		result, err := parseAndValidate(resp, transcript, c.cfg.EvidenceQuoteMinRatio)
		if err != nil {
			lastErr = err
			continue
		}
		result.ModelUsed = model
		return result, nil
	}

	return nil, fmt.Errorf("llm: extraction with model %s exhausted %d retries: %w", model, c.cfg.MaxSchemaRetries, lastErr)
}

func parseAndValidate(resp openai.ChatCompletionResponse, transcript string, minRatio float64) (*Result, error) {
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("llm: model did not return a function call")
	}

	args := resp.Choices[0].Message.ToolCalls[0].Function.Arguments
	var result Result
	if err := json.Unmarshal([]byte(args), &result); err != nil {
		return nil, fmt.Errorf("llm: invalid function arguments: %w", err)
	}

	for _, p := range result.Preferences {
		if !evidenceSupported(transcript, p.EvidenceQuote, minRatio) {
			return nil, fmt.Errorf("llm: preference %q evidence_quote not supported by transcript", p.Key)
		}
	}
	for _, e := range result.Entities {
		if !evidenceSupported(transcript, e.EvidenceQuote, minRatio) {
			return nil, fmt.Errorf("llm: entity %q evidence_quote not supported by transcript", e.Name)
		}
	}
	for _, s := range result.Skills {
		if !evidenceSupported(transcript, s.EvidenceQuote, minRatio) {
			return nil, fmt.Errorf("llm: skill %q evidence_quote not supported by transcript", s.Name)
		}
	}

	return &result, nil
}

// evidenceSupported is the hallucination gate: a quote passes if it (or
// most of it) appears verbatim in the transcript, tolerating minor
// paraphrase via a trigram containment ratio rather than requiring an
// exact substring match.
func evidenceSupported(transcript, quote string, minRatio float64) bool {
	quote = strings.TrimSpace(quote)
	if quote == "" {
		return false
	}
	if strings.Contains(transcript, quote) {
		return true
	}
	return QuoteRatio(transcript, quote) >= minRatio
}

// QuoteRatio is the trigram containment ratio underlying the
// hallucination gate, exported so callers that need to attribute a
// quote to one specific passage (rather than just pass/fail it against
// a whole transcript) can rank candidates by the same measure.
func QuoteRatio(haystack, needle string) float64 {
	return trigramContainment(haystack, needle)
}

func trigramContainment(haystack, needle string) float64 {
	needleTrigrams := trigrams(needle)
	if len(needleTrigrams) == 0 {
		return 0
	}
	haystackSet := make(map[string]bool, len(haystack))
	for t := range trigrams(haystack) {
		haystackSet[t] = true
	}
	matched := 0
	for t := range needleTrigrams {
		if haystackSet[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(needleTrigrams))
}

func trigrams(s string) map[string]bool {
	s = strings.ToLower(s)
	out := make(map[string]bool)
	for i := 0; i+3 <= len(s); i++ {
		out[s[i:i+3]] = true
	}
	return out
}
