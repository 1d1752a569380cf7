package llm

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const patternFunctionName = "confirm_behavioral_pattern"

const patternSystemPrompt = `You review a statistical summary of one agent's recurring behavior across sessions and decide whether it constitutes a genuine behavioral pattern. Only confirm a pattern type that the evidence actually supports; if the statistics are too thin or ambiguous, set confirmed to false.`

// PatternCandidate is the statistical evidence handed to the model:
// frequency, co-occurrence, and centrality signals already computed
// from the Graph/Event Store, never the raw event payloads.
type PatternCandidate struct {
	AgentID      string
	GuessedType  string
	EventTypes   []string
	Frequency    int
	SessionCount int
}

// PatternConfirmation is the model's verdict on a PatternCandidate.
type PatternConfirmation struct {
	Confirmed   bool    `json:"confirmed"`
	PatternType string  `json:"pattern_type"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

func patternParameters() *jsonschema.Definition {
	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"confirmed":    {Type: jsonschema.Boolean},
			"pattern_type": {Type: jsonschema.String, Enum: []string{"delegation", "escalation", "routine", "avoidance", "exploration", "specialization"}},
			"description":  {Type: jsonschema.String, Description: "one or two sentences describing the observed behavior"},
			"confidence":   {Type: jsonschema.Number},
		},
		Required: []string{"confirmed", "pattern_type", "description", "confidence"},
	}
}

func buildPatternPrompt(c PatternCandidate) string {
	return fmt.Sprintf(
		"Agent: %s\nCandidate pattern type: %s\nEvent types involved: %v\nObserved frequency: %d occurrences across %d sessions",
		c.AgentID, c.GuessedType, c.EventTypes, c.Frequency, c.SessionCount,
	)
}

// ConfirmPattern runs the Sonnet-class confirmation call the
// consolidation consumer uses before writing a BehavioralPattern node:
// the statistical candidate is accepted, rejected, or retyped by the
// model rather than written on statistics alone.
func (c *Client) ConfirmPattern(ctx context.Context, candidate PatternCandidate) (*PatternConfirmation, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	fn := openai.FunctionDefinition{Name: patternFunctionName, Parameters: patternParameters()}
	resp, err := c.openai.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: c.cfg.PatternModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: patternSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPatternPrompt(candidate)},
		},
		Tools: []openai.Tool{{Type: openai.ToolTypeFunction, Function: &fn}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: patternFunctionName},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm: pattern confirmation chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("llm: pattern confirmation did not return a function call")
	}

	var confirmation PatternConfirmation
	args := resp.Choices[0].Message.ToolCalls[0].Function.Arguments
	if err := json.Unmarshal([]byte(args), &confirmation); err != nil {
		return nil, fmt.Errorf("llm: invalid pattern confirmation arguments: %w", err)
	}
	return &confirmation, nil
}
