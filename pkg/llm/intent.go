package llm

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const intentFunctionName = "classify_query_intent"

const intentSystemPrompt = `You classify a user's query into a distribution over retrieval intents: why, when, what, related, general, who_is, how_does, personalize. A query can carry more than one intent; assign each a confidence in [0,1]. Leave an intent at 0 when the query gives it no support.`

// IntentScores is the model's confidence distribution over the eight
// fixed intents, used as the fallback when keyword pattern matching in
// pkg/scoring finds nothing.
type IntentScores struct {
	Why         float64 `json:"why"`
	When        float64 `json:"when"`
	What        float64 `json:"what"`
	Related     float64 `json:"related"`
	General     float64 `json:"general"`
	WhoIs       float64 `json:"who_is"`
	HowDoes     float64 `json:"how_does"`
	Personalize float64 `json:"personalize"`
}

func intentParameters() *jsonschema.Definition {
	conf := jsonschema.Definition{Type: jsonschema.Number, Description: "confidence in [0,1]"}
	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"why": conf, "when": conf, "what": conf, "related": conf,
			"general": conf, "who_is": conf, "how_does": conf, "personalize": conf,
		},
		Required: []string{"why", "when", "what", "related", "general", "who_is", "how_does", "personalize"},
	}
}

// ClassifyIntent runs the LLM fallback intent classifier for a query
// the keyword patterns in pkg/scoring didn't confidently match.
func (c *Client) ClassifyIntent(ctx context.Context, query string) (*IntentScores, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	fn := openai.FunctionDefinition{Name: intentFunctionName, Parameters: intentParameters()}
	resp, err := c.openai.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: c.cfg.CheapModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: intentSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		Tools: []openai.Tool{{Type: openai.ToolTypeFunction, Function: &fn}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: intentFunctionName},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm: intent classification chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("llm: intent classification did not return a function call")
	}

	var scores IntentScores
	args := resp.Choices[0].Message.ToolCalls[0].Function.Arguments
	if err := json.Unmarshal([]byte(args), &scores); err != nil {
		return nil, fmt.Errorf("llm: invalid intent classification arguments: %w", err)
	}
	return &scores, nil
}
