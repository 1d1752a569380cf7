package llm

import "github.com/sashabaranov/go-openai/jsonschema"

// extractionFunctionName is the single function the model is forced to
// call via tool_choice, turning free-form extraction into a structured
// output the extraction consumer can act on directly.
const extractionFunctionName = "record_extraction"

// extractionParameters is the JSON Schema constraining the model's
// function-call arguments: every derived fact must carry its own
// evidence_quote so the DERIVED_FROM edge's hallucination gate has
// something to check against the source transcript.
func extractionParameters() *jsonschema.Definition {
	evidence := jsonschema.Definition{Type: jsonschema.String, Description: "verbatim quote from the transcript supporting this fact"}

	preference := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"category":       {Type: jsonschema.String, Enum: []string{"tool", "workflow", "communication", "domain", "environment", "style"}},
			"key":            {Type: jsonschema.String},
			"polarity":       {Type: jsonschema.String, Enum: []string{"positive", "negative", "neutral"}},
			"strength":       {Type: jsonschema.Number},
			"confidence":     {Type: jsonschema.Number},
			"scope":          {Type: jsonschema.String, Enum: []string{"global", "agent", "session"}},
			"evidence_quote": evidence,
		},
		Required: []string{"category", "key", "polarity", "strength", "confidence", "scope", "evidence_quote"},
	}

	entity := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"name":           {Type: jsonschema.String},
			"entity_type":    {Type: jsonschema.String, Enum: []string{"agent", "user", "tool", "service", "resource", "concept"}},
			"evidence_quote": evidence,
		},
		Required: []string{"name", "entity_type", "evidence_quote"},
	}

	skill := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"name":           {Type: jsonschema.String},
			"category":       {Type: jsonschema.String},
			"proficiency":    {Type: jsonschema.String, Enum: []string{"novice", "intermediate", "advanced", "expert"}},
			"confidence":     {Type: jsonschema.Number},
			"evidence_quote": evidence,
		},
		Required: []string{"name", "proficiency", "confidence", "evidence_quote"},
	}

	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"preferences": {Type: jsonschema.Array, Items: &preference},
			"entities":    {Type: jsonschema.Array, Items: &entity},
			"skills":      {Type: jsonschema.Array, Items: &skill},
		},
		Required: []string{"preferences", "entities", "skills"},
	}
}
