package enrichment

import (
	"encoding/json"
	"strings"
)

// genericPayload covers the handful of payload shapes producers
// actually send; unlike the Extraction consumer's turnPayload, this
// accepts tool-call and structured-knowledge payloads too, since
// Enrichment runs over every event type, not just conversational turns.
type genericPayload struct {
	Content string `json:"content"`
	Text    string `json:"text"`
	Message string `json:"message"`
}

// payloadText extracts the best-effort narrative content from a
// decrypted payload for keyword extraction, embedding, and
// summarization. A payload that isn't one of the known JSON shapes is
// used verbatim as text rather than skipped, since F still owes every
// event an importance_score even without readable content.
func payloadText(raw []byte) string {
	var p genericPayload
	if err := json.Unmarshal(raw, &p); err == nil {
		for _, candidate := range []string{p.Content, p.Text, p.Message} {
			if strings.TrimSpace(candidate) != "" {
				return candidate
			}
		}
	}
	return strings.TrimSpace(string(raw))
}

const maxSummaryLen = 240

// deriveSummary truncates content to a word boundary near maxSummaryLen,
// the cheap deterministic stand-in for an LLM-generated summary.
func deriveSummary(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= maxSummaryLen {
		return content
	}
	cut := strings.LastIndexByte(content[:maxSummaryLen], ' ')
	if cut <= 0 {
		cut = maxSummaryLen
	}
	return content[:cut] + "…"
}
