package llm

import "fmt"

const systemPrompt = `You extract durable user knowledge from an agent interaction transcript: preferences, entities mentioned, and demonstrated skills. Only record a fact if the transcript states or clearly implies it — never infer beyond what is written. Every fact must carry an evidence_quote copied verbatim from the transcript. If nothing qualifies in a category, return an empty list for it.`

// buildUserPrompt wraps a reconstructed transcript window with the turn
// index the model should attribute extracted facts to.
func buildUserPrompt(transcript string, turnIndex int) string {
	return fmt.Sprintf("Turn index: %d\n\nTranscript:\n%s", turnIndex, transcript)
}
