package scoring

import "strings"

// keywordPatterns maps each intent to the phrases whose presence in a
// query raises that intent's confidence. Checked case-insensitively;
// more than one pattern matching the same intent doesn't double-count.
var keywordPatterns = map[Intent][]string{
	IntentWhy:         {"why", "because", "reason", "caused", "cause of"},
	IntentWhen:        {"when", "what time", "how long ago", "timeline", "sequence of"},
	IntentWhat:        {"what is", "what are", "define", "explain", "describe"},
	IntentRelated:     {"related", "similar", "like this", "connected to", "associated with"},
	IntentWhoIs:       {"who is", "who are", "tell me about the user", "about me"},
	IntentHowDoes:     {"how does", "how do", "how to", "process for", "workflow for"},
	IntentPersonalize: {"my preference", "i prefer", "personalize", "for me", "my style"},
}

const (
	keywordHit     = 0.6
	keywordNoMatch = 0.1
)

// ClassifyByKeywords scores every intent against a query's keyword
// content. general always carries a residual baseline score, since a
// query with no recognizable pattern still needs a fallback intent to
// traverse under.
func ClassifyByKeywords(query string) map[Intent]float64 {
	lower := strings.ToLower(query)
	scores := make(map[Intent]float64, len(AllIntents))
	anyHit := false

	for _, intent := range AllIntents {
		if intent == IntentGeneral {
			continue
		}
		if matchesAny(lower, keywordPatterns[intent]) {
			scores[intent] = keywordHit
			anyHit = true
		}
	}

	if !anyHit {
		scores[IntentGeneral] = 1.0
	} else {
		scores[IntentGeneral] = keywordNoMatch
	}
	return scores
}

func matchesAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// AboveThreshold filters a confidence distribution down to the intents
// clearing the decomposition threshold, falling back to {general: 1.0}
// when nothing clears it.
func AboveThreshold(scores map[Intent]float64, threshold float64) map[Intent]float64 {
	out := make(map[Intent]float64)
	for intent, score := range scores {
		if score >= threshold {
			out[intent] = score
		}
	}
	if len(out) == 0 {
		out[IntentGeneral] = 1.0
	}
	return out
}
