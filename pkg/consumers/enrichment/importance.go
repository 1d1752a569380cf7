package enrichment

import "strings"

// baseImportanceByPrefix is the rule table keying importance_score off
// event_type: errors and explicit knowledge events outrank routine
// conversational turns. Checked longest-prefix-first against the dotted
// event_type; unmatched types fall back to baseImportanceDefault.
var baseImportanceByPrefix = map[string]int{
	"error.":                 9,
	"session.ended":          7,
	"system.session_end":     7,
	"user.preference.stated": 8,
	"tool.":                  4,
	"conversation.turn":      3,
}

const baseImportanceDefault = 5

func baseImportance(eventType string) int {
	best := -1
	score := baseImportanceDefault
	for prefix, s := range baseImportanceByPrefix {
		if strings.HasPrefix(eventType, prefix) && len(prefix) > best {
			best, score = len(prefix), s
		}
	}
	return score
}

// ComputeImportanceScore implements the F.importance_score rule: start
// from the event_type base, defer entirely to importance_hint when the
// producer supplied one (it knows its own event better than a prefix
// table can), then add a graph-traffic boost from access_count and
// degree. Clamped to [1,10]. Exported so the consolidation consumer's
// centrality-based recalculation reuses the same formula instead of
// maintaining a second definition of importance.
func ComputeImportanceScore(eventType string, importanceHint *int, accessCount, degree int) int {
	score := baseImportance(eventType)
	if importanceHint != nil {
		score = *importanceHint
	}

	boost := accessCount / 3
	if boost > 2 {
		boost = 2
	}
	degreeBoost := degree / 5
	if degreeBoost > 1 {
		degreeBoost = 1
	}
	score += boost + degreeBoost

	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return score
}
