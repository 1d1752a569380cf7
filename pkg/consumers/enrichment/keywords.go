package enrichment

import (
	"sort"
	"strings"
)

// stopwords is a small, deliberately incomplete list: just common enough
// to keep filler words out of the top keywords without pulling in a
// dictionary dependency for what is a best-effort signal, not a search
// index.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"to": true, "of": true, "in": true, "on": true, "for": true, "with": true,
	"it": true, "this": true, "that": true, "i": true, "you": true, "we": true,
	"do": true, "does": true, "did": true, "can": true, "could": true, "would": true,
	"will": true, "not": true, "have": true, "has": true, "had": true, "at": true,
	"as": true, "by": true, "from": true, "about": true, "into": true, "your": true,
	"my": true, "me": true, "if": true, "so": true, "just": true,
}

const maxKeywords = 8

// ExtractKeywords implements the deterministic NLP pass: the event_type
// hierarchy segments always count (they are the cheapest, most reliable
// signal), topped up with the most frequent non-stopword tokens from the
// payload content.
func ExtractKeywords(eventType, content string) []string {
	seen := make(map[string]bool)
	var keywords []string

	for _, seg := range strings.Split(eventType, ".") {
		if seg != "" && !seen[seg] {
			seen[seg] = true
			keywords = append(keywords, seg)
		}
	}

	counts := make(map[string]int)
	for _, tok := range tokenize(content) {
		if len(tok) < 3 || stopwords[tok] {
			continue
		}
		counts[tok]++
	}

	type tokCount struct {
		tok   string
		count int
	}
	var ranked []tokCount
	for tok, c := range counts {
		ranked = append(ranked, tokCount{tok, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].tok < ranked[j].tok
	})

	for _, tc := range ranked {
		if len(keywords) >= maxKeywords {
			break
		}
		if !seen[tc.tok] {
			seen[tc.tok] = true
			keywords = append(keywords, tc.tok)
		}
	}

	return keywords
}

func tokenize(content string) []string {
	return strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}
