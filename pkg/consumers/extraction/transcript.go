package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ctxatlas/atlas/pkg/llm"
)

// turnPayload is the expected shape of a conversational event's
// decrypted payload. Events that don't decode as one (tool calls with a
// different payload shape, or payloads whose key has been crypto-
// shredded) are skipped rather than failing the whole reconstruction.
type turnPayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// turn is one reconstructed line of the session transcript, keeping the
// source event_id and its position so extracted facts can be traced
// back to a specific turn via DERIVED_FROM.source_turn_index.
type turn struct {
	eventID    string
	turnIndex  int
	role       string
	content    string
}

// reconstructTranscript implements step 1 of the Extraction consumer:
// collect every event in the session and render a user-turns-primary,
// assistant-turns-for-context transcript the LLM adapter can read. Each
// turn's content is masked before it's added to the transcript, so a
// credential or PII substring pasted into a conversation never reaches
// the external LLM call.
func (h *Handler) reconstructTranscript(ctx context.Context, sessionID string) ([]turn, string, error) {
	history, err := h.events.GetBySession(ctx, sessionID, 0)
	if err != nil {
		return nil, "", fmt.Errorf("extraction: get session history: %w", err)
	}

	var turns []turn
	var lines []string
	for i, ev := range history {
		raw, err := h.payloads.Get(ctx, ev.PayloadRef)
		if err != nil {
			slog.Debug("extraction: skipping turn with unreadable payload", "event_id", ev.EventID, "error", err)
			continue
		}
		var p turnPayload
		if err := json.Unmarshal(raw, &p); err != nil || strings.TrimSpace(p.Content) == "" {
			continue
		}
		role := p.Role
		if role == "" {
			role = ev.EventType
		}
		content := h.mask.Mask(p.Content)
		turns = append(turns, turn{eventID: ev.EventID, turnIndex: i, role: role, content: content})
		lines = append(lines, fmt.Sprintf("[%s] %s", role, content))
	}

	return turns, strings.Join(lines, "\n"), nil
}

// turnForQuote returns the turn whose content best contains quote, used
// to attribute an extracted fact's evidence_quote back to a
// source_turn_index, and reports whether any turn actually supports it
// at the same fuzzy ratio the LLM client's evidence gate enforces. This
// is a second, turn-scoped pass of that gate: Extract already rejects a
// quote unsupported by the whole joined transcript, but a quote that
// only clears the ratio once several turns are paraphrased together
// isn't attributable to one turn and is treated as unsupported here.
func (h *Handler) turnForQuote(turns []turn, quote string) (*turn, bool) {
	quote = strings.TrimSpace(quote)
	if quote == "" {
		return nil, false
	}

	best := -1
	bestRatio := 0.0
	for i := range turns {
		if strings.Contains(turns[i].content, quote) {
			return &turns[i], true
		}
		if r := llm.QuoteRatio(turns[i].content, quote); r > bestRatio {
			best, bestRatio = i, r
		}
	}
	if best >= 0 && bestRatio >= h.llmCfg.EvidenceQuoteMinRatio {
		return &turns[best], true
	}
	return nil, false
}
