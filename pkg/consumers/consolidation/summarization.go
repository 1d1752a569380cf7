package consolidation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ctxatlas/atlas/pkg/domain"
)

// summarize builds the episode (trace_id), session, and agent scope
// Summary node hierarchy, each with SUMMARIZES edges back to what they
// cover. Scoped to sessions active within the current
// consolidation interval rather than the wider pattern/workflow lookback
// window, since a summary is append-only (MergeSummary never updates a
// prior one) — a wider window would regenerate the same session's
// summary every run. This stage always runs before the forgetting
// stages: every prune operation below depends on a summary already
// existing for the period it removes.
func (h *Handler) summarize(ctx context.Context) error {
	since := time.Now().Add(-h.queue.ConsolidationInterval)
	sequences, err := h.events.SessionEventTypeSequences(ctx, since, 0)
	if err != nil {
		return fmt.Errorf("consolidation: session sequences for summarization: %w", err)
	}

	agentSessionSummaries := make(map[string][]string)
	for _, seq := range sequences {
		summaryID, err := h.summarizeSession(ctx, seq.SessionID)
		if err != nil {
			return err
		}
		if summaryID != "" {
			agentSessionSummaries[seq.AgentID] = append(agentSessionSummaries[seq.AgentID], summaryID)
		}
	}

	for agentID, sessionSummaryIDs := range agentSessionSummaries {
		if err := h.summarizeAgent(ctx, agentID, sessionSummaryIDs); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) summarizeSession(ctx context.Context, sessionID string) (string, error) {
	events, err := h.events.GetBySession(ctx, sessionID, 0)
	if err != nil {
		return "", fmt.Errorf("consolidation: get session events: %w", err)
	}
	if len(events) == 0 {
		return "", nil
	}

	byTrace := make(map[string][]*domain.EventNode)
	var traceOrder []string
	for _, ev := range events {
		if _, ok := byTrace[ev.TraceID]; !ok {
			traceOrder = append(traceOrder, ev.TraceID)
		}
		byTrace[ev.TraceID] = append(byTrace[ev.TraceID], ev)
	}

	var episodeSummaryIDs []string
	for _, traceID := range traceOrder {
		summaryID, err := h.writeEventSummary(ctx, domain.SummaryScopeEpisode, traceID, byTrace[traceID])
		if err != nil {
			return "", err
		}
		episodeSummaryIDs = append(episodeSummaryIDs, summaryID)
	}

	sessionSummary := domain.SummaryNode{
		SummaryID: domain.NewID(), Scope: domain.SummaryScopeSession, ScopeID: sessionID,
		Content: summarizeEvents(events), CreatedAt: time.Now(), EventCount: len(events),
		TimeRangeStart: events[0].OccurredAt, TimeRangeEnd: events[len(events)-1].OccurredAt,
	}
	if err := h.graph.MergeSummary(ctx, &sessionSummary); err != nil {
		return "", fmt.Errorf("consolidation: merge session summary: %w", err)
	}
	for _, epID := range episodeSummaryIDs {
		if err := h.graph.CreateSummarizes(ctx, domain.SummarizesEdge{
			SummaryID: sessionSummary.SummaryID, TargetID: epID, TargetKind: domain.NodeKindSummary,
		}); err != nil {
			return "", fmt.Errorf("consolidation: link session to episode summary: %w", err)
		}
	}
	return sessionSummary.SummaryID, nil
}

func (h *Handler) writeEventSummary(ctx context.Context, scope domain.SummaryScope, scopeID string, events []*domain.EventNode) (string, error) {
	sm := domain.SummaryNode{
		SummaryID: domain.NewID(), Scope: scope, ScopeID: scopeID,
		Content: summarizeEvents(events), CreatedAt: time.Now(), EventCount: len(events),
		TimeRangeStart: events[0].OccurredAt, TimeRangeEnd: events[len(events)-1].OccurredAt,
	}
	if err := h.graph.MergeSummary(ctx, &sm); err != nil {
		return "", fmt.Errorf("consolidation: merge %s summary: %w", scope, err)
	}
	for _, ev := range events {
		if err := h.graph.CreateSummarizes(ctx, domain.SummarizesEdge{
			SummaryID: sm.SummaryID, TargetID: ev.EventID, TargetKind: domain.NodeKindEvent,
		}); err != nil {
			return "", fmt.Errorf("consolidation: link %s summary to event: %w", scope, err)
		}
	}
	return sm.SummaryID, nil
}

func (h *Handler) summarizeAgent(ctx context.Context, agentID string, sessionSummaryIDs []string) error {
	if len(sessionSummaryIDs) == 0 {
		return nil
	}
	now := time.Now()
	sm := domain.SummaryNode{
		SummaryID: domain.NewID(), Scope: domain.SummaryScopeAgent, ScopeID: agentID,
		Content:        fmt.Sprintf("%d session summaries for agent %s", len(sessionSummaryIDs), agentID),
		CreatedAt:      now,
		EventCount:     len(sessionSummaryIDs),
		TimeRangeStart: now.Add(-h.queue.ConsolidationInterval),
		TimeRangeEnd:   now,
	}
	if err := h.graph.MergeSummary(ctx, &sm); err != nil {
		return fmt.Errorf("consolidation: merge agent summary: %w", err)
	}
	for _, sid := range sessionSummaryIDs {
		if err := h.graph.CreateSummarizes(ctx, domain.SummarizesEdge{
			SummaryID: sm.SummaryID, TargetID: sid, TargetKind: domain.NodeKindSummary,
		}); err != nil {
			return fmt.Errorf("consolidation: link agent to session summary: %w", err)
		}
	}
	return nil
}

func summarizeEvents(events []*domain.EventNode) string {
	seen := make(map[string]bool)
	var types []string
	for _, ev := range events {
		if !seen[ev.EventType] {
			seen[ev.EventType] = true
			types = append(types, ev.EventType)
		}
	}
	return fmt.Sprintf("%d events (%s)", len(events), strings.Join(types, ", "))
}
