package consolidation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/eventstore"
)

// workflowLookback mirrors patternLookback: cross-session workflow
// recurrence needs the same wide window frequency detection does.
const workflowLookback = 30 * 24 * time.Hour

// workflowSubsequenceLen is the sliding-window size a recurring
// event_type subsequence is matched at. Fixed rather than configurable,
// the same way entityresolution.go's relatedToThreshold is a fixed
// constant rather than a config knob.
const workflowSubsequenceLen = 3

// workflowMinSessions is the minimum number of distinct sessions a
// subsequence must recur in before it is written as a Workflow(case).
const workflowMinSessions = 2

// workflowAbstractionSessions is the higher recurrence bar a case
// workflow must clear before it is also generalized into a
// strategy-level Workflow, chained via ABSTRACTED_FROM.
const workflowAbstractionSessions = 4

type workflowCandidate struct {
	agentID    string
	key        string
	sessionIDs []string
	durationMs int64
	count      int
}

// extractWorkflows treats recurring event_type subsequences within a
// session, aggregated by agent across sessions, as workflow candidates.
// A subsequence clearing workflowMinSessions becomes a Workflow(case)
// node; one clearing the higher workflowAbstractionSessions bar is also
// generalized to a strategy-level Workflow. The generalization is
// deterministic rather than LLM-driven, an optional refinement this
// skips in favor of not adding a second bespoke function-calling schema
// for a step that gates nothing downstream.
func (h *Handler) extractWorkflows(ctx context.Context) error {
	since := time.Now().Add(-workflowLookback)
	sequences, err := h.events.SessionEventTypeSequences(ctx, since, 0)
	if err != nil {
		return fmt.Errorf("consolidation: session event type sequences: %w", err)
	}

	candidates := buildWorkflowCandidates(sequences)
	for _, c := range candidates {
		if len(c.sessionIDs) < workflowMinSessions {
			continue
		}
		if err := h.writeWorkflow(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func buildWorkflowCandidates(sequences []eventstore.SessionSequence) map[string]*workflowCandidate {
	candidates := make(map[string]*workflowCandidate)
	for _, seq := range sequences {
		if len(seq.Types) < workflowSubsequenceLen {
			continue
		}
		durationMs := seq.EndedAt.Sub(seq.StartedAt).Milliseconds()
		for i := 0; i+workflowSubsequenceLen <= len(seq.Types); i++ {
			sub := seq.Types[i : i+workflowSubsequenceLen]
			key := seq.AgentID + "|" + strings.Join(sub, ">")
			c, ok := candidates[key]
			if !ok {
				c = &workflowCandidate{agentID: seq.AgentID, key: key}
				candidates[key] = c
			}
			c.count++
			c.durationMs += durationMs
			c.sessionIDs = appendUnique(c.sessionIDs, seq.SessionID)
		}
	}
	return candidates
}

func (h *Handler) writeWorkflow(ctx context.Context, c *workflowCandidate) error {
	name := "case:" + c.key
	avgDuration := c.durationMs / int64(c.count)

	existing, found, err := h.graph.FindWorkflowByName(ctx, name)
	if err != nil {
		return fmt.Errorf("consolidation: find workflow: %w", err)
	}

	var workflowID string
	if found {
		workflowID = existing.WorkflowID
		for _, sid := range c.sessionIDs {
			if err := h.graph.ReinforceWorkflow(ctx, workflowID, true, avgDuration, sid); err != nil {
				return fmt.Errorf("consolidation: reinforce workflow: %w", err)
			}
		}
	} else {
		wf := domain.WorkflowNode{
			WorkflowID: domain.NewID(), Name: name, AbstractionLevel: domain.AbstractionCase,
			SuccessRate: 1, ExecutionCount: c.count, AvgDurationMs: avgDuration,
			SourceSessionIDs: c.sessionIDs,
		}
		if err := h.graph.InsertWorkflow(ctx, &wf); err != nil {
			return fmt.Errorf("consolidation: insert workflow: %w", err)
		}
		workflowID = wf.WorkflowID
	}

	if len(c.sessionIDs) >= workflowAbstractionSessions {
		return h.abstractWorkflow(ctx, c, workflowID)
	}
	return nil
}

func (h *Handler) abstractWorkflow(ctx context.Context, c *workflowCandidate, caseWorkflowID string) error {
	name := "strategy:" + c.key
	existing, found, err := h.graph.FindWorkflowByName(ctx, name)
	if err != nil {
		return fmt.Errorf("consolidation: find strategy workflow: %w", err)
	}

	var strategyID string
	if found {
		strategyID = existing.WorkflowID
		if err := h.graph.ReinforceWorkflow(ctx, strategyID, true, 0, c.sessionIDs[len(c.sessionIDs)-1]); err != nil {
			return fmt.Errorf("consolidation: reinforce strategy workflow: %w", err)
		}
	} else {
		strategy := domain.WorkflowNode{
			WorkflowID: domain.NewID(), Name: name, AbstractionLevel: domain.AbstractionStrategy,
			SuccessRate: 1, ExecutionCount: 1, SourceSessionIDs: c.sessionIDs,
		}
		if err := h.graph.InsertWorkflow(ctx, &strategy); err != nil {
			return fmt.Errorf("consolidation: insert strategy workflow: %w", err)
		}
		strategyID = strategy.WorkflowID
	}

	if err := h.graph.CreateAbstractedFrom(ctx, domain.AbstractedFromEdge{
		FromWorkflowID: caseWorkflowID, ToWorkflowID: strategyID,
	}); err != nil {
		return fmt.Errorf("consolidation: create abstracted_from: %w", err)
	}
	return nil
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
