package consolidation

import (
	"context"
	"fmt"
	"time"

	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/llm"
)

// patternLookback bounds how far back the statistical pass scans for
// recurring agent behavior; scanning full history would make every run
// more expensive than the last.
const patternLookback = 30 * 24 * time.Hour

// patternFrequencyFloor is the minimum (agent, event_type) occurrence
// count worth a confirmation call; below this the statistics are too
// thin to be anything but noise.
const patternFrequencyFloor = 5

// defaultPatternStabilityHours seeds a freshly confirmed pattern's
// recency-decay half-life, mirroring the 30-day seed
// NewPreferenceNode uses for preferences.
const defaultPatternStabilityHours = 14 * 24

// guessPatternType turns raw frequency into a starting hypothesis for
// the LLM confirmation call to accept, reject, or retype; it is never
// written to the graph on its own.
func guessPatternType(frequency int) string {
	switch {
	case frequency >= patternFrequencyFloor*4:
		return string(domain.PatternRoutine)
	case frequency >= patternFrequencyFloor*2:
		return string(domain.PatternSpecialization)
	default:
		return string(domain.PatternExploration)
	}
}

// detectPatterns scans per-agent event_type frequency as the
// statistical signal; any (agent, event_type) pair clearing
// patternFrequencyFloor becomes a candidate the configured model
// confirms or rejects before anything reaches the graph.
func (h *Handler) detectPatterns(ctx context.Context) error {
	since := time.Now().Add(-patternLookback)

	counts, err := h.events.AgentEventTypeCounts(ctx, since)
	if err != nil {
		return fmt.Errorf("consolidation: agent event type counts: %w", err)
	}
	sessionCounts, err := h.events.DistinctSessionCountByAgent(ctx, since)
	if err != nil {
		return fmt.Errorf("consolidation: distinct session count by agent: %w", err)
	}

	for agentID, byType := range counts {
		for eventType, freq := range byType {
			if freq < patternFrequencyFloor {
				continue
			}
			if err := h.confirmAndWritePattern(ctx, agentID, eventType, freq, sessionCounts[agentID]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handler) confirmAndWritePattern(ctx context.Context, agentID, eventType string, freq, sessionCount int) error {
	confirmation, err := h.llm.ConfirmPattern(ctx, llm.PatternCandidate{
		AgentID:      agentID,
		GuessedType:  guessPatternType(freq),
		EventTypes:   []string{eventType},
		Frequency:    freq,
		SessionCount: sessionCount,
	})
	if err != nil {
		return fmt.Errorf("consolidation: confirm pattern: %w", err)
	}
	if !confirmation.Confirmed {
		return nil
	}

	patternType := domain.PatternType(confirmation.PatternType)
	if !patternType.Valid() {
		patternType = domain.PatternType(guessPatternType(freq))
	}
	now := time.Now()

	existing, found, err := h.graph.FindBehavioralPattern(ctx, patternType, agentID)
	if err != nil {
		return fmt.Errorf("consolidation: find behavioral pattern: %w", err)
	}
	var patternID string
	if found {
		if err := h.graph.ReinforceBehavioralPattern(ctx, existing.PatternID, domain.BehavioralPatternNode{
			LastConfirmedAt: now, Confidence: confirmation.Confidence,
		}); err != nil {
			return fmt.Errorf("consolidation: reinforce behavioral pattern: %w", err)
		}
		patternID = existing.PatternID
	} else {
		pattern := domain.BehavioralPatternNode{
			PatternID: domain.NewID(), PatternType: patternType, Description: confirmation.Description,
			Confidence: confirmation.Confidence, ObservationCount: 1, InvolvedAgents: []string{agentID},
			FirstDetectedAt: now, LastConfirmedAt: now, Stability: defaultPatternStabilityHours,
		}
		if err := h.graph.InsertBehavioralPattern(ctx, &pattern); err != nil {
			return fmt.Errorf("consolidation: insert behavioral pattern: %w", err)
		}
		patternID = pattern.PatternID
	}

	return h.linkPatternToAgent(ctx, agentID, patternID, now)
}

// linkPatternToAgent merges the agent Entity node EXHIBITS_PATTERN
// needs. No consumer merges Entity(type=agent) on the ingestion path
// (Projection and Extraction both key identity on a session-scoped
// user Entity), so this is the first writer of agent-kind Entities —
// see DESIGN.md.
func (h *Handler) linkPatternToAgent(ctx context.Context, agentID, patternID string, now time.Time) error {
	agentEntity := domain.NewEntityNode(agentID, domain.EntityTypeAgent, now)
	if err := h.graph.MergeEntity(ctx, &agentEntity); err != nil {
		return fmt.Errorf("consolidation: merge agent entity: %w", err)
	}
	if err := h.graph.CreateExhibitsPattern(ctx, domain.ExhibitsPatternEdge{
		UserEntityID: agentEntity.EntityID, PatternID: patternID,
	}); err != nil {
		return fmt.Errorf("consolidation: create exhibits_pattern: %w", err)
	}
	return nil
}
