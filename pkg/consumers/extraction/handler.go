// Package extraction implements Consumer 2: the asynchronous,
// LLM-backed stage that turns a batch of session turns into inferred
// preferences, entities, and skills, each validated through a
// four-layer pipeline (schema, ontology, graph, confidence) before a
// single derived fact is written.
//
// The Extraction consumer has no explicit user_id to key an identity
// on (unlike Consumer 1's user.preference.stated path, which carries
// one in its payload), so every fact this consumer derives attaches to
// a session-scoped user Entity named "user:<session_id>". Two sessions
// by the same human therefore surface as two Entity nodes until the
// three-tier resolution in entityresolution.go (or Consumer 4's
// cross-session merging) links them with SAME_AS — a consequence of
// the identity model, not a bug in it.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ctxatlas/atlas/pkg/config"
	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/embedding"
	"github.com/ctxatlas/atlas/pkg/eventstore"
	"github.com/ctxatlas/atlas/pkg/graphstore"
	"github.com/ctxatlas/atlas/pkg/llm"
	"github.com/ctxatlas/atlas/pkg/masking"
	"github.com/ctxatlas/atlas/pkg/payloadstore"
)

// extractor is the narrow slice of *llm.Client the Extraction consumer
// depends on, so tests can substitute a stub instead of making real
// chat-completion calls.
type extractor interface {
	Extract(ctx context.Context, transcript string, turnIndex int) (*llm.Result, error)
}

// embedder is the narrow slice of *embedding.Client this package needs.
type embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Handler adapts Consumer 2's extraction pipeline to the
// consumers.Handler interface.
type Handler struct {
	graph    *graphstore.Store
	events   *eventstore.Store
	payloads *payloadstore.Store
	llm      extractor
	embed    embedder
	mask     *masking.Service

	llmCfg *config.LLMConfig
	embCfg *config.EmbeddingConfig

	turnThreshold int
	lastModelUsed string
}

// NewHandler builds an extraction Handler.
func NewHandler(graph *graphstore.Store, events *eventstore.Store, payloads *payloadstore.Store, llmClient *llm.Client, embedClient *embedding.Client, llmCfg *config.LLMConfig, embCfg *config.EmbeddingConfig, queueCfg *config.QueueConfig) *Handler {
	return &Handler{
		graph: graph, events: events, payloads: payloads,
		llm: llmClient, embed: embedClient, mask: masking.NewService(),
		llmCfg: llmCfg, embCfg: embCfg,
		turnThreshold: queueCfg.SessionTurnThreshold,
	}
}

// Handle processes one global-stream entry. Extraction is triggered by
// session.ended, or by a per-session turn count crossing turnThreshold;
// every other event is acked without action, since the consumer
// operates on whole-session transcripts rather than per-event
// increments.
func (h *Handler) Handle(ctx context.Context, eventID string, fields map[string]string) error {
	ev, err := h.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, eventstore.ErrEventNotFound) {
			slog.Error("extraction: poison message, event document missing, acking", "event_id", eventID)
			return nil
		}
		return fmt.Errorf("extraction: fetch event: %w", err)
	}

	triggered, err := h.shouldTrigger(ctx, ev)
	if err != nil {
		return fmt.Errorf("extraction: check trigger: %w", err)
	}
	if !triggered {
		return nil
	}

	return h.extractSession(ctx, ev.SessionID, ev.OccurredAt)
}

func (h *Handler) shouldTrigger(ctx context.Context, ev *domain.EventNode) (bool, error) {
	if domain.IsSessionEnd(ev.EventType) {
		return true, nil
	}
	if h.turnThreshold <= 0 {
		return false, nil
	}
	history, err := h.events.GetBySession(ctx, ev.SessionID, 0)
	if err != nil {
		return false, err
	}
	return len(history)%h.turnThreshold == 0, nil
}

// extractSession runs the full pipeline for one session: reconstruct
// the transcript, call the LLM, then independently validate, resolve,
// and write each item so that one bad item never discards the rest of
// a batch.
func (h *Handler) extractSession(ctx context.Context, sessionID string, now time.Time) error {
	turns, transcript, err := h.reconstructTranscript(ctx, sessionID)
	if err != nil {
		return err
	}
	if transcript == "" {
		return nil
	}

	result, err := h.llm.Extract(ctx, transcript, len(turns))
	if err != nil {
		return fmt.Errorf("extraction: llm extract: %w", err)
	}
	h.lastModelUsed = result.ModelUsed

	user, err := h.ensureUserEntity(ctx, sessionID, now)
	if err != nil {
		return err
	}

	for _, p := range result.Preferences {
		if err := validPreference(p); err != nil {
			slog.Warn("extraction: dropping preference, failed ontology validation", "session_id", sessionID, "error", err)
			continue
		}
		confidence, ok := confidenceGate(p.Confidence, extractionSource)
		if !ok {
			slog.Debug("extraction: dropping preference, below confidence floor", "session_id", sessionID, "key", p.Key)
			continue
		}
		src, found := h.turnForQuote(turns, p.EvidenceQuote)
		if !found {
			slog.Warn("extraction: dropping preference, evidence_quote not found in transcript", "session_id", sessionID, "key", p.Key)
			continue
		}
		if err := h.writePreference(ctx, user.EntityID, p, confidence, src, now); err != nil {
			slog.Warn("extraction: failed to write preference", "session_id", sessionID, "key", p.Key, "error", err)
		}
	}

	for _, s := range result.Skills {
		proficiency, err := validSkill(s)
		if err != nil {
			slog.Warn("extraction: dropping skill, failed ontology validation", "session_id", sessionID, "error", err)
			continue
		}
		confidence, ok := confidenceGate(s.Confidence, domain.SourceInferred)
		if !ok {
			slog.Debug("extraction: dropping skill, below confidence floor", "session_id", sessionID, "name", s.Name)
			continue
		}
		src, found := h.turnForQuote(turns, s.EvidenceQuote)
		if !found {
			slog.Warn("extraction: dropping skill, evidence_quote not found in transcript", "session_id", sessionID, "name", s.Name)
			continue
		}
		if err := h.writeSkill(ctx, user.EntityID, s, proficiency, confidence, src, now); err != nil {
			slog.Warn("extraction: failed to write skill", "session_id", sessionID, "name", s.Name, "error", err)
		}
	}

	for _, e := range result.Entities {
		if err := validEntity(e); err != nil {
			slog.Warn("extraction: dropping entity, failed ontology validation", "session_id", sessionID, "error", err)
			continue
		}
		src, found := h.turnForQuote(turns, e.EvidenceQuote)
		if !found {
			slog.Warn("extraction: dropping entity, evidence_quote not found in transcript", "session_id", sessionID, "name", e.Name)
			continue
		}
		if err := h.writeEntityMention(ctx, user.EntityID, e, src, now); err != nil {
			slog.Warn("extraction: failed to resolve/write entity", "session_id", sessionID, "name", e.Name, "error", err)
		}
	}

	return nil
}
