// Package enrichment implements Consumer 3: the asynchronous stage that
// gives every projected Event its derived attributes — keywords,
// embedding, summary, importance_score — and the SIMILAR_TO/REFERENCES
// edges those attributes make possible. It never invokes the LLM;
// everything here is deterministic NLP over event_type and payload
// content, the Embedding Service, and graph-traffic signals already on
// the Event node (access_count, degree).
//
// Consumer 3 must never process an event before Consumer 1 has finished
// with it — FOLLOWS/CAUSED_BY edges and, for user.preference.stated, the
// Preference node itself need to exist first so this consumer's degree
// boost and entity linking see a complete local neighborhood. Handle
// enforces that with a read-after-acknowledge check against the
// Projection consumer's completion marker rather than relying solely on
// consumer-group lag.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ctxatlas/atlas/pkg/config"
	"github.com/ctxatlas/atlas/pkg/consumers"
	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/embedding"
	"github.com/ctxatlas/atlas/pkg/eventstore"
	"github.com/ctxatlas/atlas/pkg/graphstore"
	"github.com/ctxatlas/atlas/pkg/payloadstore"
)

// embedder is the narrow slice of *embedding.Client this package needs,
// so tests can substitute a stub instead of calling a real model.
type embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// errNotYetProjected signals the stream should redeliver this entry
// later rather than treating it as a failure; it is never a poison
// error, since the condition resolves itself once Consumer 1 catches up.
var errNotYetProjected = errors.New("enrichment: event not yet projected by consumer 1")

// Handler adapts Consumer 3's enrichment pipeline to the
// consumers.Handler interface.
type Handler struct {
	graph    *graphstore.Store
	events   *eventstore.Store
	payloads *payloadstore.Store
	embed    embedder
	embCfg   *config.EmbeddingConfig

	reflection           *consumers.ReflectionTrigger
	reflectionThreshold  int
	mu                   sync.Mutex
	cumulativeImportance int
}

// NewHandler builds an enrichment Handler. reflection may be nil if
// nothing should fire an out-of-schedule consolidation pass.
func NewHandler(graph *graphstore.Store, events *eventstore.Store, payloads *payloadstore.Store, embedClient *embedding.Client, embCfg *config.EmbeddingConfig, reflection *consumers.ReflectionTrigger, queueCfg *config.QueueConfig) *Handler {
	return &Handler{
		graph: graph, events: events, payloads: payloads, embed: embedClient, embCfg: embCfg,
		reflection: reflection, reflectionThreshold: queueCfg.ReflectionThreshold,
	}
}

// accumulateImportance adds an event's importance_score to the running
// total since the last reflection pass, firing the trigger once the
// total crosses the configured threshold and resetting it.
func (h *Handler) accumulateImportance(score int) {
	if h.reflection == nil {
		return
	}
	h.mu.Lock()
	h.cumulativeImportance += score
	crossed := h.cumulativeImportance >= h.reflectionThreshold
	if crossed {
		h.cumulativeImportance = 0
	}
	h.mu.Unlock()

	if crossed {
		h.reflection.Fire()
	}
}

// Handle processes one global-stream entry: derive keywords, embedding,
// importance_score and summary, then SIMILAR_TO, REFERENCES, and any
// inferred CAUSED_BY edges. Acknowledges only after every derived write
// has been persisted.
func (h *Handler) Handle(ctx context.Context, eventID string, fields map[string]string) error {
	projected, err := h.events.IsProjected(ctx, eventID)
	if err != nil {
		return fmt.Errorf("enrichment: check projected: %w", err)
	}
	if !projected {
		return errNotYetProjected
	}

	ev, err := h.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, eventstore.ErrEventNotFound) {
			slog.Error("enrichment: poison message, event document missing, acking", "event_id", eventID)
			return nil
		}
		return fmt.Errorf("enrichment: fetch event: %w", err)
	}

	content := h.payloadContent(ctx, ev)
	keywords := ExtractKeywords(ev.EventType, content)

	vectors, err := h.embed.Embed(ctx, []string{content})
	if err != nil {
		return fmt.Errorf("enrichment: embed: %w", err)
	}
	ev.Embedding = vectors[0]

	degree, err := h.graph.EventDegree(ctx, ev.EventID)
	if err != nil {
		return fmt.Errorf("enrichment: event degree: %w", err)
	}
	importance := ComputeImportanceScore(ev.EventType, ev.ImportanceHint, ev.AccessCount, degree)
	summary := deriveSummary(content)

	if err := h.events.UpdateEnrichment(ctx, ev.EventID, keywords, ev.Embedding, summary, float64(importance)); err != nil {
		return fmt.Errorf("enrichment: update enrichment: %w", err)
	}
	h.accumulateImportance(importance)

	if err := h.linkSimilarEvents(ctx, ev); err != nil {
		return err
	}
	if err := h.linkReferencedEntities(ctx, ev, keywords); err != nil {
		return err
	}
	if err := h.linkInferredCausedBy(ctx, ev, content); err != nil {
		return err
	}

	return nil
}

func (h *Handler) payloadContent(ctx context.Context, ev *domain.EventNode) string {
	raw, err := h.payloads.Get(ctx, ev.PayloadRef)
	if err != nil {
		slog.Debug("enrichment: payload unreadable, enriching on metadata alone", "event_id", ev.EventID, "error", err)
		return ""
	}
	return payloadText(raw)
}
