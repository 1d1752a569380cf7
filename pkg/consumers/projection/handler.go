// Package projection implements Consumer 1: the first, synchronous-fast
// stage that turns a raw Event into graph structure — FOLLOWS/CAUSED_BY
// edges and, for explicit structured knowledge events, the node they
// name directly — without ever invoking the LLM or Embedding services.
package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/eventstore"
	"github.com/ctxatlas/atlas/pkg/graphstore"
	"github.com/ctxatlas/atlas/pkg/payloadstore"
)

// poisonError marks a permanent validation failure: the message is
// acknowledged rather than redelivered, since retrying it can never
// succeed.
type poisonError struct{ err error }

func (p poisonError) Error() string { return p.err.Error() }
func (p poisonError) Unwrap() error { return p.err }

// Handler adapts Consumer 1's projection logic to the consumers.Handler
// interface.
type Handler struct {
	graph    *graphstore.Store
	events   *eventstore.Store
	payloads *payloadstore.Store
	cursors  *cursorCache
}

// NewHandler builds a projection Handler.
func NewHandler(graph *graphstore.Store, events *eventstore.Store, payloads *payloadstore.Store) *Handler {
	return &Handler{graph: graph, events: events, payloads: payloads, cursors: newCursorCache()}
}

// Handle processes one global-stream entry. Merging the Event node is
// already satisfied at ingestion time: Append writes the document row
// synchronously as part of the atomic ingestion primitive, so Consumer
// 1 reads it back here rather than re-inserting it.
func (h *Handler) Handle(ctx context.Context, eventID string, fields map[string]string) error {
	ev, err := h.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, eventstore.ErrEventNotFound) {
			slog.Error("projection: poison message, event document missing, acking", "event_id", eventID)
			return nil
		}
		return fmt.Errorf("projection: fetch event: %w", err)
	}

	if err := h.linkFollows(ctx, ev); err != nil {
		return err
	}
	if err := h.linkCausedBy(ctx, ev); err != nil {
		return err
	}

	if ev.EventType == domain.PreferenceStatedEventType {
		if err := h.projectStatedPreference(ctx, ev); err != nil {
			var poison poisonError
			if errors.As(err, &poison) {
				slog.Error("projection: poison message, acking to unblock stream", "event_id", eventID, "error", err)
				return nil
			}
			return err
		}
	}

	if err := h.extractRuleBasedEntity(ctx, ev); err != nil {
		// Best-effort resilience fallback: a failure here must not block
		// the stream or mask a successful FOLLOWS/CAUSED_BY projection.
		slog.Warn("projection: rule-based entity extraction failed", "event_id", eventID, "error", err)
	}

	if err := h.events.MarkProjected(ctx, eventID); err != nil {
		return fmt.Errorf("projection: mark projected: %w", err)
	}

	return nil
}

func (h *Handler) linkFollows(ctx context.Context, ev *domain.EventNode) error {
	prev, ok := h.cursors.get(ev.SessionID)
	if !ok {
		recovered, err := h.recoverCursor(ctx, ev)
		if err != nil {
			return fmt.Errorf("projection: recover session cursor: %w", err)
		}
		prev, ok = recovered, recovered.eventID != ""
	}

	if ok && prev.eventID != ev.EventID {
		if err := h.graph.CreateFollows(ctx, domain.FollowsEdge{
			FromEventID: prev.eventID,
			ToEventID:   ev.EventID,
			SessionID:   ev.SessionID,
			DeltaMs:     ev.OccurredAt.Sub(prev.occurredAt).Milliseconds(),
		}); err != nil {
			return fmt.Errorf("projection: create follows: %w", err)
		}
	}

	h.cursors.set(ev.SessionID, ev.EventID, ev.OccurredAt)
	return nil
}

// recoverCursor rebuilds the previous-event pointer from the Event
// Store's per-session timeline on a cache miss (process restart), the
// cursor cache's recoverability guarantee.
func (h *Handler) recoverCursor(ctx context.Context, ev *domain.EventNode) (sessionCursor, error) {
	history, err := h.events.GetBySession(ctx, ev.SessionID, 0)
	if err != nil {
		return sessionCursor{}, err
	}
	var latest sessionCursor
	for _, e := range history {
		if e.EventID == ev.EventID {
			continue
		}
		if e.OccurredAt.After(latest.occurredAt) {
			latest = sessionCursor{eventID: e.EventID, occurredAt: e.OccurredAt}
		}
	}
	return latest, nil
}

func (h *Handler) linkCausedBy(ctx context.Context, ev *domain.EventNode) error {
	if ev.ParentEventID == nil {
		return nil
	}
	if err := h.graph.CreateCausedBy(ctx, domain.CausedByEdge{
		FromEventID: *ev.ParentEventID,
		ToEventID:   ev.EventID,
		Mechanism:   domain.MechanismDirect,
	}); err != nil {
		return fmt.Errorf("projection: create caused_by: %w", err)
	}
	return nil
}
