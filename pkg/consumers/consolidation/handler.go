// Package consolidation implements Consumer 4: the scheduled pass that
// never reacts to a single event the way Consumers 1-3 do. It runs on a
// fixed interval and on an out-of-schedule reflection trigger, and
// looks across the whole graph rather than at one event_id at a time —
// cross-session behavioral patterns, recurring workflows, duplicate
// preferences from identity fragmentation, hierarchical summaries,
// centrality-driven importance recalculation, and the four-tier active
// forgetting sweep that keeps both stores bounded.
//
// Every stage runs independently: one stage's error is logged and the
// run continues, so a failure in, say, pattern confirmation never
// blocks pruning or metric emission from happening on schedule.
package consolidation

import (
	"context"
	"log/slog"
	"time"

	"github.com/ctxatlas/atlas/pkg/config"
	"github.com/ctxatlas/atlas/pkg/eventstore"
	"github.com/ctxatlas/atlas/pkg/graphstore"
	"github.com/ctxatlas/atlas/pkg/llm"
	"github.com/ctxatlas/atlas/pkg/metrics"
)

// patternConfirmer is the narrow slice of *llm.Client this package
// depends on, so tests can substitute a stub instead of calling a real
// model.
type patternConfirmer interface {
	ConfirmPattern(ctx context.Context, candidate llm.PatternCandidate) (*llm.PatternConfirmation, error)
}

// Handler runs one consolidation pass over the Graph Store and Event
// Store.
type Handler struct {
	graph  *graphstore.Store
	events *eventstore.Store
	llm    patternConfirmer
	mx     *metrics.Metrics

	retention *config.RetentionConfig
	queue     *config.QueueConfig
}

// NewHandler builds a consolidation Handler.
func NewHandler(graph *graphstore.Store, events *eventstore.Store, llmClient *llm.Client, mx *metrics.Metrics, retention *config.RetentionConfig, queue *config.QueueConfig) *Handler {
	return &Handler{graph: graph, events: events, llm: llmClient, mx: mx, retention: retention, queue: queue}
}

// Run executes one full consolidation pass: cross-session pattern
// detection, workflow extraction, preference merging, hierarchical
// summarization, importance recalculation, active forgetting, event
// store trimming, and metric emission, in that order. Summarization
// always runs before the forgetting stages, since every pruning
// operation depends on a Summary node already existing for the period
// it removes.
func (h *Handler) Run(ctx context.Context) error {
	started := time.Now()

	h.runStage(ctx, "pattern_detection", h.detectPatterns)
	h.runStage(ctx, "workflow_extraction", h.extractWorkflows)
	h.runStage(ctx, "preference_merging", h.mergeCrossSessionPreferences)
	h.runStage(ctx, "summarization", h.summarize)
	h.runStage(ctx, "importance_recalculation", h.recalculateImportance)
	h.runStage(ctx, "active_forgetting", h.applyActiveForgetting)
	h.runStage(ctx, "event_store_trimming", h.trimEventStore)

	h.emitMetrics(ctx, started)
	return nil
}

func (h *Handler) runStage(ctx context.Context, name string, stage func(ctx context.Context) error) {
	stageStart := time.Now()
	if err := stage(ctx); err != nil {
		slog.Error("consolidation: stage failed", "stage", name, "error", err)
		return
	}
	slog.Info("consolidation: stage completed", "stage", name, "duration", time.Since(stageStart))
}

func (h *Handler) emitMetrics(ctx context.Context, started time.Time) {
	if h.mx == nil {
		return
	}
	h.mx.ConsolidationLagSeconds.Set(time.Since(started).Seconds())
	h.mx.ReconsolidationLastRun.Set(float64(time.Now().Unix()))

	counts, err := h.graph.CountNodesByKind(ctx)
	if err != nil {
		slog.Warn("consolidation: failed to count graph nodes for metrics", "error", err)
		return
	}
	for kind, n := range counts {
		h.mx.GraphNodesTotal.WithLabelValues(string(kind)).Set(float64(n))
	}
}
