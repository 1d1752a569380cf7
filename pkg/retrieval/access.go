package retrieval

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ctxatlas/atlas/pkg/domain"
	"github.com/ctxatlas/atlas/pkg/eventstore"
	"github.com/ctxatlas/atlas/pkg/graphstore"
)

// accessHit is one node a retrieval response surfaced, queued for the
// access_count/last_accessed_at bump that backs the access-boosted
// recency half-life in the scoring component. Writes never block a
// response: the queue is buffered and a full queue just drops the hit.
type accessHit struct {
	id   string
	kind domain.NodeKind
}

// AccessUpdater drains access hits from a buffered channel on its own
// goroutine, so Retrieve/AssembleContext/Lineage can record that a node
// was surfaced without the caller waiting on the write. Only Event,
// Preference, and BehavioralPattern carry an access_count column; hits
// for every other kind are accepted and silently dropped.
type AccessUpdater struct {
	graph  *graphstore.Store
	events *eventstore.Store

	queue    chan accessHit
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewAccessUpdater builds an updater with the configured queue depth.
// Call Start to begin draining it.
func NewAccessUpdater(graph *graphstore.Store, events *eventstore.Store, bufferSize int) *AccessUpdater {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	return &AccessUpdater{
		graph:  graph,
		events: events,
		queue:  make(chan accessHit, bufferSize),
		stopCh: make(chan struct{}),
	}
}

// Start launches the drain loop. Safe to call at most once per updater.
func (u *AccessUpdater) Start() {
	u.wg.Add(1)
	go u.run()
}

// Stop signals the drain loop to exit and waits for it to finish.
func (u *AccessUpdater) Stop() {
	u.stopOnce.Do(func() { close(u.stopCh) })
	u.wg.Wait()
}

// Enqueue records that a node was surfaced by a retrieval response.
// Non-blocking: if the queue is full the hit is dropped and a warning
// logged, since an access bump is a scoring nicety, not a correctness
// requirement.
func (u *AccessUpdater) Enqueue(id string, kind domain.NodeKind) {
	select {
	case u.queue <- accessHit{id: id, kind: kind}:
	default:
		slog.Warn("retrieval: access update queue full, dropping hit", "node_id", id, "kind", kind)
	}
}

// EnqueueAll is a convenience for enqueuing every node a response
// returned.
func (u *AccessUpdater) EnqueueAll(nodes map[string]domain.AtlasNode) {
	if u == nil {
		return
	}
	for id, n := range nodes {
		u.Enqueue(id, n.Type)
	}
}

func (u *AccessUpdater) run() {
	defer u.wg.Done()
	for {
		select {
		case <-u.stopCh:
			return
		case hit := <-u.queue:
			u.apply(hit)
		}
	}
}

func (u *AccessUpdater) apply(hit accessHit) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch hit.kind {
	case domain.NodeKindEvent:
		err = u.events.RecordAccess(ctx, hit.id, time.Now())
	case domain.NodeKindPreference:
		err = u.graph.RecordPreferenceAccess(ctx, hit.id)
	case domain.NodeKindBehavioralPattern:
		err = u.graph.RecordBehavioralPatternAccess(ctx, hit.id)
	default:
		return
	}
	if err != nil {
		slog.Warn("retrieval: access update failed", "node_id", hit.id, "kind", hit.kind, "error", err)
	}
}
