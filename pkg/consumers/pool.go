package consumers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ctxatlas/atlas/pkg/config"
	"github.com/ctxatlas/atlas/pkg/eventstore"
)

// Pool runs a fixed number of workers sharing a Redis consumer group
// over the Event Store's global stream, plus a background scan that
// reclaims entries abandoned by a crashed worker — the stream-consumer
// analogue of the session queue's orphan detection.
type Pool struct {
	group       string
	podID       string
	workerCount int
	batch       int64

	store   *eventstore.Store
	handler Handler
	cfg     *config.QueueConfig

	workers  []*worker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool

	reclaimMu    sync.Mutex
	lastReclaim  time.Time
	reclaimed    int
}

// New builds a Pool. group names the Redis consumer group (e.g.
// "projection", "extraction", "enrichment"); podID distinguishes this
// process's consumers from another pod's when several run concurrently.
func New(group, podID string, workerCount int, store *eventstore.Store, handler Handler, cfg *config.QueueConfig) *Pool {
	return &Pool{
		group: group, podID: podID, workerCount: workerCount, batch: 10,
		store: store, handler: handler, cfg: cfg,
		stopCh: make(chan struct{}),
	}
}

// Start ensures the consumer group exists, spawns workers, and starts
// the reclaim loop. Safe to call once; later calls are no-ops.
func (p *Pool) Start(ctx context.Context) error {
	if p.started {
		return nil
	}
	p.started = true

	if err := p.store.EnsureConsumerGroup(ctx, p.group); err != nil {
		return fmt.Errorf("consumers: start %s pool: %w", p.group, err)
	}

	slog.Info("starting consumer pool", "group", p.group, "workers", p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		id := fmt.Sprintf("%s-%s-%d", p.podID, p.group, i)
		w := newWorker(id, p.group, p.store, p.handler, p.batch)
		p.workers = append(p.workers, w)
		w.start(ctx)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runReclaimLoop(ctx)
	}()

	return nil
}

// Stop signals every worker and the reclaim loop to exit, and waits for
// in-flight handler calls to finish.
func (p *Pool) Stop() {
	slog.Info("stopping consumer pool", "group", p.group)
	for _, w := range p.workers {
		w.stop()
	}
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

// Health reports the pool's current worker and pending-entry state.
func (p *Pool) Health(ctx context.Context) *PoolHealth {
	stats := make([]WorkerHealth, len(p.workers))
	active := 0
	for i, w := range p.workers {
		h := w.health()
		stats[i] = h
		if h.Status == WorkerStatusWorking {
			active++
		}
	}

	var pendingCount int64
	if pending, err := p.store.Pending(ctx, p.group); err != nil {
		slog.Error("pending lookup failed", "group", p.group, "error", err)
	} else {
		pendingCount = int64(len(pending))
	}

	p.reclaimMu.Lock()
	lastReclaim, reclaimed := p.lastReclaim, p.reclaimed
	p.reclaimMu.Unlock()

	return &PoolHealth{
		Group: p.group, ActiveWorkers: active, TotalWorkers: len(p.workers),
		PendingCount: pendingCount, LastReclaimScan: lastReclaim,
		EntriesReclaimed: reclaimed, WorkerStats: stats,
	}
}

func (p *Pool) runReclaimLoop(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.OrphanDetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.reclaimStale(ctx); err != nil {
				slog.Error("reclaim scan failed", "group", p.group, "error", err)
			}
		}
	}
}

// reclaimStale transfers entries idle longer than the configured
// orphan threshold to this pod's first worker, so a crash mid-handle
// doesn't strand work in the pending entries list forever.
func (p *Pool) reclaimStale(ctx context.Context) error {
	pending, err := p.store.Pending(ctx, p.group)
	if err != nil {
		return err
	}

	p.reclaimMu.Lock()
	p.lastReclaim = time.Now()
	p.reclaimMu.Unlock()

	if len(pending) == 0 || len(p.workers) == 0 {
		return nil
	}

	minIdleMs := p.cfg.OrphanThreshold.Milliseconds()
	var staleIDs []string
	for _, entry := range pending {
		if entry.Idle.Milliseconds() >= minIdleMs {
			staleIDs = append(staleIDs, entry.ID)
		}
	}
	if len(staleIDs) == 0 {
		return nil
	}

	reclaimer := p.workers[0].id
	msgs, err := p.store.Claim(ctx, p.group, reclaimer, minIdleMs, staleIDs)
	if err != nil {
		return err
	}

	slog.Warn("reclaimed stale stream entries", "group", p.group, "count", len(msgs))
	p.reclaimMu.Lock()
	p.reclaimed += len(msgs)
	p.reclaimMu.Unlock()

	for _, msg := range msgs {
		p.workers[0].process(ctx, msg.ID, msg.Values)
	}
	return nil
}
