package consumers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ctxatlas/atlas/pkg/eventstore"
)

// worker polls a consumer group for new stream entries and dispatches
// each to the pool's Handler, acknowledging on success.
type worker struct {
	id      string
	group   string
	store   *eventstore.Store
	handler Handler
	batch   int64

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu               sync.RWMutex
	status           WorkerStatus
	currentEventID   string
	entriesProcessed int
	lastActivity     time.Time
}

func newWorker(id, group string, store *eventstore.Store, handler Handler, batch int64) *worker {
	return &worker{
		id:           id,
		group:        group,
		store:        store,
		handler:      handler,
		batch:        batch,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

func (w *worker) start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

func (w *worker) stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

func (w *worker) health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID: w.id, Status: w.status, CurrentEventID: w.currentEventID,
		EntriesProcessed: w.entriesProcessed, LastActivity: w.lastActivity,
	}
}

func (w *worker) run(ctx context.Context) {
	defer w.wg.Done()
	log := slog.With("worker_id", w.id, "group", w.group)
	log.Info("consumer worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("consumer worker stopping")
			return
		case <-ctx.Done():
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				log.Error("poll failed", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

func (w *worker) pollAndProcess(ctx context.Context) error {
	streams, err := w.store.ReadGroup(ctx, w.group, w.id, w.batch)
	if err != nil {
		return err
	}
	if len(streams) == 0 {
		return nil
	}

	for _, stream := range streams {
		for _, msg := range stream.Messages {
			w.process(ctx, msg.ID, msg.Values)
		}
	}
	return nil
}

func (w *worker) process(ctx context.Context, messageID string, values map[string]any) {
	fields := fieldsOf(values)
	eventID := fields["event_id"]

	w.mu.Lock()
	w.status = WorkerStatusWorking
	w.currentEventID = eventID
	w.mu.Unlock()

	log := slog.With("worker_id", w.id, "group", w.group, "event_id", eventID)

	if err := w.handler.Handle(ctx, eventID, fields); err != nil {
		log.Error("handler failed, leaving entry pending for reclaim", "error", err)
	} else if err := w.store.Ack(ctx, w.group, messageID); err != nil {
		log.Error("ack failed", "error", err)
	} else {
		w.mu.Lock()
		w.entriesProcessed++
		w.mu.Unlock()
	}

	w.mu.Lock()
	w.status = WorkerStatusIdle
	w.currentEventID = ""
	w.lastActivity = time.Now()
	w.mu.Unlock()
}
