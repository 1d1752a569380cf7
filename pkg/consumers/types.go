// Package consumers provides the shared worker-pool scaffolding for the
// four asynchronous consumer-group readers (projection, extraction,
// enrichment) and the scheduled consolidation pass, all fed by the
// Event Store's global Redis stream.
package consumers

import (
	"context"
	"time"
)

// Handler processes a single delivered stream entry. Returning an error
// leaves the entry in the consumer group's pending entries list so a
// later reclaim scan retries it on another worker.
type Handler interface {
	Handle(ctx context.Context, eventID string, fields map[string]string) error
}

// HandlerFunc adapts a plain function to a Handler.
type HandlerFunc func(ctx context.Context, eventID string, fields map[string]string) error

func (f HandlerFunc) Handle(ctx context.Context, eventID string, fields map[string]string) error {
	return f(ctx, eventID, fields)
}

// WorkerStatus mirrors the idle/working states reported by the queue worker pool.
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// WorkerHealth reports one worker's processing state.
type WorkerHealth struct {
	ID                string       `json:"id"`
	Status            WorkerStatus `json:"status"`
	CurrentEventID    string       `json:"current_event_id,omitempty"`
	EntriesProcessed  int          `json:"entries_processed"`
	LastActivity      time.Time    `json:"last_activity"`
}

// PoolHealth reports a stream consumer pool's aggregate state.
type PoolHealth struct {
	Group            string         `json:"group"`
	ActiveWorkers    int            `json:"active_workers"`
	TotalWorkers     int            `json:"total_workers"`
	PendingCount     int64          `json:"pending_count"`
	LastReclaimScan  time.Time      `json:"last_reclaim_scan"`
	EntriesReclaimed int            `json:"entries_reclaimed"`
	WorkerStats      []WorkerHealth `json:"worker_stats"`
}

// fieldsOf converts the stream entry's raw value map (map[string]any
// from go-redis) into map[string]string, the shape handlers consume.
func fieldsOf(values map[string]any) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = ""
	}
	return out
}
