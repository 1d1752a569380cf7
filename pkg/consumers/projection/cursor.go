package projection

import (
	"sync"
	"time"
)

// sessionCursor is the last event Consumer 1 projected for a session,
// used to compute FOLLOWS.delta_ms for the next one. It is an in-memory
// accelerator only: the authoritative value is always recoverable from
// the Event Store's per-session timeline on restart.
type sessionCursor struct {
	eventID    string
	occurredAt time.Time
}

type cursorCache struct {
	mu    sync.Mutex
	byKey map[string]sessionCursor
}

func newCursorCache() *cursorCache {
	return &cursorCache{byKey: make(map[string]sessionCursor)}
}

func (c *cursorCache) get(sessionID string) (sessionCursor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, ok := c.byKey[sessionID]
	return prev, ok
}

func (c *cursorCache) set(sessionID, eventID string, occurredAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey[sessionID] = sessionCursor{eventID: eventID, occurredAt: occurredAt}
}
