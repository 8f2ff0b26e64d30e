package chat

import (
	"sync"

	"github.com/onnwee/qna-tender/qna"
)

// defaultCacheSize bounds how many recent messages are kept per room. A
// reaction older than this window can no longer resolve its target and is
// dropped, which mirrors how a redacted target behaves.
const defaultCacheSize = 2048

// eventCache keeps the most recent messages per room, keyed by event id, so
// the transport can serve fetch-event-by-id without a backing store.
type eventCache struct {
	mu    sync.Mutex
	limit int
	rooms map[string]*roomCache
}

type roomCache struct {
	byID  map[string]qna.Event
	order []string // insertion order for eviction
}

func newEventCache(limit int) *eventCache {
	return &eventCache{limit: limit, rooms: map[string]*roomCache{}}
}

func (c *eventCache) put(roomID string, ev qna.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rc, ok := c.rooms[roomID]
	if !ok {
		rc = &roomCache{byID: map[string]qna.Event{}}
		c.rooms[roomID] = rc
	}
	if _, exists := rc.byID[ev.EventID]; !exists {
		rc.order = append(rc.order, ev.EventID)
	}
	rc.byID[ev.EventID] = ev
	for len(rc.order) > c.limit {
		oldest := rc.order[0]
		rc.order = rc.order[1:]
		delete(rc.byID, oldest)
	}
}

func (c *eventCache) get(roomID, eventID string) (qna.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rc, ok := c.rooms[roomID]
	if !ok {
		return qna.Event{}, false
	}
	ev, ok := rc.byID[eventID]
	return ev, ok
}

func (c *eventCache) drop(roomID, eventID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rc, ok := c.rooms[roomID]; ok {
		delete(rc.byID, eventID)
	}
}
