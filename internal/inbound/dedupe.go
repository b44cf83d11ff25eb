package inbound

import (
	"container/list"
	"sync"
	"time"
)

type seenEntry struct {
	key  string
	seen time.Time
}

// EventCache remembers handled webhook event ids for a bounded time so that
// redelivered events are not processed twice. Entries expire after ttl and
// the oldest entry is evicted once maxEntries is reached.
type EventCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // oldest at front
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewEventCache creates a cache. A non-positive ttl or maxEntries disables it.
func NewEventCache(ttl time.Duration, maxEntries int) *EventCache {
	return &EventCache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (c *EventCache) enabled() bool {
	return c != nil && c.ttl > 0 && c.maxEntries > 0
}

// Seen reports whether key was marked within the ttl.
func (c *EventCache) Seen(key string) bool {
	if !c.enabled() || key == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	_, ok := c.entries[key]
	return ok
}

// Mark records key as handled.
func (c *EventCache) Mark(key string) {
	if !c.enabled() || key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()

	now := c.now()
	if elem, ok := c.entries[key]; ok {
		elem.Value.(*seenEntry).seen = now
		c.order.MoveToBack(elem)
		return
	}
	for len(c.entries) >= c.maxEntries {
		c.removeLocked(c.order.Front())
	}
	c.entries[key] = c.order.PushBack(&seenEntry{key: key, seen: now})
}

// Len returns the number of live entries.
func (c *EventCache) Len() int {
	if !c.enabled() {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	return len(c.entries)
}

// pruneLocked drops expired entries from the front. Marking moves an entry to
// the back, so the list stays ordered by last mark time.
func (c *EventCache) pruneLocked() {
	cutoff := c.now().Add(-c.ttl)
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		if front.Value.(*seenEntry).seen.After(cutoff) {
			return
		}
		c.removeLocked(front)
	}
}

func (c *EventCache) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	c.order.Remove(elem)
	delete(c.entries, elem.Value.(*seenEntry).key)
}
