// Package audiocache stores synthesized audio artifacts between the
// synthesis call and the carrier's playback fetch.
//
// The historical behavior here was one file per synthesis call and no
// deletion ever; the store is instead bounded two ways: every entry expires
// after a TTL, and an entry cap evicts oldest-first when exceeded.
package audiocache

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Artifact is one stored unit of synthesized audio. Never mutated after
// creation; fetching it twice returns identical bytes.
type Artifact struct {
	Data        []byte
	ContentType string
}

type entry struct {
	artifact  Artifact
	createdAt time.Time
}

// Cache is a concurrent-safe bounded artifact store. Each artifact is
// written once under a freshly generated identifier, so writes never
// contend for the same key.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	order      []string // insertion order, oldest first
	ttl        time.Duration
	maxEntries int

	now func() time.Time

	// OnEvict, when set, observes the number of entries dropped by a sweep.
	OnEvict func(n int)
}

// New creates a cache. ttl <= 0 disables expiry; maxEntries <= 0 disables
// the cap. Callers are expected to set both.
func New(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Put stores one artifact and returns its fresh identifier.
func (c *Cache) Put(data []byte, contentType string) string {
	id := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := c.sweepLocked()
	c.entries[id] = entry{
		artifact:  Artifact{Data: data, ContentType: contentType},
		createdAt: c.now(),
	}
	c.order = append(c.order, id)

	for c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		evicted += c.dropOldestLocked()
	}
	c.notifyEvicted(evicted)
	return id
}

// Get returns the artifact for id. A missing or expired id reports ok=false;
// an expired entry is dropped on the spot.
func (c *Cache) Get(id string) (Artifact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return Artifact{}, false
	}
	if c.expiredLocked(e) {
		delete(c.entries, id)
		c.notifyEvicted(1)
		return Artifact{}, false
	}
	return e.artifact, true
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) expiredLocked(e entry) bool {
	return c.ttl > 0 && c.now().Sub(e.createdAt) >= c.ttl
}

// sweepLocked drops expired entries from the front of the insertion order.
// Entries expire in insertion order, so the scan stops at the first live one.
func (c *Cache) sweepLocked() int {
	evicted := 0
	for len(c.order) > 0 {
		id := c.order[0]
		e, ok := c.entries[id]
		if ok && !c.expiredLocked(e) {
			break
		}
		if ok {
			delete(c.entries, id)
			evicted++
		}
		c.order = c.order[1:]
	}
	return evicted
}

func (c *Cache) dropOldestLocked() int {
	for len(c.order) > 0 {
		id := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[id]; ok {
			delete(c.entries, id)
			return 1
		}
	}
	return 0
}

func (c *Cache) notifyEvicted(n int) {
	if n > 0 && c.OnEvict != nil {
		c.OnEvict(n)
	}
}
