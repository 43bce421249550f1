package detections

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	domain "github.com/pavanborigi/deepfake-detect/internal/domain/detections"
)

// FetchFunc loads the full history for one owner from the record store.
type FetchFunc func(ctx context.Context, ownerID string) ([]*domain.DetectionRecord, error)

// Cache is the owner-keyed read cache over the record store. A cached entry
// always holds a fully committed list, newest first; Invalidate marks it
// stale so the next Read refetches. Concurrent reads for the same owner
// share a single in-flight fetch.
type Cache struct {
	fetch FetchFunc

	group singleflight.Group

	mu        sync.RWMutex
	entries   map[string][]*domain.DetectionRecord
	gens      map[string]uint64
	observers []func(ownerID string)
}

func NewCache(fetch FetchFunc) *Cache {
	return &Cache{
		fetch:   fetch,
		entries: make(map[string][]*domain.DetectionRecord),
		gens:    make(map[string]uint64),
	}
}

// Subscribe registers a callback invoked after every invalidation.
// Callbacks must not call back into the cache synchronously.
func (c *Cache) Subscribe(fn func(ownerID string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Read returns the cached records for ownerID, fetching on a miss.
func (c *Cache) Read(ctx context.Context, ownerID string) ([]*domain.DetectionRecord, error) {
	c.mu.RLock()
	recs, ok := c.entries[ownerID]
	gen := c.gens[ownerID]
	c.mu.RUnlock()
	if ok {
		return recs, nil
	}

	v, err, _ := c.group.Do(ownerID, func() (any, error) {
		recs, err := c.fetch(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		// an invalidation during the fetch bumps the generation; do not
		// cache a list that may predate the mutation
		if c.gens[ownerID] == gen {
			c.entries[ownerID] = recs
		}
		c.mu.Unlock()
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.DetectionRecord), nil
}

// Invalidate marks the owner's entry stale. Call only after a mutation has
// been durably acknowledged by the store; ids and timestamps are
// server-assigned and cannot be patched into the entry client-side.
func (c *Cache) Invalidate(ownerID string) {
	c.mu.Lock()
	delete(c.entries, ownerID)
	c.gens[ownerID]++
	observers := make([]func(string), len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	c.group.Forget(ownerID)

	for _, fn := range observers {
		fn(ownerID)
	}
}
