package protocol

import (
	"sync"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/internal/dwnlock"
)

// AncestorCache remembers a resolved ancestor chain per (tenant, recordId),
// the way the teacher's logdircache.go remembers a resolved DirCacheEntry
// per directory: a plain map behind a mutex, with an explicit invalidation
// call rather than a TTL, because the one event that can make a cached
// chain stale — a new write committing for that recordId — is always
// known to the caller at the moment it happens. Capped by entry count with
// FIFO eviction, not a full LRU, matching the teacher's preference for
// simple explicit reclamation over an imported cache library.
type AncestorCache struct {
	mu       sync.Mutex
	entries  map[string][]dwn.Message
	order    []string
	capacity int

	// protocolDefs dedupes concurrent ProtocolsConfigure lookups for the
	// same (tenant, protocol) pair; see fetchProtocolDefinition.
	protocolDefs *dwnlock.ProtocolDefinitionFetcher
}

// NewAncestorCache builds a cache holding at most capacity entries. A
// non-positive capacity disables chain caching (every call is a miss),
// which is always a correct, if slower, choice; protocol-definition fetch
// deduplication is unaffected by capacity since it only shares in-flight
// work, never stale results.
func NewAncestorCache(capacity int) *AncestorCache {
	return &AncestorCache{
		entries:      make(map[string][]dwn.Message),
		capacity:     capacity,
		protocolDefs: dwnlock.NewProtocolDefinitionFetcher(),
	}
}

func cacheKey(tenant, recordID string) string {
	return tenant + "\x00" + recordID
}

// Get returns the cached chain for (tenant, recordId), if present.
func (c *AncestorCache) Get(tenant, recordID string) ([]dwn.Message, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	chain, ok := c.entries[cacheKey(tenant, recordID)]
	return chain, ok
}

// Put stores chain for (tenant, recordId), evicting the oldest entry if the
// cache is at capacity.
func (c *AncestorCache) Put(tenant, recordID string, chain []dwn.Message) {
	if c == nil || c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(tenant, recordID)
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = chain

	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Invalidate drops the cached chain for (tenant, recordId), called whenever
// a write commits for that record so the next authorization rebuilds the
// chain from the Message Store.
func (c *AncestorCache) Invalidate(tenant, recordID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(tenant, recordID)
	if _, exists := c.entries[key]; !exists {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
