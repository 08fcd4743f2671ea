package planner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Cache memoizes plans keyed by request fingerprint. Get returns (nil, nil)
// on a miss; implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (*Plan, error)
	Set(ctx context.Context, key string, plan *Plan, ttl time.Duration) error
}

// Key fingerprints a planning request as hash(text + sorted agent names).
// Identical text against an identical agent set always produces the same key.
func Key(req Request) string {
	h := sha256.New()
	h.Write([]byte(req.Text))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(req.AgentNames(), ",")))
	return hex.EncodeToString(h.Sum(nil))
}

// MemoryCache is an in-process Cache with per-entry TTL. Expired entries are
// dropped lazily on read.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewMemoryCache constructs an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Get returns the cached plan or (nil, nil) when absent or expired.
func (c *MemoryCache) Get(_ context.Context, key string) (*Plan, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, nil
	}
	return decodePlan(e.data)
}

// Set stores the plan under key for ttl.
func (c *MemoryCache) Set(_ context.Context, key string, plan *Plan, ttl time.Duration) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{data: data, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, including not-yet-collected
// expired ones.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops all entries.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
}

// DecodePlan deserializes a plan stored by a Cache implementation, reviving
// placeholder references that were flattened to strings by the JSON
// round-trip.
func DecodePlan(data []byte) (*Plan, error) {
	return decodePlan(data)
}

func decodePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	for i := range p.Steps {
		p.Steps[i].Parameters = RevivePlaceholders(p.Steps[i].Parameters)
	}
	return &p, nil
}

// Caching wraps a planner with plan memoization. Cache hits reuse the stored
// steps under a freshly minted workflow ID so every planning event keeps a
// unique identifier.
type Caching struct {
	next  Planner
	cache Cache
	ttl   time.Duration
}

// NewCaching wraps next with the given cache and TTL.
func NewCaching(next Planner, cache Cache, ttl time.Duration) *Caching {
	return &Caching{next: next, cache: cache, ttl: ttl}
}

// Plan serves from the cache when possible, planning and storing otherwise.
// Cache errors are treated as misses; a broken cache never fails planning.
func (c *Caching) Plan(ctx context.Context, req Request) (*Plan, error) {
	key := Key(req)
	if cached, err := c.cache.Get(ctx, key); err == nil && cached != nil {
		fresh := *cached
		fresh.WorkflowID = NewWorkflowID("wf")
		fresh.Reason = cached.Reason + " (served from plan cache)"
		return &fresh, nil
	}
	plan, err := c.next.Plan(ctx, req)
	if err != nil {
		return nil, err
	}
	// Best effort; a write failure must not fail the planning event.
	_ = c.cache.Set(ctx, key, plan, c.ttl)
	return plan, nil
}
