// Package cache implements the Result Cache (spec §4.6): a content-addressed
// memoization table keyed by (compiled-expression-id, capture-fingerprint).
// Grounded on sandrolain-gosonata's pkg/cache (cache.New(size), attached via
// EvalOptions.Cache/WithCache/WithCacheSize), adapted from its LRU-by-query-
// string shape to a two-part key with no eviction requirement by default: a
// non-positive size means unbounded, matching spec §4.6's "no eviction is
// required for correctness; an optional bounded LRU may be layered on".
package cache

import (
	"container/list"
	"hash/fnv"
	"sync"

	"github.com/goccy/go-json"

	"github.com/kaptinlin/formlogic/expr"
	"github.com/kaptinlin/formlogic/jsonvalue"
)

// Key identifies one cached result: the compiled expression and the
// fingerprint of the values its read-set saw at capture time.
type Key struct {
	ID          expr.ID
	Fingerprint uint64
}

type entry struct {
	key     Key
	value   jsonvalue.Value
	element *list.Element // nil when unbounded (no LRU tracking)
}

// Cache is a per-evaluator-instance result cache (spec §4.6 "cache is
// per-evaluator-instance, not global, by default"). Safe for concurrent use
// by the batch worker pool (spec §5: "uses internal synchronization if
// multiple batch workers write concurrently").
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]*entry
	lru     *list.List // most-recently-used at front; nil when unbounded
	maxSize int
}

// New returns a cache. maxSize <= 0 means unbounded (no eviction); maxSize > 0
// enables LRU eviction at that many entries.
func New(maxSize int) *Cache {
	c := &Cache{
		entries: make(map[Key]*entry),
		maxSize: maxSize,
	}
	if maxSize > 0 {
		c.lru = list.New()
	}
	return c
}

// Get returns the cached result for key, if present, touching it as
// most-recently-used.
func (c *Cache) Get(key Key) (jsonvalue.Value, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return jsonvalue.Value{}, false
	}
	if c.lru != nil {
		c.mu.Lock()
		c.lru.MoveToFront(e.element)
		c.mu.Unlock()
	}
	return e.value, true
}

// Set stores value under key, by shared reference (spec §4.6 "values ... are
// stored by shared reference so that multiple cache hits do not deep-copy").
// A new key/value pair always replaces any existing entry for the same key.
func (c *Cache) Set(key Key, value jsonvalue.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		existing.value = value
		if c.lru != nil {
			c.lru.MoveToFront(existing.element)
		}
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	if c.lru != nil {
		e.element = c.lru.PushFront(e)
		if c.lru.Len() > c.maxSize {
			oldest := c.lru.Back()
			if oldest != nil {
				c.lru.Remove(oldest)
				delete(c.entries, oldest.Value.(*entry).key)
			}
		}
	}
}

// InvalidateAll clears every entry. Used when a non-local input that affects
// referenced constants changes (timezone offset, $params, schema reload) —
// spec §4.6: "cache must be invalidated en masse whenever [such] a non-local
// input changes".
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*entry)
	if c.lru != nil {
		c.lru = list.New()
	}
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Fingerprint computes a stable hash over an ordered slice of captured
// read-set values (spec §4.6 "a stable hash of the values read by the
// expression's read-set at the moment of evaluation"). Order matters: callers
// must supply values in the read-set's canonical (deduplicated, declaration)
// order so that two calls over the same logical reads always hash equal.
func Fingerprint(values []jsonvalue.Value) uint64 {
	h := fnv.New64a()
	for _, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		_, _ = h.Write(b)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
