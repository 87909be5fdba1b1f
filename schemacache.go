package formlogic

import (
	"fmt"
	"sync"

	"github.com/kaptinlin/formlogic/binary"
	"github.com/kaptinlin/formlogic/jsonvalue"
	"github.com/kaptinlin/formlogic/schemadoc"
)

// SchemaNotFoundError is returned by NewFromCache and ReloadSchemaFromCache
// when key has no entry in the SchemaCache.
type SchemaNotFoundError struct {
	Key string
}

func (e *SchemaNotFoundError) Error() string { return fmt.Sprintf("schema not found in cache: %s", e.Key) }

// SchemaCache is the process-wide Schema Cache (Module H, spec §4.8): a
// key -> *schemadoc.ParsedSchema store, safe for concurrent insertion and
// lookup, with no size bound by default (callers control lifetime).
// Grounded directly on kaptinlin-jsonschema's Compiler.schemas
// map[string]*Schema + mu sync.RWMutex pattern (compiler.go); that file
// itself was dropped from this tree (its JSON-Schema-specific compilation
// pipeline has no home here — see DESIGN.md), but its cache-field shape is
// preserved here.
type SchemaCache struct {
	mu      sync.RWMutex
	schemas map[string]*schemadoc.ParsedSchema
}

// NewSchemaCache returns an empty SchemaCache.
func NewSchemaCache() *SchemaCache {
	return &SchemaCache{schemas: make(map[string]*schemadoc.ParsedSchema)}
}

// Put parses raw and stores the result under key, replacing any existing
// entry. Returns the parsed schema so the caller can construct an Instance
// from it directly without a second lookup.
func (sc *SchemaCache) Put(key string, raw jsonvalue.Value) (*schemadoc.ParsedSchema, error) {
	ps, err := schemadoc.Parse(raw)
	if err != nil {
		return nil, translateParseError(err)
	}
	sc.mu.Lock()
	sc.schemas[key] = ps
	sc.mu.Unlock()
	return ps, nil
}

// PutBinary parses a pre-serialized binary schema form (spec §4.8 "Insertion
// accepts either a raw schema document or a pre-serialized binary form",
// spec §6 "Binary schema format") and stores the result under key.
func (sc *SchemaCache) PutBinary(key string, encoded []byte) (*schemadoc.ParsedSchema, error) {
	raw, err := binary.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode binary schema: %w", err)
	}
	return sc.Put(key, raw)
}

// ExportBinary serializes the raw schema document stored under key into the
// compact binary form, for persistence or transport (spec §6).
func (sc *SchemaCache) ExportBinary(key string) ([]byte, bool) {
	ps, ok := sc.Get(key)
	if !ok {
		return nil, false
	}
	return binary.Encode(ps.Raw), true
}

// PutParsed stores an already-parsed schema under key, replacing any
// existing entry.
func (sc *SchemaCache) PutParsed(key string, ps *schemadoc.ParsedSchema) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.schemas[key] = ps
}

// Get returns the parsed schema stored under key, and whether one exists.
// The returned value is shared and must not be mutated by the caller (spec
// §4.8 "Lookups return a shared reference; consumers must not mutate").
func (sc *SchemaCache) Get(key string) (*schemadoc.ParsedSchema, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	ps, ok := sc.schemas[key]
	return ps, ok
}

// Remove deletes the entry stored under key, if any (spec §4.8 "Removal is
// explicit").
func (sc *SchemaCache) Remove(key string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	delete(sc.schemas, key)
}

// Len reports the number of cached schemas.
func (sc *SchemaCache) Len() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.schemas)
}
