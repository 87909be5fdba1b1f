package formlogic

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-yaml"

	"github.com/kaptinlin/formlogic/cache"
	"github.com/kaptinlin/formlogic/dataview"
	"github.com/kaptinlin/formlogic/eval"
	"github.com/kaptinlin/formlogic/jsonvalue"
	"github.com/kaptinlin/formlogic/path"
	"github.com/kaptinlin/formlogic/schemadoc"
)

// schemaValueStore is the read/write surface evaluated schema-node values are
// kept in, for {$ref: path} reads of another node's current evaluated value
// (spec §3 Expression "{$ref: ...} read from another schema node's current
// evaluated value"). Evaluated values are written here and, per spec §4.7
// "writes the computed values into both the output schema and the output
// data overlay", mirrored into the data view by the orchestrator.
type schemaValueStore struct {
	mu   sync.RWMutex
	vals map[string]jsonvalue.Value
}

func newSchemaValueStore() *schemaValueStore {
	return &schemaValueStore{vals: make(map[string]jsonvalue.Value)}
}

func (s *schemaValueStore) Read(p path.Path) (jsonvalue.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vals[p.String()]
	return v, ok
}

func (s *schemaValueStore) Write(p path.Path, v jsonvalue.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[p.String()] = v
}

func (s *schemaValueStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals = make(map[string]jsonvalue.Value)
}

// defaultDependencyDepthCap bounds evaluateDependents's fixpoint loop (spec
// §4.7 "a transitive-depth cap (default 32) guards infinite chains").
const defaultDependencyDepthCap = 32

// Instance pairs an immutable ParsedSchema with the mutable state one
// evaluation session needs (spec §3 "Evaluator Instance"): the proxy data
// view, the evaluated-schema-value store, the result cache, the timezone
// offset, and a cooperative cancellation/generation token. Grounded on the
// teacher's Compiler method-chaining configuration style (WithEncoderJSON,
// SetDefaultBaseURI in compiler.go), adapted to functional Instance options.
type Instance struct {
	mu sync.RWMutex

	schema       *schemadoc.ParsedSchema
	data         *dataview.View
	schemaValues *schemaValueStore
	externalCtx  jsonvalue.Value
	params       eval.Reader
	cache        *cache.Cache
	evaluator    *eval.Evaluator

	tzOffsetMinutes int
	depthCap        int

	generation int64 // atomic; bumped on every Evaluate call and schema reload
	cancelled  int32 // atomic bool
}

// Option configures an Instance at construction time.
type Option func(*Instance)

// WithContext supplies the read-only external evaluation context document.
func WithContext(context jsonvalue.Value) Option {
	return func(in *Instance) { in.externalCtx = context }
}

// WithData supplies the initial input data document.
func WithData(data jsonvalue.Value) Option {
	return func(in *Instance) { in.data = dataview.New(data) }
}

// WithTimezoneOffset sets the minutes-from-UTC offset TODAY() resolves
// against (spec §4.2).
func WithTimezoneOffset(minutes int) Option {
	return func(in *Instance) { in.tzOffsetMinutes = minutes }
}

// WithCacheSize bounds the result cache to an LRU of the given size;
// non-positive (the default) leaves it unbounded (spec §4.6).
func WithCacheSize(size int) Option {
	return func(in *Instance) { in.cache = cache.New(size) }
}

// WithDependencyDepthCap overrides the default transitive-depth cap used by
// evaluateDependents (spec §4.7, default 32).
func WithDependencyDepthCap(depth int) Option {
	return func(in *Instance) { in.depthCap = depth }
}

// New constructs an Instance from a parsed schema document (spec §6
// "new(schema, context?, data?)").
func New(schema jsonvalue.Value, opts ...Option) (*Instance, error) {
	ps, err := schemadoc.Parse(schema)
	if err != nil {
		return nil, translateParseError(err)
	}
	return newInstance(ps, opts...)
}

// NewFromYAML constructs an Instance from a schema document supplied as
// YAML (spec §6 alternate input form), decoded the same way
// kaptinlin-jsonschema's "application/yaml" media-type handler does
// (compiler.go:setupMediaTypes) before being routed through the ordinary
// Json value tree.
func NewFromYAML(yamlDoc []byte, opts ...Option) (*Instance, error) {
	schema, err := DecodeYAML(yamlDoc)
	if err != nil {
		return nil, &InvalidSchemaError{Detail: err.Error()}
	}
	return New(schema, opts...)
}

// DecodeYAML decodes an arbitrary YAML document (a schema, a data document,
// or a context document) into a Json value tree, for callers that accept
// either JSON or YAML input interchangeably (spec §6 alternate input form).
func DecodeYAML(doc []byte) (jsonvalue.Value, error) {
	var native any
	if err := yaml.Unmarshal(doc, &native); err != nil {
		return jsonvalue.Value{}, err
	}
	return jsonvalue.FromNative(normalizeYAMLMaps(native)), nil
}

// normalizeYAMLMaps rewrites map[any]any nodes goccy/go-yaml may produce for
// non-string keys into map[string]any, which is all jsonvalue.FromNative
// understands; schema documents only ever use string keys in practice.
func normalizeYAMLMaps(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeYAMLMaps(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmtKey(k)] = normalizeYAMLMaps(val)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = normalizeYAMLMaps(e)
		}
		return t
	default:
		return v
	}
}

func fmtKey(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}

// NewFromParsedSchema constructs an Instance from an already-parsed schema,
// e.g. one retrieved from a SchemaCache (spec §6 "newFromCache(key, ...)").
func NewFromParsedSchema(ps *schemadoc.ParsedSchema, opts ...Option) *Instance {
	in, _ := newInstance(ps, opts...)
	return in
}

// NewFromCache constructs an Instance from a schema stored under key in sc.
func NewFromCache(sc *SchemaCache, key string, opts ...Option) (*Instance, error) {
	ps, ok := sc.Get(key)
	if !ok {
		return nil, &SchemaNotFoundError{Key: key}
	}
	return NewFromParsedSchema(ps, opts...), nil
}

func newInstance(ps *schemadoc.ParsedSchema, opts ...Option) (*Instance, error) {
	in := &Instance{
		schema:       ps,
		data:         dataview.New(jsonvalue.Null()),
		schemaValues: newSchemaValueStore(),
		cache:        cache.New(0),
		depthCap:     defaultDependencyDepthCap,
	}
	for _, opt := range opts {
		opt(in)
	}
	in.params = eval.NewDocReader(ps.Params)
	in.evaluator = eval.New(ps.Table)
	return in, nil
}

// Data returns the current materialized data document (a fresh copy; the
// overlay is never exposed directly).
func (in *Instance) Data() jsonvalue.Value {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.data.Materialize()
}

// SetData replaces the instance's input data document with a fresh view,
// discarding prior mutations and evaluated schema-node values, and
// invalidates the result cache since every cached fingerprint was captured
// against the old document.
func (in *Instance) SetData(data jsonvalue.Value) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.data = dataview.New(data)
	in.schemaValues.reset()
	in.cache.InvalidateAll()
}

// SetContext replaces the read-only external evaluation context document and
// invalidates the cache, since it is a non-local input (spec §4.6 "Cache
// must be invalidated en masse whenever a non-local input changes").
func (in *Instance) SetContext(context jsonvalue.Value) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.externalCtx = context
	in.cache.InvalidateAll()
}

// SetTimezoneOffset mutates the instance's timezone offset and invalidates
// the cache, since cached NOW()/TODAY() results may depend on it (spec
// §4.2, §4.6).
func (in *Instance) SetTimezoneOffset(minutes int) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.tzOffsetMinutes = minutes
	in.cache.InvalidateAll()
}

// cancel sets the cooperative cancellation flag (spec §5 "cancel() sets it;
// the orchestrator checks it between batches").
func (in *Instance) cancel() {
	atomic.StoreInt32(&in.cancelled, 1)
}

// Cancel is the public form of cancel (spec §4.7 "cancel()").
func (in *Instance) Cancel() { in.cancel() }

func (in *Instance) isCancelled() bool {
	return atomic.LoadInt32(&in.cancelled) == 1
}

// beginCall bumps the generation counter (spec §5 "latest-call-wins") and
// clears any stale cancellation flag left by a prior completed call.
func (in *Instance) beginCall() int64 {
	atomic.StoreInt32(&in.cancelled, 0)
	return atomic.AddInt64(&in.generation, 1)
}

func (in *Instance) superseded(gen int64) bool {
	return atomic.LoadInt64(&in.generation) != gen
}
