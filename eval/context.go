// Package eval implements the Expression Evaluator (spec §4.2): it
// interprets a compiled expression (package expr) against a data view, an
// optional read-only context, a result cache, and a timezone offset,
// following the Evaluator+EvalOptions functional-option shape used by
// gosonata's JSONata evaluator, generalized to this engine's opcode set.
package eval

import (
	"time"

	"github.com/kaptinlin/formlogic/expr"
	"github.com/kaptinlin/formlogic/jsonvalue"
	"github.com/kaptinlin/formlogic/path"
)

// Reader is the minimal read surface the evaluator needs from a data source;
// *dataview.View and any read-only document wrapper both satisfy it.
type Reader interface {
	Read(p path.Path) (jsonvalue.Value, bool)
}

// mapReader adapts a plain jsonvalue.Value document (used for $params and
// read-only context) to Reader.
type mapReader struct{ doc jsonvalue.Value }

// NewDocReader wraps a document for read-only Reader access, used for the
// $params block and the optional evaluation context.
func NewDocReader(doc jsonvalue.Value) Reader { return mapReader{doc: doc} }

func (m mapReader) Read(p path.Path) (jsonvalue.Value, bool) {
	cur := m.doc
	for _, seg := range p.Segments() {
		switch {
		case cur.IsObject():
			v, ok := cur.AsObject().Get(seg)
			if !ok {
				return jsonvalue.Null(), false
			}
			cur = v
		case cur.IsArray():
			idx, ok := path.SegmentIsIndex(seg)
			arr := cur.AsArray()
			if !ok || idx < 0 || idx >= len(arr) {
				return jsonvalue.Null(), false
			}
			cur = arr[idx]
		default:
			return jsonvalue.Null(), false
		}
	}
	return cur, true
}

// reservedIterVars are the lambda-bound names usable inside map/filter/
// reduce sub-expressions; see iterFrame.
const (
	iterItem  = "$item"
	iterIndex = "$index"
	iterAcc   = "$acc"
)

// iterFrame binds the reserved iteration variables for one level of
// map/filter/reduce nesting. Frames stack so nested array operators each see
// their own $item/$index without clobbering an enclosing reduce's $acc.
type iterFrame map[string]jsonvalue.Value

// Context bundles everything one Eval call needs to read: the mutable data
// view, the current schema-node-value view (for {$ref: path}), the field's
// own value (for {$ref: "$value"}), the $params block, an optional read-only
// evaluation context, the evaluator's clock snapshot, and its timezone
// offset. Every Context built within one orchestrator call shares that
// call's clock snapshot (spec's "NOW() snapshot per call" resolution of Open
// Question 1); Evaluate builds one per node, Validate and EvaluateDependents
// one per call.
type Context struct {
	Data          Reader
	SchemaValues  Reader
	Self          jsonvalue.Value
	HasSelf       bool
	Params        Reader
	ExternalCtx   Reader
	Now           time.Time
	TZOffsetMinutes int

	frames []iterFrame
	lookup *lookupScratch
}

// NewContext builds an evaluation context. now is the snapshot instant used
// for every NOW()/TODAY() call within the lifetime of this Context.
func NewContext(data, schemaValues, params, externalCtx Reader, now time.Time, tzOffsetMinutes int) *Context {
	return &Context{
		Data:            data,
		SchemaValues:    schemaValues,
		Params:          params,
		ExternalCtx:     externalCtx,
		Now:             now,
		TZOffsetMinutes: tzOffsetMinutes,
		lookup:          newLookupScratch(),
	}
}

// WithSelf returns a shallow copy of the context bound to a field's own
// current value, for evaluating {$ref: "$value"} inside dependent actions.
func (c *Context) WithSelf(self jsonvalue.Value) *Context {
	clone := *c
	clone.Self = self
	clone.HasSelf = true
	return &clone
}

func (c *Context) pushFrame(f iterFrame) { c.frames = append(c.frames, f) }
func (c *Context) popFrame()             { c.frames = c.frames[:len(c.frames)-1] }

// resolveVar resolves a {var: p} read: the innermost iteration frame wins if
// p's head segment names a reserved iteration variable; otherwise the
// external read-only context is consulted first, then the data view.
func (c *Context) resolveVar(p path.Path) (jsonvalue.Value, bool) {
	if head, rest, ok := p.Head(); ok {
		for i := len(c.frames) - 1; i >= 0; i-- {
			if bound, has := c.frames[i][head]; has {
				if rest.IsRoot() {
					return bound, true
				}
				return NewDocReader(bound).Read(rest)
			}
		}
	}
	if c.ExternalCtx != nil {
		if v, ok := c.ExternalCtx.Read(p); ok {
			return v, true
		}
	}
	return c.Data.Read(p)
}
