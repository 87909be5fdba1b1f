// Package dataview implements the Proxy Data View (spec §4.5): a mutable,
// path-addressable overlay over an input data document that lets evaluations
// both read and write without mutating the caller's original document, and
// without the O(tree) cost of a copy-per-write.
package dataview

import (
	"sync"

	"github.com/kaptinlin/formlogic/jsonvalue"
	"github.com/kaptinlin/formlogic/path"
)

// Mutation records one write or delete applied through the view, in the
// order it was applied.
type Mutation struct {
	Path        path.Path
	HadPrevious bool
	Previous    jsonvalue.Value
	New         jsonvalue.Value
	Deleted     bool
}

// View wraps an original Json document with a flat overlay map (path string
// -> value) plus a tombstone set, per spec §9: "a flat map path -> value plus
// a tombstone set; lookups walk segments once." Reads consult the overlay
// first, then fall back to the original; writes and deletes only ever touch
// the overlay, so the original is never mutated (spec §4.5 invariant).
type View struct {
	mu         sync.RWMutex
	original   jsonvalue.Value
	overlay    map[string]jsonvalue.Value
	tombstones map[string]bool
	mutations  []Mutation
}

// New wraps original in a fresh View with an empty overlay.
func New(original jsonvalue.Value) *View {
	return &View{
		original:   original,
		overlay:    make(map[string]jsonvalue.Value),
		tombstones: make(map[string]bool),
	}
}

// Read resolves a path against the overlay first, then the original
// document. The second return value is false if the path is absent (either
// never set, or tombstoned).
func (v *View) Read(p path.Path) (jsonvalue.Value, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.readLocked(p)
}

func (v *View) readLocked(p path.Path) (jsonvalue.Value, bool) {
	key := p.String()
	if v.tombstones[key] {
		return jsonvalue.Null(), false
	}
	if val, ok := v.overlay[key]; ok {
		return val, true
	}
	return lookup(v.original, p)
}

// Write records a mutation at p, consulting the pre-write value (from the
// overlay or original) to populate Mutation.Previous.
func (v *View) Write(p path.Path, val jsonvalue.Value) {
	v.mu.Lock()
	defer v.mu.Unlock()

	prev, had := v.readLocked(p)
	key := p.String()
	delete(v.tombstones, key)
	v.overlay[key] = val
	v.mutations = append(v.mutations, Mutation{Path: p, HadPrevious: had, Previous: prev, New: val})
}

// Delete marks p as tombstoned: subsequent reads report absence regardless
// of what the original document holds there.
func (v *View) Delete(p path.Path) {
	v.mu.Lock()
	defer v.mu.Unlock()

	prev, had := v.readLocked(p)
	key := p.String()
	delete(v.overlay, key)
	v.tombstones[key] = true
	v.mutations = append(v.mutations, Mutation{Path: p, HadPrevious: had, Previous: prev, Deleted: true})
}

// Mutations returns the ordered log of writes/deletes applied so far. The
// returned slice must not be mutated by the caller.
func (v *View) Mutations() []Mutation {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mutations
}

// Reset clears the overlay and mutation log, leaving the original document
// untouched. Used when reloading a schema or starting a fresh evaluation
// pass over the same instance.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.overlay = make(map[string]jsonvalue.Value)
	v.tombstones = make(map[string]bool)
	v.mutations = nil
}

// Original returns the untouched document the view was constructed from.
func (v *View) Original() jsonvalue.Value {
	return v.original
}

// Materialize builds a fresh output document: a deep copy of the original
// with every recorded write/delete applied. The original input is never
// mutated (spec §4.5 invariant, §8 property 7).
func (v *View) Materialize() jsonvalue.Value {
	v.mu.RLock()
	defer v.mu.RUnlock()

	result := deepClone(v.original)
	for key, val := range v.overlay {
		result = setAt(result, path.Parse(key), val)
	}
	for key := range v.tombstones {
		if _, has := v.overlay[key]; has {
			continue
		}
		result = deleteAt(result, path.Parse(key))
	}
	return result
}

func lookup(doc jsonvalue.Value, p path.Path) (jsonvalue.Value, bool) {
	cur := doc
	for _, seg := range p.Segments() {
		switch {
		case cur.IsObject():
			val, ok := cur.AsObject().Get(seg)
			if !ok {
				return jsonvalue.Null(), false
			}
			cur = val
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

func deepClone(v jsonvalue.Value) jsonvalue.Value {
	switch {
	case v.IsObject():
		src := v.AsObject()
		dst := jsonvalue.NewObject()
		for _, k := range src.Keys() {
			val, _ := src.Get(k)
			dst.Set(k, deepClone(val))
		}
		return jsonvalue.Obj(dst)
	case v.IsArray():
		src := v.AsArray()
		dst := make([]jsonvalue.Value, len(src))
		for i, e := range src {
			dst[i] = deepClone(e)
		}
		return jsonvalue.Array(dst)
	default:
		return v
	}
}

// setAt returns a copy of doc with val written at p, creating intermediate
// objects/array slots as needed. Arrays are grown with null padding; writing
// past an array's current end never truncates existing elements.
func setAt(doc jsonvalue.Value, p path.Path, val jsonvalue.Value) jsonvalue.Value {
	if p.IsRoot() {
		return val
	}
	seg, rest, _ := p.Head()
	if idx, isIndex := path.SegmentIsIndex(seg); isIndex && (doc.IsArray() || doc.IsNull()) {
		arr := append([]jsonvalue.Value(nil), doc.AsArray()...)
		for len(arr) <= idx {
			arr = append(arr, jsonvalue.Null())
		}
		arr[idx] = setAt(arr[idx], rest, val)
		return jsonvalue.Array(arr)
	}

	var obj *jsonvalue.Object
	if doc.IsObject() {
		obj = doc.AsObject().Clone()
	} else {
		obj = jsonvalue.NewObject()
	}
	child, _ := obj.Get(seg)
	obj.Set(seg, setAt(child, rest, val))
	return jsonvalue.Obj(obj)
}

func deleteAt(doc jsonvalue.Value, p path.Path) jsonvalue.Value {
	if p.IsRoot() {
		return jsonvalue.Null()
	}
	seg, rest, _ := p.Head()
	if rest.IsRoot() {
		switch {
		case doc.IsObject():
			obj := doc.AsObject().Clone()
			obj.Delete(seg)
			return jsonvalue.Obj(obj)
		case doc.IsArray():
			if idx, ok := path.SegmentIsIndex(seg); ok {
				arr := doc.AsArray()
				if idx >= 0 && idx < len(arr) {
					out := append([]jsonvalue.Value(nil), arr[:idx]...)
					out = append(out, arr[idx+1:]...)
					return jsonvalue.Array(out)
				}
			}
			return doc
		default:
			return doc
		}
	}
	switch {
	case doc.IsObject():
		obj := doc.AsObject().Clone()
		child, ok := obj.Get(seg)
		if !ok {
			return doc
		}
		obj.Set(seg, deleteAt(child, rest))
		return jsonvalue.Obj(obj)
	case doc.IsArray():
		idx, ok := path.SegmentIsIndex(seg)
		arr := doc.AsArray()
		if !ok || idx < 0 || idx >= len(arr) {
			return doc
		}
		out := append([]jsonvalue.Value(nil), arr...)
		out[idx] = deleteAt(out[idx], rest)
		return jsonvalue.Array(out)
	default:
		return doc
	}
}
