package jsonvalue

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Object is an insertion-ordered string-keyed map of Values. Keys are unique;
// re-setting an existing key preserves its original position.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject returns an empty ordered object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// NewObjectFromMap builds an ordered object from a plain Go map. Since Go map
// iteration order is unspecified, keys are sorted for determinism; callers
// that need to preserve a document's original key order should decode via
// UnmarshalJSON instead, which reads the wire order directly.
func NewObjectFromMap(m map[string]any) *Object {
	o := NewObject()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortStrings(keys)
	for _, k := range keys {
		o.Set(k, FromNative(m[k]))
	}
	return o
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order. The returned slice must not be
// mutated by the caller.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return o.keys
}

// Get returns the value at key and whether it was present.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Null(), false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Set inserts or overwrites key. Insertion order is preserved on overwrite.
func (o *Object) Set(key string, v Value) {
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Delete removes key, if present.
func (o *Object) Delete(key string) {
	if _, exists := o.vals[key]; !exists {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a shallow copy: the key order and top-level entries are
// copied, but nested Values are shared (Values are themselves immutable
// trees once constructed).
func (o *Object) Clone() *Object {
	if o == nil {
		return NewObject()
	}
	clone := &Object{
		keys: append([]string(nil), o.keys...),
		vals: make(map[string]Value, len(o.vals)),
	}
	for k, v := range o.vals {
		clone.vals[k] = v
	}
	return clone
}

// Equal reports whether two objects have the same keys (any order) and
// deeply-equal values.
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	for _, k := range o.keys {
		a, _ := o.Get(k)
		b, ok := other.Get(k)
		if !ok || !Equal(a, b) {
			return false
		}
	}
	return true
}

// ToNativeMap converts the object to a plain map[string]any, losing order.
func (o *Object) ToNativeMap() map[string]any {
	out := make(map[string]any, o.Len())
	for _, k := range o.keys {
		v := o.vals[k]
		out[k] = v.ToNative()
	}
	return out
}

// MarshalJSON writes the object preserving key insertion order, using the
// same jsontext-free approach kaptinlin-jsonschema takes: hand-rolled buffer
// assembly around goccy/go-json for each value.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil || o.Len() == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := json.Marshal(o.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object preserving the wire's key order.
func (o *Object) UnmarshalJSON(data []byte) error {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	if !v.IsObject() {
		return ErrExpectedObject
	}
	*o = *v.AsObject()
	return nil
}
