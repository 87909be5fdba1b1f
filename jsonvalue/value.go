// Package jsonvalue implements the tagged Json value used throughout the
// form logic engine: null, bool, integer, floating, string, ordered array,
// and ordered object, with the floating-point canonicalization policy the
// expression evaluator relies on.
package jsonvalue

import (
	"bytes"
	"math"
	"math/big"
	"strconv"

	"github.com/goccy/go-json"
)

func bytesReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }

// Kind tags the concrete shape a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindFloat:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a tagged JSON value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  *Object
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a floating value, canonicalizing it first (see Canonicalize).
func Float(f float64) Value { return Value{kind: KindFloat, f: Canonicalize(f)} }

// RawFloat wraps a floating value without canonicalizing it. Used for values
// that are already canonical (CanonicalToValue) or whose exact bits must be
// kept (binary decoding).
func RawFloat(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array wraps an ordered array of values. The slice is taken by reference.
func Array(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, arr: items}
}

// Obj wraps an ordered object.
func Obj(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) IsBool() bool    { return v.kind == KindBool }
func (v Value) IsInt() bool     { return v.kind == KindInt }
func (v Value) IsFloat() bool   { return v.kind == KindFloat }
func (v Value) IsNumber() bool  { return v.kind == KindInt || v.kind == KindFloat }
func (v Value) IsString() bool  { return v.kind == KindString }
func (v Value) IsArray() bool   { return v.kind == KindArray }
func (v Value) IsObject() bool  { return v.kind == KindObject }

// AsBool returns the boolean payload; false if not a bool.
func (v Value) AsBool() bool { return v.b }

// AsInt returns the integer payload. If the value is a float, it truncates.
func (v Value) AsInt() int64 {
	if v.kind == KindFloat {
		return int64(v.f)
	}
	return v.i
}

// AsFloat returns the numeric payload as a float64 regardless of Kind.
func (v Value) AsFloat() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// AsString returns the string payload; "" if not a string.
func (v Value) AsString() string { return v.s }

// AsArray returns the underlying slice; nil if not an array.
func (v Value) AsArray() []Value { return v.arr }

// AsObject returns the underlying ordered object; nil if not an object.
func (v Value) AsObject() *Object { return v.obj }

// Truthy implements the engine's boolean-coercion rule used by `if`/`and`/
// `or`/`not`: null, false, 0, "", empty array and empty object are falsy;
// everything else is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return v.s != ""
	case KindArray:
		return len(v.arr) != 0
	case KindObject:
		return v.obj.Len() != 0
	default:
		return false
	}
}

// Equal implements the engine's loose `==` comparison: numbers compare by
// value across Int/Float, everything else must share Kind.
func Equal(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		return a.AsFloat() == b.AsFloat()
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.s == b.s
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return a.obj.Equal(b.obj)
	default:
		return false
	}
}

// StrictEqual implements `===`: same Kind required, including Int vs Float.
func StrictEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	return Equal(a, b)
}

// Canonicalize applies the evaluator's boundary float-cleanup policy (§4.2):
// values within 1e-9 of an integer snap to that integer; other values are
// rounded to 15 significant digits, which drops trailing binary noise
// (0.1+0.2 becomes 0.3); NaN/Inf pass through unchanged.
func Canonicalize(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	rounded := math.Round(f)
	if math.Abs(f-rounded) < 1e-9 {
		return rounded
	}
	cleaned, err := strconv.ParseFloat(strconv.FormatFloat(f, 'g', 15, 64), 64)
	if err != nil {
		return f
	}
	return cleaned
}

// CanonicalToValue turns a canonicalized float into an Int Value when it is
// an exact integer within float64's safe integer range, otherwise a Float
// Value. This is how `+`, `-`, `*` decide whether an integer-only computation
// stays integral (§4.2): arithmetic on two Ints that cannot overflow int64
// stays Int without ever touching this path; only float-producing ops call it.
func CanonicalToValue(f float64) Value {
	c := Canonicalize(f)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return RawFloat(c)
	}
	if c == math.Trunc(c) && math.Abs(c) < 1e15 {
		return Int(int64(c))
	}
	return RawFloat(c)
}

// ToNative converts a Value into a plain Go value tree (nil, bool, int64,
// float64, string, []any, map[string]any; object key order is not kept)
// suitable for generic consumption outside the package.
func (v Value) ToNative() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.ToNative()
		}
		return out
	case KindObject:
		return v.obj.ToNativeMap()
	default:
		return nil
	}
}

// FromNative builds a Value from a decoded `any` tree, such as one produced
// by json.Unmarshal into `any` (where goccy/go-json, configured with
// UseNumber, yields json.Number for numerics so integer/float identity
// survives decode), or by a YAML decoder, which yields uint64 for
// non-negative integers.
func FromNative(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case json.Number:
		return numberFromJSONNumber(t)
	case string:
		return String(t)
	case float64:
		return numberFromFloat(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint64:
		if t <= math.MaxInt64 {
			return Int(int64(t))
		}
		return Float(float64(t))
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = FromNative(e)
		}
		return Array(items)
	case map[string]any:
		return Obj(NewObjectFromMap(t))
	case *Object:
		return Obj(t)
	case []Value:
		return Array(t)
	case Value:
		return t
	default:
		return Null()
	}
}

func numberFromFloat(f float64) Value {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e15 {
		return Int(int64(f))
	}
	return Float(f)
}

func numberFromJSONNumber(n json.Number) Value {
	if i, err := n.Int64(); err == nil {
		return Int(i)
	}
	if f, err := n.Float64(); err == nil {
		return Float(f)
	}
	// Arbitrary precision fallback: keep the best float approximation.
	bf, _, err := big.ParseFloat(string(n), 10, 64, big.ToNearestEven)
	if err != nil {
		return Null()
	}
	f, _ := bf.Float64()
	return Float(f)
}

// MarshalJSON implements json.Marshaler so a Value round-trips through
// goccy/go-json the same way kaptinlin-jsonschema's Rat type does.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		return json.Marshal(v.arr)
	case KindObject:
		return v.obj.MarshalJSON()
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler, decoding numbers with UseNumber
// semantics so integers and floats round-trip distinctly, and preserving
// object key insertion order as it appears on the wire.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytesReader(data))
	dec.UseNumber()
	val, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}
	return decodeValueFromToken(dec, tok)
}

func decodeValueFromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			o := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null(), err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Null(), ErrExpectedObjectKey
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				o.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return Obj(o), nil
		case '[':
			items := []Value{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				items = append(items, val)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return Array(items), nil
		default:
			return Null(), ErrUnexpectedToken
		}
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return numberFromJSONNumber(t), nil
	case string:
		return String(t), nil
	default:
		return Null(), ErrUnexpectedToken
	}
}
