package jsonvalue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	assert.Equal(t, 0.3, Canonicalize(0.1+0.2))
	assert.Equal(t, 8.0, Canonicalize(8.0))
	assert.Equal(t, 1.5, Canonicalize(1.5))
}

func TestIntegerPreservation(t *testing.T) {
	v := Int(5)
	w := Int(3)
	sum := v.AsInt() + w.AsInt()
	assert.Equal(t, int64(8), sum)
	assert.True(t, Int(8).IsInt())
}

func TestFromNativeRoundTrip(t *testing.T) {
	data := []byte(`{"a":1,"b":2.5,"c":"x","d":[1,2,3],"e":null,"f":true}`)
	var v Value
	require.NoError(t, v.UnmarshalJSON(data))
	require.True(t, v.IsObject())
	obj := v.AsObject()
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, obj.Keys())

	a, _ := obj.Get("a")
	assert.True(t, a.IsInt())
	assert.Equal(t, int64(1), a.AsInt())

	b, _ := obj.Get("b")
	assert.True(t, b.IsFloat())

	out, err := v.MarshalJSON()
	require.NoError(t, err)

	var v2 Value
	require.NoError(t, v2.UnmarshalJSON(out))
	assert.True(t, Equal(v, v2))
}

func TestEqualityCoercion(t *testing.T) {
	assert.True(t, Equal(Int(1), Float(1.0)))
	assert.False(t, StrictEqual(Int(1), Float(1.0)))
	assert.True(t, StrictEqual(Int(1), Int(1)))
}

func TestTruthy(t *testing.T) {
	assert.False(t, Null().Truthy())
	assert.False(t, Int(0).Truthy())
	assert.False(t, String("").Truthy())
	assert.False(t, Array(nil).Truthy())
	assert.True(t, String("x").Truthy())
	assert.True(t, Int(1).Truthy())
}

func TestObjectOrderPreservedOnOverwrite(t *testing.T) {
	o := NewObject()
	o.Set("a", Int(1))
	o.Set("b", Int(2))
	o.Set("a", Int(3))
	assert.Equal(t, []string{"a", "b"}, o.Keys())
	v, _ := o.Get("a")
	assert.Equal(t, int64(3), v.AsInt())
}
