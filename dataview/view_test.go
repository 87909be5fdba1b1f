package dataview

import (
	"testing"

	"github.com/kaptinlin/formlogic/jsonvalue"
	"github.com/kaptinlin/formlogic/path"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(t *testing.T, s string) jsonvalue.Value {
	t.Helper()
	var v jsonvalue.Value
	require.NoError(t, v.UnmarshalJSON([]byte(s)))
	return v
}

func TestReadFallsBackToOriginal(t *testing.T) {
	v := New(doc(t, `{"a":{"b":1}}`))
	val, ok := v.Read(path.Parse("a.b"))
	require.True(t, ok)
	assert.Equal(t, int64(1), val.AsInt())
}

func TestWriteOverridesOriginal(t *testing.T) {
	v := New(doc(t, `{"a":1}`))
	v.Write(path.Parse("a"), jsonvalue.Int(2))
	val, ok := v.Read(path.Parse("a"))
	require.True(t, ok)
	assert.Equal(t, int64(2), val.AsInt())
}

func TestDeleteTombstonesRead(t *testing.T) {
	v := New(doc(t, `{"a":1}`))
	v.Delete(path.Parse("a"))
	_, ok := v.Read(path.Parse("a"))
	assert.False(t, ok)
}

func TestMaterializeDoesNotMutateOriginal(t *testing.T) {
	original := doc(t, `{"a":1,"b":{"c":2}}`)
	v := New(original)
	v.Write(path.Parse("b.c"), jsonvalue.Int(99))
	v.Write(path.Parse("d"), jsonvalue.String("new"))

	out := v.Materialize()

	origC, _ := original.AsObject().Get("b")
	c, _ := origC.AsObject().Get("c")
	assert.Equal(t, int64(2), c.AsInt(), "original must be unchanged")

	outB, _ := out.AsObject().Get("b")
	outC, _ := outB.AsObject().Get("c")
	assert.Equal(t, int64(99), outC.AsInt())

	outD, ok := out.AsObject().Get("d")
	require.True(t, ok)
	assert.Equal(t, "new", outD.AsString())
}

func TestMaterializeAppliesDelete(t *testing.T) {
	v := New(doc(t, `{"a":1,"b":2}`))
	v.Delete(path.Parse("a"))
	out := v.Materialize()
	_, ok := out.AsObject().Get("a")
	assert.False(t, ok)
	b, ok := out.AsObject().Get("b")
	require.True(t, ok)
	assert.Equal(t, int64(2), b.AsInt())
}

func TestWriteIntoArrayIndex(t *testing.T) {
	v := New(doc(t, `{"items":[1,2,3]}`))
	v.Write(path.Parse("items.1"), jsonvalue.Int(42))
	out := v.Materialize()
	items, _ := out.AsObject().Get("items")
	arr := items.AsArray()
	assert.Equal(t, int64(42), arr[1].AsInt())
	assert.Equal(t, int64(1), arr[0].AsInt())
}
