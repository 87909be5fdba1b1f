package binary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaptinlin/formlogic/jsonvalue"
)

func TestRoundTripScalars(t *testing.T) {
	cases := []jsonvalue.Value{
		jsonvalue.Null(),
		jsonvalue.Bool(true),
		jsonvalue.Bool(false),
		jsonvalue.Int(-42),
		jsonvalue.Int(0),
		jsonvalue.Float(3.5),
		jsonvalue.String(""),
		jsonvalue.String("hello world"),
	}
	for _, v := range cases {
		encoded := Encode(v)
		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.True(t, jsonvalue.StrictEqual(v, decoded), "round-trip mismatch for %v", v)
	}
}

func TestRoundTripArrayAndObject(t *testing.T) {
	obj := jsonvalue.NewObject()
	obj.Set("name", jsonvalue.String("alice"))
	obj.Set("age", jsonvalue.Int(30))
	obj.Set("tags", jsonvalue.Array([]jsonvalue.Value{jsonvalue.String("a"), jsonvalue.String("b")}))
	obj.Set("nested", jsonvalue.Obj(func() *jsonvalue.Object {
		inner := jsonvalue.NewObject()
		inner.Set("ok", jsonvalue.Bool(true))
		return inner
	}()))
	v := jsonvalue.Obj(obj)

	encoded := Encode(v)
	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.True(t, decoded.IsObject())

	name, ok := decoded.AsObject().Get("name")
	require.True(t, ok)
	assert.Equal(t, "alice", name.AsString())

	tags, ok := decoded.AsObject().Get("tags")
	require.True(t, ok)
	require.Len(t, tags.AsArray(), 2)
	assert.Equal(t, "a", tags.AsArray()[0].AsString())
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	_, err := Decode([]byte{0xFF, 0x00})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecodeRejectsEmptyInput(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeRejectsTruncatedValue(t *testing.T) {
	encoded := Encode(jsonvalue.String("hello"))
	_, err := Decode(encoded[:len(encoded)-2])
	assert.Error(t, err)
}

func TestDecodeRejectsTrailingGarbage(t *testing.T) {
	encoded := Encode(jsonvalue.Int(1))
	encoded = append(encoded, 0x01, 0x02)
	_, err := Decode(encoded)
	assert.ErrorIs(t, err, ErrTruncated)
}
