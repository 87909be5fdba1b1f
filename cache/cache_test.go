package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaptinlin/formlogic/jsonvalue"
)

func TestGetSetRoundTrip(t *testing.T) {
	c := New(0)
	key := Key{ID: 1, Fingerprint: 42}

	_, ok := c.Get(key)
	require.False(t, ok)

	c.Set(key, jsonvalue.Int(7))
	v, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, int64(7), v.AsInt())
}

func TestSetReplacesExistingKey(t *testing.T) {
	c := New(0)
	key := Key{ID: 1, Fingerprint: 42}
	c.Set(key, jsonvalue.Int(1))
	c.Set(key, jsonvalue.Int(2))

	v, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, int64(2), v.AsInt())
	assert.Equal(t, 1, c.Len())
}

func TestLRUEviction(t *testing.T) {
	c := New(2)
	c.Set(Key{ID: 1}, jsonvalue.Int(1))
	c.Set(Key{ID: 2}, jsonvalue.Int(2))
	c.Set(Key{ID: 3}, jsonvalue.Int(3))

	_, ok := c.Get(Key{ID: 1})
	assert.False(t, ok, "oldest entry should have been evicted")
	assert.Equal(t, 2, c.Len())
}

func TestInvalidateAll(t *testing.T) {
	c := New(0)
	c.Set(Key{ID: 1}, jsonvalue.Int(1))
	c.InvalidateAll()
	assert.Equal(t, 0, c.Len())
}

func TestFingerprintStableForSameValues(t *testing.T) {
	a := []jsonvalue.Value{jsonvalue.Int(1), jsonvalue.String("x")}
	b := []jsonvalue.Value{jsonvalue.Int(1), jsonvalue.String("x")}
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintDiffersForDifferentValues(t *testing.T) {
	a := []jsonvalue.Value{jsonvalue.Int(1)}
	b := []jsonvalue.Value{jsonvalue.Int(2)}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
