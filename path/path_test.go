package path

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDottedAndPointer(t *testing.T) {
	dotted := Parse("a.b.0.c")
	pointer := Parse("#/a/b/0/c")
	assert.True(t, dotted.Equal(pointer))
	assert.Equal(t, []string{"a", "b", "0", "c"}, dotted.Segments())
}

func TestStringIsDotted(t *testing.T) {
	p := Parse("#/a/b/0")
	assert.Equal(t, "a.b.0", p.String())
}

func TestSegmentIsIndex(t *testing.T) {
	n, ok := SegmentIsIndex("3")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = SegmentIsIndex("abc")
	assert.False(t, ok)
}

func TestHasPrefix(t *testing.T) {
	p := Parse("a.b.c")
	assert.True(t, p.HasPrefix(Parse("a.b")))
	assert.False(t, p.HasPrefix(Parse("a.x")))
}

func TestChildAndParent(t *testing.T) {
	p := Root().Child("a").Child("b")
	assert.Equal(t, "a.b", p.String())
	assert.Equal(t, "a", p.Parent().String())
}
