package eval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaptinlin/formlogic/expr"
	"github.com/kaptinlin/formlogic/jsonvalue"
)

func mustCompile(t *testing.T, table *expr.Table, src string) expr.Compiled {
	t.Helper()
	var v jsonvalue.Value
	require.NoError(t, v.UnmarshalJSON([]byte(src)))
	c, err := expr.Compile(table, v)
	require.NoError(t, err)
	return c
}

func newTestContext(data jsonvalue.Value) *Context {
	return NewContext(NewDocReader(data), NewDocReader(jsonvalue.Null()), NewDocReader(jsonvalue.Null()), nil, time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC), 0)
}

func TestEvalFloatAdditionCanonicalizes(t *testing.T) {
	table := expr.NewTable()
	c := mustCompile(t, table, `{"+": [0.1, 0.2]}`)
	ev := New(table)
	ectx := newTestContext(jsonvalue.Null())

	v, err := ev.Eval(context.Background(), ectx, c.Root)
	require.NoError(t, err)
	assert.True(t, v.IsFloat())
	assert.InDelta(t, 0.3, v.AsFloat(), 1e-12)
}

func TestEvalIntegerAdditionStaysInt(t *testing.T) {
	table := expr.NewTable()
	c := mustCompile(t, table, `{"+": [5, 3]}`)
	ev := New(table)
	ectx := newTestContext(jsonvalue.Null())

	v, err := ev.Eval(context.Background(), ectx, c.Root)
	require.NoError(t, err)
	assert.True(t, v.IsInt())
	assert.Equal(t, int64(8), v.AsInt())
}

func TestEvalDivisionAlwaysFloats(t *testing.T) {
	table := expr.NewTable()
	c := mustCompile(t, table, `{"/": [4, 2]}`)
	ev := New(table)
	ectx := newTestContext(jsonvalue.Null())

	v, err := ev.Eval(context.Background(), ectx, c.Root)
	require.NoError(t, err)
	assert.True(t, v.IsFloat())
	assert.Equal(t, 2.0, v.AsFloat())
}

func TestEvalReadDataVar(t *testing.T) {
	table := expr.NewTable()
	c := mustCompile(t, table, `{"var": "a.b"}`)
	ev := New(table)

	obj := jsonvalue.FromNative(map[string]any{"a": map[string]any{"b": 42}})
	ectx := newTestContext(obj)

	v, err := ev.Eval(context.Background(), ectx, c.Root)
	require.NoError(t, err)
	assert.True(t, v.IsInt())
	assert.Equal(t, int64(42), v.AsInt())
}

func TestEvalMapFilterReduce(t *testing.T) {
	table := expr.NewTable()
	c := mustCompile(t, table, `{"reduce": [
		{"filter": [
			{"map": [{"var": "items"}, {"*": [{"var": "$item"}, 2]}]},
			{">": [{"var": "$item"}, 2]}
		]},
		{"+": [{"var": "$acc"}, {"var": "$item"}]},
		0
	]}`)
	ev := New(table)

	obj := jsonvalue.FromNative(map[string]any{"items": []any{int64(1), int64(2), int64(3)}})
	ectx := newTestContext(obj)

	v, err := ev.Eval(context.Background(), ectx, c.Root)
	require.NoError(t, err)
	assert.True(t, v.IsInt())
	assert.Equal(t, int64(10), v.AsInt())
}

func TestEvalLookup(t *testing.T) {
	table := expr.NewTable()
	c := mustCompile(t, table, `{"LOOKUP": [{"var": "rows"}, "id", {"var": "key"}, "label"]}`)
	ev := New(table)

	obj := jsonvalue.FromNative(map[string]any{
		"key": "b",
		"rows": []any{
			map[string]any{"id": "a", "label": "Alpha"},
			map[string]any{"id": "b", "label": "Bravo"},
		},
	})
	ectx := newTestContext(obj)

	v, err := ev.Eval(context.Background(), ectx, c.Root)
	require.NoError(t, err)
	assert.Equal(t, "Bravo", v.AsString())
}

func TestEvalDatedifYears(t *testing.T) {
	table := expr.NewTable()
	c := mustCompile(t, table, `{"DATEDIF": ["2020-01-15", "2026-07-31", "Y"]}`)
	ev := New(table)
	ectx := newTestContext(jsonvalue.Null())

	v, err := ev.Eval(context.Background(), ectx, c.Root)
	require.NoError(t, err)
	assert.Equal(t, int64(6), v.AsInt())
}

func TestEvalCancellation(t *testing.T) {
	table := expr.NewTable()
	c := mustCompile(t, table, `{"+": [1, 2]}`)
	ev := New(table)
	ectx := newTestContext(jsonvalue.Null())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ev.Eval(ctx, ectx, c.Root)
	require.ErrorIs(t, err, ErrCancelled)
}

func TestEvalSelfRef(t *testing.T) {
	table := expr.NewTable()
	c := mustCompile(t, table, `{"$ref": "$value"}`)

	ev := New(table)
	base := newTestContext(jsonvalue.Null())
	ectx := base.WithSelf(jsonvalue.String("current"))

	v, err := ev.Eval(context.Background(), ectx, c.Root)
	require.NoError(t, err)
	assert.Equal(t, "current", v.AsString())
}
