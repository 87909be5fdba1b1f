package expr

import (
	"testing"

	"github.com/kaptinlin/formlogic/jsonvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseJSON(t *testing.T, s string) jsonvalue.Value {
	t.Helper()
	var v jsonvalue.Value
	require.NoError(t, v.UnmarshalJSON([]byte(s)))
	return v
}

func TestCompileLiteral(t *testing.T) {
	table := NewTable()
	c, err := Compile(table, jsonvalue.Int(5))
	require.NoError(t, err)
	assert.Empty(t, c.ReadSet)
	assert.Equal(t, NodeLiteral, table.Node(c.Root).Kind)
}

func TestCompileVarReadSet(t *testing.T) {
	table := NewTable()
	e := parseJSON(t, `{"var":"qty"}`)
	c, err := Compile(table, e)
	require.NoError(t, err)
	require.Len(t, c.ReadSet, 1)
	assert.Equal(t, ReadData, c.ReadSet[0].Kind)
	assert.Equal(t, "qty", c.ReadSet[0].Path.String())
}

func TestCompileUnknownOperator(t *testing.T) {
	table := NewTable()
	e := parseJSON(t, `{"frobnicate":[1,2]}`)
	_, err := Compile(table, e)
	require.Error(t, err)
	var unknownErr *UnknownOperatorError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "frobnicate", unknownErr.Name)
}

func TestCompileArityMismatch(t *testing.T) {
	table := NewTable()
	e := parseJSON(t, `{"/":[1]}`)
	_, err := Compile(table, e)
	require.Error(t, err)
	var arityErr *ArityMismatchError
	require.ErrorAs(t, err, &arityErr)
}

func TestInterningSharesIdenticalSubtrees(t *testing.T) {
	table := NewTable()
	e1 := parseJSON(t, `{"+": [{"var":"a"}, {"var":"b"}]}`)
	e2 := parseJSON(t, `{"+": [{"var":"a"}, {"var":"b"}]}`)

	c1, err := Compile(table, e1)
	require.NoError(t, err)
	c2, err := Compile(table, e2)
	require.NoError(t, err)

	assert.Equal(t, c1.Root, c2.Root)
	assert.Equal(t, 3, table.Len()) // var a, var b, + node — shared
}

func TestConstFolding(t *testing.T) {
	table := NewTable()
	e := parseJSON(t, `{"+": [1, 2]}`)
	c, err := Compile(table, e)
	require.NoError(t, err)

	node := table.Node(c.Root)
	require.Equal(t, NodeLiteral, node.Kind)
	assert.Equal(t, int64(3), node.Literal.AsInt())
}

func TestReadSetDedupe(t *testing.T) {
	table := NewTable()
	e := parseJSON(t, `{"+": [{"var":"a"}, {"var":"a"}]}`)
	c, err := Compile(table, e)
	require.NoError(t, err)
	assert.Len(t, c.ReadSet, 1)
}

func TestCompileRefSelfAndParams(t *testing.T) {
	table := NewTable()

	self := parseJSON(t, `{"$ref":"$value"}`)
	cSelf, err := Compile(table, self)
	require.NoError(t, err)
	assert.Equal(t, NodeReadSelf, table.Node(cSelf.Root).Kind)
	assert.Empty(t, cSelf.ReadSet)

	params := parseJSON(t, `{"$ref":"$params.rate"}`)
	cParams, err := Compile(table, params)
	require.NoError(t, err)
	assert.Equal(t, NodeReadParams, table.Node(cParams.Root).Kind)
	require.Len(t, cParams.ReadSet, 1)
	assert.Equal(t, ReadParams, cParams.ReadSet[0].Kind)
	assert.Equal(t, "rate", cParams.ReadSet[0].Path.String())
}
