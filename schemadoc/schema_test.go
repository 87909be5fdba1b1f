package schemadoc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaptinlin/formlogic/jsonvalue"
	"github.com/kaptinlin/formlogic/scheduler"
)

func mustParseJSON(t *testing.T, src string) jsonvalue.Value {
	t.Helper()
	var v jsonvalue.Value
	require.NoError(t, v.UnmarshalJSON([]byte(src)))
	return v
}

func TestParseExtractsEvaluationsAndReadGraph(t *testing.T) {
	raw := mustParseJSON(t, `{
		"properties": {
			"subtotal": {"$evaluation": {"*": [{"var": "qty"}, {"var": "price"}]}},
			"tax": {"$evaluation": {"*": [{"var": "subtotal"}, {"var": "rate"}]}},
			"total": {"$evaluation": {"+": [{"var": "subtotal"}, {"var": "tax"}]}}
		}
	}`)

	ps, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, ps.Batches, 3)
	assert.Equal(t, []string{"subtotal"}, ps.Batches[0])
	assert.Equal(t, []string{"tax"}, ps.Batches[1])
	assert.Equal(t, []string{"total"}, ps.Batches[2])
}

func TestParseDetectsReadCycle(t *testing.T) {
	raw := mustParseJSON(t, `{
		"properties": {
			"a": {"$evaluation": {"var": "b"}},
			"b": {"$evaluation": {"var": "a"}}
		}
	}`)

	_, err := Parse(raw)
	require.Error(t, err)
	var cycleErr *scheduler.CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.ElementsMatch(t, []string{"a", "b"}, cycleErr.Paths)
}

func TestParseExtractsDependentsInDeclarationOrder(t *testing.T) {
	raw := mustParseJSON(t, `{
		"properties": {
			"is_smoker": {
				"dependents": [
					{"ref": "occupation", "clear": true},
					{"ref": "risk", "value": {"if": [{"var": "is_smoker"}, "High", "Standard"]}}
				]
			}
		}
	}`)

	ps, err := Parse(raw)
	require.NoError(t, err)
	actions := ps.GetDependents("is_smoker")
	require.Len(t, actions, 2)
	assert.Equal(t, "occupation", actions[0].Target.String())
	assert.Equal(t, ActionClear, actions[0].Kind)
	assert.Equal(t, "risk", actions[1].Target.String())
	assert.Equal(t, ActionValue, actions[1].Kind)
}

func TestParseExtractsRulesWithMessages(t *testing.T) {
	raw := mustParseJSON(t, `{
		"properties": {
			"name": {
				"rules": {
					"required": {"value": true, "message": "Name is required"},
					"minLength": {"value": 3, "message": "Too short"}
				}
			}
		}
	}`)

	ps, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, ps.Rules, 2)
	byKind := map[string]RuleDecl{}
	for _, r := range ps.Rules {
		byKind[r.Kind] = r
	}
	assert.Equal(t, "Name is required", byKind["required"].Message)
	assert.Equal(t, "Too short", byKind["minLength"].Message)
}

func TestParseRejectsNonObjectRoot(t *testing.T) {
	_, err := Parse(jsonvalue.String("not a schema"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestListSubforms(t *testing.T) {
	raw := mustParseJSON(t, `{
		"properties": {
			"address": {"subform": true, "properties": {"city": {"type": "string"}}}
		}
	}`)

	ps, err := Parse(raw)
	require.NoError(t, err)
	subforms := ps.ListSubforms()
	require.Len(t, subforms, 1)
	assert.Equal(t, "address", subforms[0].String())
}

func TestCheckRuleMinLength(t *testing.T) {
	failure, err := CheckRule(RuleMinLength, jsonvalue.Int(3), jsonvalue.String("ab"))
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, "string_too_short", failure.Code)

	failure, err = CheckRule(RuleMinLength, jsonvalue.Int(3), jsonvalue.String("abc"))
	require.NoError(t, err)
	assert.Nil(t, failure)
}

func TestCheckRuleMinValue(t *testing.T) {
	failure, err := CheckRule(RuleMinValue, jsonvalue.Int(18), jsonvalue.Int(16))
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, "value_below_minimum", failure.Code)
}
