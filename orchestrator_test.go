package formlogic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaptinlin/formlogic/jsonvalue"
)

func mustParseJSON(t *testing.T, src string) jsonvalue.Value {
	t.Helper()
	var v jsonvalue.Value
	require.NoError(t, v.UnmarshalJSON([]byte(src)))
	return v
}

// Scenario 1: arithmetic dependents (subtotal -> tax -> total) recompute
// in batch order from a single evaluate call.
func TestEvaluateArithmeticDependents(t *testing.T) {
	schema := mustParseJSON(t, `{
		"properties": {
			"qty": {"type": "number"},
			"price": {"type": "number"},
			"rate": {"type": "number"},
			"subtotal": {"$evaluation": {"*": [{"var": "qty"}, {"var": "price"}]}},
			"tax": {"$evaluation": {"*": [{"var": "subtotal"}, {"var": "rate"}]}},
			"total": {"$evaluation": {"+": [{"var": "subtotal"}, {"var": "tax"}]}}
		}
	}`)
	data := mustParseJSON(t, `{"qty": 2, "price": 10, "rate": 0.1}`)

	inst, err := New(schema)
	require.NoError(t, err)
	assert.Equal(t, 3, inst.BatchCount())

	out, err := inst.Evaluate(context.Background(), EvaluateRequest{Data: &data})
	require.NoError(t, err)

	subtotal, ok := inst.GetSchemaByPath("subtotal")
	require.True(t, ok)
	val, _ := subtotal.AsObject().Get("value")
	assert.Equal(t, float64(20), val.AsFloat())

	total, ok := out.AsObject().Get("properties")
	require.True(t, ok)
	totalNode, _ := total.AsObject().Get("total")
	totalVal, _ := totalNode.AsObject().Get("value")
	assert.Equal(t, float64(22), totalVal.AsFloat())
}

// Scenario 2: a dependents clear action resets a target field.
func TestEvaluateDependentsClearCascade(t *testing.T) {
	schema := mustParseJSON(t, `{
		"properties": {
			"is_smoker": {
				"dependents": [
					{"ref": "occupation", "clear": true}
				]
			},
			"occupation": {"type": "string"}
		}
	}`)
	data := mustParseJSON(t, `{"is_smoker": true, "occupation": "pilot"}`)

	inst, err := New(schema)
	require.NoError(t, err)
	inst.SetData(data)

	changes, err := inst.EvaluateDependents(context.Background(), EvaluateDependentsRequest{
		ChangedPaths: []string{"is_smoker"},
	})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "occupation", changes[0].Ref)
	assert.True(t, changes[0].Cleared)

	v, ok := inst.Data().AsObject().Get("occupation")
	require.True(t, ok)
	assert.True(t, v.IsNull())
}

// Scenario 3: a transitive dependents chain (a -> b -> c) fully resolves in
// one evaluateDependents call.
func TestEvaluateDependentsTransitiveChain(t *testing.T) {
	schema := mustParseJSON(t, `{
		"properties": {
			"a": {
				"dependents": [
					{"ref": "b", "value": {"+": [{"var": "a"}, 1]}}
				]
			},
			"b": {
				"dependents": [
					{"ref": "c", "value": {"+": [{"var": "b"}, 1]}}
				]
			},
			"c": {"type": "number"}
		}
	}`)
	data := mustParseJSON(t, `{"a": 1, "b": 0, "c": 0}`)

	inst, err := New(schema)
	require.NoError(t, err)
	inst.SetData(data)

	changes, err := inst.EvaluateDependents(context.Background(), EvaluateDependentsRequest{
		ChangedPaths: []string{"a"},
	})
	require.NoError(t, err)
	require.Len(t, changes, 2)

	byRef := map[string]DependentChange{}
	for _, c := range changes {
		byRef[c.Ref] = c
	}
	assert.Equal(t, float64(2), byRef["b"].Value.AsFloat())
	assert.False(t, byRef["b"].Transitive)
	assert.Equal(t, float64(3), byRef["c"].Value.AsFloat())
	assert.True(t, byRef["c"].Transitive)
}

// Scenario 4: a read-graph cycle is rejected at construction time.
func TestNewRejectsCyclicSchema(t *testing.T) {
	schema := mustParseJSON(t, `{
		"properties": {
			"a": {"$evaluation": {"var": "b"}},
			"b": {"$evaluation": {"var": "a"}}
		}
	}`)

	_, err := New(schema)
	require.Error(t, err)
	var cycleErr *CyclicReadDependencyError
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []string{"a", "b"}, cycleErr.Paths)
}

// Scenario 5: validate collects per-path rule failures into a report.
func TestValidateCollectsRuleFailures(t *testing.T) {
	schema := mustParseJSON(t, `{
		"properties": {
			"name": {
				"rules": {
					"required": {"value": true, "message": "Name is required"},
					"minLength": {"value": 3, "message": "Too short"}
				}
			},
			"age": {
				"rules": {
					"minValue": {"value": 18, "message": "Must be an adult"}
				}
			}
		}
	}`)
	data := mustParseJSON(t, `{"name": "ab", "age": 16}`)

	inst, err := New(schema)
	require.NoError(t, err)

	report, err := inst.Validate(context.Background(), ValidateRequest{Data: &data})
	require.NoError(t, err)
	require.True(t, report.HasErrors)

	nameErrors := report.Errors["name"]
	require.Len(t, nameErrors, 1)
	assert.Equal(t, "string_too_short", nameErrors[0].Code)

	ageErrors := report.Errors["age"]
	require.Len(t, ageErrors, 1)
	assert.Equal(t, "value_below_minimum", ageErrors[0].Code)
}

func TestValidatePassesWhenRulesSatisfied(t *testing.T) {
	schema := mustParseJSON(t, `{
		"properties": {
			"name": {
				"rules": {
					"required": {"value": true, "message": "Name is required"}
				}
			}
		}
	}`)
	data := mustParseJSON(t, `{"name": "Alice"}`)

	inst, err := New(schema)
	require.NoError(t, err)

	report, err := inst.Validate(context.Background(), ValidateRequest{Data: &data})
	require.NoError(t, err)
	assert.False(t, report.HasErrors)
}

// Scenario 6: GetSchemaByPaths shapes results per format.
func TestGetSchemaByPathsFormats(t *testing.T) {
	schema := mustParseJSON(t, `{
		"properties": {
			"name": {"type": "string"},
			"address": {
				"properties": {
					"city": {"type": "string"}
				}
			}
		}
	}`)

	inst, err := New(schema)
	require.NoError(t, err)

	flat, err := inst.GetSchemaByPaths([]string{"name", "address.city"}, FormatFlat)
	require.NoError(t, err)
	_, ok := flat.AsObject().Get("name")
	assert.True(t, ok)
	_, ok = flat.AsObject().Get("address.city")
	assert.True(t, ok)

	arr, err := inst.GetSchemaByPaths([]string{"name", "missing.path"}, FormatArray)
	require.NoError(t, err)
	require.True(t, arr.IsArray())
	elems := arr.AsArray()
	require.Len(t, elems, 2)
	assert.True(t, elems[1].IsNull())

	nested, err := inst.GetSchemaByPaths([]string{"address.city"}, FormatNested)
	require.NoError(t, err)
	addr, ok := nested.AsObject().Get("address")
	require.True(t, ok)
	_, ok = addr.AsObject().Get("city")
	assert.True(t, ok)
}

func TestListSubformsAndIntrospection(t *testing.T) {
	schema := mustParseJSON(t, `{
		"properties": {
			"address": {"subform": true, "properties": {"city": {"type": "string"}}},
			"total": {"$evaluation": {"+": [1, 2]}}
		},
		"rules": {}
	}`)

	inst, err := New(schema)
	require.NoError(t, err)
	assert.Equal(t, []string{"address"}, inst.ListSubforms())
	assert.Equal(t, 1, inst.EvaluationCount())
	assert.Equal(t, 1, inst.BatchCount())
}
