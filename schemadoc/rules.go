package schemadoc

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/kaptinlin/formlogic/jsonvalue"
)

// Built-in rule kinds (spec §3 "a small extensible set"); the set is
// extensible because CheckRule falls through to a generic existence check
// for any kind it does not recognize by name, rather than rejecting it.
const (
	RuleRequired = "required"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RuleMinValue  = "minValue"
	RuleMaxValue  = "maxValue"
	RulePattern   = "pattern"
)

// RuleFailure carries the machine-checkable detail of a failed rule: a code
// for i18n lookup and the template parameters for the rule's declared
// message (spec §3 "message"). The schema-authored message string is
// rendered by the caller via Params, mirroring how RuleError pairs a
// Message template with a Params map in the root package (result.go).
type RuleFailure struct {
	Code   string
	Params map[string]any
}

// CheckRule evaluates one rule kind against the already-evaluated rule value
// and the field's current data value, returning nil on success. Each kind's
// check is grounded on kaptinlin-jsonschema's corresponding JSON Schema
// keyword file (required.go, minlength.go, maxlength.go, minimum.go,
// maximum.go, pattern.go), adapted from *Schema field checks to rule-value/
// field-value checks over jsonvalue.Value.
func CheckRule(kind string, ruleValue, fieldValue jsonvalue.Value) (*RuleFailure, error) {
	switch kind {
	case RuleRequired:
		return checkRequired(fieldValue), nil
	case RuleMinLength:
		return checkMinLength(ruleValue, fieldValue)
	case RuleMaxLength:
		return checkMaxLength(ruleValue, fieldValue)
	case RuleMinValue:
		return checkMinValue(ruleValue, fieldValue)
	case RuleMaxValue:
		return checkMaxValue(ruleValue, fieldValue)
	case RulePattern:
		return checkPattern(ruleValue, fieldValue)
	default:
		// Unknown/extension kind: a truthy rule value is interpreted as "must
		// be present", the same fallback required uses, so extension rules
		// degrade gracefully rather than being silently skipped.
		if !ruleValue.Truthy() {
			return nil, nil
		}
		return checkRequired(fieldValue), nil
	}
}

// checkRequired mirrors required.go's presence check, generalized from
// "property exists in object" to "field value is present and non-null".
func checkRequired(fieldValue jsonvalue.Value) *RuleFailure {
	if fieldValue.IsNull() {
		return &RuleFailure{Code: "missing_required_property"}
	}
	return nil
}

// checkMinLength mirrors minlength.go's rune-counting length check.
func checkMinLength(ruleValue, fieldValue jsonvalue.Value) (*RuleFailure, error) {
	if !ruleValue.IsNumber() {
		return nil, fmt.Errorf("minLength rule value must be numeric, got %s", ruleValue.Kind())
	}
	length := utf8.RuneCountInString(fieldValue.AsString())
	if int64(length) < ruleValue.AsInt() {
		return &RuleFailure{Code: "string_too_short", Params: map[string]any{
			"min_length": ruleValue.AsInt(),
			"length":     length,
		}}, nil
	}
	return nil, nil
}

// checkMaxLength mirrors maxlength.go.
func checkMaxLength(ruleValue, fieldValue jsonvalue.Value) (*RuleFailure, error) {
	if !ruleValue.IsNumber() {
		return nil, fmt.Errorf("maxLength rule value must be numeric, got %s", ruleValue.Kind())
	}
	length := utf8.RuneCountInString(fieldValue.AsString())
	if int64(length) > ruleValue.AsInt() {
		return &RuleFailure{Code: "string_too_long", Params: map[string]any{
			"max_length": ruleValue.AsInt(),
			"length":     length,
		}}, nil
	}
	return nil, nil
}

// checkMinValue mirrors minimum.go's inclusive lower-bound check.
func checkMinValue(ruleValue, fieldValue jsonvalue.Value) (*RuleFailure, error) {
	if !ruleValue.IsNumber() || !fieldValue.IsNumber() {
		return nil, fmt.Errorf("minValue rule requires numeric operands, got rule=%s value=%s", ruleValue.Kind(), fieldValue.Kind())
	}
	if fieldValue.AsFloat() < ruleValue.AsFloat() {
		return &RuleFailure{Code: "value_below_minimum", Params: map[string]any{
			"value":   fieldValue.AsFloat(),
			"minimum": ruleValue.AsFloat(),
		}}, nil
	}
	return nil, nil
}

// checkMaxValue mirrors maximum.go's inclusive upper-bound check.
func checkMaxValue(ruleValue, fieldValue jsonvalue.Value) (*RuleFailure, error) {
	if !ruleValue.IsNumber() || !fieldValue.IsNumber() {
		return nil, fmt.Errorf("maxValue rule requires numeric operands, got rule=%s value=%s", ruleValue.Kind(), fieldValue.Kind())
	}
	if fieldValue.AsFloat() > ruleValue.AsFloat() {
		return &RuleFailure{Code: "value_above_maximum", Params: map[string]any{
			"value":   fieldValue.AsFloat(),
			"maximum": ruleValue.AsFloat(),
		}}, nil
	}
	return nil, nil
}

// checkPattern mirrors pattern.go's regexp match, without kaptinlin-
// jsonschema's per-schema compiled-pattern cache: the pattern is compiled
// with regexp.Compile on every call.
func checkPattern(ruleValue, fieldValue jsonvalue.Value) (*RuleFailure, error) {
	if !ruleValue.IsString() {
		return nil, fmt.Errorf("pattern rule value must be a string, got %s", ruleValue.Kind())
	}
	re, err := regexp.Compile(ruleValue.AsString())
	if err != nil {
		return &RuleFailure{Code: "invalid_pattern", Params: map[string]any{"pattern": ruleValue.AsString()}}, nil
	}
	if !re.MatchString(fieldValue.AsString()) {
		return &RuleFailure{Code: "pattern_mismatch", Params: map[string]any{
			"pattern": ruleValue.AsString(),
			"value":   fieldValue.AsString(),
		}}, nil
	}
	return nil, nil
}

// defaultRuleMessage supplies a sensible message template when a rule
// declaration omits one, keyed the same way kaptinlin-jsonschema's i18n
// bundle keys its built-in keyword messages.
func defaultRuleMessage(kind string) string {
	switch kind {
	case RuleRequired:
		return "{path} is required"
	case RuleMinLength:
		return "{path} must be at least {min_length} characters"
	case RuleMaxLength:
		return "{path} must be at most {max_length} characters"
	case RuleMinValue:
		return "{path} must be at least {minimum}"
	case RuleMaxValue:
		return "{path} must be at most {maximum}"
	case RulePattern:
		return "{path} does not match the required pattern"
	default:
		return "{path} is invalid"
	}
}
