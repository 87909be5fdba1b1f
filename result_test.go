package formlogic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationReportEmptyIsValid(t *testing.T) {
	report := NewValidationReport()
	assert.False(t, report.HasErrors)
	assert.True(t, report.ToFlag().Valid)
}

func TestValidationReportCollectsErrorsByPath(t *testing.T) {
	report := NewValidationReport()
	report.AddError("name", NewRuleError("name", "required", "missing_required_property", "{path} is required", nil))
	report.AddError("age", NewRuleError("age", "minValue", "value_below_minimum", "{value} should be at least {minimum}", map[string]any{
		"value": 16, "minimum": 18,
	}))

	assert.True(t, report.HasErrors)
	assert.Len(t, report.ErrorsAt("name"), 1)
	assert.Len(t, report.ErrorsAt("age"), 1)
	assert.False(t, report.ToFlag().Valid)
}

func TestValidationReportMultipleFailuresSamePath(t *testing.T) {
	report := NewValidationReport()
	report.AddError("name", NewRuleError("name", "required", "missing_required_property", "{path} is required", nil))
	report.AddError("name", NewRuleError("name", "minLength", "string_too_short", "{path} must be at least {min_length} characters", map[string]any{
		"min_length": 3,
	}))

	assert.Len(t, report.ErrorsAt("name"), 2)
}

func TestRuleErrorRendersDeclaredMessage(t *testing.T) {
	err := NewRuleError("age", "minValue", "value_below_minimum", "{value} should be at least {minimum}", map[string]any{
		"value": 16, "minimum": 18,
	})
	assert.Equal(t, "16 should be at least 18", err.Error())
}

func TestValidationReportLocalizedMessages(t *testing.T) {
	bundle, err := NewI18n()
	assert.NoError(t, err)
	localizer := bundle.NewLocalizer("zh-Hans")

	report := NewValidationReport()
	report.AddError("name", NewRuleError("name", "required", "missing_required_property", "{path} is required", nil))

	messages := report.Messages(localizer)
	assert.Equal(t, "此字段为必填项", messages["name"])
}
