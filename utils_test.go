package formlogic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplace(t *testing.T) {
	tests := []struct {
		template string
		params   map[string]any
		expected string
	}{
		{
			"Value should be at most {maximum}",
			map[string]any{"maximum": 100},
			"Value should be at most 100",
		},
		{
			"{value} should be at least {minimum}",
			map[string]any{"value": 5, "minimum": 18},
			"5 should be at least 18",
		},
		{
			"No placeholders here",
			map[string]any{"placeholder": "value"},
			"No placeholders here",
		},
		{
			"Value should be at least {min_length} characters",
			map[string]any{"min_length": 3},
			"Value should be at least 3 characters",
		},
	}

	for _, test := range tests {
		t.Run(test.template, func(t *testing.T) {
			result := replace(test.template, test.params)
			assert.Equal(t, test.expected, result)
		})
	}
}
