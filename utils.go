package formlogic

import (
	"fmt"
	"strings"
)

// replace substitutes {key} placeholders in a message template with their
// corresponding rule-failure parameter values, the same templating scheme
// RuleError.Message/Params pairs use (result.go).
func replace(template string, params map[string]any) string {
	for key, value := range params {
		placeholder := "{" + key + "}"
		template = strings.ReplaceAll(template, placeholder, fmt.Sprint(value))
	}
	return template
}
