package formlogic

import "github.com/kaptinlin/go-i18n"

// RuleError represents one failed validation rule at a schema path (spec
// §3 "Validation Rule", §7 ValidationFailed). It pairs the rule's declared
// message template with the params its check produced, the same
// Message/Params split kaptinlin-jsonschema's EvaluationError used for
// keyword validation errors.
type RuleError struct {
	Path    string         `json:"path"`
	Kind    string         `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Params  map[string]any `json:"params,omitempty"`
}

// NewRuleError creates a rule error from a failed schemadoc.RuleFailure.
func NewRuleError(path, kind, code, message string, params map[string]any) *RuleError {
	return &RuleError{Path: path, Kind: kind, Code: code, Message: message, Params: params}
}

func (e *RuleError) Error() string {
	return replace(e.Message, e.Params)
}

// Localize returns a localized rule message using the provided localizer,
// falling back to the schema-declared message when no localizer is given.
func (e *RuleError) Localize(localizer *i18n.Localizer) string {
	if localizer != nil {
		return localizer.Get(e.Code, i18n.Vars(e.Params))
	}
	return e.Error()
}

// ValidationReport is the structured result of validate/validatePaths (spec
// §4.7): errors keyed by the path they were raised against, mirroring the
// teacher's EvaluationResult.Errors keying by keyword but keyed by field
// path instead, since a single field may fail more than one rule.
type ValidationReport struct {
	HasErrors bool                    `json:"hasErrors"`
	Errors    map[string][]*RuleError `json:"errors,omitempty"`
}

// NewValidationReport creates an empty, passing report.
func NewValidationReport() *ValidationReport {
	return &ValidationReport{Errors: make(map[string][]*RuleError)}
}

// AddError records a failed rule against path, marking the report invalid.
func (r *ValidationReport) AddError(path string, err *RuleError) {
	if r.Errors == nil {
		r.Errors = make(map[string][]*RuleError)
	}
	r.Errors[path] = append(r.Errors[path], err)
	r.HasErrors = true
}

// ErrorsAt returns the rule errors recorded for path, if any.
func (r *ValidationReport) ErrorsAt(path string) []*RuleError {
	return r.Errors[path]
}

// Flag reduces a report to a simple pass/fail flag (spec §4.7 "Empty error
// set ⇒ success"), the same shape kaptinlin-jsonschema's
// EvaluationResult.ToFlag produces for keyword validation results.
type Flag struct {
	Valid bool `json:"valid"`
}

// ToFlag converts the report into a simple Flag.
func (r *ValidationReport) ToFlag() *Flag {
	return &Flag{Valid: !r.HasErrors}
}

// Messages flattens the report into path -> first error message, the
// minimal shape most callers (forms rendering inline errors) need.
func (r *ValidationReport) Messages(localizer *i18n.Localizer) map[string]string {
	out := make(map[string]string, len(r.Errors))
	for path, errs := range r.Errors {
		if len(errs) == 0 {
			continue
		}
		out[path] = errs[0].Localize(localizer)
	}
	return out
}
