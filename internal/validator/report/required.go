package report

import (
	"context"
	"fmt"

	"labsight/internal/domain"
)

// requiredFieldValidator checks that a marker field is not empty.
type requiredFieldValidator struct {
	ruleKey  string
	ruleName string
	field    string
	severity domain.ValidationSeverity
	extract  func(*domain.ExtractedMarker) string
}

func (v *requiredFieldValidator) RuleKey() string  { return v.ruleKey }
func (v *requiredFieldValidator) RuleName() string { return v.ruleName }
func (v *requiredFieldValidator) RuleType() domain.ValidationRuleType {
	return domain.ValidationRuleRequired
}
func (v *requiredFieldValidator) Severity() domain.ValidationSeverity { return v.severity }

func (v *requiredFieldValidator) Validate(_ context.Context, data *domain.ReportExtraction) []Result {
	results := make([]Result, 0, len(data.Markers))
	for i := range data.Markers {
		val := v.extract(&data.Markers[i])
		fieldPath := fmt.Sprintf("markers[%d].%s", i, v.field)
		results = append(results, Result{
			Passed:        val != "",
			FieldPath:     fieldPath,
			ExpectedValue: "non-empty value",
			ActualValue:   val,
			Message:       fieldMessage(val != "", v.ruleName, fieldPath),
			MarkerIndex:   i,
		})
	}
	return results
}

func fieldMessage(passed bool, ruleName, fieldPath string) string {
	if passed {
		return fmt.Sprintf("%s: %s is present", ruleName, fieldPath)
	}
	return fmt.Sprintf("%s: %s is missing or empty", ruleName, fieldPath)
}

// RequiredFieldValidators returns all required field validators. A marker
// without a name or value cannot be classified or stored, so those rules are
// errors; a missing reference range only degrades the status to unknown.
func RequiredFieldValidators() []*requiredFieldValidator {
	return []*requiredFieldValidator{
		{
			ruleKey: "req.marker.name", ruleName: "Required: Marker Name",
			field: "name", severity: domain.ValidationSeverityError,
			extract: func(m *domain.ExtractedMarker) string { return m.Name },
		},
		{
			ruleKey: "req.marker.value", ruleName: "Required: Marker Value",
			field: "value", severity: domain.ValidationSeverityError,
			extract: func(m *domain.ExtractedMarker) string { return m.Value },
		},
		{
			ruleKey: "req.marker.reference_range", ruleName: "Required: Reference Range",
			field: "reference_range", severity: domain.ValidationSeverityWarning,
			extract: func(m *domain.ExtractedMarker) string { return m.ReferenceRange },
		},
	}
}
