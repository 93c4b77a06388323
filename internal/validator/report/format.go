package report

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"labsight/internal/domain"
)

// These mirror the shapes the range-analysis classifier understands. A value
// or range that fails here is not rejected, it just ends up classified as
// unknown, so every rule in this file is a warning.
var (
	numericTokenPattern = regexp.MustCompile(`[-+]?\d*\.\d+|\d+`)
	boundedRangePattern = regexp.MustCompile(`\d+(?:\.\d+)?\s*-\s*\d+(?:\.\d+)?`)
	upperBoundPattern   = regexp.MustCompile(`<=?\s*\d+(?:\.\d+)?`)
	lowerBoundPattern   = regexp.MustCompile(`>=?\s*\d+(?:\.\d+)?`)
)

// formatValidator checks a field against an expected shape.
type formatValidator struct {
	ruleKey  string
	ruleName string
	severity domain.ValidationSeverity
	validate func(*domain.ReportExtraction) []Result
}

func (v *formatValidator) RuleKey() string                     { return v.ruleKey }
func (v *formatValidator) RuleName() string                    { return v.ruleName }
func (v *formatValidator) RuleType() domain.ValidationRuleType { return domain.ValidationRuleFormat }
func (v *formatValidator) Severity() domain.ValidationSeverity { return v.severity }

func (v *formatValidator) Validate(_ context.Context, data *domain.ReportExtraction) []Result {
	return v.validate(data)
}

func numericValueCheck(idx int, value string) Result {
	fieldPath := fmt.Sprintf("markers[%d].value", idx)
	if value == "" {
		return Result{
			Passed: true, FieldPath: fieldPath,
			ExpectedValue: "numeric value", ActualValue: value,
			Message:     "Format: Numeric Value: field is empty, skipping format check",
			MarkerIndex: idx,
		}
	}
	normalized := strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	passed := numericTokenPattern.MatchString(normalized)
	msg := fmt.Sprintf("Format: Numeric Value: %s contains a numeric token", fieldPath)
	if !passed {
		msg = fmt.Sprintf("Format: Numeric Value: %s has no numeric token, marker will classify as unknown", fieldPath)
	}
	return Result{
		Passed: passed, FieldPath: fieldPath,
		ExpectedValue: "numeric value", ActualValue: value,
		Message: msg, MarkerIndex: idx,
	}
}

func rangeShapeCheck(idx int, rng string) Result {
	fieldPath := fmt.Sprintf("markers[%d].reference_range", idx)
	if rng == "" {
		return Result{
			Passed: true, FieldPath: fieldPath,
			ExpectedValue: "recognized range shape", ActualValue: rng,
			Message:     "Format: Reference Range: field is empty, skipping format check",
			MarkerIndex: idx,
		}
	}
	normalized := strings.ReplaceAll(strings.TrimSpace(rng), ",", ".")
	passed := boundedRangePattern.MatchString(normalized) ||
		upperBoundPattern.MatchString(normalized) ||
		lowerBoundPattern.MatchString(normalized)
	msg := fmt.Sprintf("Format: Reference Range: %s has a recognized shape", fieldPath)
	if !passed {
		msg = fmt.Sprintf("Format: Reference Range: %s is not a bounded or one-sided range, marker will classify as unknown", fieldPath)
	}
	return Result{
		Passed: passed, FieldPath: fieldPath,
		ExpectedValue: "recognized range shape", ActualValue: rng,
		Message: msg, MarkerIndex: idx,
	}
}

func testDateCheck(value string) Result {
	if value == "" {
		return Result{
			Passed: true, FieldPath: "test_date",
			ExpectedValue: "YYYY-MM-DD", ActualValue: value,
			Message:     "Format: Test Date: field is empty, skipping date check",
			MarkerIndex: -1,
		}
	}
	_, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	passed := err == nil
	msg := "Format: Test Date: test_date is a valid ISO date"
	if !passed {
		msg = "Format: Test Date: test_date is not in YYYY-MM-DD form"
	}
	return Result{
		Passed: passed, FieldPath: "test_date",
		ExpectedValue: "YYYY-MM-DD", ActualValue: value,
		Message: msg, MarkerIndex: -1,
	}
}

// FormatValidators returns all format validators.
func FormatValidators() []*formatValidator {
	return []*formatValidator{
		{
			ruleKey: "fmt.marker.value", ruleName: "Format: Numeric Value",
			severity: domain.ValidationSeverityWarning,
			validate: func(d *domain.ReportExtraction) []Result {
				results := make([]Result, 0, len(d.Markers))
				for i := range d.Markers {
					results = append(results, numericValueCheck(i, d.Markers[i].Value))
				}
				return results
			},
		},
		{
			ruleKey: "fmt.marker.reference_range", ruleName: "Format: Reference Range",
			severity: domain.ValidationSeverityWarning,
			validate: func(d *domain.ReportExtraction) []Result {
				results := make([]Result, 0, len(d.Markers))
				for i := range d.Markers {
					results = append(results, rangeShapeCheck(i, d.Markers[i].ReferenceRange))
				}
				return results
			},
		},
		{
			ruleKey: "fmt.report.test_date", ruleName: "Format: Test Date",
			severity: domain.ValidationSeverityWarning,
			validate: func(d *domain.ReportExtraction) []Result {
				return []Result{testDateCheck(d.TestDate)}
			},
		},
	}
}
