package report

import (
	"context"
	"fmt"
	"strings"

	"labsight/internal/domain"
)

// LogicalValidators returns all cross-marker validators.
func LogicalValidators() []*BuiltinValidator {
	return []*BuiltinValidator{
		{
			key:      "logic.marker.duplicate",
			name:     "Logical: Duplicate Marker Detection",
			ruleType: domain.ValidationRuleLogical,
			sev:      domain.ValidationSeverityWarning,
			fn:       duplicateMarkerCheck,
		},
	}
}

// duplicateMarkerCheck flags markers whose name repeats an earlier entry.
// OCR sometimes reads the same table row twice; the repeat is kept, since
// the second reading may carry the better value, but it is surfaced so the
// duplication is visible downstream.
func duplicateMarkerCheck(_ context.Context, data *domain.ReportExtraction) []Result {
	seen := make(map[string]int, len(data.Markers))
	var results []Result

	for i := range data.Markers {
		name := strings.ToLower(strings.TrimSpace(data.Markers[i].Name))
		if name == "" {
			continue
		}
		first, dup := seen[name]
		if !dup {
			seen[name] = i
			continue
		}
		fieldPath := fmt.Sprintf("markers[%d].name", i)
		results = append(results, Result{
			Passed:        false,
			FieldPath:     fieldPath,
			ExpectedValue: "unique marker name",
			ActualValue:   data.Markers[i].Name,
			Message: fmt.Sprintf(
				"Logical: Duplicate Marker Detection: %q repeats markers[%d]",
				data.Markers[i].Name, first,
			),
			MarkerIndex: i,
		})
	}

	if len(results) == 0 {
		return []Result{{
			Passed:        true,
			FieldPath:     "markers",
			ExpectedValue: "unique marker names",
			ActualValue:   "no repeats found",
			Message:       "Logical: Duplicate Marker Detection: no repeated marker names",
			MarkerIndex:   -1,
		}}
	}
	return results
}
