// Package validator screens extracted report data before range analysis.
// Rules come in two severities: a failed error rule drops the offending
// marker from the pipeline, a failed warning rule keeps it and logs what
// looked off. The engine never fails a run outright; a report where every
// marker is dropped simply analyzes as empty.
package validator

import (
	"context"
	"log"

	"labsight/internal/domain"
	"labsight/internal/validator/report"
)

// Engine runs the registered rules against an extraction.
type Engine struct {
	registry *Registry
}

// NewEngine creates an engine over an explicit registry.
func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// NewDefaultEngine creates an engine with all built-in lab report rules.
func NewDefaultEngine() *Engine {
	registry := NewRegistry()
	for _, v := range report.AllBuiltinValidators() {
		registry.Register(v)
	}
	return NewEngine(registry)
}

// ValidateExtraction runs every registered rule and returns the collected
// results, passed and failed alike.
func (e *Engine) ValidateExtraction(ctx context.Context, data *domain.ReportExtraction) []report.Result {
	var all []report.Result
	for _, v := range e.registry.All() {
		all = append(all, v.Validate(ctx, data)...)
	}
	return all
}

// FilterMarkers runs every registered rule and returns the markers that
// survived, plus all results. A marker failing any error-severity rule is
// dropped; failures at warning severity are logged and the marker kept.
func (e *Engine) FilterMarkers(ctx context.Context, data *domain.ReportExtraction) ([]domain.ExtractedMarker, []report.Result) {
	var all []report.Result
	dropped := make(map[int]bool)

	for _, v := range e.registry.All() {
		results := v.Validate(ctx, data)
		all = append(all, results...)

		for _, r := range results {
			if r.Passed {
				continue
			}
			if v.Severity() == domain.ValidationSeverityError && r.MarkerIndex >= 0 {
				dropped[r.MarkerIndex] = true
				continue
			}
			log.Printf("validator.Engine: %s", r.Message)
		}
	}

	kept := make([]domain.ExtractedMarker, 0, len(data.Markers))
	for i := range data.Markers {
		if dropped[i] {
			log.Printf("validator.Engine: dropping marker %d (%q): failed required validation", i, data.Markers[i].Name)
			continue
		}
		kept = append(kept, data.Markers[i])
	}
	return kept, all
}
