// Package analysis holds the two model-facing agents of the pipeline. The
// extractor agent turns raw report text into classified markers; the insight
// agent writes the patient-facing narrative. Everything with a right answer
// (range classification, validation, date normalization) happens in local
// code, never in the model.
package analysis

import (
	"context"
	"fmt"
	"log"
	"time"

	"labsight/internal/domain"
	"labsight/internal/marker"
	"labsight/internal/port"
	"labsight/internal/validator"
)

// extractionTemperature keeps the extraction call near-deterministic.
const extractionTemperature = 0.1

// Extraction is the classified output of the extractor agent.
type Extraction struct {
	Markers      []domain.AnalyzedMarker
	DocumentType string
	TestDate     string
}

// wireMarker is one marker as the model emits it. The wire key is "marker",
// not "name"; the mapping to domain.ExtractedMarker happens after decoding.
type wireMarker struct {
	Marker         string     `json:"marker"`
	Value          flexString `json:"value"`
	Unit           string     `json:"unit"`
	ReferenceRange string     `json:"reference_range"`
}

type wireExtraction struct {
	Markers      []wireMarker `json:"markers"`
	DocumentType string       `json:"document_type"`
	TestDate     string       `json:"test_date"`
}

// ExtractorAgent runs the structured-extraction call against a chat model
// and post-processes the reply: schema check, marker validation, test date
// normalization and range classification.
type ExtractorAgent struct {
	completer  port.ChatCompleter
	engine     *validator.Engine
	classifier *marker.Classifier
}

// NewExtractorAgent builds an extractor agent. A nil engine or classifier
// falls back to the defaults.
func NewExtractorAgent(completer port.ChatCompleter, engine *validator.Engine, classifier *marker.Classifier) *ExtractorAgent {
	if engine == nil {
		engine = validator.NewDefaultEngine()
	}
	if classifier == nil {
		classifier = marker.Default
	}
	return &ExtractorAgent{completer: completer, engine: engine, classifier: classifier}
}

// Extract pulls structured markers out of raw report text and classifies
// them. Zero surviving markers is a valid outcome, not an error.
func (a *ExtractorAgent) Extract(ctx context.Context, rawText string) (*Extraction, error) {
	content, err := a.completer.Complete(ctx, port.ChatRequest{
		System:      BuildExtractionSystemPrompt(),
		User:        BuildExtractionUserPrompt(rawText),
		ForceJSON:   true,
		Temperature: extractionTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction call: %w", err)
	}

	var probe any
	if err := SafeUnmarshal(content, &probe); err != nil {
		return nil, fmt.Errorf("parsing extraction response: %w", err)
	}
	if err := extractionSchema.Validate(probe); err != nil {
		return nil, fmt.Errorf("extraction response does not match schema: %w", err)
	}

	var wire wireExtraction
	if err := SafeUnmarshal(content, &wire); err != nil {
		return nil, fmt.Errorf("decoding extraction response: %w", err)
	}

	raw := &domain.ReportExtraction{
		Markers:      make([]domain.ExtractedMarker, 0, len(wire.Markers)),
		DocumentType: wire.DocumentType,
		TestDate:     NormalizeTestDate(wire.TestDate),
	}
	for i := range wire.Markers {
		m := &wire.Markers[i]
		raw.Markers = append(raw.Markers, domain.ExtractedMarker{
			Name:           m.Marker,
			Value:          string(m.Value),
			Unit:           m.Unit,
			ReferenceRange: m.ReferenceRange,
		})
	}

	kept, _ := a.engine.FilterMarkers(ctx, raw)

	analyzed := make([]domain.AnalyzedMarker, 0, len(kept))
	for i := range kept {
		status := a.classifier.Classify(kept[i].Value, kept[i].ReferenceRange)
		if status == domain.MarkerUnknown && kept[i].ReferenceRange != "" {
			log.Printf("analysis.ExtractorAgent: could not analyze marker %q (value %q, range %q)",
				kept[i].Name, kept[i].Value, kept[i].ReferenceRange)
		}
		analyzed = append(analyzed, domain.AnalyzedMarker{ExtractedMarker: kept[i], Status: status})
	}

	log.Printf("analysis.ExtractorAgent: extraction complete, %d markers returned, %d analyzed",
		len(wire.Markers), len(analyzed))
	return &Extraction{
		Markers:      analyzed,
		DocumentType: wire.DocumentType,
		TestDate:     raw.TestDate,
	}, nil
}

// NormalizeTestDate converts the prompt's MM/DD/YYYY form to YYYY-MM-DD.
// Anything unparseable passes through unchanged rather than losing the date.
func NormalizeTestDate(s string) string {
	if s == "" {
		return ""
	}
	t, err := time.Parse("01/02/2006", s)
	if err != nil {
		log.Printf("analysis: could not parse test date %q, keeping as is", s)
		return s
	}
	return t.Format("2006-01-02")
}
