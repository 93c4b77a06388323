package analysis

import (
	"context"
	"log"

	"labsight/internal/domain"
	"labsight/internal/port"
)

// Disclaimer accompanies every narrative this package produces, fallbacks
// included. The wording is fixed; do not edit it casually.
const Disclaimer = "This analysis is for educational purposes only. It is not a substitute for professional medical advice, diagnosis, or treatment. Always consult a qualified healthcare provider with any questions you may have regarding a medical condition."

// Insights is the narrative block of an analysis run.
type Insights struct {
	Summary         string   `json:"summary"`
	KeyFindings     []string `json:"key_findings"`
	Recommendations []string `json:"recommendations"`
	Disclaimer      string   `json:"disclaimer"`
}

// InsightAgent writes the patient-facing narrative for analyzed markers.
type InsightAgent struct {
	completer port.ChatCompleter
}

// NewInsightAgent builds an insight agent over a chat-completion provider.
func NewInsightAgent(completer port.ChatCompleter) *InsightAgent {
	return &InsightAgent{completer: completer}
}

// Generate produces the narrative for an extraction. It never returns an
// error: all-normal results get a canned narrative without a model call,
// and a failed or unparseable call degrades to a fixed fallback so the run
// can still complete.
func (a *InsightAgent) Generate(ctx context.Context, extraction *Extraction) *Insights {
	outOfRange := make([]domain.AnalyzedMarker, 0, len(extraction.Markers))
	for i := range extraction.Markers {
		if extraction.Markers[i].Status != domain.MarkerNormal {
			outOfRange = append(outOfRange, extraction.Markers[i])
		}
	}

	if len(outOfRange) == 0 {
		log.Printf("analysis.InsightAgent: all markers normal, skipping model call")
		return allNormalInsights()
	}

	content, err := a.completer.Complete(ctx, port.ChatRequest{
		User:      BuildInsightPrompt(extraction.DocumentType, outOfRange),
		ForceJSON: true,
	})
	if err != nil {
		log.Printf("analysis.InsightAgent: insight call failed: %v", err)
		return errorInsights()
	}

	var ins Insights
	if err := SafeUnmarshal(content, &ins); err != nil {
		log.Printf("analysis.InsightAgent: unparseable insight response: %v", err)
		return errorInsights()
	}

	// The model is told to repeat the disclaimer but is not trusted to.
	ins.Disclaimer = Disclaimer
	return &ins
}

func allNormalInsights() *Insights {
	return &Insights{
		Summary:         "All lab markers are within their normal reference ranges.",
		KeyFindings:     []string{"All markers are within normal limits."},
		Recommendations: []string{"Continue with your healthy lifestyle. No specific recommendations based on these results."},
		Disclaimer:      Disclaimer,
	}
}

func errorInsights() *Insights {
	return &Insights{
		Summary:         "Could not generate AI insights due to a technical error.",
		KeyFindings:     []string{"Error during analysis."},
		Recommendations: []string{"Please try again later."},
		Disclaimer:      Disclaimer,
	}
}
