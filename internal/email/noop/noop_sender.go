package noop

import (
	"context"
	"log"

	"labsight/internal/port"
)

type noopSender struct {
	frontendURL string
}

// NewNoopSender creates a no-op EmailSender that logs outcome notices to
// stdout instead of sending anything.
func NewNoopSender(frontendURL string) port.EmailSender {
	return &noopSender{frontendURL: frontendURL}
}

func (s *noopSender) SendAnalysisComplete(_ context.Context, toEmail, toName, filename, documentID string) error {
	log.Printf("[NOOP EMAIL] Analysis ready for %s (%s): %q at %s/documents/%s", toName, toEmail, filename, s.frontendURL, documentID)
	return nil
}

func (s *noopSender) SendAnalysisFailed(_ context.Context, toEmail, toName, filename, reason string) error {
	log.Printf("[NOOP EMAIL] Analysis failed for %s (%s): %q: %s", toName, toEmail, filename, reason)
	return nil
}
