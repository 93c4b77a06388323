package port

import "context"

// EmailSender defines the contract for run-notification emails.
type EmailSender interface {
	SendAnalysisComplete(ctx context.Context, toEmail, toName, filename, documentID string) error
	SendAnalysisFailed(ctx context.Context, toEmail, toName, filename, reason string) error
}
