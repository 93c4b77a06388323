package ses

import (
	"context"
	"fmt"
	"net/url"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"labsight/internal/port"
)

type sesSender struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
	frontendURL string
}

// NewSESSender creates a new SES-backed EmailSender.
func NewSESSender(region, fromAddress, fromName, frontendURL string) (port.EmailSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	client := sesv2.NewFromConfig(cfg)
	return &sesSender{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
		frontendURL: frontendURL,
	}, nil
}

func (s *sesSender) SendAnalysisComplete(ctx context.Context, toEmail, toName, filename, documentID string) error {
	resultsURL := fmt.Sprintf("%s/documents/%s", s.frontendURL, url.PathEscape(documentID))

	subject := "Your lab report analysis is ready"
	htmlBody := buildAnalysisCompleteHTML(toName, filename, resultsURL)
	textBody := fmt.Sprintf("Hi %s,\n\nWe finished analyzing %q. View your results here:\n%s\n\nLabsight Team", toName, filename, resultsURL)

	return s.send(ctx, toEmail, subject, htmlBody, textBody)
}

func (s *sesSender) SendAnalysisFailed(ctx context.Context, toEmail, toName, filename, reason string) error {
	subject := "We could not process your lab report"
	htmlBody := buildAnalysisFailedHTML(toName, filename, reason)
	textBody := fmt.Sprintf("Hi %s,\n\nWe ran into a problem while processing %q:\n%s\n\nYou can retry the analysis from your dashboard, or upload a clearer copy of the report.\n\nLabsight Team", toName, filename, reason)

	return s.send(ctx, toEmail, subject, htmlBody, textBody)
}

func (s *sesSender) send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

func buildAnalysisCompleteHTML(name, filename, resultsURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Your analysis is ready</h2>
  <p>Hi %s,</p>
  <p>We finished analyzing <strong>%s</strong>. Your markers have been classified and your summary is waiting:</p>
  <p style="text-align: center; margin: 30px 0;">
    <a href="%s" style="background-color: #0D9488; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">View Results</a>
  </p>
  <p>Or copy and paste this link into your browser:</p>
  <p style="word-break: break-all; color: #666;">%s</p>
  <p style="color: #999; font-size: 12px;">This analysis is informational and is not a medical diagnosis.</p>
  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px;">Labsight - Lab Report Analysis</p>
</body>
</html>`, name, filename, resultsURL, resultsURL)
}

func buildAnalysisFailedHTML(name, filename, reason string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">We could not process your report</h2>
  <p>Hi %s,</p>
  <p>We ran into a problem while processing <strong>%s</strong>:</p>
  <p style="color: #B91C1C; background: #FEF2F2; padding: 12px; border-radius: 6px;">%s</p>
  <p>You can retry the analysis from your dashboard. If the problem persists, try uploading a clearer copy of the report.</p>
  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px;">Labsight - Lab Report Analysis</p>
</body>
</html>`, name, filename, reason)
}
