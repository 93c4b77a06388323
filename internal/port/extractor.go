package port

import "context"

// ExtractInput carries everything an extraction provider might need: cloud
// providers read the presigned URL, local providers read the raw bytes.
type ExtractInput struct {
	Key         string
	URL         string
	Data        []byte
	ContentType string
	Filename    string
}

// ExtractOutput is the plain text pulled out of a document. An empty Text
// is a valid output; deciding whether emptiness is fatal belongs to the
// caller.
type ExtractOutput struct {
	Text      string
	PageCount int
}

// TextExtractor abstracts optical/text extraction from an uploaded report.
type TextExtractor interface {
	Name() string
	Extract(ctx context.Context, input ExtractInput) (*ExtractOutput, error)
}
