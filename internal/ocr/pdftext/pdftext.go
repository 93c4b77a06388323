package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"

	"labsight/internal/config"
	"labsight/internal/ocr"
	"labsight/internal/port"
)

func init() {
	ocr.RegisterProvider("pdftext", func(cfg *config.ExtractionConfig) (port.TextExtractor, error) {
		return NewExtractor(), nil
	})
}

// Extractor implements port.TextExtractor by reading the embedded text layer
// of a PDF. It needs no external service but yields nothing for scanned
// documents without a text layer.
type Extractor struct{}

// NewExtractor creates a text-layer PDF extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Name() string {
	return "pdftext"
}

func (e *Extractor) Extract(ctx context.Context, input port.ExtractInput) (out *port.ExtractOutput, err error) {
	if input.ContentType != "application/pdf" {
		return nil, fmt.Errorf("pdftext supports only PDF input, got %s", input.ContentType)
	}
	if len(input.Data) == 0 {
		return nil, fmt.Errorf("no file data provided")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	// The pdf library panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("reading PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(input.Data), int64(len(input.Data)))
	if err != nil {
		return nil, fmt.Errorf("reading PDF: %w", err)
	}

	pageCount := reader.NumPage()
	var sb strings.Builder
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Printf("pdftext.Extract: page %d unreadable: %v", i, err)
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("--- Page %d ---\n", i))
		sb.WriteString(text)
	}

	return &port.ExtractOutput{
		Text:      strings.TrimSpace(sb.String()),
		PageCount: pageCount,
	}, nil
}
