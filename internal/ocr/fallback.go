package ocr

import (
	"context"
	"fmt"
	"log"
	"strings"

	"labsight/internal/port"
)

// FallbackExtractor tries extractors in order until one succeeds. An
// extractor that returns without error ends the chain even when it found no
// text; empty output is a pipeline concern, not a transport failure.
// It implements port.TextExtractor.
type FallbackExtractor struct {
	extractors []port.TextExtractor
}

// NewFallbackExtractor creates a FallbackExtractor from an ordered list of extractors.
func NewFallbackExtractor(extractors []port.TextExtractor) *FallbackExtractor {
	return &FallbackExtractor{extractors: extractors}
}

func (f *FallbackExtractor) Name() string {
	names := make([]string, 0, len(f.extractors))
	for _, e := range f.extractors {
		names = append(names, e.Name())
	}
	return strings.Join(names, "+")
}

func (f *FallbackExtractor) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	var lastErr error

	for _, e := range f.extractors {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		out, err := e.Extract(ctx, input)
		if err == nil {
			return out, nil
		}

		log.Printf("ocr.FallbackExtractor: %s failed: %v", e.Name(), err)
		lastErr = err
	}

	if lastErr == nil {
		return nil, fmt.Errorf("no extraction providers configured")
	}
	return nil, fmt.Errorf("all extraction providers failed: %w", lastErr)
}
