package ocr

import (
	"fmt"

	"labsight/internal/config"
	"labsight/internal/port"
)

// ProviderFactory is a function that creates a TextExtractor from the
// extraction config.
type ProviderFactory func(cfg *config.ExtractionConfig) (port.TextExtractor, error)

// registry of extractor factories, populated by init() in each provider package
// or explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a text-extraction provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewExtractor creates a TextExtractor for a single named provider.
func NewExtractor(name string, cfg *config.ExtractionConfig) (port.TextExtractor, error) {
	factory, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown extraction provider: %s", name)
	}
	return factory(cfg)
}

// NewExtractorChain creates the configured primary extractor, wrapped in a
// FallbackExtractor when fallback providers are configured.
func NewExtractorChain(cfg *config.ExtractionConfig) (port.TextExtractor, error) {
	primary, err := NewExtractor(cfg.Provider, cfg)
	if err != nil {
		return nil, err
	}
	if len(cfg.FallbackProviders) == 0 {
		return primary, nil
	}

	extractors := []port.TextExtractor{primary}
	for _, name := range cfg.FallbackProviders {
		if name == cfg.Provider {
			continue
		}
		e, err := NewExtractor(name, cfg)
		if err != nil {
			return nil, fmt.Errorf("building fallback extractor: %w", err)
		}
		extractors = append(extractors, e)
	}
	return NewFallbackExtractor(extractors), nil
}
