package llm

import (
	"fmt"

	"labsight/internal/config"
	"labsight/internal/port"
)

// ProviderFactory is a function that creates a ChatCompleter from the LLM config.
type ProviderFactory func(cfg *config.LLMConfig) (port.ChatCompleter, error)

// registry of completer factories, populated by init() in each provider package
// or explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a chat-completion provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewCompleter creates a ChatCompleter for the configured provider using the
// registered factory.
func NewCompleter(cfg *config.LLMConfig) (port.ChatCompleter, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	return factory(cfg)
}
