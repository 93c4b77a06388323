package port

import "context"

// ChatRequest is a single chat-completion call to a language model.
type ChatRequest struct {
	System      string
	User        string
	ForceJSON   bool
	Temperature float64
	MaxTokens   int
}

// ChatCompleter abstracts a chat-completion language model provider.
type ChatCompleter interface {
	Name() string
	Complete(ctx context.Context, req ChatRequest) (string, error)
}
