package segment

import "context"

// CompletionOptions are the only knobs the engine passes to a model provider.
// Tier lets a provider route to a more capable model; providers may ignore it.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
	Tier        Tier
}

// ModelClient is the language-model capability consumed by the engine.
// Every provider is treated identically: text in, text plus token usage out.
type ModelClient interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (text string, tokensUsed int, err error)
}
