// Package llm wraps the remote inference providers behind a single
// chat-completion call.
package llm

import (
	"context"
	"fmt"

	"github.com/illegalcall/fitcoach/internal/apperrors"
	"github.com/illegalcall/fitcoach/internal/config"
)

// Sampling parameters are part of the generation contract, not configuration.
const (
	Temperature = 0.7
	MaxTokens   = 2000
)

// Completion is the verbatim model output plus accounting data.
type Completion struct {
	Text       string
	Model      string
	TokensUsed int
}

// Client issues exactly one completion request per call and never retries.
// Transport failures, timeouts and non-success statuses are returned as
// *apperrors.UpstreamError.
type Client interface {
	GenerateCompletion(ctx context.Context, systemPrompt, userPrompt string) (Completion, error)
}

// New builds the client for the configured provider. It is meant to be called
// once at process start; the result is safe for concurrent use.
func New(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		client, err := NewOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, &apperrors.ConfigurationError{Key: "LLM_PROVIDER", Reason: fmt.Sprintf("unknown provider %q", cfg.Provider)}
	}
}
