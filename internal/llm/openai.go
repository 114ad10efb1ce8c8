package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/illegalcall/fitcoach/internal/apperrors"
	"github.com/illegalcall/fitcoach/internal/config"
)

const providerOpenAI = "openai"

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint
// (OpenRouter, vLLM, OpenAI itself).
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient requires both an API key and a base URL.
func NewOpenAIClient(cfg config.LLMConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, &apperrors.ConfigurationError{Key: "LLM_API_KEY"}
	}
	if cfg.BaseURL == "" {
		return nil, &apperrors.ConfigurationError{Key: "LLM_BASE_URL"}
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

func (c *OpenAIClient) GenerateCompletion(ctx context.Context, systemPrompt, userPrompt string) (Completion, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	})
	if err != nil {
		return Completion{}, &apperrors.UpstreamError{
			Provider:   providerOpenAI,
			StatusCode: statusCodeOf(err),
			Err:        err,
		}
	}

	if len(resp.Choices) == 0 {
		return Completion{}, &apperrors.UpstreamError{
			Provider: providerOpenAI,
			Err:      errors.New("no choices in response"),
		}
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return Completion{
		Text:       resp.Choices[0].Message.Content,
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

func statusCodeOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
