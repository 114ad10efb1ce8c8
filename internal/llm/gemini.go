package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/illegalcall/fitcoach/internal/apperrors"
	"github.com/illegalcall/fitcoach/internal/config"
)

const providerGemini = "gemini"

// GeminiClient calls Google's Gemini models through the generative-ai SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient requires an API key. A base URL, when set, overrides the
// SDK's default endpoint.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, &apperrors.ConfigurationError{Key: "LLM_API_KEY"}
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: cfg.Model}, nil
}

func (c *GeminiClient) GenerateCompletion(ctx context.Context, systemPrompt, userPrompt string) (Completion, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(Temperature)
	model.SetMaxOutputTokens(MaxTokens)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	resp, err := model.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		upstream := &apperrors.UpstreamError{Provider: providerGemini, Err: err}
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			upstream.StatusCode = apiErr.Code
		}
		return Completion{}, upstream
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Completion{}, &apperrors.UpstreamError{Provider: providerGemini, Err: errors.New("no candidates in response")}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	completion := Completion{Text: text.String(), Model: c.model}
	if resp.UsageMetadata != nil {
		completion.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return completion, nil
}

// Close releases the underlying gRPC connection.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}
