package llm

import (
	"context"
	"errors"
	"fmt"

	"code-critics/internal/types"

	"google.golang.org/genai"
)

// GeminiClient talks to the Gemini API through the official genai SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
	opts   Options
}

// NewGeminiClient constructs a Gemini provider. Construction fails fast
// on a missing key so the gateway can try the fallback provider.
func NewGeminiClient(ctx context.Context, apiKey, model string, opts Options) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: missing api key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiClient{client: client, model: model, opts: opts}, nil
}

// Name implements Client.
func (c *GeminiClient) Name() string {
	return "gemini-" + c.model
}

// Complete implements Client.
func (c *GeminiClient) Complete(ctx context.Context, messages []Message) (string, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(c.opts.Temperature)),
		MaxOutputTokens: int32(c.opts.MaxOutputTokens),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", wrapGeminiError(err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: empty response")
	}
	return text, nil
}

func wrapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 {
			return types.NewRateLimitedError(fmt.Errorf("gemini request: %w", err), 0)
		}
		if types.RetryableStatus(apiErr.Code) {
			return types.NewRetryableError(fmt.Errorf("gemini request: %w", err))
		}
		return fmt.Errorf("gemini request: %w", err)
	}
	// Transport-level failure
	return types.NewRetryableError(fmt.Errorf("gemini request: %w", err))
}
