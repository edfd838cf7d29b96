package llm

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"code-critics/internal/types"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DeepSeekClient talks to the DeepSeek API, which is OpenAI-compatible,
// through the official openai client.
type DeepSeekClient struct {
	client *openai.Client
	model  string
	opts   Options
}

// NewDeepSeekClient constructs a DeepSeek provider against the given
// endpoint (the public API by default).
func NewDeepSeekClient(apiKey, endpoint, model string, opts Options) (*DeepSeekClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepseek: missing api key")
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(endpoint),
	)
	return &DeepSeekClient{client: &client, model: model, opts: opts}, nil
}

// Name implements Client.
func (c *DeepSeekClient) Name() string {
	return "deepseek-" + c.model
}

// Complete implements Client.
func (c *DeepSeekClient) Complete(ctx context.Context, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(c.opts.Temperature),
		MaxTokens:   openai.Int(int64(c.opts.MaxOutputTokens)),
	}
	for _, m := range messages {
		switch m.Role {
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", wrapDeepSeekError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("deepseek: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func wrapDeepSeekError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		code := apiErr.StatusCode
		if code == 429 {
			retryAfter := 0
			if apiErr.Response != nil {
				if v := apiErr.Response.Header.Get("Retry-After"); v != "" {
					retryAfter, _ = strconv.Atoi(v)
				}
			}
			return types.NewRateLimitedError(fmt.Errorf("deepseek request: %w", err), retryAfter)
		}
		if types.RetryableStatus(code) {
			return types.NewRetryableError(fmt.Errorf("deepseek request: %w", err))
		}
		return fmt.Errorf("deepseek request: %w", err)
	}
	return types.NewRetryableError(fmt.Errorf("deepseek request: %w", err))
}
