package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"code-critics/internal/config"
	"code-critics/internal/metrics"
	"code-critics/internal/types"
)

// ErrProviderUnavailable means neither the primary nor the fallback
// provider could be constructed or reached.
var ErrProviderUnavailable = errors.New("no llm provider available")

// Gateway wraps a provider with retries, per-call timeouts, and error
// redaction. Provider selection happens once at construction: the
// configured provider is primary, the other one is tried if the primary
// cannot be built.
type Gateway struct {
	client      Client
	primaryName string
	primaryUp   bool
	timeout     time.Duration
	maxRetries  int
	backoff     time.Duration
	production  bool
	sleep       func(context.Context, time.Duration) error
}

// NewGateway selects and constructs the provider per configuration.
// A nil client with primaryUp=false means every review will fail with
// ErrProviderUnavailable; health reports the gateway as unavailable.
func NewGateway(ctx context.Context, cfg *config.Config) *Gateway {
	opts := Options{
		Temperature:     0.1,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
	}

	order := []string{config.ProviderGemini, config.ProviderDeepSeek}
	if cfg.LLM.Provider == config.ProviderDeepSeek {
		order = []string{config.ProviderDeepSeek, config.ProviderGemini}
	}

	g := &Gateway{
		primaryName: order[0],
		timeout:     cfg.LLM.Timeout,
		maxRetries:  cfg.LLM.MaxRetries,
		backoff:     cfg.LLM.RetryBackoff,
		production:  cfg.LLM.Production,
		sleep:       sleepCtx,
	}

	for i, name := range order {
		client, err := buildProvider(ctx, name, cfg, opts)
		if err != nil {
			slog.Warn("provider construction failed", "provider", name, "error", types.RedactError(err))
			continue
		}
		g.client = client
		g.primaryUp = i == 0
		slog.Info("llm provider selected", "provider", client.Name(), "primary", g.primaryUp)
		return g
	}

	slog.Error("no llm provider could be constructed")
	return g
}

func buildProvider(ctx context.Context, name string, cfg *config.Config, opts Options) (Client, error) {
	switch name {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiModel, opts)
	case config.ProviderDeepSeek:
		return NewDeepSeekClient(cfg.LLM.DeepSeekAPIKey, cfg.LLM.Endpoint, cfg.LLM.DeepSeekModel, opts)
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}

// Available reports whether any provider was constructed.
func (g *Gateway) Available() bool { return g.client != nil }

// PrimaryAvailable reports whether the configured (not fallback)
// provider is the one in service.
func (g *Gateway) PrimaryAvailable() bool { return g.client != nil && g.primaryUp }

// ProviderName names the provider in service, or "none".
func (g *Gateway) ProviderName() string {
	if g.client == nil {
		return "none"
	}
	return g.client.Name()
}

// Complete sends the messages with retry on transient failures. Up to
// maxRetries attempts with exponential backoff from the base; a 429 with
// a server-indicated reset waits that long instead. Errors surfaced to
// the caller are always redacted.
func (g *Gateway) Complete(ctx context.Context, messages []Message) (string, error) {
	if g.client == nil {
		return "", ErrProviderUnavailable
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if g.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		}
		text, err := g.client.Complete(callCtx, messages)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			metrics.LLMCalls.WithLabelValues(g.client.Name(), "success").Inc()
			return text, nil
		}

		lastErr = err
		var re *types.RetryableError
		if !errors.As(err, &re) {
			metrics.LLMCalls.WithLabelValues(g.client.Name(), "error").Inc()
			return "", g.sanitize(err)
		}

		metrics.LLMCalls.WithLabelValues(g.client.Name(), "retry").Inc()
		if attempt == g.maxRetries {
			break
		}

		wait := g.backoff * time.Duration(1<<(attempt-1))
		if re.RetryAfterSeconds > 0 {
			wait = time.Duration(re.RetryAfterSeconds) * time.Second
		}
		slog.Warn("llm call failed, retrying",
			"provider", g.client.Name(),
			"attempt", attempt,
			"wait", wait,
			"error", types.RedactError(err))
		if err := g.sleep(ctx, wait); err != nil {
			return "", g.sanitize(lastErr)
		}
	}

	metrics.LLMCalls.WithLabelValues(g.client.Name(), "error").Inc()
	return "", g.sanitize(lastErr)
}

// sanitize strips credentials from provider errors. In production mode
// the provider body is replaced wholesale.
func (g *Gateway) sanitize(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	if g.production {
		if types.IsRetryable(err) {
			return types.NewRetryableError(errors.New("[Error details redacted in production]"))
		}
		return errors.New("[Error details redacted in production]")
	}
	redacted := types.RedactError(err)
	if types.IsRetryable(err) {
		return types.NewRetryableError(errors.New(redacted))
	}
	return errors.New(redacted)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
