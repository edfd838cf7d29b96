package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"code-critics/internal/types"
)

type scriptedClient struct {
	calls   int
	results []error // nil means success
	text    string
}

func (c *scriptedClient) Name() string { return "scripted" }

func (c *scriptedClient) Complete(ctx context.Context, messages []Message) (string, error) {
	idx := c.calls
	c.calls++
	if idx < len(c.results) && c.results[idx] != nil {
		return "", c.results[idx]
	}
	return c.text, nil
}

func testGateway(client Client) (*Gateway, *[]time.Duration) {
	var waits []time.Duration
	g := &Gateway{
		client:      client,
		primaryName: "scripted",
		primaryUp:   true,
		timeout:     time.Second,
		maxRetries:  3,
		backoff:     time.Second,
		sleep: func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	}
	return g, &waits
}

func TestGateway_Success(t *testing.T) {
	client := &scriptedClient{text: "looks good"}
	g, _ := testGateway(client)

	text, err := g.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "looks good" {
		t.Errorf("unexpected reply: %q", text)
	}
	if client.calls != 1 {
		t.Errorf("expected 1 call, got %d", client.calls)
	}
}

func TestGateway_RetryThenSuccess(t *testing.T) {
	client := &scriptedClient{
		results: []error{
			types.NewRetryableError(errors.New("flaky 503")),
			types.NewRetryableError(errors.New("flaky again")),
			nil,
		},
		text: "third time",
	}
	g, waits := testGateway(client)

	text, err := g.Complete(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "third time" {
		t.Errorf("unexpected reply: %q", text)
	}
	if client.calls != 3 {
		t.Errorf("expected 3 calls, got %d", client.calls)
	}

	// Exponential backoff from the base
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*waits) != len(want) {
		t.Fatalf("expected %d waits, got %v", len(want), *waits)
	}
	for i, w := range want {
		if (*waits)[i] != w {
			t.Errorf("wait %d = %v, want %v", i, (*waits)[i], w)
		}
	}
}

func TestGateway_RetryAfterHonored(t *testing.T) {
	client := &scriptedClient{
		results: []error{types.NewRateLimitedError(errors.New("429"), 30), nil},
		text:    "ok",
	}
	g, waits := testGateway(client)

	if _, err := g.Complete(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*waits) != 1 || (*waits)[0] != 30*time.Second {
		t.Errorf("expected 30s wait from Retry-After, got %v", *waits)
	}
}

func TestGateway_NonRetryableNoRetry(t *testing.T) {
	client := &scriptedClient{
		results: []error{errors.New("400 bad request")},
	}
	g, waits := testGateway(client)

	_, err := g.Complete(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if client.calls != 1 {
		t.Errorf("permanent error must not retry, got %d calls", client.calls)
	}
	if len(*waits) != 0 {
		t.Errorf("no waits expected, got %v", *waits)
	}
}

func TestGateway_RetriesExhausted(t *testing.T) {
	flaky := types.NewRetryableError(errors.New("always down"))
	client := &scriptedClient{results: []error{flaky, flaky, flaky}}
	g, _ := testGateway(client)

	_, err := g.Complete(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if client.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", client.calls)
	}
	if !types.IsRetryable(err) {
		t.Error("exhausted-retry error must stay classified retryable")
	}
}

func TestGateway_ErrorRedaction(t *testing.T) {
	client := &scriptedClient{
		results: []error{errors.New("auth failed: key=AIzaSyFakeKeyValue12345")},
	}
	g, _ := testGateway(client)

	_, err := g.Complete(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "AIzaSyFakeKeyValue12345") {
		t.Errorf("credential leaked: %v", err)
	}
	if !strings.Contains(err.Error(), "[REDACTED]") {
		t.Errorf("expected redaction marker: %v", err)
	}
}

func TestGateway_ProductionWholesaleRedaction(t *testing.T) {
	client := &scriptedClient{
		results: []error{errors.New("provider body with internals")},
	}
	g, _ := testGateway(client)
	g.production = true

	_, err := g.Complete(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "[Error details redacted in production]" {
		t.Errorf("expected wholesale redaction, got %v", err)
	}
}

func TestGateway_NoProvider(t *testing.T) {
	g := &Gateway{sleep: func(context.Context, time.Duration) error { return nil }}

	_, err := g.Complete(context.Background(), nil)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
	if g.Available() {
		t.Error("gateway without client must report unavailable")
	}
	if g.ProviderName() != "none" {
		t.Errorf("expected provider name none, got %s", g.ProviderName())
	}
}

func TestGateway_CanceledContextStopsRetries(t *testing.T) {
	flaky := types.NewRetryableError(errors.New("down"))
	client := &scriptedClient{results: []error{flaky, flaky, flaky}}

	ctx, cancel := context.WithCancel(context.Background())
	g := &Gateway{
		client:     client,
		maxRetries: 3,
		backoff:    time.Second,
		sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	_, err := g.Complete(ctx, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if client.calls != 1 {
		t.Errorf("canceled context must stop retries, got %d calls", client.calls)
	}
}
