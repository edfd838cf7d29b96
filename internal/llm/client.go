package llm

import "context"

// Role of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the chat sent to a provider.
type Message struct {
	Role    Role
	Content string
}

// Options is the small fixed set of per-call knobs.
type Options struct {
	Temperature     float64
	MaxOutputTokens int
}

// Client is a single chat-completion provider.
// IMPORTANT: implementations must be safe for concurrent use; their
// configuration (API key, endpoint, model) is never modified after creation.
type Client interface {
	// Name identifies the provider for logs and health reporting.
	Name() string
	// Complete sends the ordered messages and returns the reply text.
	Complete(ctx context.Context, messages []Message) (string, error)
}
