// Package llm is the boundary to the language model provider.
//
// Provider output is untrusted: Extract decodes it into a typed payload and
// validates it before any caller sees it.
package llm

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is one chat completion. System is sent as the leading system message.
type Request struct {
	System      string
	Messages    []Message
	JSON        bool
	Temperature float64
	MaxTokens   int
}

// Provider returns the raw text of a single completion.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (string, error)

func (f ProviderFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
