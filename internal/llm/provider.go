// Package llm provides the text-completion collaborator used by the analysis
// pipeline. It defines a small provider interface, an OpenAI-compatible
// implementation (OpenAI, Groq, or any API speaking the chat-completions
// protocol), and a retrying wrapper that bounds every call with a timeout.
package llm

import (
	"context"
	"errors"
	"time"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
)

// Common errors returned by providers.
var (
	ErrNoAPIKey     = errors.New("llm: API key not configured")
	ErrRateLimit    = errors.New("llm: rate limit exceeded")
	ErrProviderDown = errors.New("llm: provider unavailable")
	ErrInvalidModel = errors.New("llm: invalid model")
	ErrEmptyPrompt  = errors.New("llm: empty prompt")
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system prompt message.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage creates a user message.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// ChatOptions configures a single completion request.
type ChatOptions struct {
	Model       string   `json:"model,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// Usage tracks token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response represents a complete response from the provider.
type Response struct {
	Content string        `json:"content"`
	Model   string        `json:"model"`
	Usage   Usage         `json:"usage"`
	Latency time.Duration `json:"latency"`
}

// Provider is the interface every completion backend implements. The pipeline
// never assumes anything about Content beyond best-effort instruction
// following.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "groq").
	Name() string

	// Complete sends a conversation and returns the model's reply.
	Complete(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error)
}
