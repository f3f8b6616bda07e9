// Package llms provides chat completion providers with tool-calling support.
// The providers speak the raw HTTP APIs directly; retries are delegated to
// pkg/httpclient.
package llms

import "context"

// Message is a provider-neutral conversation message.
type Message struct {
	Role       string     // "system", "user", "assistant", "tool"
	Content    string     // Text content
	ToolCalls  []ToolCall // For assistant messages that requested tool calls
	ToolCallID string     // For tool messages, the call this result answers
}

// ToolDefinition describes a tool offered to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
	RawArgs   string // Original JSON, kept for exact round-tripping
}

// Response is the result of a single completion request.
type Response struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
	TokensUsed int
}

// Provider generates completions for a conversation. Implementations must be
// safe for concurrent use.
type Provider interface {
	// Generate runs one completion. Tools may be empty, in which case the
	// model can only respond with text.
	Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error)

	// ModelName returns the configured model identifier.
	ModelName() string

	// Close releases provider resources.
	Close() error
}
