package llm

import (
	"context"
	"encoding/json"
)

// Provider is the narrow capability the diagnosis oracle talks to.
// Every call is a single-turn request that yields structured JSON.
type Provider interface {
	// Generate sends a prompt and returns the model's output. When
	// req.Schema is set the returned Content is a JSON object that has
	// already been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier requests are sent to.
	ModelID() string
}

// Request describes one call to the model.
type Request struct {
	System   string
	Messages []Message

	// Schema constrains the response shape. Providers use their native
	// structured output where they have one and fall back to JSON mode
	// plus validation where they don't.
	Schema *Schema

	MaxTokens int

	// Temperature in [0, 1]. Zero leaves the provider default in place.
	Temperature float64
}

// Message is a single conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema definition.
type Schema struct {
	// Name is a kebab-case identifier, e.g. "answer-judgement". Used as the
	// schema name for OpenAI and as the compile cache key.
	Name        string
	Description string
	Definition  map[string]any
}

// Response holds the model output.
type Response struct {
	Content json.RawMessage
	Usage   Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
