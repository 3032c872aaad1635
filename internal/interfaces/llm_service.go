package interfaces

import "context"

// Message is a single turn of a model conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// LLMService generates completions for extraction prompts.
type LLMService interface {
	// Chat sends the messages and returns the model's text response.
	Chat(ctx context.Context, messages []Message) (string, error)

	// GetModelName returns the configured model identifier.
	GetModelName() string

	// Close releases provider resources.
	Close() error
}
