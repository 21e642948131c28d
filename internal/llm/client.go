// Package llm abstracts the model provider behind a small client
// interface so the conversation pipeline can be tested with a fake.
package llm

import "context"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a model conversation.
type Message struct {
	Role    Role
	Content string
}

// Client generates a single completion for an ordered message list.
// Implementations classify provider failures as *Error so callers can
// branch on Kind instead of matching error strings.
type Client interface {
	Generate(ctx context.Context, model string, msgs []Message) (string, error)
}
