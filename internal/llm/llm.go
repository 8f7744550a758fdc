// Package llm is the chat-completion boundary used by the relay.
package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

var ErrEmptyResponse = errors.New("completion returned no choices")

type Message struct {
	Role    string
	Content string
	// ToolCalls is set on assistant messages that requested tool invocations.
	ToolCalls []ToolCall
	// ToolCallID links a tool result message to the call it answers.
	ToolCallID string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type Request struct {
	Model       string
	Messages    []Message
	Tools       []ToolDef
	Temperature float64
	MaxTokens   int
}

type Response struct {
	Content   string
	ToolCalls []ToolCall
}

type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
