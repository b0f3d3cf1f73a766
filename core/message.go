package core

import "encoding/json"

// Role identifies who produced a message in a thread.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// ToolCall is a single tool invocation requested by the assistant.
// IDs are unique within a turn and link the call to its result message.
type ToolCall struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"arguments"`
}

// Message is one entry in a thread's append-only history.
//
// The role determines which fields are populated: an assistant message may
// carry an ordered ToolCalls list, a tool message carries the ToolCallID of
// the call it answers. Use the constructors below rather than building
// messages by hand.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`

	// ToolCalls is set only on assistant messages that request tool use.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID is set only on tool messages and links the result back to
	// its originating call.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewAssistantMessage creates a plain assistant text message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewAssistantToolCalls creates an assistant message carrying tool calls.
// The call order is preserved; the orchestrator executes them in order.
func NewAssistantToolCalls(content string, calls []ToolCall) Message {
	cloned := make([]ToolCall, len(calls))
	copy(cloned, calls)
	return Message{Role: RoleAssistant, Content: content, ToolCalls: cloned}
}

// NewToolResultMessage creates a tool result message for the given call ID.
// Content is the serialized observation.
func NewToolResultMessage(toolCallID string, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// HasToolCalls reports whether this message requests tool execution.
// Orchestrator routing depends on nothing but this predicate.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}
