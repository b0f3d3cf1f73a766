package core

import "context"

// ToolDescriptor is one catalogue entry presented to the reasoning capability.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// CompletionRequest carries the full message history plus the tool catalogue
// for one reasoning invocation.
type CompletionRequest struct {
	System   string
	Messages []Message
	Tools    []ToolDescriptor
}

// Completion is the reasoning capability's response: either a final text
// answer, or an ordered list of tool calls to execute (or both, when the
// model narrates alongside its calls).
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// Reasoner is the LLM-reasoning capability consumed by the orchestrator.
// Implementations must support a deterministic (zero-temperature) mode so
// runs can be reproduced in tests.
type Reasoner interface {
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)
}
