package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mnemoai/mnemo-go-sdk/core"
)

// State is the orchestrator position of a thread.
type State string

const (
	// StateReasoning: the next step is a reasoning call.
	StateReasoning State = "reasoning"

	// StateAwaitingToolExecution: the assistant requested tools and the
	// engine is draining them.
	StateAwaitingToolExecution State = "awaiting_tool_execution"

	// StateAwaitingConfirmation: a risky tool is pending and the engine is
	// suspended until a human approves or denies it.
	StateAwaitingConfirmation State = "awaiting_confirmation"

	// StateTerminal: the run produced a final answer.
	StateTerminal State = "terminal"
)

// ErrThreadNotFound is returned by a ThreadStore when no thread has the
// requested ID.
var ErrThreadNotFound = errors.New("thread not found")

// Thread is one conversation with the agent. It is the unit of persistence:
// everything needed to resume a suspended run round-trips through JSON.
//
// The Trajectory is deliberately excluded. It is an ephemeral per-run record
// for logs and tests, so a thread resumed in a fresh process starts with an
// empty one.
type Thread struct {
	ID       string         `json:"id"`
	State    State          `json:"state"`
	Messages []core.Message `json:"messages"`

	// Pending is the risky call awaiting confirmation, set only in
	// StateAwaitingConfirmation.
	Pending *core.ToolCall `json:"pending_call,omitempty"`

	// Queue holds the not-yet-executed remainder of the current turn's tool
	// calls, in request order.
	Queue []core.ToolCall `json:"queue,omitempty"`

	// Cycles counts reasoning calls in the current run.
	Cycles int `json:"cycles"`

	// FinalAnswer is set when State is StateTerminal.
	FinalAnswer string `json:"final_answer,omitempty"`

	Trajectory core.Trajectory `json:"-"`
}

// NewThread creates an empty thread in the reasoning state.
func NewThread() *Thread {
	return &Thread{
		ID:    uuid.NewString(),
		State: StateReasoning,
	}
}

// Suspended reports whether the thread is waiting on human confirmation.
func (t *Thread) Suspended() bool {
	return t.State == StateAwaitingConfirmation
}

// lastQuestion returns the most recent user message content. Reflection and
// resumed runs use it; the trajectory is not durable.
func (t *Thread) lastQuestion() string {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].Role == core.RoleUser {
			return t.Messages[i].Content
		}
	}
	return ""
}

// ThreadStore persists threads across suspension and process restarts.
type ThreadStore interface {
	// Save upserts the thread.
	Save(ctx context.Context, thread *Thread) error

	// Load retrieves a thread by ID, or ErrThreadNotFound.
	Load(ctx context.Context, id string) (*Thread, error)

	Close() error
}
