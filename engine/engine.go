// Package engine implements the orchestrator: a small state machine that
// alternates reasoning calls with tool execution, suspends on risky tools
// until a human confirms, and hands completed runs to the reflection engine.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mnemoai/mnemo-go-sdk/core"
	"github.com/mnemoai/mnemo-go-sdk/reflection"
	"github.com/mnemoai/mnemo-go-sdk/tools"
)

// CycleLimitAnswer is the sentinel final answer for runs that hit the cycle
// cap without converging.
const CycleLimitAnswer = "최대 단계 초과"

// ErrNotSuspended is returned by Resume on a thread that is not awaiting
// confirmation.
var ErrNotSuspended = errors.New("thread is not awaiting confirmation")

// Config tunes the orchestrator.
type Config struct {
	// MaxCycles caps reasoning calls per run. Hitting the cap terminates
	// the run with CycleLimitAnswer.
	MaxCycles int

	// SystemPrompt is prepended to every reasoning call.
	SystemPrompt string
}

// DefaultConfig allows six reasoning cycles per run.
func DefaultConfig() Config {
	return Config{MaxCycles: 6}
}

// OutputType distinguishes the two ways a Run or Resume call hands control
// back to the caller.
type OutputType string

const (
	// OutputAnswer: the run is terminal and Answer is set.
	OutputAnswer OutputType = "answer"

	// OutputConfirmation: the run is suspended on a risky tool; Prompt and
	// PendingCall describe what needs approval.
	OutputConfirmation OutputType = "confirmation"
)

// Output is the result of driving a thread until it terminates or suspends.
type Output struct {
	Type OutputType

	// Answer is the final answer, set for OutputAnswer.
	Answer string

	// Prompt is a human-readable confirmation request, set for
	// OutputConfirmation.
	Prompt string

	// PendingCall is the suspended tool call, set for OutputConfirmation.
	PendingCall *core.ToolCall

	// Trajectory records the tool steps of this Run/Resume invocation.
	Trajectory *core.Trajectory
}

// Engine drives threads through the reasoning/tool/confirmation cycle.
type Engine struct {
	reasoner  core.Reasoner
	registry  *tools.Registry
	reflector *reflection.Engine
	threads   ThreadStore
	config    Config
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig overrides the default orchestrator tuning.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.config = cfg }
}

// WithReflection attaches a reflection engine. After each naturally completed
// run the reflector judges the exchange for long-term memory.
func WithReflection(r *reflection.Engine) Option {
	return func(e *Engine) { e.reflector = r }
}

// WithThreadStore attaches a checkpoint store. Threads are saved whenever
// they suspend or terminate.
func WithThreadStore(store ThreadStore) Option {
	return func(e *Engine) { e.threads = store }
}

// New creates an orchestrator over a reasoner and a tool registry.
func New(reasoner core.Reasoner, registry *tools.Registry, opts ...Option) *Engine {
	e := &Engine{
		reasoner: reasoner,
		registry: registry,
		config:   DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run starts a new exchange on the thread: appends the question and drives
// the loop until it produces an answer or suspends on a risky tool.
func (e *Engine) Run(ctx context.Context, thread *Thread, question string) (*Output, error) {
	if thread.Suspended() {
		return nil, fmt.Errorf("thread %s is suspended; call Resume first", thread.ID)
	}

	thread.State = StateReasoning
	thread.Cycles = 0
	thread.FinalAnswer = ""
	thread.Trajectory = core.Trajectory{Question: question}
	thread.Messages = append(thread.Messages, core.NewUserMessage(question))

	return e.loop(ctx, thread)
}

// Resume continues a suspended thread with the human's verdict. Approval
// executes the pending call; denial records a cancellation observation so
// the reasoner knows the tool did not run. Either way the loop continues
// until the run terminates or suspends again.
func (e *Engine) Resume(ctx context.Context, thread *Thread, approved bool) (*Output, error) {
	if !thread.Suspended() || thread.Pending == nil {
		return nil, ErrNotSuspended
	}

	call := *thread.Pending
	thread.Pending = nil
	thread.State = StateAwaitingToolExecution

	if approved {
		log.Printf("[ENGINE] thread %s: %s approved", thread.ID, call.Name)
		if err := e.execute(ctx, thread, call); err != nil {
			return nil, err
		}
	} else {
		log.Printf("[ENGINE] thread %s: %s denied", thread.ID, call.Name)
		observation := cancelledObservation(call.Name)
		thread.Messages = append(thread.Messages, core.NewToolResultMessage(call.ID, observation))
		thread.Trajectory.AddTrace(call.Name, call.Args, observation)
	}

	if out, done, err := e.drainQueue(ctx, thread); done || err != nil {
		return out, err
	}

	thread.State = StateReasoning
	return e.loop(ctx, thread)
}

// loop is the state machine core: reason, then either finish or execute the
// requested tools, suspending when one requires confirmation.
func (e *Engine) loop(ctx context.Context, thread *Thread) (*Output, error) {
	for {
		if thread.Cycles >= e.config.MaxCycles {
			log.Printf("[ENGINE] thread %s: cycle limit %d reached", thread.ID, e.config.MaxCycles)
			// Forced termination: no reflection on an answer the agent
			// never actually produced.
			return e.finish(ctx, thread, CycleLimitAnswer, false)
		}

		completion, err := e.reasoner.Complete(ctx, &core.CompletionRequest{
			System:   e.config.SystemPrompt,
			Messages: thread.Messages,
			Tools:    e.registry.Descriptors(),
		})
		if err != nil {
			return nil, fmt.Errorf("reasoning: %w", err)
		}
		thread.Cycles++

		if len(completion.ToolCalls) == 0 {
			return e.finish(ctx, thread, completion.Content, true)
		}

		thread.Messages = append(thread.Messages, core.NewAssistantToolCalls(completion.Content, completion.ToolCalls))
		thread.State = StateAwaitingToolExecution
		thread.Queue = append([]core.ToolCall(nil), completion.ToolCalls...)

		if out, done, err := e.drainQueue(ctx, thread); done || err != nil {
			return out, err
		}

		thread.State = StateReasoning
	}
}

// drainQueue executes queued tool calls in request order. It stops early
// when a call requires confirmation, suspending the thread. The bool result
// reports whether the caller should return (suspension) rather than loop.
func (e *Engine) drainQueue(ctx context.Context, thread *Thread) (*Output, bool, error) {
	for len(thread.Queue) > 0 {
		call := thread.Queue[0]
		thread.Queue = thread.Queue[1:]
		if len(thread.Queue) == 0 {
			thread.Queue = nil
		}

		spec, ok := e.registry.Get(call.Name)
		if ok && spec.RequiresConfirmation {
			return e.suspend(ctx, thread, call)
		}

		if err := e.execute(ctx, thread, call); err != nil {
			return nil, false, err
		}
	}
	return nil, false, nil
}

// execute dispatches one tool call and appends the observation. Only an
// unknown tool name is fatal; validation and runtime failures come back as
// observation envelopes for the reasoner to react to.
func (e *Engine) execute(ctx context.Context, thread *Thread, call core.ToolCall) error {
	observation, err := e.registry.Call(ctx, call.Name, call.Args)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", call.Name, err)
	}

	log.Printf("[ENGINE] thread %s: %s -> %d bytes", thread.ID, call.Name, len(observation))
	thread.Messages = append(thread.Messages, core.NewToolResultMessage(call.ID, string(observation)))
	thread.Trajectory.AddTrace(call.Name, call.Args, string(observation))
	return nil
}

// suspend checkpoints the thread in the awaiting-confirmation state and
// hands the pending call back to the caller.
func (e *Engine) suspend(ctx context.Context, thread *Thread, call core.ToolCall) (*Output, bool, error) {
	pending := call
	thread.Pending = &pending
	thread.State = StateAwaitingConfirmation

	if err := e.checkpoint(ctx, thread); err != nil {
		return nil, false, err
	}

	log.Printf("[ENGINE] thread %s: suspended on %s", thread.ID, call.Name)
	return &Output{
		Type:        OutputConfirmation,
		Prompt:      confirmationPrompt(call),
		PendingCall: &pending,
		Trajectory:  &thread.Trajectory,
	}, true, nil
}

// finish terminates the run. Reflection only sees naturally produced
// answers; reflect is false on the cycle-limit path.
func (e *Engine) finish(ctx context.Context, thread *Thread, answer string, reflect bool) (*Output, error) {
	thread.State = StateTerminal
	thread.FinalAnswer = answer
	thread.Queue = nil
	thread.Pending = nil
	thread.Messages = append(thread.Messages, core.NewAssistantMessage(answer))
	thread.Trajectory.FinalAnswer = answer

	if err := e.checkpoint(ctx, thread); err != nil {
		return nil, err
	}

	if reflect && e.reflector != nil {
		question := thread.Trajectory.Question
		if question == "" {
			question = thread.lastQuestion()
		}
		if err := e.reflector.Observe(ctx, question, answer); err != nil {
			return nil, fmt.Errorf("reflection: %w", err)
		}
	}

	log.Printf("[ENGINE] thread %s: done (%s)", thread.ID, thread.Trajectory.String())
	return &Output{
		Type:       OutputAnswer,
		Answer:     answer,
		Trajectory: &thread.Trajectory,
	}, nil
}

func (e *Engine) checkpoint(ctx context.Context, thread *Thread) error {
	if e.threads == nil {
		return nil
	}
	if err := e.threads.Save(ctx, thread); err != nil {
		return fmt.Errorf("checkpoint thread %s: %w", thread.ID, err)
	}
	return nil
}

// confirmationPrompt renders the pending call for a human to approve.
func confirmationPrompt(call core.ToolCall) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The agent wants to run %q", call.Name)
	if len(call.Args) > 0 {
		args := map[string]interface{}{}
		if err := json.Unmarshal(call.Args, &args); err == nil && len(args) > 0 {
			pretty, _ := json.MarshalIndent(args, "", "  ")
			fmt.Fprintf(&b, " with arguments:\n%s", pretty)
		}
	}
	b.WriteString("\nApprove? [y/N]")
	return b.String()
}

// cancelledObservation is what the reasoner sees for a denied tool call.
func cancelledObservation(tool string) string {
	out, _ := json.Marshal(map[string]string{
		"status":  "cancelled",
		"tool":    tool,
		"message": "execution cancelled by user",
	})
	return string(out)
}
