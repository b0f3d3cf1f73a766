// Package llmtest provides scripted reasoner and judge doubles for tests:
// each call pops the next canned response, so orchestrator behavior can be
// exercised without a model.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/mnemoai/mnemo-go-sdk/core"
)

// Scripted is a core.Reasoner that replays a fixed list of completions.
type Scripted struct {
	mu       sync.Mutex
	script   []*core.Completion
	next     int
	Requests []*core.CompletionRequest
}

// NewScripted creates a reasoner that returns the given completions in order.
func NewScripted(script ...*core.Completion) *Scripted {
	return &Scripted{script: script}
}

// Answer is shorthand for a plain-text terminal completion.
func Answer(text string) *core.Completion {
	return &core.Completion{Content: text}
}

// Calls is shorthand for a completion requesting tool calls.
func Calls(calls ...core.ToolCall) *core.Completion {
	return &core.Completion{ToolCalls: calls}
}

// Complete pops the next scripted completion and records the request.
func (s *Scripted) Complete(_ context.Context, req *core.CompletionRequest) (*core.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Requests = append(s.Requests, req)
	if s.next >= len(s.script) {
		return nil, fmt.Errorf("script exhausted after %d completions", len(s.script))
	}
	completion := s.script[s.next]
	s.next++
	return completion, nil
}

// CallCount reports how many completions were consumed.
func (s *Scripted) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// ScriptedJudge is a reflection.Judge replaying fixed verdicts.
type ScriptedJudge struct {
	mu       sync.Mutex
	verdicts []string
	next     int
	Pairs    [][2]string
}

// NewScriptedJudge creates a judge that returns the given raw verdicts in
// order.
func NewScriptedJudge(verdicts ...string) *ScriptedJudge {
	return &ScriptedJudge{verdicts: verdicts}
}

// Judge pops the next scripted verdict and records the pair it judged.
func (j *ScriptedJudge) Judge(_ context.Context, question, answer string) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.Pairs = append(j.Pairs, [2]string{question, answer})
	if j.next >= len(j.verdicts) {
		return "", fmt.Errorf("judge script exhausted after %d verdicts", len(j.verdicts))
	}
	verdict := j.verdicts[j.next]
	j.next++
	return verdict, nil
}

var _ core.Reasoner = (*Scripted)(nil)
