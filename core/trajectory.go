package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Trace records one tool invocation and its observation within a run.
type Trace struct {
	Tool        string
	Args        json.RawMessage
	Observation string
}

// Trajectory is the ephemeral record of a completed run: the question, every
// tool step taken, and the final answer. It is never persisted; it exists
// for logging and tests.
type Trajectory struct {
	Question    string
	Traces      []Trace
	FinalAnswer string
}

// AddTrace appends a tool step to the trajectory.
func (t *Trajectory) AddTrace(tool string, args json.RawMessage, observation string) {
	t.Traces = append(t.Traces, Trace{Tool: tool, Args: args, Observation: observation})
}

// String renders a compact single-line summary for logs.
func (t *Trajectory) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "q=%q steps=%d", truncate(t.Question, 40), len(t.Traces))
	for _, tr := range t.Traces {
		fmt.Fprintf(&b, " %s", tr.Tool)
	}
	if t.FinalAnswer != "" {
		fmt.Fprintf(&b, " answer=%q", truncate(t.FinalAnswer, 40))
	}
	return b.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
