package llm

import (
	"encoding/json"
	"testing"

	"github.com/mnemoai/mnemo-go-sdk/core"
)

func TestConvertMessagesFoldsSystem(t *testing.T) {
	system, messages := convertMessages("base prompt", []core.Message{
		core.NewSystemMessage("extra context"),
		core.NewUserMessage("hello"),
	})

	if system != "base prompt\n\nextra context" {
		t.Errorf("system = %q", system)
	}
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
}

func TestConvertMessagesGroupsToolResults(t *testing.T) {
	history := []core.Message{
		core.NewUserMessage("run both"),
		core.NewAssistantToolCalls("", []core.ToolCall{
			{ID: "c1", Name: "alpha", Args: json.RawMessage(`{}`)},
			{ID: "c2", Name: "beta", Args: json.RawMessage(`{}`)},
		}),
		core.NewToolResultMessage("c1", `{"ok":true}`),
		core.NewToolResultMessage("c2", `{"ok":true}`),
		core.NewUserMessage("and then?"),
	}

	_, messages := convertMessages("", history)

	// user, assistant(tool_use x2), user(tool_result x2), user
	if len(messages) != 4 {
		t.Fatalf("got %d messages, want 4", len(messages))
	}

	// Both tool results must land in the single message following the
	// assistant turn.
	results := messages[2]
	if results.Role != "user" {
		t.Errorf("tool results role = %v", results.Role)
	}
	if len(results.Content) != 2 {
		t.Errorf("tool result message has %d blocks, want 2", len(results.Content))
	}
	for _, block := range results.Content {
		if block.OfToolResult == nil {
			t.Error("expected a tool_result block")
		}
	}
}

func TestConvertMessagesFlagsErrorObservations(t *testing.T) {
	history := []core.Message{
		core.NewUserMessage("q"),
		core.NewAssistantToolCalls("", []core.ToolCall{{ID: "c1", Name: "t", Args: json.RawMessage(`{}`)}}),
		core.NewToolResultMessage("c1", `{"error":"runtime_error","details":"boom"}`),
	}

	_, messages := convertMessages("", history)
	block := messages[2].Content[0]
	if block.OfToolResult == nil {
		t.Fatal("expected tool_result block")
	}
	if !block.OfToolResult.IsError.Value {
		t.Error("error envelope not flagged as is_error")
	}
}

func TestConvertTools(t *testing.T) {
	out := convertTools([]core.ToolDescriptor{{
		Name:        "get_time",
		Description: "clock",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"timezone": map[string]interface{}{"type": "string"},
			},
			"required": []string{"timezone"},
		},
	}})

	if len(out) != 1 || out[0].OfTool == nil {
		t.Fatalf("out = %+v", out)
	}
	tool := out[0].OfTool
	if tool.Name != "get_time" {
		t.Errorf("name = %q", tool.Name)
	}
	if len(tool.InputSchema.Required) != 1 || tool.InputSchema.Required[0] != "timezone" {
		t.Errorf("required = %v", tool.InputSchema.Required)
	}
	if tool.InputSchema.Properties == nil {
		t.Error("properties not carried over")
	}
}

func TestIsErrorObservation(t *testing.T) {
	tests := []struct {
		content string
		want    bool
	}{
		{`{"error":"validation_error","details":[]}`, true},
		{`{"error":"runtime_error","details":"x"}`, true},
		{`{"result":42}`, false},
		{`{"status":"cancelled","tool":"web_search"}`, false},
		{`plain text`, false},
	}
	for _, tt := range tests {
		if got := isErrorObservation(tt.content); got != tt.want {
			t.Errorf("isErrorObservation(%q) = %v, want %v", tt.content, got, tt.want)
		}
	}
}
