// Package llm adapts the Anthropic Messages API to the reasoning and
// judging capabilities the orchestrator and reflection engine consume.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/mnemoai/mnemo-go-sdk/core"
	"github.com/mnemoai/mnemo-go-sdk/reflection"
)

const (
	defaultModel     = anthropic.ModelClaudeSonnet4_0
	defaultMaxTokens = int64(1024)
)

// Reasoner implements core.Reasoner on the Anthropic Messages API.
type Reasoner struct {
	client        *anthropic.Client
	model         anthropic.Model
	maxTokens     int64
	deterministic bool
}

// ReasonerOption configures a Reasoner.
type ReasonerOption func(*Reasoner)

// WithModel selects the model.
func WithModel(model anthropic.Model) ReasonerOption {
	return func(r *Reasoner) { r.model = model }
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int64) ReasonerOption {
	return func(r *Reasoner) { r.maxTokens = n }
}

// Deterministic pins temperature to zero so runs reproduce.
func Deterministic() ReasonerOption {
	return func(r *Reasoner) { r.deterministic = true }
}

// NewReasoner creates a Reasoner over an Anthropic client.
func NewReasoner(client *anthropic.Client, opts ...ReasonerOption) *Reasoner {
	r := &Reasoner{
		client:    client,
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Complete sends the thread history plus tool catalogue and returns the
// model's answer or requested tool calls.
func (r *Reasoner) Complete(ctx context.Context, req *core.CompletionRequest) (*core.Completion, error) {
	system, messages := convertMessages(req.System, req.Messages)

	params := anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: r.maxTokens,
		Messages:  messages,
		Tools:     convertTools(req.Tools),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if r.deterministic {
		params.Temperature = anthropic.Float(0)
	}

	resp, err := r.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("messages api: %w", err)
	}

	completion := &core.Completion{}
	var text strings.Builder
	for _, block := range resp.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(v.Text)
		case anthropic.ToolUseBlock:
			completion.ToolCalls = append(completion.ToolCalls, core.ToolCall{
				ID:   v.ID,
				Name: v.Name,
				Args: json.RawMessage(v.JSON.Input.Raw()),
			})
		}
	}
	completion.Content = text.String()
	return completion, nil
}

// Judge implements reflection.Judge on the Anthropic Messages API. It always
// runs at temperature zero: memory curation should not be creative.
type Judge struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewJudge creates a Judge over an Anthropic client.
func NewJudge(client *anthropic.Client, opts ...ReasonerOption) *Judge {
	// Reuse the reasoner options for model/token tuning.
	r := &Reasoner{model: defaultModel, maxTokens: defaultMaxTokens}
	for _, opt := range opts {
		opt(r)
	}
	return &Judge{client: client, model: r.model, maxTokens: r.maxTokens}
}

// Judge returns the model's raw verdict for a question/answer pair.
func (j *Judge) Judge(ctx context.Context, question, answer string) (string, error) {
	prompt := fmt.Sprintf("Question: %s\n\nFinal answer: %s", question, answer)

	resp, err := j.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       j.model,
		MaxTokens:   j.maxTokens,
		Temperature: anthropic.Float(0),
		System:      []anthropic.TextBlockParam{{Text: reflection.JudgePrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("messages api: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if v, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(v.Text)
		}
	}
	return text.String(), nil
}

// convertMessages maps thread history to API params. System messages fold
// into the system prompt; consecutive tool results collapse into one user
// message, since the API requires all of a turn's tool_result blocks in the
// message that follows the tool_use turn.
func convertMessages(system string, history []core.Message) (string, []anthropic.MessageParam) {
	systemParts := []string{}
	if system != "" {
		systemParts = append(systemParts, system)
	}

	var out []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion
	flushResults := func() {
		if len(pendingResults) > 0 {
			out = append(out, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, msg := range history {
		switch msg.Role {
		case core.RoleSystem:
			flushResults()
			systemParts = append(systemParts, msg.Content)

		case core.RoleUser:
			flushResults()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))

		case core.RoleAssistant:
			flushResults()
			blocks := []anthropic.ContentBlockParamUnion{}
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    call.ID,
						Name:  call.Name,
						Input: call.Args,
					},
				})
			}
			if len(blocks) == 0 {
				blocks = append(blocks, anthropic.NewTextBlock(""))
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))

		case core.RoleTool:
			pendingResults = append(pendingResults,
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, isErrorObservation(msg.Content)))
		}
	}
	flushResults()

	return strings.Join(systemParts, "\n\n"), out
}

func convertTools(descriptors []core.ToolDescriptor) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(descriptors))
	for _, d := range descriptors {
		schema := anthropic.ToolInputSchemaParam{}
		if props, ok := d.InputSchema["properties"]; ok {
			schema.Properties = props
		}
		if required, ok := d.InputSchema["required"].([]string); ok {
			schema.Required = required
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: schema,
		}})
	}
	return out
}

// isErrorObservation probes the dispatch envelope so failed tool runs are
// flagged as errors to the model.
func isErrorObservation(content string) bool {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return false
	}
	return envelope.Error != ""
}

var _ core.Reasoner = (*Reasoner)(nil)
var _ reflection.Judge = (*Judge)(nil)
