package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func echoSpec(name string) *Spec {
	return &Spec{
		Name:        name,
		Description: "echoes its message",
		InputSchema: ObjectSchema(map[string]interface{}{
			"message": StringProperty("text to echo"),
		}, "message"),
		Handler: func(_ context.Context, args json.RawMessage) (interface{}, error) {
			var input struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(args, &input); err != nil {
				return nil, err
			}
			return map[string]string{"echo": input.Message}, nil
		},
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(echoSpec("echo")); err != nil {
		t.Fatalf("first register: %v", err)
	}

	err := reg.Register(echoSpec("echo"))
	if !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestRegistryCatalogueOrder(t *testing.T) {
	reg := NewRegistry()
	names := []string{"zeta", "alpha", "mid"}
	for _, name := range names {
		if err := reg.Register(echoSpec(name)); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	catalogue := reg.Catalogue()
	if len(catalogue) != len(names) {
		t.Fatalf("catalogue has %d entries, want %d", len(catalogue), len(names))
	}
	for i, entry := range catalogue {
		if entry.Name != names[i] {
			t.Errorf("catalogue[%d] = %s, want %s (registration order)", i, entry.Name, names[i])
		}
	}
}

func TestCallUnknownTool(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Call(context.Background(), "nope", nil)
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestCallSuccess(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(echoSpec("echo")); err != nil {
		t.Fatal(err)
	}

	out, err := reg.Call(context.Background(), "echo", json.RawMessage(`{"message":"hi"}`))
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	var result map[string]string
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("decode observation: %v", err)
	}
	if result["echo"] != "hi" {
		t.Errorf("echo = %q, want %q", result["echo"], "hi")
	}
}

func TestCallValidationEnvelope(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(echoSpec("echo")); err != nil {
		t.Fatal(err)
	}

	// Missing required field: must come back as an observation, not an error.
	out, err := reg.Call(context.Background(), "echo", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("validation failure must not be an error: %v", err)
	}

	var envelope struct {
		Error   string            `json:"error"`
		Details []ValidationIssue `json:"details"`
	}
	if err := json.Unmarshal(out, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Error != "validation_error" {
		t.Errorf("error = %q, want validation_error", envelope.Error)
	}
	if len(envelope.Details) == 0 {
		t.Error("expected at least one validation issue")
	}
}

func TestCallMalformedArgsEnvelope(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(echoSpec("echo")); err != nil {
		t.Fatal(err)
	}

	out, err := reg.Call(context.Background(), "echo", json.RawMessage(`not json`))
	if err != nil {
		t.Fatalf("malformed args must not be an error: %v", err)
	}
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(out, &envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.Error != "validation_error" {
		t.Errorf("error = %q, want validation_error", envelope.Error)
	}
}

func TestCallRuntimeEnvelope(t *testing.T) {
	reg := NewRegistry()
	spec := echoSpec("boom")
	spec.Handler = func(context.Context, json.RawMessage) (interface{}, error) {
		return nil, fmt.Errorf("backend unavailable")
	}
	if err := reg.Register(spec); err != nil {
		t.Fatal(err)
	}

	out, err := reg.Call(context.Background(), "boom", json.RawMessage(`{"message":"x"}`))
	if err != nil {
		t.Fatalf("runtime failure must not be an error: %v", err)
	}

	var envelope struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(out, &envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.Error != "runtime_error" {
		t.Errorf("error = %q, want runtime_error", envelope.Error)
	}
	if envelope.Details != "backend unavailable" {
		t.Errorf("details = %q", envelope.Details)
	}
}

func TestDescriptorsMatchCatalogue(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(echoSpec("echo")); err != nil {
		t.Fatal(err)
	}

	descriptors := reg.Descriptors()
	if len(descriptors) != 1 {
		t.Fatalf("got %d descriptors", len(descriptors))
	}
	if descriptors[0].Name != "echo" || descriptors[0].InputSchema == nil {
		t.Errorf("descriptor not populated: %+v", descriptors[0])
	}
}
