package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/mnemoai/mnemo-go-sdk/core"
)

var (
	// ErrDuplicateTool is returned when registering a name twice.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrUnknownTool is returned by Call for an unregistered name. The agent
	// only ever sees the catalogue, so an unknown name is registry misuse,
	// not a recoverable tool failure.
	ErrUnknownTool = errors.New("unknown tool")
)

// Handler executes a tool against already-validated arguments and returns a
// structured result. A returned error is reported to the reasoning loop as a
// runtime_error observation, never propagated.
type Handler func(ctx context.Context, args json.RawMessage) (interface{}, error)

// Spec declares one named capability: its catalogue entry, its input schema,
// and whether execution requires human confirmation.
type Spec struct {
	Name        string
	Description string
	InputSchema map[string]interface{}

	// RequiresConfirmation marks the tool as risky: the orchestrator
	// suspends and asks the human before executing it.
	RequiresConfirmation bool

	Handler Handler
}

// CatalogueEntry is the presentation shape handed to the reasoning capability.
type CatalogueEntry struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// Registry maps tool names to specs and owns the validate/invoke/error
// contract for dispatch. It is safe for concurrent use; registration is
// expected to happen once at process start.
type Registry struct {
	mu    sync.RWMutex
	order []string
	specs map[string]*Spec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*Spec)}
}

// Register adds a tool spec. Duplicate names fail fast.
func (r *Registry) Register(spec *Spec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, spec.Name)
	}
	r.specs[spec.Name] = spec
	r.order = append(r.order, spec.Name)
	return nil
}

// Get returns the spec for name, if registered.
func (r *Registry) Get(name string) (*Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	return spec, ok
}

// Catalogue returns all registered tools in registration order.
func (r *Registry) Catalogue() []CatalogueEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]CatalogueEntry, 0, len(r.order))
	for _, name := range r.order {
		spec := r.specs[name]
		entries = append(entries, CatalogueEntry{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: spec.InputSchema,
		})
	}
	return entries
}

// Descriptors returns the catalogue in the shape the reasoning capability
// consumes.
func (r *Registry) Descriptors() []core.ToolDescriptor {
	catalogue := r.Catalogue()
	out := make([]core.ToolDescriptor, len(catalogue))
	for i, entry := range catalogue {
		out[i] = core.ToolDescriptor{
			Name:        entry.Name,
			Description: entry.Description,
			InputSchema: entry.InputSchema,
		}
	}
	return out
}

// Call dispatches a tool invocation.
//
// Unknown names return ErrUnknownTool. Everything else is reported inside
// the returned observation, never as an error: schema violations become a
// {"error": "validation_error", "details": [...]} envelope, handler failures
// become {"error": "runtime_error", "details": "..."}, and success returns
// the handler's result serialized unchanged.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	spec, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	var decoded map[string]interface{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &decoded); err != nil {
			return validationEnvelope([]ValidationIssue{{
				Field:   "",
				Message: fmt.Sprintf("arguments are not a JSON object: %v", err),
			}}), nil
		}
	}
	if decoded == nil {
		decoded = map[string]interface{}{}
	}

	if issues := ValidateArgs(spec.InputSchema, decoded); len(issues) > 0 {
		log.Printf("[TOOLS] %s rejected: %d validation issue(s)", name, len(issues))
		return validationEnvelope(issues), nil
	}

	result, err := spec.Handler(ctx, args)
	if err != nil {
		log.Printf("[TOOLS] %s failed: %v", name, err)
		return runtimeEnvelope(err.Error()), nil
	}

	out, err := json.Marshal(result)
	if err != nil {
		return runtimeEnvelope(fmt.Sprintf("serialize result: %v", err)), nil
	}
	return out, nil
}

func validationEnvelope(issues []ValidationIssue) json.RawMessage {
	out, _ := json.Marshal(map[string]interface{}{
		"error":   "validation_error",
		"details": issues,
	})
	return out
}

func runtimeEnvelope(message string) json.RawMessage {
	out, _ := json.Marshal(map[string]interface{}{
		"error":   "runtime_error",
		"details": message,
	})
	return out
}
