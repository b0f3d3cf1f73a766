// Package reflection decides, after each completed run, whether anything
// from the exchange is worth keeping in long-term memory. A separate judge
// model reads the question/answer pair and emits a structured verdict; the
// engine persists approved memories and occasionally triggers store cleanup.
package reflection

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mnemoai/mnemo-go-sdk/memory"
)

// JudgePrompt instructs the judge model. It must answer with a single JSON
// object and nothing else; parse failures are treated as "do not store".
const JudgePrompt = `You are a memory curator for a conversational agent.
Given the user's question and the agent's final answer, decide whether any
information should be stored in long-term memory.

Store information that will matter in future sessions:
- profile: stable facts about the user (name, preferences, language, role)
- episodic: notable events or decisions from this conversation
- knowledge: reusable domain facts the agent learned

Do NOT store small talk, one-off lookups, or anything already obvious.

Respond with a single JSON object and nothing else:
{"should_write": true|false, "memory_type": "profile"|"episodic"|"knowledge", "importance": 1-5, "content": "one concise sentence", "tags": ["tag", ...]}

If nothing is worth storing, respond: {"should_write": false}`

// Decision is the judge's verdict for one run.
type Decision struct {
	ShouldWrite bool     `json:"should_write"`
	MemoryType  string   `json:"memory_type"`
	Importance  int      `json:"importance"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
}

// Judge produces a raw verdict for a question/answer pair. Implementations
// return the model's text, which should be a single JSON Decision.
type Judge interface {
	Judge(ctx context.Context, question, answer string) (string, error)
}

// Config tunes the engine.
type Config struct {
	// CleanupProbability is the chance a run triggers store cleanup.
	CleanupProbability float64

	// CleanupMaxCount is the retention cap passed to the store on cleanup.
	CleanupMaxCount int
}

// DefaultConfig runs cleanup on roughly one in thirty runs, capping the
// store at 500 records.
func DefaultConfig() Config {
	return Config{
		CleanupProbability: 1.0 / 30.0,
		CleanupMaxCount:    500,
	}
}

// Engine judges completed runs and writes approved memories.
type Engine struct {
	judge  Judge
	store  memory.Store
	config Config

	mu  sync.Mutex
	rng *rand.Rand

	skipped atomic.Uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig overrides the default cleanup tuning.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.config = cfg }
}

// WithRandSource seeds the cleanup dice, for deterministic tests.
func WithRandSource(src rand.Source) Option {
	return func(e *Engine) { e.rng = rand.New(src) }
}

// New creates a reflection engine.
func New(judge Judge, store memory.Store, opts ...Option) *Engine {
	e := &Engine{
		judge:  judge,
		store:  store,
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return e
}

// Observe judges one completed run and persists the memory if approved.
// A malformed verdict is skipped, not fatal: a flaky judge must never fail
// the run that produced a perfectly good answer. Judge transport errors and
// store write errors do propagate.
func (e *Engine) Observe(ctx context.Context, question, answer string) error {
	raw, err := e.judge.Judge(ctx, question, answer)
	if err != nil {
		return fmt.Errorf("judge: %w", err)
	}

	decision, err := parseDecision(raw)
	if err != nil {
		e.skipped.Add(1)
		log.Printf("[REFLECT] unparseable verdict, skipping: %v", err)
		return nil
	}

	if decision.ShouldWrite {
		result, err := e.store.Write(ctx, decision.Content, memory.Type(decision.MemoryType), decision.Importance, decision.Tags)
		if err != nil {
			return fmt.Errorf("write memory: %w", err)
		}
		log.Printf("[REFLECT] stored %s (%s, importance %d)", result.MemoryID, result.MemoryType, decision.Importance)
	}

	e.maybeCleanup(ctx)
	return nil
}

// SkipCount reports how many verdicts were discarded as unparseable.
func (e *Engine) SkipCount() uint64 {
	return e.skipped.Load()
}

func (e *Engine) maybeCleanup(ctx context.Context) {
	e.mu.Lock()
	roll := e.rng.Float64()
	e.mu.Unlock()

	if roll >= e.config.CleanupProbability {
		return
	}

	deleted, err := e.store.Cleanup(ctx, e.config.CleanupMaxCount)
	if err != nil {
		log.Printf("[REFLECT] cleanup failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[REFLECT] cleanup evicted %d memories (cap %d)", deleted, e.config.CleanupMaxCount)
	}
}

// parseDecision extracts a Decision from the judge's raw text, tolerating
// markdown code fences around the JSON.
func parseDecision(raw string) (*Decision, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var decision Decision
	if err := json.Unmarshal([]byte(text), &decision); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	if !decision.ShouldWrite {
		return &decision, nil
	}

	if decision.Content == "" {
		return nil, fmt.Errorf("verdict approved write with empty content")
	}
	if _, err := memory.ParseType(decision.MemoryType); err != nil {
		return nil, err
	}
	if decision.Importance < 1 || decision.Importance > 5 {
		return nil, fmt.Errorf("importance %d out of range [1, 5]", decision.Importance)
	}
	return &decision, nil
}
