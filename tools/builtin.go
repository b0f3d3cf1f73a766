package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mnemoai/mnemo-go-sdk/memory"
)

// Built-in tool set. Each constructor returns a Spec; DefaultSpecs wires
// them all for registration. Risk flags mark web_search and write_memory as
// requiring human confirmation.

// GetTimeSpec returns the current time in an IANA timezone.
func GetTimeSpec() *Spec {
	return &Spec{
		Name:        "get_time",
		Description: "Get the current time in a specified timezone.",
		InputSchema: ObjectSchema(map[string]interface{}{
			"timezone": StringProperty("IANA timezone name, e.g. 'Asia/Seoul'"),
		}, "timezone"),
		Handler: func(_ context.Context, args json.RawMessage) (interface{}, error) {
			var input struct {
				Timezone string `json:"timezone"`
			}
			if err := json.Unmarshal(args, &input); err != nil {
				return nil, err
			}

			loc, err := time.LoadLocation(input.Timezone)
			if err != nil {
				return nil, fmt.Errorf("invalid timezone: %s", input.Timezone)
			}
			now := time.Now().In(loc)
			return map[string]interface{}{
				"timezone": input.Timezone,
				"iso":      now.Format(time.RFC3339),
				"date":     now.Format("2006-01-02"),
				"time":     now.Format("15:04:05"),
			}, nil
		},
	}
}

// CalculateSpec performs basic arithmetic between two numbers.
func CalculateSpec() *Spec {
	return &Spec{
		Name:        "calculate",
		Description: "Perform basic arithmetic operations between two numbers.",
		InputSchema: ObjectSchema(map[string]interface{}{
			"num1": NumberProperty("The first number"),
			"num2": NumberProperty("The second number"),
			"op":   StringEnumProperty("The operation to perform", "add", "subtract", "multiply", "divide"),
		}, "num1", "num2", "op"),
		Handler: func(_ context.Context, args json.RawMessage) (interface{}, error) {
			var input struct {
				Num1 float64 `json:"num1"`
				Num2 float64 `json:"num2"`
				Op   string  `json:"op"`
			}
			if err := json.Unmarshal(args, &input); err != nil {
				return nil, err
			}

			var result float64
			switch input.Op {
			case "add":
				result = input.Num1 + input.Num2
			case "subtract":
				result = input.Num1 - input.Num2
			case "multiply":
				result = input.Num1 * input.Num2
			case "divide":
				if input.Num2 == 0 {
					return nil, fmt.Errorf("division by zero is not allowed")
				}
				result = input.Num1 / input.Num2
			default:
				return nil, fmt.Errorf("invalid operation: %s", input.Op)
			}
			return map[string]interface{}{"result": result}, nil
		},
	}
}

// WebSearchConfig configures the web_search tool against Google Custom
// Search. A nil HTTPClient uses a 10 second default.
type WebSearchConfig struct {
	APIKey     string
	CX         string
	BaseURL    string
	HTTPClient *http.Client
}

// WebSearchSpec performs a web search. Risky: it leaves the process, so the
// orchestrator asks for confirmation first.
func WebSearchSpec(cfg WebSearchConfig) *Spec {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.googleapis.com/customsearch/v1"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Spec{
		Name:                 "web_search",
		Description:          "Perform a web search and return the top results.",
		RequiresConfirmation: true,
		InputSchema: ObjectSchema(map[string]interface{}{
			"query":       StringProperty("The search query string"),
			"num_results": IntegerRangeProperty("Number of search results to return (default: 5)", 1, 10),
		}, "query"),
		Handler: func(ctx context.Context, args json.RawMessage) (interface{}, error) {
			var input struct {
				Query      string `json:"query"`
				NumResults int    `json:"num_results"`
			}
			if err := json.Unmarshal(args, &input); err != nil {
				return nil, err
			}
			if input.Query == "" {
				return nil, fmt.Errorf("query must not be empty")
			}
			if input.NumResults == 0 {
				input.NumResults = 5
			}
			if cfg.APIKey == "" || cfg.CX == "" {
				return nil, fmt.Errorf("search API key and CX must be configured")
			}

			params := url.Values{}
			params.Set("key", cfg.APIKey)
			params.Set("cx", cfg.CX)
			params.Set("q", input.Query)
			params.Set("num", fmt.Sprintf("%d", input.NumResults))

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"?"+params.Encode(), nil)
			if err != nil {
				return nil, err
			}
			resp, err := cfg.HTTPClient.Do(req)
			if err != nil {
				return nil, fmt.Errorf("search request: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("search request failed: %s", resp.Status)
			}

			var payload struct {
				Items []struct {
					Title   string `json:"title"`
					Link    string `json:"link"`
					Snippet string `json:"snippet"`
				} `json:"items"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return nil, fmt.Errorf("decode search response: %w", err)
			}

			results := make([]map[string]string, 0, len(payload.Items))
			for _, item := range payload.Items {
				results = append(results, map[string]string{
					"title":   item.Title,
					"link":    item.Link,
					"snippet": item.Snippet,
				})
			}
			return map[string]interface{}{"results": results, "source": "google_cse"}, nil
		},
	}
}

// RAGSearchSpec searches the knowledge corpus.
func RAGSearchSpec(corpus memory.Corpus) *Spec {
	return &Spec{
		Name:        "rag_search",
		Description: "Search documents in the knowledge corpus. Use for questions about papers, research, or stored documents.",
		InputSchema: ObjectSchema(map[string]interface{}{
			"query":     StringProperty("The search query string"),
			"n_results": IntegerRangeProperty("Number of search results to return (default: 5)", 1, 20),
		}, "query"),
		Handler: func(ctx context.Context, args json.RawMessage) (interface{}, error) {
			var input struct {
				Query    string `json:"query"`
				NResults int    `json:"n_results"`
			}
			if err := json.Unmarshal(args, &input); err != nil {
				return nil, err
			}
			if input.NResults == 0 {
				input.NResults = 5
			}

			hits, err := corpus.Search(ctx, input.Query, input.NResults)
			if err != nil {
				return nil, err
			}
			if hits == nil {
				hits = []memory.CorpusHit{}
			}
			return map[string]interface{}{"results": hits, "source": "knowledge_corpus"}, nil
		},
	}
}

// ReadMemorySpec recalls long-term memories by semantic search.
func ReadMemorySpec(store memory.Store) *Spec {
	return &Spec{
		Name:        "read_memory",
		Description: "Recall past conversations or user information from long-term memory. Use when the user refers to earlier sessions, preferences, or ongoing projects.",
		InputSchema: ObjectSchema(map[string]interface{}{
			"query":       StringProperty("Keywords or a question to search for"),
			"memory_type": StringEnumProperty("Memory type filter", "all", "profile", "episodic", "knowledge"),
			"top_k":       IntegerRangeProperty("Number of results to return (default: 5)", 1, 10),
		}, "query"),
		Handler: func(ctx context.Context, args json.RawMessage) (interface{}, error) {
			var input struct {
				Query      string `json:"query"`
				MemoryType string `json:"memory_type"`
				TopK       int    `json:"top_k"`
			}
			if err := json.Unmarshal(args, &input); err != nil {
				return nil, err
			}
			if input.MemoryType == "" {
				input.MemoryType = string(memory.TypeAll)
			}
			if input.TopK == 0 {
				input.TopK = 5
			}

			results, err := store.Read(ctx, input.Query, memory.Type(input.MemoryType), input.TopK)
			if err != nil {
				return nil, err
			}

			out := make([]map[string]interface{}, 0, len(results))
			for _, r := range results {
				tags := r.Tags
				if tags == nil {
					tags = []string{}
				}
				out = append(out, map[string]interface{}{
					"content":     r.Content,
					"memory_type": r.Type,
					"importance":  r.Importance,
					"tags":        tags,
					"created_at":  r.CreatedAt.Format(time.RFC3339),
				})
			}
			return map[string]interface{}{"results": out, "count": len(out)}, nil
		},
	}
}

// WriteMemorySpec stores information in long-term memory. Risky: writes are
// durable, so the orchestrator asks for confirmation first.
func WriteMemorySpec(store memory.Store) *Spec {
	return &Spec{
		Name:                 "write_memory",
		Description:          "Store important information in long-term memory: user preferences, long-term goals, project context.",
		RequiresConfirmation: true,
		InputSchema: ObjectSchema(map[string]interface{}{
			"content":     StringProperty("The content to store"),
			"memory_type": StringEnumProperty("Memory type", "profile", "episodic", "knowledge"),
			"importance":  IntegerRangeProperty("Importance from 1 (low) to 5 (high), default 3", 1, 5),
			"tags":        ArrayProperty("Tag list", StringProperty("tag")),
		}, "content"),
		Handler: func(ctx context.Context, args json.RawMessage) (interface{}, error) {
			var input struct {
				Content    string   `json:"content"`
				MemoryType string   `json:"memory_type"`
				Importance int      `json:"importance"`
				Tags       []string `json:"tags"`
			}
			if err := json.Unmarshal(args, &input); err != nil {
				return nil, err
			}
			if input.MemoryType == "" {
				input.MemoryType = string(memory.TypeEpisodic)
			}
			if input.Importance == 0 {
				input.Importance = 3
			}

			return store.Write(ctx, input.Content, memory.Type(input.MemoryType), input.Importance, input.Tags)
		},
	}
}

// DefaultSpecs returns the full built-in tool set.
func DefaultSpecs(store memory.Store, corpus memory.Corpus, search WebSearchConfig) []*Spec {
	return []*Spec{
		GetTimeSpec(),
		CalculateSpec(),
		WebSearchSpec(search),
		RAGSearchSpec(corpus),
		ReadMemorySpec(store),
		WriteMemorySpec(store),
	}
}

// RegisterDefaults registers the full built-in tool set on reg.
func RegisterDefaults(reg *Registry, store memory.Store, corpus memory.Corpus, search WebSearchConfig) error {
	for _, spec := range DefaultSpecs(store, corpus, search) {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}
