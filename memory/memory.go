package memory

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Type classifies a long-term memory record.
type Type string

const (
	TypeProfile   Type = "profile"
	TypeEpisodic  Type = "episodic"
	TypeKnowledge Type = "knowledge"

	// TypeAll is valid only as a read filter, never on a record.
	TypeAll Type = "all"
)

// ErrInvalidMemoryType is returned for a memory type outside the known set.
// This is a programmer error, not a recoverable tool failure.
var ErrInvalidMemoryType = errors.New("invalid memory type")

// ParseType validates a record memory type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeProfile, TypeEpisodic, TypeKnowledge:
		return Type(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMemoryType, s)
}

// ParseFilter validates a read filter, which additionally admits "all".
func ParseFilter(s string) (Type, error) {
	if Type(s) == TypeAll {
		return TypeAll, nil
	}
	return ParseType(s)
}

// Record is one persisted long-term memory. IDs are globally unique and
// comparable in generation order, which makes eviction tie-breaking
// deterministic.
type Record struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Type       Type      `json:"memory_type"`
	Importance int       `json:"importance"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`

	// Embedding is owned by the store and opaque to callers.
	Embedding []float32 `json:"-"`
}

// WriteResult confirms a successful write.
type WriteResult struct {
	Status     string `json:"status"`
	MemoryID   string `json:"memory_id"`
	Content    string `json:"content"`
	MemoryType Type   `json:"memory_type"`
}

// SearchResult is a record annotated with its query similarity.
type SearchResult struct {
	Record
	Similarity float32 `json:"similarity"`
}

// Store is the long-term memory store: embedding-indexed writes, semantic
// reads, and bounded eviction.
//
// Concurrent use across threads is safe as long as the backing store keeps
// add/delete atomic per record ID; implementations in this module guard
// their own index with a mutex.
type Store interface {
	// Write persists content with metadata, computing its embedding.
	// Importance must be in [1,5].
	Write(ctx context.Context, content string, memType Type, importance int, tags []string) (*WriteResult, error)

	// Read embeds the query and returns up to topK records by descending
	// similarity. Filter restricts results to one memory type unless it is
	// TypeAll. An empty result is normal, not an error.
	Read(ctx context.Context, query string, filter Type, topK int) ([]SearchResult, error)

	// Cleanup evicts records until at most maxCount remain, deleting
	// exactly the deficit with the smallest (importance, created_at, id)
	// keys. Re-invoking immediately afterward is a no-op. Returns the
	// number of records deleted.
	Cleanup(ctx context.Context, maxCount int) (int, error)

	// Count returns the current number of records.
	Count() int

	// Close releases resources.
	Close() error
}

// Embedder converts text to vector embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Document is an entry in a knowledge corpus.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// CorpusHit is one ranked knowledge-corpus search result.
type CorpusHit struct {
	Rank     int               `json:"rank"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    float32           `json:"score"`
}

// Corpus is a read-mostly document collection searched by the rag_search
// tool. It is separate from the memory Store: the corpus holds reference
// material, the store holds what the agent learned about the user.
type Corpus interface {
	Add(ctx context.Context, docs ...Document) error
	Search(ctx context.Context, query string, n int) ([]CorpusHit, error)
}
