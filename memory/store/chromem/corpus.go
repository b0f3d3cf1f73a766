package chromem

import (
	"context"
	"fmt"
	"log"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	"github.com/google/uuid"

	"github.com/mnemoai/mnemo-go-sdk/memory"
)

// Corpus is a chromem-backed knowledge collection for the rag_search tool.
// It shares nothing with Store: corpus documents are reference material, not
// agent memories, and are never evicted.
type Corpus struct {
	col      *chromem.Collection
	embedder memory.Embedder
}

// NewCorpus creates a knowledge corpus with its own collection.
func NewCorpus(embedder memory.Embedder, opts ...Option) (*Corpus, error) {
	o := &options{collection: "knowledge_db"}
	for _, opt := range opts {
		opt(o)
	}

	var db *chromem.DB
	var err error
	if o.path != "" {
		db, err = chromem.NewPersistentDB(o.path, false)
		if err != nil {
			return nil, fmt.Errorf("open persistent db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	col, err := db.GetOrCreateCollection(o.collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Corpus{col: col, embedder: embedder}, nil
}

// Add embeds and stores documents. Documents without an ID get one assigned.
func (c *Corpus) Add(ctx context.Context, docs ...memory.Document) error {
	for _, doc := range docs {
		embedding, err := c.embedder.Embed(ctx, doc.Content)
		if err != nil {
			return fmt.Errorf("embed document: %w", err)
		}

		id := doc.ID
		if id == "" {
			id = uuid.New().String()
		}

		if err := c.col.AddDocument(ctx, chromem.Document{
			ID:        id,
			Content:   doc.Content,
			Embedding: embedding,
			Metadata:  doc.Metadata,
		}); err != nil {
			return fmt.Errorf("add document %s: %w", id, err)
		}
	}

	log.Printf("[CHROMEM] Corpus now holds %d document(s)", c.col.Count())
	return nil
}

// Search returns up to n documents ranked by descending similarity.
func (c *Corpus) Search(ctx context.Context, query string, n int) ([]memory.CorpusHit, error) {
	if n <= 0 {
		return nil, nil
	}

	embedding, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if count := c.col.Count(); n > count {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	var results []chromem.Result
	for limit := n; limit >= 1; limit-- {
		results, err = c.col.QueryEmbedding(ctx, embedding, limit, nil, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if limit == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	hits := make([]memory.CorpusHit, 0, len(results))
	for i, result := range results {
		metadata := result.Metadata
		if metadata == nil {
			metadata = map[string]string{}
		}
		hits = append(hits, memory.CorpusHit{
			Rank:     i + 1,
			Content:  strings.TrimSpace(result.Content),
			Metadata: metadata,
			Score:    result.Similarity,
		})
	}
	return hits, nil
}

var _ memory.Corpus = (*Corpus)(nil)
