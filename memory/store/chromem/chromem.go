// Package chromem implements the memory Store and knowledge Corpus on top of
// chromem-go, a pure Go embedded vector database.
package chromem

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/mnemoai/mnemo-go-sdk/memory"
)

// Store is a chromem-backed memory.Store.
//
// chromem handles embeddings and similarity search but does not enumerate
// documents, so the store keeps its own eviction index of
// (importance, created_at, generation) per record ID, guarded by a mutex.
// For a persistent DB the index covers records written by this process.
type Store struct {
	db       *chromem.DB
	col      *chromem.Collection
	embedder memory.Embedder

	mu    sync.Mutex
	index map[string]indexEntry
}

type indexEntry struct {
	importance int
	createdAt  time.Time
	generation int64
}

// Option configures the store.
type Option func(*options)

type options struct {
	path       string
	collection string
}

// WithPersistence stores the database on disk at path instead of in memory.
func WithPersistence(path string) Option {
	return func(o *options) { o.path = path }
}

// WithCollectionName overrides the default collection name.
func WithCollectionName(name string) Option {
	return func(o *options) { o.collection = name }
}

// New creates a chromem-backed store using the given embedder.
func New(embedder memory.Embedder, opts ...Option) (*Store, error) {
	o := &options{collection: "memory_db"}
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

	return &Store{
		db:       db,
		col:      col,
		embedder: embedder,
		index:    make(map[string]indexEntry),
	}, nil
}

// Write persists a record with its embedding.
func (s *Store) Write(ctx context.Context, content string, memType memory.Type, importance int, tags []string) (*memory.WriteResult, error) {
	if _, err := memory.ParseType(string(memType)); err != nil {
		return nil, err
	}
	if importance < 1 || importance > 5 {
		return nil, fmt.Errorf("importance must be in [1,5], got %d", importance)
	}

	embedding, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	id := memory.NewID()
	createdAt := time.Now()

	doc := chromem.Document{
		ID:        id,
		Content:   content,
		Embedding: embedding,
		Metadata: map[string]string{
			"memory_type": string(memType),
			"importance":  strconv.Itoa(importance),
			"tags":        strings.Join(tags, ","),
			"created_at":  createdAt.Format(time.RFC3339Nano),
		},
	}
	if err := s.col.AddDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("add document: %w", err)
	}

	s.mu.Lock()
	s.index[id] = indexEntry{
		importance: importance,
		createdAt:  createdAt,
		generation: generationOf(id),
	}
	s.mu.Unlock()

	log.Printf("[CHROMEM] Stored memory id=%s type=%s importance=%d", id, memType, importance)

	return &memory.WriteResult{
		Status:     "saved",
		MemoryID:   id,
		Content:    content,
		MemoryType: memType,
	}, nil
}

// Read returns up to topK records by descending similarity, restricted to
// one memory type unless filter is TypeAll.
func (s *Store) Read(ctx context.Context, query string, filter memory.Type, topK int) ([]memory.SearchResult, error) {
	if _, err := memory.ParseFilter(string(filter)); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var where map[string]string
	if filter != memory.TypeAll {
		where = map[string]string{"memory_type": string(filter)}
	}

	if count := s.col.Count(); topK > count {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	// chromem rejects nResults larger than the number of matching
	// documents; with a type filter that number is unknown up front, so
	// retry downward.
	var results []chromem.Result
	for n := topK; n >= 1; n-- {
		results, err = s.col.QueryEmbedding(ctx, embedding, n, where, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if n == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]memory.SearchResult, 0, len(results))
	for _, result := range results {
		record, err := recordFromResult(result)
		if err != nil {
			log.Printf("[CHROMEM] Skipping malformed record %s: %v", result.ID, err)
			continue
		}
		out = append(out, memory.SearchResult{Record: record, Similarity: result.Similarity})
	}
	return out, nil
}

// Cleanup deletes exactly size-maxCount records, smallest
// (importance, created_at, generation) keys first.
func (s *Store) Cleanup(ctx context.Context, maxCount int) (int, error) {
	if maxCount < 0 {
		return 0, fmt.Errorf("maxCount must be >= 0, got %d", maxCount)
	}

	s.mu.Lock()
	deficit := len(s.index) - maxCount
	if deficit <= 0 {
		s.mu.Unlock()
		return 0, nil
	}

	type keyed struct {
		id    string
		entry indexEntry
	}
	all := make([]keyed, 0, len(s.index))
	for id, entry := range s.index {
		all = append(all, keyed{id: id, entry: entry})
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i].entry, all[j].entry
		if a.importance != b.importance {
			return a.importance < b.importance
		}
		if !a.createdAt.Equal(b.createdAt) {
			return a.createdAt.Before(b.createdAt)
		}
		return a.generation < b.generation
	})

	victims := make([]string, deficit)
	for i := 0; i < deficit; i++ {
		victims[i] = all[i].id
	}
	s.mu.Unlock()

	if err := s.col.Delete(ctx, nil, nil, victims...); err != nil {
		return 0, fmt.Errorf("delete documents: %w", err)
	}

	s.mu.Lock()
	for _, id := range victims {
		delete(s.index, id)
	}
	s.mu.Unlock()

	log.Printf("[CHROMEM] Cleanup evicted %d record(s), bound=%d", deficit, maxCount)
	return deficit, nil
}

// Count returns the number of records in the store.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// Close releases resources. The in-memory DB has nothing to release.
func (s *Store) Close() error {
	return nil
}

var _ memory.Store = (*Store)(nil)

func recordFromResult(result chromem.Result) (memory.Record, error) {
	memType, err := memory.ParseType(result.Metadata["memory_type"])
	if err != nil {
		return memory.Record{}, err
	}
	importance, err := strconv.Atoi(result.Metadata["importance"])
	if err != nil {
		return memory.Record{}, fmt.Errorf("parse importance: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, result.Metadata["created_at"])
	if err != nil {
		return memory.Record{}, fmt.Errorf("parse created_at: %w", err)
	}

	var tags []string
	if raw := result.Metadata["tags"]; raw != "" {
		tags = strings.Split(raw, ",")
	}

	return memory.Record{
		ID:         result.ID,
		Content:    result.Content,
		Type:       memType,
		Importance: importance,
		Tags:       tags,
		CreatedAt:  createdAt,
		Embedding:  result.Embedding,
	}, nil
}

// generationOf extracts the numeric part of a mem_<n> ID for tie-breaking.
func generationOf(id string) int64 {
	n, _ := strconv.ParseInt(strings.TrimPrefix(id, "mem_"), 10, 64)
	return n
}

func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
