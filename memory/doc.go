// Package memory defines the long-term memory model: embedding-indexed
// records with write, semantic read, and bounded eviction.
//
// Architecture:
//   - Store: vector storage backend (chromem-go for the embedded store)
//   - Embedder: text-to-vector conversion (mock for tests, OpenAI-compatible
//     API or local ONNX model for real runs, ristretto cache decorator)
//   - Corpus: separate knowledge collection backing the rag_search tool
//
// Records carry {content, memory_type, importance 1-5, tags, created_at}.
// Eviction keeps the store within a configured bound by deleting the records
// with the smallest (importance, created_at, id) keys, lowest importance
// first, oldest first on ties.
//
// The reflection engine (package reflection) decides what is worth writing
// here after each completed run; the read_memory and write_memory tools give
// the agent direct access through the dispatch layer.
package memory
