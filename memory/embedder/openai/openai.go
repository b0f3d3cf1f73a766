// Package openai provides an Embedder backed by the OpenAI embeddings API,
// or any OpenAI-compatible endpoint, reusing chromem-go's embedding funcs.
package openai

import (
	"context"

	chromem "github.com/philippgille/chromem-go"
)

// Embedder calls an OpenAI(-compatible) embeddings endpoint.
type Embedder struct {
	embed      chromem.EmbeddingFunc
	dimensions int
}

// New creates an embedder for api.openai.com using text-embedding-3-small.
func New(apiKey string) *Embedder {
	return &Embedder{
		embed:      chromem.NewEmbeddingFuncOpenAI(apiKey, chromem.EmbeddingModelOpenAI3Small),
		dimensions: 1536,
	}
}

// NewCompat creates an embedder for an OpenAI-compatible endpoint such as
// Ollama or LocalAI. Pass the model's vector size in dimensions.
func NewCompat(baseURL, apiKey, model string, dimensions int) *Embedder {
	normalized := true
	return &Embedder{
		embed:      chromem.NewEmbeddingFuncOpenAICompat(baseURL, apiKey, model, &normalized),
		dimensions: dimensions,
	}
}

// Embed converts text to an embedding vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text)
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}
