//go:build onnx

// Package onnx provides a local Embedder running an all-MiniLM-style BERT
// model through ONNX Runtime. It needs the onnxruntime shared library and a
// model + tokenizer.json on disk, so it is build-tagged; the default build
// uses the API or mock embedders instead.
package onnx

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

// Config locates the model artifacts.
type Config struct {
	// LibraryPath is the onnxruntime shared library (libonnxruntime.so).
	LibraryPath string

	// ModelPath is the ONNX model file.
	ModelPath string

	// TokenizerPath is the HuggingFace tokenizer.json with the WordPiece vocab.
	TokenizerPath string

	// Dimensions is the embedding size. Default 384 (all-MiniLM-L6-v2).
	Dimensions int
}

const maxSequenceLength = 128

// Embedder runs BERT-style embedding inference locally.
type Embedder struct {
	session    *ort.DynamicAdvancedSession
	vocab      map[string]int
	dimensions int
}

// New initializes the ONNX runtime and loads the model and tokenizer.
func New(cfg Config) (*Embedder, error) {
	if cfg.ModelPath == "" || cfg.TokenizerPath == "" {
		return nil, fmt.Errorf("ModelPath and TokenizerPath are required")
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 384
	}
	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnx runtime: %w", err)
	}

	vocab, err := loadVocab(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &Embedder{session: session, vocab: vocab, dimensions: cfg.Dimensions}, nil
}

// Embed tokenizes text, runs inference, and mean-pools to a unit vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	const (
		clsToken = 101
		sepToken = 102
	)

	tokens := e.tokenize(text)
	if len(tokens) > maxSequenceLength-2 {
		tokens = tokens[:maxSequenceLength-2]
	}

	inputIDs := make([]int64, maxSequenceLength)
	attentionMask := make([]int64, maxSequenceLength)
	tokenTypeIDs := make([]int64, maxSequenceLength)

	inputIDs[0] = clsToken
	attentionMask[0] = 1
	for i, tok := range tokens {
		inputIDs[i+1] = tok
		attentionMask[i+1] = 1
	}
	inputIDs[len(tokens)+1] = sepToken
	attentionMask[len(tokens)+1] = 1

	shape := ort.NewShape(1, maxSequenceLength)
	tensors := make([]ort.Value, 0, 3)
	for _, data := range [][]int64{inputIDs, attentionMask, tokenTypeIDs} {
		tensor, err := ort.NewTensor(shape, data)
		if err != nil {
			for _, t := range tensors {
				t.Destroy()
			}
			return nil, fmt.Errorf("create input tensor: %w", err)
		}
		tensors = append(tensors, tensor)
	}
	defer func() {
		for _, t := range tensors {
			t.Destroy()
		}
	}()

	outputs := []ort.Value{nil}
	if err := e.session.Run(tensors, outputs); err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}

	return e.meanPool(hidden, attentionMask)
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Close releases the ONNX session.
func (e *Embedder) Close() error {
	if e.session != nil {
		return e.session.Destroy()
	}
	return nil
}

// meanPool averages last_hidden_state over attended positions and normalizes.
func (e *Embedder) meanPool(hidden *ort.Tensor[float32], attentionMask []int64) ([]float32, error) {
	data := hidden.GetData()
	shape := hidden.GetShape()
	if len(shape) != 3 || shape[0] != 1 {
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}
	seqLen, hiddenSize := int(shape[1]), int(shape[2])
	if hiddenSize != e.dimensions {
		return nil, fmt.Errorf("hidden size %d does not match dimensions %d", hiddenSize, e.dimensions)
	}

	embedding := make([]float32, hiddenSize)
	var attended float32
	for i := 0; i < seqLen && i < len(attentionMask); i++ {
		if attentionMask[i] == 0 {
			continue
		}
		attended++
		offset := i * hiddenSize
		for j := 0; j < hiddenSize; j++ {
			embedding[j] += data[offset+j]
		}
	}
	if attended == 0 {
		return embedding, nil
	}

	var norm float32
	for j := range embedding {
		embedding[j] /= attended
		norm += embedding[j] * embedding[j]
	}
	if norm > 0 {
		norm = float32(math.Sqrt(float64(norm)))
		for j := range embedding {
			embedding[j] /= norm
		}
	}
	return embedding, nil
}

// tokenize is a minimal lowercased WordPiece pass over the vocab.
func (e *Embedder) tokenize(text string) []int64 {
	const unkToken = 100

	var out []int64
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'")
		if word == "" {
			continue
		}
		if id, ok := e.vocab[word]; ok {
			out = append(out, int64(id))
			continue
		}

		start := 0
		for start < len(word) {
			matched := false
			for end := len(word); end > start; end-- {
				piece := word[start:end]
				if start > 0 {
					piece = "##" + piece
				}
				if id, ok := e.vocab[piece]; ok {
					out = append(out, int64(id))
					start = end
					matched = true
					break
				}
			}
			if !matched {
				out = append(out, unkToken)
				start++
			}
		}
	}
	return out
}

func loadVocab(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tokenizer struct {
		Model struct {
			Vocab map[string]int `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &tokenizer); err != nil {
		return nil, err
	}
	if len(tokenizer.Model.Vocab) == 0 {
		return nil, fmt.Errorf("tokenizer vocab is empty")
	}
	return tokenizer.Model.Vocab, nil
}
