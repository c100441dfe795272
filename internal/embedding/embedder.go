// Package embedding provides text embedding backends for keyword extraction:
// an OpenAI-compatible HTTP client, a local ONNX runtime, and a deterministic
// mock for tests, all behind one interface with LRU caching.
package embedding

import "context"

// Embedder produces vector embeddings for text. Vectors from one embedder are
// unit-normalized and mutually comparable by cosine similarity; vectors from
// different embedders are not.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
