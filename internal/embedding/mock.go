package embedding

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/searchive/searchive/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests. Each word hashes to a
// fixed pseudo-random direction and a text embeds to the normalized sum of its
// word vectors, so texts sharing words score higher cosine similarity than
// unrelated texts.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder producing deterministic embeddings of
// the given dimension.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic bag-of-words embedding for text.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	emb := make([]float32, e.dimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		seed := wordSeed(word)
		for i := range emb {
			// xorshift keeps each word's direction stable and cheap to derive.
			seed ^= seed << 13
			seed ^= seed >> 7
			seed ^= seed << 17
			emb[i] += float32(int64(seed%2001)-1000) / 1000
		}
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *MockEmbedder) Close() error {
	return nil
}

func wordSeed(word string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(word))
	s := h.Sum64()
	if s == 0 {
		s = 1
	}
	return s
}
