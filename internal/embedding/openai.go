package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/searchive/searchive/pkg/utils"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint (including
// Ollama's /v1 API) and caches results.
type OpenAIEmbedder struct {
	embedder   embeddings.Embedder
	dimensions int
	cache      *Cache
}

// NewOpenAIEmbedder creates an embedder against baseURL using model.
// token may be any non-empty string for servers that ignore authentication.
func NewOpenAIEmbedder(baseURL, token, model string, dimensions, cacheSize int) (*OpenAIEmbedder, error) {
	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return &OpenAIEmbedder{
		embedder:   embedder,
		dimensions: dimensions,
		cache:      NewCache(cacheSize),
	}, nil
}

// Embed returns the embedding for text, using the cache when available.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	emb, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	utils.NormalizeL2(emb)
	e.cache.Set(text, emb)
	return emb, nil
}

// EmbedBatch embeds texts in one request, filling cache misses only.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	missing := make([]string, 0, len(texts))
	missingIdx := make([]int, 0, len(texts))
	for i, text := range texts {
		if cached, ok := e.cache.Get(text); ok {
			out[i] = cached
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	embs, err := e.embedder.EmbedDocuments(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(embs) != len(missing) {
		return nil, fmt.Errorf("embed documents: got %d embeddings for %d texts", len(embs), len(missing))
	}
	for i, emb := range embs {
		utils.NormalizeL2(emb)
		e.cache.Set(missing[i], emb)
		out[missingIdx[i]] = emb
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the underlying client holds no persistent connections.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
